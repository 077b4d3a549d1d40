// Package imageio loads and writes the single-channel rasters the scorer
// works on, and provides the crop and downscale helpers.
package imageio

import (
	"image"
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/blocksim/internal/grid"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

// Load reads an image and converts it to an 8-bit intensity grid.
// TIFF is the primary format; PNG and JPEG are accepted as well.
func Load(path string) (grid.Grid, error) {
	img, err := decode(path)
	if err != nil {
		return grid.Grid{}, err
	}
	g := grid.FromGray(toGray(img))
	slog.Debug("Loaded image", "path", path, "rows", g.Rows(), "cols", g.Cols())
	return g, nil
}

// LoadImage reads an image without converting it, for use as an overlay base.
func LoadImage(path string) (image.Image, error) {
	return decode(path)
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &UnreadableImageError{Path: path, Err: err}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &UnreadableImageError{Path: path, Err: err}
	}
	return img, nil
}

// toGray converts any image to 8-bit grayscale with its origin at (0,0).
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

// Save writes img to path. ".png" selects PNG; everything else,
// including ".tif" and ".tiff", is written as TIFF.
func Save(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return &UnwritableImageError{Path: path, Err: err}
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".png":
		err = png.Encode(f, img)
	default:
		err = tiff.Encode(f, img, nil)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return &UnwritableImageError{Path: path, Err: err}
	}

	slog.Debug("Saved image", "path", path, "format", formatName(ext))
	return nil
}

// SaveGrid writes a grid as an 8-bit grayscale image.
func SaveGrid(g grid.Grid, path string) error {
	return Save(g.Gray(), path)
}

// Crop loads path and returns the [rowStart,rowEnd) × [colStart,colEnd)
// window. Out-of-range indices are clamped rather than rejected.
func Crop(path string, rowStart, rowEnd, colStart, colEnd int) (grid.Grid, error) {
	g, err := Load(path)
	if err != nil {
		return grid.Grid{}, err
	}
	return g.Crop(rowStart, rowEnd, colStart, colEnd), nil
}

func formatName(ext string) string {
	if ext == ".png" {
		return "png"
	}
	return "tiff"
}
