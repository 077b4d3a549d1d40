package imageio

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/blocksim/internal/grid"
)

// writeGray saves a w×h gradient as TIFF and returns its path.
func writeGray(t *testing.T, name string, w, h int) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x + y*w) % 256)})
		}
	}
	path := filepath.Join(t.TempDir(), name)
	if err := Save(img, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	return path
}

func TestSaveLoadTIFF(t *testing.T) {
	path := writeGray(t, "in.tif", 7, 5)

	g, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if g.Rows() != 5 || g.Cols() != 7 {
		t.Fatalf("Expected 5x7 grid, got %dx%d", g.Rows(), g.Cols())
	}
	if g.At(2, 3) != 3+2*7 {
		t.Errorf("Expected %d at (2,3), got %d", 3+2*7, g.At(2, 3))
	}
}

func TestSaveLoadPNG(t *testing.T) {
	path := writeGray(t, "in.png", 4, 4)
	g, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if g.At(3, 3) != 15 {
		t.Errorf("Expected 15, got %d", g.At(3, 3))
	}
}

func TestLoadRGBConvertsToGray(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{255, 255, 255, 255})
	img.Set(1, 0, color.NRGBA{0, 0, 0, 255})
	path := filepath.Join(t.TempDir(), "rgb.tiff")
	if err := Save(img, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	g, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if g.At(0, 0) != 255 || g.At(0, 1) != 0 {
		t.Errorf("Expected [255 0], got [%d %d]", g.At(0, 0), g.At(0, 1))
	}
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.tif")
	_, err := Load(path)
	if !errors.Is(err, ErrUnreadableImage) {
		t.Fatalf("Expected ErrUnreadableImage, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected wrapped os.ErrNotExist, got %v", err)
	}

	var uerr *UnreadableImageError
	if !errors.As(err, &uerr) || uerr.Path != path {
		t.Errorf("Expected path %q in error, got %v", path, err)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.tif")
	if err := os.WriteFile(path, []byte("not an image"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := Load(path); !errors.Is(err, ErrUnreadableImage) {
		t.Errorf("Expected ErrUnreadableImage, got %v", err)
	}
}

func TestSaveUnwritable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no-such-dir", "out.tif")
	err := Save(image.NewGray(image.Rect(0, 0, 1, 1)), path)
	if !errors.Is(err, ErrUnwritableImage) {
		t.Errorf("Expected ErrUnwritableImage, got %v", err)
	}
}

func TestCropClamps(t *testing.T) {
	path := writeGray(t, "crop.tif", 6, 4)

	g, err := Crop(path, 2, 100, 1, 3)
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if g.Rows() != 2 || g.Cols() != 2 {
		t.Fatalf("Expected clipped 2x2, got %dx%d", g.Rows(), g.Cols())
	}
	if g.At(0, 0) != 1+2*6 {
		t.Errorf("Expected %d, got %d", 1+2*6, g.At(0, 0))
	}
}

func TestSaveGrid(t *testing.T) {
	g := grid.Filled(3, 2, 108)
	path := filepath.Join(t.TempDir(), "grid.tif")
	if err := SaveGrid(g, path); err != nil {
		t.Fatalf("SaveGrid failed: %v", err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !back.Equal(g) {
		t.Errorf("Round trip changed grid: %v", back.Values())
	}
}
