// Package overlay renders a similarity map as a translucent colored layer
// over the source image.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/cwbudde/blocksim/internal/score"
	"golang.org/x/image/draw"
)

// DefaultAlpha is the overlay opacity used when none is configured.
const DefaultAlpha = 0.5

// Config selects the colormap and the opacity of the overlay layer.
type Config struct {
	Colormap string  `json:"colormap"`
	Alpha    float64 `json:"alpha"`
}

// DefaultConfig returns the coolwarm map at half opacity.
func DefaultConfig() Config {
	return Config{Colormap: CoolWarm, Alpha: DefaultAlpha}
}

// Validate checks that Alpha lies in [0,1] and the colormap exists.
func (c Config) Validate() error {
	if math.IsNaN(c.Alpha) || c.Alpha < 0 || c.Alpha > 1 {
		return fmt.Errorf("alpha must be in [0,1], got %v", c.Alpha)
	}
	_, err := NewColormap(c.Colormap)
	return err
}

// Render colors every pixel of m, scales the color's alpha by cfg.Alpha,
// and composites it over base. The result has the dimensions of base,
// which must match the map.
func Render(base image.Image, m *score.SimilarityMap, cfg Config) (*image.NRGBA, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cmap, _ := NewColormap(cfg.Colormap)

	b := base.Bounds()
	if b.Dx() != m.Cols || b.Dy() != m.Rows {
		return nil, fmt.Errorf("image is %dx%d but similarity map is %dx%d", b.Dx(), b.Dy(), m.Cols, m.Rows)
	}

	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), base, b.Min, draw.Src)

	for y := 0; y < m.Rows; y++ {
		for x := 0; x < m.Cols; x++ {
			c := cmap.Color(m.At(y, x))
			a := cfg.Alpha * float64(c.A) / 255
			compositePixel(out, x, y, c, a)
		}
	}
	return out, nil
}

// compositePixel blends a straight (non-premultiplied) color with opacity
// alpha onto img at (x,y) using the Porter-Duff over operator.
func compositePixel(img *image.NRGBA, x, y int, c color.NRGBA, alpha float64) {
	if alpha <= 0 {
		return
	}
	i := img.PixOffset(x, y)

	bgR := float64(img.Pix[i+0]) / 255.0
	bgG := float64(img.Pix[i+1]) / 255.0
	bgB := float64(img.Pix[i+2]) / 255.0
	bgA := float64(img.Pix[i+3]) / 255.0

	fgR := float64(c.R) / 255.0
	fgG := float64(c.G) / 255.0
	fgB := float64(c.B) / 255.0

	outA := alpha + bgA*(1-alpha)
	if outA == 0 {
		return
	}

	outR := (fgR*alpha + bgR*bgA*(1-alpha)) / outA
	outG := (fgG*alpha + bgG*bgA*(1-alpha)) / outA
	outB := (fgB*alpha + bgB*bgA*(1-alpha)) / outA

	img.Pix[i+0] = uint8(math.Round(outR * 255))
	img.Pix[i+1] = uint8(math.Round(outG * 255))
	img.Pix[i+2] = uint8(math.Round(outB * 255))
	img.Pix[i+3] = uint8(math.Round(outA * 255))
}
