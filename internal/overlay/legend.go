package overlay

import (
	"fmt"
	"image"
	"image/color"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	legendFontSize = 11.0
	legendLabelGap = 18
)

var legendFont *truetype.Font

func init() {
	f, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		panic(fmt.Sprintf("failed to parse embedded font: %v", err))
	}
	legendFont = f
}

// Legend renders a horizontal color bar for cfg with tick labels at 0,
// 0.5 and 1 below it. The bar uses the configured alpha over white so it
// matches the look of the overlay.
func Legend(cfg Config, width, height int) (*image.NRGBA, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if width < 32 || height <= legendLabelGap+4 {
		return nil, fmt.Errorf("legend too small: %dx%d", width, height)
	}
	cmap, _ := NewColormap(cfg.Colormap)

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	barHeight := height - legendLabelGap
	for x := 0; x < width; x++ {
		c := cmap.Color(float64(x) / float64(width-1))
		a := cfg.Alpha * float64(c.A) / 255
		for y := 0; y < barHeight; y++ {
			compositePixel(img, x, y, c, a)
		}
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(legendFont)
	ctx.SetFontSize(legendFontSize)
	ctx.SetClip(img.Bounds())
	ctx.SetDst(img)
	ctx.SetSrc(image.Black)

	baseline := barHeight + int(ctx.PointToFixed(legendFontSize)>>6)
	labels := []struct {
		text string
		x    int
	}{
		{"0.0", 1},
		{"0.5", width/2 - 8},
		{"1.0", width - 20},
	}
	for _, l := range labels {
		if _, err := ctx.DrawString(l.text, freetype.Pt(l.x, baseline)); err != nil {
			return nil, fmt.Errorf("failed to draw legend label: %w", err)
		}
	}
	return img, nil
}
