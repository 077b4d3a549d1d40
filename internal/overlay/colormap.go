package overlay

import (
	"fmt"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
)

// Colormap maps a scalar in [0,1] to a color. Inputs outside the range
// are clamped, NaN maps to the midpoint.
type Colormap interface {
	Name() string
	Color(v float64) color.NRGBA
}

// Names of the built-in colormaps.
const (
	CoolWarm   = "coolwarm"
	LabBlueRed = "lab"
)

// NewColormap returns the named colormap.
func NewColormap(name string) (Colormap, error) {
	switch name {
	case CoolWarm, "":
		return newCoolWarm(), nil
	case LabBlueRed:
		return newLabGradient(), nil
	default:
		return nil, fmt.Errorf("unknown colormap %q (expected %q or %q)", name, CoolWarm, LabBlueRed)
	}
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0.5
	}
	return math.Max(0, math.Min(1, v))
}

// coolWarm is Moreland's smooth diverging blue-white-red map.
type coolWarm struct {
	cm palette.ColorMap
}

func newCoolWarm() *coolWarm {
	cm := moreland.SmoothBlueRed()
	cm.SetMin(0)
	cm.SetMax(1)
	cm.SetAlpha(1)
	return &coolWarm{cm: cm}
}

func (c *coolWarm) Name() string { return CoolWarm }

func (c *coolWarm) Color(v float64) color.NRGBA {
	col, err := c.cm.At(clampUnit(v))
	if err != nil {
		// Unreachable for clamped input; fall back to the neutral midpoint.
		col, _ = c.cm.At(0.5)
	}
	return color.NRGBAModel.Convert(col).(color.NRGBA)
}

// labGradient interpolates blue → light gray → red in CIE Lab.
type labGradient struct {
	low, mid, high colorful.Color
}

func newLabGradient() *labGradient {
	return &labGradient{
		low:  colorful.Color{R: 0.230, G: 0.299, B: 0.754},
		mid:  colorful.Color{R: 0.865, G: 0.865, B: 0.865},
		high: colorful.Color{R: 0.706, G: 0.016, B: 0.150},
	}
}

func (l *labGradient) Name() string { return LabBlueRed }

func (l *labGradient) Color(v float64) color.NRGBA {
	v = clampUnit(v)
	var c colorful.Color
	if v < 0.5 {
		c = l.low.BlendLab(l.mid, v*2)
	} else {
		c = l.mid.BlendLab(l.high, (v-0.5)*2)
	}
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}
