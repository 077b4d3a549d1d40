package signature

import (
	"fmt"
	"image/color"
	"math"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Plot writes a bar chart of the signature to path. The image format is
// chosen from the file extension (png, svg, pdf, ...).
func Plot(sig Signature, title, path string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "pair-value"
	p.Y.Label.Text = "count"

	values := make(plotter.Values, Length)
	labels := make([]string, Length)
	for i, k := range keys {
		values[i] = float64(sig[i])
		labels[i] = strconv.Itoa(k)
	}

	bars, err := plotter.NewBarChart(values, vg.Points(6))
	if err != nil {
		return fmt.Errorf("failed to build bar chart: %w", err)
	}
	bars.Color = color.RGBA{R: 59, G: 76, B: 192, A: 255}
	bars.LineStyle.Width = vg.Length(0)

	p.Add(bars)
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 2

	if err := p.Save(14*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save signature plot: %w", err)
	}
	return nil
}
