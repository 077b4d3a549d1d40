// Package report writes interactive summaries of a similarity map.
package report

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/cwbudde/blocksim/internal/overlay"
	"github.com/cwbudde/blocksim/internal/score"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// colorStops is the number of samples taken from the colormap for the
// chart's visual map.
const colorStops = 11

// WriteHeatmap renders the per-block scores of m as an HTML heatmap,
// one cell per block, colored with the named colormap.
func WriteHeatmap(w io.Writer, m *score.SimilarityMap, colormap, title string) error {
	cmap, err := overlay.NewColormap(colormap)
	if err != nil {
		return err
	}

	tiling := m.Tiling
	xs := make([]string, tiling.BlockCols)
	for i := range xs {
		xs[i] = strconv.Itoa(i * tiling.Size)
	}
	ys := make([]string, tiling.BlockRows)
	for i := range ys {
		ys[i] = strconv.Itoa(i * tiling.Size)
	}

	data := make([]opts.HeatMapData, 0, len(m.Scores))
	for i := range m.Scores {
		row, col, s := m.BlockScore(i)
		data = append(data, opts.HeatMapData{
			Name:  fmt.Sprintf("(%d,%d)", row, col),
			Value: [3]interface{}{col / tiling.Size, row / tiling.Size, s},
		})
	}

	stops := make([]string, colorStops)
	for i := range stops {
		c := cmap.Color(float64(i) / float64(colorStops-1))
		stops[i] = fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}

	sum := m.Summary()
	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1000px", Height: "800px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("block=%d threshold=%.3f blocks=%d mean=%.3f",
				tiling.Size, m.Threshold, sum.Blocks, sum.Mean),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: xs, Name: "col"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: ys, Name: "row"}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        1,
			InRange:    &opts.VisualMapInRange{Color: stops},
		}),
	)
	hm.AddSeries("similarity", data)

	if err := hm.Render(w); err != nil {
		return fmt.Errorf("failed to render heatmap: %w", err)
	}
	return nil
}

// WriteHeatmapFile is WriteHeatmap to a file path.
func WriteHeatmapFile(path string, m *score.SimilarityMap, colormap, title string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := WriteHeatmap(f, m, colormap, title); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
