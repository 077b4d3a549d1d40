package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/cwbudde/blocksim/internal/config"
	"github.com/cwbudde/blocksim/internal/grid"
	"github.com/cwbudde/blocksim/internal/imageio"
	"github.com/cwbudde/blocksim/internal/overlay"
	"github.com/cwbudde/blocksim/internal/report"
	"github.com/cwbudde/blocksim/internal/score"
	"github.com/cwbudde/blocksim/internal/store"
	"github.com/spf13/cobra"
)

var (
	overlayOut   string
	mapOut       string
	legendOut    string
	reportOut    string
	saveRun      bool
	traceBlocks  bool
	fromRun      string
	legendWidth  int
	legendHeight int
)

var mapCmd = &cobra.Command{
	Use:   "map <image>",
	Short: "Build a similarity map and render it as an overlay",
	Long: `Scores every block of the image, including clipped edge blocks, against
all full blocks and renders the per-block scores as a translucent colored
overlay. The run is stored so it can be re-rendered with --from-run
without repeating the block comparison.`,
	Args: cobra.ExactArgs(1),
	RunE: runMap,
}

func init() {
	addScoringFlags(mapCmd)
	addOverlayFlags(mapCmd)
	mapCmd.Flags().StringVarP(&overlayOut, "out", "o", "overlay.tif", "Overlay output path (.tif or .png)")
	mapCmd.Flags().StringVar(&mapOut, "map-out", "", "Also write the raw map as 8-bit grayscale")
	mapCmd.Flags().StringVar(&legendOut, "legend", "", "Also write a colormap legend")
	mapCmd.Flags().StringVar(&reportOut, "report", "", "Also write an interactive HTML heatmap")
	mapCmd.Flags().IntVar(&legendWidth, "legend-width", 256, "Legend width in pixels")
	mapCmd.Flags().IntVar(&legendHeight, "legend-height", 48, "Legend height in pixels")
	mapCmd.Flags().BoolVar(&saveRun, "save", true, "Store the run under the data directory")
	mapCmd.Flags().BoolVar(&traceBlocks, "trace", false, "Record per-block scores as JSONL in the run directory")
	mapCmd.Flags().StringVar(&fromRun, "from-run", "", "Reuse the scores of a stored run instead of recomputing")
	rootCmd.AddCommand(mapCmd)
}

func runMap(cmd *cobra.Command, args []string) error {
	eff, err := resolve(cmd)
	if err != nil {
		return err
	}
	imagePath := args[0]

	img, err := imageio.Load(imagePath)
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}
	rc, err := runConfig(eff, imagePath)
	if err != nil {
		return err
	}

	var st store.Store
	if saveRun || fromRun != "" {
		if st, err = openStore(eff); err != nil {
			return err
		}
		defer st.Close()
	}

	var run *store.Run
	if fromRun != "" {
		run, err = reuseRun(st, fromRun, rc, img)
	} else {
		run, err = buildRun(cmd, eff, rc, img)
	}
	if err != nil {
		return err
	}

	m, err := run.Map()
	if err != nil {
		return fmt.Errorf("failed to rebuild map: %w", err)
	}
	if err := writeArtifacts(run, m, img, eff.Overlay()); err != nil {
		return err
	}

	if st != nil && saveRun {
		if err := st.SaveRun(run); err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
	}

	sum := m.Summary()
	slog.Info("Map complete",
		"run_id", run.RunID,
		"blocks", sum.Blocks,
		"mean", sum.Mean,
		"elapsed", run.Elapsed,
	)
	fmt.Printf("Wrote %s (run %s, %d blocks, mean %.3f, min %.3f, max %.3f)\n",
		overlayOut, run.RunID, sum.Blocks, sum.Mean, sum.Min, sum.Max)
	return nil
}

// buildRun computes a fresh similarity map.
func buildRun(cmd *cobra.Command, eff *config.Config, rc store.RunConfig, img grid.Grid) (*store.Run, error) {
	q, err := eff.Quantizer()
	if err != nil {
		return nil, err
	}
	scorer := score.NewScorer(q, eff.GetWorkers())
	runID := store.NewRunID()

	var trace *store.TraceWriter
	if traceBlocks {
		trace, err = store.NewTraceWriter(eff.GetDataDir(), runID, false)
		if err != nil {
			return nil, fmt.Errorf("failed to create block trace: %w", err)
		}
		defer trace.Close()
		scorer.SetObserver(trace.Observer())
	}

	start := time.Now()
	m, err := scorer.BuildSimilarityMap(commandContext(cmd), img, rc.BlockSize, rc.Threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to build similarity map: %w", err)
	}
	run := store.NewRun(runID, m, rc, time.Since(start))

	if trace != nil {
		if err := trace.Err(); err != nil {
			return nil, fmt.Errorf("failed to write block trace: %w", err)
		}
		if err := trace.Flush(); err != nil {
			return nil, err
		}
		run.Artifacts["trace"] = trace.Path()
	}
	return run, nil
}

// reuseRun loads a stored run whose scores fit the current image and
// settings. Rendering settings are taken from rc.
func reuseRun(st store.Store, runID string, rc store.RunConfig, img grid.Grid) (*store.Run, error) {
	run, err := st.LoadRun(runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	if err := run.IsCompatible(rc); err != nil {
		return nil, fmt.Errorf("run %s cannot be reused: %w", runID, err)
	}
	if run.Rows != img.Rows() || run.Cols != img.Cols() {
		return nil, fmt.Errorf("run %s was built on a %dx%d image, got %dx%d",
			runID, run.Rows, run.Cols, img.Rows(), img.Cols())
	}
	if traceBlocks {
		slog.Warn("Ignoring --trace for a reused run", "run_id", runID)
	}

	run.Config.Colormap = rc.Colormap
	run.Config.Alpha = rc.Alpha
	if run.Artifacts == nil {
		run.Artifacts = map[string]string{}
	}
	slog.Info("Reusing stored scores", "run_id", runID, "blocks", len(run.Scores))
	return run, nil
}

// writeArtifacts renders the overlay and any optional outputs and records
// their paths on run.
func writeArtifacts(run *store.Run, m *score.SimilarityMap, img grid.Grid, oc overlay.Config) error {
	out, err := overlay.Render(img.Gray(), m, oc)
	if err != nil {
		return fmt.Errorf("failed to render overlay: %w", err)
	}
	if err := imageio.Save(out, overlayOut); err != nil {
		return fmt.Errorf("failed to save overlay: %w", err)
	}
	run.Artifacts["overlay"] = absPath(overlayOut)

	if mapOut != "" {
		if err := imageio.Save(m.Gray(), mapOut); err != nil {
			return fmt.Errorf("failed to save map: %w", err)
		}
		run.Artifacts["map"] = absPath(mapOut)
	}

	if legendOut != "" {
		legend, err := overlay.Legend(oc, legendWidth, legendHeight)
		if err != nil {
			return fmt.Errorf("failed to render legend: %w", err)
		}
		if err := imageio.Save(legend, legendOut); err != nil {
			return fmt.Errorf("failed to save legend: %w", err)
		}
		run.Artifacts["legend"] = absPath(legendOut)
	}

	if reportOut != "" {
		title := filepath.Base(run.Config.ImagePath)
		if err := report.WriteHeatmapFile(reportOut, m, oc.Colormap, title); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		run.Artifacts["report"] = absPath(reportOut)
	}
	return nil
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
