package main

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/cwbudde/blocksim/internal/imageio"
	"github.com/spf13/cobra"
)

var (
	cropRows string
	cropCols string
)

var cropCmd = &cobra.Command{
	Use:   "crop <in> <out>",
	Short: "Cut a rectangular window out of an image",
	Long: `Writes rows [start,end) and columns [start,end) of the input. Ranges use
start:end with either side optional. Indices past the image edge are
clamped; a window that ends up empty is reported as an error.`,
	Args: cobra.ExactArgs(2),
	RunE: runCrop,
}

func init() {
	cropCmd.Flags().StringVar(&cropRows, "rows", ":", "Row range start:end")
	cropCmd.Flags().StringVar(&cropCols, "cols", ":", "Column range start:end")
	rootCmd.AddCommand(cropCmd)
}

func runCrop(cmd *cobra.Command, args []string) error {
	r0, r1, err := parseRange(cropRows)
	if err != nil {
		return fmt.Errorf("invalid --rows: %w", err)
	}
	c0, c1, err := parseRange(cropCols)
	if err != nil {
		return fmt.Errorf("invalid --cols: %w", err)
	}

	g, err := imageio.Crop(args[0], r0, r1, c0, c1)
	if err != nil {
		return fmt.Errorf("failed to crop image: %w", err)
	}
	if g.Empty() {
		slog.Warn("Crop window is empty", "rows", cropRows, "cols", cropCols)
		return fmt.Errorf("crop window %s x %s is empty", cropRows, cropCols)
	}
	if err := imageio.SaveGrid(g, args[1]); err != nil {
		return fmt.Errorf("failed to save crop: %w", err)
	}

	fmt.Printf("Wrote %s (%dx%d)\n", args[1], g.Cols(), g.Rows())
	return nil
}

// parseRange parses "start:end". Omitted bounds mean 0 and the image edge.
func parseRange(s string) (int, int, error) {
	lo, hi, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("expected start:end, got %q", s)
	}
	start, end := 0, math.MaxInt
	var err error
	if lo = strings.TrimSpace(lo); lo != "" {
		if start, err = strconv.Atoi(lo); err != nil {
			return 0, 0, fmt.Errorf("bad start %q: %w", lo, err)
		}
	}
	if hi = strings.TrimSpace(hi); hi != "" {
		if end, err = strconv.Atoi(hi); err != nil {
			return 0, 0, fmt.Errorf("bad end %q: %w", hi, err)
		}
	}
	return start, end, nil
}
