package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cwbudde/blocksim/internal/config"
	"github.com/cwbudde/blocksim/internal/grid"
	"github.com/cwbudde/blocksim/internal/imageio"
	"github.com/cwbudde/blocksim/internal/store"
	"github.com/spf13/cobra"
)

// Flag values shared by several commands. They only take effect when the
// flag was set explicitly; otherwise the config file value is used.
var (
	dataDir       string
	storeKind     string
	blockSize     int
	threshold     float64
	workers       int
	strictPalette bool
	alpha         float64
	colormap      string

	referencePath string
	refRow        int
	refCol        int
)

func addScoringFlags(c *cobra.Command) {
	c.Flags().IntVar(&blockSize, "block-size", config.DefaultBlockSize, "Block edge length in pixels")
	c.Flags().Float64Var(&threshold, "threshold", config.DefaultThreshold, "Similarity a block needs to count as matching")
	c.Flags().IntVar(&workers, "workers", 0, "Worker goroutines (0 = number of CPUs)")
	c.Flags().BoolVar(&strictPalette, "strict-palette", false, "Fail on pixel values outside the palette")
}

func addOverlayFlags(c *cobra.Command) {
	c.Flags().Float64Var(&alpha, "alpha", 0.5, "Overlay opacity in [0,1]")
	c.Flags().StringVar(&colormap, "colormap", "coolwarm", "Overlay colormap (coolwarm, lab)")
}

func addReferenceFlags(c *cobra.Command) {
	c.Flags().StringVar(&referencePath, "reference", "", "Reference block image (default: a block cropped from the input)")
	c.Flags().IntVar(&refRow, "ref-row", 0, "Top row of the reference block when cropping from the input")
	c.Flags().IntVar(&refCol, "ref-col", 0, "Left column of the reference block when cropping from the input")
}

// resolve merges explicitly set flags over the loaded config and
// validates the result. A nil cmd means no flags were set.
func resolve(cmd *cobra.Command) (*config.Config, error) {
	eff := *cfg
	changed := func(name string) bool {
		return cmd != nil && cmd.Flags().Changed(name)
	}

	if changed("block-size") {
		eff.BlockSize = &blockSize
	}
	if changed("threshold") {
		eff.Threshold = &threshold
	}
	if changed("workers") {
		eff.Workers = &workers
	}
	if changed("strict-palette") {
		eff.StrictPalette = &strictPalette
	}
	if changed("alpha") {
		eff.Alpha = &alpha
	}
	if changed("colormap") {
		eff.Colormap = &colormap
	}
	if changed("data-dir") {
		eff.DataDir = &dataDir
	}
	if changed("store") {
		eff.Store = &storeKind
	}

	if err := eff.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return &eff, nil
}

// commandContext returns the command's context, or Background when the
// command was invoked without one.
func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

func openStore(eff *config.Config) (store.Store, error) {
	st, err := store.Open(eff.GetStore(), eff.GetDataDir())
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}
	return st, nil
}

// loadReference returns the reference block: the --reference image if
// given, otherwise the size×size block of img at (--ref-row, --ref-col).
func loadReference(img grid.Grid, size int) (grid.Grid, error) {
	if referencePath != "" {
		ref, err := imageio.Load(referencePath)
		if err != nil {
			return grid.Grid{}, fmt.Errorf("failed to load reference: %w", err)
		}
		return ref, nil
	}
	ref := img.Crop(refRow, refRow+size, refCol, refCol+size)
	if ref.Empty() {
		return grid.Grid{}, fmt.Errorf("reference block at (%d,%d) lies outside the %dx%d image",
			refRow, refCol, img.Rows(), img.Cols())
	}
	return ref, nil
}

// runConfig captures the settings a run was built with.
func runConfig(eff *config.Config, imagePath string) (store.RunConfig, error) {
	table, err := eff.Table()
	if err != nil {
		return store.RunConfig{}, err
	}
	abs, err := filepath.Abs(imagePath)
	if err != nil {
		abs = imagePath
	}
	oc := eff.Overlay()
	return store.RunConfig{
		ImagePath: abs,
		BlockSize: eff.GetBlockSize(),
		Threshold: eff.GetThreshold(),
		Palette:   table[:],
		Strict:    eff.GetStrictPalette(),
		Workers:   eff.GetWorkers(),
		Colormap:  oc.Colormap,
		Alpha:     oc.Alpha,
	}, nil
}
