package main

import (
	"fmt"

	"github.com/cwbudde/blocksim/internal/imageio"
	"github.com/spf13/cobra"
)

var downscaleFactor int

var downscaleCmd = &cobra.Command{
	Use:   "downscale <in> <out>",
	Short: "Shrink an image by an integer factor",
	Long:  `Divides both dimensions by --factor (rounding down) and resamples with a Lanczos filter.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runDownscale,
}

func init() {
	downscaleCmd.Flags().IntVar(&downscaleFactor, "factor", 2, "Integer downscale factor")
	rootCmd.AddCommand(downscaleCmd)
}

func runDownscale(cmd *cobra.Command, args []string) error {
	if err := imageio.Downscale(args[0], args[1], downscaleFactor); err != nil {
		return fmt.Errorf("failed to downscale image: %w", err)
	}
	fmt.Printf("Wrote %s\n", args[1])
	return nil
}
