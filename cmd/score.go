package main

import (
	"fmt"
	"log/slog"

	"github.com/cwbudde/blocksim/internal/imageio"
	"github.com/cwbudde/blocksim/internal/score"
	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score <image>",
	Short: "Score an image against one reference block",
	Long: `Tiles the image into full blocks and prints the fraction of blocks whose
similarity to the reference block reaches the threshold. Partial edge
blocks are dropped.`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func init() {
	addScoringFlags(scoreCmd)
	addReferenceFlags(scoreCmd)
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	eff, err := resolve(cmd)
	if err != nil {
		return err
	}

	img, err := imageio.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}
	size := eff.GetBlockSize()
	ref, err := loadReference(img, size)
	if err != nil {
		return err
	}

	q, err := eff.Quantizer()
	if err != nil {
		return err
	}
	scorer := score.NewScorer(q, eff.GetWorkers())

	fraction, err := scorer.ScoreAgainstReference(commandContext(cmd), img, ref, size, eff.GetThreshold())
	if err != nil {
		return fmt.Errorf("failed to score image: %w", err)
	}

	slog.Info("Scored image",
		"image", args[0],
		"block_size", size,
		"threshold", eff.GetThreshold(),
		"fraction", fraction,
	)
	fmt.Printf("%.6f\n", fraction)
	return nil
}
