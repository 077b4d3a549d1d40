package main

import (
	"fmt"
	"log/slog"

	"github.com/cwbudde/blocksim/internal/imageio"
	"github.com/cwbudde/blocksim/internal/opt"
	"github.com/cwbudde/blocksim/internal/score"
	"github.com/spf13/cobra"
)

var (
	calibrateTarget float64
	calibrateIters  int
	calibratePop    int
	calibrateSeed   int64
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate <image>",
	Short: "Find the threshold that matches a target fraction of blocks",
	Long: `Computes the similarity of every full block to the reference block once,
then searches with the mayfly optimizer for the threshold at which the
matching fraction is closest to --target.`,
	Args: cobra.ExactArgs(1),
	RunE: runCalibrate,
}

func init() {
	addScoringFlags(calibrateCmd)
	addReferenceFlags(calibrateCmd)
	calibrateCmd.Flags().Float64Var(&calibrateTarget, "target", 0.5, "Desired fraction of matching blocks")
	calibrateCmd.Flags().IntVar(&calibrateIters, "iters", 100, "Max iterations")
	calibrateCmd.Flags().IntVar(&calibratePop, "pop", opt.MinPopulation, "Population size")
	calibrateCmd.Flags().Int64Var(&calibrateSeed, "seed", 42, "Random seed")
	rootCmd.AddCommand(calibrateCmd)
}

func runCalibrate(cmd *cobra.Command, args []string) error {
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
	sims, err := scorer.Similarities(commandContext(cmd), img, ref, size)
	if err != nil {
		return fmt.Errorf("failed to score image: %w", err)
	}

	slog.Info("Starting calibration",
		"blocks", len(sims),
		"target", calibrateTarget,
		"iters", calibrateIters,
		"pop", calibratePop,
	)
	c, err := opt.CalibrateThreshold(sims, calibrateTarget, opt.NewMayfly(calibrateIters, calibratePop, calibrateSeed))
	if err != nil {
		return err
	}

	fmt.Printf("threshold %.6f gives fraction %.6f (target %.6f, %d blocks)\n",
		c.Threshold, c.Fraction, c.Target, len(sims))
	return nil
}
