package opt

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/cwbudde/blocksim/internal/score"
)

// Calibration is the outcome of a threshold search.
type Calibration struct {
	Threshold float64 `json:"threshold"`
	Fraction  float64 `json:"fraction"`
	Target    float64 `json:"target"`
	Cost      float64 `json:"cost"`
}

// CalibrateThreshold searches [0,1] for the threshold at which the
// fraction of sims at or above it is closest to target.
//
// The fraction is a step function of the threshold, so the optimizer's
// answer is snapped to the smallest observed similarity at or above it.
// That keeps the fraction unchanged and makes the reported threshold one
// of the actual similarity values.
func CalibrateThreshold(sims []float64, target float64, o Optimizer) (Calibration, error) {
	if len(sims) == 0 {
		return Calibration{}, fmt.Errorf("no similarities to calibrate on")
	}
	if math.IsNaN(target) || target < 0 || target > 1 {
		return Calibration{}, fmt.Errorf("target fraction must be in [0,1], got %v", target)
	}

	cost := func(x []float64) float64 {
		return math.Abs(score.FractionAbove(sims, clampUnit(x[0])) - target)
	}

	best, _, err := o.Run(cost, []float64{0}, []float64{1}, 1)
	if err != nil {
		return Calibration{}, fmt.Errorf("failed to calibrate threshold: %w", err)
	}

	t := snap(sims, clampUnit(best[0]))
	c := Calibration{
		Threshold: t,
		Fraction:  score.FractionAbove(sims, t),
		Target:    target,
	}
	c.Cost = math.Abs(c.Fraction - target)

	slog.Info("Threshold calibrated",
		"threshold", c.Threshold,
		"fraction", c.Fraction,
		"target", c.Target,
		"blocks", len(sims),
	)
	return c, nil
}

// snap returns the smallest value of sims that is >= t, or t if none is.
func snap(sims []float64, t float64) float64 {
	sorted := append([]float64(nil), sims...)
	sort.Float64s(sorted)
	i := sort.SearchFloat64s(sorted, t)
	if i == len(sorted) {
		return t
	}
	return sorted[i]
}

func clampUnit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
