package metric

import (
	"fmt"
	"math"
)

// SimilarityFunc scores two equal-length vectors; 1 means identical.
type SimilarityFunc func(a, b []float64) (float64, error)

// WaveHedges computes the Wave Hedges similarity of a and b:
//
//	1 - (1/N) * sum_i |a_i - b_i| / max(a_i, b_i)
//
// Indices where max(a_i, b_i) is zero are skipped, but N is always the
// full vector length. For non-negative inputs every term lies in [0,1],
// so the result lies in [0,1], and identical vectors score exactly 1.
func WaveHedges(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, &ShapeMismatchError{Left: len(a), Right: len(b)}
	}
	if len(a) == 0 {
		return 1, nil
	}

	var sum float64
	for i := range a {
		den := math.Max(a[i], b[i])
		if den == 0 {
			continue
		}
		sum += math.Abs(a[i]-b[i]) / den
	}

	return 1 - sum/float64(len(a)), nil
}

// ErrShapeMismatch matches any ShapeMismatchError via errors.Is.
var ErrShapeMismatch = &ShapeMismatchError{}

// ShapeMismatchError is returned when two vectors differ in length.
type ShapeMismatchError struct {
	Left  int
	Right int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch: %d != %d", e.Left, e.Right)
}

func (e *ShapeMismatchError) Is(target error) bool {
	_, ok := target.(*ShapeMismatchError)
	return ok
}
