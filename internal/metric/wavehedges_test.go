package metric

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestWaveHedgesIdentical(t *testing.T) {
	vectors := [][]float64{
		{1, 2, 3},
		{0, 5, 0, 7},
		{12},
	}
	for _, v := range vectors {
		got, err := WaveHedges(v, v)
		if err != nil {
			t.Fatalf("WaveHedges failed: %v", err)
		}
		if got != 1 {
			t.Errorf("Self-similarity of %v: expected 1, got %f", v, got)
		}
	}
}

func TestWaveHedgesAllZero(t *testing.T) {
	got, err := WaveHedges([]float64{0, 0, 0}, []float64{0, 0, 0})
	if err != nil {
		t.Fatalf("WaveHedges failed: %v", err)
	}
	if got != 1 {
		t.Errorf("Expected 1 for all-zero vectors, got %f", got)
	}
}

func TestWaveHedgesNormalizesByFullLength(t *testing.T) {
	// One non-skipped index with term |4-0|/4 = 1, three skipped indices.
	got, err := WaveHedges([]float64{4, 0, 0, 0}, []float64{0, 0, 0, 0})
	if err != nil {
		t.Fatalf("WaveHedges failed: %v", err)
	}
	if math.Abs(got-0.75) > 1e-12 {
		t.Errorf("Expected 0.75, got %f", got)
	}
}

func TestWaveHedgesKnownValue(t *testing.T) {
	// terms: |1-2|/2 = 0.5, |3-3|/3 = 0, |0-4|/4 = 1 -> 1 - 1.5/3 = 0.5
	got, err := WaveHedges([]float64{1, 3, 0}, []float64{2, 3, 4})
	if err != nil {
		t.Fatalf("WaveHedges failed: %v", err)
	}
	if math.Abs(got-0.5) > 1e-12 {
		t.Errorf("Expected 0.5, got %f", got)
	}
}

func TestWaveHedgesSymmetric(t *testing.T) {
	a := []float64{3, 0, 9, 1}
	b := []float64{1, 2, 9, 0}
	ab, _ := WaveHedges(a, b)
	ba, _ := WaveHedges(b, a)
	if ab != ba {
		t.Errorf("Expected symmetry, got %f vs %f", ab, ba)
	}
}

func TestWaveHedgesRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		n := 1 + rng.Intn(60)
		a := make([]float64, n)
		b := make([]float64, n)
		for j := range a {
			a[j] = float64(1 + rng.Intn(50))
			b[j] = float64(1 + rng.Intn(50))
		}
		got, err := WaveHedges(a, b)
		if err != nil {
			t.Fatalf("WaveHedges failed: %v", err)
		}
		if got < 0 || got > 1 {
			t.Fatalf("Score %f outside [0,1] for %v vs %v", got, a, b)
		}
	}
}

func TestWaveHedgesShapeMismatch(t *testing.T) {
	_, err := WaveHedges([]float64{1, 2}, []float64{1, 2, 3})
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("Expected ErrShapeMismatch, got %v", err)
	}

	var serr *ShapeMismatchError
	if !errors.As(err, &serr) || serr.Left != 2 || serr.Right != 3 {
		t.Errorf("Expected lengths 2 and 3 in error, got %v", err)
	}
}
