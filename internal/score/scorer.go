package score

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/cwbudde/blocksim/internal/grid"
	"github.com/cwbudde/blocksim/internal/metric"
	"github.com/cwbudde/blocksim/internal/quantize"
	"github.com/cwbudde/blocksim/internal/signature"
	"github.com/cwbudde/blocksim/internal/tile"
	"golang.org/x/sync/errgroup"
)

// Observer is notified once per reference block while a map is built.
// It is called from worker goroutines and must be safe for concurrent use.
type Observer func(index int, block tile.Block, score float64)

// Scorer compares block signatures of an image against reference blocks.
type Scorer struct {
	quantizer  *quantize.Quantizer
	similarity metric.SimilarityFunc
	workers    int
	observer   Observer
}

// NewScorer creates a scorer using Wave Hedges similarity.
// workers <= 0 selects runtime.NumCPU().
func NewScorer(q *quantize.Quantizer, workers int) *Scorer {
	if q == nil {
		q = quantize.Default()
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Scorer{
		quantizer:  q,
		similarity: metric.WaveHedges,
		workers:    workers,
	}
}

// SetObserver registers a per-block callback for BuildSimilarityMap.
func (s *Scorer) SetObserver(fn Observer) {
	s.observer = fn
}

// Workers returns the size of the worker pool.
func (s *Scorer) Workers() int { return s.workers }

// ScoreAgainstReference tiles img into full size×size blocks and returns
// the fraction of blocks whose similarity to the reference is at least
// threshold.
func (s *Scorer) ScoreAgainstReference(ctx context.Context, img, reference grid.Grid, size int, threshold float64) (float64, error) {
	sims, err := s.Similarities(ctx, img, reference, size)
	if err != nil {
		return 0, err
	}
	return FractionAbove(sims, threshold), nil
}

// Similarities returns the similarity of every full size×size block of img
// to the reference, in row-major block order.
func (s *Scorer) Similarities(ctx context.Context, img, reference grid.Grid, size int) ([]float64, error) {
	rg, err := s.quantizer.Quantize(img)
	if err != nil {
		return nil, fmt.Errorf("failed to quantize image: %w", err)
	}
	refRG, err := s.quantizer.Quantize(reference)
	if err != nil {
		return nil, fmt.Errorf("failed to quantize reference: %w", err)
	}
	if reference.Rows() != size || reference.Cols() != size {
		slog.Warn("Reference block shape differs from block size",
			"reference_rows", reference.Rows(), "reference_cols", reference.Cols(), "block_size", size)
	}

	_, candidates, err := s.candidates(ctx, rg, size)
	if err != nil {
		return nil, err
	}

	ref := signature.Whole(refRG).Floats()
	sims := make([]float64, len(candidates))
	for i, c := range candidates {
		if sims[i], err = s.similarity(c, ref); err != nil {
			return nil, err
		}
	}
	return sims, nil
}

// FractionAbove returns the share of sims that are at least threshold.
// An empty slice yields 0.
func FractionAbove(sims []float64, threshold float64) float64 {
	if len(sims) == 0 {
		return 0
	}
	above := 0
	for _, v := range sims {
		if v >= threshold {
			above++
		}
	}
	return float64(above) / float64(len(sims))
}

// BuildSimilarityMap scores every block of img, including clipped edge
// blocks, against all full blocks of img and broadcasts each block's
// fraction over its footprint.
//
// Every signature is computed once; the pairwise comparison is still
// quadratic in the number of blocks.
func (s *Scorer) BuildSimilarityMap(ctx context.Context, img grid.Grid, size int, threshold float64) (*SimilarityMap, error) {
	start := time.Now()

	rg, err := s.quantizer.Quantize(img)
	if err != nil {
		return nil, fmt.Errorf("failed to quantize image: %w", err)
	}

	candTiling, candidates, err := s.candidates(ctx, rg, size)
	if err != nil {
		return nil, err
	}

	refTiling, err := tile.Tile(rg.Rows(), rg.Cols(), size, tile.KeepPartial)
	if err != nil {
		return nil, err
	}

	// Full reference blocks coincide with candidate blocks; reuse their signatures.
	byPos := make(map[[2]int]int, candTiling.Len())
	for i, b := range candTiling.Blocks {
		byPos[[2]int{b.Row, b.Col}] = i
	}

	scores := make([]float64, refTiling.Len())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, b := range refTiling.Blocks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			var ref []float64
			if j, ok := byPos[[2]int{b.Row, b.Col}]; ok && b.Full(size) {
				ref = candidates[j]
			} else {
				ref = signature.Compute(rg, b).Floats()
			}

			f, err := s.fraction(ref, candidates, threshold)
			if err != nil {
				return fmt.Errorf("failed to score %s: %w", b, err)
			}
			scores[i] = f

			if s.observer != nil {
				s.observer(i, b, f)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m := newSimilarityMap(rg.Rows(), rg.Cols(), refTiling, scores, threshold)

	slog.Info("Similarity map built",
		"rows", rg.Rows(),
		"cols", rg.Cols(),
		"block_size", size,
		"reference_blocks", refTiling.Len(),
		"candidate_blocks", candTiling.Len(),
		"workers", s.workers,
		"elapsed", time.Since(start),
	)
	return m, nil
}

// candidates tiles rg in drop-partial mode and computes every block's
// signature in parallel.
func (s *Scorer) candidates(ctx context.Context, rg *quantize.RankGrid, size int) (tile.Tiling, [][]float64, error) {
	tiling, err := tile.Tile(rg.Rows(), rg.Cols(), size, tile.DropPartial)
	if err != nil {
		return tile.Tiling{}, nil, err
	}
	if tiling.Len() == 0 {
		return tile.Tiling{}, nil, &EmptyTilingError{BlockSize: size, Rows: rg.Rows(), Cols: rg.Cols()}
	}

	sigs := make([][]float64, tiling.Len())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, b := range tiling.Blocks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sigs[i] = signature.Compute(rg, b).Floats()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return tile.Tiling{}, nil, err
	}

	slog.Debug("Candidate signatures computed", "blocks", tiling.Len(), "block_size", size)
	return tiling, sigs, nil
}

// fraction returns the share of candidates scoring at least threshold against ref.
func (s *Scorer) fraction(ref []float64, candidates [][]float64, threshold float64) (float64, error) {
	above := 0
	for _, c := range candidates {
		sim, err := s.similarity(c, ref)
		if err != nil {
			return 0, err
		}
		if sim >= threshold {
			above++
		}
	}
	return float64(above) / float64(len(candidates)), nil
}
