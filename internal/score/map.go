package score

import (
	"fmt"
	"image"
	"math"

	"github.com/cwbudde/blocksim/internal/tile"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SimilarityMap is a per-pixel score array, constant over each block of
// its keep-partial tiling.
type SimilarityMap struct {
	Rows      int
	Cols      int
	Values    []float64 // row-major, Rows*Cols
	Tiling    tile.Tiling
	Scores    []float64 // one per block of Tiling, in tiling order
	Threshold float64
}

// Summary holds descriptive statistics of the per-block scores.
type Summary struct {
	Blocks int     `json:"blocks"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
}

func newSimilarityMap(rows, cols int, tiling tile.Tiling, scores []float64, threshold float64) *SimilarityMap {
	values := make([]float64, rows*cols)
	for i, b := range tiling.Blocks {
		// Broadcast over the block's true extent; edge blocks may be clipped.
		for r := b.Row; r < b.Row+b.Rows; r++ {
			row := values[r*cols : (r+1)*cols]
			for c := b.Col; c < b.Col+b.Cols; c++ {
				row[c] = scores[i]
			}
		}
	}
	return &SimilarityMap{
		Rows:      rows,
		Cols:      cols,
		Values:    values,
		Tiling:    tiling,
		Scores:    scores,
		Threshold: threshold,
	}
}

// FromScores rebuilds a map of a rows x cols image from per-block scores
// computed earlier with the given block size. The score count must match
// the keep-partial tiling.
func FromScores(rows, cols, size int, scores []float64, threshold float64) (*SimilarityMap, error) {
	tiling, err := tile.Tile(rows, cols, size, tile.KeepPartial)
	if err != nil {
		return nil, err
	}
	if tiling.Len() != len(scores) {
		return nil, fmt.Errorf("expected %d block scores for %dx%d at block size %d, got %d",
			tiling.Len(), rows, cols, size, len(scores))
	}
	return newSimilarityMap(rows, cols, tiling, append([]float64(nil), scores...), threshold), nil
}

// At returns the score at pixel (row, col).
func (m *SimilarityMap) At(row, col int) float64 {
	return m.Values[row*m.Cols+col]
}

// BlockScore returns the score of the block at flat index idx along with
// the top-left cell derived from the tiling's block-column count.
func (m *SimilarityMap) BlockScore(idx int) (row, col int, score float64) {
	row, col = m.Tiling.Position(idx)
	return row, col, m.Scores[idx]
}

// Summary computes statistics over the per-block scores.
func (m *SimilarityMap) Summary() Summary {
	if len(m.Scores) == 0 {
		return Summary{}
	}
	mean, std := stat.MeanStdDev(m.Scores, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return Summary{
		Blocks: len(m.Scores),
		Min:    floats.Min(m.Scores),
		Max:    floats.Max(m.Scores),
		Mean:   mean,
		StdDev: std,
	}
}

// Gray renders the map as an 8-bit image, mapping [0,1] to [0,255].
// Values outside [0,1] are clamped.
func (m *SimilarityMap) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Cols, m.Rows))
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < m.Cols; c++ {
			v := math.Max(0, math.Min(1, m.At(r, c)))
			img.Pix[r*img.Stride+c] = uint8(math.Round(v * 255))
		}
	}
	return img
}
