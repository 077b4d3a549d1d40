// Package signature computes rotation- and permutation-invariant
// neighborhood histograms over quantized blocks.
//
// For every cell of a block and each of its eight neighbors inside the
// same block, the pair-value rank(cell)^2 + rank(neighbor)^2 is counted.
// The histogram has one slot per unordered rank pair (i, j) with
// 1 <= i <= j <= 10, sorted by pair-value, which gives a fixed length of
// 55. Three pair-values (50, 65, 85) are produced by two rank pairs each;
// they occupy two adjacent slots that both hold the count for that value.
//
// Neighbors are never wrapped or padded, so border cells contribute fewer
// pairs than interior cells. Blocks are only ever compared against blocks
// of the same shape, which keeps this bias consistent.
package signature

import (
	"sort"

	"github.com/cwbudde/blocksim/internal/quantize"
	"github.com/cwbudde/blocksim/internal/tile"
)

// Length is the number of histogram slots.
const Length = quantize.Levels * (quantize.Levels + 1) / 2

// maxPairValue is the largest possible pair-value (10^2 + 10^2).
const maxPairValue = 2 * quantize.Levels * quantize.Levels

// offsets enumerates the 8-neighborhood.
var offsets = [8][2]int{
	{-1, 0}, {1, 0}, {0, -1}, {0, 1},
	{-1, -1}, {-1, 1}, {1, -1}, {1, 1},
}

var (
	keys [Length]int
	// slots maps a pair-value to the histogram slots that report it.
	slots [maxPairValue + 1][]int
)

func init() {
	n := 0
	for i := 1; i <= quantize.Levels; i++ {
		for j := i; j <= quantize.Levels; j++ {
			keys[n] = i*i + j*j
			n++
		}
	}
	sort.Ints(keys[:])
	for idx, k := range keys {
		slots[k] = append(slots[k], idx)
	}
}

// Keys returns the pair-value of every slot in ascending order.
func Keys() []int {
	out := make([]int, Length)
	copy(out, keys[:])
	return out
}

// Signature is the fixed-length pair-value histogram of one block.
type Signature [Length]int

// Compute builds the signature of block b over the quantized grid.
// Pairs that involve an unmapped cell are skipped.
func Compute(rg *quantize.RankGrid, b tile.Block) Signature {
	var counts [maxPairValue + 1]int

	rowEnd, colEnd := b.Row+b.Rows, b.Col+b.Cols
	for r := b.Row; r < rowEnd; r++ {
		for c := b.Col; c < colEnd; c++ {
			cell := rg.At(r, c)
			if !cell.Mapped() {
				continue
			}
			a := int(cell.Rank)
			for _, off := range offsets {
				nr, nc := r+off[0], c+off[1]
				if nr < b.Row || nr >= rowEnd || nc < b.Col || nc >= colEnd {
					continue
				}
				n := rg.At(nr, nc)
				if !n.Mapped() {
					continue
				}
				v := int(n.Rank)
				counts[a*a+v*v]++
			}
		}
	}

	var sig Signature
	for idx, k := range keys {
		sig[idx] = counts[k]
	}
	return sig
}

// Whole computes the signature of the entire quantized grid.
func Whole(rg *quantize.RankGrid) Signature {
	return Compute(rg, tile.Block{Rows: rg.Rows(), Cols: rg.Cols()})
}

// Count returns the occurrences of a pair-value, or 0 when the value
// cannot be produced by two ranks.
func (s Signature) Count(pairValue int) int {
	if pairValue < 0 || pairValue > maxPairValue || len(slots[pairValue]) == 0 {
		return 0
	}
	return s[slots[pairValue][0]]
}

// Total returns the number of counted neighbor pairs. Duplicated slots
// are counted once.
func (s Signature) Total() int {
	total := 0
	for idx, k := range keys {
		if slots[k][0] == idx {
			total += s[idx]
		}
	}
	return total
}

// Floats returns the histogram as a float64 vector for the metric.
func (s Signature) Floats() []float64 {
	out := make([]float64, Length)
	for i, v := range s {
		out[i] = float64(v)
	}
	return out
}
