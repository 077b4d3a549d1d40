// Package quantize maps the closed 10-level intensity palette of the
// source rasters to dense ranks 1..10.
package quantize

import (
	"fmt"
	"log/slog"

	"github.com/cwbudde/blocksim/internal/grid"
)

// Levels is the number of palette entries and therefore the highest rank.
const Levels = 10

// Table lists the raw intensity values of the palette. The value at
// index i is assigned rank i+1.
type Table [Levels]int

// DefaultTable is the 8-bit palette the scanned rasters are produced with.
var DefaultTable = Table{6, 32, 57, 83, 108, 134, 159, 185, 210, 236}

// Rank is a quantized level in 1..Levels. The zero value means unmapped.
type Rank uint8

// Level is the quantization result for one cell: either a Rank or the
// raw value that is not part of the palette.
type Level struct {
	Rank Rank
	Raw  int
}

// Mapped reports whether the raw value belonged to the palette.
func (l Level) Mapped() bool { return l.Rank != 0 }

func (l Level) String() string {
	if l.Mapped() {
		return fmt.Sprintf("Rank(%d)", l.Rank)
	}
	return fmt.Sprintf("Unmapped(%d)", l.Raw)
}

// Quantizer looks raw values up in a palette table.
type Quantizer struct {
	table  Table
	ranks  map[int]Rank
	strict bool
}

// New creates a quantizer for the given table. In strict mode,
// Quantize fails on the first value outside the palette; otherwise such
// cells are kept as Unmapped levels.
func New(table Table, strict bool) (*Quantizer, error) {
	ranks := make(map[int]Rank, Levels)
	for i, raw := range table {
		if _, dup := ranks[raw]; dup {
			return nil, &TableError{Raw: raw, Reason: "duplicate palette value"}
		}
		ranks[raw] = Rank(i + 1)
	}
	return &Quantizer{table: table, ranks: ranks, strict: strict}, nil
}

// Default returns a lenient quantizer over DefaultTable.
func Default() *Quantizer {
	q, _ := New(DefaultTable, false)
	return q
}

// TableFromSlice validates a palette given as a slice, e.g. from configuration.
func TableFromSlice(values []int) (Table, error) {
	var t Table
	if len(values) != Levels {
		return t, &TableError{Reason: fmt.Sprintf("expected %d palette values, got %d", Levels, len(values))}
	}
	copy(t[:], values)
	return t, nil
}

// Table returns the palette.
func (q *Quantizer) Table() Table { return q.table }

// Strict reports whether unmapped values are rejected.
func (q *Quantizer) Strict() bool { return q.strict }

// Lookup maps one raw value. Every value is resolved against the table
// independently, so ranks never chain into other palette entries.
func (q *Quantizer) Lookup(raw int) Level {
	return Level{Rank: q.ranks[raw], Raw: raw}
}

// Quantize resolves every cell of g.
func (q *Quantizer) Quantize(g grid.Grid) (*RankGrid, error) {
	rows, cols := g.Rows(), g.Cols()
	levels := make([]Level, rows*cols)
	unmapped := 0
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			lvl := q.Lookup(g.At(r, c))
			if !lvl.Mapped() {
				if q.strict {
					return nil, &UnmappedValueError{Raw: lvl.Raw, Row: r, Col: c}
				}
				unmapped++
			}
			levels[r*cols+c] = lvl
		}
	}
	if unmapped > 0 {
		slog.Debug("Unmapped palette values ignored", "cells", unmapped, "rows", rows, "cols", cols)
	}
	return &RankGrid{rows: rows, cols: cols, levels: levels, unmapped: unmapped}, nil
}

// RankGrid holds the quantized levels of a grid.
type RankGrid struct {
	rows     int
	cols     int
	levels   []Level
	unmapped int
}

// Rows returns the number of rows.
func (rg *RankGrid) Rows() int { return rg.rows }

// Cols returns the number of columns.
func (rg *RankGrid) Cols() int { return rg.cols }

// At returns the level at (row, col).
func (rg *RankGrid) At(row, col int) Level {
	return rg.levels[row*rg.cols+col]
}

// Unmapped returns the number of cells outside the palette.
func (rg *RankGrid) Unmapped() int { return rg.unmapped }

// Values returns the substituted grid: ranks for palette values, raw
// values unchanged for everything else.
func (rg *RankGrid) Values() grid.Grid {
	data := make([]int, len(rg.levels))
	for i, lvl := range rg.levels {
		if lvl.Mapped() {
			data[i] = int(lvl.Rank)
		} else {
			data[i] = lvl.Raw
		}
	}
	g, _ := grid.New(rg.rows, rg.cols, data)
	return g
}
