package grid

import (
	"fmt"
	"image"
)

// Grid is a rows×cols array of integer intensities stored row-major.
// A Grid is never mutated after construction; operations that change
// shape or values return a new Grid.
type Grid struct {
	rows int
	cols int
	data []int
}

// New creates a grid from row-major data.
// Returns an error if len(data) does not equal rows*cols.
func New(rows, cols int, data []int) (Grid, error) {
	if rows < 0 || cols < 0 {
		return Grid{}, fmt.Errorf("grid dimensions must be non-negative, got %dx%d", rows, cols)
	}
	if len(data) != rows*cols {
		return Grid{}, fmt.Errorf("grid data length %d does not match %dx%d", len(data), rows, cols)
	}
	owned := make([]int, len(data))
	copy(owned, data)
	return Grid{rows: rows, cols: cols, data: owned}, nil
}

// FromRows builds a grid from a slice of equal-length rows.
func FromRows(rows [][]int) (Grid, error) {
	if len(rows) == 0 {
		return Grid{}, nil
	}
	cols := len(rows[0])
	data := make([]int, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return Grid{}, fmt.Errorf("row %d has %d columns, expected %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	return Grid{rows: len(rows), cols: cols, data: data}, nil
}

// Filled creates a rows×cols grid holding v everywhere.
func Filled(rows, cols, v int) Grid {
	data := make([]int, rows*cols)
	for i := range data {
		data[i] = v
	}
	return Grid{rows: rows, cols: cols, data: data}
}

// FromGray converts an 8-bit grayscale image into a grid.
// The image origin is translated to (0,0).
func FromGray(img *image.Gray) Grid {
	b := img.Bounds()
	rows, cols := b.Dy(), b.Dx()
	data := make([]int, rows*cols)
	for y := 0; y < rows; y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < cols; x++ {
			data[y*cols+x] = int(img.Pix[off+x])
		}
	}
	return Grid{rows: rows, cols: cols, data: data}
}

// Gray renders the grid as an 8-bit grayscale image, clamping values to [0,255].
func (g Grid) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.cols, g.rows))
	for y := 0; y < g.rows; y++ {
		for x := 0; x < g.cols; x++ {
			v := g.data[y*g.cols+x]
			if v < 0 {
				v = 0
			} else if v > 255 {
				v = 255
			}
			img.Pix[y*img.Stride+x] = uint8(v)
		}
	}
	return img
}

// Rows returns the number of rows.
func (g Grid) Rows() int { return g.rows }

// Cols returns the number of columns.
func (g Grid) Cols() int { return g.cols }

// Empty reports whether the grid has no cells.
func (g Grid) Empty() bool { return g.rows == 0 || g.cols == 0 }

// At returns the value at (row, col). It panics when out of range.
func (g Grid) At(row, col int) int {
	if row < 0 || row >= g.rows || col < 0 || col >= g.cols {
		panic(fmt.Sprintf("grid index (%d,%d) out of range %dx%d", row, col, g.rows, g.cols))
	}
	return g.data[row*g.cols+col]
}

// Values returns a copy of the row-major data.
func (g Grid) Values() []int {
	out := make([]int, len(g.data))
	copy(out, g.data)
	return out
}

// Map returns a new grid with fn applied to every cell.
func (g Grid) Map(fn func(v int) int) Grid {
	data := make([]int, len(g.data))
	for i, v := range g.data {
		data[i] = fn(v)
	}
	return Grid{rows: g.rows, cols: g.cols, data: data}
}

// Crop returns the sub-grid [rowStart,rowEnd) × [colStart,colEnd).
//
// Indices follow slice-clamping semantics: negative starts become 0, ends
// beyond the grid are clipped to its bounds, and an inverted range yields
// an empty grid. Crop never fails.
func (g Grid) Crop(rowStart, rowEnd, colStart, colEnd int) Grid {
	r0, r1 := clampRange(rowStart, rowEnd, g.rows)
	c0, c1 := clampRange(colStart, colEnd, g.cols)

	rows, cols := r1-r0, c1-c0
	data := make([]int, 0, rows*cols)
	for r := r0; r < r1; r++ {
		data = append(data, g.data[r*g.cols+c0:r*g.cols+c1]...)
	}
	return Grid{rows: rows, cols: cols, data: data}
}

func clampRange(start, end, n int) (int, int) {
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	if end > n {
		end = n
	}
	if end < start {
		end = start
	}
	return start, end
}

// Equal reports whether two grids have the same shape and values.
func (g Grid) Equal(other Grid) bool {
	if g.rows != other.rows || g.cols != other.cols {
		return false
	}
	for i := range g.data {
		if g.data[i] != other.data[i] {
			return false
		}
	}
	return true
}

// String returns a short description used in logs and errors.
func (g Grid) String() string {
	return fmt.Sprintf("grid(%dx%d)", g.rows, g.cols)
}
