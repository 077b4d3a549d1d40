package tile

import "fmt"

// Mode selects how blocks at the right and bottom edges are handled.
type Mode int

const (
	// DropPartial discards blocks smaller than size×size.
	DropPartial Mode = iota
	// KeepPartial keeps clipped edge blocks so every cell is covered.
	KeepPartial
)

func (m Mode) String() string {
	switch m {
	case DropPartial:
		return "drop-partial"
	case KeepPartial:
		return "keep-partial"
	default:
		return "unknown"
	}
}

// Block is a rectangular window of a grid. Rows and Cols are the true
// extent, which is smaller than the tile size for clipped edge blocks.
type Block struct {
	Row  int
	Col  int
	Rows int
	Cols int
}

// Full reports whether the block is exactly size×size.
func (b Block) Full(size int) bool {
	return b.Rows == size && b.Cols == size
}

// Contains reports whether (row, col) lies inside the block.
func (b Block) Contains(row, col int) bool {
	return row >= b.Row && row < b.Row+b.Rows && col >= b.Col && col < b.Col+b.Cols
}

func (b Block) String() string {
	return fmt.Sprintf("block(%d,%d %dx%d)", b.Row, b.Col, b.Rows, b.Cols)
}

// Tiling is an ordered, row-major set of blocks over a grid.
type Tiling struct {
	Blocks    []Block
	BlockRows int // number of block rows produced
	BlockCols int // number of block columns produced
	Size      int
	Mode      Mode
}

// Len returns the number of blocks.
func (t Tiling) Len() int { return len(t.Blocks) }

// Position converts a flat block index to the block's top-left cell.
// The divisor is the column count of this tiling, which differs between
// modes whenever the grid width is not a multiple of Size.
func (t Tiling) Position(idx int) (row, col int) {
	return (idx / t.BlockCols) * t.Size, (idx % t.BlockCols) * t.Size
}

// Tile partitions a rows×cols grid into size×size blocks in row-major
// order (outer loop over row starts, inner loop over column starts).
func Tile(rows, cols, size int, mode Mode) (Tiling, error) {
	if size <= 0 {
		return Tiling{}, &InvalidBlockSizeError{BlockSize: size}
	}

	rowStarts := starts(rows, size, mode)
	colStarts := starts(cols, size, mode)

	blocks := make([]Block, 0, len(rowStarts)*len(colStarts))
	for _, r := range rowStarts {
		for _, c := range colStarts {
			blocks = append(blocks, Block{
				Row:  r,
				Col:  c,
				Rows: min(size, rows-r),
				Cols: min(size, cols-c),
			})
		}
	}

	return Tiling{
		Blocks:    blocks,
		BlockRows: len(rowStarts),
		BlockCols: len(colStarts),
		Size:      size,
		Mode:      mode,
	}, nil
}

// starts lists the block start offsets along one axis of length n.
func starts(n, size int, mode Mode) []int {
	var out []int
	for s := 0; s < n; s += size {
		if mode == DropPartial && s+size > n {
			break
		}
		out = append(out, s)
	}
	return out
}

// ErrInvalidBlockSize matches any InvalidBlockSizeError via errors.Is.
var ErrInvalidBlockSize = &InvalidBlockSizeError{}

// InvalidBlockSizeError is returned for a non-positive block size.
type InvalidBlockSizeError struct {
	BlockSize int
}

func (e *InvalidBlockSizeError) Error() string {
	return fmt.Sprintf("invalid block size: %d (must be positive)", e.BlockSize)
}

func (e *InvalidBlockSizeError) Is(target error) bool {
	_, ok := target.(*InvalidBlockSizeError)
	return ok
}
