package score

import "fmt"

// ErrEmptyTiling matches any EmptyTilingError via errors.Is.
var ErrEmptyTiling = &EmptyTilingError{}

// EmptyTilingError is returned when an image yields no full block, i.e.
// the block size exceeds one of the image dimensions.
type EmptyTilingError struct {
	BlockSize int
	Rows      int
	Cols      int
}

func (e *EmptyTilingError) Error() string {
	return fmt.Sprintf("empty tiling: block size %d does not fit image %dx%d", e.BlockSize, e.Rows, e.Cols)
}

func (e *EmptyTilingError) Is(target error) bool {
	_, ok := target.(*EmptyTilingError)
	return ok
}
