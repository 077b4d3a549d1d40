package quantize

import "fmt"

// ErrUnmappedValue matches any UnmappedValueError via errors.Is.
var ErrUnmappedValue = &UnmappedValueError{}

// UnmappedValueError is returned by a strict quantizer for a raw value
// outside the palette.
type UnmappedValueError struct {
	Raw int
	Row int
	Col int
}

func (e *UnmappedValueError) Error() string {
	return fmt.Sprintf("value %d at (%d,%d) is not in the palette", e.Raw, e.Row, e.Col)
}

func (e *UnmappedValueError) Is(target error) bool {
	_, ok := target.(*UnmappedValueError)
	return ok
}

// TableError reports an invalid palette table.
type TableError struct {
	Raw    int
	Reason string
}

func (e *TableError) Error() string {
	if e.Raw != 0 {
		return fmt.Sprintf("invalid palette: %s (%d)", e.Reason, e.Raw)
	}
	return "invalid palette: " + e.Reason
}
