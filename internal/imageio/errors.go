package imageio

import "fmt"

var (
	// ErrUnreadableImage matches any UnreadableImageError via errors.Is.
	ErrUnreadableImage = &UnreadableImageError{}
	// ErrUnwritableImage matches any UnwritableImageError via errors.Is.
	ErrUnwritableImage = &UnwritableImageError{}
	// ErrInvalidScaleFactor matches any InvalidScaleFactorError via errors.Is.
	ErrInvalidScaleFactor = &InvalidScaleFactorError{}
)

// UnreadableImageError reports a failure to open or decode an image.
// The underlying cause is available through errors.Unwrap.
type UnreadableImageError struct {
	Path string
	Err  error
}

func (e *UnreadableImageError) Error() string {
	return fmt.Sprintf("unreadable image %q: %v", e.Path, e.Err)
}

func (e *UnreadableImageError) Unwrap() error { return e.Err }

func (e *UnreadableImageError) Is(target error) bool {
	_, ok := target.(*UnreadableImageError)
	return ok
}

// UnwritableImageError reports a failure to create or encode an image file.
type UnwritableImageError struct {
	Path string
	Err  error
}

func (e *UnwritableImageError) Error() string {
	return fmt.Sprintf("unwritable image %q: %v", e.Path, e.Err)
}

func (e *UnwritableImageError) Unwrap() error { return e.Err }

func (e *UnwritableImageError) Is(target error) bool {
	_, ok := target.(*UnwritableImageError)
	return ok
}

// InvalidScaleFactorError reports a non-positive scale factor or one that
// reduces an image to zero pixels.
type InvalidScaleFactorError struct {
	Factor int
	Width  int
	Height int
}

func (e *InvalidScaleFactorError) Error() string {
	if e.Factor <= 0 {
		return fmt.Sprintf("invalid scale factor %d: must be positive", e.Factor)
	}
	return fmt.Sprintf("invalid scale factor %d: %dx%d image would have zero size", e.Factor, e.Width, e.Height)
}

func (e *InvalidScaleFactorError) Is(target error) bool {
	_, ok := target.(*InvalidScaleFactorError)
	return ok
}
