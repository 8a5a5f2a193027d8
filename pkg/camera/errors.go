package camera

import (
	"errors"
	"fmt"
)

// Sentinel errors for frame sources.
var (
	// ErrSourceUnavailable is returned when a source cannot be opened.
	ErrSourceUnavailable = errors.New("camera: source unavailable")

	// ErrFrameUnavailable is returned when a fetch yields no frame.
	ErrFrameUnavailable = errors.New("camera: frame unavailable")

	// ErrClosed is returned when fetching from a closed source.
	ErrClosed = errors.New("camera: source closed")
)

// SourceError wraps an error with the source and operation that produced it.
type SourceError struct {
	// Source is the source label, e.g. "camera 2".
	Source string

	// Op is the failed operation: "open" or "fetch".
	Op string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *SourceError) Unwrap() error {
	return e.Err
}

// unavailable builds the open failure for a source.
func unavailable(source string, cause error) error {
	return &SourceError{Source: source, Op: "open", Err: join(ErrSourceUnavailable, cause)}
}

// frameUnavailable builds the fetch failure for a source.
func frameUnavailable(source string, cause error) error {
	return &SourceError{Source: source, Op: "fetch", Err: join(ErrFrameUnavailable, cause)}
}

func join(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}

// IsSourceUnavailable reports whether err is an open failure.
func IsSourceUnavailable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable)
}

// IsFrameUnavailable reports whether err is a fetch failure.
func IsFrameUnavailable(err error) bool {
	return errors.Is(err, ErrFrameUnavailable)
}
