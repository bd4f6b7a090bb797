package media

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnreadable means the source could not be opened or is not a decodable video.
	ErrSourceUnreadable = errors.New("video source unreadable")

	// ErrInsufficientSamples means the source opened but no sampled frame decoded.
	ErrInsufficientSamples = errors.New("insufficient samples: no frames decoded")

	// ErrSourceClosed is returned by reads on a closed source.
	ErrSourceClosed = errors.New("video source closed")
)

// SourceError records the path that failed to open
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("open %s: %v", e.Path, ErrSourceUnreadable)
	}
	return fmt.Sprintf("open %s: %v: %v", e.Path, ErrSourceUnreadable, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Is makes every SourceError match ErrSourceUnreadable
func (e *SourceError) Is(target error) bool {
	return target == ErrSourceUnreadable
}

// Unreadable wraps err as a SourceError for path
func Unreadable(path string, err error) error {
	return &SourceError{Path: path, Err: err}
}
