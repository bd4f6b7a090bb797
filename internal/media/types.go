// Package media defines decodable video sources and the frame sampler that
// reads an evenly spaced subset of frames from them.
package media

import (
	"context"
	"image"
	"time"
)

// StreamInfo describes a video stream. It is produced once when a source is
// opened and is read-only afterwards.
type StreamInfo struct {
	Path       string
	Duration   float64 // seconds
	FPS        float64
	Width      int
	Height     int
	FrameCount int
	SizeBytes  int64
	VideoCodec string
}

// Frame is one decoded image with its position in the stream
type Frame struct {
	Index     int
	Timestamp time.Duration
	Image     image.Image
}

// Source is a decodable video handle. Implementations are not safe for
// concurrent use; a Source is owned by exactly one sampler.
type Source interface {
	// Info returns the stream metadata captured at open time.
	Info() StreamInfo

	// Seek positions the source so the next ReadFrame returns the frame at index.
	Seek(index int) error

	// ReadFrame decodes the frame at the current position and advances by one.
	ReadFrame() (image.Image, error)

	// Close releases the handle. Any in-flight ReadFrame fails with ErrSourceClosed.
	Close() error
}

// Opener opens a Source for a path or stream identifier
type Opener interface {
	Open(ctx context.Context, path string) (Source, error)
}

// OpenerFunc adapts a function to the Opener interface
type OpenerFunc func(ctx context.Context, path string) (Source, error)

// Open calls f(ctx, path)
func (f OpenerFunc) Open(ctx context.Context, path string) (Source, error) {
	return f(ctx, path)
}
