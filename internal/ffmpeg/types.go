package ffmpeg

import (
	"io"
	"time"

	"github.com/kikiluvv/vidlens/internal/media"
)

// VideoInfo contains metadata about a video file
type VideoInfo struct {
	FilePath   string
	Duration   time.Duration
	Width      int
	Height     int
	FPS        float64
	FrameCount int
	SizeBytes  int64
	VideoCodec string
}

// StreamInfo converts probe results to the media data model
func (v *VideoInfo) StreamInfo() media.StreamInfo {
	return media.StreamInfo{
		Path:       v.FilePath,
		Duration:   v.Duration.Seconds(),
		FPS:        v.FPS,
		Width:      v.Width,
		Height:     v.Height,
		FrameCount: v.FrameCount,
		SizeBytes:  v.SizeBytes,
		VideoCodec: v.VideoCodec,
	}
}

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args       []string
	LogHandler func(line string)
	// Stdout receives the encoded output; nil discards it
	Stdout io.Writer
}

// FrameOptions selects and sizes a single decoded frame
type FrameOptions struct {
	Timestamp time.Duration
	// Width scales the frame keeping aspect ratio. 0 keeps native size.
	Width int
}

// SourceOptions configures the media.Source backends
type SourceOptions struct {
	// MaxWidth asks the decoder to scale frames wider than this
	MaxWidth int
}
