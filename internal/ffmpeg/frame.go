package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/kikiluvv/vidlens/pkg/util"
)

// frameFilter builds the -vf chain used for single-frame decoding
func frameFilter(opts FrameOptions) string {
	return NewFilterBuilder().
		ScaleWidth(opts.Width).
		PixelFormat("rgb24").
		Build()
}

// ExtractFrame decodes the frame at opts.Timestamp and returns it as an image
func (e *Executor) ExtractFrame(ctx context.Context, input string, opts FrameOptions) (image.Image, error) {
	if input == "" {
		return nil, fmt.Errorf("input path is required")
	}

	e.logger.Debug().
		Str("input", input).
		Dur("timestamp", opts.Timestamp).
		Int("width", opts.Width).
		Msg("extracting frame")

	args := []string{
		"-ss", util.FormatDuration(opts.Timestamp),
		"-i", input,
		"-frames:v", "1",
		"-an",
		"-vf", frameFilter(opts),
		"-f", "image2pipe",
		"-vcodec", "png",
		"pipe:1",
	}

	var buf bytes.Buffer
	runOpts := RunOptions{
		Args:   args,
		Stdout: &buf,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("frame extraction")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return nil, fmt.Errorf("frame extraction failed: %w", err)
	}

	return decodeFrame(buf.Bytes(), opts)
}

// decodeFrame turns piped PNG output into an image
func decodeFrame(data []byte, opts FrameOptions) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("no frame decoded at %s", util.FormatDuration(opts.Timestamp))
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return img, nil
}
