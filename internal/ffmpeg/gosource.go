package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
	ffmpeg_go "github.com/u2takey/ffmpeg-go"

	"github.com/kikiluvv/vidlens/internal/media"
	"github.com/kikiluvv/vidlens/pkg/util"
)

// GoBackend decodes through the ffmpeg-go stream builder instead of
// hand-built argument lists.
type GoBackend struct {
	logger     zerolog.Logger
	binaryPath string
	probePath  string
	threads    int
}

// NewGoBackend creates the ffmpeg-go backend. Empty binary paths fall back
// to ffmpeg and ffprobe from PATH.
func NewGoBackend(logger zerolog.Logger, cfg Config) *GoBackend {
	b := &GoBackend{
		logger:     logger.With().Str("component", "ffmpeg-go").Logger(),
		binaryPath: cfg.BinaryPath,
		probePath:  cfg.ProbePath,
		threads:    cfg.Threads,
	}
	if b.binaryPath == "" {
		b.binaryPath = "ffmpeg"
	}
	if b.probePath == "" {
		b.probePath = "ffprobe"
	}
	return b
}

// Probe reads stream metadata with the configured ffprobe
func (b *GoBackend) Probe(ctx context.Context, path string) (*VideoInfo, error) {
	cmd := exec.CommandContext(ctx, b.probePath, probeArgs(path)...)
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}
	info, err := parseProbeOutput(out)
	if err != nil {
		return nil, err
	}
	info.FilePath = path
	return info, nil
}

// stream builds the single-frame extraction graph
func (b *GoBackend) stream(input string, opts FrameOptions) *ffmpeg_go.Stream {
	out := ffmpeg_go.KwArgs{
		"frames:v": 1,
		"vf":       frameFilter(opts),
		"format":   "image2pipe",
		"vcodec":   "png",
	}
	if b.threads > 0 {
		out["threads"] = b.threads
	}

	return ffmpeg_go.Input(input, ffmpeg_go.KwArgs{"ss": util.FormatDuration(opts.Timestamp)}).
		Output("pipe:", out).
		GlobalArgs("-hide_banner", "-loglevel", "error")
}

// ExtractFrame decodes the frame at opts.Timestamp
func (b *GoBackend) ExtractFrame(ctx context.Context, input string, opts FrameOptions) (image.Image, error) {
	var buf, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, b.binaryPath, b.stream(input, opts).GetArgs()...)
	cmd.Stdout = &buf
	cmd.Stderr = &stderr

	b.logger.Debug().
		Str("cmd", b.binaryPath).
		Strs("args", cmd.Args[1:]).
		Msg("executing ffmpeg-go stream")

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("frame extraction failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return decodeFrame(buf.Bytes(), opts)
}

// Opener returns a media.Opener using this backend
func (b *GoBackend) Opener(opts SourceOptions) media.Opener {
	return media.OpenerFunc(func(ctx context.Context, path string) (media.Source, error) {
		if err := validateVideoFile(path); err != nil {
			return nil, media.Unreadable(path, err)
		}

		info, err := b.Probe(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, media.Unreadable(path, err)
		}

		b.logger.Debug().
			Str("path", path).
			Int("frames", info.FrameCount).
			Float64("fps", info.FPS).
			Msg("opened video source")

		return newFrameSource(b.logger, info.StreamInfo(), opts, b.ExtractFrame), nil
	})
}
