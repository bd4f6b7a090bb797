package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/vidlens/internal/media"
	"github.com/kikiluvv/vidlens/pkg/util"
)

// decodeFunc decodes one frame of a file
type decodeFunc func(ctx context.Context, path string, opts FrameOptions) (image.Image, error)

// frameSource implements media.Source by seeking the decoder to each
// requested frame timestamp.
type frameSource struct {
	logger zerolog.Logger
	info   media.StreamInfo
	width  int
	decode decodeFunc

	ctx    context.Context
	cancel context.CancelFunc
	pos    int
}

func newFrameSource(logger zerolog.Logger, info media.StreamInfo, opts SourceOptions, decode decodeFunc) *frameSource {
	ctx, cancel := context.WithCancel(context.Background())
	return &frameSource{
		logger: logger,
		info:   info,
		width:  opts.MaxWidth,
		decode: decode,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *frameSource) Info() media.StreamInfo {
	return s.info
}

func (s *frameSource) Seek(index int) error {
	if s.ctx.Err() != nil {
		return media.ErrSourceClosed
	}
	if index < 0 || index >= s.info.FrameCount {
		return fmt.Errorf("frame index %d out of range [0,%d)", index, s.info.FrameCount)
	}
	s.pos = index
	return nil
}

func (s *frameSource) ReadFrame() (image.Image, error) {
	if s.ctx.Err() != nil {
		return nil, media.ErrSourceClosed
	}
	if s.pos >= s.info.FrameCount {
		return nil, fmt.Errorf("frame index %d past end of stream", s.pos)
	}

	opts := FrameOptions{
		Timestamp: util.FrameTimestamp(s.pos, s.info.FPS),
		Width:     s.width,
	}
	s.logger.Debug().
		Int("index", s.pos).
		Dur("timestamp", opts.Timestamp).
		Msg("decoding frame")

	img, err := s.decode(s.ctx, s.info.Path, opts)
	if err != nil {
		if s.ctx.Err() != nil {
			return nil, media.ErrSourceClosed
		}
		return nil, fmt.Errorf("frame %d: %w", s.pos, err)
	}
	s.pos++
	return img, nil
}

// Close cancels any in-flight decode
func (s *frameSource) Close() error {
	s.cancel()
	return nil
}

// NewOpener returns a media.Opener backed by the ffmpeg and ffprobe binaries
func NewOpener(logger zerolog.Logger, exec *Executor, opts SourceOptions) media.Opener {
	log := logger.With().Str("component", "ffmpeg-source").Logger()
	return media.OpenerFunc(func(ctx context.Context, path string) (media.Source, error) {
		if err := validateVideoFile(path); err != nil {
			return nil, media.Unreadable(path, err)
		}

		info, err := exec.ProbeVideo(ctx, path)
		if err != nil {
			return nil, media.Unreadable(path, err)
		}

		log.Debug().
			Str("path", path).
			Int("frames", info.FrameCount).
			Float64("fps", info.FPS).
			Int("width", info.Width).
			Int("height", info.Height).
			Msg("opened video source")

		return newFrameSource(log, info.StreamInfo(), opts, exec.ExtractFrame), nil
	})
}

// validateVideoFile rejects missing paths, directories and files whose
// content is recognisably something other than video.
func validateVideoFile(path string) error {
	if path == "" {
		return errors.New("path is required")
	}
	st, err := os.Stat(path)
	if err != nil {
		return err
	}
	if st.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("failed to detect content type: %w", err)
	}
	if !isVideoMIME(mtype) {
		return fmt.Errorf("unsupported content type %s", mtype.String())
	}
	return nil
}

// isVideoMIME accepts any video/* type and content mimetype cannot classify
func isVideoMIME(m *mimetype.MIME) bool {
	if m.Is("application/octet-stream") {
		return true
	}
	for ; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "video/") {
			return true
		}
	}
	return false
}
