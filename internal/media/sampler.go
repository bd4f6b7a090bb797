package media

import (
	"errors"
	"fmt"

	"github.com/kikiluvv/vidlens/pkg/util"
	"github.com/nfnt/resize"
	"github.com/rs/zerolog"
)

const (
	// MinSamples and MaxSamples bound the automatic sample count.
	MinSamples = 5
	MaxSamples = 20

	framesPerSample = 50
)

// SampleCount returns the number of frames to sample: clamp(total/50, 5, 20)
// unless override is positive.
func SampleCount(totalFrames, override int) int {
	if override > 0 {
		return override
	}
	n := totalFrames / framesPerSample
	if n < MinSamples {
		return MinSamples
	}
	if n > MaxSamples {
		return MaxSamples
	}
	return n
}

// Positions returns the frame indices i*total/n for i in [0, n). Indices that
// fall outside the stream or repeat the previous one are dropped, so the result
// is strictly increasing and may be shorter than n.
func Positions(total, n int) []int {
	if total <= 0 || n <= 0 {
		return nil
	}
	positions := make([]int, 0, n)
	for i := 0; i < n; i++ {
		pos := i * total / n
		if pos >= total {
			break
		}
		if len(positions) > 0 && pos <= positions[len(positions)-1] {
			continue
		}
		positions = append(positions, pos)
	}
	return positions
}

// SamplerOptions tunes sampling
type SamplerOptions struct {
	// SampleCount overrides the automatic sample count when positive.
	SampleCount int
	// MaxWidth downscales wider frames before they are handed out. 0 keeps native size.
	MaxWidth int
}

// Sampler yields evenly spaced frames from a Source. It is a lazy, finite,
// non-restartable sequence and owns the Source: Close releases it.
type Sampler struct {
	logger    zerolog.Logger
	src       Source
	info      StreamInfo
	opts      SamplerOptions
	positions []int
	next      int
	skipped   []int
	closed    bool
	err       error
}

// NewSampler plans sample positions for src
func NewSampler(logger zerolog.Logger, src Source, opts SamplerOptions) *Sampler {
	info := src.Info()
	n := SampleCount(info.FrameCount, opts.SampleCount)

	s := &Sampler{
		logger:    logger.With().Str("component", "sampler").Logger(),
		src:       src,
		info:      info,
		opts:      opts,
		positions: Positions(info.FrameCount, n),
	}

	s.logger.Debug().
		Int("total_frames", info.FrameCount).
		Int("requested", n).
		Ints("positions", s.positions).
		Msg("planned sample positions")

	return s
}

// Info returns the stream metadata of the underlying source
func (s *Sampler) Info() StreamInfo {
	return s.info
}

// Planned returns how many positions will be attempted
func (s *Sampler) Planned() int {
	return len(s.positions)
}

// Skipped returns the indices that failed to decode
func (s *Sampler) Skipped() []int {
	return s.skipped
}

// Err reports why sampling stopped early. It is non-nil when the source was
// closed underneath the sampler; closing the sampler itself is not an error.
func (s *Sampler) Err() error {
	return s.err
}

// Next decodes the next planned frame. Positions that fail to decode are
// logged and skipped. It returns false once the plan is exhausted or the
// sampler is closed. A source closed by someone else also ends the sequence
// and is reported by Err.
func (s *Sampler) Next() (Frame, bool) {
	for !s.closed && s.next < len(s.positions) {
		index := s.positions[s.next]
		s.next++

		if err := s.src.Seek(index); err != nil {
			if s.skip(index, err) {
				return Frame{}, false
			}
			continue
		}

		img, err := s.src.ReadFrame()
		if err != nil {
			if s.skip(index, err) {
				return Frame{}, false
			}
			continue
		}

		if s.opts.MaxWidth > 0 && img.Bounds().Dx() > s.opts.MaxWidth {
			img = resize.Resize(uint(s.opts.MaxWidth), 0, img, resize.Bilinear)
		}

		return Frame{
			Index:     index,
			Timestamp: util.FrameTimestamp(index, s.info.FPS),
			Image:     img,
		}, true
	}
	return Frame{}, false
}

// skip records a failed index and reports whether sampling must stop
func (s *Sampler) skip(index int, err error) bool {
	if errors.Is(err, ErrSourceClosed) {
		s.logger.Debug().Int("index", index).Msg("source closed, stopping sampler")
		s.next = len(s.positions)
		if !s.closed {
			s.err = fmt.Errorf("sampling stopped at frame %d: %w", index, ErrSourceClosed)
		}
		return true
	}
	s.skipped = append(s.skipped, index)
	s.logger.Warn().Err(err).Int("index", index).Msg("frame decode failed, skipping")
	return false
}

// Close releases the underlying source. It is safe to call more than once.
func (s *Sampler) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.src.Close()
}

// Collect drains the sampler. It fails with ErrSourceClosed when the source
// was closed mid-run and with ErrInsufficientSamples when no frame decoded.
func (s *Sampler) Collect() ([]Frame, error) {
	frames := make([]Frame, 0, len(s.positions))
	for {
		frame, ok := s.Next()
		if !ok {
			break
		}
		frames = append(frames, frame)
	}
	if s.err != nil {
		return nil, s.err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: %d positions planned, %d skipped",
			ErrInsufficientSamples, len(s.positions), len(s.skipped))
	}
	return frames, nil
}
