package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/vidlens/internal/media"
)

// Config tunes an analysis run
type Config struct {
	// SampleCount overrides the automatic clamp(total/50, 5, 20) rule when positive
	SampleCount int
	// MaxWidth downscales frames before signal extraction. 0 keeps native size.
	MaxWidth int
}

// Result is everything one analysis call produces
type Result struct {
	Info     media.StreamInfo
	Analysis *ContentAnalysis
	// Thumbnail is the best frame for a cover image, nil when none was chosen
	Thumbnail *media.Frame
	Skipped   []int
	Elapsed   time.Duration
}

// Analyzer runs sample, extract and classify as one blocking call
type Analyzer struct {
	logger zerolog.Logger
	config Config
}

// NewAnalyzer creates an analyzer
func NewAnalyzer(logger zerolog.Logger, cfg Config) *Analyzer {
	return &Analyzer{
		logger: logger.With().Str("component", "analyzer").Logger(),
		config: cfg,
	}
}

// Analyze consumes src and always closes it. Cancelling ctx closes the source,
// which makes an in-flight decode fail fast.
func (a *Analyzer) Analyze(ctx context.Context, src media.Source) (*Result, error) {
	start := time.Now()

	sampler := media.NewSampler(a.logger, src, media.SamplerOptions{
		SampleCount: a.config.SampleCount,
		MaxWidth:    a.config.MaxWidth,
	})
	defer sampler.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = src.Close()
	})
	defer stop()

	info := sampler.Info()
	a.logger.Info().
		Str("source", info.Path).
		Int("frames", info.FrameCount).
		Int("planned", sampler.Planned()).
		Str("edges", EdgeBackend).
		Msg("starting analysis")

	extractor := NewExtractor()
	frames := make([]media.Frame, 0, sampler.Planned())
	signals := make([]FrameSignals, 0, sampler.Planned())
	for {
		frame, ok := sampler.Next()
		if !ok {
			break
		}
		frames = append(frames, frame)
		signals = append(signals, extractor.Frame(frame))
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis cancelled: %w", err)
	}
	if err := sampler.Err(); err != nil {
		return nil, fmt.Errorf("analysis aborted: %w", err)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: %d positions planned, %d skipped",
			media.ErrInsufficientSamples, sampler.Planned(), len(sampler.Skipped()))
	}

	analysis, err := Classify(signals)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Info:     info,
		Analysis: analysis,
		Skipped:  sampler.Skipped(),
	}

	if thumb, err := selectFromSignals(frames, signals); err == nil {
		result.Thumbnail = &thumb
	} else {
		a.logger.Warn().Err(err).Msg("no thumbnail frame selected")
	}

	result.Elapsed = time.Since(start)

	a.logger.Info().
		Int("samples", analysis.Samples).
		Int("skipped", len(result.Skipped)).
		Float64("mean_motion", analysis.MeanMotion).
		Int("scene_changes", analysis.SceneChanges).
		Str("content_type", analysis.ContentType).
		Str("complexity", analysis.VisualComplexity).
		Dur("elapsed", result.Elapsed).
		Msg("analysis complete")

	return result, nil
}
