package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/vidlens/internal/analysis"
	"github.com/kikiluvv/vidlens/internal/media"
	"github.com/kikiluvv/vidlens/internal/metrics"
	"github.com/kikiluvv/vidlens/internal/prompt"
	"github.com/kikiluvv/vidlens/internal/thumbnail"
	"github.com/kikiluvv/vidlens/pkg/util"
)

// ErrNoGenerator is returned by Publish when no MetadataGenerator is set
var ErrNoGenerator = errors.New("no metadata generator configured")

// Pipeline orchestrates one video: open, analyze, prompt, generate,
// thumbnail and upload.
type Pipeline struct {
	logger     zerolog.Logger
	config     Config
	opener     media.Opener
	compositor *thumbnail.Compositor
	metrics    *metrics.Metrics
	generator  MetadataGenerator
	uploader   Uploader
}

// Option customises a Pipeline
type Option func(*Pipeline)

// WithGenerator sets the metadata generator used by Publish
func WithGenerator(g MetadataGenerator) Option {
	return func(p *Pipeline) { p.generator = g }
}

// WithUploader sets the uploader used by Publish
func WithUploader(u Uploader) Option {
	return func(p *Pipeline) { p.uploader = u }
}

// WithMetrics replaces the pipeline's metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New creates a new pipeline instance
func New(logger zerolog.Logger, cfg Config, opener media.Opener, opts ...Option) *Pipeline {
	p := &Pipeline{
		logger:     logger.With().Str("component", "pipeline").Logger(),
		config:     cfg,
		opener:     opener,
		compositor: thumbnail.New(logger, cfg.Thumbnail),
		metrics:    metrics.New(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Metrics returns the pipeline's metrics
func (p *Pipeline) Metrics() *metrics.Metrics {
	return p.metrics
}

// Close flushes metrics
func (p *Pipeline) Close() error {
	return p.flushMetrics()
}

// Analyze runs sample, extract and classify on one video and renders the prompt
func (p *Pipeline) Analyze(ctx context.Context, path string, opts AnalyzeOptions) (*Report, error) {
	p.logger.Info().Str("input", path).Msg("starting analysis pipeline")

	report, err := p.analyze(ctx, path, opts)
	p.observe(report, err)
	if ferr := p.flushMetrics(); ferr != nil {
		p.logger.Warn().Err(ferr).Msg("metrics textfile not written")
	}
	if err != nil {
		return nil, err
	}

	p.logger.Info().
		Str("report", report.ID).
		Str("content_type", report.Analysis.ContentType).
		Dur("elapsed", report.Elapsed).
		Msg("analysis pipeline complete")

	return report, nil
}

func (p *Pipeline) analyze(ctx context.Context, path string, opts AnalyzeOptions) (*Report, error) {
	if path == "" {
		return nil, media.Unreadable(path, errors.New("input path cannot be empty"))
	}

	src, err := p.opener.Open(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, media.ErrSourceUnreadable) {
			err = media.Unreadable(path, err)
		}
		return nil, err
	}

	cfg := p.config.Analysis
	if opts.SampleCount > 0 {
		cfg.SampleCount = opts.SampleCount
	}
	if opts.MaxWidth > 0 {
		cfg.MaxWidth = opts.MaxWidth
	}

	result, err := analysis.NewAnalyzer(p.logger, cfg).Analyze(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", path, err)
	}

	extra := strings.TrimSpace(strings.Join([]string{p.config.Context, opts.Context}, " "))
	info := result.Info

	return &Report{
		ID:        uuid.NewString(),
		Path:      path,
		Info:      info,
		Analysis:  result.Analysis,
		Prompt:    prompt.Format(&info, result.Analysis, extra),
		Thumbnail: result.Thumbnail,
		Skipped:   result.Skipped,
		Elapsed:   result.Elapsed,
		CreatedAt: time.Now(),
	}, nil
}

// Publish analyzes a video, generates metadata from the prompt, writes a
// thumbnail and hands everything to the uploader if one is configured.
func (p *Pipeline) Publish(ctx context.Context, path string, opts PublishOptions) (*PublishResult, error) {
	if p.generator == nil {
		return nil, ErrNoGenerator
	}

	report, err := p.Analyze(ctx, path, opts.AnalyzeOptions)
	if err != nil {
		return nil, err
	}

	meta, err := p.generator.Generate(ctx, GenerateRequest{
		Prompt:      report.Prompt,
		Temperature: p.config.Temperature,
		Context:     strings.TrimSpace(opts.Context),
	})
	if err != nil {
		return nil, fmt.Errorf("generate metadata: %w", err)
	}

	title := meta.Title
	if opts.Title != "" {
		title = opts.Title
	}

	thumbPath := opts.ThumbnailPath
	if thumbPath == "" {
		thumbPath = DefaultThumbnailPath(path)
	}

	textOnly, err := p.writeThumbnail(report, title, thumbPath)
	if err != nil {
		return nil, err
	}

	result := &PublishResult{
		Report:        report,
		Metadata:      meta,
		ThumbnailPath: thumbPath,
		TextOnly:      textOnly,
	}

	if p.uploader == nil {
		p.logger.Info().Str("thumbnail", thumbPath).Msg("no uploader configured, skipping upload")
		return result, nil
	}

	id, err := p.uploader.Upload(ctx, UploadRequest{
		VideoPath:     path,
		ThumbnailPath: thumbPath,
		Metadata:      *meta,
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", path, err)
	}
	result.VideoID = id

	p.logger.Info().
		Str("video_id", id).
		Str("title", meta.Title).
		Msg("publish complete")

	return result, nil
}

// Thumbnail renders and saves the cover image for a finished report
func (p *Pipeline) Thumbnail(report *Report, title, path string) (textOnly bool, err error) {
	return p.writeThumbnail(report, title, path)
}

// writeThumbnail composes from the selected frame, falling back to a
// text-only image when there is none.
func (p *Pipeline) writeThumbnail(report *Report, title, path string) (bool, error) {
	frame, err := selectedFrame(report)
	textOnly := errors.Is(err, analysis.ErrNoFramesAvailable)

	if textOnly {
		p.logger.Warn().Str("output", path).Msg("no thumbnail frame, using text-only fallback")
		if err := p.compositor.SaveJPEG(p.compositor.TextOnly(title), path); err != nil {
			return true, err
		}
		p.metrics.ObserveThumbnail(metrics.ThumbnailTextOnly)
		return true, nil
	}

	composed, err := p.compositor.Compose(frame.Image, title)
	if err != nil {
		return false, fmt.Errorf("compose thumbnail: %w", err)
	}
	if err := p.compositor.SaveJPEG(composed, path); err != nil {
		return false, err
	}
	p.metrics.ObserveThumbnail(metrics.ThumbnailFrame)
	return false, nil
}

func selectedFrame(report *Report) (media.Frame, error) {
	if report == nil || report.Thumbnail == nil || report.Thumbnail.Image == nil {
		return media.Frame{}, analysis.ErrNoFramesAvailable
	}
	return *report.Thumbnail, nil
}

// Batch analyzes paths one after another. A failure is recorded and the loop
// continues; cancellation stops it and marks the remaining inputs.
func (p *Pipeline) Batch(ctx context.Context, paths []string, opts AnalyzeOptions) []BatchResult {
	results := make([]BatchResult, 0, len(paths))
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			for _, rest := range paths[i:] {
				results = append(results, BatchResult{Path: rest, Err: err})
			}
			break
		}

		report, err := p.Analyze(ctx, path, opts)
		if err != nil {
			p.logger.Error().Err(err).Str("input", path).Msg("analysis failed, continuing")
		}
		results = append(results, BatchResult{Path: path, Report: report, Err: err})
	}
	return results
}

// DefaultThumbnailPath places the thumbnail beside the input
func DefaultThumbnailPath(input string) string {
	clean := filepath.Clean(input)
	return filepath.Join(filepath.Dir(clean), util.BaseName(clean)+"_thumbnail.jpg")
}

func (p *Pipeline) observe(report *Report, err error) {
	run := metrics.Run{Outcome: outcome(err)}
	if report != nil {
		run.Samples = report.Analysis.Samples
		run.Skipped = len(report.Skipped)
		run.Duration = report.Elapsed
		run.ContentType = report.Analysis.ContentType
	}
	p.metrics.ObserveRun(run)
}

func (p *Pipeline) flushMetrics() error {
	if p.config.MetricsTextfile == "" {
		return nil
	}
	if err := util.EnsureDir(filepath.Dir(p.config.MetricsTextfile)); err != nil {
		return err
	}
	return p.metrics.WriteTextfile(p.config.MetricsTextfile)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, media.ErrSourceClosed):
		return metrics.OutcomeCancelled
	case errors.Is(err, media.ErrSourceUnreadable):
		return metrics.OutcomeUnreadable
	case errors.Is(err, media.ErrInsufficientSamples):
		return metrics.OutcomeInsufficient
	default:
		return metrics.OutcomeError
	}
}
