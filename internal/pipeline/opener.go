package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/vidlens/internal/analysis"
	"github.com/kikiluvv/vidlens/internal/config"
	"github.com/kikiluvv/vidlens/internal/ffmpeg"
	"github.com/kikiluvv/vidlens/internal/media"
	"github.com/kikiluvv/vidlens/internal/thumbnail"
	"github.com/kikiluvv/vidlens/pkg/util"
)

// NewFromConfig builds a pipeline whose opener and settings come from the
// application config.
func NewFromConfig(logger zerolog.Logger, appCfg *config.Config, opts ...Option) (*Pipeline, error) {
	if appCfg == nil {
		appCfg = config.Default()
	}

	background, err := appCfg.Thumbnail.BackgroundColor()
	if err != nil {
		return nil, err
	}

	opener, err := NewOpener(logger, appCfg)
	if err != nil {
		return nil, err
	}

	cfg := Config{
		Analysis: analysis.Config{
			SampleCount: appCfg.Analysis.SampleCount,
			MaxWidth:    appCfg.Analysis.MaxWidth,
		},
		Thumbnail: thumbnail.Options{
			Width:       appCfg.Thumbnail.Width,
			Height:      appCfg.Thumbnail.Height,
			JPEGQuality: appCfg.Thumbnail.JPEGQuality,
			Background:  background,
		},
		Temperature:     appCfg.Generation.Temperature,
		Context:         appCfg.Generation.Context,
		MetricsTextfile: appCfg.Metrics.Textfile,
	}

	return New(logger, cfg, opener, opts...), nil
}

// NewOpener returns an opener that reads directories of still frames
// directly and hands everything else to the configured ffmpeg backend.
// A missing ffmpeg binary only fails video inputs.
func NewOpener(logger zerolog.Logger, appCfg *config.Config) (media.Opener, error) {
	ffCfg := ffmpeg.Config{
		BinaryPath: appCfg.FFmpeg.BinaryPath,
		ProbePath:  appCfg.FFmpeg.ProbePath,
		Threads:    appCfg.FFmpeg.Threads,
	}
	srcOpts := ffmpeg.SourceOptions{MaxWidth: appCfg.Analysis.MaxWidth}

	var video media.Opener
	switch appCfg.FFmpeg.Backend {
	case config.BackendExec, "":
		exec, err := ffmpeg.New(logger, ffCfg)
		if err != nil {
			logger.Warn().Err(err).Msg("ffmpeg unavailable, only image directories can be analyzed")
			video = unavailable(err)
		} else {
			video = ffmpeg.NewOpener(logger, exec, srcOpts)
		}
	case config.BackendFFmpegGo:
		video = ffmpeg.NewGoBackend(logger, ffCfg).Opener(srcOpts)
	default:
		return nil, fmt.Errorf("unknown ffmpeg backend %q", appCfg.FFmpeg.Backend)
	}

	fps := appCfg.Analysis.ImageFPS
	return media.OpenerFunc(func(ctx context.Context, path string) (media.Source, error) {
		if util.IsDir(path) {
			src, err := media.OpenImageDir(path, fps)
			if err != nil {
				return nil, err
			}
			return src, nil
		}
		return video.Open(ctx, path)
	}), nil
}

func unavailable(cause error) media.Opener {
	return media.OpenerFunc(func(ctx context.Context, path string) (media.Source, error) {
		return nil, media.Unreadable(path, cause)
	})
}
