package config

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Backends accepted in ffmpeg.backend
const (
	BackendExec     = "exec"
	BackendFFmpegGo = "ffmpeg-go"
)

// Config holds all application configuration
type Config struct {
	Analysis   AnalysisConfig   `yaml:"analysis"`
	FFmpeg     FFmpegConfig     `yaml:"ffmpeg"`
	Thumbnail  ThumbnailConfig  `yaml:"thumbnail"`
	Generation GenerationConfig `yaml:"generation"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type AnalysisConfig struct {
	// SampleCount of 0 uses clamp(total_frames/50, 5, 20)
	SampleCount int `yaml:"sample_count"`
	MaxWidth    int `yaml:"max_width"`
	// ImageFPS is the playback rate assumed for image-directory sources
	ImageFPS float64 `yaml:"image_fps"`
}

type FFmpegConfig struct {
	Backend    string `yaml:"backend"`
	BinaryPath string `yaml:"binary_path"`
	ProbePath  string `yaml:"probe_path"`
	Threads    int    `yaml:"threads"`
}

type ThumbnailConfig struct {
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	JPEGQuality int    `yaml:"jpeg_quality"`
	Background  string `yaml:"background"`
}

type GenerationConfig struct {
	Temperature float64 `yaml:"temperature"`
	Context     string  `yaml:"context"`
}

type MetricsConfig struct {
	// Textfile is a node-exporter textfile path; empty disables metrics output
	Textfile string `yaml:"textfile"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.Analysis.SampleCount < 0 {
		return fmt.Errorf("analysis.sample_count must not be negative")
	}
	if c.Analysis.MaxWidth < 0 {
		return fmt.Errorf("analysis.max_width must not be negative")
	}
	if c.Analysis.ImageFPS <= 0 {
		return fmt.Errorf("analysis.image_fps must be positive")
	}
	switch c.FFmpeg.Backend {
	case BackendExec, BackendFFmpegGo:
	default:
		return fmt.Errorf("ffmpeg.backend must be %q or %q, got %q", BackendExec, BackendFFmpegGo, c.FFmpeg.Backend)
	}
	if c.Thumbnail.JPEGQuality < 1 || c.Thumbnail.JPEGQuality > 100 {
		return fmt.Errorf("thumbnail.jpeg_quality must be within 1-100")
	}
	if _, err := c.Thumbnail.BackgroundColor(); err != nil {
		return err
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		return fmt.Errorf("generation.temperature must be within 0-2")
	}
	return nil
}

// BackgroundColor parses Background as #rrggbb
func (t ThumbnailConfig) BackgroundColor() (color.NRGBA, error) {
	var r, g, b uint8
	s := strings.TrimPrefix(t.Background, "#")
	if len(s) != 6 {
		return color.NRGBA{}, fmt.Errorf("thumbnail.background %q is not #rrggbb", t.Background)
	}
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.NRGBA{}, fmt.Errorf("thumbnail.background %q: %w", t.Background, err)
	}
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

func defaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			SampleCount: 0,
			MaxWidth:    640,
			ImageFPS:    30,
		},
		FFmpeg: FFmpegConfig{
			Backend:    BackendExec,
			BinaryPath: "ffmpeg",
			ProbePath:  "ffprobe",
			Threads:    0,
		},
		Thumbnail: ThumbnailConfig{
			Width:       1280,
			Height:      720,
			JPEGQuality: 95,
			Background:  "#2980b9",
		},
		Generation: GenerationConfig{
			Temperature: 0.7,
		},
	}
}

// Default returns the built-in configuration
func Default() *Config {
	return defaultConfig()
}

func findConfigFile() string {
	candidates := []string{
		"./vidlens.yaml",
		"./config.yaml",
		filepath.Join(os.Getenv("HOME"), ".vidlens", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
