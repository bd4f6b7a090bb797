package pipeline

import (
	"context"
	"time"

	"github.com/kikiluvv/vidlens/internal/analysis"
	"github.com/kikiluvv/vidlens/internal/media"
	"github.com/kikiluvv/vidlens/internal/thumbnail"
)

// Report is the output of one analysis call
type Report struct {
	ID        string
	Path      string
	Info      media.StreamInfo
	Analysis  *analysis.ContentAnalysis
	Prompt    string
	Thumbnail *media.Frame
	Skipped   []int
	Elapsed   time.Duration
	CreatedAt time.Time
}

// AnalyzeOptions overrides configuration for a single call
type AnalyzeOptions struct {
	// SampleCount and MaxWidth override the pipeline config when positive
	SampleCount int
	MaxWidth    int
	// Context is free text appended to the prompt
	Context string
}

// PublishOptions configures Publish
type PublishOptions struct {
	AnalyzeOptions
	// ThumbnailPath is where the JPEG goes; empty writes next to the video
	ThumbnailPath string
	// Title replaces the generated title on the thumbnail when set
	Title string
}

// GenerateRequest is what a metadata generator receives
type GenerateRequest struct {
	Prompt      string
	Temperature float64
	Context     string
}

// Metadata is generated upload metadata
type Metadata struct {
	Title       string
	Description string
	Tags        []string
}

// MetadataGenerator turns an analysis prompt into upload metadata, usually
// by calling a language model.
type MetadataGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Metadata, error)
}

// UploadRequest describes one upload
type UploadRequest struct {
	VideoPath     string
	ThumbnailPath string
	Metadata      Metadata
}

// Uploader publishes a video and returns the remote identifier
type Uploader interface {
	Upload(ctx context.Context, req UploadRequest) (string, error)
}

// PublishResult is the output of Publish
type PublishResult struct {
	Report        *Report
	Metadata      *Metadata
	ThumbnailPath string
	// TextOnly is set when no frame was available and the fallback was used
	TextOnly bool
	// VideoID is empty when no uploader is configured
	VideoID string
}

// BatchResult pairs an input with its outcome
type BatchResult struct {
	Path   string
	Report *Report
	Err    error
}

// Config holds pipeline-specific configuration
type Config struct {
	Analysis    analysis.Config
	Thumbnail   thumbnail.Options
	Temperature float64
	// Context is the default free text appended to every prompt
	Context string
	// MetricsTextfile receives the metrics after every run when set
	MetricsTextfile string
}
