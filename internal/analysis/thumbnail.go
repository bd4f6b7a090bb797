package analysis

import (
	"errors"
	"math"

	"github.com/kikiluvv/vidlens/internal/media"
)

// ErrNoFramesAvailable means thumbnail selection had nothing to choose from.
// Callers fall back to a text-only thumbnail.
var ErrNoFramesAvailable = errors.New("no frames available for thumbnail")

// ThumbnailScore favours contrasty frames with mid-range exposure
func ThumbnailScore(brightness, contrast float64) float64 {
	return contrast * (1 - math.Abs(brightness-128)/128)
}

// SelectThumbnail returns the highest scoring frame; ties go to the earliest
func SelectThumbnail(frames []media.Frame) (media.Frame, error) {
	if len(frames) == 0 {
		return media.Frame{}, ErrNoFramesAvailable
	}
	scores := make([]float64, len(frames))
	for i, f := range frames {
		mean, std := newLumaPlane(f.Image).stats()
		scores[i] = ThumbnailScore(mean, std)
	}
	return frames[bestScore(scores)], nil
}

// selectFromSignals picks a frame using already computed signals. frames and
// signals must be parallel.
func selectFromSignals(frames []media.Frame, signals []FrameSignals) (media.Frame, error) {
	if len(frames) == 0 || len(frames) != len(signals) {
		return media.Frame{}, ErrNoFramesAvailable
	}
	scores := make([]float64, len(signals))
	for i := range signals {
		scores[i] = ThumbnailScore(signals[i].Brightness, signals[i].Contrast)
	}
	return frames[bestScore(scores)], nil
}

func bestScore(scores []float64) int {
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return best
}
