package analysis

import (
	"fmt"
	"image/color"
	"math"
	"sort"

	"github.com/kikiluvv/vidlens/internal/media"
)

// Motion level labels
const (
	MotionMinimal  = "minimal/static"
	MotionModerate = "moderate"
	MotionActive   = "active/dynamic"
	MotionHigh     = "high-motion/fast-paced"
)

// Brightness labels
const (
	BrightnessDark     = "dark/low-light"
	BrightnessBright   = "bright/high-key"
	BrightnessBalanced = "well-balanced"
)

// Color variety labels
const (
	ColorMonochromatic = "monochromatic"
	ColorLimited       = "limited palette"
	ColorModerate      = "moderate variety"
	ColorRich          = "rich/diverse colors"
)

// Content type labels
const (
	ContentTutorial      = "tutorial/presentation"
	ContentEntertainment = "dynamic/entertainment"
	ContentTalkingHead   = "talking-head/interview"
	ContentDocumentary   = "documentary/narrative"
	ContentGeneral       = "general content"
)

// Visual complexity labels
const (
	ComplexityHigh     = "high complexity"
	ComplexityModerate = "moderate complexity"
	ComplexitySimple   = "simple/clean"
)

// SceneChangeThreshold is the motion score above which a sample pair counts
// as a scene change.
const SceneChangeThreshold = 10.0

const dominantColorCount = 3

// BrightnessSummary aggregates per-frame brightness
type BrightnessSummary struct {
	Mean   float64
	StdDev float64
	Label  string
}

// ContentAnalysis is the aggregate description of a video. Every label is a
// pure function of the numeric fields.
type ContentAnalysis struct {
	Samples          int
	SceneChanges     int
	MeanMotion       float64
	MotionLevel      string
	Brightness       BrightnessSummary
	ColorFraction    float64
	ColorVariety     string
	VisualComplexity string
	ContentType      string
	TextPresent      bool
	DominantColors   []color.RGBA
}

// MotionLevel labels a mean motion score
func MotionLevel(mean float64) string {
	switch {
	case mean < 5:
		return MotionMinimal
	case mean < 15:
		return MotionModerate
	case mean < 30:
		return MotionActive
	default:
		return MotionHigh
	}
}

// BrightnessLabel labels a mean luma value
func BrightnessLabel(mean float64) string {
	switch {
	case mean < 80:
		return BrightnessDark
	case mean > 180:
		return BrightnessBright
	default:
		return BrightnessBalanced
	}
}

// ColorVariety labels the fraction of occupied histogram buckets
func ColorVariety(fraction float64) string {
	switch {
	case fraction < 0.1:
		return ColorMonochromatic
	case fraction < 0.3:
		return ColorLimited
	case fraction < 0.6:
		return ColorModerate
	default:
		return ColorRich
	}
}

// ContentType picks the first matching content rule
func ContentType(textPresent bool, meanMotion float64, sceneChanges int) string {
	switch {
	case textPresent && meanMotion < 10:
		return ContentTutorial
	case sceneChanges > 5 && meanMotion > 20:
		return ContentEntertainment
	case meanMotion < 5:
		return ContentTalkingHead
	case sceneChanges > 3:
		return ContentDocumentary
	default:
		return ContentGeneral
	}
}

// VisualComplexity scores color variety, motion and cuts
func VisualComplexity(colorVariety string, meanMotion float64, sceneChanges int) string {
	score := 0
	if colorVariety == ColorRich || colorVariety == ColorModerate {
		score += 2
	}
	if meanMotion > 15 {
		score += 2
	}
	if sceneChanges > 3 {
		score += 2
	}

	switch {
	case score >= 4:
		return ComplexityHigh
	case score >= 2:
		return ComplexityModerate
	default:
		return ComplexitySimple
	}
}

// Classify aggregates frame signals into a ContentAnalysis. Color variety and
// dominant colors come from the first sampled frame.
func Classify(signals []FrameSignals) (*ContentAnalysis, error) {
	if len(signals) == 0 {
		return nil, fmt.Errorf("classify: %w", media.ErrInsufficientSamples)
	}

	brightness := make([]float64, len(signals))
	textPresent := false
	for i := range signals {
		brightness[i] = signals[i].Brightness
		if signals[i].TextPresent() {
			textPresent = true
		}
	}

	motion := MotionScores(signals)
	sceneChanges := 0
	for _, m := range motion {
		if m > SceneChangeThreshold {
			sceneChanges++
		}
	}
	meanMotion, _ := meanStd(motion)

	meanBrightness, stdBrightness := meanStd(brightness)
	fraction := signals[0].Histogram.NonZeroFraction()
	variety := ColorVariety(fraction)

	return &ContentAnalysis{
		Samples:      len(signals),
		SceneChanges: sceneChanges,
		MeanMotion:   meanMotion,
		MotionLevel:  MotionLevel(meanMotion),
		Brightness: BrightnessSummary{
			Mean:   meanBrightness,
			StdDev: stdBrightness,
			Label:  BrightnessLabel(meanBrightness),
		},
		ColorFraction:    fraction,
		ColorVariety:     variety,
		VisualComplexity: VisualComplexity(variety, meanMotion, sceneChanges),
		ContentType:      ContentType(textPresent, meanMotion, sceneChanges),
		TextPresent:      textPresent,
		DominantColors:   DominantColors(&signals[0].Histogram),
	}, nil
}

// DominantColors maps the most populated buckets back to representative
// colors, most populated first. Empty buckets are never returned.
func DominantColors(h *Histogram) []color.RGBA {
	idx := make([]int, 0, HistogramSize)
	for i, c := range h {
		if c > 0 {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return h[idx[a]] > h[idx[b]]
	})
	if len(idx) > dominantColorCount {
		idx = idx[:dominantColorCount]
	}

	colors := make([]color.RGBA, 0, len(idx))
	for _, i := range idx {
		colors = append(colors, color.RGBA{
			R: uint8(i / 64 * 32),
			G: uint8(i % 64 / 8 * 32),
			B: uint8(i % 8 * 32),
			A: 255,
		})
	}
	return colors
}

// meanStd returns the mean and population standard deviation, 0 for empty input
func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}
