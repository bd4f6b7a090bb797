// Package analysis reduces sampled frames to numeric signals and classifies
// them into a content description.
package analysis

import (
	"fmt"
	"image"
	"math"
	"time"

	"github.com/kikiluvv/vidlens/internal/media"
)

const (
	// HistogramBins is the number of buckets per color channel
	HistogramBins = 8
	// HistogramSize is the length of the flattened joint histogram
	HistogramSize = HistogramBins * HistogramBins * HistogramBins

	// TextEdgeRatio is the edge density above which a frame is treated as
	// carrying text or graphics.
	TextEdgeRatio = 10.0 / 255.0

	cannyLow  = 50
	cannyHigh = 150
)

// Histogram is a joint RGB histogram indexed r*64 + g*8 + b
type Histogram [HistogramSize]int

// NonZeroFraction returns the share of buckets with at least one pixel
func (h *Histogram) NonZeroFraction() float64 {
	nonZero := 0
	for _, c := range h {
		if c > 0 {
			nonZero++
		}
	}
	return float64(nonZero) / float64(HistogramSize)
}

// FrameSignals holds the numeric reduction of one sampled frame
type FrameSignals struct {
	Index      int
	Timestamp  time.Duration
	Brightness float64 // mean luma, 0-255
	Contrast   float64 // population std of luma
	// Motion is the mean absolute luma difference to the previous sampled
	// frame. HasMotion is false for the first frame.
	Motion      float64
	HasMotion   bool
	Histogram   Histogram
	EdgeDensity float64
}

// TextPresent reports whether the frame's edge density suggests text
func (s *FrameSignals) TextPresent() bool {
	return s.EdgeDensity > TextEdgeRatio
}

// Extractor turns a frame sequence into signals. It keeps the luma plane of
// the previous frame for motion scoring.
type Extractor struct {
	prev *lumaPlane
}

// NewExtractor creates an extractor with no previous frame
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Frame computes the signals for f relative to the previously seen frame
func (e *Extractor) Frame(f media.Frame) FrameSignals {
	luma := newLumaPlane(f.Image)
	mean, std := luma.stats()

	sig := FrameSignals{
		Index:       f.Index,
		Timestamp:   f.Timestamp,
		Brightness:  mean,
		Contrast:    std,
		Histogram:   colorHistogram(f.Image),
		EdgeDensity: edgeDensity(luma),
	}

	if e.prev != nil {
		sig.Motion = meanAbsDiff(e.prev, luma)
		sig.HasMotion = true
	}
	e.prev = luma

	return sig
}

// Extract computes signals for every frame in order
func Extract(frames []media.Frame) ([]FrameSignals, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("extract signals: %w", media.ErrInsufficientSamples)
	}
	e := NewExtractor()
	signals := make([]FrameSignals, 0, len(frames))
	for _, f := range frames {
		signals = append(signals, e.Frame(f))
	}
	return signals, nil
}

// MotionScores returns the inter-sample motion values, one fewer than signals
func MotionScores(signals []FrameSignals) []float64 {
	scores := make([]float64, 0, len(signals))
	for _, s := range signals {
		if s.HasMotion {
			scores = append(scores, s.Motion)
		}
	}
	return scores
}

// lumaPlane is an 8-bit grayscale copy of an image
type lumaPlane struct {
	w, h int
	pix  []uint8
}

func newLumaPlane(img image.Image) *lumaPlane {
	b := img.Bounds()
	p := &lumaPlane{w: b.Dx(), h: b.Dy(), pix: make([]uint8, b.Dx()*b.Dy())}
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			p.pix[i] = luma(uint8(r>>8), uint8(g>>8), uint8(bl>>8))
			i++
		}
	}
	return p
}

// luma is the BT.601 weighting, rounded to the nearest level
func luma(r, g, b uint8) uint8 {
	return uint8(math.Round(0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)))
}

func (p *lumaPlane) at(x, y int) int {
	if x < 0 {
		x = 0
	} else if x >= p.w {
		x = p.w - 1
	}
	if y < 0 {
		y = 0
	} else if y >= p.h {
		y = p.h - 1
	}
	return int(p.pix[y*p.w+x])
}

// stats returns mean and population standard deviation
func (p *lumaPlane) stats() (float64, float64) {
	if len(p.pix) == 0 {
		return 0, 0
	}
	var sum, sumSq float64
	for _, v := range p.pix {
		f := float64(v)
		sum += f
		sumSq += f * f
	}
	n := float64(len(p.pix))
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}

// meanAbsDiff compares the overlapping region of two planes
func meanAbsDiff(a, b *lumaPlane) float64 {
	w, h := min(a.w, b.w), min(a.h, b.h)
	if w == 0 || h == 0 {
		return 0
	}
	var sum int64
	for y := 0; y < h; y++ {
		ra := a.pix[y*a.w : y*a.w+w]
		rb := b.pix[y*b.w : y*b.w+w]
		for x := range ra {
			d := int64(ra[x]) - int64(rb[x])
			if d < 0 {
				d = -d
			}
			sum += d
		}
	}
	return float64(sum) / float64(w*h)
}

// colorHistogram buckets every pixel into 8 levels per channel
func colorHistogram(img image.Image) Histogram {
	var h Histogram
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			h[histogramIndex(uint8(r>>8), uint8(g>>8), uint8(bl>>8))]++
		}
	}
	return h
}

func histogramIndex(r, g, b uint8) int {
	const shift = 5 // 256 / HistogramBins = 32
	return int(r>>shift)*HistogramBins*HistogramBins + int(g>>shift)*HistogramBins + int(b>>shift)
}
