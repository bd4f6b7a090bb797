package analysis

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/vidlens/internal/media"
)

func grayImage(v uint8, w, h int) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

// splitImage fills the left half with lo and the right half with hi
func splitImage(lo, hi uint8, w, h int) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := lo
			if x >= w/2 {
				v = hi
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

// stripeImage draws vertical black and white bands of the given width
func stripeImage(band, w, h int) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/band)%2 == 1 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func frames(imgs ...image.Image) []media.Frame {
	out := make([]media.Frame, len(imgs))
	for i, img := range imgs {
		out[i] = media.Frame{Index: i * 10, Image: img}
	}
	return out
}

func TestMotionLevelBoundaries(t *testing.T) {
	tests := []struct {
		mean float64
		want string
	}{
		{0, MotionMinimal},
		{4.999, MotionMinimal},
		{5.0, MotionModerate},
		{14.999, MotionModerate},
		{15.0, MotionActive},
		{29.999, MotionActive},
		{30.0, MotionHigh},
		{120, MotionHigh},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%g", tt.mean), func(t *testing.T) {
			if got := MotionLevel(tt.mean); got != tt.want {
				t.Errorf("MotionLevel(%g) = %q, want %q", tt.mean, got, tt.want)
			}
		})
	}
}

func TestBrightnessLabelBoundaries(t *testing.T) {
	tests := []struct {
		mean float64
		want string
	}{
		{0, BrightnessDark},
		{79.999, BrightnessDark},
		{80, BrightnessBalanced},
		{128, BrightnessBalanced},
		{180, BrightnessBalanced},
		{180.001, BrightnessBright},
		{255, BrightnessBright},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%g", tt.mean), func(t *testing.T) {
			if got := BrightnessLabel(tt.mean); got != tt.want {
				t.Errorf("BrightnessLabel(%g) = %q, want %q", tt.mean, got, tt.want)
			}
		})
	}
}

func TestColorVarietyBoundaries(t *testing.T) {
	tests := []struct {
		fraction float64
		want     string
	}{
		{0, ColorMonochromatic},
		{0.0999, ColorMonochromatic},
		{0.1, ColorLimited},
		{0.2999, ColorLimited},
		{0.3, ColorModerate},
		{0.5999, ColorModerate},
		{0.6, ColorRich},
		{1, ColorRich},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%g", tt.fraction), func(t *testing.T) {
			if got := ColorVariety(tt.fraction); got != tt.want {
				t.Errorf("ColorVariety(%g) = %q, want %q", tt.fraction, got, tt.want)
			}
		})
	}
}

func TestContentTypePriority(t *testing.T) {
	tests := []struct {
		name   string
		text   bool
		motion float64
		scenes int
		want   string
	}{
		{"text with low motion", true, 9.99, 10, ContentTutorial},
		{"text at motion 10 falls through", true, 10, 0, ContentGeneral},
		{"many cuts and fast", false, 20.01, 6, ContentEntertainment},
		{"motion exactly 20 is not entertainment", false, 20, 6, ContentDocumentary},
		{"five cuts is not entertainment", false, 25, 5, ContentDocumentary},
		{"static", false, 4.99, 0, ContentTalkingHead},
		{"static wins over cuts", false, 4.99, 9, ContentTalkingHead},
		{"motion 5 is not static", false, 5, 0, ContentGeneral},
		{"four cuts", false, 12, 4, ContentDocumentary},
		{"three cuts", false, 12, 3, ContentGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContentType(tt.text, tt.motion, tt.scenes); got != tt.want {
				t.Errorf("ContentType(%v, %g, %d) = %q, want %q", tt.text, tt.motion, tt.scenes, got, tt.want)
			}
		})
	}
}

func TestVisualComplexity(t *testing.T) {
	tests := []struct {
		name    string
		variety string
		motion  float64
		scenes  int
		want    string
	}{
		{"nothing", ColorMonochromatic, 0, 0, ComplexitySimple},
		{"limited palette scores zero", ColorLimited, 15, 3, ComplexitySimple},
		{"rich only", ColorRich, 0, 0, ComplexityModerate},
		{"moderate variety only", ColorModerate, 0, 0, ComplexityModerate},
		{"motion only", ColorMonochromatic, 15.01, 0, ComplexityModerate},
		{"cuts only", ColorMonochromatic, 0, 4, ComplexityModerate},
		{"motion and cuts", ColorMonochromatic, 16, 4, ComplexityHigh},
		{"all three", ColorRich, 40, 8, ComplexityHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VisualComplexity(tt.variety, tt.motion, tt.scenes); got != tt.want {
				t.Errorf("VisualComplexity = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifyEmpty(t *testing.T) {
	_, err := Classify(nil)
	if !errors.Is(err, media.ErrInsufficientSamples) {
		t.Fatalf("expected ErrInsufficientSamples, got %v", err)
	}
	if _, err := Extract(nil); !errors.Is(err, media.ErrInsufficientSamples) {
		t.Fatalf("expected ErrInsufficientSamples from Extract, got %v", err)
	}
}

func TestMotionScoresAndSceneChanges(t *testing.T) {
	signals, err := Extract(frames(
		grayImage(0, 32, 32),
		grayImage(100, 32, 32),
		grayImage(100, 32, 32),
		grayImage(108, 32, 32),
	))
	if err != nil {
		t.Fatal(err)
	}

	if signals[0].HasMotion {
		t.Error("first frame should have no motion score")
	}
	got := MotionScores(signals)
	want := []float64{100, 0, 8}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MotionScores = %v, want %v", got, want)
	}
	if len(got) != len(signals)-1 {
		t.Errorf("expected %d motion scores, got %d", len(signals)-1, len(got))
	}

	a, err := Classify(signals)
	if err != nil {
		t.Fatal(err)
	}
	if a.SceneChanges != 1 {
		t.Errorf("SceneChanges = %d, want 1", a.SceneChanges)
	}
	if a.MeanMotion != 36 {
		t.Errorf("MeanMotion = %g, want 36", a.MeanMotion)
	}
	if a.MotionLevel != MotionHigh {
		t.Errorf("MotionLevel = %q, want %q", a.MotionLevel, MotionHigh)
	}
}

func TestSingleFrameHasZeroMotion(t *testing.T) {
	signals, err := Extract(frames(grayImage(200, 16, 16)))
	if err != nil {
		t.Fatal(err)
	}
	a, err := Classify(signals)
	if err != nil {
		t.Fatal(err)
	}
	if a.MeanMotion != 0 || a.MotionLevel != MotionMinimal {
		t.Errorf("expected zero motion, got %g (%s)", a.MeanMotion, a.MotionLevel)
	}
	if a.Brightness.Label != BrightnessBright {
		t.Errorf("Brightness.Label = %q, want %q", a.Brightness.Label, BrightnessBright)
	}
	if a.Brightness.StdDev != 0 {
		t.Errorf("Brightness.StdDev = %g, want 0", a.Brightness.StdDev)
	}
}

func TestBrightnessSummary(t *testing.T) {
	signals, err := Extract(frames(grayImage(60, 8, 8), grayImage(100, 8, 8)))
	if err != nil {
		t.Fatal(err)
	}
	a, err := Classify(signals)
	if err != nil {
		t.Fatal(err)
	}
	if a.Brightness.Mean != 80 {
		t.Errorf("Mean = %g, want 80", a.Brightness.Mean)
	}
	if a.Brightness.StdDev != 20 {
		t.Errorf("StdDev = %g, want 20", a.Brightness.StdDev)
	}
	if a.Brightness.Label != BrightnessBalanced {
		t.Errorf("Label = %q, want %q", a.Brightness.Label, BrightnessBalanced)
	}
}

func TestHistogramAndDominantColors(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			c := color.RGBA{R: 255, A: 255}
			switch {
			case x >= 8:
				c = color.RGBA{B: 255, A: 255}
			case x >= 5:
				c = color.RGBA{G: 255, A: 255}
			}
			img.Set(x, y, c)
		}
	}

	h := colorHistogram(img)
	if got := h.NonZeroFraction(); got != 3.0/HistogramSize {
		t.Errorf("NonZeroFraction = %g, want %g", got, 3.0/HistogramSize)
	}
	if h[448] != 50 || h[56] != 30 || h[7] != 20 {
		t.Errorf("unexpected bucket counts r=%d g=%d b=%d", h[448], h[56], h[7])
	}

	got := DominantColors(&h)
	want := []color.RGBA{
		{R: 224, A: 255},
		{G: 224, A: 255},
		{B: 224, A: 255},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DominantColors = %v, want %v", got, want)
	}
}

func TestDominantColorsTieOrder(t *testing.T) {
	var h Histogram
	h[10] = 5
	h[3] = 5
	h[200] = 9
	h[400] = 1

	got := DominantColors(&h)
	if len(got) != 3 {
		t.Fatalf("expected 3 colors, got %d", len(got))
	}
	// 200 first, then the tied buckets by index
	want := []color.RGBA{
		{R: 96, G: 32, B: 0, A: 255},
		{R: 0, G: 0, B: 96, A: 255},
		{R: 0, G: 32, B: 64, A: 255},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DominantColors = %v, want %v", got, want)
	}
}

func TestEdgeDensity(t *testing.T) {
	flat := newLumaPlane(grayImage(128, 64, 64))
	if d := edgeDensity(flat); d != 0 {
		t.Errorf("uniform frame edge density = %g, want 0", d)
	}

	// 16 bands leave 15 boundaries, each thinned to a single column
	stripes := newLumaPlane(stripeImage(4, 64, 64))
	d := edgeDensity(stripes)
	if math.Abs(d-15.0/64.0) > 1e-9 {
		t.Errorf("stripe edge density = %g, want %g", d, 15.0/64.0)
	}
	if d <= TextEdgeRatio {
		t.Errorf("stripes should exceed the text edge ratio")
	}

	tiny := newLumaPlane(grayImage(0, 2, 2))
	if d := edgeDensity(tiny); d != 0 {
		t.Errorf("tiny frame edge density = %g, want 0", d)
	}
}

func TestIsLocalMax(t *testing.T) {
	tests := []struct {
		name    string
		dir     uint8
		m, a, b int
		want    bool
	}{
		{"horizontal peak", dirHorizontal, 300, 100, 100, true},
		{"horizontal plateau leading pixel", dirHorizontal, 300, 0, 300, true},
		{"horizontal plateau trailing pixel", dirHorizontal, 300, 300, 0, false},
		{"vertical plateau leading pixel", dirVertical, 300, 0, 300, true},
		{"vertical below neighbour", dirVertical, 200, 100, 300, false},
		{"diagonal peak", dirDiagonal, 300, 100, 100, true},
		{"diagonal plateau", dirDiagonal, 300, 0, 300, false},
		{"anti-diagonal plateau", dirAntiDiagonal, 300, 300, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isLocalMax(tt.dir, tt.m, tt.a, tt.b); got != tt.want {
				t.Errorf("isLocalMax(%d, %d, %d, %d) = %v, want %v", tt.dir, tt.m, tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestTextPresenceDrivesTutorial(t *testing.T) {
	signals, err := Extract(frames(grayImage(128, 64, 64), stripeImage(4, 64, 64)))
	if err != nil {
		t.Fatal(err)
	}
	a, err := Classify(signals)
	if err != nil {
		t.Fatal(err)
	}
	if !a.TextPresent {
		t.Fatal("expected text presence from striped frame")
	}
	if a.ContentType == ContentTutorial {
		t.Errorf("high motion should rule out %q", ContentTutorial)
	}

	single, err := Extract(frames(stripeImage(4, 64, 64)))
	if err != nil {
		t.Fatal(err)
	}
	a, err = Classify(single)
	if err != nil {
		t.Fatal(err)
	}
	if a.ContentType != ContentTutorial {
		t.Errorf("ContentType = %q, want %q", a.ContentType, ContentTutorial)
	}
}

func TestClassifyIdempotent(t *testing.T) {
	signals, err := Extract(frames(
		stripeImage(3, 48, 32),
		splitImage(20, 220, 48, 32),
		grayImage(90, 48, 32),
		splitImage(200, 10, 48, 32),
	))
	if err != nil {
		t.Fatal(err)
	}

	first, err := Classify(signals)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Classify(signals)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Classify is not deterministic:\n%+v\n%+v", first, second)
	}
	if fmt.Sprintf("%#v", first) != fmt.Sprintf("%#v", second) {
		t.Error("Classify output differs in formatting")
	}
}

func TestThumbnailScore(t *testing.T) {
	tests := []struct {
		brightness, contrast, want float64
	}{
		{128, 20, 20},
		{0, 50, 0},
		{256, 50, 0},
		{64, 40, 20},
	}
	for _, tt := range tests {
		if got := ThumbnailScore(tt.brightness, tt.contrast); got != tt.want {
			t.Errorf("ThumbnailScore(%g, %g) = %g, want %g", tt.brightness, tt.contrast, got, tt.want)
		}
	}
}

func TestSelectThumbnailPrefersMidBrightness(t *testing.T) {
	// each frame has std 20 around its mean
	input := frames(
		splitImage(20, 60, 32, 32),
		splitImage(108, 148, 32, 32),
		splitImage(200, 240, 32, 32),
	)
	got, err := SelectThumbnail(input)
	if err != nil {
		t.Fatal(err)
	}
	if got.Index != input[1].Index {
		t.Errorf("selected frame %d, want %d", got.Index, input[1].Index)
	}
}

func TestSelectThumbnailTieGoesToEarliest(t *testing.T) {
	input := frames(
		splitImage(108, 148, 16, 16),
		splitImage(108, 148, 16, 16),
	)
	got, err := SelectThumbnail(input)
	if err != nil {
		t.Fatal(err)
	}
	if got.Index != input[0].Index {
		t.Errorf("selected frame %d, want earliest %d", got.Index, input[0].Index)
	}
}

func TestSelectThumbnailEmpty(t *testing.T) {
	if _, err := SelectThumbnail(nil); !errors.Is(err, ErrNoFramesAvailable) {
		t.Errorf("expected ErrNoFramesAvailable, got %v", err)
	}
}

func TestAnalyzeUniformSource(t *testing.T) {
	// 10 seconds at 30fps, 640x480, every frame mid gray
	const total = 300
	img := grayImage(128, 640, 480)
	imgs := make([]image.Image, total)
	for i := range imgs {
		imgs[i] = img
	}
	src := media.NewSliceSource(30, imgs...)

	result, err := NewAnalyzer(zerolog.Nop(), Config{}).Analyze(context.Background(), src)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	a := result.Analysis
	if a.Samples != 6 {
		t.Errorf("Samples = %d, want 6", a.Samples)
	}
	if a.MotionLevel != MotionMinimal {
		t.Errorf("MotionLevel = %q, want %q", a.MotionLevel, MotionMinimal)
	}
	if a.SceneChanges != 0 {
		t.Errorf("SceneChanges = %d, want 0", a.SceneChanges)
	}
	if a.ContentType != ContentTalkingHead {
		t.Errorf("ContentType = %q, want %q", a.ContentType, ContentTalkingHead)
	}
	if a.VisualComplexity != ComplexitySimple {
		t.Errorf("VisualComplexity = %q, want %q", a.VisualComplexity, ComplexitySimple)
	}
	if a.Brightness.Mean != 128 || a.Brightness.Label != BrightnessBalanced {
		t.Errorf("Brightness = %+v", a.Brightness)
	}
	if a.ColorVariety != ColorMonochromatic {
		t.Errorf("ColorVariety = %q, want %q", a.ColorVariety, ColorMonochromatic)
	}
	if a.TextPresent {
		t.Error("uniform frames should not report text")
	}

	if result.Info.Width != 640 || result.Info.Height != 480 || result.Info.Duration != 10 {
		t.Errorf("unexpected stream info %+v", result.Info)
	}
	if result.Thumbnail == nil || result.Thumbnail.Index != 0 {
		t.Errorf("expected first frame as thumbnail, got %+v", result.Thumbnail)
	}
	if !src.Closed() {
		t.Error("source was not released")
	}
}

func TestAnalyzeEmptySource(t *testing.T) {
	tests := []struct {
		name string
		src  *media.SliceSource
	}{
		{"no frames", media.NewSliceSource(30)},
		{"frames reported but undecodable", media.NewSliceSource(30).WithInfo(media.StreamInfo{
			Path: "broken", FPS: 30, FrameCount: 500, Width: 64, Height: 64,
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAnalyzer(zerolog.Nop(), Config{}).Analyze(context.Background(), tt.src)
			if !errors.Is(err, media.ErrInsufficientSamples) {
				t.Fatalf("expected ErrInsufficientSamples, got %v", err)
			}
			if !tt.src.Closed() {
				t.Error("source was not released")
			}
		})
	}
}

func TestAnalyzeSkipsFailedFrames(t *testing.T) {
	imgs := make([]image.Image, 250)
	for i := range imgs {
		imgs[i] = grayImage(uint8(i), 16, 16)
	}
	src := media.NewSliceSource(25, imgs...).FailAt(50, errors.New("corrupt packet"))

	result, err := NewAnalyzer(zerolog.Nop(), Config{}).Analyze(context.Background(), src)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.Analysis.Samples != 4 {
		t.Errorf("Samples = %d, want 4", result.Analysis.Samples)
	}
	if !reflect.DeepEqual(result.Skipped, []int{50}) {
		t.Errorf("Skipped = %v, want [50]", result.Skipped)
	}
}

func TestAnalyzeSampleOverrideAndDownscale(t *testing.T) {
	imgs := make([]image.Image, 40)
	for i := range imgs {
		imgs[i] = grayImage(128, 128, 64)
	}
	src := media.NewSliceSource(20, imgs...)

	result, err := NewAnalyzer(zerolog.Nop(), Config{SampleCount: 8, MaxWidth: 32}).
		Analyze(context.Background(), src)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.Analysis.Samples != 8 {
		t.Errorf("Samples = %d, want 8", result.Analysis.Samples)
	}
	if w := result.Thumbnail.Image.Bounds().Dx(); w != 32 {
		t.Errorf("thumbnail width = %d, want 32", w)
	}
}

func TestAnalyzeCancelled(t *testing.T) {
	imgs := make([]image.Image, 100)
	for i := range imgs {
		imgs[i] = grayImage(100, 8, 8)
	}
	src := media.NewSliceSource(30, imgs...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAnalyzer(zerolog.Nop(), Config{}).Analyze(ctx, src)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !src.Closed() {
		t.Error("source was not released")
	}
}

// closeAfterReads closes its source once it has served n frames
type closeAfterReads struct {
	*media.SliceSource
	n     int
	reads int
}

func (c *closeAfterReads) ReadFrame() (image.Image, error) {
	c.reads++
	if c.reads == c.n {
		c.SliceSource.Close()
	}
	return c.SliceSource.ReadFrame()
}

func TestAnalyzeSourceClosedMidRun(t *testing.T) {
	imgs := make([]image.Image, 300)
	for i := range imgs {
		imgs[i] = grayImage(128, 8, 8)
	}
	src := &closeAfterReads{SliceSource: media.NewSliceSource(30, imgs...), n: 3}

	result, err := NewAnalyzer(zerolog.Nop(), Config{}).Analyze(context.Background(), src)
	if !errors.Is(err, media.ErrSourceClosed) {
		t.Fatalf("expected ErrSourceClosed, got %v", err)
	}
	if result != nil {
		t.Errorf("expected no result, got %d samples", result.Analysis.Samples)
	}
}
