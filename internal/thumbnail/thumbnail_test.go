package thumbnail

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	return imaging.New(w, h, c)
}

func newTestCompositor() *Compositor {
	return New(zerolog.Nop(), Options{})
}

func TestNewAppliesDefaults(t *testing.T) {
	c := New(zerolog.Nop(), Options{JPEGQuality: 400})
	opts := c.Options()
	if opts.Width != 1280 || opts.Height != 720 {
		t.Errorf("expected 1280x720, got %dx%d", opts.Width, opts.Height)
	}
	if opts.JPEGQuality != 95 {
		t.Errorf("expected quality 95, got %d", opts.JPEGQuality)
	}
	if opts.Background != (color.NRGBA{R: 41, G: 128, B: 185, A: 255}) {
		t.Errorf("unexpected background %v", opts.Background)
	}
}

func TestComposeDimensions(t *testing.T) {
	c := newTestCompositor()
	tests := []struct {
		name string
		w, h int
	}{
		{"landscape 4:3", 640, 480},
		{"portrait", 300, 900},
		{"already 16:9", 1920, 1080},
		{"tiny", 16, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := c.Compose(solid(tt.w, tt.h, color.NRGBA{R: 90, G: 90, B: 90, A: 255}), "A title")
			if err != nil {
				t.Fatal(err)
			}
			if b := out.Bounds(); b.Dx() != 1280 || b.Dy() != 720 {
				t.Errorf("expected 1280x720, got %dx%d", b.Dx(), b.Dy())
			}
		})
	}
}

func TestComposeNilFrame(t *testing.T) {
	if _, err := newTestCompositor().Compose(nil, "title"); !errors.Is(err, ErrNoFrame) {
		t.Errorf("expected ErrNoFrame, got %v", err)
	}
}

func TestComposeVignetteDarkensCorners(t *testing.T) {
	out, err := newTestCompositor().Compose(solid(640, 480, color.NRGBA{R: 128, G: 128, B: 128, A: 255}), "")
	if err != nil {
		t.Fatal(err)
	}
	center := out.NRGBAAt(640, 360)
	corner := out.NRGBAAt(0, 0)
	if corner.R >= center.R {
		t.Errorf("corner %v should be darker than center %v", corner, center)
	}
	// enhancement brightens mid gray
	if center.R <= 128 {
		t.Errorf("center %v should be brighter than the source", center)
	}
}

func TestComposeTitleBand(t *testing.T) {
	c := newTestCompositor()
	frame := solid(1280, 720, color.NRGBA{A: 255})
	lit := solid(1280, 720, color.NRGBA{R: 200, G: 200, B: 200, A: 255})

	plain, err := c.Compose(lit, "")
	if err != nil {
		t.Fatal(err)
	}
	titled, err := c.Compose(lit, "HELLO WORLD")
	if err != nil {
		t.Fatal(err)
	}

	boxes := c.titleLayout(wrapTitle("HELLO WORLD", c.scale(titleFontPx), c.opts.Width-2*sideMargin))
	if len(boxes) != 1 {
		t.Fatalf("expected one title line, got %d", len(boxes))
	}
	box := boxes[0]
	if box.band.Min.Y < c.opts.Height*2/3 {
		t.Errorf("title band %v should sit in the lower third", box.band)
	}

	p := box.band.Min.Add(image.Pt(2, 2))
	if titled.NRGBAAt(p.X, p.Y).R >= plain.NRGBAAt(p.X, p.Y).R {
		t.Errorf("band should darken the frame at %v", p)
	}

	dark, err := c.Compose(frame, "HELLO WORLD")
	if err != nil {
		t.Fatal(err)
	}
	bright := false
	for y := box.rect.Min.Y; y < box.rect.Max.Y && !bright; y++ {
		for x := box.rect.Min.X; x < box.rect.Max.X; x++ {
			if dark.NRGBAAt(x, y).R > 200 {
				bright = true
				break
			}
		}
	}
	if !bright {
		t.Error("expected white title text inside the text box")
	}
}

func TestWrapTitle(t *testing.T) {
	const scale, maxWidth = 5, 1180

	tests := []struct {
		name      string
		title     string
		wantLines int
	}{
		{"empty", "", 0},
		{"whitespace", "   ", 0},
		{"short", "Quick tips", 1},
		{"two lines", "This is a fairly long title that will need to wrap onto", 2},
		{"capped at two", strings.Repeat("word ", 40), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := wrapTitle(tt.title, scale, maxWidth)
			if len(lines) != tt.wantLines {
				t.Fatalf("got %d lines %q, want %d", len(lines), lines, tt.wantLines)
			}
			for _, l := range lines {
				if w := textWidth(l, scale); w > maxWidth {
					t.Errorf("line %q is %dpx wide, max %d", l, w, maxWidth)
				}
			}
		})
	}
}

func TestWrapLinesLongWord(t *testing.T) {
	lines := wrapLines("a "+strings.Repeat("x", 50)+" b", 1, 70)
	if len(lines) != 3 {
		t.Fatalf("expected the long word on its own line, got %q", lines)
	}
}

func TestTruncateRunes(t *testing.T) {
	long := strings.Repeat("é", 100)
	got := truncateRunes(long, maxTitleRunes)
	if n := utf8.RuneCountInString(got); n != maxTitleRunes {
		t.Errorf("expected %d runes, got %d", maxTitleRunes, n)
	}
	if truncateRunes("short", maxTitleRunes) != "short" {
		t.Error("short strings should be untouched")
	}
}

func TestRenderText(t *testing.T) {
	img := renderText("Hi", color.White, 3)
	if b := img.Bounds(); b.Dx() != 14*3 || b.Dy() != glyphHeight*3 {
		t.Errorf("unexpected size %dx%d", b.Dx(), b.Dy())
	}
	opaque := 0
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] > 0 {
			opaque++
		}
	}
	if opaque == 0 {
		t.Error("rendered text has no visible pixels")
	}
	if empty := renderText("", color.White, 3); empty.Bounds().Dx() != 0 {
		t.Error("empty text should render to an empty image")
	}
}

func TestTextOnly(t *testing.T) {
	c := newTestCompositor()
	img := c.TextOnly("Fallback title for a video without frames")

	if b := img.Bounds(); b.Dx() != 1280 || b.Dy() != 720 {
		t.Fatalf("expected 1280x720, got %dx%d", b.Dx(), b.Dy())
	}
	if got := img.NRGBAAt(0, 0); got != (color.NRGBA{R: 41, G: 128, B: 185, A: 255}) {
		t.Errorf("top-left = %v, want base background", got)
	}
	if got := img.NRGBAAt(0, 719); got != (color.NRGBA{R: 90, G: 177, B: 234, A: 255}) {
		t.Errorf("bottom-left = %v, want gradient end", got)
	}

	white := 0
	for y := 300; y < 420; y++ {
		for x := 0; x < 1280; x++ {
			if img.NRGBAAt(x, y) == (color.NRGBA{R: 255, G: 255, B: 255, A: 255}) {
				white++
			}
		}
	}
	if white == 0 {
		t.Error("expected title text around the vertical center")
	}
}

func TestTextOnlyCustomBackground(t *testing.T) {
	c := New(zerolog.Nop(), Options{Width: 320, Height: 180, Background: color.NRGBA{R: 250, G: 10, B: 10, A: 255}})
	img := c.TextOnly("")
	if got := img.NRGBAAt(0, 179); got.R != 255 || got.G != 59 {
		t.Errorf("bottom row = %v, want clamped red and shifted green", got)
	}
}

func TestSaveAndEncodeJPEG(t *testing.T) {
	c := newTestCompositor()
	img := c.TextOnly("Saved")

	path := filepath.Join(t.TempDir(), "thumb.jpg")
	if err := c.SaveJPEG(img, path); err != nil {
		t.Fatalf("SaveJPEG failed: %v", err)
	}
	decoded, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("could not reopen thumbnail: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 1280 || b.Dy() != 720 {
		t.Errorf("saved thumbnail is %dx%d", b.Dx(), b.Dy())
	}

	var buf bytes.Buffer
	if err := c.EncodeJPEG(&buf, img); err != nil {
		t.Fatalf("EncodeJPEG failed: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte{0xFF, 0xD8}) {
		t.Error("output is not a JPEG stream")
	}
}
