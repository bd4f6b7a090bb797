// Package thumbnail composes upload-ready cover images from a selected video
// frame, or from the title alone when no frame is available.
package thumbnail

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
)

const (
	maxTitleRunes = 80
	maxTitleLines = 2

	// title text height relative to a 1280 wide canvas
	titleFontPx    = 60
	textOnlyFontPx = 80

	sideMargin   = 50
	bandPadding  = 20
	bandAlpha    = 120
	bottomMargin = 80
	outlinePx    = 2

	vignetteAlpha = 30
)

// ErrNoFrame is returned by Compose when there is no frame to build on
var ErrNoFrame = errors.New("no frame to compose thumbnail from")

// Options controls output geometry and encoding
type Options struct {
	Width       int
	Height      int
	JPEGQuality int
	// Background is the base color of text-only thumbnails
	Background color.NRGBA
}

// DefaultOptions returns a 1280x720 JPEG at quality 95 on a blue background
func DefaultOptions() Options {
	return Options{
		Width:       1280,
		Height:      720,
		JPEGQuality: 95,
		Background:  color.NRGBA{R: 41, G: 128, B: 185, A: 255},
	}
}

// Compositor renders thumbnails
type Compositor struct {
	logger zerolog.Logger
	opts   Options
}

// New creates a compositor. Zero fields in opts take their defaults.
func New(logger zerolog.Logger, opts Options) *Compositor {
	def := DefaultOptions()
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = def.Width, def.Height
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = def.JPEGQuality
	}
	if opts.Background.A == 0 {
		opts.Background = def.Background
	}
	return &Compositor{
		logger: logger.With().Str("component", "thumbnail").Logger(),
		opts:   opts,
	}
}

// Options returns the effective options
func (c *Compositor) Options() Options {
	return c.opts
}

// Compose fills the canvas with frame, enhances it, draws the title in the
// lower third and applies a vignette.
func (c *Compositor) Compose(frame image.Image, title string) (*image.NRGBA, error) {
	if frame == nil {
		return nil, ErrNoFrame
	}

	img := imaging.Fill(frame, c.opts.Width, c.opts.Height, imaging.Center, imaging.Lanczos)
	img = enhance(img)

	lines := wrapTitle(title, c.scale(titleFontPx), c.opts.Width-2*sideMargin)
	if len(lines) > 0 {
		img = c.drawTitle(img, lines)
	}

	img = vignette(img)

	c.logger.Debug().
		Int("width", c.opts.Width).
		Int("height", c.opts.Height).
		Int("title_lines", len(lines)).
		Msg("composed thumbnail")

	return img, nil
}

// TextOnly renders the title centred on a vertical gradient of the background color
func (c *Compositor) TextOnly(title string) *image.NRGBA {
	w, h := c.opts.Width, c.opts.Height
	base := c.opts.Background

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		shift := 50 * float64(y) / float64(h)
		row := color.NRGBA{
			R: clampChannel(float64(base.R) + shift),
			G: clampChannel(float64(base.G) + shift),
			B: clampChannel(float64(base.B) + shift),
			A: 255,
		}
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, row)
		}
	}

	scale := c.scale(textOnlyFontPx)
	lines := wrapLines(truncateRunes(title, maxTitleRunes), scale, w-2*sideMargin)
	lineHeight := glyphHeight*scale + 20
	startY := (h - len(lines)*lineHeight) / 2

	for i, line := range lines {
		text := renderText(line, color.White, scale)
		x := (w - text.Bounds().Dx()) / 2
		img = imaging.Overlay(img, text, image.Pt(x, startY+i*lineHeight), 1.0)
	}

	c.logger.Debug().Int("title_lines", len(lines)).Msg("rendered text-only thumbnail")
	return img
}

// EncodeJPEG writes img as JPEG at the configured quality
func (c *Compositor) EncodeJPEG(w io.Writer, img image.Image) error {
	if err := imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(c.opts.JPEGQuality)); err != nil {
		return fmt.Errorf("encode thumbnail: %w", err)
	}
	return nil
}

// SaveJPEG writes img to path as JPEG at the configured quality
func (c *Compositor) SaveJPEG(img image.Image, path string) error {
	if err := imaging.Save(img, path, imaging.JPEGQuality(c.opts.JPEGQuality)); err != nil {
		return fmt.Errorf("save thumbnail %s: %w", path, err)
	}
	c.logger.Info().Str("path", path).Msg("thumbnail saved")
	return nil
}

// scale converts a font size on a 1280 wide canvas into an integer glyph scale
func (c *Compositor) scale(fontPx int) int {
	px := float64(fontPx) * float64(c.opts.Width) / 1280
	s := int(math.Round(px / glyphHeight))
	if s < 1 {
		return 1
	}
	return s
}

// enhance raises contrast by 20%, saturation by 10% and brightness by 5%
func enhance(img *image.NRGBA) *image.NRGBA {
	img = imaging.AdjustContrast(img, 20)
	img = imaging.AdjustSaturation(img, 10)
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: clampChannel(float64(c.R) * 1.05),
			G: clampChannel(float64(c.G) * 1.05),
			B: clampChannel(float64(c.B) * 1.05),
			A: c.A,
		}
	})
}

// lineBox is the placement of one title line
type lineBox struct {
	text string
	rect image.Rectangle // text bounds
	band image.Rectangle // translucent backing
}

func (c *Compositor) titleLayout(lines []string) []lineBox {
	scale := c.scale(titleFontPx)
	textHeight := glyphHeight * scale
	lineHeight := textHeight + 10
	startY := c.opts.Height - len(lines)*lineHeight - bottomMargin

	boxes := make([]lineBox, 0, len(lines))
	for i, line := range lines {
		w := textWidth(line, scale)
		x := (c.opts.Width - w) / 2
		y := startY + i*lineHeight
		boxes = append(boxes, lineBox{
			text: line,
			rect: image.Rect(x, y, x+w, y+textHeight),
			band: image.Rect(x-bandPadding, y-bandPadding/2, x+w+bandPadding, y+lineHeight+bandPadding/2),
		})
	}
	return boxes
}

// drawTitle draws each line over a dark band with a black outline
func (c *Compositor) drawTitle(img *image.NRGBA, lines []string) *image.NRGBA {
	scale := c.scale(titleFontPx)
	for _, box := range c.titleLayout(lines) {
		band := imaging.New(box.band.Dx(), box.band.Dy(), color.NRGBA{A: bandAlpha})
		img = imaging.Overlay(img, band, box.band.Min, 1.0)

		outline := renderText(box.text, color.Black, scale)
		for dy := -outlinePx; dy <= outlinePx; dy++ {
			for dx := -outlinePx; dx <= outlinePx; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				img = imaging.Overlay(img, outline, box.rect.Min.Add(image.Pt(dx, dy)), 1.0)
			}
		}

		fill := renderText(box.text, color.White, scale)
		img = imaging.Overlay(img, fill, box.rect.Min, 1.0)
	}
	return img
}

// vignette darkens the image towards its corners
func vignette(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	cx, cy := float64(w)/2, float64(h)/2
	maxDist := math.Hypot(cx, cy)

	mask := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy) / maxDist
			mask.SetNRGBA(x, y, color.NRGBA{A: uint8(vignetteAlpha * math.Min(1, d*d))})
		}
	}
	return imaging.Overlay(img, mask, b.Min, 1.0)
}

func clampChannel(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
