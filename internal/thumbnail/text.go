package thumbnail

import (
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Titles are drawn with the 7x13 bitmap face and scaled up by an integer
// factor with nearest-neighbour sampling to keep glyph edges crisp.
var face = basicfont.Face7x13

const glyphHeight = 13

// textWidth is the rendered width of s at the given scale
func textWidth(s string, scale int) int {
	return font.MeasureString(face, s).Ceil() * scale
}

// renderText draws s in col on a transparent canvas and scales it up
func renderText(s string, col color.Color, scale int) *image.NRGBA {
	w := font.MeasureString(face, s).Ceil()
	if w == 0 {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0))
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, w, glyphHeight))
	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(0, face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)

	if scale <= 1 {
		return canvas
	}
	scaled := resize.Resize(uint(w*scale), uint(glyphHeight*scale), canvas, resize.NearestNeighbor)
	return imaging.Clone(scaled)
}

// wrapTitle truncates the title and wraps it into at most two lines
func wrapTitle(title string, scale, maxWidth int) []string {
	lines := wrapLines(truncateRunes(title, maxTitleRunes), scale, maxWidth)
	if len(lines) > maxTitleLines {
		lines = lines[:maxTitleLines]
	}
	return lines
}

// wrapLines greedily packs words into lines no wider than maxWidth. A single
// word wider than maxWidth gets a line of its own.
func wrapLines(text string, scale, maxWidth int) []string {
	var lines []string
	current := ""
	for _, word := range strings.Fields(text) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if textWidth(candidate, scale) <= maxWidth {
			current = candidate
			continue
		}
		if current != "" {
			lines = append(lines, current)
		}
		current = word
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
