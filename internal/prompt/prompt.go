// Package prompt renders an analysis as the text block handed to a language
// model for title and description generation.
package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/kikiluvv/vidlens/internal/analysis"
	"github.com/kikiluvv/vidlens/internal/media"
	"github.com/kikiluvv/vidlens/pkg/util"
)

// Unknown replaces any field the inputs do not provide
const Unknown = "unknown"

// Format renders stream info and analysis into the fixed prompt template.
// Either input may be nil. extra is appended as additional context when set.
func Format(info *media.StreamInfo, a *analysis.ContentAnalysis, extra string) string {
	f := fields(info, a)

	var b strings.Builder
	b.WriteString("Detailed Video Content Analysis:\n\n")

	b.WriteString("TECHNICAL SPECS:\n")
	fmt.Fprintf(&b, "- Duration: %s minutes\n", f.duration)
	fmt.Fprintf(&b, "- Resolution: %s\n", f.resolution)
	fmt.Fprintf(&b, "- Frame rate: %s fps\n", f.fps)
	fmt.Fprintf(&b, "- File size: %s\n\n", f.size)

	b.WriteString("VISUAL CHARACTERISTICS:\n")
	fmt.Fprintf(&b, "- Lighting: %s\n", f.lighting)
	fmt.Fprintf(&b, "- Motion level: %s\n", f.motion)
	fmt.Fprintf(&b, "- Color palette: %s\n", f.palette)
	fmt.Fprintf(&b, "- Visual complexity: %s\n", f.complexity)
	fmt.Fprintf(&b, "- Scene changes: %s detected\n\n", f.scenes)

	b.WriteString("CONTENT ANALYSIS:\n")
	fmt.Fprintf(&b, "- Likely content type: %s\n", f.contentType)
	fmt.Fprintf(&b, "- Text/graphics present: %s\n", f.text)
	fmt.Fprintf(&b, "- Pacing: %s\n\n", f.motion)

	fmt.Fprintf(&b, "This analysis suggests the video is a %s with %s visual style and %s pacing.",
		f.contentType, f.complexity, f.motion)

	if extra = strings.TrimSpace(extra); extra != "" {
		fmt.Fprintf(&b, "\n\nAdditional Context: %s", extra)
	}

	return b.String()
}

type promptFields struct {
	duration    string
	resolution  string
	fps         string
	size        string
	lighting    string
	motion      string
	palette     string
	complexity  string
	scenes      string
	contentType string
	text        string
}

func fields(info *media.StreamInfo, a *analysis.ContentAnalysis) promptFields {
	f := promptFields{
		duration: Unknown, resolution: Unknown, fps: Unknown, size: Unknown,
		lighting: Unknown, motion: Unknown, palette: Unknown, complexity: Unknown,
		scenes: Unknown, contentType: Unknown, text: Unknown,
	}

	if info != nil {
		f.duration = util.FormatClock(info.Duration)
		if info.Width > 0 && info.Height > 0 {
			f.resolution = fmt.Sprintf("%dx%d", info.Width, info.Height)
		}
		if info.FPS > 0 {
			f.fps = strconv.FormatFloat(info.FPS, 'f', -1, 64)
		}
		if info.SizeBytes > 0 {
			f.size = humanize.Bytes(uint64(info.SizeBytes))
		}
	}

	if a != nil {
		f.lighting = orUnknown(a.Brightness.Label)
		f.motion = orUnknown(a.MotionLevel)
		f.palette = orUnknown(a.ColorVariety)
		f.complexity = orUnknown(a.VisualComplexity)
		f.contentType = orUnknown(a.ContentType)
		f.scenes = strconv.Itoa(a.SceneChanges)
		f.text = "No"
		if a.TextPresent {
			f.text = "Yes"
		}
	}

	return f
}

func orUnknown(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}
