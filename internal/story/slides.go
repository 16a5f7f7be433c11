package story

import (
	"strings"

	"retell/internal/multipass"
)

// FormatSlide renders one slide as a Text/Prompt pair. Narration and
// voice direction are both wrapped in braces when the model left them
// bare.
func FormatSlide(text, prompt string) string {
	return "Text:\n" + ensureBraces(strings.TrimSpace(text)) +
		"\n\nPrompt:\n" + ensureBraces(strings.TrimSpace(prompt))
}

// RenderSlides renders a slide sequence into the exported story text.
func RenderSlides(slides []multipass.Slide) string {
	parts := make([]string, 0, len(slides))
	for _, slide := range slides {
		parts = append(parts, FormatSlide(slide.Text, slide.Prompt))
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func ensureBraces(s string) string {
	if !strings.HasPrefix(s, "{") {
		s = "{" + s
	}
	if !strings.HasSuffix(s, "}") {
		s += "}"
	}
	return s
}
