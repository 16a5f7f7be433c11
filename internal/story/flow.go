package story

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"retell/internal/logging"
	"retell/internal/prompt"
	"retell/internal/services"
)

// Generator is the slice of the text backend the story flows need.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Flow runs the classic two-step story generation plus the analysis and
// improvement calls.
type Flow struct {
	gen    Generator
	logger *slog.Logger
}

// NewFlow builds a story flow on top of a text generator.
func NewFlow(gen Generator, logger *slog.Logger) *Flow {
	return &Flow{
		gen:    gen,
		logger: logging.NewComponentLogger(logger, "story"),
	}
}

// CoreResult carries the filled story-core prompt and the generated core.
type CoreResult struct {
	FilledPrompt string
	Core         string
}

// GenerateCore fills the story-core template with the cleaned subtitle
// text and generates the story core. The template contract is strict; a
// template missing its label or terminator fails before any generation.
func (f *Flow) GenerateCore(ctx context.Context, template, cleanText string) (*CoreResult, error) {
	if f == nil || f.gen == nil {
		return nil, services.Wrap(services.ErrConfiguration, "story", "generate core", "no text generator configured", nil)
	}
	filled, err := prompt.FillStoryCore(template, cleanText)
	if err != nil {
		return nil, err
	}
	core, err := f.gen.GenerateText(ctx, filled)
	if err != nil {
		return nil, err
	}
	f.logger.Info("story core generated",
		logging.Int("prompt_chars", len(filled)),
		logging.Int("core_chars", len(core)))
	return &CoreResult{FilledPrompt: filled, Core: core}, nil
}

// StoryResult carries the filled story prompt, the generated story, and
// any placeholder names that survived the fill.
type StoryResult struct {
	FilledPrompt         string
	Story                string
	LeftoverPlaceholders []string
}

// GenerateStory fills the story template with the story core and target
// length, then generates the final story. Placeholders that survive the
// fill are reported, not fatal; a model refusal is surfaced as a
// not-available error carrying the start of the response.
func (f *Flow) GenerateStory(ctx context.Context, template, core string, targetChars int) (*StoryResult, error) {
	if f == nil || f.gen == nil {
		return nil, services.Wrap(services.ErrConfiguration, "story", "generate story", "no text generator configured", nil)
	}
	if strings.TrimSpace(template) == "" {
		return nil, services.Wrap(services.ErrInvalidInput, "story", "generate story", "story template is empty", nil)
	}
	if strings.TrimSpace(core) == "" {
		return nil, services.Wrap(services.ErrInvalidInput, "story", "generate story", "story core is empty", nil)
	}

	filled := prompt.FillStory(template, core, targetChars, 0)
	leftover := leftoverPlaceholders(filled)
	if len(leftover) > 0 {
		f.logger.Warn("placeholders survived the fill",
			logging.String("placeholders", strings.Join(leftover, ", ")))
	}

	out, err := f.gen.GenerateText(ctx, filled)
	if err != nil {
		return nil, err
	}
	if IsRefusal(out) {
		return nil, services.Wrap(services.ErrNotAvailable, "story", "generate story",
			fmt.Sprintf("the model refused to generate content: %s", snippet(out, 200)), nil)
	}
	f.logger.Info("story generated",
		logging.Int("prompt_chars", len(filled)),
		logging.Int("story_chars", len(out)))
	return &StoryResult{
		FilledPrompt:         filled,
		Story:                out,
		LeftoverPlaceholders: leftover,
	}, nil
}

var targetSiteLeakPattern = regexp.MustCompile(`TARGET_LENGTH_CHARS:\s*\{`)

// leftoverPlaceholders names the template variables still visible in a
// filled prompt.
func leftoverPlaceholders(filled string) []string {
	var names []string
	if strings.Contains(filled, "{TARGET_LENGTH_CHARS}") || targetSiteLeakPattern.MatchString(filled) {
		names = append(names, "TARGET_LENGTH_CHARS")
	}
	if strings.Contains(filled, "{{STORY_CORE}}") || strings.Contains(filled, "{STORY_CORE}") {
		names = append(names, "STORY_CORE")
	}
	return names
}

// IsRefusal reports whether a response reads like the model declining the
// task rather than performing it.
func IsRefusal(text string) bool {
	low := strings.ToLower(text)
	if strings.TrimSpace(low) == "" {
		return false
	}
	if strings.Contains(low, "i'm sorry") || strings.Contains(low, "i can't assist") {
		return true
	}
	return strings.Contains(low, "cannot") && strings.Contains(low, "assist")
}

// snippet returns the first limit runes of text, marking truncation.
func snippet(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
