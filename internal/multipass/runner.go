package multipass

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"retell/internal/logging"
	"retell/internal/services"
)

// Stage names used in errors and log records.
const (
	stageAnalyze = "analyze"
	stageCore    = "core_extract"
	stageBeats   = "beat_plan"
	stageNarrate = "narrate"
	stageJudge   = "judge"
)

const defaultSlideCount = 10

// Generator is the slice of the text backend the orchestrator needs.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Options tune a single run. Zero values mean flexible length and no
// slide-count hint.
type Options struct {
	TargetChars int
	SlidesHint  int
}

// Slide is one narrated unit: spoken text plus a voice-delivery direction.
type Slide struct {
	Text   string `json:"Text"`
	Prompt string `json:"Prompt"`
}

// Result collects every stage output. Analysis, Core, Beats and
// QualityReport keep the generator's JSON as decoded; Slides is the final
// narration with any judge repairs applied.
type Result struct {
	Analysis      map[string]any
	Core          map[string]any
	Beats         []any
	Slides        []Slide
	QualityReport map[string]any
}

// Runner drives the five-stage story generation flow.
type Runner struct {
	gen    Generator
	logger *slog.Logger
}

// NewRunner builds a runner on top of a text generator.
func NewRunner(gen Generator, logger *slog.Logger) *Runner {
	return &Runner{
		gen:    gen,
		logger: logging.NewComponentLogger(logger, "multipass"),
	}
}

// Run executes analyze, core-extract, beat-plan, narrate and judge in
// order. Each stage demands JSON output; malformed output gets exactly one
// repair request before the run aborts. A failing judge verdict with
// repaired slides overwrites the matching narrate slides in place.
func (r *Runner) Run(ctx context.Context, cleanText string, opts Options) (*Result, error) {
	if r == nil || r.gen == nil {
		return nil, services.Wrap(services.ErrConfiguration, "multipass", "run", "no text generator configured", nil)
	}
	if strings.TrimSpace(cleanText) == "" {
		return nil, services.Wrap(services.ErrInvalidInput, "multipass", "run", "clean subtitle text is empty", nil)
	}
	input := truncateRunes(cleanText, promptInputLimit)

	analysis, err := r.objectStage(ctx, stageAnalyze, analyzePrompt(input, opts.TargetChars))
	if err != nil {
		return nil, err
	}
	r.stageDone(stageAnalyze, logging.Int("keys", len(analysis)))

	core, err := r.objectStage(ctx, stageCore, corePrompt(input, analysis))
	if err != nil {
		return nil, err
	}
	r.stageDone(stageCore, logging.Int("keys", len(core)))

	slideCount := resolveSlideCount(analysis, opts.SlidesHint)
	beats, err := r.arrayStage(ctx, stageBeats, beatsPrompt(core, analysis, slideCount))
	if err != nil {
		return nil, err
	}
	r.stageDone(stageBeats, logging.Int("beats", len(beats)))

	rawSlides, err := r.arrayStage(ctx, stageNarrate, narratePrompt(core, beats, opts.TargetChars, toneTarget(analysis)))
	if err != nil {
		return nil, err
	}
	slides, err := slidesFromValues(rawSlides)
	if err != nil {
		return nil, err
	}
	r.stageDone(stageNarrate, logging.Int("slides", len(slides)))

	report, err := r.objectStage(ctx, stageJudge, judgePrompt(slides, core))
	if err != nil {
		return nil, err
	}
	status, _ := report["status"].(string)
	repaired := applyRepairs(slides, report)
	r.stageDone(stageJudge,
		logging.String("status", status),
		logging.Int("repaired_slides", repaired))

	return &Result{
		Analysis:      analysis,
		Core:          core,
		Beats:         beats,
		Slides:        slides,
		QualityReport: report,
	}, nil
}

// objectStage runs one generation and requires a JSON object back.
func (r *Runner) objectStage(ctx context.Context, stage, prompt string) (map[string]any, error) {
	value, err := r.generateJSON(ctx, stage, prompt)
	if err != nil {
		return nil, err
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, r.contractErr(stage, fmt.Sprintf("expected a json object, got %s", jsonType(value)))
	}
	return obj, nil
}

// arrayStage runs one generation and requires a JSON array back.
func (r *Runner) arrayStage(ctx context.Context, stage, prompt string) ([]any, error) {
	value, err := r.generateJSON(ctx, stage, prompt)
	if err != nil {
		return nil, err
	}
	arr, ok := value.([]any)
	if !ok {
		return nil, r.contractErr(stage, fmt.Sprintf("expected a json array, got %s", jsonType(value)))
	}
	return arr, nil
}

// generateJSON performs the request plus the single-repair sub-protocol:
// one generation, one extraction attempt, and on failure one repair
// request with one more extraction attempt. Generator errors propagate
// untouched.
func (r *Runner) generateJSON(ctx context.Context, stage, prompt string) (any, error) {
	raw, err := r.gen.GenerateText(ctx, prompt)
	if err != nil {
		return nil, err
	}
	value, firstErr := decodeStagePayload(raw)
	if firstErr == nil {
		return value, nil
	}

	r.logger.Warn("stage returned malformed json, requesting repair",
		logging.String(logging.FieldStage, stage),
		logging.Error(firstErr))

	repairedRaw, err := r.gen.GenerateText(ctx, repairPrompt(raw))
	if err != nil {
		return nil, err
	}
	value, repairErr := decodeStagePayload(repairedRaw)
	if repairErr != nil {
		return nil, r.contractErr(stage,
			fmt.Sprintf("json parsing failed even after repair (first: %v, repair: %v)", firstErr, repairErr))
	}
	return value, nil
}

func (r *Runner) contractErr(stage, message string) error {
	return services.Wrap(services.ErrContract, "multipass", stage, message, nil)
}

func (r *Runner) stageDone(stage string, attrs ...logging.Attr) {
	args := []logging.Attr{logging.String(logging.FieldStage, stage)}
	args = append(args, attrs...)
	r.logger.Info("stage complete", logging.Args(args...)...)
}

// resolveSlideCount prefers the analyzer's recommendation, then the
// caller's hint, then the default.
func resolveSlideCount(analysis map[string]any, hint int) int {
	if n, ok := intValue(analysis["recommended_slide_count"]); ok && n != 0 {
		return n
	}
	if hint > 0 {
		return hint
	}
	return defaultSlideCount
}

func toneTarget(analysis map[string]any) string {
	if tone, ok := analysis["tone_target"].(string); ok && strings.TrimSpace(tone) != "" {
		return tone
	}
	return "neutral"
}

// slidesFromValues validates the narrate payload: every element must be an
// object carrying both the Text and the Prompt key.
func slidesFromValues(values []any) ([]Slide, error) {
	slides := make([]Slide, 0, len(values))
	for i, value := range values {
		entry, ok := value.(map[string]any)
		if !ok {
			return nil, services.Wrap(services.ErrContract, "multipass", stageNarrate,
				fmt.Sprintf("slide %d must be a json object, got %s", i+1, jsonType(value)), nil)
		}
		text, hasText := entry["Text"]
		prompt, hasPrompt := entry["Prompt"]
		if !hasText || !hasPrompt {
			return nil, services.Wrap(services.ErrContract, "multipass", stageNarrate,
				fmt.Sprintf("slide %d is missing the Text or Prompt key", i+1), nil)
		}
		slides = append(slides, Slide{Text: stringValue(text), Prompt: stringValue(prompt)})
	}
	return slides, nil
}

// applyRepairs overwrites slides named by a failing judge report. Slide
// numbers are 1-based; entries out of range or malformed are skipped.
// Returns how many slides were replaced.
func applyRepairs(slides []Slide, report map[string]any) int {
	status, _ := report["status"].(string)
	if status != "fail" {
		return 0
	}
	entries, _ := report["repaired_slides"].([]any)
	applied := 0
	for _, raw := range entries {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		num, ok := intValue(entry["slide"])
		if !ok || num < 1 || num > len(slides) {
			continue
		}
		slides[num-1] = Slide{
			Text:   stringValue(entry["Text"]),
			Prompt: stringValue(entry["Prompt"]),
		}
		applied++
	}
	return applied
}

func intValue(v any) (int, bool) {
	n, ok := v.(float64)
	if !ok {
		return 0, false
	}
	return int(n), true
}

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprintf("%v", s)
	}
}
