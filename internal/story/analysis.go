package story

import (
	"context"
	"fmt"
	"strings"

	"retell/internal/logging"
	"retell/internal/services"
	"retell/internal/textutil"
)

// Section markers the analysis response must use. Parsing keys off the
// last two; the earlier sections stay part of the report.
const (
	markerComparisonTable   = "## COMPARISON TABLE"
	markerImprovementPrompt = "## IMPROVEMENT PROMPT"
)

// similarityCeiling rejects an improved story this close to its input.
const similarityCeiling = 0.97

// analysisInputLimit caps the original text embedded in the analysis
// prompt; longer texts keep their head and tail.
const (
	analysisInputLimit = 5000
	analysisEdgeKeep   = 2000
)

const analysisHeader = `OUTPUT LANGUAGE: For the "` + markerImprovementPrompt + `" section, output ENGLISH ONLY. Do not output any Ukrainian/Russian in that section.`

const analysisRetryHeader = `OUTPUT LANGUAGE: ENGLISH ONLY. Do not output any Ukrainian/Russian.`

const analysisRetryFooter = `CRITICAL: The "` + markerImprovementPrompt + `" section must be in ENGLISH ONLY. No other language.`

const analysisTemplate = `You are an expert analyst of narrative texts for YouTube.

Your task: run an honest analysis of the generated story against the original.

INPUT:

ORIGINAL (subtitles):
%s

GENERATED STORY:
%s

TASK:

1. Score the generated story 0-10 on each metric:
   - Hook (strength of the opening slides)
   - Retention chain (open loops / tension)
   - Clarity
   - Pacing
   - Repetition (absence of repeats)
   - Ending impact

2. List 3 strengths (bullet list)

3. List 3 weaknesses (bullet list)

4. Build a comparison table in markdown:
   | Criterion | Original | Generated | Comment |
   |-----------|----------|-----------|---------|
   | Hook | ... | ... | ... |
   | Stakes clarity | ... | ... | ... |
   | Loops | ... | ... | ... |
   | Escalation | ... | ... | ... |
   | Specificity | ... | ... | ... |
   | Ending | ... | ... | ... |

5. Write an improvement prompt: a ready prompt instructing a model how to rewrite the generated story:
   - Keep the key facts
   - Fix the weaknesses found
   - Follow the style rules: show-don't-tell, conversational voice, no moralizing
   - Avoid repetition

   IMPORTANT: The improvement prompt must be in ENGLISH ONLY.

OUTPUT FORMAT (follow strictly):

## SCORES (0-10)
- Hook: [number]/10
- Retention chain: [number]/10
- Clarity: [number]/10
- Pacing: [number]/10
- Repetition: [number]/10
- Ending impact: [number]/10

## STRENGTHS
- [first]
- [second]
- [third]

## WEAKNESSES
- [first]
- [second]
- [third]

` + markerComparisonTable + `
[markdown table here]

` + markerImprovementPrompt + `
[improvement prompt text]`

const improveTemplate = `OUTPUT LANGUAGE: ENGLISH ONLY. Do not output any Ukrainian/Russian.

%s

ORIGINAL GENERATED STORY (to rewrite):
%s

Rewrite the story according to the instructions above, preserving key facts and improving identified weaknesses.

STRICT FORMAT REQUIREMENTS:
- Each slide must be exactly:
    text:{...}
    prompt:{...}
- No headings, no numbering, no markdown.
- Preserve the exact slide structure.
- Output in ENGLISH ONLY.

ANTI-COPY RULES (CRITICAL):
- You MUST rewrite every text:{...} block.
- DO NOT reuse original sentences.
- Change wording in EVERY slide while keeping meaning.
- If output is too similar to input, rewrite more aggressively.
- Paraphrase, rephrase, restructure - but keep the core facts and narrative flow.
- This is a REWRITE task, not a copy-paste task.`

// Analysis is the parsed three-part analysis response.
type Analysis struct {
	Report            string `json:"report"`
	ComparisonTable   string `json:"comparison_table"`
	ImprovementPrompt string `json:"improvement_prompt"`
}

// Analyze compares the generated story against the original clean text.
// An improvement prompt that comes back in Cyrillic triggers one stricter
// re-request; if the retry is still not English the result is returned
// anyway with a logged warning.
func (f *Flow) Analyze(ctx context.Context, originalText, generatedStory string) (*Analysis, error) {
	if f == nil || f.gen == nil {
		return nil, services.Wrap(services.ErrConfiguration, "story", "analyze", "no text generator configured", nil)
	}
	if strings.TrimSpace(generatedStory) == "" {
		return nil, services.Wrap(services.ErrInvalidInput, "story", "analyze", "generated story is empty", nil)
	}

	body := fmt.Sprintf(analysisTemplate, truncateForAnalysis(originalText), generatedStory)
	response, err := f.gen.GenerateText(ctx, analysisHeader+"\n\n"+body)
	if err != nil {
		return nil, err
	}
	analysis := ParseAnalysis(response)
	if analysis.ImprovementPrompt == "" || !textutil.ContainsCyrillic(analysis.ImprovementPrompt) {
		return analysis, nil
	}

	f.logger.Warn("improvement prompt came back in cyrillic, re-requesting in english")
	retry, err := f.gen.GenerateText(ctx, analysisRetryHeader+"\n\n"+body+"\n\n"+analysisRetryFooter)
	if err != nil {
		return nil, err
	}
	analysis = ParseAnalysis(retry)
	if analysis.ImprovementPrompt != "" && textutil.ContainsCyrillic(analysis.ImprovementPrompt) {
		f.logger.Warn("improvement prompt is still not english after retry")
	}
	return analysis, nil
}

// ParseAnalysis splits an analysis response on its comparison-table and
// improvement-prompt markers. A response without either marker becomes a
// report in full.
func ParseAnalysis(response string) *Analysis {
	tableStart := strings.Index(response, markerComparisonTable)
	promptStart := strings.Index(response, markerImprovementPrompt)

	analysis := &Analysis{}
	if tableStart != -1 {
		end := len(response)
		if promptStart != -1 {
			end = promptStart
		}
		if end < tableStart {
			end = tableStart
		}
		table := response[tableStart:end]
		table = strings.TrimPrefix(table, markerComparisonTable)
		analysis.ComparisonTable = strings.TrimSpace(table)
	}
	if promptStart != -1 {
		analysis.ImprovementPrompt = strings.TrimSpace(response[promptStart+len(markerImprovementPrompt):])
	}

	switch {
	case tableStart != -1:
		analysis.Report = strings.TrimSpace(response[:tableStart])
	case promptStart != -1:
		analysis.Report = strings.TrimSpace(response[:promptStart])
	default:
		analysis.Report = strings.TrimSpace(response)
	}
	return analysis
}

// Improve rewrites the story per the improvement prompt. The rewrite is
// rejected when it comes back in Cyrillic or lands too close to the
// input; the similarity ratio is returned either way.
func (f *Flow) Improve(ctx context.Context, generatedStory, improvementPrompt string) (string, float64, error) {
	if f == nil || f.gen == nil {
		return "", 0, services.Wrap(services.ErrConfiguration, "story", "improve", "no text generator configured", nil)
	}
	if strings.TrimSpace(generatedStory) == "" {
		return "", 0, services.Wrap(services.ErrInvalidInput, "story", "improve", "story to improve is empty", nil)
	}
	if strings.TrimSpace(improvementPrompt) == "" {
		return "", 0, services.Wrap(services.ErrInvalidInput, "story", "improve", "improvement prompt is empty", nil)
	}

	improved, err := f.gen.GenerateText(ctx, fmt.Sprintf(improveTemplate, improvementPrompt, generatedStory))
	if err != nil {
		return "", 0, err
	}
	if textutil.ContainsCyrillic(improved) {
		return "", 0, services.Wrap(services.ErrContract, "story", "improve",
			"the model answered in a non-english language, try again", nil)
	}
	similarity := textutil.Similarity(generatedStory, improved)
	if similarity > similarityCeiling {
		return "", similarity, services.Wrap(services.ErrContract, "story", "improve",
			fmt.Sprintf("the rewrite is nearly identical to the input (similarity %.2f)", similarity), nil)
	}
	f.logger.Info("story improved",
		logging.Float64("similarity", similarity),
		logging.Int("story_chars", len(improved)))
	return improved, similarity, nil
}

// truncateForAnalysis keeps the head and tail of a long original text so
// the analysis prompt stays under the model input limit.
func truncateForAnalysis(text string) string {
	runes := []rune(text)
	if len(runes) <= analysisInputLimit {
		return text
	}
	return string(runes[:analysisEdgeKeep]) + "\n\n[...text truncated...]\n\n" + string(runes[len(runes)-analysisEdgeKeep:])
}
