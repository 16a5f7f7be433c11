package multipass

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// promptInputLimit caps how much clean subtitle text is embedded in the
// analyze and core-extract prompts.
const promptInputLimit = 10000

const analyzeTemplate = `You are a YouTube Story Analyzer.

INPUT:
Clean subtitles from a YouTube video (ORIGINAL_STORY):
%s

%s

TASK:
Analyze this story and provide recommendations for optimal slide structure.

OUTPUT (JSON only, no explanations, no markdown):
{
    "avg_wpm_guess": number,
    "pacing_risk": "low|medium|high",
    "recommended_slide_sec": number (typically 45-75, around 1 minute per slide),
    "recommended_slide_count": integer,
    "target_chars_per_slide": integer (computed from TARGET/slide_count),
    "tone_target": "neutral|intimate|cold|energetic",
    "notes": "string"
}

DO NOT include anything outside JSON. No markdown.`

const coreTemplate = `You are a Story Core Architect for YouTube retention.

INPUT:
%s

ANALYSIS:
%s

TASK:
Extract the core conflict and structure that will drive retention.

OUTPUT (JSON only, no explanations, no markdown):
{
    "core_conflict": "string",
    "promise_to_viewer": "string",
    "stakes": "string",
    "hidden_reveal": "string",
    "twist_timing": "early|mid|late",
    "ending_payoff": "string"
}

DO NOT include anything outside JSON. No markdown.`

const beatsTemplate = `You are a Beat Architect for YouTube storytelling.

STORY CORE:
%s

ANALYZER RECOMMENDATIONS:
%s

TARGET SLIDE COUNT: %d

TASK:
Design beat-by-beat structure for each slide.

OUTPUT (JSON array only, no markdown):
[
    {
        "slide": 1,
        "beat_goal": "string",
        "pressure": "string",
        "reveal": "string",
        "viewer_question": "string",
        "physical_anchor": "string"
    },
    ...
]

DO NOT include anything outside JSON. No markdown.`

const narrateTemplate = `You are a Narration Controller for YouTube stories.

STORY CORE:
%s

BEATS:
%s

TARGET CHARACTER COUNT: %s
TONE: %s

TASK:
Write the actual narrative for each slide following the beats.

CRITICAL REQUIREMENTS:
- Output MUST be a JSON array
- Each slide MUST have exactly: {"Text":"{...}","Prompt":"{...}"}
- Text: The spoken narration (wrapped in braces { })
- Prompt: Voice style instructions for TTS (wrapped in braces { }, rich but concise)
- Stay close to target character count ±10%%
- Use conversational, first-person POV where appropriate
- Show don't tell, no moralizing

FORMAT RULES:
- Text and Prompt MUST include braces { }
- DO NOT include anything outside JSON
- No markdown
- No explanations

OUTPUT (JSON array only):
[
    {"Text":"{Your narration here}","Prompt":"{Voice delivery style}"},
    {"Text":"{Slide 2 narration}","Prompt":"{Voice style 2}"},
    ...
]

DO NOT include anything outside JSON. No markdown.`

const judgeTemplate = `You are a Quality Judge for YouTube stories.

GENERATED SLIDES:
%s

STORY CORE:
%s

TASK:
Evaluate the generated slides and identify issues. Repair if needed.

EVALUATION CRITERIA:
- Hook strength (slides 1-2)
- Retention chain (unresolved loops)
- Pacing consistency
- POV consistency
- Repetition or filler
- Ending impact

OUTPUT (JSON only, no markdown):
{
    "status": "pass|fail",
    "issues": [
        {"slide": integer, "problem": "string", "fix": "string"}
    ],
    "repaired_slides": [
        {"slide": integer, "Text": "{...}", "Prompt": "{...}"}
    ]
}

If status is "pass", repaired_slides can be empty.
If status is "fail", provide repaired versions of problematic slides only.

DO NOT include anything outside JSON. No markdown.`

const repairTemplate = `The following text should be valid JSON but has errors. Fix it and output ONLY valid JSON, nothing else.

TEXT TO REPAIR:
%s

OUTPUT REQUIREMENTS:
- Valid JSON only
- No explanations
- No markdown
- No code fences`

func analyzePrompt(cleanText string, targetChars int) string {
	targetLine := ""
	if targetChars > 0 {
		targetLine = fmt.Sprintf("TARGET CHARACTER COUNT: %d", targetChars)
	}
	return fmt.Sprintf(analyzeTemplate, cleanText, targetLine)
}

func corePrompt(cleanText string, analysis map[string]any) string {
	return fmt.Sprintf(coreTemplate, cleanText, renderJSON(analysis))
}

func beatsPrompt(core, analysis map[string]any, slideCount int) string {
	return fmt.Sprintf(beatsTemplate, renderJSON(core), renderJSON(analysis), slideCount)
}

func narratePrompt(core map[string]any, beats []any, targetChars int, tone string) string {
	target := "flexible"
	if targetChars > 0 {
		target = strconv.Itoa(targetChars)
	}
	return fmt.Sprintf(narrateTemplate, renderJSON(core), renderJSON(beats), target, tone)
}

func judgePrompt(slides []Slide, core map[string]any) string {
	return fmt.Sprintf(judgeTemplate, renderJSON(slides), renderJSON(core))
}

func repairPrompt(broken string) string {
	return fmt.Sprintf(repairTemplate, broken)
}

// renderJSON pretty-prints a stage value for embedding in a prompt.
func renderJSON(v any) string {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(out)
}

// truncateRunes shortens s to at most limit runes.
func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
