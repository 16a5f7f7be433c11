package prompt

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Variable labels recognized in prompt templates.
const (
	labelOriginalStory = "ORIGINAL_STORY:"
	labelStoryCore     = "STORY_CORE:"
	labelTargetLength  = "TARGET_LENGTH_CHARS:"
	labelSlideCount    = "SLIDE_COUNT:"
)

var (
	// sectionHeaderPattern marks the start of the next all-caps section
	// header, which terminates an unbraced multi-line block.
	sectionHeaderPattern = regexp.MustCompile(`\n[A-Z][A-Z\s]{3,}:`)

	coreObjectivePattern    = regexp.MustCompile(`\nCORE OBJECTIVE\b`)
	inputVariablesPattern   = regexp.MustCompile(`INPUT VARIABLES[^\n]*\n`)
	globalRulesPattern      = regexp.MustCompile(`GLOBAL HARD RULES[^\n]*\n`)
	targetLengthLinePattern = regexp.MustCompile(`TARGET_LENGTH_CHARS:\s*\d+\s*\n`)
	storyCoreBracedPattern  = regexp.MustCompile(`STORY_CORE:\s*\{[^}]*\}\s*\n`)
)

const autoSlideGuard = "Choose the number of slides automatically"

const autoSlideInstruction = "Choose the number of slides automatically based on TARGET_LENGTH_CHARS.\n" +
	"Avoid giant blocks; break frequently into short spoken slides.\n\n"

// strategy attempts one injection mechanism against a template. It reports
// whether it applied so callers can fall through to the next mechanism.
type strategy func(template string) (string, bool)

// apply runs strategies in order and returns the first successful
// transformation, or the template unchanged.
func apply(template string, strategies ...strategy) string {
	for _, s := range strategies {
		if result, ok := s(template); ok {
			return result
		}
	}
	return template
}

// InjectSubtitles places subtitle text into a story-core prompt template.
// Resolution order: the {{SUBTITLES}} placeholder, an existing
// ORIGINAL_STORY block, insertion ahead of the CORE OBJECTIVE section, and
// finally appending a fresh block. Re-injection replaces the previous value
// in place rather than duplicating the block.
func InjectSubtitles(promptText, subtitles string) string {
	if strings.TrimSpace(subtitles) == "" {
		return promptText
	}
	value := strings.TrimRightFunc(subtitles, unicode.IsSpace)
	return apply(promptText,
		replacePlaceholder("{{SUBTITLES}}", value),
		replaceBlockBeforeObjective(value),
		replaceLabeledBlock(labelOriginalStory, value),
		insertBeforeObjective(labelOriginalStory, value),
		appendBlock(labelOriginalStory, value),
	)
}

// InjectStoryCore places the distilled story core into a prompt template.
// Resolution order: the {{STORY_CORE}} placeholder, an existing STORY_CORE
// block, insertion under the INPUT VARIABLES heading, and finally prepending
// a fresh block at the top.
func InjectStoryCore(promptText, storyCore string) string {
	if strings.TrimSpace(storyCore) == "" {
		return promptText
	}
	value := strings.TrimRightFunc(storyCore, unicode.IsSpace)
	return apply(promptText,
		replacePlaceholder("{{STORY_CORE}}", value),
		replaceLabeledBlock(labelStoryCore, value),
		insertAfterInputVariables(labelStoryCore, value),
		prependBlock(labelStoryCore, value),
	)
}

// InjectAll prepares a story prompt in one shot. The story core and the
// numeric length target are each resolved through the placeholder, labeled
// block, and insertion tiers. Slide-count directives are stripped since the
// model now chooses the slide count itself, and an instruction saying so is
// appended when the template does not already carry one.
func InjectAll(promptText, storyCore string, targetChars int) string {
	if promptText == "" {
		return promptText
	}
	result := promptText

	coreValue := strings.TrimRightFunc(storyCore, unicode.IsSpace)
	if strings.Contains(result, "{{STORY_CORE}}") {
		result = strings.ReplaceAll(result, "{{STORY_CORE}}", coreValue)
	} else if strings.TrimSpace(storyCore) != "" {
		result = apply(result,
			replaceLabeledBlock(labelStoryCore, coreValue),
			insertAfterInputVariables(labelStoryCore, coreValue),
			prependBlock(labelStoryCore, coreValue),
		)
	}

	target := strconv.Itoa(targetChars)
	if strings.Contains(result, "{{TARGET_LENGTH_CHARS}}") {
		result = strings.ReplaceAll(result, "{{TARGET_LENGTH_CHARS}}", target)
	} else if strings.Contains(result, labelTargetLength) {
		result = replaceBareBlock(result, labelTargetLength, target)
	} else {
		result = insertTargetBlock(result, target)
	}

	result = strings.ReplaceAll(result, "{{SLIDE_COUNT}}", "")
	result = stripSlideCountBlocks(result)
	return ensureAutoSlideInstruction(result)
}

// replacePlaceholder substitutes every occurrence of an explicit
// {{...}} placeholder.
func replacePlaceholder(placeholder, value string) strategy {
	return func(template string) (string, bool) {
		if !strings.Contains(template, placeholder) {
			return template, false
		}
		return strings.ReplaceAll(template, placeholder, value), true
	}
}

// replaceBlockBeforeObjective rewrites an ORIGINAL_STORY block that runs up
// to the CORE OBJECTIVE section, keeping the section in place.
func replaceBlockBeforeObjective(value string) strategy {
	return func(template string) (string, bool) {
		labelAt := strings.Index(template, labelOriginalStory)
		if labelAt < 0 {
			return template, false
		}
		contentStart := labelAt + len(labelOriginalStory)
		loc := coreObjectivePattern.FindStringIndex(template[contentStart:])
		if loc == nil {
			return template, false
		}
		terminatorAt := contentStart + loc[0]
		return template[:labelAt] + bracedBlock(labelOriginalStory, value) + trimLeadingSpace(template[terminatorAt:]), true
	}
}

// replaceLabeledBlock rewrites the first block carrying the label, whatever
// shape its current content takes.
func replaceLabeledBlock(label, value string) strategy {
	return func(template string) (string, bool) {
		start := strings.Index(template, label)
		if start < 0 {
			return template, false
		}
		end := blockEnd(template, start+len(label))
		return template[:start] + bracedBlock(label, value) + trimLeadingSpace(template[end:]), true
	}
}

// insertBeforeObjective adds a fresh block immediately ahead of the CORE
// OBJECTIVE section.
func insertBeforeObjective(label, value string) strategy {
	return func(template string) (string, bool) {
		loc := coreObjectivePattern.FindStringIndex(template)
		if loc == nil {
			return template, false
		}
		return template[:loc[0]] + "\n" + bracedBlock(label, value) + trimLeadingSpace(template[loc[0]:]), true
	}
}

// insertAfterInputVariables adds a fresh block under the INPUT VARIABLES
// heading.
func insertAfterInputVariables(label, value string) strategy {
	return func(template string) (string, bool) {
		loc := inputVariablesPattern.FindStringIndex(template)
		if loc == nil {
			return template, false
		}
		return template[:loc[1]] + bracedBlock(label, value) + trimLeadingSpace(template[loc[1]:]), true
	}
}

// prependBlock puts a fresh block at the top of the template.
func prependBlock(label, value string) strategy {
	return func(template string) (string, bool) {
		return bracedBlock(label, value) + trimLeadingSpace(template), true
	}
}

// appendBlock puts a fresh block at the end of the template.
func appendBlock(label, value string) strategy {
	return func(template string) (string, bool) {
		return template + "\n\n" + bracedBlock(label, value), true
	}
}

// insertTargetBlock adds a TARGET_LENGTH_CHARS line to a template that has
// none, preferring a spot next to an existing STORY_CORE block under the
// INPUT VARIABLES heading.
func insertTargetBlock(template, target string) string {
	line := bareBlock(labelTargetLength, target)
	if inputVariablesPattern.MatchString(template) {
		if strings.Contains(template, labelStoryCore) {
			if result, ok := insertAfterStoryCoreBlock(template, line); ok {
				return result
			}
		}
		loc := inputVariablesPattern.FindStringIndex(template)
		return template[:loc[1]] + line + trimLeadingSpace(template[loc[1]:])
	}
	if strings.HasPrefix(template, labelStoryCore) {
		if result, ok := insertAfterStoryCoreBlock(template, line); ok {
			return result
		}
	}
	return line + trimLeadingSpace(template)
}

// insertAfterStoryCoreBlock puts line directly after a braced STORY_CORE
// block.
func insertAfterStoryCoreBlock(template, line string) (string, bool) {
	loc := storyCoreBracedPattern.FindStringIndex(template)
	if loc == nil {
		return template, false
	}
	return template[:loc[1]] + line + trimLeadingSpace(template[loc[1]:]), true
}

// replaceBareBlock rewrites the first block carrying the label with an
// unbraced value on the label's own line.
func replaceBareBlock(template, label, value string) string {
	start := strings.Index(template, label)
	if start < 0 {
		return template
	}
	end := blockEnd(template, start+len(label))
	return template[:start] + bareBlock(label, value) + trimLeadingSpace(template[end:])
}

// stripSlideCountBlocks removes every SLIDE_COUNT block.
func stripSlideCountBlocks(template string) string {
	for {
		start := strings.Index(template, labelSlideCount)
		if start < 0 {
			return template
		}
		end := blockEnd(template, start+len(labelSlideCount))
		template = template[:start] + trimLeadingSpace(template[end:])
	}
}

// ensureAutoSlideInstruction appends the automatic slide-count instruction
// once, under GLOBAL HARD RULES when that section exists, otherwise after
// the TARGET_LENGTH_CHARS line.
func ensureAutoSlideInstruction(template string) string {
	if strings.Contains(template, autoSlideGuard) || strings.Contains(template, "SLIDE_COUNT") {
		return template
	}
	if loc := globalRulesPattern.FindStringIndex(template); loc != nil {
		return template[:loc[1]] + "\n" + autoSlideInstruction + template[loc[1]:]
	}
	// The anchor swallows the blank line after the target; the instruction
	// carries its own trailing separator.
	if loc := targetLengthLinePattern.FindStringIndex(template); loc != nil {
		return template[:loc[1]] + "Note: " + autoSlideInstruction + template[loc[1]:]
	}
	return template
}

// bracedBlock renders the canonical form of a labeled block: the label on
// its own line, the value in braces, and a blank line after.
func bracedBlock(label, value string) string {
	return label + "\n{" + value + "}\n\n"
}

// bareBlock renders a single-line labeled block with an unbraced value.
func bareBlock(label, value string) string {
	return label + " " + value + "\n\n"
}

// trimLeadingSpace drops leading whitespace so canonical blocks always end
// with exactly one blank line before the next content. Repeated injection
// then reproduces the same text instead of accumulating separators.
func trimLeadingSpace(s string) string {
	return strings.TrimLeftFunc(s, unicode.IsSpace)
}

// blockEnd returns the exclusive end of the labeled-block content that
// begins at contentStart. Braced content ends at its matching brace.
// Unbraced content that starts on the label's own line ends with that line.
// Multi-line content runs to the next all-caps section header outside any
// braces, or to the end of the text.
func blockEnd(template string, contentStart int) int {
	i := contentStart
	sawNewline := false
	for i < len(template) && isSpaceByte(template[i]) {
		if template[i] == '\n' {
			sawNewline = true
		}
		i++
	}
	switch {
	case i >= len(template):
		return len(template)
	case template[i] == '{':
		if closing, ok := matchingBrace(template, i); ok {
			return closing + 1
		}
		return headerScanEnd(template, i)
	case !sawNewline:
		if nl := strings.IndexByte(template[i:], '\n'); nl >= 0 {
			return i + nl
		}
		return len(template)
	default:
		return headerScanEnd(template, i)
	}
}

// headerScanEnd finds the next section header at brace depth zero, or the
// end of the text.
func headerScanEnd(template string, from int) int {
	headerAt := make(map[int]bool)
	for _, loc := range sectionHeaderPattern.FindAllStringIndex(template[from:], -1) {
		headerAt[from+loc[0]] = true
	}
	depth := 0
	for i := from; i < len(template); i++ {
		switch template[i] {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case '\n':
			if depth == 0 && headerAt[i] {
				return i
			}
		}
	}
	return len(template)
}

// matchingBrace returns the index of the brace closing the one at open.
func matchingBrace(s string, open int) (int, bool) {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func isSpaceByte(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\n', '\v', '\f':
		return true
	}
	return false
}
