package subtitles

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxChars caps clean text length when no explicit limit is given.
const DefaultMaxChars = 200000

// Stats reports how much text phrase-level deduplication removed.
type Stats struct {
	CharsBefore int     `json:"clean_chars_before_dedupe"`
	CharsAfter  int     `json:"clean_chars_after_dedupe"`
	Ratio       float64 `json:"dedupe_ratio"`
	Removed     int     `json:"removed_chars"`
}

var (
	cueTimingPattern    = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}[.,]\d{3}\s*-->\s*\d{2}:\d{2}:\d{2}[.,]\d{3}`)
	cueIndexPattern     = regexp.MustCompile(`^\d+$`)
	markupTagPattern    = regexp.MustCompile(`<[^>]+>`)
	cueSettingPattern   = regexp.MustCompile(`^\S+:\s*`)
	spaceRunPattern     = regexp.MustCompile(` +`)
	blankRunPattern     = regexp.MustCompile(`\n\s*\n+`)
	sentenceEndPattern  = regexp.MustCompile(`[.!?]\s+`)
	trailingStopPattern = regexp.MustCompile(`[.!?]\s*$`)
)

// Normalize converts a raw subtitle track into clean prose text capped at
// DefaultMaxChars. See NormalizeWithLimit.
func Normalize(raw string) (string, Stats) {
	return NormalizeWithLimit(raw, DefaultMaxChars)
}

// NormalizeWithLimit converts a raw subtitle track into clean prose text.
// Structural noise (headers, cue timings, cue indices, style blocks, markup
// tags) is stripped, caption lines split mid-sentence are rejoined, and
// repeated content is collapsed line by line, sentence by sentence, and
// phrase by phrase. The returned stats describe the phrase-level pass.
func NormalizeWithLimit(raw string, maxChars int) (string, Stats) {
	if raw == "" {
		return "", Stats{}
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	lines := strings.Split(raw, "\n")
	kept := stripStructure(lines)
	kept = dedupeConsecutiveLines(kept)
	result := joinContinuations(kept)

	result = spaceRunPattern.ReplaceAllString(result, " ")
	result = blankRunPattern.ReplaceAllString(result, "\n")
	result = dedupeConsecutiveSentences(result)
	result = strings.TrimSpace(result)

	before := utf8.RuneCountInString(result)
	result = CollapseRepeatedPhrases(result)

	// A track whose every line looked structural should still not come out
	// empty when it had visible text.
	if result == "" {
		if fallback := extractVisibleText(lines); fallback != "" {
			result = CollapseRepeatedPhrases(fallback)
		}
	}

	result = capLength(result, maxChars)

	after := utf8.RuneCountInString(result)
	stats := Stats{
		CharsBefore: before,
		CharsAfter:  after,
		Removed:     before - after,
		Ratio:       1.0,
	}
	if before > 0 {
		stats.Ratio = float64(after) / float64(before)
	}
	return result, stats
}

// stripStructure drops caption-format scaffolding and returns the visible
// text lines, markup tags removed and a single leading cue-settings key
// stripped per line.
func stripStructure(lines []string) []string {
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "WEBVTT") {
			continue
		}
		if cueTimingPattern.MatchString(line) {
			continue
		}
		if cueIndexPattern.MatchString(trimmed) {
			continue
		}
		if strings.HasPrefix(trimmed, "NOTE") || strings.HasPrefix(trimmed, "STYLE") {
			continue
		}
		line = markupTagPattern.ReplaceAllString(line, "")
		line = cueSettingPattern.ReplaceAllString(line, "")
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return kept
}

// dedupeConsecutiveLines keeps at most two consecutive occurrences of the
// same line, compared case-insensitively. Auto caption tracks often reissue
// a line across many cues.
func dedupeConsecutiveLines(lines []string) []string {
	kept := make([]string, 0, len(lines))
	prev := ""
	havePrev := false
	repeats := 0
	for _, line := range lines {
		normalized := strings.ToLower(strings.TrimSpace(line))
		if havePrev && normalized == prev {
			repeats++
			if repeats >= 2 {
				continue
			}
			kept = append(kept, line)
			continue
		}
		repeats = 0
		prev = normalized
		havePrev = true
		kept = append(kept, line)
	}
	return kept
}

// joinContinuations appends a line to the previous one when that line does
// not end in terminal punctuation, reassembling sentences split across cues.
func joinContinuations(lines []string) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		if len(parts) > 0 && !trailingStopPattern.MatchString(parts[len(parts)-1]) {
			parts[len(parts)-1] += " " + line
		} else {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, "\n")
}

// dedupeConsecutiveSentences drops sentence chunks that repeat the
// immediately preceding chunk, ignoring case and surrounding whitespace.
func dedupeConsecutiveSentences(text string) string {
	chunks := splitSentences(text)
	kept := make([]string, 0, len(chunks))
	prev := ""
	havePrev := false
	for _, chunk := range chunks {
		normalized := strings.ToLower(strings.TrimSpace(chunk))
		if normalized == "" {
			continue
		}
		if havePrev && normalized == prev {
			continue
		}
		kept = append(kept, chunk)
		prev = normalized
		havePrev = true
	}
	return strings.Join(kept, "")
}

// splitSentences splits on terminal punctuation, keeping the punctuation and
// its trailing whitespace with the sentence it ends.
func splitSentences(text string) []string {
	if text == "" {
		return nil
	}
	boundaries := sentenceEndPattern.FindAllStringIndex(text, -1)
	if len(boundaries) == 0 {
		return []string{text}
	}
	sentences := make([]string, 0, len(boundaries)+1)
	start := 0
	for _, b := range boundaries {
		sentences = append(sentences, text[start:b[1]])
		start = b[1]
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}

// extractVisibleText re-extracts caption lines directly when the main
// pipeline eats everything, keeping any line longer than two characters.
func extractVisibleText(lines []string) string {
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "WEBVTT") ||
			strings.HasPrefix(line, "NOTE") || strings.HasPrefix(line, "STYLE") {
			continue
		}
		if cueTimingPattern.MatchString(line) || cueIndexPattern.MatchString(line) {
			continue
		}
		line = strings.TrimSpace(markupTagPattern.ReplaceAllString(line, ""))
		if utf8.RuneCountInString(line) > 2 {
			kept = append(kept, line)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	joined := strings.Join(kept, " ")
	return strings.TrimSpace(spaceRunPattern.ReplaceAllString(joined, " "))
}

// capLength truncates text above the limit, preferring the last sentence or
// line boundary when it falls inside the final fifth of the cap.
func capLength(text string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	truncated := runes[:maxChars]
	boundary := -1
	for i := len(truncated) - 1; i >= 0; i-- {
		r := truncated[i]
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			boundary = i
			break
		}
	}
	if boundary >= 0 && float64(boundary) > float64(maxChars)*0.8 {
		return string(truncated[:boundary+1])
	}
	return string(truncated)
}
