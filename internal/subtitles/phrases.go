package subtitles

import (
	"regexp"
	"strings"
)

// minPhraseTokens is the shortest text, in tokens, worth scanning for repeats.
const minPhraseTokens = 6

var spaceTabPattern = regexp.MustCompile(`[ \t]+`)

// tokenQuoteReplacer maps typographic quotes to their plain forms so tokens
// compare equal across caption styles.
var tokenQuoteReplacer = strings.NewReplacer(
	"“", `"`,
	"”", `"`,
	"‘", "'",
	"’", "'",
)

// isTokenPunct reports whether r is punctuation stripped from token edges.
func isTokenPunct(r rune) bool {
	switch r {
	case '.', ',', '!', '?', ';', ':', '(', ')', '[', ']', '{', '}', '"', '\'',
		'“', '”', '‘', '’':
		return true
	}
	return false
}

// normalizeToken lowercases a token and strips punctuation from both ends.
// Interior apostrophes survive, so "don't" stays distinct from "dont".
func normalizeToken(token string) string {
	normalized := strings.ToLower(token)
	normalized = strings.TrimFunc(normalized, isTokenPunct)
	return tokenQuoteReplacer.Replace(normalized)
}

// CollapseRepeatedPhrases removes consecutive repeats of token phrases.
// Windows run from 18 tokens down to 3 so a long repeated sentence collapses
// whole before the shorter repeats inside it are considered. Every deletion
// re-tests the same position, since removing one run can expose another.
func CollapseRepeatedPhrases(text string) string {
	if text == "" {
		return text
	}

	text = spaceTabPattern.ReplaceAllString(text, " ")

	tokens := strings.Fields(text)
	if len(tokens) < minPhraseTokens {
		return text
	}

	normTokens := make([]string, len(tokens))
	for i, token := range tokens {
		normTokens[i] = normalizeToken(token)
	}

	for period := 18; period >= 3; period-- {
		if period > len(tokens)/2 {
			continue
		}
		i := 0
		for i+2*period <= len(tokens) {
			if !phrasesEqual(normTokens, i, i+period, period) {
				i++
				continue
			}
			j := i + period
			for j+period <= len(tokens) && phrasesEqual(normTokens, i, j, period) {
				j += period
			}
			tokens = append(tokens[:i+period], tokens[j:]...)
			normTokens = append(normTokens[:i+period], normTokens[j:]...)
		}
	}

	return strings.Join(tokens, " ")
}

// phrasesEqual reports whether the period-length windows at a and b hold the
// same normalized tokens.
func phrasesEqual(norm []string, a, b, period int) bool {
	for k := 0; k < period; k++ {
		if norm[a+k] != norm[b+k] {
			return false
		}
	}
	return true
}
