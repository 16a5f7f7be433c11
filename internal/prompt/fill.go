package prompt

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"retell/internal/services"
)

var (
	storyCoreSitePattern  = regexp.MustCompile(`(STORY_CORE:\s*\{)[^}]*(\})`)
	targetSitePattern     = regexp.MustCompile(`(TARGET_LENGTH_CHARS:\s*)\{[^}]*\}`)
	slideCountSitePattern = regexp.MustCompile(`(SLIDE_COUNT:\s*)\{[^}]*\}`)
)

// FillStoryCore fills the ORIGINAL_STORY block of the story-core template
// with the cleaned subtitle text. The template contract is strict: the
// ORIGINAL_STORY label and the CORE OBJECTIVE section that terminates it
// must both be present, and a failure names whichever piece is missing.
func FillStoryCore(template, originalStory string) (string, error) {
	if strings.TrimSpace(originalStory) == "" {
		return "", services.Wrap(services.ErrInvalidInput, "prompt", "fill_story_core",
			"original story text is empty", nil)
	}
	value := strings.TrimRightFunc(originalStory, unicode.IsSpace)

	if result, ok := replaceBlockBeforeObjective(value)(template); ok {
		return result, nil
	}
	if !strings.Contains(template, labelOriginalStory) {
		return "", services.Wrap(services.ErrContract, "prompt", "fill_story_core",
			"story core template is missing the 'ORIGINAL_STORY:' label", nil)
	}
	if !strings.Contains(template, "CORE OBJECTIVE") {
		return "", services.Wrap(services.ErrContract, "prompt", "fill_story_core",
			"story core template is missing the 'CORE OBJECTIVE' section after 'ORIGINAL_STORY:'", nil)
	}
	return "", services.Wrap(services.ErrContract, "prompt", "fill_story_core",
		"story core template has no ORIGINAL_STORY block that can be replaced", nil)
}

// FillStory fills the braced variable sites of the story template. Plain
// single-brace placeholders serve as fallbacks for templates without labeled
// sites. A slideCount of zero or less means no slide count was requested and
// any slide-count site is left untouched.
func FillStory(template, storyCore string, targetChars, slideCount int) string {
	result := replaceFirstSite(storyCoreSitePattern, template, func(groups []string) string {
		return groups[1] + storyCore + groups[2]
	})
	if result == template {
		result = strings.ReplaceAll(result, "{STORY_CORE}", storyCore)
	}

	target := strconv.Itoa(targetChars)
	result = replaceFirstSite(targetSitePattern, result, func(groups []string) string {
		return groups[1] + target
	})
	result = strings.ReplaceAll(result, "{TARGET_LENGTH_CHARS}", target)

	if slideCount > 0 {
		count := strconv.Itoa(slideCount)
		result = replaceFirstSite(slideCountSitePattern, result, func(groups []string) string {
			return groups[1] + count
		})
		result = strings.ReplaceAll(result, "{SLIDE_COUNT}", count)
	}
	return result
}

// replaceFirstSite rewrites only the first match of pattern; a template
// carries one logical site per variable.
func replaceFirstSite(pattern *regexp.Regexp, text string, rewrite func(groups []string) string) string {
	loc := pattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return text
	}
	groups := make([]string, 0, len(loc)/2)
	for i := 0; i < len(loc); i += 2 {
		if loc[i] < 0 {
			groups = append(groups, "")
			continue
		}
		groups = append(groups, text[loc[i]:loc[i+1]])
	}
	return text[:loc[0]] + rewrite(groups) + text[loc[1]:]
}
