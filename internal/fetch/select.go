package fetch

import (
	"golang.org/x/text/language"

	"retell/internal/services/ytdlp"
)

// selectTrack picks the subtitle track to download: the preferred kind is
// searched across every requested language in order before the other kind
// is tried at all.
func selectTrack(info *ytdlp.VideoInfo, requested []string, preferManual bool) (lang string, auto bool, ok bool) {
	type trackKind struct {
		langs []string
		auto  bool
	}
	order := []trackKind{
		{langs: info.ManualLangs, auto: false},
		{langs: info.AutoLangs, auto: true},
	}
	if !preferManual {
		order[0], order[1] = order[1], order[0]
	}
	for _, kind := range order {
		if match, found := matchLanguage(kind.langs, requested); found {
			return match, kind.auto, true
		}
	}
	return "", false, false
}

// matchLanguage resolves each requested language against the available
// track codes, exact code first, then tag matching so a request for "en"
// still finds an "en-US" track. Returns the available code to pass to the
// downloader.
func matchLanguage(available, requested []string) (string, bool) {
	if len(available) == 0 {
		return "", false
	}
	exact := make(map[string]struct{}, len(available))
	for _, code := range available {
		exact[code] = struct{}{}
	}

	tags := make([]language.Tag, 0, len(available))
	codes := make([]string, 0, len(available))
	for _, code := range available {
		tag, err := language.Parse(code)
		if err != nil {
			// Track codes like "en-orig" stay reachable through the
			// exact tier.
			continue
		}
		tags = append(tags, tag)
		codes = append(codes, code)
	}
	var matcher language.Matcher
	if len(tags) > 0 {
		matcher = language.NewMatcher(tags)
	}

	for _, want := range requested {
		if _, found := exact[want]; found {
			return want, true
		}
		if matcher == nil {
			continue
		}
		desired, err := language.Parse(want)
		if err != nil {
			continue
		}
		if _, idx, conf := matcher.Match(desired); conf >= language.High {
			return codes[idx], true
		}
	}
	return "", false
}
