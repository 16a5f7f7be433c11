package fetch

import (
	"regexp"

	"retell/internal/services"
)

// The watch/short/embed forms cover the URL shapes users paste; the second
// pattern catches v= buried behind other query parameters.
var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/watch\?.*v=([a-zA-Z0-9_-]{11})`),
}

// ParseVideoID extracts the 11-character video identifier from a YouTube
// URL.
func ParseVideoID(url string) (string, error) {
	for _, pattern := range videoIDPatterns {
		if match := pattern.FindStringSubmatch(url); match != nil {
			return match[1], nil
		}
	}
	return "", services.Wrap(services.ErrInvalidInput, "fetch", "parse url", "not a recognizable youtube video url", nil)
}
