package multipass

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ExtractJSON returns the first complete JSON object or array embedded in
// content. Code fences around the payload are stripped, and brace or
// bracket characters inside quoted strings do not affect the balance scan.
func ExtractJSON(content string) (string, error) {
	cleaned := stripCodeFences(strings.TrimSpace(content))

	start := strings.IndexAny(cleaned, "{[")
	if start == -1 {
		return "", errors.New("no json object or array found in text")
	}
	open := cleaned[start]

	braces := 0
	brackets := 0
	inString := false
	escaped := false
	for i := start; i < len(cleaned); i++ {
		c := cleaned[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
			continue
		case '"':
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case '{':
			braces++
		case '}':
			braces--
		case '[':
			brackets++
		case ']':
			brackets--
		}
		if open == '{' && braces == 0 {
			return cleaned[start : i+1], nil
		}
		if open == '[' && brackets == 0 {
			return cleaned[start : i+1], nil
		}
	}
	return "", errors.New("incomplete json in text")
}

// stripCodeFences removes a surrounding markdown fence: the opening fence
// line (with any language tag) and a trailing fence line when present.
func stripCodeFences(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}
	lines := strings.Split(content, "\n")
	lines = lines[1:]
	if len(lines) > 0 && strings.HasPrefix(lines[len(lines)-1], "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// decodeStagePayload extracts and parses the first JSON value in content.
func decodeStagePayload(content string) (any, error) {
	fragment, err := ExtractJSON(content)
	if err != nil {
		return nil, err
	}
	var value any
	if err := json.Unmarshal([]byte(fragment), &value); err != nil {
		return nil, fmt.Errorf("parse extracted json: %w", err)
	}
	return value, nil
}

// jsonType names a decoded JSON value for contract error messages.
func jsonType(v any) string {
	switch v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}
