package util

import (
	"fmt"
	"strings"
)

// SanitizeModelOutput flattens whitespace control characters and replaces
// literal '#' characters with a textual placeholder so the raw model response
// can be safely embedded in JSON and markdown contexts.
func SanitizeModelOutput(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	s = strings.ReplaceAll(s, "#", "(Hashtag)")
	return s
}

// ExtractJSONObject returns the first balanced top-level {...} object found in
// the input, tolerating wrapper text the model may emit before or after it.
// Braces inside JSON strings are ignored.
func ExtractJSONObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", fmt.Errorf("no JSON object found in input")
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}

	return "", fmt.Errorf("unterminated JSON object in input")
}

// JoinNonEmpty joins the non-empty elements of parts with sep.
func JoinNonEmpty(parts []string, sep string) string {
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
