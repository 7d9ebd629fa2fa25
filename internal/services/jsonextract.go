package services

import "strings"

// extractBalanced scans text for the first balanced open...close run,
// honoring JSON string literals and escapes so braces inside strings don't
// terminate the scan. Returns "" when no balanced run exists.
func extractBalanced(text string, open, close byte) string {
	start := strings.IndexByte(text, open)
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
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
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// extractJSONObject returns the first balanced {...} object embedded in
// text, typically a model response that wraps JSON in prose.
func extractJSONObject(text string) string {
	return extractBalanced(text, '{', '}')
}

// extractJSONArray returns the first balanced [...] array embedded in text.
func extractJSONArray(text string) string {
	return extractBalanced(text, '[', ']')
}
