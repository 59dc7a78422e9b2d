// Package validate recovers JSON payloads from raw model output and
// checks them against the expected result shapes. Parse and schema
// failures are typed so callers can absorb them with bounded retries.
package validate

import "strings"

// ExtractJSON pulls a JSON document out of text that may wrap it in
// markdown fencing or surrounding prose. Search order: a ```json fence,
// then any fence (skipping a language-tag line), then the first balanced
// top-level object or array found by bracket matching. Returns false if
// nothing extractable is found.
func ExtractJSON(text string) (string, bool) {
	text = strings.TrimSpace(text)

	if idx := strings.Index(text, "```json"); idx != -1 {
		start := idx + len("```json")
		if end := strings.Index(text[start:], "```"); end != -1 {
			// An empty fence carries nothing extractable; fall through
			// to the other strategies.
			if span := strings.TrimSpace(text[start : start+end]); span != "" {
				return span, true
			}
		}
	}

	if idx := strings.Index(text, "```"); idx != -1 {
		start := idx + 3
		// Skip a language identifier line unless the fence body already
		// starts with the JSON payload.
		head := strings.TrimSpace(peek(text, start, 10))
		if !strings.HasPrefix(head, "{") && !strings.HasPrefix(head, "[") {
			if nl := strings.Index(text[start:], "\n"); nl != -1 {
				start += nl + 1
			}
		}
		if end := strings.Index(text[start:], "```"); end != -1 {
			if span := strings.TrimSpace(text[start : start+end]); span != "" {
				return span, true
			}
		}
	}

	for _, pair := range [][2]byte{{'{', '}'}, {'[', ']'}} {
		if span, ok := balancedSpan(text, pair[0], pair[1]); ok {
			return span, true
		}
	}

	return "", false
}

func peek(s string, start, n int) string {
	if start >= len(s) {
		return ""
	}
	end := start + n
	if end > len(s) {
		end = len(s)
	}
	return s[start:end]
}

// balancedSpan finds the first balanced open..close span, tracking only
// the nesting depth of the requested bracket kind.
func balancedSpan(text string, open, close byte) (string, bool) {
	start := strings.IndexByte(text, open)
	if start == -1 {
		return "", false
	}
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
