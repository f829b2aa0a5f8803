package roles

import (
	"encoding/json"
	"strings"
)

// ParseContent interprets a model response for the given spec. Well-formed
// JSON objects are returned as-is. Anything else is wrapped under the spec's
// fallback field, with the remaining expected fields set to empty values, so
// downstream consumers always see the same shape.
func ParseContent(spec *Spec, text string) map[string]any {
	candidate := strings.TrimSpace(text)
	if fenced := stripFence(candidate); fenced != "" {
		candidate = fenced
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
		return parsed
	}

	result := map[string]any{spec.FallbackField: text}
	for field, empty := range spec.EmptyFields {
		result[field] = empty
	}
	return result
}

// stripFence extracts the body of a Markdown code fence, or returns "" when
// the text is not fenced. Models often wrap JSON answers this way.
func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return ""
	}
	rest := text[3:]
	if newline := strings.IndexByte(rest, '\n'); newline >= 0 {
		// Drop the language tag line.
		rest = rest[newline+1:]
	}
	end := strings.LastIndex(rest, "```")
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}
