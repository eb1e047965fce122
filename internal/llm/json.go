package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON finds the first well-formed JSON object or array in text.
// Models frequently wrap structured output in markdown fences or prose;
// the caller gets the bare value or an error.
func ExtractJSON(text string) (json.RawMessage, error) {
	text = StripCodeFences(text)

	for i := 0; i < len(text); i++ {
		if text[i] != '{' && text[i] != '[' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err == nil {
			return raw, nil
		}
	}
	return nil, fmt.Errorf("no JSON value found in response")
}

// StripCodeFences removes a surrounding markdown code fence, if present.
func StripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	// Drop the opening fence line (which may carry a language tag).
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[idx+1:]
	} else {
		return strings.TrimPrefix(text, "```")
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
