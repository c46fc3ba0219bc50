package llm

import (
	"bytes"
	"encoding/json"
)

// ParseJSON decodes LLM output into target, stripping markdown code fences
// first. Failures come back as *ParseError so the caller can make an explicit,
// logged decision to fall back to rule-based analysis.
func ParseJSON(content string, target interface{}) error {
	stripped := ExtractJSON(content)
	if err := json.Unmarshal([]byte(stripped), target); err != nil {
		return &ParseError{Content: content, Err: err}
	}
	return nil
}

// ExtractJSON extracts JSON from markdown code blocks
func ExtractJSON(content string) string {
	start := -1
	end := -1

	contentBytes := []byte(content)
	if idx := bytes.Index(contentBytes, []byte("```json")); idx >= 0 {
		start = idx + 7
	} else if idx := bytes.Index(contentBytes, []byte("```")); idx >= 0 {
		start = idx + 3
	}

	if start >= 0 {
		if idx := bytes.Index(contentBytes[start:], []byte("```")); idx >= 0 {
			end = start + idx
			content = content[start:end]
		}
	}

	return string(bytes.TrimSpace([]byte(content)))
}
