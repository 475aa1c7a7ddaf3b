package ai

import (
	"encoding/json"
	"strings"
)

// ExtractEmbeddedJSON pulls the JSON object out of free-form model output.
// Only the span from the first '{' to the last '}' is tried; it returns nil
// when that span does not parse as one object.
func ExtractEmbeddedJSON(text string) map[string]any {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &out); err != nil {
		return nil
	}
	return out
}
