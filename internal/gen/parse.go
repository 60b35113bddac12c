package gen

// parse.go extracts JSON payloads from Gemini responses. Even with a JSON
// instruction in the prompt, the model sometimes wraps its answer in
// markdown code fences or leads with prose, so responses are fenced-stripped
// and delimiter-matched before unmarshalling.

import (
	"encoding/json"
	"fmt"
	"strings"
)

// stripFences removes ```json ... ``` (or bare ```) wrapping, returning the
// fenced content or the original text when no fences are present.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return text
	}

	end := len(lines) - 1
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			end = i
			break
		}
	}
	return strings.Join(lines[1:end], "\n")
}

// extractJSON returns the first JSON object or array embedded in text.
func extractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)

	objIdx := strings.Index(text, "{")
	arrIdx := strings.Index(text, "[")
	if objIdx == -1 && arrIdx == -1 {
		return "", fmt.Errorf("no JSON content found")
	}

	start, closer := objIdx, "}"
	if objIdx == -1 || (arrIdx != -1 && arrIdx < objIdx) {
		start, closer = arrIdx, "]"
	}

	text = text[start:]
	end := strings.LastIndex(text, closer)
	if end == -1 {
		return "", fmt.Errorf("no closing %s found", closer)
	}
	return text[:end+1], nil
}

// parseJSON strips fences, extracts the JSON payload from raw model output,
// and unmarshals it into T.
func parseJSON[T any](raw string) (T, error) {
	var result T

	payload, err := extractJSON(stripFences(raw))
	if err != nil {
		return result, fmt.Errorf("extract JSON from response: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return result, fmt.Errorf("unmarshal response JSON: %w", err)
	}
	return result, nil
}
