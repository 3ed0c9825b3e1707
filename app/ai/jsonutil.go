package ai

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	codeBlockPattern     = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?([\\[{].*[\\]}])\\s*```")
	objectPattern        = regexp.MustCompile(`(?s)\{.*\}`)
	arrayPattern         = regexp.MustCompile(`(?s)\[.*\]`)
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSON pulls a JSON value out of model output. Models wrap JSON in
// markdown fences or chatter often enough that plain decoding is not enough.
func ExtractJSON(content string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed), nil
	}

	candidates := []string{}
	if m := codeBlockPattern.FindStringSubmatch(trimmed); len(m) > 1 {
		candidates = append(candidates, m[1])
	}
	if m := objectPattern.FindString(trimmed); m != "" {
		candidates = append(candidates, m)
	}
	if m := arrayPattern.FindString(trimmed); m != "" {
		candidates = append(candidates, m)
	}

	for _, candidate := range candidates {
		for _, c := range []string{candidate, trailingCommaPattern.ReplaceAllString(candidate, "$1")} {
			if json.Valid([]byte(c)) {
				return json.RawMessage(c), nil
			}
		}
	}

	return nil, ErrMalformedResponse
}
