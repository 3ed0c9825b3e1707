package ai

import (
	"errors"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain object", `{"a":1}`, `{"a":1}`},
		{"plain array", ` [1,2] `, `[1,2]`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced without language", "```\n[{\"id\":\"x\"}]\n```", `[{"id":"x"}]`},
		{"with chatter", `Here you go: {"a":1} hope it helps`, `{"a":1}`},
		{"trailing comma", `{"tags":["a","b",],}`, `{"tags":["a","b"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := ExtractJSON(tt.input)
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if string(raw) != tt.expected {
				t.Errorf("Expected %s, got: %s", tt.expected, raw)
			}
		})
	}
}

func TestExtractJSONInvalid(t *testing.T) {
	for _, input := range []string{"", "no json here", "{broken"} {
		if _, err := ExtractJSON(input); !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("Expected ErrMalformedResponse for %q, got: %v", input, err)
		}
	}
}
