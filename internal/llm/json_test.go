package llm

import (
	"errors"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "Bare JSON",
			content: `{"sentiment": "bullish"}`,
			want:    `{"sentiment": "bullish"}`,
		},
		{
			name:    "JSON code fence",
			content: "```json\n{\"sentiment\": \"bullish\"}\n```",
			want:    `{"sentiment": "bullish"}`,
		},
		{
			name:    "Plain code fence",
			content: "```\n{\"sentiment\": \"bearish\"}\n```",
			want:    `{"sentiment": "bearish"}`,
		},
		{
			name:    "Fence with surrounding prose",
			content: "Here is the analysis:\n```json\n{\"confidence\": 0.8}\n```\nLet me know.",
			want:    `{"confidence": 0.8}`,
		},
		{
			name:    "Whitespace trimmed",
			content: "  \n{\"a\": 1}\n  ",
			want:    `{"a": 1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.content); got != tt.want {
				t.Errorf("ExtractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseJSON(t *testing.T) {
	var target struct {
		Sentiment  string  `json:"sentiment"`
		Confidence float64 `json:"confidence"`
	}

	err := ParseJSON("```json\n{\"sentiment\": \"bullish\", \"confidence\": 0.85}\n```", &target)
	if err != nil {
		t.Fatalf("ParseJSON() error = %v", err)
	}
	if target.Sentiment != "bullish" || target.Confidence != 0.85 {
		t.Errorf("parsed = %+v, want bullish/0.85", target)
	}
}

func TestParseJSON_Malformed(t *testing.T) {
	var target map[string]any

	err := ParseJSON("I think the market looks bullish overall.", &target)
	if err == nil {
		t.Fatal("ParseJSON() expected error for prose content")
	}

	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error type = %T, want *ParseError", err)
	}
	if parseErr.Content == "" {
		t.Error("ParseError should carry the original content for debugging")
	}
}
