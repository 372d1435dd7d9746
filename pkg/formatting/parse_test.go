package formatting_test

import (
	"testing"

	"github.com/JaimeStill/casestudio/pkg/formatting"
)

func TestUnfence(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare JSON", `{"type":"summary"}`, `{"type":"summary"}`},
		{"surrounding whitespace", "  {\"a\":1}\n", `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fence without language", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"fence with surrounding text", "Result:\n```json\n{\"a\":1}\n```\nDone.", `{"a":1}`},
		{"unclosed fence", "```json\n{\"type\":\"head", `{"type":"head`},
		{"fence header only", "```json", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatting.Unfence(tt.input); got != tt.want {
				t.Errorf("Unfence(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
