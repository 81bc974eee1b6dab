package jsonutil

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStripMarkdownFences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no fences", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n[1,2]\n```", `[1,2]`},
		{"missing closing fence", "```json\n{\"a\":1}", `{"a":1}`},
		{"surrounding whitespace", "  \n```json\n{}\n```\n  ", `{}`},
		{"single line fence", "```", "```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripMarkdownFences(tt.input); got != tt.expected {
				t.Errorf("StripMarkdownFences(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{"plain object", `{"tone":"warm"}`, `{"tone":"warm"}`, false},
		{"prose around object", `Here you go: {"tone":"warm"} Hope it helps {}`, `{"tone":"warm"}`, false},
		{"nested", `x {"a":{"b":[1,{"c":2}]}} y`, `{"a":{"b":[1,{"c":2}]}}`, false},
		{"brace inside string", `{"p":"use } and { freely"}`, `{"p":"use } and { freely"}`, false},
		{"escaped quote", `{"p":"say \"hi\" }"}`, `{"p":"say \"hi\" }"}`, false},
		{"array first", `[{"a":1}] then {"b":2}`, `[{"a":1}]`, false},
		{"no json", `not json`, "", true},
		{"unterminated", `{"a":1`, "", true},
		{"mismatched", `{"a":[1}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("ExtractJSON() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestParseJSON_Map(t *testing.T) {
	raw := "```json\n{\"tone\": \"conversational\", \"callToAction\": [\"ask a question\"]}\n```"

	got, err := ParseJSON[map[string]any](raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]any{
		"tone":         "conversational",
		"callToAction": []any{"ask a question"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseJSON mismatch (-want +got):\n%s", diff)
	}
}

func TestParseJSON_NoJSON(t *testing.T) {
	_, err := ParseJSON[map[string]any]("not json")
	if !errors.Is(err, ErrNoJSON) {
		t.Errorf("expected ErrNoJSON, got %v", err)
	}
}

func TestParseJSON_WrongShape(t *testing.T) {
	if _, err := ParseJSON[map[string]any](`[1, 2, 3]`); err == nil {
		t.Error("expected error decoding an array into a map")
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("short", 10); got != "short" {
		t.Errorf("Preview short = %q", got)
	}
	if got := Preview("abcdefghij", 4); got != "abcd..." {
		t.Errorf("Preview long = %q", got)
	}
}
