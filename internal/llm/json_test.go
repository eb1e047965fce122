package llm

import (
	"encoding/json"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "bare array",
			input: `[{"part_number":"A1","price":10}]`,
			want:  `[{"part_number":"A1","price":10}]`,
		},
		{
			name:  "fenced with language tag",
			input: "```json\n[{\"part_number\":\"A1\"}]\n```",
			want:  `[{"part_number":"A1"}]`,
		},
		{
			name:  "prose wrapped",
			input: `Here are the quotes I found: [{"part_number":"A1"}] Let me know if you need more.`,
			want:  `[{"part_number":"A1"}]`,
		},
		{
			name:  "object in prose",
			input: `The analysis is {"phase":"NEGOTIATE"} as requested.`,
			want:  `{"phase":"NEGOTIATE"}`,
		},
		{
			name:    "no json at all",
			input:   "Sorry, I can't help with that.",
			wantErr: true,
		},
		{
			name:    "malformed only",
			input:   `[{"part_number": "A1"`,
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := ExtractJSON(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %s", raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !json.Valid(raw) {
				t.Fatalf("extracted JSON is invalid: %s", raw)
			}
			if string(raw) != tc.want {
				t.Errorf("expected %s, got %s", tc.want, raw)
			}
		})
	}
}

func TestStripCodeFences(t *testing.T) {
	input := "```json\n{\"a\":1}\n```"
	if got := StripCodeFences(input); got != `{"a":1}` {
		t.Errorf("expected fence stripped, got %q", got)
	}

	plain := `{"a":1}`
	if got := StripCodeFences(plain); got != plain {
		t.Errorf("expected passthrough, got %q", got)
	}
}
