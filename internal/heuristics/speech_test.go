package heuristics

import (
	"strings"
	"testing"
)

func TestFormatPartNumberForSpeech(t *testing.T) {
	got := FormatPartNumberForSpeech("AHC-18598")

	if !strings.Contains(got, "dash") {
		t.Errorf("expected %q to contain 'dash'", got)
	}
	if strings.Contains(got, "-") {
		t.Errorf("expected no literal hyphen in %q", got)
	}
	if strings.Contains(got, "minus") {
		t.Errorf("expected no 'minus' in %q", got)
	}
	// Letters are spelled individually, digits read individually.
	for _, tok := range []string{"A", "H", "C", "one", "eight", "five", "nine"} {
		if !strings.Contains(got, tok) {
			t.Errorf("expected %q to contain %q", got, tok)
		}
	}
}

func TestFormatPartNumberForSpeech_Lowercase(t *testing.T) {
	got := FormatPartNumberForSpeech("ab12")
	want := "A B one two"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestFormatPartNumberPhonetic(t *testing.T) {
	got := FormatPartNumberPhonetic("AHC-18598")

	for _, word := range []string{"Alpha", "Hotel", "Charlie", "dash"} {
		if !strings.Contains(got, word) {
			t.Errorf("expected %q to contain %q", got, word)
		}
	}
	if strings.Contains(got, "minus") {
		t.Errorf("expected no 'minus' in %q", got)
	}
}

func TestQuantityPhrase(t *testing.T) {
	tests := []struct {
		quantity int
		desc     string
		want     string
	}{
		{1, "fuel filter", "a fuel filter"},
		{2, "fuel filter", "a couple of fuel filters"},
		{3, "fuel filter", "3 fuel filters"},
		{10, "gasket", "10 gaskets"},
	}

	for _, tc := range tests {
		if got := QuantityPhrase(tc.quantity, tc.desc); got != tc.want {
			t.Errorf("QuantityPhrase(%d, %q) = %q, want %q", tc.quantity, tc.desc, got, tc.want)
		}
	}
}
