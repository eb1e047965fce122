package heuristics

import (
	"context"
	"fmt"
	"strings"

	"github.com/quotecall/quotecall/internal/llm"
)

// engagementPhrases are clear signs a live person answered and is
// ready to talk, used to override a bad "voicemail" classification.
var engagementPhrases = []string{
	"yes",
	"yeah",
	"speaking",
	"this is",
	"go ahead",
	"how can i help",
	"what can i do for you",
	"parts department",
}

// ClassifyIntent maps a supplier utterance onto one of the candidate
// labels using the model, with a deterministic post-hoc override: if
// the model says "voicemail" but the text contains clear engagement
// phrases, the first (affirmative) candidate wins. On any model failure
// the first candidate is returned, failing open toward the common case.
func ClassifyIntent(ctx context.Context, svc llm.Service, utterance string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	fallback := candidates[0]

	prompt := fmt.Sprintf(
		"You are classifying one utterance from a phone call with a parts supplier.\n"+
			"Utterance: %q\n\n"+
			"Respond with exactly one of these labels and nothing else:\n%s",
		utterance, strings.Join(candidates, "\n"))

	resp, err := svc.Complete(ctx, prompt, llm.CompleteOptions{MaxTokens: 16})
	if err != nil {
		return fallback
	}

	label := matchCandidate(resp, candidates)
	if label == "" {
		return fallback
	}

	if label == "voicemail" && containsAny(strings.ToLower(utterance), engagementPhrases) {
		return fallback
	}
	return label
}

// matchCandidate finds the candidate label in the raw model response,
// tolerating surrounding whitespace or punctuation.
func matchCandidate(resp string, candidates []string) string {
	cleaned := strings.ToLower(strings.TrimSpace(resp))
	for _, c := range candidates {
		if cleaned == strings.ToLower(c) {
			return c
		}
	}
	for _, c := range candidates {
		if strings.Contains(cleaned, strings.ToLower(c)) {
			return c
		}
	}
	return ""
}
