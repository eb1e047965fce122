// Package heuristics isolates the natural-language judgment calls the
// conversation state machine depends on. Pure pattern matchers run
// without a model; the model-backed helpers degrade to conservative
// defaults on any failure so no error reaches the state machine.
package heuristics

import "strings"

// ScreenType classifies automated call-screening systems.
type ScreenType string

const (
	// ScreenCallScreen is a "say your name and reason" gate.
	ScreenCallScreen ScreenType = "call_screen"
	// ScreenCaptcha is a verification or arithmetic challenge.
	ScreenCaptcha ScreenType = "captcha"
	// ScreenUrgencyCheck asks whether the call is urgent.
	ScreenUrgencyCheck ScreenType = "urgency_check"
	// ScreenSpamRejection is an explicit do-not-call rejection.
	ScreenSpamRejection ScreenType = "spam_rejection"
)

var spamRejectionPhrases = []string{
	"do not call",
	"don't call",
	"stop calling",
	"remove this number",
	"take us off your list",
	"not interested in solicitation",
	"spam",
	"telemarket",
}

var callScreenPhrases = []string{
	"who may i say is calling",
	"who's calling",
	"who is calling",
	"state your name and",
	"say your name after",
	"the person you are trying to reach",
	"screening your call",
	"call screening",
}

var captchaPhrases = []string{
	"verify you are human",
	"verify that you are human",
	"prove you are not a robot",
	"prove you're not a robot",
	"to continue, please say",
	"what is",
	"press or say",
	"solve the following",
}

var urgencyPhrases = []string{
	"is this urgent",
	"is this an emergency",
	"if this is urgent",
	"how urgent",
}

// DetectBotScreening classifies an utterance as a screening challenge,
// or returns ok=false for ordinary speech. Spam rejection is checked
// first so an explicit rejection wins over any overlapping
// captcha-looking phrase.
func DetectBotScreening(text string) (ScreenType, bool) {
	lower := strings.ToLower(text)

	if containsAny(lower, spamRejectionPhrases) {
		return ScreenSpamRejection, true
	}
	if containsAny(lower, callScreenPhrases) {
		return ScreenCallScreen, true
	}
	if containsAny(lower, captchaPhrases) {
		// "what is" alone is too weak; require a challenge shape.
		if strings.Contains(lower, "what is") && !looksArithmetic(lower) &&
			!strings.Contains(lower, "verify") && !strings.Contains(lower, "robot") &&
			!strings.Contains(lower, "continue") && !strings.Contains(lower, "solve") &&
			!strings.Contains(lower, "press or say") {
			return "", false
		}
		return ScreenCaptcha, true
	}
	if containsAny(lower, urgencyPhrases) {
		return ScreenUrgencyCheck, true
	}
	return "", false
}

func containsAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
