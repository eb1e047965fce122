package heuristics

import (
	"regexp"
	"strings"
)

// Keyword classifiers used to branch routing without model cost.

var repeatPhrases = []string{
	"say that again",
	"repeat that",
	"repeat the",
	"one more time",
	"didn't catch",
	"didn't get that",
	"come again",
	"can you spell",
	"spell that",
	"what was that number",
	"what was the part number",
	"what's the part number",
	"what is the part number",
	"do you have the part number",
	"do you have a part number",
	"give me the part number",
	"need the part number",
	"need a part number",
}

// IsRepeatRequest reports whether the supplier asked the agent to
// repeat or spell something.
func IsRepeatRequest(text string) bool {
	return containsAny(strings.ToLower(text), repeatPhrases)
}

var substitutePhrases = []string{
	"substitute",
	"alternative",
	"equivalent",
	"cross reference",
	"cross-reference",
	"superseded",
	"replaced by",
	"we carry a different",
	"compatible part",
	"aftermarket version",
}

// MentionsSubstitute reports whether the supplier is offering an
// alternative part number.
func MentionsSubstitute(text string) bool {
	return containsAny(strings.ToLower(text), substitutePhrases)
}

var verificationPhrases = []string{
	"will it fit",
	"does it fit",
	"what vehicle",
	"what year",
	"what model",
	"what make",
	"what engine",
	"which machine",
	"what equipment",
	"serial number",
}

// vinWord needs boundaries so "moving" or "having" don't match.
var vinWord = regexp.MustCompile(`\bvin\b`)

// IsVerificationQuestion reports whether the supplier asked a fitment
// or application question that deserves an answer, not a deflection.
func IsVerificationQuestion(text string) bool {
	lower := strings.ToLower(text)
	return containsAny(lower, verificationPhrases) || vinWord.MatchString(lower)
}

var wrapUpPhrases = []string{
	"anything else",
	"is that everything",
	"is that all",
	"have a good",
	"thanks for calling",
	"thank you for calling",
	"we're all set",
	"sounds good, bye",
}

// IsWrapUpPhrase reports whether the supplier is moving to close the call.
func IsWrapUpPhrase(text string) bool {
	return containsAny(strings.ToLower(text), wrapUpPhrases)
}

var callbackPhrases = []string{
	"call back",
	"call you back",
	"call us back",
	"call back later",
	"try again later",
	"he's not in",
	"she's not in",
	"out to lunch",
	"leave your number",
	"better time to call",
}

// IsCallbackRequest reports whether the supplier asked to be called back.
func IsCallbackRequest(text string) bool {
	return containsAny(strings.ToLower(text), callbackPhrases)
}

var refusalPhrases = []string{
	"that's the best i can do",
	"best i can do",
	"can't go lower",
	"cannot go lower",
	"can't do better",
	"price is firm",
	"firm on the price",
	"no room to move",
	"that's our price",
	"take it or leave it",
}

// IsRefusal reports whether the supplier refused to move on price.
func IsRefusal(text string) bool {
	return containsAny(strings.ToLower(text), refusalPhrases)
}

var confusedPhrases = []string{
	"i don't understand",
	"not sure what you",
	"what do you mean",
	"i'm confused",
	"huh",
	"what are you asking",
	"who is this again",
}

// SoundsConfused reports whether the supplier seems lost and a
// clarification turn would help.
func SoundsConfused(text string) bool {
	return containsAny(strings.ToLower(text), confusedPhrases)
}

var dollarAmount = regexp.MustCompile(`\$\s*\d|(\d+(\.\d+)?)\s*(dollars|bucks)`)

var pricingWords = []string{
	"price",
	"cost",
	"quote",
	"each",
	"per unit",
	"a piece",
	"apiece",
	"runs you",
	"that'll be",
}

// ContainsPricingLanguage reports whether the utterance talks money: a
// dollar amount or pricing vocabulary.
func ContainsPricingLanguage(text string) bool {
	lower := strings.ToLower(text)
	if dollarAmount.MatchString(lower) {
		return true
	}
	return containsAny(lower, pricingWords)
}

var emailDeflectionPhrases = []string{
	"send us an email",
	"email the request",
	"email us",
	"submit it online",
	"through our website",
	"put it in writing",
	"send it over in an email",
}

// IsEmailDeflection reports whether the supplier is pushing the request
// to email instead of quoting verbally.
func IsEmailDeflection(text string) bool {
	lower := strings.ToLower(text)
	if !containsAny(lower, emailDeflectionPhrases) {
		return false
	}
	// A figure alongside the deflection means we still got a verbal quote.
	return !dollarAmount.MatchString(lower)
}

var negativePhrases = []string{
	"not interested",
	"waste of time",
	"stop wasting",
	"ridiculous",
	"no way",
	"absolutely not",
	"forget it",
	"we don't deal with",
}

// HasNegativeSentiment reports overt refusal or hostility.
func HasNegativeSentiment(text string) bool {
	return containsAny(strings.ToLower(text), negativePhrases)
}
