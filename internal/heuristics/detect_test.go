package heuristics

import "testing"

func TestDetectors(t *testing.T) {
	tests := []struct {
		name string
		fn   func(string) bool
		text string
		want bool
	}{
		{"repeat request", IsRepeatRequest, "Sorry, can you say that again?", true},
		{"spell request is repeat", IsRepeatRequest, "Can you spell that for me?", true},
		{"no repeat", IsRepeatRequest, "We have that in stock.", false},

		{"substitute", MentionsSubstitute, "That one's superseded, we carry the equivalent.", true},
		{"no substitute", MentionsSubstitute, "Yeah, we have the original.", false},

		{"fitment question", IsVerificationQuestion, "What year is the truck?", true},
		{"vin question", IsVerificationQuestion, "Do you have the VIN handy?", true},
		{"vin inside a word", IsVerificationQuestion, "We're moving warehouses, having some delays.", false},
		{"not fitment", IsVerificationQuestion, "It's forty dollars.", false},

		{"wrap up", IsWrapUpPhrase, "Anything else I can help with?", true},
		{"not wrap up", IsWrapUpPhrase, "Let me check the back.", false},

		{"callback", IsCallbackRequest, "He's not in, can you call back later?", true},
		{"not callback", IsCallbackRequest, "Hold on one second.", false},

		{"refusal", IsRefusal, "That's the best I can do on price.", true},
		{"firm price", IsRefusal, "The price is firm.", true},
		{"not refusal", IsRefusal, "I could maybe do a little better.", false},

		{"confused", SoundsConfused, "I'm not sure what you're asking for.", true},
		{"confused direct", SoundsConfused, "What do you mean by that?", true},
		{"not confused", SoundsConfused, "Sure, give me the numbers.", false},

		{"dollar amount", ContainsPricingLanguage, "That runs $42.50 each.", true},
		{"worded dollars", ContainsPricingLanguage, "It's about 40 dollars.", true},
		{"pricing word", ContainsPricingLanguage, "I can quote you on that.", true},
		{"no pricing", ContainsPricingLanguage, "We're open until five.", false},

		{"email deflection", IsEmailDeflection, "Just send us an email with the list.", true},
		{"email with figure is not deflection", IsEmailDeflection, "It's $30, but email us for the formal quote.", false},
		{"no deflection", IsEmailDeflection, "I can price that now.", false},

		{"negative", HasNegativeSentiment, "We're not interested, forget it.", true},
		{"not negative", HasNegativeSentiment, "Happy to help with that.", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.fn(tc.text); got != tc.want {
				t.Errorf("%s(%q) = %v, want %v", tc.name, tc.text, got, tc.want)
			}
		})
	}
}
