package heuristics

import (
	"fmt"
	"strings"
	"unicode"
)

// natoAlphabet maps letters to their NATO code words.
var natoAlphabet = map[rune]string{
	'A': "Alpha", 'B': "Bravo", 'C': "Charlie", 'D': "Delta",
	'E': "Echo", 'F': "Foxtrot", 'G': "Golf", 'H': "Hotel",
	'I': "India", 'J': "Juliett", 'K': "Kilo", 'L': "Lima",
	'M': "Mike", 'N': "November", 'O': "Oscar", 'P': "Papa",
	'Q': "Quebec", 'R': "Romeo", 'S': "Sierra", 'T': "Tango",
	'U': "Uniform", 'V': "Victor", 'W': "Whiskey", 'X': "X-ray",
	'Y': "Yankee", 'Z': "Zulu",
}

var digitWords = map[rune]string{
	'0': "zero", '1': "one", '2': "two", '3': "three", '4': "four",
	'5': "five", '6': "six", '7': "seven", '8': "eight", '9': "nine",
}

// FormatPartNumberForSpeech renders a part number for clear dictation:
// contiguous letter runs are spelled letter by letter, digits are read
// individually, and hyphens become the spoken word "dash" (never
// "minus", which suppliers hear as arithmetic).
func FormatPartNumberForSpeech(partNumber string) string {
	var tokens []string
	for _, r := range partNumber {
		switch {
		case unicode.IsLetter(r):
			tokens = append(tokens, string(unicode.ToUpper(r)))
		case unicode.IsDigit(r):
			tokens = append(tokens, digitWords[r])
		case r == '-':
			tokens = append(tokens, "dash")
		default:
			// Other separators are spoken as-is.
			tokens = append(tokens, string(r))
		}
	}
	return strings.Join(tokens, " ")
}

// FormatPartNumberPhonetic renders a part number with NATO code words
// for each letter. Used only when the supplier explicitly asks for a
// repeat, since it is slower to say.
func FormatPartNumberPhonetic(partNumber string) string {
	var tokens []string
	for _, r := range partNumber {
		upper := unicode.ToUpper(r)
		switch {
		case unicode.IsLetter(upper):
			if word, ok := natoAlphabet[upper]; ok {
				tokens = append(tokens, word)
			} else {
				tokens = append(tokens, string(upper))
			}
		case unicode.IsDigit(r):
			tokens = append(tokens, digitWords[r])
		case r == '-':
			tokens = append(tokens, "dash")
		default:
			tokens = append(tokens, string(r))
		}
	}
	return strings.Join(tokens, " ")
}

// QuantityPhrase renders a quantity and description the way a person
// would say it on the phone: 1 -> "a X", 2 -> "a couple of Xs",
// 3+ -> "N Xs".
func QuantityPhrase(quantity int, description string) string {
	switch {
	case quantity <= 1:
		return fmt.Sprintf("a %s", description)
	case quantity == 2:
		return fmt.Sprintf("a couple of %ss", description)
	default:
		return fmt.Sprintf("%d %ss", quantity, description)
	}
}
