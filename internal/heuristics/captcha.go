package heuristics

import (
	"regexp"
	"strconv"
	"strings"
)

// numberWords maps spelled-out operands to values.
var numberWords = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9,
	"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13,
	"fourteen": 14, "fifteen": 15, "sixteen": 16, "seventeen": 17,
	"eighteen": 18, "nineteen": 19, "twenty": 20,
}

var captchaExpr = regexp.MustCompile(
	`(\d+|[a-z]+)\s*(plus|minus|times|multiplied by|divided by|over|\+|-|\*|x|/)\s*(\d+|[a-z]+)`)

// SolveCaptcha parses a simple arithmetic word problem and returns the
// answer as a string. ok is false when no solvable expression is found.
func SolveCaptcha(text string) (string, bool) {
	lower := strings.ToLower(text)

	m := captchaExpr.FindStringSubmatch(lower)
	if m == nil {
		return "", false
	}

	a, okA := parseOperand(m[1])
	b, okB := parseOperand(m[3])
	if !okA || !okB {
		return "", false
	}

	switch m[2] {
	case "plus", "+":
		return strconv.Itoa(a + b), true
	case "minus", "-":
		return strconv.Itoa(a - b), true
	case "times", "multiplied by", "*", "x":
		return strconv.Itoa(a * b), true
	case "divided by", "over", "/":
		if b == 0 {
			return "", false
		}
		return strconv.Itoa(a / b), true
	}
	return "", false
}

func parseOperand(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	n, ok := numberWords[s]
	return n, ok
}

func looksArithmetic(lower string) bool {
	return captchaExpr.MatchString(lower)
}
