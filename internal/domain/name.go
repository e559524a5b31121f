package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Capitalize upper-cases the first rune of s and leaves the rest untouched.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// NormalizeName is the stored form of a name.
func NormalizeName(s string) string {
	return Capitalize(strings.TrimSpace(s))
}

// NameKey is the comparison form of a name. Two names collide when their
// keys are equal.
func NameKey(s string) string {
	return strings.ToLower(NormalizeName(s))
}
