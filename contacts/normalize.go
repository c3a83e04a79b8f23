package contacts

import (
	"strings"
	"unicode"
)

// NormalizeName canonicalizes a person's name for comparison: lowercase,
// letters/digits only, single spaces between words.
func NormalizeName(s string) string {
	s = strings.ToLower(s)

	var result strings.Builder
	pendingSpace := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSpace && result.Len() > 0 {
				result.WriteRune(' ')
			}
			pendingSpace = false
			result.WriteRune(r)
		case unicode.IsSpace(r):
			pendingSpace = true
		}
	}
	return result.String()
}

// NormalizePhone removes all non-digit characters from a phone number.
func NormalizePhone(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeAddress canonicalizes a single-line postal address.
func NormalizeAddress(s string) string {
	return NormalizeName(s)
}
