package utils

import (
	"regexp"
	"strings"
)

var nonDigits = regexp.MustCompile(`\D`)

// FormatPhoneNumber normalizes a phone number to digits with the
// Nigerian country code (+234) prefixed.
func FormatPhoneNumber(phoneNumber string) string {
	digits := nonDigits.ReplaceAllString(phoneNumber, "")

	if len(digits) > 0 && !strings.HasPrefix(digits, "234") {
		digits = strings.TrimLeft(digits, "0")
		digits = "234" + digits
	}

	return digits
}

// ValidatePhoneNumber checks a local Nigerian mobile number
// (10 digits after stripping the leading zero and country code).
func ValidatePhoneNumber(phoneNumber string) bool {
	cleaned := nonDigits.ReplaceAllString(phoneNumber, "")
	cleaned = strings.TrimPrefix(cleaned, "234")
	cleaned = strings.TrimLeft(cleaned, "0")

	return len(cleaned) == 10
}
