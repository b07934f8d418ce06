// Package phone validates and formats applicant mobile numbers.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Parse parses input using region for numbers without a country prefix.
// It returns false when the number does not parse or is not a valid number.
func Parse(input, region string) (*phonenumbers.PhoneNumber, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, false
	}
	number, err := phonenumbers.Parse(trimmed, strings.ToUpper(region))
	if err != nil {
		return nil, false
	}
	if !phonenumbers.IsValidNumber(number) {
		return nil, false
	}
	return number, true
}

// IsValid reports whether input is a valid number for region.
func IsValid(input, region string) bool {
	_, ok := Parse(input, region)
	return ok
}

// NormalizeE164 formats a phone number to E.164. If parsing fails, it
// returns the trimmed input.
func NormalizeE164(input, region string) string {
	number, ok := Parse(input, region)
	if !ok {
		return strings.TrimSpace(input)
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}
