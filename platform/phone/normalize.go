// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "RO"

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns the trimmed input.
// The phone number is the client identity key, so normalization must be stable:
// "0722 123 456", "+40722123456" and "whatsapp:+40722123456" all resolve to the
// same client.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	trimmed = strings.TrimPrefix(trimmed, "whatsapp:")
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}
