// Package phone normalizes phone numbers for storage and exact matching.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Numbers without a country prefix are assumed to be Dutch.
const defaultRegion = "NL"

// NormalizeE164 renders a phone number in E.164. Input that does not parse
// as a valid number comes back trimmed but otherwise untouched.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	parsed, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return trimmed
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}
