package domain

import (
	"strings"
	"unicode"
)

// maxKeyLength caps derived stage keys; keys double as backward-compatible
// status strings so they must stay short and stable.
const maxKeyLength = 64

// DeriveKey turns a display name into a stage key: lowercased, runs of
// non-alphanumeric characters collapsed to a single underscore, trimmed and
// length-capped. "Interview Scheduled" becomes "interview_scheduled".
func DeriveKey(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	key := strings.Trim(b.String(), "_")
	if len(key) > maxKeyLength {
		key = strings.Trim(key[:maxKeyLength], "_")
	}
	return key
}

// DefaultStage describes one entry of the pipeline seeded for a tenant that
// has no stages yet.
type DefaultStage struct {
	Name      string
	Color     string
	IsDefault bool
}

// DefaultPipeline is the stage set seeded for new tenants, in order.
func DefaultPipeline() []DefaultStage {
	return []DefaultStage{
		{Name: "New", Color: "#2196f3", IsDefault: true},
		{Name: "Contacted", Color: "#00bcd4"},
		{Name: "Interview Scheduled", Color: "#ff9800"},
		{Name: "Offer", Color: "#9c27b0"},
		{Name: "Completed", Color: "#4caf50"},
		{Name: "Rejected", Color: "#f44336"},
	}
}
