package domain

import (
	"strings"
	"testing"
)

func TestDeriveKey(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"Interview Scheduled", "interview_scheduled"},
		{"New", "new"},
		{"Offer -- Sent!", "offer_sent"},
		{"  Trimmed  ", "trimmed"},
		{"A.5", "a_5"},
	}

	for _, tc := range cases {
		if got := DeriveKey(tc.name); got != tc.want {
			t.Fatalf("DeriveKey(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestDeriveKeyCapsLength(t *testing.T) {
	got := DeriveKey(strings.Repeat("long name ", 20))
	if len(got) > 64 {
		t.Fatalf("derived key length %d exceeds cap", len(got))
	}
	if strings.HasSuffix(got, "_") || strings.HasPrefix(got, "_") {
		t.Fatalf("derived key %q has dangling underscore", got)
	}
}

// Stage keys double as legacy status values, so the seeded pipeline must
// carry a stage for every status a lead can reach.
func TestDefaultPipelineCoversLegacyStatuses(t *testing.T) {
	keys := make(map[string]bool)
	for _, s := range DefaultPipeline() {
		keys[DeriveKey(s.Name)] = true
	}
	for _, want := range []string{"new", "interview_scheduled", "completed", "rejected"} {
		if !keys[want] {
			t.Errorf("default pipeline has no stage keyed %q", want)
		}
	}
}

func TestDefaultPipelineHasSingleDefault(t *testing.T) {
	defaults := 0
	for _, s := range DefaultPipeline() {
		if s.IsDefault {
			defaults++
		}
	}
	if defaults != 1 {
		t.Fatalf("default pipeline declares %d default stages, want exactly 1", defaults)
	}
}
