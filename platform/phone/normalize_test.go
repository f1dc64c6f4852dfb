package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"0612345678", "+31612345678"},
		{" +31 6 12 34 56 78 ", "+31612345678"},
		{"+14155552671", "+14155552671"},
		{"not a phone", "not a phone"},
		{"  ", ""},
	}

	for _, tc := range cases {
		if got := NormalizeE164(tc.input); got != tc.want {
			t.Errorf("NormalizeE164(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
