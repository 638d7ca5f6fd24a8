package policy

import "testing"

func TestRedactPII(t *testing.T) {
	cases := []struct {
		name, in, want string
		changed        bool
	}{
		{"plain", "Could you pass the salt", "Could you pass the salt", false},
		{"email", "mail sam@example.com today", "mail [REDACTED_EMAIL] today", true},
		{"card", "card 4242 4242 4242 4242 expires", "card [REDACTED_CARD] expires", true},
		{"ssn", "my ssn is 123-45-6789", "my ssn is [REDACTED_SSN]", true},
		{"phone", "call +1 (555) 123-9876 now", "call [REDACTED_PHONE] now", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, changed := RedactPII(tc.in)
			if got != tc.want || changed != tc.changed {
				t.Fatalf("RedactPII(%q) = %q, %v; want %q, %v", tc.in, got, changed, tc.want, tc.changed)
			}
		})
	}
}
