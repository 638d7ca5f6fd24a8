// Package policy holds privacy rules applied before user text leaves the
// suggestion core, such as in logs.
package policy

import "regexp"

type redactionRule struct {
	pattern *regexp.Regexp
	mask    string
}

// Applied in order: card and SSN numbers before the looser phone pattern.
var redactionRules = []redactionRule{
	{regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`), "[REDACTED_EMAIL]"},
	{regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`), "[REDACTED_CARD]"},
	{regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), "[REDACTED_SSN]"},
	{regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`), "[REDACTED_PHONE]"},
}

// RedactPII masks email addresses, card numbers, SSNs and phone numbers.
// changed reports whether anything was masked.
func RedactPII(input string) (redacted string, changed bool) {
	out := input
	for _, rule := range redactionRules {
		next := rule.pattern.ReplaceAllString(out, rule.mask)
		if next != out {
			changed = true
			out = next
		}
	}
	return out, changed
}
