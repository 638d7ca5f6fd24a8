// Package similarity measures how close two short strings are.
package similarity

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Ratio returns the case-insensitive SequenceMatcher ratio of a and b in [0,1].
// Two empty strings are identical.
func Ratio(a, b string) float64 {
	return difflib.NewMatcher(runes(strings.ToLower(a)), runes(strings.ToLower(b))).Ratio()
}

// runes splits s into one element per code point so the matcher compares characters.
func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
