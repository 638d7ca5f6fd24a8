package voice

import (
	"regexp"
	"strings"
	"unicode"
)

var speechStripPatterns = []struct {
	re   *regexp.Regexp
	with string
}{
	{regexp.MustCompile("(?s)```.*?```"), " "},
	{regexp.MustCompile("`[^`]*`"), " "},
	{regexp.MustCompile(`\[(.*?)\]\((.*?)\)`), "$1"},
	{regexp.MustCompile(`https?://\S+`), " "},
	{regexp.MustCompile(`[*_\\/|#~<>]+`), " "},
}

// sanitizeSpeechText reduces a suggestion to words and light punctuation a
// synthesizer reads naturally.
func sanitizeSpeechText(raw string) string {
	for _, p := range speechStripPatterns {
		raw = p.re.ReplaceAllString(raw, p.with)
	}
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r == '\u200d' || r == '\ufe0f' || r == '\u20e3' || (unicode.IsControl(r) && !unicode.IsSpace(r)):
		case unicode.In(r, unicode.So, unicode.Sm, unicode.Sk):
		case unicode.IsPunct(r) && !strings.ContainsRune(".,!?:;'\"-()", r):
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
