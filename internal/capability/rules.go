package capability

import (
	"context"
	"regexp"
	"strings"
	"unicode"
)

var ruleWordPattern = regexp.MustCompile(`[A-Za-z][A-Za-z'&-]*`)

// Capitalised words that never start an entity on their own.
var ruleStopwords = map[string]bool{
	"i": true, "i'm": true, "i'll": true, "i've": true, "i'd": true,
	"a": true, "an": true, "the": true, "this": true, "that": true, "these": true, "those": true,
	"my": true, "our": true, "your": true, "we": true, "you": true, "he": true, "she": true, "they": true, "it": true,
	"can": true, "could": true, "would": true, "should": true, "will": true, "please": true,
	"let's": true, "lets": true, "let": true, "hey": true, "hi": true, "hello": true, "thanks": true, "thank": true,
	"what": true, "when": true, "where": true, "who": true, "why": true, "how": true, "which": true,
	"is": true, "are": true, "do": true, "does": true, "did": true, "was": true, "have": true, "has": true,
	"yes": true, "no": true, "maybe": true, "okay": true, "ok": true, "sure": true,
	"schedule": true, "send": true, "call": true, "meet": true, "tell": true, "show": true, "give": true,
	"find": true, "book": true, "ask": true, "remind": true, "need": true, "want": true, "just": true,
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true, "friday": true, "saturday": true, "sunday": true,
	"january": true, "february": true, "march": true, "april": true, "may": true, "june": true, "july": true,
	"august": true, "september": true, "october": true, "november": true, "december": true,
	"today": true, "tomorrow": true, "tonight": true, "yesterday": true,
}

var ruleOrgSuffixes = map[string]bool{
	"inc": true, "corp": true, "corporation": true, "llc": true, "ltd": true, "co": true,
	"company": true, "group": true, "bank": true, "university": true, "labs": true, "institute": true,
}

var ruleKnownOrgs = map[string]bool{
	"microsoft": true, "google": true, "apple": true, "amazon": true, "ibm": true, "netflix": true,
	"meta": true, "facebook": true, "openai": true, "tesla": true, "intel": true, "oracle": true,
}

var rulePlaceCues = map[string]bool{
	"in": true, "at": true, "to": true, "from": true, "near": true, "around": true,
}

// RuleExtractor is a heuristic extractor for when no model backend is available.
// Runs of capitalised words become entities: ORG when they end in a company
// suffix or are a well-known organisation, GPE when introduced by a place
// preposition, PERSON otherwise.
type RuleExtractor struct{}

func NewRuleExtractor() *RuleExtractor { return &RuleExtractor{} }

type ruleWord struct {
	text       string
	start, end int
}

func (RuleExtractor) Extract(ctx context.Context, text string) ([]Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	locs := ruleWordPattern.FindAllStringIndex(text, -1)
	words := make([]ruleWord, 0, len(locs))
	for _, loc := range locs {
		words = append(words, ruleWord{text: text[loc[0]:loc[1]], start: loc[0], end: loc[1]})
	}

	var out []Entity
	for i := 0; i < len(words); {
		if !isCapitalised(words[i].text) || ruleStopwords[strings.ToLower(words[i].text)] {
			i++
			continue
		}
		j := i + 1
		for j < len(words) && isCapitalised(words[j].text) && onlySpaces(text[words[j-1].end:words[j].start]) &&
			!ruleStopwords[strings.ToLower(words[j].text)] {
			j++
		}
		span := words[i:j]
		prev := ""
		if i > 0 && onlySpaces(text[words[i-1].end:span[0].start]) {
			prev = strings.ToLower(words[i-1].text)
		}
		out = append(out, Entity{
			Text: text[span[0].start:span[len(span)-1].end],
			Type: classifySpan(span, prev),
		})
		i = j
	}
	return FilterEntities(out), nil
}

func classifySpan(span []ruleWord, prev string) string {
	last := strings.ToLower(span[len(span)-1].text)
	if ruleOrgSuffixes[last] {
		return EntityOrg
	}
	for _, w := range span {
		if ruleKnownOrgs[strings.ToLower(w.text)] {
			return EntityOrg
		}
	}
	if rulePlaceCues[prev] {
		return EntityPlace
	}
	return EntityPerson
}

func isCapitalised(w string) bool {
	for _, r := range w {
		return unicode.IsUpper(r)
	}
	return false
}

func onlySpaces(s string) bool {
	return strings.TrimSpace(s) == "" && !strings.ContainsAny(s, "\n\r")
}
