// Package analysis derives intent, urgency and time expressions from an utterance.
package analysis

import (
	"regexp"
	"strings"
)

type Intent string

const (
	IntentRequest  Intent = "request"
	IntentQuestion Intent = "question"
	IntentInform   Intent = "inform"
	IntentUnknown  Intent = "unknown"
)

type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

type Result struct {
	Intent          Intent   `json:"intent"`
	Urgency         Urgency  `json:"urgency"`
	TimeExpressions []string `json:"time_expressions"`
}

type intentRule struct {
	intent   Intent
	patterns []*regexp.Regexp
}

var (
	// Evaluated in order; an earlier intent wins ties.
	intentRules = []intentRule{
		{
			intent: IntentRequest,
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)can you|could you|please|help|would you`),
				regexp.MustCompile(`(?i)^(show|tell|give|find|schedule)`),
				regexp.MustCompile(`(?i)i need|i want|i would like`),
			},
		},
		{
			intent: IntentQuestion,
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)^(what|when|where|who|why|how)`),
				regexp.MustCompile(`\?$`),
				regexp.MustCompile(`(?i)do you know|can you tell`),
			},
		},
		{
			intent: IntentInform,
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)^(i am|i'm|i have|i've)`),
				regexp.MustCompile(`(?i)just wanted to|letting you know`),
				regexp.MustCompile(`(?i)^(yes|no|maybe|okay|sure)`),
			},
		},
	}
	highUrgencyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)urgent|asap|emergency|immediately|right now`),
		regexp.MustCompile(`(?i)as soon as possible|critical|crucial`),
	}
	mediumUrgencyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)soon|today|tomorrow|this week`),
		regexp.MustCompile(`(?i)need.*(by|before)`),
	}
	timeExpressionPattern = regexp.MustCompile(`(?i)\b\d{1,2}(?::\d{2})?\s*(?:am|pm|hours?|minutes?)\b`)
)

func Analyze(text string) Result {
	return Result{
		Intent:          DetectIntent(text),
		Urgency:         DetectUrgency(text),
		TimeExpressions: TimeExpressions(text),
	}
}

// DetectIntent picks the intent with the most matching patterns.
func DetectIntent(text string) Intent {
	text = strings.TrimSpace(text)
	best, bestHits := IntentUnknown, 0
	for _, rule := range intentRules {
		hits := 0
		for _, re := range rule.patterns {
			if re.MatchString(text) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = rule.intent, hits
		}
	}
	return best
}

func DetectUrgency(text string) Urgency {
	if matchAny(highUrgencyPatterns, text) {
		return UrgencyHigh
	}
	if matchAny(mediumUrgencyPatterns, text) {
		return UrgencyMedium
	}
	return UrgencyLow
}

// TimeExpressions returns clock-like spans such as "3 pm" or "10:30am".
func TimeExpressions(text string) []string {
	out := timeExpressionPattern.FindAllString(text, -1)
	if out == nil {
		return []string{}
	}
	return out
}

func matchAny(patterns []*regexp.Regexp, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
