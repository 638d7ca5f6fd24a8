// Package contextual resolves the situational context of an utterance.
package contextual

import (
	"errors"
	"fmt"
	"strings"
)

// Label is one of the fixed situational contexts.
type Label string

const (
	LabelWork    Label = "work"
	LabelSocial  Label = "social"
	LabelGeneral Label = "general"
)

var ErrUnknownLabel = errors.New("unknown context label")

// Labels returns the fixed label set in canonical order.
func Labels() []Label {
	return []Label{LabelWork, LabelSocial, LabelGeneral}
}

// ParseLabel accepts a label case-insensitively.
func ParseLabel(raw string) (Label, error) {
	switch Label(strings.ToLower(strings.TrimSpace(raw))) {
	case LabelWork:
		return LabelWork, nil
	case LabelSocial:
		return LabelSocial, nil
	case LabelGeneral:
		return LabelGeneral, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownLabel, raw)
	}
}

// Valid reports whether l is exactly one of the fixed labels.
func (l Label) Valid() bool {
	switch l {
	case LabelWork, LabelSocial, LabelGeneral:
		return true
	default:
		return false
	}
}
