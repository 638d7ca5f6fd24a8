// Package capability defines the external model collaborators the pipeline consumes.
package capability

import (
	"context"
	"errors"
)

// ErrUnavailable marks a backend that could not be reached or is not configured.
var ErrUnavailable = errors.New("capability unavailable")

// Prediction is a classifier verdict for one utterance.
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classifier assigns a context label to raw text.
type Classifier interface {
	Classify(ctx context.Context, text string) (Prediction, error)
}

// GenerationSettings tunes a single generation request.
type GenerationSettings struct {
	MaxLength   int      `json:"max_length"`
	NumReturn   int      `json:"num_return"`
	Temperature float64  `json:"temperature"`
	TopP        float64  `json:"top_p"`
	Formality   string   `json:"formality,omitempty"`
	Examples    []string `json:"examples,omitempty"`
}

// Generator produces raw candidate continuations for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, settings GenerationSettings) ([]string, error)
}

// Entity is a named span found in an utterance.
type Entity struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

const (
	EntityPerson = "PERSON"
	EntityOrg    = "ORG"
	EntityPlace  = "GPE"
)

// EntityExtractor finds named entities in text.
type EntityExtractor interface {
	Extract(ctx context.Context, text string) ([]Entity, error)
}

// FilterEntities keeps PERSON, ORG and GPE entities with non-empty text, in order.
func FilterEntities(in []Entity) []Entity {
	out := make([]Entity, 0, len(in))
	for _, e := range in {
		if e.Text == "" {
			continue
		}
		switch e.Type {
		case EntityPerson, EntityOrg, EntityPlace:
			out = append(out, e)
		}
	}
	return out
}
