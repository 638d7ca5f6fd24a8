// Package memory keeps a bounded, process-local record of past interactions.
package memory

import (
	"time"

	"github.com/ent0n29/aac/internal/capability"
	"github.com/ent0n29/aac/internal/contextual"
)

// Interaction is one processed utterance and the suggestions produced for it.
type Interaction struct {
	ID          string              `json:"id"`
	Text        string              `json:"text"`
	Context     contextual.Label    `json:"context"`
	Entities    []capability.Entity `json:"entities"`
	Suggestions []string            `json:"suggestions"`
	Timestamp   time.Time           `json:"timestamp"`
	UsageCount  int                 `json:"usage_count"`

	seq uint64
}

func (i Interaction) clone() Interaction {
	out := i
	out.Entities = append([]capability.Entity(nil), i.Entities...)
	out.Suggestions = append([]string(nil), i.Suggestions...)
	return out
}

// Match is an interaction paired with its similarity to a query.
type Match struct {
	Interaction Interaction `json:"interaction"`
	Similarity  float64     `json:"similarity"`
}

type EntityCount struct {
	Text  string `json:"text"`
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// Stats summarises the interactions recorded under one context.
type Stats struct {
	Context          contextual.Label `json:"context"`
	Count            int              `json:"count"`
	LastSeen         *time.Time       `json:"last_seen,omitempty"`
	CommonEntities   []EntityCount    `json:"common_entities"`
	FrequentPatterns []string         `json:"frequent_patterns"`
}
