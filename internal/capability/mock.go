package capability

import (
	"context"
	"sync"
)

// MockClassifier returns a fixed prediction or error and counts calls.
type MockClassifier struct {
	mu         sync.Mutex
	Prediction Prediction
	Err        error
	calls      int
}

func NewMockClassifier(label string, confidence float64) *MockClassifier {
	return &MockClassifier{Prediction: Prediction{Label: label, Confidence: confidence}}
}

func (c *MockClassifier) Classify(ctx context.Context, _ string) (Prediction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	if c.Err != nil {
		return Prediction{}, c.Err
	}
	return c.Prediction, nil
}

func (c *MockClassifier) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

var stubReplies = []string{
	"I understand and will help with that.",
	"Could you please provide more details?",
	"I'll assist you with this request.",
	"Let me help you with that task.",
}

// StubGenerator produces deterministic offline suggestions: the profile's example
// phrases first, then a fixed set of generic replies.
type StubGenerator struct{}

func NewStubGenerator() *StubGenerator { return &StubGenerator{} }

func (g *StubGenerator) Generate(ctx context.Context, _ string, settings GenerationSettings) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := settings.NumReturn
	if n <= 0 {
		n = 1
	}
	pool := make([]string, 0, len(settings.Examples)+len(stubReplies))
	pool = append(pool, settings.Examples...)
	pool = append(pool, stubReplies...)
	if n > len(pool) {
		n = len(pool)
	}
	return append([]string(nil), pool[:n]...), nil
}

// StaticGenerator returns the same candidates for every prompt and records the last request.
type StaticGenerator struct {
	mu           sync.Mutex
	Candidates   []string
	Err          error
	LastPrompt   string
	LastSettings GenerationSettings
}

func (g *StaticGenerator) Generate(_ context.Context, prompt string, settings GenerationSettings) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.LastPrompt = prompt
	g.LastSettings = settings
	if g.Err != nil {
		return nil, g.Err
	}
	return append([]string(nil), g.Candidates...), nil
}

// Last returns the most recent prompt and settings.
func (g *StaticGenerator) Last() (string, GenerationSettings) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.LastPrompt, g.LastSettings
}
