// Package pipeline turns one utterance into ranked, context-aware suggestions.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ent0n29/aac/internal/analysis"
	"github.com/ent0n29/aac/internal/capability"
	"github.com/ent0n29/aac/internal/contextual"
	"github.com/ent0n29/aac/internal/memory"
	"github.com/ent0n29/aac/internal/observability"
	"github.com/ent0n29/aac/internal/policy"
	"github.com/ent0n29/aac/internal/ranking"
	"github.com/ent0n29/aac/internal/voice"
)

var ErrEmptyInput = errors.New("empty input")

// InputError reports a request the pipeline refuses to process.
type InputError struct {
	Message string
	Err     error
}

func (e *InputError) Error() string { return e.Message }

func (e *InputError) Unwrap() error { return e.Err }

type Request struct {
	Text     string
	Location string
	Hour     *int
	// Override is the session's manual context, if any.
	Override contextual.Label
	// IncludeMemory attaches context statistics and similar past interactions.
	IncludeMemory bool
}

type Result struct {
	InteractionID string              `json:"interaction_id"`
	Context       contextual.Label    `json:"context"`
	Confidence    float64             `json:"confidence"`
	Source        contextual.Source   `json:"source"`
	Entities      []capability.Entity `json:"entities"`
	Suggestions   []string            `json:"suggestions"`
	Analysis      analysis.Result     `json:"analysis"`
	Memory        *MemoryInsight      `json:"memory,omitempty"`
}

type MemoryInsight struct {
	ContextStats memory.Stats   `json:"context_stats"`
	Similar      []memory.Match `json:"similar_interactions"`
}

type Config struct {
	NumReturn   int
	Temperature float64
	TopP        float64
}

func DefaultConfig() Config {
	return Config{NumReturn: 3, Temperature: 0.7, TopP: 0.9}
}

type Deps struct {
	Classifier *contextual.Classifier
	Profiles   contextual.Profiles
	Memory     *memory.Store
	Ranker     *ranking.Ranker
	Generator  capability.Generator
	// Extractor may be nil, in which case no entities are recorded.
	Extractor capability.EntityExtractor
	// Speech may be nil to keep suggestions silent.
	Speech  *voice.Dispatcher
	Metrics *observability.Metrics
	Logger  *zap.Logger
}

type Pipeline struct {
	deps Deps
	cfg  Config
}

func New(deps Deps, cfg Config) (*Pipeline, error) {
	switch {
	case deps.Classifier == nil:
		return nil, fmt.Errorf("pipeline: classifier is required")
	case deps.Memory == nil:
		return nil, fmt.Errorf("pipeline: memory is required")
	case deps.Ranker == nil:
		return nil, fmt.Errorf("pipeline: ranker is required")
	case deps.Generator == nil:
		return nil, fmt.Errorf("pipeline: generator is required")
	}
	if deps.Profiles == nil {
		deps.Profiles = contextual.DefaultProfiles()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.NumReturn <= 0 {
		cfg.NumReturn = def.NumReturn
	}
	return &Pipeline{deps: deps, cfg: cfg}, nil
}

func (p *Pipeline) Classifier() *contextual.Classifier { return p.deps.Classifier }

func (p *Pipeline) Memory() *memory.Store { return p.deps.Memory }

// Process runs one utterance through classification, retrieval, generation
// and ranking, then records it. Only malformed input is reported as an error;
// capability failures degrade to fewer or no suggestions.
func (p *Pipeline) Process(ctx context.Context, req Request) (Result, error) {
	started := time.Now()
	text := strings.TrimSpace(req.Text)
	if text == "" {
		p.deps.Metrics.PipelineOutcome("invalid", 0)
		return Result{}, &InputError{Message: "text must not be empty", Err: ErrEmptyInput}
	}
	redacted, _ := policy.RedactPII(text)
	log := p.deps.Logger.With(zap.String("text", redacted))

	stage := time.Now()
	res := p.deps.Classifier.Resolve(ctx, contextual.Input{
		Text:     text,
		Location: req.Location,
		Hour:     req.Hour,
		Override: req.Override,
	})
	p.deps.Metrics.ObserveStage("classify", time.Since(stage))
	p.deps.Metrics.ObserveResolution(string(res.Source), string(res.Label))
	profile := p.deps.Profiles.For(res.Label)

	stage = time.Now()
	entities := p.extract(ctx, log, text)
	p.deps.Metrics.ObserveStage("extract", time.Since(stage))

	stage = time.Now()
	prompt := text
	if similar := p.deps.Memory.FindSimilar(text, res.Label, 1); len(similar) > 0 {
		prompt = "Previous: " + similar[0].Interaction.Text + "\nCurrent: " + text
		p.deps.Memory.MarkUsed(similar[0].Interaction.ID)
	}
	var insight *MemoryInsight
	if req.IncludeMemory {
		insight = &MemoryInsight{
			ContextStats: p.deps.Memory.ContextStats(res.Label),
			Similar:      p.deps.Memory.FindSimilar(text, "", memory.DefaultSimilarLimit),
		}
	}
	p.deps.Metrics.ObserveStage("retrieve", time.Since(stage))

	stage = time.Now()
	candidates, err := p.deps.Generator.Generate(ctx, prompt, capability.GenerationSettings{
		MaxLength:   profile.MaxLength,
		NumReturn:   p.cfg.NumReturn,
		Temperature: p.cfg.Temperature,
		TopP:        p.cfg.TopP,
		Formality:   profile.Formality,
		Examples:    profile.Phrases,
	})
	p.deps.Metrics.ObserveStage("generate", time.Since(stage))
	if err != nil {
		log.Warn("generation unavailable", zap.String("capability", "generator"), zap.Error(err))
		p.deps.Metrics.CapabilityError("generator")
		candidates = nil
	}

	stage = time.Now()
	suggestions := p.deps.Ranker.Rank(candidates, text)
	p.deps.Metrics.ObserveStage("rank", time.Since(stage))

	stage = time.Now()
	rec, err := p.deps.Memory.Record(text, res.Label, entities, suggestions)
	if err != nil {
		// Resolve only yields valid labels, so this is a programming error.
		log.Error("record interaction", zap.Error(err))
	}
	p.deps.Metrics.SetMemorySize(p.deps.Memory.Len())
	p.deps.Metrics.ObserveStage("record", time.Since(stage))

	if len(suggestions) > 0 {
		p.deps.Speech.SpeakAsync(suggestions[0])
	}

	p.deps.Metrics.ObserveStage("total", time.Since(started))
	p.deps.Metrics.PipelineOutcome("ok", len(suggestions))
	log.Debug("utterance processed",
		zap.String("context", string(res.Label)),
		zap.String("source", string(res.Source)),
		zap.Int("candidates", len(candidates)),
		zap.Int("suggestions", len(suggestions)),
	)

	return Result{
		InteractionID: rec.ID,
		Context:       res.Label,
		Confidence:    res.Confidence,
		Source:        res.Source,
		Entities:      entities,
		Suggestions:   suggestions,
		Analysis:      analysis.Analyze(text),
		Memory:        insight,
	}, nil
}

func (p *Pipeline) extract(ctx context.Context, log *zap.Logger, text string) []capability.Entity {
	if p.deps.Extractor == nil {
		return []capability.Entity{}
	}
	entities, err := p.deps.Extractor.Extract(ctx, text)
	if err != nil {
		log.Warn("entity extraction unavailable", zap.String("capability", "extractor"), zap.Error(err))
		p.deps.Metrics.CapabilityError("extractor")
		return []capability.Entity{}
	}
	return capability.FilterEntities(entities)
}
