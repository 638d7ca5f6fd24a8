package contextual

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ent0n29/aac/internal/capability"
	"github.com/ent0n29/aac/internal/policy"
)

// Source names the tier that produced a resolution.
type Source string

const (
	SourceManual  Source = "manual"
	SourceHistory Source = "history"
	SourceModel   Source = "ml"
	SourceRule    Source = "rule"
)

// Input is everything a resolution may look at.
type Input struct {
	Text     string
	Location string
	// Hour overrides the clock's hour of day when set.
	Hour *int
	// Override is the session-scoped manual context; empty means none.
	Override Label
}

type Resolution struct {
	Label      Label   `json:"context"`
	Confidence float64 `json:"confidence"`
	Source     Source  `json:"source"`
}

// Outcome is one strategy's verdict. Only applicable outcomes are used.
type Outcome struct {
	Label      Label
	Confidence float64
	Applicable bool
}

// Strategy is one tier of the resolution policy.
type Strategy interface {
	Source() Source
	Evaluate(ctx context.Context, in Input) Outcome
}

type Config struct {
	MajorityThreshold int
	MLThreshold       float64
	WorkLocations     []string
	WorkStartHour     int
	WorkEndHour       int
}

func DefaultConfig() Config {
	return Config{
		MajorityThreshold: 3,
		MLThreshold:       0.7,
		WorkLocations:     []string{"office", "conference room", "meeting room"},
		WorkStartHour:     9,
		WorkEndHour:       18,
	}
}

type Option func(*Classifier)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Classifier) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock replaces time.Now for the work-hours rule.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) {
		if now != nil {
			c.now = now
		}
	}
}

// WithModelErrorHook is called whenever the model capability fails.
func WithModelErrorHook(fn func(error)) Option {
	return func(c *Classifier) { c.onModelError = fn }
}

// Classifier resolves a context label through an ordered list of strategies:
// manual override, history majority, model, then location and time rules.
type Classifier struct {
	history      *History
	model        capability.Classifier
	cfg          Config
	strategies   []Strategy
	logger       *zap.Logger
	now          func() time.Time
	onModelError func(error)
}

// NewClassifier builds a classifier over a shared history. model may be nil.
func NewClassifier(history *History, model capability.Classifier, cfg Config, opts ...Option) *Classifier {
	if history == nil {
		history = NewHistory(5)
	}
	def := DefaultConfig()
	if cfg.MajorityThreshold <= 0 {
		cfg.MajorityThreshold = def.MajorityThreshold
	}
	if cfg.WorkLocations == nil {
		cfg.WorkLocations = def.WorkLocations
	}
	if cfg.WorkStartHour == 0 && cfg.WorkEndHour == 0 {
		cfg.WorkStartHour, cfg.WorkEndHour = def.WorkStartHour, def.WorkEndHour
	}
	c := &Classifier{
		history: history,
		model:   model,
		cfg:     cfg,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.strategies = []Strategy{
		manualStrategy{},
		historyStrategy{history: history, threshold: cfg.MajorityThreshold},
		&modelStrategy{classifier: c},
		ruleStrategy{classifier: c},
	}
	return c
}

func (c *Classifier) History() *History { return c.history }

// Resolve never fails; the rule tier is always applicable.
func (c *Classifier) Resolve(ctx context.Context, in Input) Resolution {
	for _, s := range c.strategies {
		out := s.Evaluate(ctx, in)
		if !out.Applicable {
			continue
		}
		src := s.Source()
		// The history tier appends its own label under the ring's lock.
		if src != SourceHistory {
			c.history.Append(out.Label)
		}
		c.logger.Debug("context resolved",
			zap.String("label", string(out.Label)),
			zap.String("source", string(src)),
			zap.Float64("confidence", out.Confidence),
		)
		return Resolution{Label: out.Label, Confidence: out.Confidence, Source: src}
	}
	c.history.Append(LabelGeneral)
	return Resolution{Label: LabelGeneral, Source: SourceRule}
}

// RecentContext is the current history majority, or general when there is none.
func (c *Classifier) RecentContext() Label {
	if l, ok := c.history.Majority(c.cfg.MajorityThreshold); ok {
		return l
	}
	return LabelGeneral
}

type manualStrategy struct{}

func (manualStrategy) Source() Source { return SourceManual }

func (manualStrategy) Evaluate(_ context.Context, in Input) Outcome {
	if !in.Override.Valid() {
		return Outcome{}
	}
	return Outcome{Label: in.Override, Confidence: 1, Applicable: true}
}

type historyStrategy struct {
	history   *History
	threshold int
}

func (historyStrategy) Source() Source { return SourceHistory }

func (s historyStrategy) Evaluate(_ context.Context, _ Input) Outcome {
	l, ok := s.history.Reinforce(s.threshold)
	if !ok {
		return Outcome{}
	}
	return Outcome{Label: l, Confidence: 1, Applicable: true}
}

type modelStrategy struct {
	classifier *Classifier
}

func (*modelStrategy) Source() Source { return SourceModel }

func (s *modelStrategy) Evaluate(ctx context.Context, in Input) Outcome {
	c := s.classifier
	if c.model == nil || strings.TrimSpace(in.Text) == "" {
		return Outcome{}
	}
	pred, err := c.model.Classify(ctx, in.Text)
	if err != nil {
		redacted, _ := policy.RedactPII(in.Text)
		c.logger.Warn("context classifier unavailable",
			zap.String("capability", "classifier"),
			zap.String("text", redacted),
			zap.Error(err),
		)
		if c.onModelError != nil {
			c.onModelError(err)
		}
		return Outcome{}
	}
	label, err := ParseLabel(pred.Label)
	if err != nil {
		c.logger.Debug("context classifier returned unknown label", zap.String("label", pred.Label))
		return Outcome{}
	}
	if pred.Confidence <= c.cfg.MLThreshold {
		return Outcome{}
	}
	conf := pred.Confidence
	if conf > 1 {
		conf = 1
	}
	return Outcome{Label: label, Confidence: conf, Applicable: true}
}

type ruleStrategy struct {
	classifier *Classifier
}

func (ruleStrategy) Source() Source { return SourceRule }

func (s ruleStrategy) Evaluate(_ context.Context, in Input) Outcome {
	c := s.classifier
	if c.isWorkLocation(in.Location) {
		return Outcome{Label: LabelWork, Applicable: true}
	}
	hour := c.now().Hour()
	if in.Hour != nil {
		hour = *in.Hour
	}
	if hour >= c.cfg.WorkStartHour && hour < c.cfg.WorkEndHour {
		return Outcome{Label: LabelWork, Applicable: true}
	}
	return Outcome{Label: LabelGeneral, Applicable: true}
}

func (c *Classifier) isWorkLocation(location string) bool {
	location = strings.TrimSpace(location)
	if location == "" {
		return false
	}
	for _, w := range c.cfg.WorkLocations {
		if strings.EqualFold(location, strings.TrimSpace(w)) {
			return true
		}
	}
	return false
}
