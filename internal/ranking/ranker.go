// Package ranking filters, scores and orders raw generator candidates.
package ranking

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ent0n29/aac/internal/similarity"
)

var ErrInvalidConfig = errors.New("invalid ranker config")

type Config struct {
	MinLength          int
	MaxLength          int
	DuplicateThreshold float64
	MinUniqueRatio     float64
	MaxOutputs         int
}

func DefaultConfig() Config {
	return Config{
		MinLength:          10,
		MaxLength:          100,
		DuplicateThreshold: 0.85,
		MinUniqueRatio:     0.5,
		MaxOutputs:         3,
	}
}

func (c Config) Validate() error {
	switch {
	case c.MinLength < 0:
		return fmt.Errorf("%w: min length %d is negative", ErrInvalidConfig, c.MinLength)
	case c.MaxLength < c.MinLength:
		return fmt.Errorf("%w: max length %d below min length %d", ErrInvalidConfig, c.MaxLength, c.MinLength)
	case c.MinLength+c.MaxLength <= 0:
		return fmt.Errorf("%w: ideal length must be positive", ErrInvalidConfig)
	case c.DuplicateThreshold < 0 || c.DuplicateThreshold > 1:
		return fmt.Errorf("%w: duplicate threshold %v outside [0,1]", ErrInvalidConfig, c.DuplicateThreshold)
	case c.MaxOutputs <= 0:
		return fmt.Errorf("%w: max outputs must be positive", ErrInvalidConfig)
	}
	return nil
}

// ScoredCandidate is a normalized candidate with its quality score in [0,1].
type ScoredCandidate struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

type Option func(*Ranker)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Ranker) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithFallbackHook is called whenever ranking degrades to the raw candidates.
func WithFallbackHook(fn func(error)) Option {
	return func(r *Ranker) { r.onFallback = fn }
}

type Ranker struct {
	cfg        Config
	logger     *zap.Logger
	onFallback func(error)
}

func New(cfg Config, opts ...Option) *Ranker {
	r := &Ranker{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Ranker) Config() Config { return r.cfg }

// Rank returns at most MaxOutputs cleaned candidates, best first. reference may
// be empty. Rank never fails: on any internal fault it returns the first
// MaxOutputs raw candidates unchanged.
func (r *Ranker) Rank(candidates []string, reference string) []string {
	scored, err := r.RankScored(candidates, reference)
	if err != nil {
		return r.fallback(candidates, err)
	}
	out := make([]string, 0, len(scored))
	for _, c := range scored {
		out = append(out, c.Text)
	}
	return out
}

// RankScored is Rank with scores, reporting faults instead of degrading.
func (r *Ranker) RankScored(candidates []string, reference string) (out []ScoredCandidate, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, err = nil, fmt.Errorf("ranking panicked: %v", rec)
		}
	}()
	if err := r.cfg.Validate(); err != nil {
		return nil, err
	}

	accepted := make([]ScoredCandidate, 0, len(candidates))
	for _, raw := range candidates {
		text := Normalize(raw)
		if text == "" {
			continue
		}
		n := utf8.RuneCountInString(text)
		if n < r.cfg.MinLength || n > r.cfg.MaxLength {
			continue
		}
		if r.isDuplicate(text, accepted) {
			continue
		}
		accepted = append(accepted, ScoredCandidate{Text: text, Score: r.score(text, reference)})
	}

	sort.SliceStable(accepted, func(i, j int) bool { return accepted[i].Score > accepted[j].Score })
	if len(accepted) > r.cfg.MaxOutputs {
		accepted = accepted[:r.cfg.MaxOutputs]
	}
	return accepted, nil
}

func (r *Ranker) isDuplicate(text string, accepted []ScoredCandidate) bool {
	for _, a := range accepted {
		if similarity.Ratio(text, a.Text) >= r.cfg.DuplicateThreshold {
			return true
		}
	}
	return false
}

func (r *Ranker) score(text, reference string) float64 {
	score := 1.0

	ideal := float64(r.cfg.MinLength+r.cfg.MaxLength) / 2
	n := float64(utf8.RuneCountInString(text))
	score -= 0.3 * math.Abs(n-ideal) / ideal

	if ratio := uniqueWordRatio(text); ratio < r.cfg.MinUniqueRatio {
		score -= r.cfg.MinUniqueRatio - ratio
	}
	if reference != "" {
		score += 0.2 * similarity.Ratio(text, reference)
	}
	return math.Max(0, math.Min(1, score))
}

func (r *Ranker) fallback(candidates []string, err error) []string {
	r.logger.Warn("ranking failed, returning raw candidates", zap.Error(err))
	if r.onFallback != nil {
		r.onFallback(err)
	}
	limit := r.cfg.MaxOutputs
	if limit <= 0 {
		limit = DefaultConfig().MaxOutputs
	}
	if limit > len(candidates) {
		limit = len(candidates)
	}
	return append([]string{}, candidates[:limit]...)
}

func uniqueWordRatio(text string) float64 {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		seen[w] = struct{}{}
	}
	return float64(len(seen)) / float64(len(words))
}

// Normalize collapses whitespace, upper-cases the first letter and ensures
// terminal punctuation. The rest of the string is left as is.
func Normalize(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	first, size := utf8.DecodeRuneInString(s)
	s = string(unicode.ToUpper(first)) + s[size:]
	switch s[len(s)-1] {
	case '.', '!', '?':
		return s
	}
	return s + "."
}
