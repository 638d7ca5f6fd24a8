package memory

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ent0n29/aac/internal/capability"
	"github.com/ent0n29/aac/internal/contextual"
	"github.com/ent0n29/aac/internal/similarity"
)

const (
	DefaultCapacity            = 50
	DefaultSimilarityThreshold = 0.3
	DefaultSimilarLimit        = 3
	DefaultRecentLimit         = 5

	maxCommonEntities   = 5
	maxFrequentPatterns = 3
)

type Option func(*Store)

// WithClock replaces time.Now for timestamps and age filtering.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is a fixed-capacity ring of interactions. Inserting beyond capacity
// evicts the oldest record. Reads return copies.
type Store struct {
	mu        sync.RWMutex
	items     []Interaction
	start     int
	count     int
	seq       uint64
	threshold float64
	now       func() time.Time
}

func NewStore(capacity int, threshold float64, opts ...Option) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if threshold < 0 || threshold > 1 {
		threshold = DefaultSimilarityThreshold
	}
	s := &Store{
		items:     make([]Interaction, capacity),
		threshold: threshold,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record appends a new interaction with a zero usage count.
func (s *Store) Record(text string, label contextual.Label, entities []capability.Entity, suggestions []string) (Interaction, error) {
	if !label.Valid() {
		return Interaction{}, fmt.Errorf("record interaction: %w: %q", contextual.ErrUnknownLabel, label)
	}
	rec := Interaction{
		ID:          uuid.NewString(),
		Text:        text,
		Context:     label,
		Entities:    append([]capability.Entity(nil), entities...),
		Suggestions: append([]string(nil), suggestions...),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	rec.seq = s.seq
	rec.Timestamp = s.now().UTC()
	if s.count < len(s.items) {
		s.items[(s.start+s.count)%len(s.items)] = rec
		s.count++
	} else {
		s.items[s.start] = rec
		s.start = (s.start + 1) % len(s.items)
	}
	return rec.clone(), nil
}

// at returns the i-th record oldest-first. Caller holds the lock.
func (s *Store) at(i int) *Interaction {
	return &s.items[(s.start+i)%len(s.items)]
}

// RecentByContext returns up to limit records of label younger than maxAge,
// newest first. maxAge <= 0 disables the age filter.
func (s *Store) RecentByContext(label contextual.Label, limit int, maxAge time.Duration) []Interaction {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cutoff time.Time
	if maxAge > 0 {
		cutoff = s.now().UTC().Add(-maxAge)
	}
	out := make([]Interaction, 0, limit)
	for i := s.count - 1; i >= 0 && len(out) < limit; i-- {
		rec := s.at(i)
		if rec.Context != label {
			continue
		}
		if maxAge > 0 && !rec.Timestamp.After(cutoff) {
			continue
		}
		out = append(out, rec.clone())
	}
	return out
}

// FindSimilar ranks stored records by similarity to text, keeping only those
// strictly above the store threshold. An empty label searches every context.
// Ties are broken by recency.
func (s *Store) FindSimilar(text string, label contextual.Label, limit int) []Match {
	if limit <= 0 {
		limit = DefaultSimilarLimit
	}
	if strings.TrimSpace(text) == "" {
		return []Match{}
	}
	s.mu.RLock()
	matches := make([]Match, 0, s.count)
	for i := 0; i < s.count; i++ {
		rec := s.at(i)
		if label != "" && rec.Context != label {
			continue
		}
		ratio := similarity.Ratio(text, rec.Text)
		if ratio <= s.threshold {
			continue
		}
		matches = append(matches, Match{Interaction: rec.clone(), Similarity: ratio})
	}
	s.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Interaction.seq > matches[j].Interaction.seq
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// MarkUsed increments the usage count of each listed record still in the store
// and returns how many were found.
func (s *Store) MarkUsed(ids ...string) int {
	if len(ids) == 0 {
		return 0
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := 0; i < s.count; i++ {
		rec := s.at(i)
		if _, ok := want[rec.ID]; ok {
			rec.UsageCount++
			n++
		}
	}
	return n
}

// ContextStats aggregates the records of one context.
func (s *Store) ContextStats(label contextual.Label) Stats {
	stats := Stats{
		Context:          label,
		CommonEntities:   []EntityCount{},
		FrequentPatterns: []string{},
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	type key struct{ text, typ string }
	counts := make(map[key]int)
	var order []key
	for i := 0; i < s.count; i++ {
		rec := s.at(i)
		if rec.Context != label {
			continue
		}
		stats.Count++
		ts := rec.Timestamp
		stats.LastSeen = &ts
		for _, e := range rec.Entities {
			k := key{e.Text, e.Type}
			if counts[k] == 0 {
				order = append(order, k)
			}
			counts[k]++
		}
	}
	for i := s.count - 1; i >= 0 && len(stats.FrequentPatterns) < maxFrequentPatterns; i-- {
		if rec := s.at(i); rec.Context == label {
			stats.FrequentPatterns = append(stats.FrequentPatterns, rec.Text)
		}
	}

	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	for _, k := range order {
		if len(stats.CommonEntities) == maxCommonEntities {
			break
		}
		stats.CommonEntities = append(stats.CommonEntities, EntityCount{Text: k.text, Type: k.typ, Count: counts[k]})
	}
	return stats
}

// Snapshot returns every stored record, oldest first.
func (s *Store) Snapshot() []Interaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Interaction, 0, s.count)
	for i := 0; i < s.count; i++ {
		out = append(out, s.at(i).clone())
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

func (s *Store) Capacity() int { return len(s.items) }
