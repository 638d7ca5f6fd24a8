package observability

import (
	"math"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
)

// StageStats summarises the recent latency samples of one pipeline stage.
type StageStats struct {
	Stage       string  `json:"stage"`
	Samples     int     `json:"samples"`
	LastMS      float64 `json:"last_ms"`
	AvgMS       float64 `json:"avg_ms"`
	P50MS       float64 `json:"p50_ms"`
	P95MS       float64 `json:"p95_ms"`
	P99MS       float64 `json:"p99_ms"`
	TargetP95MS float64 `json:"target_p95_ms,omitempty"`
	OverTarget  bool    `json:"over_target,omitempty"`
}

// Indicator counts discrete events such as resolutions per tier.
type Indicator struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type StageSnapshot struct {
	GeneratedAt time.Time    `json:"generated_at"`
	WindowSize  int          `json:"window_size"`
	Stages      []StageStats `json:"stages"`
	Indicators  []Indicator  `json:"indicators,omitempty"`
}

// Latency budgets per stage. The model-backed stages dominate the total.
var stageTargetsMS = map[string]float64{
	"classify": 400,
	"extract":  400,
	"retrieve": 10,
	"generate": 1500,
	"rank":     10,
	"record":   10,
	"total":    2500,
}

// ring keeps the newest len(values) samples.
type ring struct {
	values []float64
	next   int
	count  int
	last   float64
}

func (r *ring) add(v float64) {
	r.values[r.next] = v
	r.next = (r.next + 1) % len(r.values)
	if r.count < len(r.values) {
		r.count++
	}
	r.last = v
}

func (r *ring) sorted() []float64 {
	out := slices.Clone(r.values[:r.count])
	slices.Sort(out)
	return out
}

// stageWindow is a rolling, in-process view of stage latency, served by the
// perf endpoint alongside the Prometheus histograms.
type stageWindow struct {
	mu         sync.RWMutex
	size       int
	stages     map[string]*ring
	indicators map[string]int
}

func newStageWindow(size int) *stageWindow {
	if size <= 0 {
		size = 256
	}
	return &stageWindow{
		size:       size,
		stages:     make(map[string]*ring),
		indicators: make(map[string]int),
	}
}

func (w *stageWindow) Observe(stage string, ms float64) {
	if stage == "" || ms < 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.stages[stage]
	if !ok {
		r = &ring{values: make([]float64, w.size)}
		w.stages[stage] = r
	}
	r.add(ms)
}

func (w *stageWindow) ObserveIndicator(name string) {
	name = strings.TrimSpace(name)
	if w == nil || name == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.indicators[name]++
}

func (w *stageWindow) Snapshot() StageSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	snap := StageSnapshot{
		GeneratedAt: time.Now().UTC(),
		WindowSize:  w.size,
		Stages:      make([]StageStats, 0, len(w.stages)),
	}
	for stage, r := range w.stages {
		if r.count == 0 {
			continue
		}
		snap.Stages = append(snap.Stages, summarize(stage, r))
	}
	sort.Slice(snap.Stages, func(i, j int) bool { return snap.Stages[i].Stage < snap.Stages[j].Stage })

	for name, count := range w.indicators {
		if count > 0 {
			snap.Indicators = append(snap.Indicators, Indicator{Name: name, Count: count})
		}
	}
	sort.Slice(snap.Indicators, func(i, j int) bool { return snap.Indicators[i].Name < snap.Indicators[j].Name })
	return snap
}

func (w *stageWindow) Reset() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	clear(w.stages)
	clear(w.indicators)
}

func summarize(stage string, r *ring) StageStats {
	samples := r.sorted()
	var sum float64
	for _, v := range samples {
		sum += v
	}
	st := StageStats{
		Stage:       stage,
		Samples:     len(samples),
		LastMS:      round2(r.last),
		AvgMS:       round2(sum / float64(len(samples))),
		P50MS:       round2(percentile(samples, 0.50)),
		P95MS:       round2(percentile(samples, 0.95)),
		P99MS:       round2(percentile(samples, 0.99)),
		TargetP95MS: stageTargetsMS[stage],
	}
	st.OverTarget = st.TargetP95MS > 0 && st.P95MS > st.TargetP95MS
	return st
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []float64, q float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case q <= 0:
		return sorted[0]
	case q >= 1:
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
