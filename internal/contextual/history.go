package contextual

import "sync"

// History is a fixed-size ring of the most recently resolved labels.
type History struct {
	mu     sync.RWMutex
	labels []Label
	next   int
	filled bool
}

func NewHistory(size int) *History {
	if size <= 0 {
		size = 5
	}
	return &History{labels: make([]Label, size)}
}

// Append records l, evicting the oldest entry once the ring is full.
func (h *History) Append(l Label) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.appendLocked(l)
}

func (h *History) appendLocked(l Label) {
	h.labels[h.next] = l
	h.next++
	if h.next >= len(h.labels) {
		h.next = 0
		h.filled = true
	}
}

// Snapshot returns the labels oldest-first.
func (h *History) Snapshot() []Label {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snapshotLocked()
}

func (h *History) snapshotLocked() []Label {
	if !h.filled {
		return append([]Label(nil), h.labels[:h.next]...)
	}
	out := make([]Label, 0, len(h.labels))
	out = append(out, h.labels[h.next:]...)
	out = append(out, h.labels[:h.next]...)
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.filled {
		return len(h.labels)
	}
	return h.next
}

func (h *History) Capacity() int { return len(h.labels) }

// Majority returns the most frequent label when it occurs at least threshold times.
// Ties go to the label seen first, oldest-first.
func (h *History) Majority(threshold int) (Label, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return majority(h.snapshotLocked(), threshold)
}

// Reinforce appends the majority label again when one exists. The check and the
// append happen under one lock so concurrent resolutions see a consistent ring.
func (h *History) Reinforce(threshold int) (Label, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := majority(h.snapshotLocked(), threshold)
	if ok {
		h.appendLocked(l)
	}
	return l, ok
}

func majority(labels []Label, threshold int) (Label, bool) {
	if len(labels) == 0 {
		return "", false
	}
	counts := make(map[Label]int, 3)
	order := make([]Label, 0, 3)
	for _, l := range labels {
		if counts[l] == 0 {
			order = append(order, l)
		}
		counts[l]++
	}
	best := order[0]
	for _, l := range order[1:] {
		if counts[l] > counts[best] {
			best = l
		}
	}
	if counts[best] < threshold {
		return "", false
	}
	return best, true
}
