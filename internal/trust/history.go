package trust

import (
	"sort"
	"sync"
)

const defaultHistoryWindow = 100

// History is a bounded rolling window of past total scores, used to
// contextualize new evaluations. Oldest entries are evicted first when
// the window is full. Safe for concurrent use.
type History struct {
	mu     sync.Mutex
	window int
	scores []float64
}

// NewHistory creates a History holding at most window scores. A
// non-positive window falls back to the default of 100.
func NewHistory(window int) *History {
	if window <= 0 {
		window = defaultHistoryWindow
	}
	return &History{window: window}
}

// Record appends a score, evicting the oldest entry when the window is
// full.
func (h *History) Record(score float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.scores = append(h.scores, score)
	if len(h.scores) > h.window {
		h.scores = h.scores[len(h.scores)-h.window:]
	}
}

// Len returns the number of scores currently held.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.scores)
}

// Snapshot returns a copy of the window in insertion order.
func (h *History) Snapshot() []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]float64, len(h.scores))
	copy(out, h.scores)
	return out
}

// Distribution summarizes the current window. The second return value is
// false when the window is empty.
type Distribution struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	P25   float64 `json:"p25"`
	P50   float64 `json:"p50"`
	P75   float64 `json:"p75"`
}

// Distribution computes descriptive statistics over the sorted window.
func (h *History) Distribution() (Distribution, bool) {
	h.mu.Lock()
	scores := make([]float64, len(h.scores))
	copy(scores, h.scores)
	h.mu.Unlock()

	if len(scores) == 0 {
		return Distribution{}, false
	}

	sort.Float64s(scores)

	var sum float64
	for _, s := range scores {
		sum += s
	}

	return Distribution{
		Count: len(scores),
		Mean:  sum / float64(len(scores)),
		P25:   percentile(scores, 0.25),
		P50:   percentile(scores, 0.50),
		P75:   percentile(scores, 0.75),
	}, true
}

// percentile computes a linearly interpolated percentile over a sorted
// slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	lo := int(pos)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
