package metrics

import (
	"math"
	"sort"
	"sync"
)

// Histogram tracks the distribution of observed values across fixed
// buckets. Safe for concurrent use.
type Histogram struct {
	mu      sync.Mutex
	bounds  []float64 // ascending upper bounds
	counts  []uint64  // one per bound, plus overflow
	sum     float64
	count   uint64
	minSeen float64
	maxSeen float64
}

// NewHistogram creates a histogram with the given bucket upper bounds.
// Bounds are sorted; an overflow bucket catches values above the last one.
func NewHistogram(bounds []float64) *Histogram {
	b := make([]float64, len(bounds))
	copy(b, bounds)
	sort.Float64s(b)

	return &Histogram{
		bounds:  b,
		counts:  make([]uint64, len(b)+1),
		minSeen: math.MaxFloat64,
		maxSeen: -math.MaxFloat64,
	}
}

// Observe records a value.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.counts[sort.SearchFloat64s(h.bounds, v)]++
	h.sum += v
	h.count++
	if v < h.minSeen {
		h.minSeen = v
	}
	if v > h.maxSeen {
		h.maxSeen = v
	}
}

// Count returns the total number of observations.
func (h *Histogram) Count() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Mean returns the mean of all observations, or 0 with no data.
func (h *Histogram) Mean() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count == 0 {
		return 0
	}
	return h.sum / float64(h.count)
}

// Quantile estimates the q-quantile (0 < q <= 1) by linear interpolation
// inside the bucket holding the target rank. Returns 0 with no data.
func (h *Histogram) Quantile(q float64) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 {
		return 0
	}
	rank := q * float64(h.count)

	var cumulative uint64
	for i, c := range h.counts {
		cumulative += c
		if float64(cumulative) < rank {
			continue
		}
		switch {
		case i == 0:
			return h.bounds[0] / 2
		case i >= len(h.bounds):
			return h.maxSeen
		default:
			lower, upper := h.bounds[i-1], h.bounds[i]
			before := cumulative - c
			frac := (rank - float64(before)) / float64(c)
			return lower + frac*(upper-lower)
		}
	}
	return h.maxSeen
}

// BucketCount is a cumulative bucket entry of a summary.
type BucketCount struct {
	UpperBound float64 `json:"le"`
	Count      uint64  `json:"count"`
}

// HistogramSummary is an exported view of the distribution.
type HistogramSummary struct {
	Count   uint64        `json:"count"`
	Sum     float64       `json:"sum"`
	Min     float64       `json:"min"`
	Max     float64       `json:"max"`
	Mean    float64       `json:"mean"`
	Buckets []BucketCount `json:"buckets"`
}

// Summary returns a summary with cumulative bucket counts.
func (h *Histogram) Summary() HistogramSummary {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 {
		return HistogramSummary{Buckets: []BucketCount{}}
	}

	buckets := make([]BucketCount, len(h.bounds)+1)
	var cumulative uint64
	for i, bound := range h.bounds {
		cumulative += h.counts[i]
		buckets[i] = BucketCount{UpperBound: bound, Count: cumulative}
	}
	cumulative += h.counts[len(h.bounds)]
	buckets[len(h.bounds)] = BucketCount{UpperBound: math.Inf(1), Count: cumulative}

	return HistogramSummary{
		Count:   h.count,
		Sum:     h.sum,
		Min:     h.minSeen,
		Max:     h.maxSeen,
		Mean:    h.sum / float64(h.count),
		Buckets: buckets,
	}
}

// Reset clears all recorded data.
func (h *Histogram) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := range h.counts {
		h.counts[i] = 0
	}
	h.sum = 0
	h.count = 0
	h.minSeen = math.MaxFloat64
	h.maxSeen = -math.MaxFloat64
}
