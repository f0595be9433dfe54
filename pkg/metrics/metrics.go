// Package metrics provides observability primitives for the qnetsim
// simulation engine.
//
// The package includes:
//   - Counter and Histogram metric types for protocol runs
//   - OpenTelemetry tracing support
//   - Structured logging with levels
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector aggregates metrics across protocol runs on one engine.
type Collector struct {
	// Run outcomes
	runsStarted   atomic.Uint64
	runsCompleted atomic.Uint64
	runsAborted   atomic.Uint64
	runsFailed    atomic.Uint64

	// Quantum resource usage
	qubitsAllocated atomic.Uint64
	pairsCreated    atomic.Uint64
	noiseEvents     atomic.Uint64

	// Classical channel traffic
	messagesSent    atomic.Uint64
	messagesDropped atomic.Uint64
	authFailures    atomic.Uint64

	// Key material produced by accepted runs
	siftedBits atomic.Uint64
	finalBits  atomic.Uint64

	// Distributions
	qber       *Histogram
	runLatency *Histogram

	// Creation time for uptime tracking
	createdAt time.Time

	// Labels for this collector instance
	labels Labels
}

// Labels represents key-value pairs for metric labeling.
type Labels map[string]string

// Default bucket configurations for histograms.
var (
	// QBERBuckets for observed quantum bit error rates (fractions).
	QBERBuckets = []float64{0.01, 0.02, 0.05, 0.08, 0.11, 0.15, 0.25, 0.5}

	// RunLatencyBuckets for protocol run durations (milliseconds).
	RunLatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000}
)

// NewCollector creates a new metrics collector.
func NewCollector(labels Labels) *Collector {
	if labels == nil {
		labels = make(Labels)
	}
	return &Collector{
		qber:       NewHistogram(QBERBuckets),
		runLatency: NewHistogram(RunLatencyBuckets),
		createdAt:  time.Now(),
		labels:     labels,
	}
}

// --- Run Metrics ---

// RunStarted increments the started-run counter.
func (c *Collector) RunStarted() {
	c.runsStarted.Add(1)
}

// RunCompleted records a run that produced its result.
func (c *Collector) RunCompleted(d time.Duration) {
	c.runsCompleted.Add(1)
	c.runLatency.Observe(float64(d.Milliseconds()))
}

// RunAborted records a run abandoned by a security check.
func (c *Collector) RunAborted(d time.Duration) {
	c.runsAborted.Add(1)
	c.runLatency.Observe(float64(d.Milliseconds()))
}

// RunFailed records a run that ended in an error.
func (c *Collector) RunFailed() {
	c.runsFailed.Add(1)
}

// RecordQBER records an estimated error rate from a key distribution run.
func (c *Collector) RecordQBER(qber float64) {
	c.qber.Observe(qber)
}

// --- Resource Metrics ---

// RecordQubitsAllocated adds to the allocated-qubit counter.
func (c *Collector) RecordQubitsAllocated(n uint64) {
	c.qubitsAllocated.Add(n)
}

// RecordPairsCreated adds to the entangled-pair counter.
func (c *Collector) RecordPairsCreated(n uint64) {
	c.pairsCreated.Add(n)
}

// RecordNoiseEvents adds to the channel-noise counter.
func (c *Collector) RecordNoiseEvents(n uint64) {
	c.noiseEvents.Add(n)
}

// --- Traffic Metrics ---

// RecordMessageSent increments the classical message counter.
func (c *Collector) RecordMessageSent() {
	c.messagesSent.Add(1)
}

// RecordMessageDropped increments the dropped message counter.
func (c *Collector) RecordMessageDropped() {
	c.messagesDropped.Add(1)
}

// RecordAuthFailure increments the authentication failure counter.
func (c *Collector) RecordAuthFailure() {
	c.authFailures.Add(1)
}

// --- Key Metrics ---

// RecordSiftedBits adds to the sifted key bit counter.
func (c *Collector) RecordSiftedBits(n uint64) {
	c.siftedBits.Add(n)
}

// RecordFinalBits adds to the final key bit counter.
func (c *Collector) RecordFinalBits(n uint64) {
	c.finalBits.Add(n)
}

// --- Snapshot ---

// Snapshot is a point-in-time view of all collected metrics.
type Snapshot struct {
	// Timestamp of the snapshot
	Timestamp time.Time

	// Uptime since collector creation
	Uptime time.Duration

	// Run outcomes
	RunsStarted   uint64
	RunsCompleted uint64
	RunsAborted   uint64
	RunsFailed    uint64

	// Quantum resource usage
	QubitsAllocated uint64
	PairsCreated    uint64
	NoiseEvents     uint64

	// Classical channel traffic
	MessagesSent    uint64
	MessagesDropped uint64
	AuthFailures    uint64

	// Key material
	SiftedBits uint64
	FinalBits  uint64

	// Histogram summaries
	QBER       HistogramSummary
	RunLatency HistogramSummary

	// Labels
	Labels Labels
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		Timestamp:       time.Now(),
		Uptime:          time.Since(c.createdAt),
		RunsStarted:     c.runsStarted.Load(),
		RunsCompleted:   c.runsCompleted.Load(),
		RunsAborted:     c.runsAborted.Load(),
		RunsFailed:      c.runsFailed.Load(),
		QubitsAllocated: c.qubitsAllocated.Load(),
		PairsCreated:    c.pairsCreated.Load(),
		NoiseEvents:     c.noiseEvents.Load(),
		MessagesSent:    c.messagesSent.Load(),
		MessagesDropped: c.messagesDropped.Load(),
		AuthFailures:    c.authFailures.Load(),
		SiftedBits:      c.siftedBits.Load(),
		FinalBits:       c.finalBits.Load(),
		QBER:            c.qber.Summary(),
		RunLatency:      c.runLatency.Summary(),
		Labels:          c.labels,
	}
}

// Reset clears all metrics (useful for testing).
func (c *Collector) Reset() {
	c.runsStarted.Store(0)
	c.runsCompleted.Store(0)
	c.runsAborted.Store(0)
	c.runsFailed.Store(0)
	c.qubitsAllocated.Store(0)
	c.pairsCreated.Store(0)
	c.noiseEvents.Store(0)
	c.messagesSent.Store(0)
	c.messagesDropped.Store(0)
	c.authFailures.Store(0)
	c.siftedBits.Store(0)
	c.finalBits.Store(0)
	c.qber.Reset()
	c.runLatency.Reset()
	c.createdAt = time.Now()
}

// --- Global Collector ---

var (
	globalCollector     *Collector
	globalCollectorOnce sync.Once
)

// Global returns the global metrics collector.
// Creates one with default settings if not already initialized.
func Global() *Collector {
	globalCollectorOnce.Do(func() {
		globalCollector = NewCollector(Labels{"instance": "default"})
	})
	return globalCollector
}

// SetGlobal sets the global metrics collector.
// Should be called during initialization before any metrics are recorded.
func SetGlobal(c *Collector) {
	globalCollector = c
}
