// Package metrics provides observability primitives for the qnetsim engine.
//
// # Overview
//
// The metrics package offers:
//   - Metrics collection for protocol runs (counters, histograms)
//   - Distributed tracing support (OpenTelemetry-compatible interface)
//   - Structured logging with levels
//
// # Quick Start
//
// Basic usage with the global collector:
//
//	import "github.com/entanglab/qnetsim/pkg/metrics"
//
//	metrics.Global().RunStarted()
//	metrics.Global().RecordQBER(0.03)
//	metrics.Global().RunCompleted(12 * time.Millisecond)
//
// # Metrics Collection
//
// The Collector type aggregates metrics from protocol runs:
//
//	collector := metrics.NewCollector(metrics.Labels{
//		"network": "lab-ring",
//	})
//
//	collector.RunStarted()
//	collector.RecordPairsCreated(64)
//	collector.RecordSiftedBits(512)
//	collector.RunCompleted(d)
//
//	snap := collector.Snapshot()
//
// # Tracing
//
// The package provides a Tracer interface compatible with OpenTelemetry:
//
//	// Use the simple tracer for testing
//	tracer := metrics.NewSimpleTracer()
//	metrics.SetTracer(tracer)
//
//	// OpenTelemetry adapter (uses global provider)
//	otelTracer := metrics.NewOTelTracer("qnetsim")
//	metrics.SetTracer(otelTracer)
//	// Build with -tags otel to enable the adapter.
//
//	// Start spans
//	ctx, end := metrics.StartSpan(ctx, metrics.SpanRunBB84)
//	defer end(nil) // or end(err) on error
//
// # Structured Logging
//
// The Logger provides structured logging with levels:
//
//	logger := metrics.NewLogger(
//		metrics.WithLevel(metrics.LevelInfo),
//		metrics.WithFormat(metrics.FormatJSON),
//		metrics.WithFields(metrics.Fields{"service": "qnetsim"}),
//	)
//
//	logger.Info("run accepted", metrics.Fields{
//		"protocol": "bb84",
//		"qber":     0.021,
//	})
//
//	// Child loggers
//	runLog := logger.Named("engine").With(metrics.Fields{"round": 7})
//	runLog.Debug("sifting key")
package metrics
