package metrics

import (
	"context"
	"errors"
	"testing"
)

func TestSimpleTracerRecordsSpans(t *testing.T) {
	tracer := NewSimpleTracer()

	ctx, end := tracer.StartSpan(context.Background(), SpanRunBB84,
		WithAttributes(SpanAttributes{Protocol: "bb84", Source: "alice", Target: "bob"}.ToMap()))
	_, endChild := tracer.StartSpan(ctx, SpanTransmit)
	endChild(nil)
	end(errors.New("aborted"))

	spans := tracer.Spans()
	if len(spans) != 2 {
		t.Fatalf("recorded %d spans, want 2", len(spans))
	}

	child, parent := spans[0], spans[1]
	if child.Name != SpanTransmit || parent.Name != SpanRunBB84 {
		t.Errorf("span order = %q, %q", child.Name, parent.Name)
	}
	if child.ParentID != parent.SpanID {
		t.Error("child span not linked to parent")
	}
	if child.TraceID != parent.TraceID {
		t.Error("child span not in parent trace")
	}
	if parent.Error == nil || child.Error != nil {
		t.Errorf("span errors = %v, %v", parent.Error, child.Error)
	}
	if parent.Attributes["run.protocol"] != "bb84" {
		t.Errorf("attributes = %v", parent.Attributes)
	}
}

func TestSpanAttributesToMap(t *testing.T) {
	m := SpanAttributes{Protocol: "teleport", RoundID: 9, QBER: 0.04, KeyBits: 128}.ToMap()
	if m["run.protocol"] != "teleport" || m["run.round_id"] != int64(9) {
		t.Errorf("map = %v", m)
	}
	if m["run.qber"] != 0.04 || m["run.key_bits"] != 128 {
		t.Errorf("map = %v", m)
	}
	if _, ok := m["net.source"]; ok {
		t.Error("empty attribute emitted")
	}
}

func TestNoOpTracer(t *testing.T) {
	ctx, end := NoOpTracer{}.StartSpan(context.Background(), "anything")
	if ctx == nil {
		t.Fatal("nil context")
	}
	end(nil)
}

func TestGlobalTracer(t *testing.T) {
	orig := GetTracer()
	defer SetTracer(orig)

	tracer := NewSimpleTracer()
	SetTracer(tracer)

	_, end := StartSpan(context.Background(), SpanDistill)
	end(nil)

	if len(tracer.Spans()) != 1 {
		t.Errorf("global tracer recorded %d spans", len(tracer.Spans()))
	}
}

func TestSimpleTracerReset(t *testing.T) {
	tracer := NewSimpleTracer()
	_, end := tracer.StartSpan(context.Background(), SpanRunSwap)
	end(nil)
	tracer.Reset()
	if len(tracer.Spans()) != 0 {
		t.Error("Reset left spans")
	}
}
