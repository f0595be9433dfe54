package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/entanglab/qnetsim/internal/constants"
	qerrors "github.com/entanglab/qnetsim/internal/errors"
	"github.com/entanglab/qnetsim/pkg/quantum"
)

func TestChannelFIFORoundTrip(t *testing.T) {
	ch := NewChannel("ch-0", 8, 0.98, 1000)

	for i, payload := range []string{"first", "second", "third"} {
		if err := ch.Send(Message{Payload: []byte(payload), Destination: "bob"}); err != nil {
			t.Fatalf("Send %d: %v", i, err)
		}
	}
	if ch.Len() != 3 || !ch.Busy() {
		t.Fatalf("Len = %d, Busy = %v after three sends", ch.Len(), ch.Busy())
	}

	ctx := context.Background()
	for _, want := range []string{"first", "second", "third"} {
		msg, err := ch.Receive(ctx, time.Second)
		if err != nil {
			t.Fatalf("Receive: %v", err)
		}
		if string(msg.Payload) != want {
			t.Errorf("Receive = %q, want %q", msg.Payload, want)
		}
		if msg.SentAt.IsZero() {
			t.Error("SentAt not stamped")
		}
	}
	if ch.Busy() {
		t.Error("channel busy after drain")
	}
}

func TestChannelCapacity(t *testing.T) {
	ch := NewChannel("tiny", 2, 0.98, 1000)

	if err := ch.Send(Message{Payload: []byte("a")}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := ch.Send(Message{Payload: []byte("b")}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	err := ch.Send(Message{Payload: []byte("c")})
	if !errors.Is(err, qerrors.ErrChannelFull) {
		t.Fatalf("Send over capacity = %v, want ErrChannelFull", err)
	}

	// Draining one slot makes room again.
	if _, err := ch.Receive(context.Background(), 0); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if err := ch.Send(Message{Payload: []byte("c")}); err != nil {
		t.Errorf("Send after drain: %v", err)
	}
}

func TestChannelZeroTimeoutPolls(t *testing.T) {
	ch := NewChannel("poll", 4, 0.98, 1000)

	start := time.Now()
	_, err := ch.Receive(context.Background(), 0)
	if !errors.Is(err, qerrors.ErrReceiveTimeout) {
		t.Fatalf("empty poll = %v, want ErrReceiveTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("zero-timeout receive blocked for %v", elapsed)
	}

	if qerrors.Kind(err) != "timeout" {
		t.Errorf("Kind = %q, want timeout", qerrors.Kind(err))
	}
}

func TestChannelReceiveTimeout(t *testing.T) {
	ch := NewChannel("wait", 4, 0.98, 1000)

	start := time.Now()
	_, err := ch.Receive(context.Background(), 30*time.Millisecond)
	if !errors.Is(err, qerrors.ErrReceiveTimeout) {
		t.Fatalf("Receive = %v, want ErrReceiveTimeout", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("Receive returned after %v, before the timeout", elapsed)
	}
}

func TestChannelReceiveUnblocksOnSend(t *testing.T) {
	ch := NewChannel("unblock", 4, 0.98, 1000)

	done := make(chan Message, 1)
	go func() {
		msg, err := ch.Receive(context.Background(), 5*time.Second)
		if err != nil {
			t.Errorf("Receive: %v", err)
		}
		done <- msg
	}()

	time.Sleep(10 * time.Millisecond)
	if err := ch.Send(Message{Payload: []byte("ping")}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case msg := <-done:
		if string(msg.Payload) != "ping" {
			t.Errorf("received %q", msg.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("receiver did not unblock")
	}
}

func TestChannelReceiveCancellation(t *testing.T) {
	ch := NewChannel("cancel", 4, 0.98, 1000)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := ch.Receive(ctx, 5*time.Second)
		errc <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		if !errors.Is(err, qerrors.ErrReceiveCancelled) {
			t.Errorf("cancelled Receive = %v, want ErrReceiveCancelled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("receiver did not observe cancellation")
	}
}

func TestChannelClose(t *testing.T) {
	ch := NewChannel("closing", 4, 0.98, 1000)

	if err := ch.Send(Message{Payload: []byte("last")}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	ch.Close()

	if err := ch.Send(Message{Payload: []byte("late")}); !errors.Is(err, qerrors.ErrChannelClosed) {
		t.Errorf("Send after Close = %v, want ErrChannelClosed", err)
	}

	// Queued messages drain after close.
	msg, err := ch.Receive(context.Background(), 0)
	if err != nil {
		t.Fatalf("drain after Close: %v", err)
	}
	if string(msg.Payload) != "last" {
		t.Errorf("drained %q", msg.Payload)
	}
	if _, err := ch.Receive(context.Background(), 0); !errors.Is(err, qerrors.ErrChannelClosed) {
		t.Errorf("Receive on drained closed channel = %v, want ErrChannelClosed", err)
	}
}

func TestChannelDefaults(t *testing.T) {
	ch := NewChannel("min", 0, 0.5, 10)
	if ch.Capacity() != 1 {
		t.Errorf("capacity raised to %d, want 1", ch.Capacity())
	}
	if ch.ID() != "min" || ch.Fidelity() != 0.5 || ch.Bandwidth() != 10 {
		t.Errorf("accessors = %q/%v/%v", ch.ID(), ch.Fidelity(), ch.Bandwidth())
	}
}

func TestApplyLinkNoiseExtremes(t *testing.T) {
	ar := quantum.NewArena()
	src := quantum.NewBitSource("noise")

	clean := ar.Initialize("alice", 50)
	hit, err := ApplyLinkNoise(ar, clean, 0, src)
	if err != nil || hit != 0 {
		t.Errorf("lossRate 0: hit = %d, err = %v", hit, err)
	}

	noisy := ar.Initialize("alice", 50)
	hit, err = ApplyLinkNoise(ar, noisy, 1, src)
	if err != nil {
		t.Fatalf("ApplyLinkNoise: %v", err)
	}
	if hit != 50 {
		t.Errorf("lossRate 1: hit = %d, want 50", hit)
	}
}

func TestApplyLinkNoiseRaisesErrorRate(t *testing.T) {
	ar := quantum.NewArena()
	src := quantum.NewBitSource("noise-qber")

	// Transmit prepared |0> qubits through increasingly lossy links and
	// count measurement errors; the error rate must grow with the loss rate.
	errorCount := func(lossRate float64) int {
		errs := 0
		for i := 0; i < 600; i++ {
			h := ar.NewQubit("alice")
			if err := ar.Prepare(h, 0, constants.BasisZ); err != nil {
				t.Fatalf("Prepare: %v", err)
			}
			if _, err := ApplyLinkNoise(ar, []quantum.Handle{h}, lossRate, src); err != nil {
				t.Fatalf("ApplyLinkNoise: %v", err)
			}
			bit, err := ar.Measure(h, constants.BasisZ, src)
			if err != nil {
				t.Fatalf("Measure: %v", err)
			}
			errs += bit
		}
		return errs
	}

	low := errorCount(0.05)
	high := errorCount(0.5)
	if low >= high {
		t.Errorf("error count did not grow with loss rate: %d at 0.05 vs %d at 0.5", low, high)
	}
	// Expected error fraction is lossRate * 2/3 (X and Y flip Z outcomes).
	if high < 120 || high > 360 {
		t.Errorf("high-loss errors = %d of 600, want near 200", high)
	}
}
