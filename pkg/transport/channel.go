// Package transport moves classical and quantum-tagged payloads between
// network nodes over bounded FIFO channels.
//
// Each channel is an independent resource: sends never block (a full queue
// fails fast with a capacity error) and receives block the calling protocol
// step until a message arrives, the timeout elapses, or the caller cancels.
// Queue mutation is serialized per channel; distinct channels impose no
// ordering on each other.
package transport

import (
	"context"
	"sync/atomic"
	"time"

	qerrors "github.com/entanglab/qnetsim/internal/errors"
	"github.com/entanglab/qnetsim/pkg/quantum"
)

// Message is one queued channel payload.
type Message struct {
	// Payload carries an encoded classical control message, or is empty
	// for pure qubit transfers.
	Payload []byte

	// Destination is the id of the receiving node.
	Destination string

	// Qubits holds the handles in transit for quantum-tagged payloads.
	Qubits []quantum.Handle

	// SentAt is stamped by Send.
	SentAt time.Time
}

// Channel is a bounded FIFO message queue between two link endpoints.
// All methods are safe for concurrent use by multiple producers and
// consumers.
type Channel struct {
	id        string
	capacity  int
	fidelity  float64
	bandwidth float64

	queue  chan Message
	closed atomic.Bool
}

// NewChannel creates a channel with the given queue capacity. A capacity
// below 1 is raised to 1 so the channel can always carry one message.
func NewChannel(id string, capacity int, fidelity, bandwidth float64) *Channel {
	if capacity < 1 {
		capacity = 1
	}
	return &Channel{
		id:        id,
		capacity:  capacity,
		fidelity:  fidelity,
		bandwidth: bandwidth,
		queue:     make(chan Message, capacity),
	}
}

// ID returns the channel identifier.
func (c *Channel) ID() string { return c.id }

// Capacity returns the maximum number of in-flight messages.
func (c *Channel) Capacity() int { return c.capacity }

// Fidelity returns the channel's configured fidelity.
func (c *Channel) Fidelity() float64 { return c.fidelity }

// Bandwidth returns the channel's configured bandwidth.
func (c *Channel) Bandwidth() float64 { return c.bandwidth }

// Len returns the number of queued messages.
func (c *Channel) Len() int { return len(c.queue) }

// Busy reports whether the channel currently holds in-flight messages.
func (c *Channel) Busy() bool { return len(c.queue) > 0 }

// Send enqueues a message. It never blocks: a queue at capacity fails
// immediately with a capacity error so the caller can decide whether to
// retry or drop.
func (c *Channel) Send(msg Message) error {
	if c.closed.Load() {
		return qerrors.NewSimulationError("Send", qerrors.ErrChannelClosed)
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now()
	}

	select {
	case c.queue <- msg:
		return nil
	default:
		return qerrors.NewSimulationError("Send", qerrors.ErrChannelFull)
	}
}

// Receive pops the oldest queued message, waiting up to timeout for one to
// arrive. A timeout of zero polls: it returns immediately with either a
// message or ErrReceiveTimeout. Timing out is an expected outcome, not a
// failure.
//
// Cancelling ctx releases the waiting receiver without disturbing any other
// message queued on the channel.
func (c *Channel) Receive(ctx context.Context, timeout time.Duration) (Message, error) {
	if timeout <= 0 {
		select {
		case msg := <-c.queue:
			return msg, nil
		default:
			if c.closed.Load() {
				return Message{}, qerrors.NewSimulationError("Receive", qerrors.ErrChannelClosed)
			}
			return Message{}, qerrors.NewSimulationError("Receive", qerrors.ErrReceiveTimeout)
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-c.queue:
		return msg, nil
	case <-timer.C:
		if c.closed.Load() {
			return Message{}, qerrors.NewSimulationError("Receive", qerrors.ErrChannelClosed)
		}
		return Message{}, qerrors.NewSimulationError("Receive", qerrors.ErrReceiveTimeout)
	case <-ctx.Done():
		return Message{}, qerrors.NewSimulationError("Receive", qerrors.ErrReceiveCancelled)
	}
}

// Close marks the channel closed. Queued messages may still be drained with
// zero-timeout receives; new sends fail.
func (c *Channel) Close() {
	c.closed.Store(true)
}
