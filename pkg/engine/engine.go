// Package engine executes quantum network protocols over a built topology.
//
// An Engine owns one network, one qubit arena, and the per-node randomness
// and signing identities of a simulation. Protocols are started through Run
// with a typed Invocation; every run produces a Result record and is
// retained in a bounded run log.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cloudflare/circl/sign/ed25519"

	"github.com/entanglab/qnetsim/internal/constants"
	qerrors "github.com/entanglab/qnetsim/internal/errors"
	"github.com/entanglab/qnetsim/pkg/metrics"
	"github.com/entanglab/qnetsim/pkg/protocol"
	"github.com/entanglab/qnetsim/pkg/quantum"
	"github.com/entanglab/qnetsim/pkg/topology"
	"github.com/entanglab/qnetsim/pkg/transport"
)

// nodeState holds the engine-side runtime state of one node: its randomness
// stream and its classical signing identity.
type nodeState struct {
	src  *quantum.BitSource
	keys *protocol.Keypair
}

// Engine executes protocol runs over one network. Runs may be started from
// multiple goroutines; each run's quantum and classical steps execute within
// the calling goroutine.
type Engine struct {
	net   *topology.Network
	arena *quantum.Arena
	codec *protocol.Codec
	nodes map[string]*nodeState

	log       *metrics.Logger
	tracer    metrics.Tracer
	collector *metrics.Collector

	mu      sync.Mutex
	roundID uint32
	runLog  []Result
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *metrics.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithTracer sets the engine tracer.
func WithTracer(t metrics.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithCollector sets the engine metrics collector.
func WithCollector(c *metrics.Collector) Option {
	return func(e *Engine) { e.collector = c }
}

// New builds the network described by spec and creates an engine over it.
// Every node gets its own randomness stream and Ed25519 signing identity.
func New(spec *topology.NetworkSpec, opts ...Option) (*Engine, error) {
	net, err := topology.Build(spec)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		net:       net,
		arena:     quantum.NewArena(),
		codec:     protocol.NewCodec(),
		nodes:     make(map[string]*nodeState, net.NodeCount()),
		log:       metrics.GetLogger().Named("engine"),
		tracer:    metrics.GetTracer(),
		collector: metrics.Global(),
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, id := range net.NodeIDs() {
		keys, err := protocol.GenerateKeypair()
		if err != nil {
			return nil, err
		}
		e.nodes[id] = &nodeState{
			src:  quantum.NewBitSource(id),
			keys: keys,
		}
	}

	e.log.Info("engine ready", metrics.Fields{
		"network": net.Name(),
		"nodes":   net.NodeCount(),
		"links":   net.LinkCount(),
	})
	return e, nil
}

// Network returns the engine's topology.
func (e *Engine) Network() *topology.Network { return e.net }

// Arena returns the engine's qubit arena.
func (e *Engine) Arena() *quantum.Arena { return e.arena }

// RunLog returns a copy of the retained run records, oldest first. The log
// is bounded; old records fall off.
func (e *Engine) RunLog() []Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Result, len(e.runLog))
	copy(out, e.runLog)
	return out
}

// Run executes one protocol run and returns its result record. The record
// is also appended to the run log. The returned error is non-nil only for
// failed runs; aborted runs report through the result status.
func (e *Engine) Run(ctx context.Context, inv Invocation) (*Result, error) {
	start := time.Now()
	res := &Result{
		Protocol:  inv.Protocol(),
		Status:    StatusCompleted,
		Phase:     PhaseValidating,
		StartedAt: start,
	}
	e.collector.RunStarted()

	ctx, end := e.tracer.StartSpan(ctx, spanName(inv),
		metrics.WithAttributes(metrics.SpanAttributes{Protocol: inv.Protocol()}.ToMap()))

	err := inv.validate(e)
	if err == nil {
		switch v := inv.(type) {
		case BB84Invocation:
			err = e.runBB84(ctx, v, res)
		case E91Invocation:
			err = e.runE91(ctx, v, res)
		case TeleportInvocation:
			err = e.runTeleport(ctx, v, res)
		case EntangleInvocation:
			err = e.runEntangle(ctx, v, res)
		case PurifyInvocation:
			err = e.runPurify(ctx, v, res)
		case SwapInvocation:
			err = e.runSwap(ctx, v, res)
		default:
			err = fmt.Errorf("%w: invocation %T", qerrors.ErrUnsupported, inv)
		}
	}

	res.Duration = time.Since(start)
	e.finish(res, err)
	end(err)

	if res.Status == StatusFailed {
		return res, err
	}
	return res, nil
}

// finish settles the result record, updates counters, and appends to the
// bounded run log.
func (e *Engine) finish(res *Result, err error) {
	switch {
	case err == nil:
		res.Phase = PhaseDone
		e.collector.RunCompleted(res.Duration)
	case errors.Is(err, qerrors.ErrSecurityAborted):
		res.Status = StatusAborted
		res.ErrorKind = qerrors.Kind(err)
		res.Message = err.Error()
		e.collector.RunAborted(res.Duration)
	default:
		res.Status = StatusFailed
		res.ErrorKind = qerrors.Kind(err)
		res.Message = err.Error()
		e.collector.RunFailed()
	}

	e.log.Info("run finished", metrics.Fields{
		"protocol": res.Protocol,
		"status":   string(res.Status),
		"phase":    res.Phase.String(),
		"duration": res.Duration,
	})

	e.mu.Lock()
	defer e.mu.Unlock()
	e.runLog = append(e.runLog, *res)
	if len(e.runLog) > constants.RunLogCapacity {
		e.runLog = e.runLog[len(e.runLog)-constants.RunLogCapacity:]
	}
}

func spanName(inv Invocation) string {
	switch inv.(type) {
	case BB84Invocation:
		return metrics.SpanRunBB84
	case E91Invocation:
		return metrics.SpanRunE91
	case TeleportInvocation:
		return metrics.SpanRunTeleport
	case EntangleInvocation:
		return metrics.SpanRunEntangle
	case PurifyInvocation:
		return metrics.SpanRunPurify
	case SwapInvocation:
		return metrics.SpanRunSwap
	default:
		return "qnet.run"
	}
}

// nextRoundID issues a fresh round id for control message correlation.
func (e *Engine) nextRoundID() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.roundID++
	return e.roundID
}

// node returns the runtime state of a node.
func (e *Engine) node(id string) (*nodeState, error) {
	ns, ok := e.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", qerrors.ErrUnknownNode, id)
	}
	return ns, nil
}

// requireRoute fails when no route exists between two distinct nodes.
func (e *Engine) requireRoute(src, dst string) error {
	if src == dst {
		return fmt.Errorf("%w: %q on both ends", qerrors.ErrInvalidSpec, src)
	}
	_, err := e.net.Route(src, dst)
	return err
}

// publicKey looks up a node's signing key for envelope verification.
func (e *Engine) publicKey(id string) (ed25519.PublicKey, bool) {
	ns, ok := e.nodes[id]
	if !ok {
		return nil, false
	}
	return ns.keys.Public, true
}

// transmitQubits carries qubits along the route, hop by hop, applying each
// link's noise. Returns the total number of noise events.
func (e *Engine) transmitQubits(ctx context.Context, route []string, qubits []quantum.Handle) (int, error) {
	hits := 0
	for i := 0; i+1 < len(route); i++ {
		link, err := e.net.Link(route[i], route[i+1])
		if err != nil {
			return hits, err
		}
		ch := link.AnyChannel()

		_, end := e.tracer.StartSpan(ctx, metrics.SpanTransmit,
			metrics.WithAttributes(metrics.SpanAttributes{Source: route[i], Target: route[i+1]}.ToMap()))

		err = ch.Send(transport.Message{Destination: route[i+1], Qubits: qubits})
		if err != nil {
			e.collector.RecordMessageDropped()
			end(err)
			return hits, err
		}
		e.collector.RecordMessageSent()

		if _, err := ch.Receive(ctx, time.Second); err != nil {
			end(err)
			return hits, err
		}

		hopHits, err := transport.ApplyLinkNoise(e.arena, qubits, link.LossRate(), e.nodes[route[i]].src)
		end(err)
		if err != nil {
			return hits, err
		}
		hits += hopHits
	}
	e.collector.RecordNoiseEvents(uint64(hits))
	return hits, nil
}

// sendControl seals a control message body from sender and carries it along
// the route; the receiving end verifies the envelope and returns the body.
func (e *Engine) sendControl(ctx context.Context, route []string, sender string, body []byte) ([]byte, error) {
	ns, err := e.node(sender)
	if err != nil {
		return nil, err
	}
	envelope, err := e.codec.Seal(sender, body, ns.keys)
	if err != nil {
		return nil, err
	}

	for i := 0; i+1 < len(route); i++ {
		link, err := e.net.Link(route[i], route[i+1])
		if err != nil {
			return nil, err
		}
		ch := link.AnyChannel()

		if err := ch.Send(transport.Message{Destination: route[i+1], Payload: envelope}); err != nil {
			e.collector.RecordMessageDropped()
			return nil, err
		}
		e.collector.RecordMessageSent()

		msg, err := ch.Receive(ctx, time.Second)
		if err != nil {
			return nil, err
		}
		envelope = msg.Payload
	}

	_, opened, err := e.codec.Open(envelope, e.publicKey)
	if err != nil {
		e.collector.RecordAuthFailure()
		return nil, err
	}
	return opened, nil
}
