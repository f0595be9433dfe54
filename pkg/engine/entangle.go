// entangle.go implements entanglement distribution: direct and swapped Bell
// pairs, and N-party GHZ states. Delivered qubits are checked into their
// nodes' quantum memory, so memoryless or full nodes reject delivery.
package engine

import (
	"context"
	"fmt"

	"github.com/entanglab/qnetsim/internal/constants"
	qerrors "github.com/entanglab/qnetsim/internal/errors"
	"github.com/entanglab/qnetsim/pkg/metrics"
	"github.com/entanglab/qnetsim/pkg/quantum"
)

func (e *Engine) runEntangle(ctx context.Context, inv EntangleInvocation, res *Result) error {
	switch inv.Kind {
	case EntangleBell:
		return e.entangleBell(ctx, inv, res)
	case EntangleGHZ:
		return e.entangleGHZ(ctx, inv, res)
	default:
		// validate rejects everything else, including cluster states.
		return fmt.Errorf("%w: entangle kind %q", qerrors.ErrUnsupported, inv.Kind)
	}
}

func (e *Engine) entangleBell(ctx context.Context, inv EntangleInvocation, res *Result) error {
	res.Phase = PhasePreparing
	source, target := inv.Nodes[0], inv.Nodes[1]
	route, err := e.net.Route(source, target)
	if err != nil {
		return err
	}

	count := 1
	if inv.PurifyRounds > 0 {
		count = 1 << inv.PurifyRounds
	}

	pairs := make([]quantum.PairRef, count)
	swaps := 0
	for i := range pairs {
		ref, hops, err := e.deliverPair(ctx, route, res)
		if err != nil {
			return err
		}
		pairs[i] = ref
		swaps += hops
	}

	ref := pairs[0]
	rounds := 0
	if inv.PurifyRounds > 0 {
		res.Phase = PhaseDistilling
		survivors, _, r, _, err := e.purifyPairs(pairs, constants.PurificationCap, inv.PurifyRounds)
		if err != nil {
			return err
		}
		ref = survivors[0]
		rounds = r
	}

	info, err := e.arena.Pair(ref)
	if err != nil {
		return err
	}
	if inv.FidelityThreshold > 0 && info.Fidelity < inv.FidelityThreshold {
		return fmt.Errorf("%w: delivered fidelity %.4f below threshold %.4f",
			qerrors.ErrInsufficientPairs, info.Fidelity, inv.FidelityThreshold)
	}

	for _, hold := range []struct {
		node string
		h    quantum.Handle
	}{{source, info.A}, {target, info.B}} {
		if err := e.holdQubit(hold.node, hold.h); err != nil {
			return err
		}
	}

	e.log.Debug("bell pair delivered", metrics.Fields{
		"source":   source,
		"target":   target,
		"hops":     len(route) - 1,
		"swaps":    swaps,
		"rounds":   rounds,
		"fidelity": info.Fidelity,
	})
	res.Entangle = &EntangleResult{
		Handles:  []quantum.Handle{info.A, info.B},
		Pair:     ref,
		Fidelity: info.Fidelity,
		Swaps:    swaps,
	}
	return nil
}

// deliverPair establishes one pair between the route endpoints: a direct
// pair on an adjacent route, otherwise a chain of link pairs spliced by
// entanglement swapping at each intermediate node. Returns the delivered
// pair and the number of swaps performed.
func (e *Engine) deliverPair(ctx context.Context, route []string, res *Result) (quantum.PairRef, int, error) {
	ref, _, inner := e.arena.CreatePair(route[0], route[1])
	e.collector.RecordPairsCreated(1)
	e.collector.RecordQubitsAllocated(2)
	if len(route) == 2 {
		return ref, 0, nil
	}

	swaps := 0
	for i := 1; i+1 < len(route); i++ {
		repeater := route[i]
		_, nextInner, _ := e.arena.CreatePair(repeater, route[i+1])
		e.collector.RecordPairsCreated(1)
		e.collector.RecordQubitsAllocated(2)

		node, err := e.node(repeater)
		if err != nil {
			return quantum.NilPair, swaps, err
		}
		spliced, err := e.arena.Swap(inner, nextInner, true, node.src)
		if err != nil {
			return quantum.NilPair, swaps, qerrors.NewProtocolError(res.Phase.String(), err)
		}
		swaps++

		info, err := e.arena.Pair(spliced)
		if err != nil {
			return quantum.NilPair, swaps, err
		}
		ref = spliced
		inner, err = e.pairHalfAt(info, route[i+1])
		if err != nil {
			return quantum.NilPair, swaps, err
		}
	}
	return ref, swaps, nil
}

func (e *Engine) entangleGHZ(ctx context.Context, inv EntangleInvocation, res *Result) error {
	res.Phase = PhasePreparing
	handles := e.arena.CreateGHZ(inv.Nodes)
	e.collector.RecordQubitsAllocated(uint64(len(handles)))

	if inv.FidelityThreshold > 0 && constants.GHZFidelity < inv.FidelityThreshold {
		return fmt.Errorf("%w: ghz fidelity %.4f below threshold %.4f",
			qerrors.ErrInsufficientPairs, constants.GHZFidelity, inv.FidelityThreshold)
	}
	for i, h := range handles {
		if err := e.holdQubit(inv.Nodes[i], h); err != nil {
			return err
		}
	}

	e.log.Debug("ghz state delivered", metrics.Fields{
		"parties":  len(inv.Nodes),
		"fidelity": constants.GHZFidelity,
	})
	res.Entangle = &EntangleResult{
		Handles:  handles,
		Pair:     quantum.NilPair,
		Fidelity: constants.GHZFidelity,
	}
	return nil
}

// holdQubit checks a delivered qubit into its node's quantum memory.
func (e *Engine) holdQubit(nodeID string, h quantum.Handle) error {
	node, err := e.net.Node(nodeID)
	if err != nil {
		return err
	}
	return node.AddQubit(h)
}
