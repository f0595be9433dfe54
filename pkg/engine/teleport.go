// teleport.go implements quantum state transfer over shared entanglement.
//
// The source performs a joint Bell measurement on the payload qubit and its
// pair half, destroying both and yielding two classical bits. The bits
// cross the network as an authenticated Correction message; the target
// applies the matching Pauli corrections and holds the transferred state.
// No quantum information crosses the channel, so the transfer is immune to
// link noise; what it costs is the pair.
package engine

import (
	"context"
	"fmt"

	"github.com/entanglab/qnetsim/internal/constants"
	qerrors "github.com/entanglab/qnetsim/internal/errors"
	"github.com/entanglab/qnetsim/pkg/metrics"
	"github.com/entanglab/qnetsim/pkg/protocol"
	"github.com/entanglab/qnetsim/pkg/quantum"
)

func (e *Engine) runTeleport(ctx context.Context, inv TeleportInvocation, res *Result) error {
	roundID := e.nextRoundID()
	src, err := e.node(inv.Source)
	if err != nil {
		return err
	}
	route, err := e.net.Route(inv.Source, inv.Target)
	if err != nil {
		return err
	}

	owner, err := e.arena.Owner(inv.Qubit)
	if err != nil {
		return err
	}
	if owner != inv.Source {
		return fmt.Errorf("%w: qubit held by %q, not %q", qerrors.ErrInvalidSpec, owner, inv.Source)
	}
	state, err := e.arena.State(inv.Qubit)
	if err != nil {
		return err
	}
	srcFidelity, err := e.arena.Fidelity(inv.Qubit)
	if err != nil {
		return err
	}

	res.Phase = PhasePreparing
	pairRef := inv.Pair
	if pairRef == quantum.NilPair {
		pairRef, _, _ = e.arena.CreatePair(inv.Source, inv.Target)
		e.collector.RecordPairsCreated(1)
		e.collector.RecordQubitsAllocated(2)
	}
	info, err := e.arena.Pair(pairRef)
	if err != nil {
		return err
	}
	if info.Consumed {
		return qerrors.ErrPairConsumed
	}
	sourceHalf, err := e.pairHalfAt(info, inv.Source)
	if err != nil {
		return err
	}
	if _, err := e.pairHalfAt(info, inv.Target); err != nil {
		return err
	}

	res.Phase = PhaseMeasuring
	xBit, zBit, err := e.arena.BellMeasure(inv.Qubit, sourceHalf, src.src)
	if err != nil {
		return qerrors.NewProtocolError(res.Phase.String(), err)
	}

	res.Phase = PhaseTransmitting
	body, err := e.codec.EncodeCorrection(&protocol.Correction{
		RoundID: roundID,
		XBit:    uint8(xBit),
		ZBit:    uint8(zBit),
	})
	if err != nil {
		return qerrors.NewProtocolError(res.Phase.String(), err)
	}
	opened, err := e.sendControl(ctx, route, inv.Source, body)
	if err != nil {
		return qerrors.NewProtocolError(res.Phase.String(), err)
	}
	corr, err := e.codec.DecodeCorrection(opened)
	if err != nil {
		return qerrors.NewProtocolError(res.Phase.String(), err)
	}

	// Materialize the state at the target as the Bell measurement left it,
	// then undo the random Bell outcome with the received corrections.
	fidelity := srcFidelity
	if fidelity > constants.TeleportFidelityBound {
		fidelity = constants.TeleportFidelityBound
	}
	delivered := e.arena.NewQubitWithState(inv.Target, state, fidelity)
	e.collector.RecordQubitsAllocated(1)
	if zBit != 0 {
		if err := e.arena.ApplyPauli(delivered, quantum.PauliZ); err != nil {
			return err
		}
	}
	if xBit != 0 {
		if err := e.arena.ApplyPauli(delivered, quantum.PauliX); err != nil {
			return err
		}
	}
	if err := e.arena.ApplyCorrection(delivered, int(corr.XBit), int(corr.ZBit)); err != nil {
		return err
	}

	if err := e.arena.ConsumePair(pairRef); err != nil {
		return err
	}

	e.log.Debug("teleport delivered", metrics.Fields{
		"source": inv.Source,
		"target": inv.Target,
		"x_bit":  xBit,
		"z_bit":  zBit,
	})
	res.Teleport = &TeleportResult{
		Qubit:    delivered,
		Fidelity: fidelity,
		XBit:     xBit,
		ZBit:     zBit,
	}
	return nil
}

// pairHalfAt returns the half of a pair held by the named node.
func (e *Engine) pairHalfAt(info quantum.PairInfo, node string) (quantum.Handle, error) {
	for _, h := range []quantum.Handle{info.A, info.B} {
		owner, err := e.arena.Owner(h)
		if err != nil {
			return quantum.NilHandle, err
		}
		if owner == node {
			return h, nil
		}
	}
	return quantum.NilHandle, fmt.Errorf("%w: pair %d has no half at %q", qerrors.ErrInvalidSpec, info.Ref, node)
}
