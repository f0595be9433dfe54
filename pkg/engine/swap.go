// swap.go implements the standalone entanglement swap operation for callers
// managing their own repeater chains.
package engine

import (
	"context"
	"fmt"

	qerrors "github.com/entanglab/qnetsim/internal/errors"
	"github.com/entanglab/qnetsim/pkg/metrics"
)

func (e *Engine) runSwap(ctx context.Context, inv SwapInvocation, res *Result) error {
	res.Phase = PhaseMeasuring

	leftOwner, err := e.arena.Owner(inv.Left)
	if err != nil {
		return err
	}
	rightOwner, err := e.arena.Owner(inv.Right)
	if err != nil {
		return err
	}
	if leftOwner != rightOwner {
		return fmt.Errorf("%w: halves held by %q and %q, swap needs a common node",
			qerrors.ErrInvalidSpec, leftOwner, rightOwner)
	}
	node, err := e.node(leftOwner)
	if err != nil {
		return err
	}

	ref, err := e.arena.Swap(inv.Left, inv.Right, !inv.SkipMeasure, node.src)
	if err != nil {
		return qerrors.NewProtocolError(res.Phase.String(), err)
	}
	info, err := e.arena.Pair(ref)
	if err != nil {
		return err
	}

	e.log.Debug("entanglement swapped", metrics.Fields{
		"repeater": leftOwner,
		"fidelity": info.Fidelity,
	})
	res.Swap = &SwapResult{Pair: ref, Fidelity: info.Fidelity}
	return nil
}
