// purify.go implements entanglement purification: trading pairs for
// fidelity. Each round couples the live pairs two by two, sacrifices one of
// each couple, and raises the survivor's fidelity by a fixed step up to the
// purification cap. An odd pair carries into the next round untouched.
package engine

import (
	"context"

	"github.com/entanglab/qnetsim/internal/constants"
	qerrors "github.com/entanglab/qnetsim/internal/errors"
	"github.com/entanglab/qnetsim/pkg/metrics"
	"github.com/entanglab/qnetsim/pkg/quantum"
)

func (e *Engine) runPurify(ctx context.Context, inv PurifyInvocation, res *Result) error {
	res.Phase = PhaseDistilling

	survivors, best, rounds, sacrificed, err := e.purifyPairs(inv.Pairs, inv.TargetFidelity, inv.MaxRounds)
	if err != nil {
		return qerrors.NewProtocolError(res.Phase.String(), err)
	}

	e.log.Debug("purification finished", metrics.Fields{
		"input":      len(inv.Pairs),
		"survivors":  len(survivors),
		"sacrificed": sacrificed,
		"rounds":     rounds,
		"fidelity":   best,
	})
	res.Purify = &PurifyResult{
		Survivors:  survivors,
		Fidelity:   best,
		Rounds:     rounds,
		Sacrificed: sacrificed,
	}
	return nil
}

// purifyPairs runs up to maxRounds purification rounds over the pairs,
// stopping early once the best survivor reaches targetFidelity (when
// positive). All input pairs must be live.
func (e *Engine) purifyPairs(pairs []quantum.PairRef, targetFidelity float64, maxRounds int) (survivors []quantum.PairRef, best float64, rounds, sacrificed int, err error) {
	live := append([]quantum.PairRef(nil), pairs...)
	for _, ref := range live {
		info, err := e.arena.Pair(ref)
		if err != nil {
			return nil, 0, 0, 0, err
		}
		if info.Consumed {
			return nil, 0, 0, 0, qerrors.ErrPairConsumed
		}
	}

	for rounds < maxRounds && len(live) >= 2 {
		next := make([]quantum.PairRef, 0, (len(live)+1)/2)
		for i := 0; i+1 < len(live); i += 2 {
			keep, burn := live[i], live[i+1]

			info, err := e.arena.Pair(keep)
			if err != nil {
				return nil, 0, 0, 0, err
			}
			boosted := info.Fidelity + constants.PurificationStep
			if boosted > constants.PurificationCap {
				boosted = constants.PurificationCap
			}
			if err := e.arena.SetPairFidelity(keep, boosted); err != nil {
				return nil, 0, 0, 0, err
			}
			if err := e.consumeHeldPair(burn); err != nil {
				return nil, 0, 0, 0, err
			}
			sacrificed++
			next = append(next, keep)
		}
		if len(live)%2 == 1 {
			next = append(next, live[len(live)-1])
		}
		live = next
		rounds++

		best = e.bestFidelity(live)
		if targetFidelity > 0 && best >= targetFidelity {
			break
		}
	}

	return live, e.bestFidelity(live), rounds, sacrificed, nil
}

func (e *Engine) bestFidelity(pairs []quantum.PairRef) float64 {
	best := 0.0
	for _, ref := range pairs {
		if info, err := e.arena.Pair(ref); err == nil && info.Fidelity > best {
			best = info.Fidelity
		}
	}
	return best
}

// consumeHeldPair retires a pair and releases its halves from any node
// memory holding them.
func (e *Engine) consumeHeldPair(ref quantum.PairRef) error {
	info, err := e.arena.Pair(ref)
	if err != nil {
		return err
	}
	if err := e.arena.ConsumePair(ref); err != nil {
		return err
	}
	for _, h := range []quantum.Handle{info.A, info.B} {
		owner, err := e.arena.Owner(h)
		if err != nil {
			continue
		}
		if node, err := e.net.Node(owner); err == nil {
			node.RemoveQubit(h)
		}
	}
	return nil
}
