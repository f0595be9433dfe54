// e91.go implements entanglement-based key distribution.
//
// A pair source shares one Bell pair per raw position: the local half stays
// with Alice, the remote half crosses the network to Bob. Both parties
// measure in independently random bases and sift on the announced bases as
// in the prepare-and-measure flow. Matched-basis outcomes of a clean pair
// agree exactly, so the revealed sample yields both the error rate and the
// outcome correlation of the shared pairs.
package engine

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/entanglab/qnetsim/internal/constants"
	qerrors "github.com/entanglab/qnetsim/internal/errors"
	"github.com/entanglab/qnetsim/pkg/metrics"
	"github.com/entanglab/qnetsim/pkg/protocol"
	"github.com/entanglab/qnetsim/pkg/quantum"
)

func (e *Engine) runE91(ctx context.Context, inv E91Invocation, res *Result) error {
	roundID := e.nextRoundID()
	alice, err := e.node(inv.Alice)
	if err != nil {
		return err
	}
	bob, err := e.node(inv.Bob)
	if err != nil {
		return err
	}
	route, err := e.net.Route(inv.Alice, inv.Bob)
	if err != nil {
		return err
	}

	res.Phase = PhasePreparing
	n := inv.KeyLength * constants.RawKeyFactor
	aliceHalves := make([]quantum.Handle, n)
	bobHalves := make([]quantum.Handle, n)
	for i := 0; i < n; i++ {
		_, a, b := e.arena.CreatePair(inv.Alice, inv.Bob)
		aliceHalves[i], bobHalves[i] = a, b
	}
	e.collector.RecordPairsCreated(uint64(n))
	e.collector.RecordQubitsAllocated(uint64(2 * n))

	res.Phase = PhaseTransmitting
	if _, err := e.transmitQubits(ctx, route, bobHalves); err != nil {
		return qerrors.NewProtocolError(res.Phase.String(), err)
	}

	res.Phase = PhaseMeasuring
	aliceBases := alice.src.Bases(n)
	bobBases := bob.src.Bases(n)
	aliceBits := make([]int, n)
	bobBits := make([]int, n)
	for i := 0; i < n; i++ {
		if aliceBits[i], err = e.arena.Measure(aliceHalves[i], aliceBases[i], alice.src); err != nil {
			return qerrors.NewProtocolError(res.Phase.String(), err)
		}
		if bobBits[i], err = e.arena.Measure(bobHalves[i], bobBases[i], bob.src); err != nil {
			return qerrors.NewProtocolError(res.Phase.String(), err)
		}
	}

	res.Phase = PhaseSifting
	bobAnnounced, err := e.exchangeBases(ctx, route, roundID, inv.Alice, inv.Bob, basisBits(aliceBases), basisBits(bobBases))
	if err != nil {
		return qerrors.NewProtocolError(res.Phase.String(), err)
	}
	siftedAlice, siftedBob := sift(aliceBits, bobBits, basisBits(aliceBases), bobAnnounced)

	res.Phase = PhaseEstimating
	keyBits, qber, sampleLen, err := e.estimateQBER(ctx, route, roundID, inv.Alice, siftedAlice, siftedBob)
	if err != nil {
		return qerrors.NewProtocolError(res.Phase.String(), err)
	}
	correlation := outcomeCorrelation(siftedAlice[:sampleLen], siftedBob[:sampleLen])
	e.collector.RecordQBER(qber)

	if qber > inv.threshold() {
		e.abortRun(ctx, route, roundID, inv.Alice, protocol.AbortReasonQBERExceeded)
		res.Key = &KeyResult{
			RawLength:    n,
			SiftedLength: len(siftedAlice),
			QBER:         qber,
			Correlation:  correlation,
		}
		return qerrors.NewProtocolError(res.Phase.String(),
			fmt.Errorf("%w: qber %.4f over threshold %.4f", qerrors.ErrSecurityAborted, qber, inv.threshold()))
	}

	res.Phase = PhaseDistilling
	if len(keyBits) > inv.KeyLength {
		keyBits = keyBits[:inv.KeyLength]
	}
	key := DistillKey(keyBits, constants.DistilledKeySize)
	e.collector.RecordSiftedBits(uint64(len(siftedAlice)))
	e.collector.RecordFinalBits(uint64(len(keyBits)))

	e.log.Debug("e91 key accepted", metrics.Fields{
		"raw":         n,
		"sifted":      len(siftedAlice),
		"final":       len(keyBits),
		"qber":        qber,
		"correlation": correlation,
	})
	res.Key = &KeyResult{
		RawLength:    n,
		SiftedLength: len(siftedAlice),
		FinalLength:  len(keyBits),
		QBER:         qber,
		Correlation:  correlation,
		KeyBits:      keyBits,
		Key:          key,
	}
	return nil
}

// outcomeCorrelation computes the mean product of paired outcomes mapped to
// +1/-1. Clean matched-basis pairs give 1; uncorrelated outcomes give 0.
func outcomeCorrelation(a, b []int) float64 {
	if len(a) == 0 {
		return 0
	}
	products := make([]float64, len(a))
	for i := range a {
		if a[i] == b[i] {
			products[i] = 1
		} else {
			products[i] = -1
		}
	}
	return stat.Mean(products, nil)
}
