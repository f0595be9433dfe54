// bb84.go implements prepare-and-measure key distribution.
//
// The run walks the BB84 state machine:
//
//	preparing -> transmitting -> measuring -> sifting -> error-estimation
//	          -> distilling -> done (or aborted at error-estimation)
//
// Alice encodes random bits in random bases, the qubits cross the network
// picking up link noise, Bob measures in his own random bases. Both parties
// announce bases over the authenticated control plane and keep the matching
// positions. A revealed sample estimates the error rate; a rate above the
// security threshold aborts the run, since it is indistinguishable from an
// intercept-resend attack.
package engine

import (
	"context"
	"fmt"

	"github.com/entanglab/qnetsim/internal/constants"
	qerrors "github.com/entanglab/qnetsim/internal/errors"
	"github.com/entanglab/qnetsim/pkg/metrics"
	"github.com/entanglab/qnetsim/pkg/protocol"
)

func (e *Engine) runBB84(ctx context.Context, inv BB84Invocation, res *Result) error {
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
	aliceBits := alice.src.Bits(n)
	aliceBases := alice.src.Bases(n)

	qubits := e.arena.Initialize(inv.Alice, n)
	e.collector.RecordQubitsAllocated(uint64(n))
	for i, h := range qubits {
		if err := e.arena.Prepare(h, aliceBits[i], aliceBases[i]); err != nil {
			return qerrors.NewProtocolError(res.Phase.String(), err)
		}
	}

	res.Phase = PhaseTransmitting
	if _, err := e.transmitQubits(ctx, route, qubits); err != nil {
		return qerrors.NewProtocolError(res.Phase.String(), err)
	}

	res.Phase = PhaseMeasuring
	bobBases := bob.src.Bases(n)
	bobBits := make([]int, n)
	for i, h := range qubits {
		bit, err := e.arena.Measure(h, bobBases[i], bob.src)
		if err != nil {
			return qerrors.NewProtocolError(res.Phase.String(), err)
		}
		bobBits[i] = bit
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
	e.collector.RecordQBER(qber)

	if qber > inv.threshold() {
		e.abortRun(ctx, route, roundID, inv.Alice, protocol.AbortReasonQBERExceeded)
		res.Key = &KeyResult{
			RawLength:    n,
			SiftedLength: len(siftedAlice),
			QBER:         qber,
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

	e.log.Debug("bb84 key accepted", metrics.Fields{
		"raw":    n,
		"sifted": len(siftedAlice),
		"final":  len(keyBits),
		"sample": sampleLen,
		"qber":   qber,
	})
	res.Key = &KeyResult{
		RawLength:    n,
		SiftedLength: len(siftedAlice),
		FinalLength:  len(keyBits),
		QBER:         qber,
		KeyBits:      keyBits,
		Key:          key,
	}
	return nil
}

// basisBits converts a basis slice to announcement bit form.
func basisBits(bases []constants.Basis) []int {
	bits := make([]int, len(bases))
	for i, b := range bases {
		if b == constants.BasisX {
			bits[i] = 1
		}
	}
	return bits
}

// sift keeps the positions where both announced bases match.
func sift(aBits, bBits, aBases, bBases []int) (siftedA, siftedB []int) {
	for i := range aBits {
		if aBases[i] == bBases[i] {
			siftedA = append(siftedA, aBits[i])
			siftedB = append(siftedB, bBits[i])
		}
	}
	return siftedA, siftedB
}

// exchangeBases announces both parties' bases over the control plane and
// returns the peer announcement as decoded by the initiator. Announcements
// travel in both directions so each side can sift independently.
func (e *Engine) exchangeBases(ctx context.Context, route []string, roundID uint32, initiator, responder string, initBases, respBases []int) ([]int, error) {
	fwd, err := e.codec.EncodeBasisAnnounce(&protocol.BasisAnnounce{
		RoundID: roundID,
		Count:   uint32(len(initBases)),
		Bases:   protocol.PackBases(initBases),
	})
	if err != nil {
		return nil, err
	}
	if _, err := e.sendControl(ctx, route, initiator, fwd); err != nil {
		return nil, err
	}

	back, err := e.codec.EncodeBasisAnnounce(&protocol.BasisAnnounce{
		RoundID: roundID,
		Count:   uint32(len(respBases)),
		Bases:   protocol.PackBases(respBases),
	})
	if err != nil {
		return nil, err
	}
	reverse := make([]string, len(route))
	for i, id := range route {
		reverse[len(route)-1-i] = id
	}
	body, err := e.sendControl(ctx, reverse, responder, back)
	if err != nil {
		return nil, err
	}

	ann, err := e.codec.DecodeBasisAnnounce(body)
	if err != nil {
		return nil, err
	}
	if ann.RoundID != roundID {
		return nil, qerrors.ErrInvalidMessage
	}
	announced := make([]int, ann.Count)
	for i := range announced {
		announced[i] = ann.BasisAt(i)
	}
	return announced, nil
}

// estimateQBER reveals a sample of the sifted key over the control plane,
// computes the mismatch rate, and returns the unrevealed remainder of the
// initiator's key. Revealed positions are burned.
func (e *Engine) estimateQBER(ctx context.Context, route []string, roundID uint32, initiator string, siftedA, siftedB []int) (keyBits []int, qber float64, sampleLen int, err error) {
	sampleLen = constants.QBERSampleSize
	if sampleLen > len(siftedA)/2 {
		sampleLen = len(siftedA) / 2
	}
	if sampleLen == 0 {
		return nil, 0, 0, fmt.Errorf("%w: %d sifted bits", qerrors.ErrInsufficientPairs, len(siftedA))
	}

	reveal := &protocol.SampleReveal{
		RoundID: roundID,
		Indices: make([]uint32, sampleLen),
		Bits:    make([]byte, sampleLen),
	}
	for i := 0; i < sampleLen; i++ {
		reveal.Indices[i] = uint32(i)
		reveal.Bits[i] = byte(siftedA[i])
	}
	body, err := e.codec.EncodeSampleReveal(reveal)
	if err != nil {
		return nil, 0, 0, err
	}
	opened, err := e.sendControl(ctx, route, initiator, body)
	if err != nil {
		return nil, 0, 0, err
	}
	revealed, err := e.codec.DecodeSampleReveal(opened)
	if err != nil {
		return nil, 0, 0, err
	}

	mismatches := 0
	for i, idx := range revealed.Indices {
		if int(revealed.Bits[i]) != siftedB[idx] {
			mismatches++
		}
	}
	qber = float64(mismatches) / float64(sampleLen)
	return append([]int(nil), siftedA[sampleLen:]...), qber, sampleLen, nil
}

// abortRun signals the peer that the run is abandoned. Failures to deliver
// the abort are logged and swallowed; the run is failing already.
func (e *Engine) abortRun(ctx context.Context, route []string, roundID uint32, sender string, reason protocol.AbortReason) {
	body, err := e.codec.EncodeAbort(&protocol.Abort{RoundID: roundID, Reason: reason})
	if err == nil {
		_, err = e.sendControl(ctx, route, sender, body)
	}
	if err != nil {
		e.log.Warn("abort notification failed", metrics.Fields{"round": roundID, "error": err.Error()})
	}
}
