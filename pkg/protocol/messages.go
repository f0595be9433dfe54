// Package protocol defines the classical control messages that coordinate
// quantum protocol runs between nodes.
//
// This file (messages.go) implements the message flow of a key
// distribution round:
//
//	Sender                                 Receiver
//	    |                                      |
//	    | -------- BasisAnnounce ------------> |
//	    |                                      |
//	    | <------- BasisAnnounce ------------- |
//	    |                                      |
//	    | -------- SampleReveal -------------> |
//	    |                                      |
//	    | <------- QBERReport ---------------- |
//	    |                                      |
//	    |    === Key Accepted / Aborted ===    |
//
// Teleportation uses the single Correction message in place of the round
// flow. All messages are length-prefixed with a 4-byte big-endian length
// field and travel inside a signed envelope (see codec.go).
package protocol

import (
	qerrors "github.com/entanglab/qnetsim/internal/errors"
)

// MessageType identifies the type of control message.
type MessageType uint8

// Control message types for key distribution, teleportation, and aborts.
const (
	// MessageTypeBasisAnnounce publishes the measurement bases of a round.
	MessageTypeBasisAnnounce MessageType = 0x01
	// MessageTypeSampleReveal discloses sample bits for error estimation.
	MessageTypeSampleReveal MessageType = 0x02
	// MessageTypeQBERReport returns the estimated error rate and verdict.
	MessageTypeQBERReport MessageType = 0x03

	// MessageTypeCorrection carries teleportation correction bits.
	MessageTypeCorrection MessageType = 0x10

	// MessageTypeAbort signals that the sender abandoned the run.
	MessageTypeAbort MessageType = 0xF0
)

// String returns a human-readable name for the message type.
func (mt MessageType) String() string {
	switch mt {
	case MessageTypeBasisAnnounce:
		return "BasisAnnounce"
	case MessageTypeSampleReveal:
		return "SampleReveal"
	case MessageTypeQBERReport:
		return "QBERReport"
	case MessageTypeCorrection:
		return "Correction"
	case MessageTypeAbort:
		return "Abort"
	default:
		return "Unknown"
	}
}

// AbortReason identifies why a run was abandoned.
type AbortReason uint8

// Abort reasons carried by MessageTypeAbort.
const (
	// AbortReasonQBERExceeded indicates the error rate crossed the
	// security threshold.
	AbortReasonQBERExceeded AbortReason = 0x01
	// AbortReasonAuthFailure indicates a signature check failed.
	AbortReasonAuthFailure AbortReason = 0x02
	// AbortReasonResource indicates the sender ran out of qubits or pairs.
	AbortReasonResource AbortReason = 0x03
	// AbortReasonInternal indicates an unspecified local failure.
	AbortReasonInternal AbortReason = 0x04
)

// BasisAnnounce publishes the measurement bases one party used in a round.
// Bases are packed one bit per position: 0 for the computational basis, 1
// for the Hadamard basis.
type BasisAnnounce struct {
	// RoundID correlates announcements of the same run.
	RoundID uint32

	// Count is the number of valid basis bits.
	Count uint32

	// Bases holds Count packed basis bits, little-endian within each byte.
	Bases []byte
}

// Validate checks the announcement's structural invariants.
func (m *BasisAnnounce) Validate() error {
	if m.Count == 0 {
		return qerrors.ErrInvalidMessage
	}
	if need := int(m.Count+7) / 8; len(m.Bases) != need {
		return qerrors.ErrInvalidMessage
	}
	return nil
}

// BasisAt returns the i-th announced basis bit.
func (m *BasisAnnounce) BasisAt(i int) int {
	return int(m.Bases[i/8]>>(i%8)) & 1
}

// PackBases packs per-position basis bits into announcement form.
func PackBases(bits []int) []byte {
	packed := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b != 0 {
			packed[i/8] |= 1 << (i % 8)
		}
	}
	return packed
}

// SampleReveal discloses the bit values at the sampled sifted-key positions
// so the peer can estimate the channel error rate. Revealed positions are
// discarded from the key by both parties.
type SampleReveal struct {
	RoundID uint32

	// Indices are positions into the sifted key.
	Indices []uint32

	// Bits holds the revealer's bit at each index, one byte per bit.
	Bits []byte
}

// Validate checks the reveal's structural invariants.
func (m *SampleReveal) Validate() error {
	if len(m.Indices) == 0 || len(m.Indices) != len(m.Bits) {
		return qerrors.ErrInvalidMessage
	}
	for _, b := range m.Bits {
		if b > 1 {
			return qerrors.ErrInvalidMessage
		}
	}
	return nil
}

// QBERReport returns the estimated quantum bit error rate and whether the
// reporting party accepts the round.
type QBERReport struct {
	RoundID uint32

	// QBER is the estimated error rate in [0,1].
	QBER float64

	// Accepted is false when the rate crossed the security threshold.
	Accepted bool
}

// Validate checks the report's structural invariants.
func (m *QBERReport) Validate() error {
	if m.QBER < 0 || m.QBER > 1 {
		return qerrors.ErrInvalidMessage
	}
	return nil
}

// Correction carries the two classical bits of a teleportation: the
// receiver applies an X correction when XBit is set and a Z correction when
// ZBit is set.
type Correction struct {
	RoundID uint32
	XBit    uint8
	ZBit    uint8
}

// Validate checks the correction's structural invariants.
func (m *Correction) Validate() error {
	if m.XBit > 1 || m.ZBit > 1 {
		return qerrors.ErrInvalidMessage
	}
	return nil
}

// Abort signals that the sender abandoned the run.
type Abort struct {
	RoundID uint32
	Reason  AbortReason
}

// Validate checks the abort's structural invariants.
func (m *Abort) Validate() error {
	switch m.Reason {
	case AbortReasonQBERExceeded, AbortReasonAuthFailure, AbortReasonResource, AbortReasonInternal:
		return nil
	default:
		return qerrors.ErrInvalidMessage
	}
}
