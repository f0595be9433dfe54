// Package constants defines protocol defaults and simulation parameters for
// the qnetsim quantum network engine.
//
// The values here are abstractions calibrated against published QKD and
// entanglement-distribution experiments, not measurements of any particular
// hardware platform.
package constants

// Quantum key distribution parameters
const (
	// RawKeyFactor is the oversampling factor applied to the requested key
	// length when generating raw bits. Basis sifting discards half of the
	// positions in expectation, and error estimation consumes a sample of
	// the remainder, so 4x leaves comfortable margin.
	RawKeyFactor = 4

	// QBERSampleSize is the number of sifted key bits revealed for
	// quantum bit error rate estimation.
	QBERSampleSize = 50

	// DefaultSecurityThreshold is the QBER above which a BB84 run aborts.
	// 11% is the asymptotic security bound for one-way post-processing.
	DefaultSecurityThreshold = 0.11

	// DistilledKeySize is the byte length of the privacy-amplified key
	// derived from an accepted sifted key.
	DistilledKeySize = 32
)

// Entanglement parameters
const (
	// BellPairFidelity is the default fidelity of a freshly generated
	// entangled pair, modelling imperfect physical pair sources.
	BellPairFidelity = 0.95

	// GHZFidelity is the default fidelity of a freshly prepared GHZ state.
	GHZFidelity = 0.90

	// TeleportFidelityBound caps the fidelity of a teleported state.
	TeleportFidelityBound = 0.95

	// PurificationStep is the fidelity gain of one purification round.
	PurificationStep = 0.05

	// PurificationCap is the maximum fidelity purification can reach.
	PurificationCap = 0.99
)

// Channel transport parameters
const (
	// DefaultChannelCapacity is the queue capacity of channels provisioned
	// for links whose spec declares none.
	DefaultChannelCapacity = 64

	// DefaultChannelFidelity is the fidelity of a default channel.
	DefaultChannelFidelity = 0.98

	// DefaultChannelBandwidth is the bandwidth (messages per second) of a
	// default channel. Informational only; the engine does not pace sends.
	DefaultChannelBandwidth = 1000.0
)

// Engine parameters
const (
	// RunLogCapacity bounds the number of retained protocol result records.
	RunLogCapacity = 256

	// DomainSeparatorKey is the domain separation string for privacy
	// amplification of accepted QKD keys.
	DomainSeparatorKey = "qnetsim-v1-key-distill"

	// DomainSeparatorAuth is the domain separation string mixed into the
	// transcript signed on the classical control channel.
	DomainSeparatorAuth = "qnetsim-v1-classical-auth"
)

// Basis identifies a single-qubit measurement basis.
type Basis uint8

const (
	// BasisZ is the computational basis (|0>, |1>).
	BasisZ Basis = iota

	// BasisX is the Hadamard basis (|+>, |->).
	BasisX
)

// String returns a human-readable name for the basis.
func (b Basis) String() string {
	switch b {
	case BasisZ:
		return "Z"
	case BasisX:
		return "X"
	default:
		return "Unknown"
	}
}

// IsValid reports whether the basis is one of the supported bases.
func (b Basis) IsValid() bool {
	return b == BasisZ || b == BasisX
}
