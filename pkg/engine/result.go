package engine

import (
	"time"

	"github.com/entanglab/qnetsim/pkg/quantum"
)

// Status is the terminal disposition of a protocol run.
type Status string

// Run dispositions. Aborted is reserved for security decisions; every other
// non-success is a failure.
const (
	StatusCompleted Status = "completed"
	StatusAborted   Status = "aborted"
	StatusFailed    Status = "failed"
)

// Phase tracks a run's progress through its protocol state machine.
type Phase uint8

// Protocol run phases in execution order.
const (
	PhaseValidating Phase = iota
	PhasePreparing
	PhaseTransmitting
	PhaseMeasuring
	PhaseSifting
	PhaseEstimating
	PhaseDistilling
	PhaseDone
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseValidating:
		return "validating"
	case PhasePreparing:
		return "preparing"
	case PhaseTransmitting:
		return "transmitting"
	case PhaseMeasuring:
		return "measuring"
	case PhaseSifting:
		return "sifting"
	case PhaseEstimating:
		return "error-estimation"
	case PhaseDistilling:
		return "distilling"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// KeyResult reports the outcome of a key distribution run.
type KeyResult struct {
	// RawLength is the number of qubits (or pairs) committed to the run.
	RawLength int

	// SiftedLength is the number of positions where both bases matched.
	SiftedLength int

	// FinalLength is the number of key bits surviving error estimation.
	FinalLength int

	// QBER is the error rate estimated from the revealed sample.
	QBER float64

	// Correlation is the measured outcome correlation over the sample
	// (entanglement-based runs only).
	Correlation float64

	// KeyBits is the final bit key: the unrevealed sifted bits truncated
	// to the requested length. Empty for aborted runs.
	KeyBits []int

	// Key is the distilled form of KeyBits. Empty for aborted runs.
	Key []byte
}

// TeleportResult reports the outcome of a teleportation run.
type TeleportResult struct {
	// Qubit is the handle materialized at the target node.
	Qubit quantum.Handle

	// Fidelity of the transferred state.
	Fidelity float64

	// XBit and ZBit are the classical correction bits that crossed the
	// network.
	XBit int
	ZBit int
}

// EntangleResult reports the outcome of an entanglement run.
type EntangleResult struct {
	// Handles are the member qubits, one per requested node, in request
	// order.
	Handles []quantum.Handle

	// Pair references the delivered pair for Bell preparations.
	Pair quantum.PairRef

	// Fidelity of the delivered state.
	Fidelity float64

	// Swaps counts the entanglement swaps performed en route.
	Swaps int
}

// PurifyResult reports the outcome of a purification run.
type PurifyResult struct {
	// Survivors are the pairs still live after all rounds.
	Survivors []quantum.PairRef

	// Fidelity is the best survivor fidelity.
	Fidelity float64

	// Rounds is the number of rounds actually run.
	Rounds int

	// Sacrificed counts the pairs consumed.
	Sacrificed int
}

// SwapResult reports the outcome of a swap run.
type SwapResult struct {
	// Pair is the spliced long-range pair.
	Pair quantum.PairRef

	// Fidelity of the spliced pair.
	Fidelity float64
}

// Result is the record of one protocol run. Exactly one of the per-protocol
// fields is set, matching the invocation type.
type Result struct {
	// Protocol names the protocol that ran.
	Protocol string

	// Status is the terminal disposition.
	Status Status

	// Phase is the phase the run ended in.
	Phase Phase

	// ErrorKind classifies the failure for aborted and failed runs.
	ErrorKind string

	// Message is a human-readable failure or abort explanation.
	Message string

	// StartedAt and Duration time the run.
	StartedAt time.Time
	Duration  time.Duration

	Key      *KeyResult
	Teleport *TeleportResult
	Entangle *EntangleResult
	Purify   *PurifyResult
	Swap     *SwapResult
}

// Accepted reports whether the run completed and delivered its output.
func (r *Result) Accepted() bool {
	return r.Status == StatusCompleted
}
