package engine

import (
	"fmt"

	"github.com/entanglab/qnetsim/internal/constants"
	qerrors "github.com/entanglab/qnetsim/internal/errors"
	"github.com/entanglab/qnetsim/pkg/quantum"
)

// Invocation selects a protocol and carries its parameters. The set of
// invocations is closed; Run dispatches on the concrete type.
type Invocation interface {
	// Protocol returns the protocol name carried into results and logs.
	Protocol() string

	// validate checks the invocation against the engine's network before
	// any quantum resources are committed. Implementing it unexported
	// seals the interface.
	validate(e *Engine) error
}

// BB84Invocation runs prepare-and-measure quantum key distribution between
// two nodes.
type BB84Invocation struct {
	// Alice prepares and sends, Bob measures.
	Alice string
	Bob   string

	// KeyLength is the requested sifted key length in bits.
	KeyLength int

	// SecurityThreshold is the QBER above which the run aborts. Zero
	// selects the default threshold. Sample granularity is one mismatch
	// in constants.QBERSampleSize, so any positive value below that
	// rejects every observed error.
	SecurityThreshold float64
}

// Protocol returns "bb84".
func (inv BB84Invocation) Protocol() string { return "bb84" }

func (inv BB84Invocation) validate(e *Engine) error {
	if inv.KeyLength < 1 {
		return fmt.Errorf("%w: key length %d", qerrors.ErrInvalidSpec, inv.KeyLength)
	}
	if inv.SecurityThreshold < 0 || inv.SecurityThreshold > 1 {
		return fmt.Errorf("%w: security threshold %v", qerrors.ErrInvalidSpec, inv.SecurityThreshold)
	}
	return e.requireRoute(inv.Alice, inv.Bob)
}

func (inv BB84Invocation) threshold() float64 {
	if inv.SecurityThreshold == 0 {
		return constants.DefaultSecurityThreshold
	}
	return inv.SecurityThreshold
}

// E91Invocation runs entanglement-based key distribution between two nodes.
type E91Invocation struct {
	Alice string
	Bob   string

	// KeyLength is the requested sifted key length in bits.
	KeyLength int

	// SecurityThreshold is the QBER above which the run aborts. Zero
	// selects the default threshold. Sample granularity is one mismatch
	// in constants.QBERSampleSize, so any positive value below that
	// rejects every observed error.
	SecurityThreshold float64
}

// Protocol returns "e91".
func (inv E91Invocation) Protocol() string { return "e91" }

func (inv E91Invocation) validate(e *Engine) error {
	if inv.KeyLength < 1 {
		return fmt.Errorf("%w: key length %d", qerrors.ErrInvalidSpec, inv.KeyLength)
	}
	if inv.SecurityThreshold < 0 || inv.SecurityThreshold > 1 {
		return fmt.Errorf("%w: security threshold %v", qerrors.ErrInvalidSpec, inv.SecurityThreshold)
	}
	return e.requireRoute(inv.Alice, inv.Bob)
}

func (inv E91Invocation) threshold() float64 {
	if inv.SecurityThreshold == 0 {
		return constants.DefaultSecurityThreshold
	}
	return inv.SecurityThreshold
}

// TeleportInvocation transfers the state of a source-held qubit to the
// target node, consuming the qubit and one entangled pair.
type TeleportInvocation struct {
	Source string
	Target string

	// Qubit is the source-held qubit whose state is transferred.
	Qubit quantum.Handle

	// Pair optionally names a pre-established pair between source and
	// target. The zero value (NilPair) lets the run establish one.
	Pair quantum.PairRef
}

// Protocol returns "teleport".
func (inv TeleportInvocation) Protocol() string { return "teleport" }

func (inv TeleportInvocation) validate(e *Engine) error {
	return e.requireRoute(inv.Source, inv.Target)
}

// EntangleKind selects the entangled state an EntangleInvocation prepares.
type EntangleKind string

// Entangled state kinds.
const (
	// EntangleBell prepares a two-party Bell pair, swapping through
	// intermediate nodes when the endpoints are not adjacent.
	EntangleBell EntangleKind = "bell"

	// EntangleGHZ prepares an N-party GHZ state.
	EntangleGHZ EntangleKind = "ghz"

	// EntangleCluster is a declared extension point; invoking it reports
	// a configuration error.
	EntangleCluster EntangleKind = "cluster"
)

// EntangleInvocation establishes shared entanglement across nodes.
type EntangleInvocation struct {
	Nodes []string
	Kind  EntangleKind

	// FidelityThreshold, when positive, fails the run if the delivered
	// state's fidelity falls below it.
	FidelityThreshold float64

	// PurifyRounds, when positive, runs that many purification rounds on
	// a Bell preparation before delivering it.
	PurifyRounds int
}

// Protocol returns "entangle".
func (inv EntangleInvocation) Protocol() string { return "entangle" }

func (inv EntangleInvocation) validate(e *Engine) error {
	switch inv.Kind {
	case EntangleBell:
		if len(inv.Nodes) != 2 {
			return fmt.Errorf("%w: bell preparation needs exactly 2 nodes, got %d", qerrors.ErrInvalidSpec, len(inv.Nodes))
		}
		return e.requireRoute(inv.Nodes[0], inv.Nodes[1])
	case EntangleGHZ:
		if len(inv.Nodes) < 3 {
			return fmt.Errorf("%w: ghz preparation needs at least 3 nodes, got %d", qerrors.ErrInvalidSpec, len(inv.Nodes))
		}
		for _, id := range inv.Nodes {
			if _, err := e.net.Node(id); err != nil {
				return err
			}
		}
		return nil
	case EntangleCluster:
		return fmt.Errorf("%w: cluster states", qerrors.ErrUnsupported)
	default:
		return fmt.Errorf("%w: entangle kind %q", qerrors.ErrInvalidSpec, inv.Kind)
	}
}

// PurifyInvocation distills fewer, higher-fidelity pairs from many.
type PurifyInvocation struct {
	// Pairs are the live input pairs; each round sacrifices half of them.
	Pairs []quantum.PairRef

	// TargetFidelity stops purification early once a survivor reaches it.
	TargetFidelity float64

	// MaxRounds bounds the number of rounds.
	MaxRounds int
}

// Protocol returns "purify".
func (inv PurifyInvocation) Protocol() string { return "purify" }

func (inv PurifyInvocation) validate(e *Engine) error {
	if len(inv.Pairs) < 2 {
		return fmt.Errorf("%w: purification needs at least 2 pairs, got %d", qerrors.ErrInsufficientPairs, len(inv.Pairs))
	}
	if inv.MaxRounds < 1 {
		return fmt.Errorf("%w: purification rounds %d", qerrors.ErrInvalidSpec, inv.MaxRounds)
	}
	return nil
}

// SwapInvocation splices two pairs meeting at a common node into one
// longer-range pair.
type SwapInvocation struct {
	// Left and Right are the two halves held by the swapping node, each
	// belonging to a different pair.
	Left  quantum.Handle
	Right quantum.Handle

	// SkipMeasure splices without drawing the repeater's Bell measurement
	// outcomes, for callers staging corrections themselves. The zero
	// value measures.
	SkipMeasure bool
}

// Protocol returns "swap".
func (inv SwapInvocation) Protocol() string { return "swap" }

func (inv SwapInvocation) validate(e *Engine) error {
	return nil // the arena checks entanglement preconditions
}
