// Package quantum implements the quantum resource model: single-qubit state,
// entangled pairs, GHZ groups, preparation, and measurement.
//
// Qubits live in an arena and are addressed through opaque handles. A
// consumed (measured) qubit stays in the arena with its terminal outcome, so
// a stale handle surfaces a state error instead of dangling. Multi-qubit
// states are never stored as joint amplitude vectors: pairs and GHZ groups
// carry shared measurement state that reproduces the joint statistics the
// protocol layer relies on (see Measure for the exact guarantees).
package quantum

import (
	"sync"
	"time"

	"github.com/entanglab/qnetsim/internal/constants"
	qerrors "github.com/entanglab/qnetsim/internal/errors"
)

// Handle is an opaque reference to a qubit in an arena.
type Handle int

// NilHandle is the zero value for "no qubit".
const NilHandle Handle = -1

// PairRef is an opaque reference to an entangled pair record in an arena.
// Refs are numbered from 1 so the zero value never names a live pair.
type PairRef int

// NilPair is the zero value for "no pair".
const NilPair PairRef = 0

// qubit is the arena-internal representation of a single qubit.
type qubit struct {
	owner     string
	amp       Amplitudes
	fidelity  float64
	createdAt time.Time

	measured bool
	outcome  int

	// Entanglement bookkeeping. A qubit is a member of at most one pair
	// or one GHZ group.
	partner Handle
	pair    PairRef
	ghz     *ghzGroup

	// Pauli frame accrued from channel noise while entangled. flipZ flips
	// a computational-basis outcome, flipX a Hadamard-basis outcome.
	flipZ bool
	flipX bool

	// Outcome pinned by the partner's earlier measurement, valid for the
	// recorded basis only.
	corrSet   bool
	corrBasis constants.Basis
	corrBit   int
}

// pairRecord tracks one entangled pair.
type pairRecord struct {
	a, b      Handle
	fidelity  float64
	createdAt time.Time
	consumed  bool
}

// ghzGroup is the shared measurement state of a GHZ preparation.
type ghzGroup struct {
	members   []Handle
	collapsed bool
	value     int
}

// PairInfo is the exported view of an entangled pair record.
type PairInfo struct {
	Ref       PairRef
	A, B      Handle
	Fidelity  float64
	CreatedAt time.Time
	Consumed  bool
}

// Arena owns all qubits and entangled pairs of one engine instance.
// All methods are safe for concurrent use.
type Arena struct {
	mu     sync.Mutex
	qubits []qubit
	pairs  []pairRecord
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// NewQubit allocates a qubit in the |0> state at the named node and returns
// its handle.
func (ar *Arena) NewQubit(owner string) Handle {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	return ar.allocLocked(owner, stateZero, 1.0)
}

// NewQubitWithState allocates a qubit carrying the given amplitude vector and
// fidelity. Used by teleportation to materialize the transferred state at the
// target node.
func (ar *Arena) NewQubitWithState(owner string, amp Amplitudes, fidelity float64) Handle {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	return ar.allocLocked(owner, amp, fidelity)
}

// Initialize allocates count qubits in the |0> state at the named node.
func (ar *Arena) Initialize(owner string, count int) []Handle {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	handles := make([]Handle, count)
	for i := range handles {
		handles[i] = ar.allocLocked(owner, stateZero, 1.0)
	}
	return handles
}

func (ar *Arena) allocLocked(owner string, amp Amplitudes, fidelity float64) Handle {
	ar.qubits = append(ar.qubits, qubit{
		owner:     owner,
		amp:       amp,
		fidelity:  fidelity,
		createdAt: time.Now(),
		partner:   NilHandle,
		pair:      NilPair,
	})
	return Handle(len(ar.qubits) - 1)
}

// lookupLocked resolves a handle, or reports a reference error.
func (ar *Arena) lookupLocked(h Handle) (*qubit, error) {
	if h < 0 || int(h) >= len(ar.qubits) {
		return nil, qerrors.ErrUnknownQubit
	}
	return &ar.qubits[h], nil
}

// pairLocked resolves a pair ref, or reports a reference error.
func (ar *Arena) pairLocked(ref PairRef) (*pairRecord, error) {
	if ref < 1 || int(ref) > len(ar.pairs) {
		return nil, qerrors.ErrUnknownPair
	}
	return &ar.pairs[ref-1], nil
}

// Owner returns the id of the node hosting the qubit.
func (ar *Arena) Owner(h Handle) (string, error) {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	q, err := ar.lookupLocked(h)
	if err != nil {
		return "", err
	}
	return q.owner, nil
}

// Fidelity returns the qubit's fidelity.
func (ar *Arena) Fidelity(h Handle) (float64, error) {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	q, err := ar.lookupLocked(h)
	if err != nil {
		return 0, err
	}
	return q.fidelity, nil
}

// IsMeasured reports whether the qubit has been consumed by a measurement.
func (ar *Arena) IsMeasured(h Handle) (bool, error) {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	q, err := ar.lookupLocked(h)
	if err != nil {
		return false, err
	}
	return q.measured, nil
}

// State returns the qubit's amplitude vector. Consumed qubits report a state
// error.
func (ar *Arena) State(h Handle) (Amplitudes, error) {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	q, err := ar.lookupLocked(h)
	if err != nil {
		return Amplitudes{}, err
	}
	if q.measured {
		return Amplitudes{}, qerrors.ErrQubitConsumed
	}
	return q.amp, nil
}

// EntangledWith returns the handles sharing entanglement with the qubit: the
// Bell partner, or the other members of a GHZ group. The relation is
// symmetric and never implies ownership.
func (ar *Arena) EntangledWith(h Handle) ([]Handle, error) {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	q, err := ar.lookupLocked(h)
	if err != nil {
		return nil, err
	}
	if q.ghz != nil {
		others := make([]Handle, 0, len(q.ghz.members)-1)
		for _, m := range q.ghz.members {
			if m != h {
				others = append(others, m)
			}
		}
		return others, nil
	}
	if q.partner != NilHandle {
		return []Handle{q.partner}, nil
	}
	return nil, nil
}

// CreatePair generates an entangled pair in the Bell state |Phi+> with one
// half at each named node. The pair fidelity models an imperfect physical
// source and defaults to constants.BellPairFidelity.
func (ar *Arena) CreatePair(ownerA, ownerB string) (PairRef, Handle, Handle) {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	a := ar.allocLocked(ownerA, statePlus, constants.BellPairFidelity)
	b := ar.allocLocked(ownerB, statePlus, constants.BellPairFidelity)

	ref := PairRef(len(ar.pairs) + 1)
	ar.pairs = append(ar.pairs, pairRecord{
		a: a, b: b,
		fidelity:  constants.BellPairFidelity,
		createdAt: time.Now(),
	})

	ar.qubits[a].partner = b
	ar.qubits[a].pair = ref
	ar.qubits[b].partner = a
	ar.qubits[b].pair = ref

	return ref, a, b
}

// Pair returns the exported view of a pair record.
func (ar *Arena) Pair(ref PairRef) (PairInfo, error) {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	p, err := ar.pairLocked(ref)
	if err != nil {
		return PairInfo{}, err
	}
	return PairInfo{
		Ref: ref, A: p.a, B: p.b,
		Fidelity:  p.fidelity,
		CreatedAt: p.createdAt,
		Consumed:  p.consumed,
	}, nil
}

// SetPairFidelity updates a pair's fidelity, clamped to [0,1]. Used by
// purification and swapping.
func (ar *Arena) SetPairFidelity(ref PairRef, fidelity float64) error {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	p, err := ar.pairLocked(ref)
	if err != nil {
		return err
	}
	if p.consumed {
		return qerrors.ErrPairConsumed
	}
	if fidelity < 0 {
		fidelity = 0
	}
	if fidelity > 1 {
		fidelity = 1
	}
	p.fidelity = fidelity
	return nil
}

// ConsumePair retires a pair: both halves are marked measured and the record
// is flagged consumed. Purification rounds sacrifice pairs this way.
func (ar *Arena) ConsumePair(ref PairRef) error {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	return ar.consumePairLocked(ref)
}

func (ar *Arena) consumePairLocked(ref PairRef) error {
	p, err := ar.pairLocked(ref)
	if err != nil {
		return err
	}
	if p.consumed {
		return qerrors.ErrPairConsumed
	}
	p.consumed = true
	ar.qubits[p.a].measured = true
	ar.qubits[p.b].measured = true
	return nil
}

// CreateGHZ prepares an N-party GHZ state with one member qubit per named
// node. Computational-basis measurements of the members are fully correlated;
// see Measure for the statistics guarantee.
func (ar *Arena) CreateGHZ(owners []string) []Handle {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	group := &ghzGroup{members: make([]Handle, 0, len(owners))}
	handles := make([]Handle, len(owners))
	for i, owner := range owners {
		h := ar.allocLocked(owner, statePlus, constants.GHZFidelity)
		ar.qubits[h].ghz = group
		group.members = append(group.members, h)
		handles[i] = h
	}
	return handles
}
