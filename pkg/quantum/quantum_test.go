package quantum

import (
	"errors"
	"testing"

	"github.com/entanglab/qnetsim/internal/constants"
	qerrors "github.com/entanglab/qnetsim/internal/errors"
)

func TestPrepareMeasureRoundTrip(t *testing.T) {
	ar := NewArena()
	src := NewBitSource("prep-measure")

	// Matched-basis measurement must reproduce the prepared bit exactly.
	for _, basis := range []constants.Basis{constants.BasisZ, constants.BasisX} {
		for _, bit := range []int{0, 1} {
			h := ar.NewQubit("alice")
			if err := ar.Prepare(h, bit, basis); err != nil {
				t.Fatalf("Prepare(%d, %s): %v", bit, basis, err)
			}
			got, err := ar.Measure(h, basis, src)
			if err != nil {
				t.Fatalf("Measure: %v", err)
			}
			if got != bit {
				t.Errorf("basis %s: prepared %d, measured %d", basis, bit, got)
			}
		}
	}
}

func TestMeasureConsumesQubit(t *testing.T) {
	ar := NewArena()
	src := NewBitSource("consume")

	h := ar.NewQubit("alice")
	if _, err := ar.Measure(h, constants.BasisZ, src); err != nil {
		t.Fatalf("first Measure: %v", err)
	}
	if _, err := ar.Measure(h, constants.BasisZ, src); !errors.Is(err, qerrors.ErrQubitConsumed) {
		t.Errorf("second Measure = %v, want ErrQubitConsumed", err)
	}
	if err := ar.Prepare(h, 0, constants.BasisZ); !errors.Is(err, qerrors.ErrQubitConsumed) {
		t.Errorf("Prepare after Measure = %v, want ErrQubitConsumed", err)
	}
	if _, err := ar.State(h); !errors.Is(err, qerrors.ErrQubitConsumed) {
		t.Errorf("State after Measure = %v, want ErrQubitConsumed", err)
	}
	measured, err := ar.IsMeasured(h)
	if err != nil || !measured {
		t.Errorf("IsMeasured = (%v, %v), want (true, nil)", measured, err)
	}
}

func TestMeasureCrossBasisIsUniform(t *testing.T) {
	ar := NewArena()
	src := NewBitSource("cross-basis")

	const n = 2000
	ones := 0
	for i := 0; i < n; i++ {
		h := ar.NewQubit("alice")
		if err := ar.Prepare(h, 0, constants.BasisZ); err != nil {
			t.Fatalf("Prepare: %v", err)
		}
		bit, err := ar.Measure(h, constants.BasisX, src)
		if err != nil {
			t.Fatalf("Measure: %v", err)
		}
		ones += bit
	}

	// |0> measured in X is a fair coin. Bounds sit well past 5 sigma.
	if ones < 800 || ones > 1200 {
		t.Errorf("cross-basis ones = %d of %d, want near %d", ones, n, n/2)
	}
}

func TestBellPairCorrelation(t *testing.T) {
	ar := NewArena()
	src := NewBitSource("bell-corr")

	for _, basis := range []constants.Basis{constants.BasisZ, constants.BasisX} {
		for i := 0; i < 200; i++ {
			_, a, b := ar.CreatePair("alice", "bob")
			ba, err := ar.Measure(a, basis, src)
			if err != nil {
				t.Fatalf("Measure a: %v", err)
			}
			bb, err := ar.Measure(b, basis, src)
			if err != nil {
				t.Fatalf("Measure b: %v", err)
			}
			if ba != bb {
				t.Fatalf("basis %s: pair halves disagree (%d vs %d)", basis, ba, bb)
			}
		}
	}
}

func TestBellPairXFlipBreaksZCorrelation(t *testing.T) {
	ar := NewArena()
	src := NewBitSource("bell-flip")

	for i := 0; i < 100; i++ {
		_, a, b := ar.CreatePair("alice", "bob")
		// A bit flip on one half in transit anti-correlates Z outcomes.
		if err := ar.ApplyPauli(b, PauliX); err != nil {
			t.Fatalf("ApplyPauli: %v", err)
		}
		ba, _ := ar.Measure(a, constants.BasisZ, src)
		bb, _ := ar.Measure(b, constants.BasisZ, src)
		if ba == bb {
			t.Fatalf("X-flipped pair agreed in Z (%d vs %d)", ba, bb)
		}
	}
}

func TestPairLifecycle(t *testing.T) {
	ar := NewArena()

	ref, a, b := ar.CreatePair("alice", "bob")

	info, err := ar.Pair(ref)
	if err != nil {
		t.Fatalf("Pair: %v", err)
	}
	if info.Fidelity != constants.BellPairFidelity {
		t.Errorf("fresh pair fidelity = %v, want %v", info.Fidelity, constants.BellPairFidelity)
	}
	peers, err := ar.EntangledWith(a)
	if err != nil {
		t.Fatalf("EntangledWith: %v", err)
	}
	if len(peers) != 1 || peers[0] != b {
		t.Errorf("EntangledWith(a) = %v, want [%v]", peers, b)
	}

	if err := ar.SetPairFidelity(ref, 1.7); err != nil {
		t.Fatalf("SetPairFidelity: %v", err)
	}
	info, _ = ar.Pair(ref)
	if info.Fidelity != 1.0 {
		t.Errorf("fidelity not clamped: %v", info.Fidelity)
	}

	if err := ar.ConsumePair(ref); err != nil {
		t.Fatalf("ConsumePair: %v", err)
	}
	if err := ar.ConsumePair(ref); !errors.Is(err, qerrors.ErrPairConsumed) {
		t.Errorf("double consume = %v, want ErrPairConsumed", err)
	}
	src := NewBitSource("pair-life")
	if _, err := ar.Measure(a, constants.BasisZ, src); !errors.Is(err, qerrors.ErrQubitConsumed) {
		t.Errorf("measure of consumed half = %v, want ErrQubitConsumed", err)
	}
	if err := ar.SetPairFidelity(ref, 0.5); !errors.Is(err, qerrors.ErrPairConsumed) {
		t.Errorf("SetPairFidelity on consumed pair = %v, want ErrPairConsumed", err)
	}
}

func TestPairRefZeroValueIsNil(t *testing.T) {
	var zero PairRef
	if zero != NilPair {
		t.Fatalf("zero PairRef = %v, want NilPair", zero)
	}

	ar := NewArena()
	ref, _, _ := ar.CreatePair("alice", "bob")
	if ref == NilPair {
		t.Fatal("CreatePair returned NilPair")
	}
	if _, err := ar.Pair(NilPair); !errors.Is(err, qerrors.ErrUnknownPair) {
		t.Errorf("Pair(NilPair) = %v, want ErrUnknownPair", err)
	}
	if err := ar.ConsumePair(NilPair); !errors.Is(err, qerrors.ErrUnknownPair) {
		t.Errorf("ConsumePair(NilPair) = %v, want ErrUnknownPair", err)
	}
}

func TestGHZComputationalCorrelation(t *testing.T) {
	ar := NewArena()
	src := NewBitSource("ghz")

	for i := 0; i < 100; i++ {
		handles := ar.CreateGHZ([]string{"alice", "bob", "carol", "dave"})
		first, err := ar.Measure(handles[0], constants.BasisZ, src)
		if err != nil {
			t.Fatalf("Measure: %v", err)
		}
		for _, h := range handles[1:] {
			bit, err := ar.Measure(h, constants.BasisZ, src)
			if err != nil {
				t.Fatalf("Measure member: %v", err)
			}
			if bit != first {
				t.Fatalf("GHZ member disagreed: %d vs %d", bit, first)
			}
		}
	}
}

func TestGHZEntangledWith(t *testing.T) {
	ar := NewArena()

	handles := ar.CreateGHZ([]string{"alice", "bob", "carol"})
	peers, err := ar.EntangledWith(handles[1])
	if err != nil {
		t.Fatalf("EntangledWith: %v", err)
	}
	if len(peers) != 2 {
		t.Fatalf("EntangledWith = %v, want the other two members", peers)
	}
	for _, p := range peers {
		if p == handles[1] {
			t.Error("EntangledWith included the qubit itself")
		}
	}
}

func TestBellMeasureConsumesBoth(t *testing.T) {
	ar := NewArena()
	src := NewBitSource("bell-measure")

	payload := ar.NewQubit("alice")
	_, a, _ := ar.CreatePair("alice", "bob")

	xBit, zBit, err := ar.BellMeasure(payload, a, src)
	if err != nil {
		t.Fatalf("BellMeasure: %v", err)
	}
	if xBit < 0 || xBit > 1 || zBit < 0 || zBit > 1 {
		t.Errorf("correction bits out of range: %d, %d", xBit, zBit)
	}
	for _, h := range []Handle{payload, a} {
		measured, err := ar.IsMeasured(h)
		if err != nil || !measured {
			t.Errorf("BellMeasure left qubit %v unconsumed", h)
		}
	}
	if _, _, err := ar.BellMeasure(payload, a, src); !errors.Is(err, qerrors.ErrQubitConsumed) {
		t.Errorf("repeat BellMeasure = %v, want ErrQubitConsumed", err)
	}
}

func TestSwapSplicesOuterHalves(t *testing.T) {
	ar := NewArena()
	src := NewBitSource("swap")

	// alice-repeater and repeater-bob pairs; swapping at the repeater should
	// leave alice and bob holding a direct pair.
	refAB, aliceH, innerA := ar.CreatePair("alice", "repeater")
	refBC, innerB, bobH := ar.CreatePair("repeater", "bob")

	ref, err := ar.Swap(innerA, innerB, true, src)
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}

	info, err := ar.Pair(ref)
	if err != nil {
		t.Fatalf("Pair: %v", err)
	}
	want := constants.BellPairFidelity * constants.BellPairFidelity
	if diff := info.Fidelity - want; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("swapped fidelity = %v, want %v", info.Fidelity, want)
	}
	peers, err := ar.EntangledWith(aliceH)
	if err != nil || len(peers) != 1 || peers[0] != bobH {
		t.Errorf("EntangledWith(alice) = (%v, %v), want bob's handle %v", peers, err, bobH)
	}

	// The consumed pairs are gone.
	for _, old := range []PairRef{refAB, refBC} {
		if err := ar.ConsumePair(old); !errors.Is(err, qerrors.ErrPairConsumed) {
			t.Errorf("old pair %v still live: %v", old, err)
		}
	}

	// The spliced pair still carries Bell correlations.
	ba, err := ar.Measure(aliceH, constants.BasisZ, src)
	if err != nil {
		t.Fatalf("Measure alice: %v", err)
	}
	bb, err := ar.Measure(bobH, constants.BasisZ, src)
	if err != nil {
		t.Fatalf("Measure bob: %v", err)
	}
	if ba != bb {
		t.Errorf("swapped pair halves disagree: %d vs %d", ba, bb)
	}
}

func TestSwapRequiresDistinctPairs(t *testing.T) {
	ar := NewArena()
	src := NewBitSource("swap-errors")

	_, a, b := ar.CreatePair("alice", "bob")
	if _, err := ar.Swap(a, b, true, src); !errors.Is(err, qerrors.ErrNotEntangled) {
		t.Errorf("swap within one pair = %v, want ErrNotEntangled", err)
	}

	lone := ar.NewQubit("alice")
	if _, err := ar.Swap(a, lone, true, src); !errors.Is(err, qerrors.ErrNotEntangled) {
		t.Errorf("swap with lone qubit = %v, want ErrNotEntangled", err)
	}
}

func TestInitializeAndOwnership(t *testing.T) {
	ar := NewArena()

	handles := ar.Initialize("alice", 5)
	if len(handles) != 5 {
		t.Fatalf("Initialize returned %d handles, want 5", len(handles))
	}
	for _, h := range handles {
		owner, err := ar.Owner(h)
		if err != nil {
			t.Fatalf("Owner: %v", err)
		}
		if owner != "alice" {
			t.Errorf("owner = %q, want alice", owner)
		}
	}

	if _, err := ar.Owner(Handle(999)); !errors.Is(err, qerrors.ErrUnknownQubit) {
		t.Errorf("Owner of bogus handle = %v, want ErrUnknownQubit", err)
	}
	if _, err := ar.Pair(PairRef(7)); !errors.Is(err, qerrors.ErrUnknownPair) {
		t.Errorf("Pair of bogus ref = %v, want ErrUnknownPair", err)
	}
}

func TestBitSourceOutputs(t *testing.T) {
	a := NewBitSource("bits")
	ones := 0
	for _, b := range a.Bits(2000) {
		if b != 0 && b != 1 {
			t.Fatalf("Bit returned %d", b)
		}
		ones += b
	}
	if ones < 800 || ones > 1200 {
		t.Errorf("ones = %d of 2000, want near 1000", ones)
	}

	for i := 0; i < 100; i++ {
		if v := a.Intn(5); v < 0 || v > 4 {
			t.Fatalf("Intn(5) = %d", v)
		}
	}
	if v := a.Intn(1); v != 0 {
		t.Errorf("Intn(1) = %d, want 0", v)
	}

	c := NewBitSource("bases")
	bases := c.Bases(100)
	if len(bases) != 100 {
		t.Fatalf("Bases returned %d entries", len(bases))
	}
	for _, bs := range bases {
		if !bs.IsValid() {
			t.Fatalf("invalid basis %v from source", bs)
		}
	}
}

func TestPauliStrings(t *testing.T) {
	tests := []struct {
		p    Pauli
		want string
	}{
		{PauliI, "I"},
		{PauliX, "X"},
		{PauliY, "Y"},
		{PauliZ, "Z"},
		{Pauli(9), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("Pauli(%d).String() = %q, want %q", tt.p, got, tt.want)
		}
	}
}
