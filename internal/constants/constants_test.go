package constants

import "testing"

// TestBasisString tests String method for Basis.
func TestBasisString(t *testing.T) {
	tests := []struct {
		basis Basis
		want  string
	}{
		{BasisZ, "Z"},
		{BasisX, "X"},
		{Basis(0x99), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.basis.String(); got != tt.want {
			t.Errorf("Basis(%d).String() = %q, want %q", tt.basis, got, tt.want)
		}
	}
}

// TestBasisIsValid tests IsValid method for Basis.
func TestBasisIsValid(t *testing.T) {
	tests := []struct {
		basis Basis
		want  bool
	}{
		{BasisZ, true},
		{BasisX, true},
		{Basis(2), false},
		{Basis(0xFF), false},
	}

	for _, tt := range tests {
		if got := tt.basis.IsValid(); got != tt.want {
			t.Errorf("Basis(%d).IsValid() = %v, want %v", tt.basis, got, tt.want)
		}
	}
}

// TestConstants verifies parameter relationships using table-driven tests.
func TestConstants(t *testing.T) {
	t.Run("KeyDistribution", testKeyDistribution)
	t.Run("Entanglement", testEntanglement)
	t.Run("DomainSeparators", testDomainSeparators)
}

func testKeyDistribution(t *testing.T) {
	// Sifting halves the raw key in expectation and error estimation
	// reveals a sample, so the oversampling factor must cover both.
	if RawKeyFactor < 4 {
		t.Errorf("RawKeyFactor = %d, want at least 4", RawKeyFactor)
	}
	if QBERSampleSize < 1 {
		t.Errorf("QBERSampleSize = %d, want positive", QBERSampleSize)
	}
	if DefaultSecurityThreshold <= 0 || DefaultSecurityThreshold >= 1 {
		t.Errorf("DefaultSecurityThreshold = %v, want inside (0,1)", DefaultSecurityThreshold)
	}
	if DistilledKeySize != 32 {
		t.Errorf("DistilledKeySize = %d, want 32", DistilledKeySize)
	}
}

func testEntanglement(t *testing.T) {
	fidelities := []struct {
		name string
		got  float64
	}{
		{"BellPairFidelity", BellPairFidelity},
		{"GHZFidelity", GHZFidelity},
		{"TeleportFidelityBound", TeleportFidelityBound},
		{"PurificationCap", PurificationCap},
	}
	for _, f := range fidelities {
		if f.got <= 0 || f.got > 1 {
			t.Errorf("%s = %v, want inside (0,1]", f.name, f.got)
		}
	}

	if PurificationStep <= 0 {
		t.Errorf("PurificationStep = %v, want positive", PurificationStep)
	}
	if BellPairFidelity+PurificationStep <= PurificationCap {
		// One round from the default fidelity should be able to reach the
		// cap, otherwise purification rounds are undersized.
		t.Errorf("one purification round from %v cannot reach cap %v", BellPairFidelity, PurificationCap)
	}
	if GHZFidelity > BellPairFidelity {
		t.Errorf("GHZFidelity %v should not exceed BellPairFidelity %v", GHZFidelity, BellPairFidelity)
	}
}

func testDomainSeparators(t *testing.T) {
	if DomainSeparatorKey == DomainSeparatorAuth {
		t.Error("key distillation and classical auth must use distinct domain separators")
	}
	if DomainSeparatorKey == "" || DomainSeparatorAuth == "" {
		t.Error("domain separators must be non-empty")
	}
}
