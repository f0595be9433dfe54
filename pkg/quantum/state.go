package quantum

import (
	"math"
	"math/cmplx"
)

// Amplitudes is the 2-entry complex amplitude vector of a single qubit:
// index 0 holds the |0> amplitude, index 1 the |1> amplitude.
type Amplitudes [2]complex128

// invSqrt2 is 1/sqrt(2), the Hadamard normalization factor.
var invSqrt2 = complex(1/math.Sqrt2, 0)

// Canonical single-qubit states.
var (
	stateZero  = Amplitudes{1, 0}
	stateOne   = Amplitudes{0, 1}
	statePlus  = Amplitudes{invSqrt2, invSqrt2}
	stateMinus = Amplitudes{invSqrt2, -invSqrt2}
)

// Pauli identifies a single-qubit Pauli operator.
type Pauli uint8

// The Pauli group generators applied as discrete channel errors.
const (
	PauliI Pauli = iota
	PauliX
	PauliY
	PauliZ
)

// String returns a human-readable name for the Pauli operator.
func (p Pauli) String() string {
	switch p {
	case PauliI:
		return "I"
	case PauliX:
		return "X"
	case PauliY:
		return "Y"
	case PauliZ:
		return "Z"
	default:
		return "Unknown"
	}
}

// apply returns the amplitude vector after the Pauli operator.
func (p Pauli) apply(a Amplitudes) Amplitudes {
	switch p {
	case PauliX:
		return Amplitudes{a[1], a[0]}
	case PauliY:
		// Y = iXZ
		return Amplitudes{complex(0, 1) * a[1] * -1, complex(0, 1) * a[0]}
	case PauliZ:
		return Amplitudes{a[0], -a[1]}
	default:
		return a
	}
}

// flipsZ reports whether the operator flips a computational-basis outcome;
// flipsX whether it flips a Hadamard-basis outcome. Y flips both.
func (p Pauli) flipsZ() bool { return p == PauliX || p == PauliY }
func (p Pauli) flipsX() bool { return p == PauliZ || p == PauliY }

// probOne returns the probability of outcome 1 for a computational-basis
// measurement of the amplitude vector.
func probOne(a Amplitudes) float64 {
	m := cmplx.Abs(a[1])
	return m * m
}

// toHadamard rotates an amplitude vector into the Hadamard basis, so its
// entries become the |+> and |-> amplitudes.
func toHadamard(a Amplitudes) Amplitudes {
	return Amplitudes{
		invSqrt2 * (a[0] + a[1]),
		invSqrt2 * (a[0] - a[1]),
	}
}
