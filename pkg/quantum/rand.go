package quantum

import (
	"github.com/iti/rngstream"

	"github.com/entanglab/qnetsim/internal/constants"
)

// BitSource produces the classical randomness consumed by state preparation
// and measurement. It wraps a named rngstream stream, so two sources created
// with the same name in the same creation order draw identical sequences and
// simulations are reproducible run to run.
//
// A BitSource is not safe for concurrent use; each protocol run and each
// node owns its own source.
type BitSource struct {
	rng *rngstream.RngStream
}

// NewBitSource creates a named random bit source.
func NewBitSource(name string) *BitSource {
	return &BitSource{rng: rngstream.New(name)}
}

// Float returns a uniform sample from [0,1).
func (s *BitSource) Float() float64 {
	return s.rng.RandU01()
}

// Bit returns a uniform random bit.
func (s *BitSource) Bit() int {
	if s.rng.RandU01() < 0.5 {
		return 0
	}
	return 1
}

// Bits returns n uniform random bits.
func (s *BitSource) Bits(n int) []int {
	bits := make([]int, n)
	for i := range bits {
		bits[i] = s.Bit()
	}
	return bits
}

// Basis returns a uniformly chosen measurement basis.
func (s *BitSource) Basis() constants.Basis {
	if s.Bit() == 0 {
		return constants.BasisZ
	}
	return constants.BasisX
}

// Bases returns n uniformly chosen measurement bases.
func (s *BitSource) Bases(n int) []constants.Basis {
	bases := make([]constants.Basis, n)
	for i := range bases {
		bases[i] = s.Basis()
	}
	return bases
}

// Intn returns a uniform sample from {0, ..., n-1}.
func (s *BitSource) Intn(n int) int {
	if n <= 1 {
		return 0
	}
	return s.rng.RandInt(0, n-1)
}
