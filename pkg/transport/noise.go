package transport

import (
	"github.com/entanglab/qnetsim/pkg/quantum"
)

// ApplyLinkNoise subjects qubits crossing a link to a depolarizing channel:
// with probability lossRate each qubit independently suffers one of X, Y, Z
// chosen uniformly, and is otherwise left untouched. The return value counts
// the qubits that were hit.
//
// This is the abstraction level the protocol layer needs, not a physical
// noise model: one lossRate parameter stands in for attenuation, dephasing,
// and depolarization combined.
func ApplyLinkNoise(ar *quantum.Arena, qubits []quantum.Handle, lossRate float64, src *quantum.BitSource) (int, error) {
	if lossRate <= 0 {
		return 0, nil
	}

	hit := 0
	for _, h := range qubits {
		if src.Float() >= lossRate {
			continue
		}
		p := quantum.Pauli(1 + src.Intn(3)) // X, Y or Z, uniformly
		if err := ar.ApplyPauli(h, p); err != nil {
			return hit, err
		}
		hit++
	}
	return hit, nil
}
