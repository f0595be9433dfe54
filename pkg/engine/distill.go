// distill.go implements privacy amplification with SHAKE-256 (SHA-3 XOF).
//
// The sifted key still leaks partial information: the revealed sample and
// anything an eavesdropper gained within the tolerated error rate. Hashing
// the surviving bits through an extendable-output function compresses that
// leakage away and yields uniform key material of the requested length.
//
// The construction is
//
//	key = SHAKE-256(
//	    domain_separator ||
//	    bit_count || packed_bits,
//	    output_length
//	)
//
// with a 4-byte big-endian bit count so the packing is unambiguous.
package engine

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"github.com/entanglab/qnetsim/internal/constants"
)

// DistillKey derives outputLen bytes of key material from raw key bits.
// Callers pass the post-sample sifted bits; an empty bit slice yields an
// empty key.
func DistillKey(bits []int, outputLen int) []byte {
	if len(bits) == 0 || outputLen <= 0 {
		return nil
	}

	packed := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b != 0 {
			packed[i/8] |= 1 << (i % 8)
		}
	}

	shake := sha3.NewShake256()
	shake.Write([]byte(constants.DomainSeparatorKey))

	var count [4]byte
	binary.BigEndian.PutUint32(count[:], uint32(len(bits)))
	shake.Write(count[:])
	shake.Write(packed)

	out := make([]byte, outputLen)
	shake.Read(out)
	return out
}
