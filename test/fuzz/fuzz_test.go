// Package fuzz provides fuzz tests for the untrusted-input parsers: the
// classical control plane codec, the signed envelope, and the YAML network
// spec.
//
// Run fuzz tests with:
//
//	go test -fuzz=FuzzDecodeBasisAnnounce -fuzztime=30s ./test/fuzz/
//	go test -fuzz=FuzzDecodeSampleReveal -fuzztime=30s ./test/fuzz/
//	go test -fuzz=FuzzOpenEnvelope -fuzztime=30s ./test/fuzz/
//	go test -fuzz=FuzzParseNetworkSpec -fuzztime=30s ./test/fuzz/
package fuzz

import (
	"testing"

	"github.com/cloudflare/circl/sign/ed25519"

	"github.com/entanglab/qnetsim/pkg/protocol"
	"github.com/entanglab/qnetsim/pkg/topology"
)

// FuzzDecodeBasisAnnounce fuzzes the basis announcement decoder. Announcements
// arrive over the network, so the decoder must reject garbage without
// panicking.
func FuzzDecodeBasisAnnounce(f *testing.F) {
	codec := protocol.NewCodec()

	valid, _ := codec.EncodeBasisAnnounce(&protocol.BasisAnnounce{
		RoundID: 1,
		Count:   16,
		Bases:   []byte{0xAA, 0x55},
	})
	f.Add(valid)
	f.Add([]byte{})
	f.Add([]byte{0x01})
	f.Add(make([]byte, 5))
	f.Add(make([]byte, 1024))

	f.Fuzz(func(t *testing.T, data []byte) {
		ann, err := codec.DecodeBasisAnnounce(data)
		if err != nil {
			return
		}

		// A decoded announcement must re-encode cleanly.
		if _, err := codec.EncodeBasisAnnounce(ann); err != nil {
			t.Errorf("re-encode of decoded announcement failed: %v", err)
		}
	})
}

// FuzzDecodeSampleReveal fuzzes the sample reveal decoder.
func FuzzDecodeSampleReveal(f *testing.F) {
	codec := protocol.NewCodec()

	valid, _ := codec.EncodeSampleReveal(&protocol.SampleReveal{
		RoundID: 2,
		Indices: []uint32{0, 1, 2},
		Bits:    []byte{1, 0, 1},
	})
	f.Add(valid)
	f.Add([]byte{})
	f.Add([]byte{0x02, 0, 0, 0, 0})
	f.Add(make([]byte, 64))

	f.Fuzz(func(t *testing.T, data []byte) {
		msg, err := codec.DecodeSampleReveal(data)
		if err != nil {
			return
		}
		if len(msg.Indices) != len(msg.Bits) {
			t.Errorf("decoded reveal has %d indices but %d bits", len(msg.Indices), len(msg.Bits))
		}
	})
}

// FuzzOpenEnvelope fuzzes signed envelope verification. Forged or mangled
// envelopes must fail verification, never panic.
func FuzzOpenEnvelope(f *testing.F) {
	codec := protocol.NewCodec()
	keys, err := protocol.GenerateKeypair()
	if err != nil {
		f.Fatal(err)
	}
	lookup := func(string) (ed25519.PublicKey, bool) {
		return keys.Public, true
	}

	body, _ := codec.EncodeAbort(&protocol.Abort{RoundID: 9, Reason: protocol.AbortReasonQBERExceeded})
	valid, _ := codec.Seal("alice", body, keys)
	f.Add(valid)
	f.Add([]byte{})
	f.Add([]byte{0x05, 'a', 'l', 'i', 'c', 'e'})
	f.Add(make([]byte, 128))

	f.Fuzz(func(t *testing.T, data []byte) {
		sender, opened, err := codec.Open(data, lookup)
		if err != nil {
			return
		}
		// Only a genuinely signed envelope may verify.
		if sender != "alice" {
			t.Errorf("forged envelope verified with sender %q", sender)
		}
		if len(opened) == 0 {
			t.Error("verified envelope with empty body")
		}
	})
}

// FuzzParseNetworkSpec fuzzes the YAML network spec parser.
func FuzzParseNetworkSpec(f *testing.F) {
	f.Add([]byte(`
name: fuzz-net
topology: mesh
nodes:
  - id: alice
    kind: endpoint
  - id: bob
    kind: endpoint
`))
	f.Add([]byte(``))
	f.Add([]byte(`topology: pentagram`))
	f.Add([]byte(`{{{{`))
	f.Add([]byte("nodes:\n  - id: a\n  - id: a"))

	f.Fuzz(func(t *testing.T, data []byte) {
		spec, err := topology.ParseNetworkSpec(data)
		if err != nil {
			return
		}

		// A spec that validated must also build.
		if _, err := topology.Build(spec); err != nil {
			t.Errorf("validated spec failed to build: %v", err)
		}
	})
}
