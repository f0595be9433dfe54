// codec.go implements serialization and authentication of control messages.
//
// Wire Format:
//
// Every message body follows this structure:
//
//	+------+--------+----------+
//	| Type | Length | Payload  |
//	| 1B   | 4B BE  | Variable |
//	+------+--------+----------+
//
// Length is big-endian uint32, not including header bytes.
//
// Bodies travel inside a signed envelope so a receiver can attribute every
// control message to its sender. The quantum layer gives no authentication
// for free; without this an attacker on the classical channel could inject
// basis announcements at will:
//
//	+-----------+--------+------+-----------+
//	| SenderLen | Sender | Body | Signature |
//	| 1B        | Var    | Var  | 64B       |
//	+-----------+--------+------+-----------+
//
// Signatures are Ed25519 over a domain-separated digest input of the sender
// id and body.
package protocol

import (
	"encoding/binary"
	"math"

	"github.com/cloudflare/circl/sign/ed25519"

	"github.com/entanglab/qnetsim/internal/constants"
	qerrors "github.com/entanglab/qnetsim/internal/errors"
)

// HeaderSize is the size of the type and length prefix on every body.
const HeaderSize = 5

// Codec serializes, signs, and verifies control messages.
type Codec struct{}

// NewCodec creates a new message codec.
func NewCodec() *Codec {
	return &Codec{}
}

func header(mt MessageType, payloadSize int) []byte {
	buf := make([]byte, HeaderSize, HeaderSize+payloadSize)
	buf[0] = byte(mt)
	binary.BigEndian.PutUint32(buf[1:], uint32(payloadSize))
	return buf
}

func checkHeader(data []byte, mt MessageType) ([]byte, error) {
	if len(data) < HeaderSize {
		return nil, qerrors.ErrInvalidMessage
	}
	if MessageType(data[0]) != mt {
		return nil, qerrors.ErrInvalidMessage
	}
	payloadLen := binary.BigEndian.Uint32(data[1:5])
	if len(data) != HeaderSize+int(payloadLen) {
		return nil, qerrors.ErrInvalidMessage
	}
	return data[HeaderSize:], nil
}

// PeekType returns the message type of an encoded body.
func PeekType(data []byte) (MessageType, error) {
	if len(data) < HeaderSize {
		return 0, qerrors.ErrInvalidMessage
	}
	return MessageType(data[0]), nil
}

// EncodeBasisAnnounce serializes a BasisAnnounce message.
func (c *Codec) EncodeBasisAnnounce(m *BasisAnnounce) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	payloadSize := 4 + 4 + len(m.Bases)
	buf := header(MessageTypeBasisAnnounce, payloadSize)
	buf = binary.BigEndian.AppendUint32(buf, m.RoundID)
	buf = binary.BigEndian.AppendUint32(buf, m.Count)
	buf = append(buf, m.Bases...)
	return buf, nil
}

// DecodeBasisAnnounce deserializes a BasisAnnounce message.
func (c *Codec) DecodeBasisAnnounce(data []byte) (*BasisAnnounce, error) {
	payload, err := checkHeader(data, MessageTypeBasisAnnounce)
	if err != nil {
		return nil, err
	}
	if len(payload) < 8 {
		return nil, qerrors.ErrInvalidMessage
	}

	m := &BasisAnnounce{
		RoundID: binary.BigEndian.Uint32(payload[0:4]),
		Count:   binary.BigEndian.Uint32(payload[4:8]),
		Bases:   append([]byte(nil), payload[8:]...),
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// EncodeSampleReveal serializes a SampleReveal message.
func (c *Codec) EncodeSampleReveal(m *SampleReveal) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	payloadSize := 4 + 4 + 4*len(m.Indices) + len(m.Bits)
	buf := header(MessageTypeSampleReveal, payloadSize)
	buf = binary.BigEndian.AppendUint32(buf, m.RoundID)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(m.Indices)))
	for _, idx := range m.Indices {
		buf = binary.BigEndian.AppendUint32(buf, idx)
	}
	buf = append(buf, m.Bits...)
	return buf, nil
}

// DecodeSampleReveal deserializes a SampleReveal message.
func (c *Codec) DecodeSampleReveal(data []byte) (*SampleReveal, error) {
	payload, err := checkHeader(data, MessageTypeSampleReveal)
	if err != nil {
		return nil, err
	}
	if len(payload) < 8 {
		return nil, qerrors.ErrInvalidMessage
	}

	roundID := binary.BigEndian.Uint32(payload[0:4])
	count := int(binary.BigEndian.Uint32(payload[4:8]))
	if len(payload) != 8+4*count+count {
		return nil, qerrors.ErrInvalidMessage
	}

	m := &SampleReveal{
		RoundID: roundID,
		Indices: make([]uint32, count),
		Bits:    append([]byte(nil), payload[8+4*count:]...),
	}
	for i := 0; i < count; i++ {
		m.Indices[i] = binary.BigEndian.Uint32(payload[8+4*i:])
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// EncodeQBERReport serializes a QBERReport message.
func (c *Codec) EncodeQBERReport(m *QBERReport) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	buf := header(MessageTypeQBERReport, 4+8+1)
	buf = binary.BigEndian.AppendUint32(buf, m.RoundID)
	buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(m.QBER))
	if m.Accepted {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	return buf, nil
}

// DecodeQBERReport deserializes a QBERReport message.
func (c *Codec) DecodeQBERReport(data []byte) (*QBERReport, error) {
	payload, err := checkHeader(data, MessageTypeQBERReport)
	if err != nil {
		return nil, err
	}
	if len(payload) != 13 {
		return nil, qerrors.ErrInvalidMessage
	}

	m := &QBERReport{
		RoundID:  binary.BigEndian.Uint32(payload[0:4]),
		QBER:     math.Float64frombits(binary.BigEndian.Uint64(payload[4:12])),
		Accepted: payload[12] == 1,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// EncodeCorrection serializes a Correction message.
func (c *Codec) EncodeCorrection(m *Correction) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	buf := header(MessageTypeCorrection, 4+2)
	buf = binary.BigEndian.AppendUint32(buf, m.RoundID)
	buf = append(buf, m.XBit, m.ZBit)
	return buf, nil
}

// DecodeCorrection deserializes a Correction message.
func (c *Codec) DecodeCorrection(data []byte) (*Correction, error) {
	payload, err := checkHeader(data, MessageTypeCorrection)
	if err != nil {
		return nil, err
	}
	if len(payload) != 6 {
		return nil, qerrors.ErrInvalidMessage
	}

	m := &Correction{
		RoundID: binary.BigEndian.Uint32(payload[0:4]),
		XBit:    payload[4],
		ZBit:    payload[5],
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// EncodeAbort serializes an Abort message.
func (c *Codec) EncodeAbort(m *Abort) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	buf := header(MessageTypeAbort, 5)
	buf = binary.BigEndian.AppendUint32(buf, m.RoundID)
	buf = append(buf, byte(m.Reason))
	return buf, nil
}

// DecodeAbort deserializes an Abort message.
func (c *Codec) DecodeAbort(data []byte) (*Abort, error) {
	payload, err := checkHeader(data, MessageTypeAbort)
	if err != nil {
		return nil, err
	}
	if len(payload) != 5 {
		return nil, qerrors.ErrInvalidMessage
	}

	m := &Abort{
		RoundID: binary.BigEndian.Uint32(payload[0:4]),
		Reason:  AbortReason(payload[4]),
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Keypair is a node's long-lived classical signing identity.
type Keypair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// GenerateKeypair creates a fresh Ed25519 signing identity.
func GenerateKeypair() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, qerrors.NewProtocolError("GenerateKeypair", err)
	}
	return &Keypair{Public: pub, Private: priv}, nil
}

// signingInput builds the domain-separated byte string covered by the
// envelope signature.
func signingInput(sender string, body []byte) []byte {
	input := make([]byte, 0, len(constants.DomainSeparatorAuth)+1+len(sender)+len(body))
	input = append(input, constants.DomainSeparatorAuth...)
	input = append(input, byte(len(sender)))
	input = append(input, sender...)
	input = append(input, body...)
	return input
}

// Seal wraps an encoded body in a signed envelope attributable to sender.
func (c *Codec) Seal(sender string, body []byte, key *Keypair) ([]byte, error) {
	if sender == "" || len(sender) > 255 || len(body) < HeaderSize {
		return nil, qerrors.NewProtocolError("Seal", qerrors.ErrInvalidMessage)
	}

	sig := ed25519.Sign(key.Private, signingInput(sender, body))

	buf := make([]byte, 0, 1+len(sender)+len(body)+ed25519.SignatureSize)
	buf = append(buf, byte(len(sender)))
	buf = append(buf, sender...)
	buf = append(buf, body...)
	buf = append(buf, sig...)
	return buf, nil
}

// Open verifies a signed envelope against the sender's public key and
// returns the sender id and the encoded body. A bad signature is an
// authentication error; the body is not returned.
func (c *Codec) Open(envelope []byte, lookup func(sender string) (ed25519.PublicKey, bool)) (string, []byte, error) {
	if len(envelope) < 1+1+HeaderSize+ed25519.SignatureSize {
		return "", nil, qerrors.NewProtocolError("Open", qerrors.ErrInvalidMessage)
	}

	senderLen := int(envelope[0])
	if len(envelope) < 1+senderLen+HeaderSize+ed25519.SignatureSize {
		return "", nil, qerrors.NewProtocolError("Open", qerrors.ErrInvalidMessage)
	}
	sender := string(envelope[1 : 1+senderLen])
	body := envelope[1+senderLen : len(envelope)-ed25519.SignatureSize]
	sig := envelope[len(envelope)-ed25519.SignatureSize:]

	pub, ok := lookup(sender)
	if !ok {
		return "", nil, qerrors.NewProtocolError("Open", qerrors.ErrAuthFailed)
	}
	if !ed25519.Verify(pub, signingInput(sender, body), sig) {
		return "", nil, qerrors.NewProtocolError("Open", qerrors.ErrAuthFailed)
	}
	return sender, append([]byte(nil), body...), nil
}
