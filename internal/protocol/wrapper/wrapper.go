// Package wrapper implements the tagged host record that carries an
// attestation envelope as its payload.
//
// Layout: tag "msu", then the fixed MessageData fields in declaration order
// (multi-byte integers big-endian), then the payload. The payload has no
// length prefix; it runs to the end of the record because the host tracks
// the record size.
package wrapper

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/danmuck/accumwire/internal/protocol"
	"github.com/danmuck/accumwire/internal/protocol/frame"
	"github.com/danmuck/accumwire/internal/protocol/identifier"
)

// Tag prefixes every wrapped record.
var Tag = [3]byte{'m', 's', 'u'}

const (
	TagLen = len(Tag)

	// FixedLen is the size of the MessageData fields before the payload.
	FixedLen = 1 + 1 + 4 + identifier.Size + 4 + 4 + 8 + 2 + identifier.Size
)

// MessageData is the inner host record.
type MessageData struct {
	VAAVersion       uint8
	ConsistencyLevel uint8
	VAATime          uint32
	SignatureAccount identifier.Identifier
	SubmissionTime   uint32
	Nonce            uint32
	Sequence         uint64
	EmitterChain     uint16
	EmitterAddress   identifier.Identifier
	Payload          []byte
}

// Encode writes the tag, the fixed fields and the payload.
func Encode(m MessageData) []byte {
	buf := make([]byte, TagLen+FixedLen+len(m.Payload))
	copy(buf[0:TagLen], Tag[:])
	b := buf[TagLen:]
	b[0] = m.VAAVersion
	b[1] = m.ConsistencyLevel
	binary.BigEndian.PutUint32(b[2:6], m.VAATime)
	copy(b[6:38], m.SignatureAccount[:])
	binary.BigEndian.PutUint32(b[38:42], m.SubmissionTime)
	binary.BigEndian.PutUint32(b[42:46], m.Nonce)
	binary.BigEndian.PutUint64(b[46:54], m.Sequence)
	binary.BigEndian.PutUint16(b[54:56], m.EmitterChain)
	copy(b[56:88], m.EmitterAddress[:])
	copy(b[FixedLen:], m.Payload)
	return buf
}

// Decode validates the tag and parses the inner record. Everything after
// the fixed fields is the payload.
func Decode(b []byte) (MessageData, error) {
	return DecodeWithLimits(b, protocol.Limits{})
}

// DecodeWithLimits is Decode with limits.MaxRecordBytes enforced.
func DecodeWithLimits(b []byte, limits protocol.Limits) (MessageData, error) {
	if err := protocol.CheckLength("record", len(b), limits.MaxRecordBytes); err != nil {
		return MessageData{}, err
	}
	if len(b) < TagLen {
		return MessageData{}, protocol.NewTruncated(
			"tag", fmt.Errorf("have %d bytes, need %d", len(b), TagLen),
		)
	}
	if !bytes.Equal(b[:TagLen], Tag[:]) {
		return MessageData{}, &protocol.TagMismatchError{
			Expected: Tag[:],
			Got:      append([]byte(nil), b[:TagLen]...),
		}
	}
	b = b[TagLen:]
	if len(b) < FixedLen {
		return MessageData{}, protocol.NewTruncated(
			"message_data", fmt.Errorf("have %d bytes, need %d", len(b), FixedLen),
		)
	}

	m := MessageData{
		VAAVersion:       b[0],
		ConsistencyLevel: b[1],
		VAATime:          binary.BigEndian.Uint32(b[2:6]),
		SubmissionTime:   binary.BigEndian.Uint32(b[38:42]),
		Nonce:            binary.BigEndian.Uint32(b[42:46]),
		Sequence:         binary.BigEndian.Uint64(b[46:54]),
		EmitterChain:     binary.BigEndian.Uint16(b[54:56]),
	}
	copy(m.SignatureAccount[:], b[6:38])
	copy(m.EmitterAddress[:], b[56:88])
	m.Payload = append([]byte{}, b[FixedLen:]...)
	return m, nil
}

// Envelope decodes the record payload as an attestation envelope.
func (m MessageData) Envelope(opts ...frame.Option) (frame.Envelope, error) {
	return frame.DecodeBytes(m.Payload, opts...)
}

// Wrap builds a record around an attestation envelope.
func Wrap(meta MessageData, env frame.Envelope) ([]byte, error) {
	payload, err := env.Bytes()
	if err != nil {
		return nil, err
	}
	meta.Payload = payload
	return Encode(meta), nil
}
