// Package frame implements the versioned attestation envelope.
//
// Layout, big-endian throughout:
//
//	magic(4) major(2) minor(2) header_size(2) header[header_size]
//	payload_len(2) payload[payload_len] ring_buffer_idx(8) height(8) timestamp(8)
//
// The header region starts with payload_id. Bytes after the known header
// fields belong to newer minor versions and are skipped, never interpreted.
package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/danmuck/accumwire/internal/protocol"
)

// Magic identifies the envelope format family.
var Magic = [4]byte{'P', 'A', 'S', '2'}

const (
	MajorVersion uint16 = 3
	MinorVersion uint16 = 0

	// HeaderSize covers the known header fields of this revision: payload_id.
	// Appending a header field means bumping MinorVersion and this constant.
	HeaderSize uint16 = 1

	MaxPayloadLen = math.MaxUint16

	fixedPrefixLen = 4 + 2 + 2 + 2
	trailerLen     = 8 + 8 + 8
)

// PayloadID discriminates the message kind carried by an envelope.
type PayloadID uint8

const (
	PayloadAccumulationAttestation PayloadID = 1
)

func (p PayloadID) String() string {
	switch p {
	case PayloadAccumulationAttestation:
		return "accumulation_attestation"
	default:
		return fmt.Sprintf("payload_id(%d)", uint8(p))
	}
}

// Envelope is one decoded attestation frame. It is a plain value built per
// call; nothing is shared between calls.
type Envelope struct {
	Major      uint16
	Minor      uint16
	PayloadID  PayloadID
	HeaderTail []byte
	Payload    []byte
	// Value holds the interpreted payload when a PayloadDecoder was supplied.
	Value         any
	RingBufferIdx uint64
	Height        uint64
	Timestamp     int64
}

// New builds an envelope for the current format revision.
func New(payload []byte, ringBufferIdx, height uint64, timestamp int64) Envelope {
	return Envelope{
		Major:         MajorVersion,
		Minor:         MinorVersion,
		PayloadID:     PayloadAccumulationAttestation,
		Payload:       payload,
		RingBufferIdx: ringBufferIdx,
		Height:        height,
		Timestamp:     timestamp,
	}
}

// Encode serializes an envelope of the current revision. Payloads longer
// than MaxPayloadLen fail instead of wrapping the 16-bit length.
func Encode(payload []byte, ringBufferIdx, height uint64, timestamp int64) ([]byte, error) {
	return New(payload, ringBufferIdx, height, timestamp).Bytes()
}

// Bytes serializes e, including any HeaderTail bytes.
func (e Envelope) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(e.encodedLen())
	if err := WriteEnvelope(&buf, e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e Envelope) encodedLen() int {
	return fixedPrefixLen + 1 + len(e.HeaderTail) + 2 + len(e.Payload) + trailerLen
}

// WriteEnvelope writes e to w verbatim: versions and header tail are taken
// from e, header_size is derived from the tail.
func WriteEnvelope(w io.Writer, e Envelope) error {
	headerLen := 1 + len(e.HeaderTail)
	if headerLen > math.MaxUint16 {
		return &protocol.LengthMismatchError{
			Field: "header", Declared: headerLen, Limit: math.MaxUint16, Reason: "does not fit u16",
		}
	}
	if len(e.Payload) > MaxPayloadLen {
		return &protocol.LengthMismatchError{
			Field: "payload", Declared: len(e.Payload), Limit: MaxPayloadLen, Reason: "does not fit u16",
		}
	}

	head := make([]byte, fixedPrefixLen+1)
	copy(head[0:4], Magic[:])
	binary.BigEndian.PutUint16(head[4:6], e.Major)
	binary.BigEndian.PutUint16(head[6:8], e.Minor)
	binary.BigEndian.PutUint16(head[8:10], uint16(headerLen))
	head[10] = byte(e.PayloadID)
	if _, err := w.Write(head); err != nil {
		return err
	}
	if len(e.HeaderTail) > 0 {
		if _, err := w.Write(e.HeaderTail); err != nil {
			return err
		}
	}

	var plen [2]byte
	binary.BigEndian.PutUint16(plen[:], uint16(len(e.Payload)))
	if _, err := w.Write(plen[:]); err != nil {
		return err
	}
	if len(e.Payload) > 0 {
		if _, err := w.Write(e.Payload); err != nil {
			return err
		}
	}

	var trailer [trailerLen]byte
	binary.BigEndian.PutUint64(trailer[0:8], e.RingBufferIdx)
	binary.BigEndian.PutUint64(trailer[8:16], e.Height)
	binary.BigEndian.PutUint64(trailer[16:24], uint64(e.Timestamp))
	_, err := w.Write(trailer[:])
	return err
}

// Decode reads one envelope from r. The parse is single pass and fail fast;
// on error the zero Envelope is returned.
func Decode(r io.Reader, opts ...Option) (Envelope, error) {
	d := newDecoder(opts)

	var magic [4]byte
	if err := readFull(r, magic[:], "magic"); err != nil {
		return Envelope{}, err
	}
	if magic != Magic {
		return Envelope{}, &protocol.FramingError{
			Kind:   protocol.BadMagic,
			Detail: fmt.Sprintf("got % X, expected % X", magic[:], Magic[:]),
		}
	}

	major, err := readUint16(r, "major_version")
	if err != nil {
		return Envelope{}, err
	}
	if err := d.policy.CheckMajor(major); err != nil {
		return Envelope{}, err
	}
	minor, err := readUint16(r, "minor_version")
	if err != nil {
		return Envelope{}, err
	}
	if err := d.policy.CheckMinor(minor); err != nil {
		return Envelope{}, err
	}

	headerLen, err := readUint16(r, "header_size")
	if err != nil {
		return Envelope{}, err
	}
	if headerLen < 1 {
		return Envelope{}, &protocol.LengthMismatchError{
			Field: "header", Declared: int(headerLen), Limit: 1, Reason: "smaller than payload_id",
		}
	}
	if err := protocol.CheckLength("header", int(headerLen), d.limits.MaxHeaderBytes); err != nil {
		return Envelope{}, err
	}
	header := make([]byte, headerLen)
	if err := readFull(r, header, "header"); err != nil {
		return Envelope{}, err
	}

	payloadID := PayloadID(header[0])
	if payloadID != d.payloadID {
		return Envelope{}, &protocol.FramingError{
			Kind:   protocol.UnexpectedPayloadKind,
			Detail: fmt.Sprintf("got %s, expected %s", payloadID, d.payloadID),
		}
	}
	var tail []byte
	if len(header) > 1 {
		tail = header[1:]
	}

	payloadLen, err := readUint16(r, "payload_len")
	if err != nil {
		return Envelope{}, err
	}
	if err := protocol.CheckLength("payload", int(payloadLen), d.limits.MaxPayloadBytes); err != nil {
		return Envelope{}, err
	}
	payload := make([]byte, payloadLen)
	if err := readFull(r, payload, "payload"); err != nil {
		return Envelope{}, err
	}

	var value any
	if d.payload != nil {
		value, err = d.payload.DecodePayload(payload)
		if err != nil {
			return Envelope{}, &protocol.PayloadDecodeError{Err: err}
		}
	}

	var trailer [trailerLen]byte
	if err := readFull(r, trailer[:], "trailer"); err != nil {
		return Envelope{}, err
	}

	return Envelope{
		Major:         major,
		Minor:         minor,
		PayloadID:     payloadID,
		HeaderTail:    tail,
		Payload:       payload,
		Value:         value,
		RingBufferIdx: binary.BigEndian.Uint64(trailer[0:8]),
		Height:        binary.BigEndian.Uint64(trailer[8:16]),
		Timestamp:     int64(binary.BigEndian.Uint64(trailer[16:24])),
	}, nil
}

// DecodeBytes decodes a complete buffer. Bytes left after the timestamp are
// a length mismatch.
func DecodeBytes(b []byte, opts ...Option) (Envelope, error) {
	r := bytes.NewReader(b)
	env, err := Decode(r, opts...)
	if err != nil {
		return Envelope{}, err
	}
	if r.Len() != 0 {
		return Envelope{}, &protocol.LengthMismatchError{
			Field: "envelope", Declared: len(b) - r.Len(), Limit: len(b), Reason: "trailing bytes after timestamp",
		}
	}
	return env, nil
}

func readFull(r io.Reader, buf []byte, field string) error {
	if len(buf) == 0 {
		return nil
	}
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return protocol.NewTruncated(field, err)
		}
		return err
	}
	return nil
}

func readUint16(r io.Reader, field string) (uint16, error) {
	var b [2]byte
	if err := readFull(r, b[:], field); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}
