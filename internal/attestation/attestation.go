// Package attestation pairs an accumulator with its provenance metadata and
// moves it through the attestation envelope.
package attestation

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/danmuck/accumwire/internal/accumulator"
	"github.com/danmuck/accumwire/internal/protocol/frame"
)

// Attestation is the typed view of one envelope. Timestamp is signed and
// its unit is chosen by the producer.
type Attestation struct {
	Accumulator   *accumulator.Accumulator
	RingBufferIdx uint64
	Height        uint64
	Timestamp     int64
}

// Serialize encodes the accumulator and frames it.
func (a *Attestation) Serialize() ([]byte, error) {
	if a.Accumulator == nil {
		return nil, fmt.Errorf("attestation: nil accumulator")
	}
	payload, err := a.Accumulator.Serialize()
	if err != nil {
		return nil, err
	}
	return frame.Encode(payload, a.RingBufferIdx, a.Height, a.Timestamp)
}

// Deserialize reads one envelope from r and interprets its payload as an
// accumulator. Extra options are applied after the accumulator decoder.
func Deserialize(r io.Reader, opts ...frame.Option) (*Attestation, error) {
	all := append([]frame.Option{frame.WithPayloadDecoder(accumulator.Decoder{})}, opts...)
	env, err := frame.Decode(r, all...)
	if err != nil {
		return nil, err
	}
	return FromEnvelope(env)
}

// DeserializeBytes is Deserialize over a complete buffer; trailing bytes fail.
func DeserializeBytes(b []byte, opts ...frame.Option) (*Attestation, error) {
	all := append([]frame.Option{frame.WithPayloadDecoder(accumulator.Decoder{})}, opts...)
	env, err := frame.DecodeBytes(b, all...)
	if err != nil {
		return nil, err
	}
	return FromEnvelope(env)
}

// FromEnvelope builds an Attestation from an envelope decoded with
// accumulator.Decoder.
func FromEnvelope(env frame.Envelope) (*Attestation, error) {
	acc, ok := env.Value.(*accumulator.Accumulator)
	if !ok {
		if env.Value != nil {
			return nil, fmt.Errorf("attestation: payload decoded as %T, want accumulator", env.Value)
		}
		var err error
		acc, err = accumulator.Deserialize(env.Payload)
		if err != nil {
			return nil, err
		}
	}
	return &Attestation{
		Accumulator:   acc,
		RingBufferIdx: env.RingBufferIdx,
		Height:        env.Height,
		Timestamp:     env.Timestamp,
	}, nil
}

// Equal compares accumulators by leaf set and metadata by value.
func (a *Attestation) Equal(other *Attestation) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.Accumulator.Equal(other.Accumulator) &&
		a.RingBufferIdx == other.RingBufferIdx &&
		a.Height == other.Height &&
		a.Timestamp == other.Timestamp
}

type jsonAttestation struct {
	AccumulatorRoot string   `json:"accumulatorRoot"`
	LeafCount       int      `json:"leafCount"`
	LeafHashes      []string `json:"leafHashes"`
	RingBufferIdx   string   `json:"ringBufferIdx"`
	Height          string   `json:"height"`
	Timestamp       int64    `json:"timestamp"`
}

// MarshalJSON renders camelCase keys with the 64-bit unsigned counters as
// decimal strings so they survive JavaScript number precision.
func (a *Attestation) MarshalJSON() ([]byte, error) {
	if a.Accumulator == nil {
		return nil, fmt.Errorf("attestation: nil accumulator")
	}
	leafHashes := a.Accumulator.LeafHashes()
	out := jsonAttestation{
		AccumulatorRoot: a.Accumulator.Root().String(),
		LeafCount:       len(leafHashes),
		LeafHashes:      make([]string, len(leafHashes)),
		RingBufferIdx:   strconv.FormatUint(a.RingBufferIdx, 10),
		Height:          strconv.FormatUint(a.Height, 10),
		Timestamp:       a.Timestamp,
	}
	for i, h := range leafHashes {
		out.LeafHashes[i] = h.String()
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts MarshalJSON output and rebuilds the accumulator from
// leafHashes, rejecting a root that disagrees.
func (a *Attestation) UnmarshalJSON(data []byte) error {
	var in jsonAttestation
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	ring, err := strconv.ParseUint(in.RingBufferIdx, 10, 64)
	if err != nil {
		return fmt.Errorf("attestation: ringBufferIdx: %w", err)
	}
	height, err := strconv.ParseUint(in.Height, 10, 64)
	if err != nil {
		return fmt.Errorf("attestation: height: %w", err)
	}
	hashes := make([]accumulator.Hash, len(in.LeafHashes))
	for i, s := range in.LeafHashes {
		h, err := accumulator.ParseHash(s)
		if err != nil {
			return fmt.Errorf("attestation: leafHashes[%d]: %w", i, err)
		}
		hashes[i] = h
	}
	acc, err := accumulator.FromLeafHashes(hashes)
	if err != nil {
		return err
	}
	if in.AccumulatorRoot != "" && in.AccumulatorRoot != acc.Root().String() {
		return fmt.Errorf("%w: stored %s, computed %s", accumulator.ErrRootMismatch, in.AccumulatorRoot, acc.Root())
	}
	*a = Attestation{Accumulator: acc, RingBufferIdx: ring, Height: height, Timestamp: in.Timestamp}
	return nil
}
