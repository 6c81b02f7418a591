package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/danmuck/accumwire/internal/protocol"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genPayload() gopter.Gen {
	return gen.SliceOf(gen.UInt8()).SuchThat(func(b []uint8) bool {
		return len(b) <= MaxPayloadLen
	})
}

func TestFramePropertyRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("decode(encode(x)) == x", prop.ForAll(
		func(payload []byte, ring, height uint64, ts int64) bool {
			b, err := Encode(payload, ring, height, ts)
			if err != nil {
				return false
			}
			env, err := DecodeBytes(b)
			if err != nil {
				return false
			}
			return bytes.Equal(env.Payload, payload) &&
				env.RingBufferIdx == ring &&
				env.Height == height &&
				env.Timestamp == ts
		},
		genPayload(),
		gen.UInt64(),
		gen.UInt64(),
		gen.Int64(),
	))

	properties.Property("any bit flip in magic fails with a framing error", prop.ForAll(
		func(payload []byte, bit int) bool {
			b, err := Encode(payload, 1, 2, 3)
			if err != nil {
				return false
			}
			b[bit/8] ^= 1 << (bit % 8)
			_, err = DecodeBytes(b)
			return protocol.IsFraming(err, protocol.BadMagic)
		},
		genPayload(),
		gen.IntRange(0, 31),
	))

	properties.Property("any other major fails with a version error", prop.ForAll(
		func(payload []byte, major uint16) bool {
			if major == MajorVersion {
				return true
			}
			b, err := Encode(payload, 1, 2, 3)
			if err != nil {
				return false
			}
			binary.BigEndian.PutUint16(b[4:6], major)
			_, err = DecodeBytes(b)
			var ve *protocol.VersionError
			return errors.As(err, &ve) && ve.Kind == protocol.MajorMismatch
		},
		genPayload(),
		gen.UInt16(),
	))

	properties.Property("minor at or above the floor decodes, with any header tail", prop.ForAll(
		func(minor uint16, tail []byte, payload []byte) bool {
			in := New(payload, 5, 6, 7)
			in.Minor = minor
			in.HeaderTail = tail
			b, err := in.Bytes()
			if err != nil {
				return false
			}
			policy := protocol.VersionPolicy{Major: MajorVersion, MinMinor: 2}
			out, err := DecodeBytes(b, WithPolicy(policy))
			if minor < 2 {
				var ve *protocol.VersionError
				return errors.As(err, &ve) && ve.Kind == protocol.MinorTooOld
			}
			return err == nil &&
				bytes.Equal(out.Payload, payload) &&
				out.RingBufferIdx == 5 && out.Height == 6 && out.Timestamp == 7
		},
		gen.UInt16(),
		gen.SliceOf(gen.UInt8()),
		genPayload(),
	))

	properties.Property("dropping the last byte never yields a partial envelope", prop.ForAll(
		func(payload []byte) bool {
			b, err := Encode(payload, 1, 2, 3)
			if err != nil {
				return false
			}
			env, err := DecodeBytes(b[:len(b)-1])
			return protocol.IsFraming(err, protocol.Truncated) && env.Payload == nil
		},
		genPayload(),
	))

	properties.TestingRun(t)
}
