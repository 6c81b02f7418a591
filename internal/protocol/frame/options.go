package frame

import "github.com/danmuck/accumwire/internal/protocol"

// PayloadDecoder interprets the opaque payload region. The frame codec only
// bounds the payload; its content belongs to the implementation.
type PayloadDecoder interface {
	DecodePayload(payload []byte) (any, error)
}

// PayloadDecoderFunc adapts a function to PayloadDecoder.
type PayloadDecoderFunc func(payload []byte) (any, error)

func (f PayloadDecoderFunc) DecodePayload(payload []byte) (any, error) {
	return f(payload)
}

// Option configures a single Decode call.
type Option func(*decoder)

type decoder struct {
	policy    protocol.VersionPolicy
	limits    protocol.Limits
	payloadID PayloadID
	payload   PayloadDecoder
}

// DefaultPolicy accepts the current major and any minor at or above the
// current one.
func DefaultPolicy() protocol.VersionPolicy {
	return protocol.VersionPolicy{Major: MajorVersion, MinMinor: MinorVersion}
}

func newDecoder(opts []Option) decoder {
	d := decoder{
		policy:    DefaultPolicy(),
		limits:    protocol.DefaultLimits(),
		payloadID: PayloadAccumulationAttestation,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&d)
		}
	}
	return d
}

func WithPolicy(p protocol.VersionPolicy) Option {
	return func(d *decoder) { d.policy = p }
}

func WithLimits(l protocol.Limits) Option {
	return func(d *decoder) { d.limits = l }
}

// WithPayloadID changes the expected discriminant.
func WithPayloadID(id PayloadID) Option {
	return func(d *decoder) { d.payloadID = id }
}

// WithPayloadDecoder makes Decode interpret the payload and store the result
// in Envelope.Value.
func WithPayloadDecoder(p PayloadDecoder) Option {
	return func(d *decoder) { d.payload = p }
}
