package protocol

import (
	"errors"
	"fmt"
)

// Sentinels matched by errors.Is against every typed decode error below.
var (
	ErrFraming        = errors.New("protocol: framing error")
	ErrVersion        = errors.New("protocol: version error")
	ErrLengthMismatch = errors.New("protocol: length mismatch")
	ErrPayloadDecode  = errors.New("protocol: payload decode failed")
	ErrHexDecode      = errors.New("protocol: hex decode failed")
)

// FramingKind names a structural malformation.
type FramingKind uint8

const (
	BadMagic FramingKind = iota + 1
	Truncated
	TagMismatch
	UnexpectedPayloadKind
)

func (k FramingKind) String() string {
	switch k {
	case BadMagic:
		return "bad_magic"
	case Truncated:
		return "truncated"
	case TagMismatch:
		return "tag_mismatch"
	case UnexpectedPayloadKind:
		return "unexpected_payload_kind"
	default:
		return fmt.Sprintf("framing_kind(%d)", uint8(k))
	}
}

// FramingError reports bad magic, short input, a wrong tag or an unexpected
// discriminant.
type FramingError struct {
	Kind   FramingKind
	Detail string
	Err    error
}

func (e *FramingError) Error() string {
	msg := "protocol: " + e.Kind.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FramingError) Unwrap() error { return e.Err }

func (e *FramingError) Is(target error) bool { return target == ErrFraming }

// NewTruncated builds a Truncated framing error for the named field.
func NewTruncated(field string, err error) *FramingError {
	return &FramingError{Kind: Truncated, Detail: field, Err: err}
}

// IsFraming reports whether err is a FramingError of the given kind.
func IsFraming(err error, kind FramingKind) bool {
	var fe *FramingError
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	var te *TagMismatchError
	return kind == TagMismatch && errors.As(err, &te)
}

// TagMismatchError is returned when a host record does not start with the
// expected tag.
type TagMismatchError struct {
	Expected []byte
	Got      []byte
}

func (e *TagMismatchError) Error() string {
	return fmt.Sprintf("protocol: tag mismatch: expected %q got %q", e.Expected, e.Got)
}

func (e *TagMismatchError) Is(target error) bool { return target == ErrFraming }

// VersionKind names a version policy violation.
type VersionKind uint8

const (
	MajorMismatch VersionKind = iota + 1
	MinorTooOld
)

// VersionError reports a major version that is not exactly the expected one,
// or a minor version below the supported minimum.
type VersionError struct {
	Kind VersionKind
	Got  uint16
	Want uint16
}

func (e *VersionError) Error() string {
	switch e.Kind {
	case MajorMismatch:
		return fmt.Sprintf("protocol: unsupported major version %d, expected %d", e.Got, e.Want)
	case MinorTooOld:
		return fmt.Sprintf("protocol: unsupported minor version %d, expected %d or more", e.Got, e.Want)
	default:
		return fmt.Sprintf("protocol: version error kind=%d got=%d want=%d", e.Kind, e.Got, e.Want)
	}
}

func (e *VersionError) Is(target error) bool { return target == ErrVersion }

// LengthMismatchError reports a declared length that disagrees with the
// available input or exceeds a configured limit.
type LengthMismatchError struct {
	Field    string
	Declared int
	Limit    int
	Reason   string
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("protocol: %s length %d: %s (limit %d)", e.Field, e.Declared, e.Reason, e.Limit)
}

func (e *LengthMismatchError) Is(target error) bool { return target == ErrLengthMismatch }

// PayloadDecodeError wraps a failure of the component that interprets the
// opaque payload.
type PayloadDecodeError struct {
	Err error
}

func (e *PayloadDecodeError) Error() string {
	return "protocol: payload decode failed: " + e.Err.Error()
}

func (e *PayloadDecodeError) Unwrap() error { return e.Err }

func (e *PayloadDecodeError) Is(target error) bool { return target == ErrPayloadDecode }

// HexDecodeError reports text that is not exactly one hex-encoded identifier.
type HexDecodeError struct {
	Input string
	Err   error
}

func (e *HexDecodeError) Error() string {
	return fmt.Sprintf("protocol: invalid hex %q: %v", e.Input, e.Err)
}

func (e *HexDecodeError) Unwrap() error { return e.Err }

func (e *HexDecodeError) Is(target error) bool { return target == ErrHexDecode }
