package protocol

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	cases := []struct {
		err      error
		sentinel error
	}{
		{&FramingError{Kind: BadMagic}, ErrFraming},
		{NewTruncated("payload", io.ErrUnexpectedEOF), ErrFraming},
		{&TagMismatchError{Expected: []byte("msu"), Got: []byte("abc")}, ErrFraming},
		{&VersionError{Kind: MajorMismatch, Got: 4, Want: 3}, ErrVersion},
		{&LengthMismatchError{Field: "payload", Declared: 10, Limit: 5, Reason: "exceeds limit"}, ErrLengthMismatch},
		{&PayloadDecodeError{Err: errors.New("x")}, ErrPayloadDecode},
		{&HexDecodeError{Input: "zz", Err: errors.New("x")}, ErrHexDecode},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, tc.sentinel) {
			t.Fatalf("%T: expected match with %v", tc.err, tc.sentinel)
		}
	}
}

func TestTruncatedUnwrapsCause(t *testing.T) {
	err := NewTruncated("header", io.ErrUnexpectedEOF)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected wrapped io error")
	}
	if !IsFraming(err, Truncated) || IsFraming(err, BadMagic) {
		t.Fatalf("unexpected framing classification")
	}
	if !strings.Contains(err.Error(), "truncated: header") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestVersionErrorMessages(t *testing.T) {
	major := (&VersionError{Kind: MajorMismatch, Got: 4, Want: 3}).Error()
	if !strings.Contains(major, "major version 4, expected 3") {
		t.Fatalf("unexpected message %q", major)
	}
	minor := (&VersionError{Kind: MinorTooOld, Got: 0, Want: 1}).Error()
	if !strings.Contains(minor, "expected 1 or more") {
		t.Fatalf("unexpected message %q", minor)
	}
}

func TestCheckLength(t *testing.T) {
	if err := CheckLength("payload", 10, 10); err != nil {
		t.Fatalf("equal to limit should pass: %v", err)
	}
	if err := CheckLength("payload", 10, 0); err != nil {
		t.Fatalf("zero limit disables check: %v", err)
	}
	if err := CheckLength("payload", 11, 10); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}
