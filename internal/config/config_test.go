package config

import (
	"path/filepath"
	"testing"

	"github.com/danmuck/accumwire/internal/protocol"
	"github.com/rs/zerolog"
)

func TestTemplateLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attestctl.toml")
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := WriteTemplate(path, false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Version != (protocol.VersionPolicy{Major: 3, MinMinor: 0}) {
		t.Fatalf("unexpected version policy: %+v", cfg.Version)
	}
	if cfg.Limits != protocol.DefaultLimits() {
		t.Fatalf("unexpected limits: %+v", cfg.Limits)
	}
	if cfg.Wrapper.EmitterChain != 26 {
		t.Fatalf("unexpected emitter chain: %d", cfg.Wrapper.EmitterChain)
	}
}

func TestParseOverridesOnlyDefinedKeys(t *testing.T) {
	cfg, err := Parse(`
version = "3.1"
max_payload_bytes = 4096
log_level = "debug"
`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Version.MinMinor != 1 {
		t.Fatalf("unexpected min minor: %d", cfg.Version.MinMinor)
	}
	if cfg.Limits.MaxPayloadBytes != 4096 {
		t.Fatalf("unexpected payload limit: %d", cfg.Limits.MaxPayloadBytes)
	}
	if cfg.Limits.MaxHeaderBytes != protocol.DefaultLimits().MaxHeaderBytes {
		t.Fatalf("header limit should keep default")
	}
	if cfg.LogLevel != zerolog.DebugLevel {
		t.Fatalf("unexpected log level: %v", cfg.LogLevel)
	}
	if cfg.Wrapper.VAAVersion != 1 {
		t.Fatalf("wrapper defaults should survive")
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := []string{
		`version = "banana"`,
		`max_header_bytes = 0`,
		`max_payload_bytes = 70000`,
		`log_level = "loud"`,
		`unknown_key = 1`,
	}
	for _, in := range cases {
		if _, err := Parse(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestDecodeOptions(t *testing.T) {
	if got := len(Default().DecodeOptions()); got != 2 {
		t.Fatalf("expected 2 options, got %d", got)
	}
}
