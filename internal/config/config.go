package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/accumwire/internal/logging"
	"github.com/danmuck/accumwire/internal/protocol"
	"github.com/danmuck/accumwire/internal/protocol/frame"
	"github.com/rs/zerolog"
)

// Config is the attestctl tool configuration. The codec core itself takes
// no configuration; these values only feed decode options.
type Config struct {
	Version  protocol.VersionPolicy
	Limits   protocol.Limits
	LogLevel zerolog.Level
	LogJSON  bool
	Wrapper  WrapperDefaults
}

// WrapperDefaults fill host record fields not given on the command line.
type WrapperDefaults struct {
	VAAVersion       uint8
	ConsistencyLevel uint8
	EmitterChain     uint16
}

type fileConfig struct {
	Version         string `toml:"version"`
	MaxHeaderBytes  int    `toml:"max_header_bytes"`
	MaxPayloadBytes int    `toml:"max_payload_bytes"`
	MaxRecordBytes  int    `toml:"max_record_bytes"`
	LogLevel        string `toml:"log_level"`
	LogJSON         bool   `toml:"log_json"`
	Wrapper         struct {
		VAAVersion       uint8  `toml:"vaa_version"`
		ConsistencyLevel uint8  `toml:"consistency_level"`
		EmitterChain     uint16 `toml:"emitter_chain"`
	} `toml:"wrapper"`
}

func Default() Config {
	return Config{
		Version:  frame.DefaultPolicy(),
		Limits:   protocol.DefaultLimits(),
		LogLevel: zerolog.InfoLevel,
		Wrapper:  WrapperDefaults{VAAVersion: 1, ConsistencyLevel: 1},
	}
}

// Load reads path over Default. Keys absent from the file keep defaults.
func Load(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	return apply(Default(), raw, meta)
}

// Parse is Load over in-memory TOML.
func Parse(data string) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config parse failed: %w", err)
	}
	return apply(Default(), raw, meta)
}

func apply(cfg Config, raw fileConfig, meta toml.MetaData) (Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config: unknown key %q", undecoded[0].String())
	}
	if meta.IsDefined("version") {
		p, err := protocol.ParseVersionPolicy(strings.TrimSpace(raw.Version))
		if err != nil {
			return Config{}, err
		}
		cfg.Version = p
	}
	if meta.IsDefined("max_header_bytes") {
		cfg.Limits.MaxHeaderBytes = raw.MaxHeaderBytes
	}
	if meta.IsDefined("max_payload_bytes") {
		cfg.Limits.MaxPayloadBytes = raw.MaxPayloadBytes
	}
	if meta.IsDefined("max_record_bytes") {
		cfg.Limits.MaxRecordBytes = raw.MaxRecordBytes
	}
	if meta.IsDefined("log_level") {
		lvl, ok := logging.ParseLevel(raw.LogLevel)
		if !ok {
			return Config{}, fmt.Errorf("config: invalid log_level %q", raw.LogLevel)
		}
		cfg.LogLevel = lvl
	}
	if meta.IsDefined("log_json") {
		cfg.LogJSON = raw.LogJSON
	}
	if meta.IsDefined("wrapper", "vaa_version") {
		cfg.Wrapper.VAAVersion = raw.Wrapper.VAAVersion
	}
	if meta.IsDefined("wrapper", "consistency_level") {
		cfg.Wrapper.ConsistencyLevel = raw.Wrapper.ConsistencyLevel
	}
	if meta.IsDefined("wrapper", "emitter_chain") {
		cfg.Wrapper.EmitterChain = raw.Wrapper.EmitterChain
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if cfg.Limits.MaxHeaderBytes < 1 {
		return fmt.Errorf("config: max_header_bytes must be at least 1")
	}
	if cfg.Limits.MaxPayloadBytes < 0 || cfg.Limits.MaxPayloadBytes > frame.MaxPayloadLen {
		return fmt.Errorf("config: max_payload_bytes must be within 0..%d", frame.MaxPayloadLen)
	}
	if cfg.Limits.MaxRecordBytes < 0 {
		return fmt.Errorf("config: max_record_bytes must not be negative")
	}
	return nil
}

// DecodeOptions turns the configuration into frame decode options.
func (c Config) DecodeOptions() []frame.Option {
	return []frame.Option{frame.WithPolicy(c.Version), frame.WithLimits(c.Limits)}
}
