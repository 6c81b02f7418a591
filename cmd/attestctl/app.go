package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/danmuck/accumwire/internal/accumulator"
	"github.com/danmuck/accumwire/internal/attestation"
	"github.com/danmuck/accumwire/internal/config"
	"github.com/danmuck/accumwire/internal/logging"
	"github.com/danmuck/accumwire/internal/observability"
	"github.com/danmuck/accumwire/internal/protocol/frame"
	"github.com/danmuck/accumwire/internal/protocol/identifier"
	"github.com/danmuck/accumwire/internal/protocol/wrapper"
	"github.com/rs/zerolog"
)

const usage = `usage: attestctl [-config path] [-metrics-out path] <command> [args]

commands:
  encode             frame an accumulator payload
  decode  HEX        decode an attestation envelope
  wrap               wrap an envelope in a host record
  unwrap  HEX        decode a host record and its envelope
  id      HEX        normalize an identifier
  build-accumulator  LEAF...  build an accumulator over leaf strings
  init-config PATH   write a config template
`

var errUsage = errors.New("usage")

type app struct {
	cfg    config.Config
	log    zerolog.Logger
	stdin  io.Reader
	stdout io.Writer
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("attestctl", flag.ContinueOnError)
	global.SetOutput(stderr)
	cfgPath := global.String("config", "", "path to TOML config")
	metricsOut := global.String("metrics-out", "", "write codec metrics to this file on exit")
	if err := global.Parse(args); err != nil {
		return 2
	}

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			fmt.Fprintf(stderr, "attestctl: %v\n", err)
			return 1
		}
		cfg = loaded
	}
	logCfg := logging.DefaultConfig(logging.ProfileRuntime)
	logCfg.Level = cfg.LogLevel
	logCfg.JSON = cfg.LogJSON
	logCfg.Out = stderr
	logging.ApplyEnvOverrides(&logCfg)

	a := &app{
		cfg:    cfg,
		log:    logging.New(logCfg).With().Str("app", "attestctl").Logger(),
		stdin:  stdin,
		stdout: stdout,
	}

	rest := global.Args()
	if len(rest) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	cmd, cmdArgs := rest[0], rest[1:]

	var err error
	switch cmd {
	case "encode":
		err = a.encode(cmdArgs)
	case "decode":
		err = a.decode(cmdArgs)
	case "wrap":
		err = a.wrap(cmdArgs)
	case "unwrap":
		err = a.unwrap(cmdArgs)
	case "id":
		err = a.id(cmdArgs)
	case "build-accumulator":
		err = a.buildAccumulator(cmdArgs)
	case "init-config":
		err = a.initConfig(cmdArgs)
	default:
		err = errUsage
	}
	if errors.Is(err, errUsage) {
		fmt.Fprint(stderr, usage)
		return 2
	}
	code := 0
	if err != nil {
		a.log.Error().
			Str("command", cmd).
			Str("result", observability.Classify(err)).
			Err(err).
			Msg("command failed")
		code = 1
	}
	if *metricsOut != "" {
		if err := observability.WriteTextfile(*metricsOut); err != nil {
			a.log.Error().Str("path", *metricsOut).Err(err).Msg("metrics export failed")
			return 1
		}
	}
	return code
}

func (a *app) encode(args []string) error {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	payloadHex := fs.String("payload", "", "payload bytes as hex")
	ring := fs.Uint64("ring", 0, "ring buffer index")
	height := fs.Uint64("height", 0, "height")
	ts := fs.Int64("ts", 0, "timestamp")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	payload, err := decodeHex(*payloadHex)
	if err != nil {
		return fmt.Errorf("payload: %w", err)
	}
	b, err := frame.Encode(payload, *ring, *height, *ts)
	observability.RecordCodec("frame_encode", len(b), err)
	if err != nil {
		return err
	}
	a.log.Debug().Int("bytes", len(b)).Uint64("height", *height).Msg("envelope encoded")
	_, err = fmt.Fprintln(a.stdout, hex.EncodeToString(b))
	return err
}

type envelopeView struct {
	Major         uint16                   `json:"majorVersion"`
	Minor         uint16                   `json:"minorVersion"`
	PayloadID     string                   `json:"payloadId"`
	HeaderTail    string                   `json:"headerTail,omitempty"`
	Payload       string                   `json:"payload"`
	RingBufferIdx string                   `json:"ringBufferIdx"`
	Height        string                   `json:"height"`
	Timestamp     int64                    `json:"timestamp"`
	Attestation   *attestation.Attestation `json:"attestation,omitempty"`
}

func newEnvelopeView(env frame.Envelope) envelopeView {
	return envelopeView{
		Major:         env.Major,
		Minor:         env.Minor,
		PayloadID:     env.PayloadID.String(),
		HeaderTail:    hex.EncodeToString(env.HeaderTail),
		Payload:       hex.EncodeToString(env.Payload),
		RingBufferIdx: fmt.Sprint(env.RingBufferIdx),
		Height:        fmt.Sprint(env.Height),
		Timestamp:     env.Timestamp,
	}
}

func (a *app) decodeEnvelope(raw []byte, interpret bool) (envelopeView, error) {
	opts := a.cfg.DecodeOptions()
	if interpret {
		opts = append(opts, frame.WithPayloadDecoder(accumulator.Decoder{}))
	}
	env, err := frame.DecodeBytes(raw, opts...)
	observability.RecordCodec("frame_decode", len(raw), err)
	if err != nil {
		return envelopeView{}, err
	}
	view := newEnvelopeView(env)
	if interpret {
		att, err := attestation.FromEnvelope(env)
		if err != nil {
			return envelopeView{}, err
		}
		view.Attestation = att
	}
	return view, nil
}

func (a *app) decode(args []string) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	interpret := fs.Bool("accumulator", false, "interpret the payload as an accumulator")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return errUsage
	}
	raw, err := a.inputHex(fs.Arg(0))
	if err != nil {
		return err
	}
	view, err := a.decodeEnvelope(raw, *interpret)
	if err != nil {
		return err
	}
	return a.writeJSON(view)
}

func (a *app) wrap(args []string) error {
	fs := flag.NewFlagSet("wrap", flag.ContinueOnError)
	envHex := fs.String("envelope", "", "envelope bytes as hex")
	sequence := fs.Uint64("sequence", 0, "sequence number")
	nonce := fs.Uint("nonce", 0, "nonce")
	vaaTime := fs.Uint("vaa-time", 0, "vaa time")
	submission := fs.Uint("submission-time", 0, "submission time")
	chain := fs.Uint("emitter-chain", uint(a.cfg.Wrapper.EmitterChain), "emitter chain id")
	emitter := fs.String("emitter", "", "emitter address identifier")
	sigAccount := fs.String("signature-account", "", "signature account identifier")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	payload, err := a.inputHex(*envHex)
	if err != nil {
		return fmt.Errorf("envelope: %w", err)
	}
	_, err = frame.DecodeBytes(payload, a.cfg.DecodeOptions()...)
	observability.RecordCodec("frame_decode", len(payload), err)
	if err != nil {
		return fmt.Errorf("envelope: %w", err)
	}
	if *chain > 0xFFFF || *nonce > 0xFFFFFFFF || *vaaTime > 0xFFFFFFFF || *submission > 0xFFFFFFFF {
		return fmt.Errorf("wrap: numeric flag out of range")
	}
	md := wrapper.MessageData{
		VAAVersion:       a.cfg.Wrapper.VAAVersion,
		ConsistencyLevel: a.cfg.Wrapper.ConsistencyLevel,
		VAATime:          uint32(*vaaTime),
		SubmissionTime:   uint32(*submission),
		Nonce:            uint32(*nonce),
		Sequence:         *sequence,
		EmitterChain:     uint16(*chain),
		Payload:          payload,
	}
	if md.EmitterAddress, err = optionalIdentifier(*emitter); err != nil {
		return fmt.Errorf("emitter: %w", err)
	}
	if md.SignatureAccount, err = optionalIdentifier(*sigAccount); err != nil {
		return fmt.Errorf("signature-account: %w", err)
	}
	b := wrapper.Encode(md)
	observability.RecordCodec("wrapper_encode", len(b), nil)
	_, err = fmt.Fprintln(a.stdout, hex.EncodeToString(b))
	return err
}

type recordView struct {
	VAAVersion       uint8        `json:"vaaVersion"`
	ConsistencyLevel uint8        `json:"consistencyLevel"`
	VAATime          uint32       `json:"vaaTime"`
	SignatureAccount string       `json:"signatureAccount"`
	SubmissionTime   uint32       `json:"submissionTime"`
	Nonce            uint32       `json:"nonce"`
	Sequence         string       `json:"sequence"`
	EmitterChain     uint16       `json:"emitterChain"`
	EmitterAddress   string       `json:"emitterAddress"`
	Envelope         envelopeView `json:"envelope"`
}

func (a *app) unwrap(args []string) error {
	fs := flag.NewFlagSet("unwrap", flag.ContinueOnError)
	interpret := fs.Bool("accumulator", false, "interpret the payload as an accumulator")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return errUsage
	}
	raw, err := a.inputHex(fs.Arg(0))
	if err != nil {
		return err
	}
	md, err := wrapper.DecodeWithLimits(raw, a.cfg.Limits)
	observability.RecordCodec("wrapper_decode", len(raw), err)
	if err != nil {
		return err
	}
	env, err := a.decodeEnvelope(md.Payload, *interpret)
	if err != nil {
		return err
	}
	return a.writeJSON(recordView{
		VAAVersion:       md.VAAVersion,
		ConsistencyLevel: md.ConsistencyLevel,
		VAATime:          md.VAATime,
		SignatureAccount: md.SignatureAccount.String(),
		SubmissionTime:   md.SubmissionTime,
		Nonce:            md.Nonce,
		Sequence:         fmt.Sprint(md.Sequence),
		EmitterChain:     md.EmitterChain,
		EmitterAddress:   md.EmitterAddress.String(),
		Envelope:         env,
	})
}

func (a *app) id(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	id, err := identifier.Parse(strings.TrimSpace(args[0]))
	observability.RecordCodec("identifier_parse", identifier.Size, err)
	if err != nil {
		return err
	}
	return a.writeJSON(map[string]string{"hex": id.Hex(), "display": id.String()})
}

func (a *app) buildAccumulator(args []string) error {
	fs := flag.NewFlagSet("build-accumulator", flag.ContinueOnError)
	ring := fs.Uint64("ring", 0, "ring buffer index; with -height and -ts also emits the envelope")
	height := fs.Uint64("height", 0, "height")
	ts := fs.Int64("ts", 0, "timestamp")
	if err := fs.Parse(args); err != nil || fs.NArg() == 0 {
		return errUsage
	}
	leaves := make([][]byte, fs.NArg())
	for i, l := range fs.Args() {
		leaves[i] = []byte(l)
	}
	acc, err := accumulator.New(leaves)
	if err != nil {
		return err
	}
	payload, err := acc.Serialize()
	if err != nil {
		return err
	}
	att := &attestation.Attestation{Accumulator: acc, RingBufferIdx: *ring, Height: *height, Timestamp: *ts}
	env, err := att.Serialize()
	observability.RecordCodec("frame_encode", len(env), err)
	if err != nil {
		return err
	}
	return a.writeJSON(map[string]any{
		"root":     acc.Root().String(),
		"leaves":   acc.LeafCount(),
		"payload":  hex.EncodeToString(payload),
		"envelope": hex.EncodeToString(env),
	})
}

func (a *app) initConfig(args []string) error {
	fs := flag.NewFlagSet("init-config", flag.ContinueOnError)
	force := fs.Bool("force", false, "overwrite an existing file")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return errUsage
	}
	return config.WriteTemplate(fs.Arg(0), *force)
}

// inputHex decodes arg, reading stdin when arg is "-".
func (a *app) inputHex(arg string) ([]byte, error) {
	if arg == "-" {
		src := a.stdin
		if limit := a.cfg.Limits.MaxRecordBytes; limit > 0 {
			src = io.LimitReader(src, int64(2*limit+2))
		}
		data, err := io.ReadAll(src)
		if err != nil {
			return nil, err
		}
		arg = string(data)
	}
	return decodeHex(arg)
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return hex.DecodeString(s)
}

func optionalIdentifier(s string) (identifier.Identifier, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return identifier.Identifier{}, nil
	}
	return identifier.Parse(s)
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
