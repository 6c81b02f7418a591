package observability

import (
	"errors"
	"sync"

	"github.com/danmuck/accumwire/internal/protocol"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	codecOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "accumwire",
			Subsystem: "codec",
			Name:      "operations_total",
			Help:      "Encode and decode operations by outcome.",
		},
		[]string{"op", "result"},
	)
	codecBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "accumwire",
			Subsystem: "codec",
			Name:      "message_bytes",
			Help:      "Size of successfully processed messages in bytes.",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 7),
		},
		[]string{"op"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(codecOps, codecBytes)
	})
}

// RecordCodec counts one operation. size is observed only on success.
func RecordCodec(op string, size int, err error) {
	RegisterMetrics()
	result := Classify(err)
	codecOps.WithLabelValues(op, result).Inc()
	if err == nil {
		codecBytes.WithLabelValues(op).Observe(float64(size))
	}
}

// WriteTextfile writes every registered metric to path in the Prometheus
// text format, for node_exporter's textfile collector.
func WriteTextfile(path string) error {
	RegisterMetrics()
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

// Classify maps a codec error onto a low-cardinality label.
func Classify(err error) string {
	if err == nil {
		return "ok"
	}
	var fe *protocol.FramingError
	switch {
	case errors.As(err, &fe):
		return fe.Kind.String()
	case protocol.IsFraming(err, protocol.TagMismatch):
		return protocol.TagMismatch.String()
	case errors.Is(err, protocol.ErrVersion):
		return "version"
	case errors.Is(err, protocol.ErrLengthMismatch):
		return "length_mismatch"
	case errors.Is(err, protocol.ErrPayloadDecode):
		return "payload_decode"
	case errors.Is(err, protocol.ErrHexDecode):
		return "hex_decode"
	default:
		return "error"
	}
}
