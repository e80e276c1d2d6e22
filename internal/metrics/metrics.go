// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesTotal counts frames pulled from sources by outcome
	FramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canframe_frames_total",
			Help: "Total number of frames processed",
		},
		[]string{"result"}, // decoded | rejected
	)

	// DecodeErrorsTotal counts rejected frames by error kind
	DecodeErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canframe_decode_errors_total",
			Help: "Total number of frames rejected by the decoder",
		},
		[]string{"kind"},
	)

	// PayloadBytes tracks payload size of decoded messages
	PayloadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "canframe_payload_bytes",
			Help:    "Payload size of decoded messages in bytes",
			Buckets: []float64{0, 1, 2, 4, 8, 12, 16, 24, 32, 48, 64},
		},
	)

	// RegistryEntries tracks the size of the active registry snapshot
	RegistryEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "canframe_registry_entries",
			Help: "Number of identifiers in the active registry",
		},
	)

	// RegistryReloadsTotal counts registry reload attempts
	RegistryReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canframe_registry_reloads_total",
			Help: "Total number of registry reload attempts",
		},
		[]string{"result"}, // ok | error
	)
)

// Result label values for FramesTotal
const (
	ResultDecoded  = "decoded"
	ResultRejected = "rejected"
)
