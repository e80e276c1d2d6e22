package pipeline

import (
	"fmt"
	"sync/atomic"

	"firestige.xyz/canframe/internal/core"
)

// Metrics contains per-run counters. Process-wide Prometheus counters are
// updated alongside in internal/metrics.
type Metrics struct {
	Frames         atomic.Uint64
	Decoded        atomic.Uint64
	TooShort       atomic.Uint64
	Unknown        atomic.Uint64
	PayloadTooLong atomic.Uint64
	Other          atomic.Uint64
	SinkErrors     atomic.Uint64
}

func (m *Metrics) recordError(kind core.ErrorKind) {
	switch kind {
	case core.KindFrameTooShort:
		m.TooShort.Add(1)
	case core.KindUnknownIdentifier:
		m.Unknown.Add(1)
	case core.KindPayloadTooLong:
		m.PayloadTooLong.Add(1)
	default:
		m.Other.Add(1)
	}
}

func (m *Metrics) snapshot() Stats {
	return Stats{
		Frames:         m.Frames.Load(),
		Decoded:        m.Decoded.Load(),
		TooShort:       m.TooShort.Load(),
		Unknown:        m.Unknown.Load(),
		PayloadTooLong: m.PayloadTooLong.Load(),
		Other:          m.Other.Load(),
		SinkErrors:     m.SinkErrors.Load(),
	}
}

// Stats represents run statistics.
type Stats struct {
	Frames         uint64
	Decoded        uint64
	TooShort       uint64
	Unknown        uint64
	PayloadTooLong uint64
	Other          uint64
	SinkErrors     uint64
}

// Errors is the number of rejected frames.
func (s Stats) Errors() uint64 {
	return s.TooShort + s.Unknown + s.PayloadTooLong + s.Other
}

// String renders the one-line run summary.
func (s Stats) String() string {
	return fmt.Sprintf("frames=%d decoded=%d rejected=%d (too_short=%d unknown=%d payload_too_long=%d other=%d)",
		s.Frames, s.Decoded, s.Errors(), s.TooShort, s.Unknown, s.PayloadTooLong, s.Other)
}
