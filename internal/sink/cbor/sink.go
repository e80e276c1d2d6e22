// Package cbor writes decoded frames as a CBOR sequence.
package cbor

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"firestige.xyz/canframe/internal/config"
	"firestige.xyz/canframe/internal/core"
	"firestige.xyz/canframe/internal/sink"
)

const Name = "cbor"

func init() {
	sink.Register(Name, func(_ config.OutputConfig, out io.Writer) (sink.Sink, error) {
		return NewSink(out)
	})
}

// Sink encodes one CBOR data item per frame (RFC 8742 sequence).
type Sink struct {
	mu  sync.Mutex
	enc *cbor.Encoder
}

func NewSink(out io.Writer) (*Sink, error) {
	mode, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		return nil, fmt.Errorf("cbor sink: %w", err)
	}
	return &Sink{enc: mode.NewEncoder(out)}, nil
}

func (s *Sink) Write(_ context.Context, frame core.DecodedFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(sink.NewRecord(frame))
}

func (s *Sink) Close() error {
	return nil
}
