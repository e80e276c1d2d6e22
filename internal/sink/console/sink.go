// Package console prints decoded frames to a writer.
package console

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"firestige.xyz/canframe/internal/config"
	"firestige.xyz/canframe/internal/core"
	"firestige.xyz/canframe/internal/sink"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

func init() {
	fn := func(cfg config.OutputConfig, out io.Writer) (sink.Sink, error) {
		return NewSink(out, cfg.Format)
	}
	sink.Register(FormatText, fn)
	sink.Register(FormatJSON, fn)
}

// Sink writes one line per frame.
type Sink struct {
	mu     sync.Mutex
	out    io.Writer
	format string
	enc    *json.Encoder
}

func NewSink(out io.Writer, format string) (*Sink, error) {
	s := &Sink{out: out, format: format}
	switch format {
	case "", FormatText:
		s.format = FormatText
	case FormatJSON:
		s.enc = json.NewEncoder(out)
	default:
		return nil, fmt.Errorf("console sink: unsupported format %q", format)
	}
	return s, nil
}

// Write prints the frame, e.g. "0x1234 EngineSpeed [2] DE AD".
func (s *Sink) Write(_ context.Context, frame core.DecodedFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.enc != nil {
		return s.enc.Encode(sink.NewRecord(frame))
	}
	_, err := fmt.Fprintln(s.out, Line(frame))
	return err
}

func (s *Sink) Close() error {
	return nil
}

// Line renders the single-line text form.
func Line(frame core.DecodedFrame) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s [%d]", sink.FormatID(frame.Message.ID), frame.Name, len(frame.Message.Payload))
	for _, c := range frame.Message.Payload {
		fmt.Fprintf(&b, " %02X", c)
	}
	return b.String()
}
