// Package decoder turns raw frames into messages.
package decoder

import "firestige.xyz/canframe/internal/core"

// FrameDecoder decodes raw frames into messages.
type FrameDecoder interface {
	Decode(raw []byte, registry core.Registry) (core.Message, error)
}

// FrameDecoderFunc adapts a function to FrameDecoder.
type FrameDecoderFunc func(raw []byte, registry core.Registry) (core.Message, error)

func (f FrameDecoderFunc) Decode(raw []byte, registry core.Registry) (core.Message, error) {
	return f(raw, registry)
}

// Decoder decodes frames with a fixed layout. It holds no mutable state and
// is safe for concurrent use.
type Decoder struct {
	layout Layout
}

// New creates a decoder for the given layout.
func New(layout Layout) (*Decoder, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	return &Decoder{layout: layout.withDefaults()}, nil
}

// Layout returns the effective layout.
func (d *Decoder) Layout() Layout {
	return d.layout.withDefaults()
}

// Decode validates raw and resolves its identifier against registry.
//
// Checks run in this order: minimum length, identifier extraction,
// payload ceiling, registry membership. A nil registry knows no identifiers.
func (d *Decoder) Decode(raw []byte, registry core.Registry) (core.Message, error) {
	l := d.layout.withDefaults()

	if len(raw) < l.IDBytes {
		return core.Message{}, core.NewFrameTooShort(l.IDBytes, len(raw))
	}

	id := l.extractID(raw)

	n := len(raw) - l.IDBytes
	if l.MaxPayload > 0 && n > l.MaxPayload {
		return core.Message{}, core.NewPayloadTooLong(l.MaxPayload, n)
	}

	// Unknown identifiers are rejected rather than passed through unnamed
	if registry == nil {
		return core.Message{}, core.NewUnknownIdentifier(id)
	}
	if _, ok := registry.Lookup(id); !ok {
		return core.Message{}, core.NewUnknownIdentifier(id)
	}

	// Copy so the message never aliases the caller's buffer
	payload := make([]byte, n)
	copy(payload, raw[l.IDBytes:])

	return core.Message{ID: id, Payload: payload}, nil
}

var defaultDecoder = &Decoder{layout: DefaultLayout}

// Decode decodes raw with the default layout: a 16-bit big-endian identifier
// in the first two bytes followed by the payload.
func Decode(raw []byte, registry core.Registry) (core.Message, error) {
	return defaultDecoder.Decode(raw, registry)
}
