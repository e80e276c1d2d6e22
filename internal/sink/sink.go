// Package sink defines where decoded frames go.
package sink

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"firestige.xyz/canframe/internal/core"
)

// Sink receives decoded frames.
type Sink interface {
	Write(ctx context.Context, frame core.DecodedFrame) error
	Close() error
}

// Record is the serialized form of a decoded frame shared by the
// structured sinks.
type Record struct {
	Timestamp time.Time `json:"ts" cbor:"ts"`
	Source    string    `json:"source,omitempty" cbor:"source,omitempty"`
	ID        uint32    `json:"id" cbor:"id"`
	IDHex     string    `json:"id_hex" cbor:"id_hex"`
	Name      string    `json:"name" cbor:"name"`
	Length    int       `json:"len" cbor:"len"`
	Payload   string    `json:"payload" cbor:"-"`
	Data      []byte    `json:"-" cbor:"data"`
}

// NewRecord converts a decoded frame.
func NewRecord(f core.DecodedFrame) Record {
	return Record{
		Timestamp: f.Timestamp,
		Source:    f.Source,
		ID:        f.Message.ID,
		IDHex:     FormatID(f.Message.ID),
		Name:      f.Name,
		Length:    len(f.Message.Payload),
		Payload:   strings.ToUpper(hex.EncodeToString(f.Message.Payload)),
		Data:      f.Message.Payload,
	}
}

// FormatID renders an identifier as 0x-prefixed hex, at least four digits.
func FormatID(id uint32) string {
	return fmt.Sprintf("0x%04X", id)
}
