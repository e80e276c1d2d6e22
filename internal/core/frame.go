// Package core defines core data structures with zero external dependencies.
package core

import "time"

// RawFrame is produced by a source before decoding.
type RawFrame struct {
	Data      []byte    // Raw frame bytes, identifier first
	Timestamp time.Time // Capture or read time
	Source    string    // Origin, e.g. "stdin:12" or "trace.pcap:3"
}

// DecodedFrame is the record handed to sinks.
type DecodedFrame struct {
	Timestamp time.Time
	Source    string
	Message   Message
	Name      string // Registry name of Message.ID at decode time
}
