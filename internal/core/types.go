// Package core defines core types with zero external dependencies.
package core

// Message is one decoded protocol unit.
// It is only produced by a successful decode and is never mutated afterwards.
type Message struct {
	ID      uint32 // Bus message identifier
	Payload []byte // Bytes after the identifier, original order, owned by the caller
}

// Registry is a read-only view mapping identifiers to message names.
// Implementations must be safe for concurrent Lookup calls.
type Registry interface {
	Lookup(id uint32) (name string, ok bool)
}
