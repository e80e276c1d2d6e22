// Package core defines sentinel errors and the decode error taxonomy.
package core

import (
	"errors"
	"fmt"
)

// Sentinel errors, matched with errors.Is.
var (
	// Frame decoding errors
	ErrFrameTooShort     = errors.New("canframe: frame too short")
	ErrUnknownIdentifier = errors.New("canframe: unknown identifier")
	ErrPayloadTooLong    = errors.New("canframe: payload too long")
	ErrInvalidFrame      = errors.New("canframe: invalid frame")

	// Pipeline errors
	ErrPipelineStopped = errors.New("canframe: pipeline stopped")

	// Configuration errors
	ErrConfigInvalid = errors.New("canframe: invalid configuration")

	// Registry errors
	ErrRegistryInvalid = errors.New("canframe: invalid registry")
)

// ErrorKind classifies a DecodeError.
type ErrorKind int

const (
	// KindNone is reported by KindOf for nil and non-decode errors.
	KindNone ErrorKind = iota
	KindFrameTooShort
	KindUnknownIdentifier
	KindPayloadTooLong
	KindOther
)

// String returns the label used in logs and metrics.
func (k ErrorKind) String() string {
	switch k {
	case KindFrameTooShort:
		return "frame_too_short"
	case KindUnknownIdentifier:
		return "unknown_identifier"
	case KindPayloadTooLong:
		return "payload_too_long"
	case KindOther:
		return "other"
	default:
		return "none"
	}
}

// DecodeError is returned for every frame that fails to decode.
// ID is only meaningful for KindUnknownIdentifier.
type DecodeError struct {
	Kind   ErrorKind
	ID     uint32
	Detail string
}

func (e *DecodeError) Error() string {
	switch e.Kind {
	case KindFrameTooShort:
		return fmt.Sprintf("invalid frame: %s", e.Detail)
	case KindUnknownIdentifier:
		return fmt.Sprintf("unknown identifier 0x%X", e.ID)
	case KindPayloadTooLong:
		return fmt.Sprintf("payload too long: %s", e.Detail)
	default:
		return e.Detail
	}
}

// Unwrap exposes the sentinel for the error kind.
func (e *DecodeError) Unwrap() error {
	switch e.Kind {
	case KindFrameTooShort:
		return ErrFrameTooShort
	case KindUnknownIdentifier:
		return ErrUnknownIdentifier
	case KindPayloadTooLong:
		return ErrPayloadTooLong
	default:
		return ErrInvalidFrame
	}
}

// Constructors.
func NewFrameTooShort(need, got int) error {
	return &DecodeError{
		Kind:   KindFrameTooShort,
		Detail: fmt.Sprintf("need at least %d bytes for identifier, got %d", need, got),
	}
}

func NewUnknownIdentifier(id uint32) error {
	return &DecodeError{Kind: KindUnknownIdentifier, ID: id}
}

func NewPayloadTooLong(max, got int) error {
	return &DecodeError{
		Kind:   KindPayloadTooLong,
		Detail: fmt.Sprintf("at most %d payload bytes allowed, got %d", max, got),
	}
}

func NewOther(format string, args ...any) error {
	return &DecodeError{Kind: KindOther, Detail: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first DecodeError in err's chain.
func KindOf(err error) ErrorKind {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindNone
}

// UnknownID returns the identifier carried by an unknown-identifier error.
func UnknownID(err error) (uint32, bool) {
	var de *DecodeError
	if errors.As(err, &de) && de.Kind == KindUnknownIdentifier {
		return de.ID, true
	}
	return 0, false
}
