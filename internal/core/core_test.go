package core

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

// Test zero values of core structs
func TestStructZeroValues(t *testing.T) {
	t.Run("Message", func(t *testing.T) {
		var msg Message
		if msg.ID != 0 {
			t.Errorf("expected ID=0, got %d", msg.ID)
		}
		if msg.Payload != nil {
			t.Errorf("expected Payload=nil, got %v", msg.Payload)
		}
	})

	t.Run("RawFrame", func(t *testing.T) {
		var raw RawFrame
		if raw.Data != nil {
			t.Errorf("expected Data=nil, got %v", raw.Data)
		}
		if !raw.Timestamp.IsZero() {
			t.Errorf("expected zero Timestamp, got %v", raw.Timestamp)
		}
	})

	t.Run("DecodedFrame", func(t *testing.T) {
		var out DecodedFrame
		if out.Name != "" {
			t.Errorf("expected empty Name, got %q", out.Name)
		}
	})
}

// Test sentinel errors
func TestSentinelErrors(t *testing.T) {
	t.Run("ErrorMessages", func(t *testing.T) {
		tests := []struct {
			err     error
			message string
		}{
			{ErrFrameTooShort, "canframe: frame too short"},
			{ErrUnknownIdentifier, "canframe: unknown identifier"},
			{ErrPayloadTooLong, "canframe: payload too long"},
			{ErrInvalidFrame, "canframe: invalid frame"},
			{ErrPipelineStopped, "canframe: pipeline stopped"},
			{ErrConfigInvalid, "canframe: invalid configuration"},
			{ErrRegistryInvalid, "canframe: invalid registry"},
		}

		for _, tt := range tests {
			if tt.err.Error() != tt.message {
				t.Errorf("expected error message %q, got %q", tt.message, tt.err.Error())
			}
		}
	})

	t.Run("ErrorWrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("registry: %w", ErrConfigInvalid)
		if !errors.Is(wrapped, ErrConfigInvalid) {
			t.Error("errors.Is failed for wrapped error")
		}
	})
}

func TestDecodeErrorKinds(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		kind     ErrorKind
		sentinel error
		message  string
	}{
		{"too short", NewFrameTooShort(2, 1), KindFrameTooShort, ErrFrameTooShort,
			"invalid frame: need at least 2 bytes for identifier, got 1"},
		{"unknown", NewUnknownIdentifier(0x1234), KindUnknownIdentifier, ErrUnknownIdentifier,
			"unknown identifier 0x1234"},
		{"too long", NewPayloadTooLong(8, 9), KindPayloadTooLong, ErrPayloadTooLong,
			"payload too long: at most 8 payload bytes allowed, got 9"},
		{"other", NewOther("reserved bit %d set", 3), KindOther, ErrInvalidFrame,
			"reserved bit 3 set"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.kind {
				t.Errorf("KindOf = %v, want %v", got, tt.kind)
			}
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.sentinel)
			}
			if tt.err.Error() != tt.message {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.message)
			}
		})
	}
}

func TestKindOfForeignErrors(t *testing.T) {
	if KindOf(nil) != KindNone {
		t.Error("expected KindNone for nil")
	}
	if KindOf(errors.New("boom")) != KindNone {
		t.Error("expected KindNone for foreign error")
	}
	wrapped := fmt.Errorf("frame 3: %w", NewUnknownIdentifier(7))
	if KindOf(wrapped) != KindUnknownIdentifier {
		t.Error("expected kind to survive wrapping")
	}
}

func TestUnknownID(t *testing.T) {
	id, ok := UnknownID(fmt.Errorf("ctx: %w", NewUnknownIdentifier(0x0567)))
	if !ok || id != 0x0567 {
		t.Errorf("UnknownID = (0x%X, %v), want (0x567, true)", id, ok)
	}
	if _, ok := UnknownID(NewFrameTooShort(2, 0)); ok {
		t.Error("UnknownID should not match a frame-too-short error")
	}
}

func TestErrorKindString(t *testing.T) {
	want := map[ErrorKind]string{
		KindNone:              "none",
		KindFrameTooShort:     "frame_too_short",
		KindUnknownIdentifier: "unknown_identifier",
		KindPayloadTooLong:    "payload_too_long",
		KindOther:             "other",
	}
	for k, s := range want {
		if k.String() != s {
			t.Errorf("%d.String() = %q, want %q", k, k.String(), s)
		}
	}
}

func TestDecodedFrameCarriesMessage(t *testing.T) {
	now := time.Now()
	out := DecodedFrame{
		Timestamp: now,
		Source:    "stdin:1",
		Message:   Message{ID: 0x1234, Payload: []byte{0xDE, 0xAD}},
		Name:      "EngineSpeed",
	}
	if out.Message.ID != 0x1234 || len(out.Message.Payload) != 2 {
		t.Errorf("unexpected message %+v", out.Message)
	}
	if out.Timestamp != now {
		t.Errorf("timestamp mismatch")
	}
}
