package decoder

import (
	"fmt"
	"strings"

	"firestige.xyz/canframe/internal/core"
)

// ByteOrder selects how identifier bytes are combined.
type ByteOrder int

const (
	BigEndian ByteOrder = iota
	LittleEndian
)

func (o ByteOrder) String() string {
	if o == LittleEndian {
		return "little"
	}
	return "big"
}

// ParseByteOrder accepts "big"/"be" and "little"/"le". Empty means big-endian.
func ParseByteOrder(s string) (ByteOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "big", "be", "big-endian":
		return BigEndian, nil
	case "little", "le", "little-endian":
		return LittleEndian, nil
	default:
		return BigEndian, fmt.Errorf("%w: unknown byte order %q", core.ErrConfigInvalid, s)
	}
}

const (
	maxIDBytes = 4

	// Classic CAN identifier masks
	standardIDMask = 0x7FF      // 11-bit, CAN 2.0A
	extendedIDMask = 0x1FFFFFFF // 29-bit, CAN 2.0B

	// Payload ceilings
	classicMaxPayload = 8
	fdMaxPayload      = 64
)

// Layout describes where the identifier sits in a frame.
// The zero value is the default layout: two big-endian identifier bytes,
// no mask and no payload ceiling.
type Layout struct {
	IDBytes    int       // Leading identifier bytes, 1..4 (0 = 2)
	Order      ByteOrder // Identifier byte order
	IDMask     uint32    // Applied to the extracted identifier (0 = keep all bits)
	MaxPayload int       // Payload ceiling in bytes (0 = unbounded)
}

// Presets.
var (
	DefaultLayout  = Layout{IDBytes: 2, Order: BigEndian}
	StandardLayout = Layout{IDBytes: 2, Order: BigEndian, IDMask: standardIDMask, MaxPayload: classicMaxPayload}
	ExtendedLayout = Layout{IDBytes: 4, Order: BigEndian, IDMask: extendedIDMask, MaxPayload: classicMaxPayload}
	FDLayout       = Layout{IDBytes: 4, Order: BigEndian, IDMask: extendedIDMask, MaxPayload: fdMaxPayload}
)

var presets = map[string]Layout{
	"default":  DefaultLayout,
	"standard": StandardLayout,
	"extended": ExtendedLayout,
	"fd":       FDLayout,
}

// Preset returns the named layout preset.
func Preset(name string) (Layout, error) {
	l, ok := presets[strings.ToLower(name)]
	if !ok {
		return Layout{}, fmt.Errorf("%w: unknown layout preset %q", core.ErrConfigInvalid, name)
	}
	return l, nil
}

// Validate reports whether the layout can be used for decoding.
func (l Layout) Validate() error {
	if l.IDBytes < 0 || l.IDBytes > maxIDBytes {
		return fmt.Errorf("%w: identifier width must be 1..%d bytes, got %d", core.ErrConfigInvalid, maxIDBytes, l.IDBytes)
	}
	if l.Order != BigEndian && l.Order != LittleEndian {
		return fmt.Errorf("%w: invalid byte order %d", core.ErrConfigInvalid, l.Order)
	}
	if l.MaxPayload < 0 {
		return fmt.Errorf("%w: max payload must not be negative, got %d", core.ErrConfigInvalid, l.MaxPayload)
	}
	return nil
}

// withDefaults fills zero fields.
func (l Layout) withDefaults() Layout {
	if l.IDBytes == 0 {
		l.IDBytes = DefaultLayout.IDBytes
	}
	return l
}

// extractID combines the first IDBytes bytes of data. len(data) must be checked by the caller.
func (l Layout) extractID(data []byte) uint32 {
	var id uint32
	if l.Order == LittleEndian {
		for i := l.IDBytes - 1; i >= 0; i-- {
			id = id<<8 | uint32(data[i])
		}
	} else {
		for i := 0; i < l.IDBytes; i++ {
			id = id<<8 | uint32(data[i])
		}
	}
	if l.IDMask != 0 {
		id &= l.IDMask
	}
	return id
}
