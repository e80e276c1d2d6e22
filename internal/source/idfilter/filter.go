// Package idfilter drops frames outside an identifier allow-list before
// decoding, using a classic BPF program run in the x/net/bpf virtual machine.
package idfilter

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/net/bpf"

	"firestige.xyz/canframe/internal/core"
	"firestige.xyz/canframe/internal/core/decoder"
	"firestige.xyz/canframe/internal/source"
)

// MaxIdentifiers bounds the allow-list; each entry is one conditional jump
// and jump offsets are 8 bits wide.
const MaxIdentifiers = 200

const acceptLen = 262144

// Program assembles a filter accepting frames whose masked identifier is in
// ids. Frames too short to carry an identifier are accepted so the decoder
// can report them.
func Program(layout decoder.Layout, ids []uint32) ([]bpf.Instruction, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: identifier filter is empty", core.ErrConfigInvalid)
	}
	if len(ids) > MaxIdentifiers {
		return nil, fmt.Errorf("%w: identifier filter allows at most %d identifiers, got %d",
			core.ErrConfigInvalid, MaxIdentifiers, len(ids))
	}

	n := layout.IDBytes
	if n == 0 {
		n = decoder.DefaultLayout.IDBytes
	}
	little := layout.Order == decoder.LittleEndian

	prog := []bpf.Instruction{
		bpf.LoadExtension{Num: bpf.ExtLen},
		bpf.JumpIf{Cond: bpf.JumpLessThan, Val: uint32(n)}, // patched to accept
	}
	jumps := []int{1}

	// Accumulate the identifier bytes in wire order
	for i := 0; i < n; i++ {
		if i == 0 {
			prog = append(prog, bpf.LoadAbsolute{Off: 0, Size: 1})
			continue
		}
		prog = append(prog,
			bpf.ALUOpConstant{Op: bpf.ALUOpShiftLeft, Val: 8},
			bpf.TAX{},
			bpf.LoadAbsolute{Off: uint32(i), Size: 1},
			bpf.ALUOpX{Op: bpf.ALUOpOr},
		)
	}
	if layout.IDMask != 0 {
		mask := layout.IDMask
		if little {
			mask = swap(mask, n)
		}
		prog = append(prog, bpf.ALUOpConstant{Op: bpf.ALUOpAnd, Val: mask})
	}
	for _, id := range ids {
		v := id
		if layout.IDMask != 0 {
			v &= layout.IDMask
		}
		if little {
			v = swap(v, n)
		}
		jumps = append(jumps, len(prog))
		prog = append(prog, bpf.JumpIf{Cond: bpf.JumpEqual, Val: v})
	}
	prog = append(prog, bpf.RetConstant{Val: 0}, bpf.RetConstant{Val: acceptLen})

	accept := len(prog) - 1
	for _, at := range jumps {
		j := prog[at].(bpf.JumpIf)
		j.SkipTrue = uint8(accept - at - 1)
		prog[at] = j
	}
	return prog, nil
}

// swap reverses the low n bytes of v.
func swap(v uint32, n int) uint32 {
	var out uint32
	for i := 0; i < n; i++ {
		out = out<<8 | (v>>(8*i))&0xFF
	}
	return out
}

// Source passes through the frames a BPF program accepts.
type Source struct {
	src     source.Source
	vm      *bpf.VM
	dropped atomic.Uint64
}

// New wraps src with prog.
func New(src source.Source, prog []bpf.Instruction) (*Source, error) {
	vm, err := bpf.NewVM(prog)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid filter program: %v", core.ErrConfigInvalid, err)
	}
	return &Source{src: src, vm: vm}, nil
}

// Next returns the next accepted frame.
func (s *Source) Next(ctx context.Context) (core.RawFrame, error) {
	for {
		frame, err := s.src.Next(ctx)
		if err != nil {
			return frame, err
		}
		n, err := s.vm.Run(frame.Data)
		if err != nil {
			return core.RawFrame{}, fmt.Errorf("%s: filter: %w", frame.Source, err)
		}
		if n > 0 {
			return frame, nil
		}
		s.dropped.Add(1)
	}
}

// Dropped returns how many frames the filter rejected.
func (s *Source) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *Source) Close() error {
	return s.src.Close()
}
