// Package hexline reads one hex-encoded frame per line.
package hexline

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"firestige.xyz/canframe/internal/core"
)

const maxLineBytes = 1 << 20

// Source reads frames such as "12 34 DE AD", "1234dead" or "0x12,0x34".
// Blank lines and lines starting with '#' are skipped.
type Source struct {
	name    string
	scanner *bufio.Scanner
	closer  io.Closer
	line    int
	now     func() time.Time
}

// New reads from r. name labels frames in logs ("stdin", a file name).
// If r is an io.Closer it is closed by Close.
func New(name string, r io.Reader) *Source {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLineBytes)
	s := &Source{name: name, scanner: sc, now: time.Now}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// FromStrings builds a source over in-memory lines, e.g. command arguments.
func FromStrings(name string, lines []string) *Source {
	return New(name, strings.NewReader(strings.Join(lines, "\n")))
}

// Next returns the next frame or io.EOF.
func (s *Source) Next(ctx context.Context) (core.RawFrame, error) {
	for s.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return core.RawFrame{}, err
		}
		s.line++
		text := strings.TrimSpace(s.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		data, err := ParseHex(text)
		if err != nil {
			return core.RawFrame{}, fmt.Errorf("%s:%d: %w", s.name, s.line, err)
		}
		return core.RawFrame{
			Data:      data,
			Timestamp: s.now(),
			Source:    fmt.Sprintf("%s:%d", s.name, s.line),
		}, nil
	}
	if err := s.scanner.Err(); err != nil {
		return core.RawFrame{}, fmt.Errorf("%s: read failed: %w", s.name, err)
	}
	return core.RawFrame{}, io.EOF
}

func (s *Source) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

var separators = strings.NewReplacer(" ", "", "\t", "", ":", "", ",", "", "-", "", "0x", "", "0X", "")

// ParseHex decodes a hex byte string, ignoring common separators and 0x prefixes.
func ParseHex(s string) ([]byte, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ',' || r == ':' || r == '-'
	})
	// Separated single digits ("1 2 3") are bytes, not nibbles
	if len(fields) > 1 {
		out := make([]byte, 0, len(fields))
		for _, f := range fields {
			b, err := parseGroup(f)
			if err != nil {
				return nil, err
			}
			out = append(out, b...)
		}
		return out, nil
	}
	return parseGroup(s)
}

func parseGroup(s string) ([]byte, error) {
	s = separators.Replace(s)
	// A lone nibble is a byte ("5 67"); any other odd group is truncated
	switch {
	case len(s) == 1:
		s = "0" + s
	case len(s)%2 == 1:
		return nil, fmt.Errorf("invalid hex %q: odd number of digits", s)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", s, err)
	}
	return b, nil
}
