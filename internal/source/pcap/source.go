// Package pcap reads frames from classic pcap capture files.
package pcap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"firestige.xyz/canframe/internal/core"
	"firestige.xyz/canframe/internal/core/decoder"
)

// LinkTypeCANSocketCAN is LINKTYPE_CAN_SOCKETCAN: a 4-byte big-endian
// identifier with flag bits, a length byte, three reserved bytes, then data.
const LinkTypeCANSocketCAN layers.LinkType = 227

const socketCANHeaderLen = 8

// FileSource yields every pcap record as one frame. LinkTypeRaw records are
// taken as already in the decoder's layout; SocketCAN records are reduced to
// identifier plus data.
type FileSource struct {
	path   string
	file   *os.File
	reader *pcapgo.Reader
	index  int
}

// Open opens the capture file at path.
func Open(path string) (*FileSource, error) {
	if path == "" {
		return nil, fmt.Errorf("pcap path is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pcap file %s: %w", path, err)
	}
	r, err := pcapgo.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read pcap header of %s: %w", path, err)
	}
	return &FileSource{path: path, file: f, reader: r}, nil
}

// Next returns the next record or io.EOF.
func (fs *FileSource) Next(ctx context.Context) (core.RawFrame, error) {
	if fs.reader == nil {
		return core.RawFrame{}, fmt.Errorf("pcap source %s is closed", fs.path)
	}
	if err := ctx.Err(); err != nil {
		return core.RawFrame{}, err
	}

	data, ci, err := fs.reader.ReadPacketData()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return core.RawFrame{}, io.EOF
		}
		return core.RawFrame{}, fmt.Errorf("failed to read record %d of %s: %w", fs.index+1, fs.path, err)
	}
	fs.index++

	if fs.reader.LinkType() == LinkTypeCANSocketCAN {
		data = socketCANFrame(data)
	}

	return core.RawFrame{
		Data:      data,
		Timestamp: ci.Timestamp,
		Source:    fmt.Sprintf("%s:%d", fs.path, fs.index),
	}, nil
}

// LinkType reports the link type declared in the file header.
func (fs *FileSource) LinkType() layers.LinkType {
	if fs.reader == nil {
		return layers.LinkTypeNull
	}
	return fs.reader.LinkType()
}

// CheckLayout reports whether records of this capture can be decoded with l.
func (fs *FileSource) CheckLayout(l decoder.Layout) error {
	switch lt := fs.LinkType(); lt {
	case layers.LinkTypeRaw:
		return nil
	case LinkTypeCANSocketCAN:
		if l.IDBytes != 4 || l.Order != decoder.BigEndian {
			return fmt.Errorf("%w: %s carries 4-byte big-endian identifiers, use the extended or fd layout",
				core.ErrConfigInvalid, fs.path)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s has link type %v, expected raw (%d) or socketcan (%d)",
			core.ErrConfigInvalid, fs.path, lt, layers.LinkTypeRaw, LinkTypeCANSocketCAN)
	}
}

// socketCANFrame drops the length and reserved bytes. Records shorter than
// the header are returned unchanged for the decoder to judge.
func socketCANFrame(data []byte) []byte {
	if len(data) < socketCANHeaderLen {
		return data
	}
	n := int(data[4])
	if avail := len(data) - socketCANHeaderLen; n > avail {
		n = avail
	}
	out := make([]byte, 0, 4+n)
	out = append(out, data[:4]...)
	return append(out, data[socketCANHeaderLen:socketCANHeaderLen+n]...)
}

func (fs *FileSource) Close() error {
	if fs.file == nil {
		return nil
	}
	err := fs.file.Close()
	fs.file = nil
	fs.reader = nil
	return err
}
