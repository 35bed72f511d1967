// internal/cas/encode.go
package cas

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"go_cas_packager/internal/constants"
)

// Encode returns a new buffer holding existing followed by one framed group
// of blocks per entry, in argument order. existing is neither modified nor
// aliased, and its bytes are copied unchanged, so decoding the result yields
// the entries of existing followed by the new ones.
func Encode(existing []byte, entries ...Entry) ([]byte, error) {
	size := len(existing)
	for _, e := range entries {
		size += encodedSize(e)
	}

	out := make([]byte, len(existing), size)
	copy(out, existing)

	for i, e := range entries {
		var err error
		out, err = appendEntry(out, e)
		if err != nil {
			return nil, fmt.Errorf("encoding entry %d: %w", i, err)
		}
	}
	return out, nil
}

func appendEntry(out []byte, e Entry) ([]byte, error) {
	blocks, err := framedBlocks(e)
	if err != nil {
		return nil, err
	}

	if e.Kind != Custom {
		out = appendHeader(out, e)
	}
	for _, b := range blocks {
		out = appendBlock(out, b)
	}
	return out, nil
}

// dataBlocks returns the contents of the blocks following the header of e,
// or the single block of a custom entry.
func dataBlocks(e Entry) ([][]byte, error) {
	switch e.Kind {
	case Binary:
		if e.Addr == nil {
			return nil, fmt.Errorf("%w: binary entry %q has no addresses", ErrInvalidEntry, e.Name)
		}
		data := make([]byte, constants.AddressSize, constants.AddressSize+len(e.Payload))
		binary.LittleEndian.PutUint16(data[0:2], e.Addr.Start)
		binary.LittleEndian.PutUint16(data[2:4], e.Addr.End)
		binary.LittleEndian.PutUint16(data[4:6], e.Addr.Exec)
		return [][]byte{append(data, e.Payload...)}, nil

	case Basic, Custom:
		return [][]byte{e.Payload}, nil

	case Ascii:
		if len(e.Payload) == 0 {
			return nil, fmt.Errorf("%w: ascii entry %q has no data", ErrInvalidEntry, e.Name)
		}
		return asciiBlocks(e.Payload), nil
	}
	return nil, fmt.Errorf("%w: unknown kind %d", ErrInvalidEntry, int(e.Kind))
}

// asciiBlocks cuts an ascii payload in 256 byte blocks. the loader stops at
// the block holding the first EOF, so that block runs to the end of the
// payload.
func asciiBlocks(p []byte) [][]byte {
	eof := bytes.IndexByte(p, constants.AsciiEOF)
	var blocks [][]byte
	start := 0
	for start < len(p) {
		end := min(start+constants.AsciiChunkSize, len(p))
		if eof >= start && eof < end {
			end = len(p)
		}
		blocks = append(blocks, p[start:end])
		start = end
	}
	return blocks
}

// checkBlock rejects block contents the decoder would split or read as a
// file header.
func checkBlock(e Entry, data []byte) error {
	if bytes.Contains(data, constants.SyncMarker[:]) {
		return fmt.Errorf("%w: %s entry %q holds a sync marker", ErrInvalidEntry, e.Kind, e.Name)
	}
	if kind, ok := headerKind(data); ok {
		return fmt.Errorf("%w: %s entry %q has a block that reads as a %s header", ErrInvalidEntry, e.Kind, e.Name, kind)
	}
	return nil
}

// Validate reports whether e can be written to tape and read back as it is.
// it fails with ErrInvalidEntry where Encode would.
func (e Entry) Validate() error {
	_, err := framedBlocks(e)
	return err
}

// framedBlocks is dataBlocks with every block checked.
func framedBlocks(e Entry) ([][]byte, error) {
	blocks, err := dataBlocks(e)
	if err != nil {
		return nil, err
	}
	for _, b := range blocks {
		if err := checkBlock(e, b); err != nil {
			return nil, err
		}
	}
	return blocks, nil
}

// appendHeader writes the header block of a named entry.
func appendHeader(out []byte, e Entry) []byte {
	tag, _ := e.Kind.tag()
	var header [constants.HeaderSize]byte
	for i := 0; i < constants.TagRepeat; i++ {
		header[i] = tag
	}
	name, _ := TruncateName(e.Name)
	field := encodeName(name)
	copy(header[constants.TagRepeat:], field[:])
	return appendBlock(out, header[:])
}

// appendBlock writes a sync marker followed by the given parts.
func appendBlock(out []byte, parts ...[]byte) []byte {
	out = append(out, constants.SyncMarker[:]...)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// encodedSize is the number of bytes appendEntry adds for e. used to size the
// output buffer once.
func encodedSize(e Entry) int {
	const (
		marker = constants.SyncMarkerSize
		header = constants.SyncMarkerSize + constants.HeaderSize
	)
	switch e.Kind {
	case Binary:
		return header + marker + constants.AddressSize + len(e.Payload)
	case Basic:
		return header + marker + len(e.Payload)
	case Ascii:
		return header + len(asciiBlocks(e.Payload))*marker + len(e.Payload)
	}
	return marker + len(e.Payload)
}

// EncodeAligned is Encode for tools that expect every sync marker on an 8
// byte boundary: the last block of existing and of every new entry is
// padded with zero bytes. the padding becomes part of binary, basic and
// custom payloads when the result is decoded, including the payload of the
// last file already in existing.
func EncodeAligned(existing []byte, entries ...Entry) ([]byte, error) {
	out := align(existing)
	for i, e := range entries {
		next, err := appendEntry(out, e)
		if err != nil {
			return nil, fmt.Errorf("encoding entry %d: %w", i, err)
		}
		out = align(next)
	}
	return out, nil
}

// align returns a copy of buf padded with zeros to a multiple of 8 bytes.
func align(buf []byte) []byte {
	pad := (constants.LegacyAlign - len(buf)%constants.LegacyAlign) % constants.LegacyAlign
	out := make([]byte, len(buf)+pad)
	copy(out, buf)
	return out
}
