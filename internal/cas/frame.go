// internal/cas/frame.go
package cas

import (
	"bytes"
	"go_cas_packager/internal/constants"
)

// Role tells what a block is used for within its entry.
type Role int

const (
	RoleHeader Role = iota // named file header (tag x10 + name)
	RoleData               // data block belonging to the preceding header
	RoleCustom             // standalone custom block
)

func (r Role) String() string {
	switch r {
	case RoleHeader:
		return "header"
	case RoleData:
		return "data"
	case RoleCustom:
		return "custom"
	}
	return "unknown"
}

// Block is one framed unit of a .cas buffer.
type Block struct {
	Offset int    // offset of the sync marker within the container
	Data   []byte // bytes after the sync marker, aliasing the container buffer
	Role   Role
	Kind   Kind // kind of the entry the block belongs to
	Entry  int  // index of that entry in the decoded sequence
}

// End returns the offset one past the last byte of the block.
func (b Block) End() int {
	return b.Offset + constants.SyncMarkerSize + len(b.Data)
}

// span is a raw block before it is attached to an entry.
type span struct {
	offset int
	data   []byte
}

// Frame splits a container into its blocks and assigns each one to an entry.
// it is the single place where block boundaries are decided; Decode and the
// waveform modulator both work from its output.
func Frame(buf []byte) ([]Block, error) {
	spans, err := split(buf)
	if err != nil {
		return nil, err
	}

	blocks := make([]Block, 0, len(spans))
	entry := 0
	i := 0
	for i < len(spans) {
		s := spans[i]
		kind, isHeader := headerKind(s.data)
		if !isHeader {
			// anything that is not a file header is kept verbatim
			blocks = append(blocks, Block{Offset: s.offset, Data: s.data, Role: RoleCustom, Kind: Custom, Entry: entry})
			entry++
			i++
			continue
		}
		if len(s.data) < constants.HeaderSize {
			return nil, malformed(s.offset, "%s header holds %d bytes, need %d", kind, len(s.data), constants.HeaderSize)
		}
		blocks = append(blocks, Block{Offset: s.offset, Data: s.data, Role: RoleHeader, Kind: kind, Entry: entry})
		i++

		// collect the data blocks of this file
		taken := 0
		for i < len(spans) {
			d := spans[i]
			if _, next := headerKind(d.data); next {
				break
			}
			if kind == Binary && len(d.data) < constants.AddressSize {
				return nil, malformed(d.offset, "binary data block holds %d bytes, need %d address bytes", len(d.data), constants.AddressSize)
			}
			blocks = append(blocks, Block{Offset: d.offset, Data: d.data, Role: RoleData, Kind: kind, Entry: entry})
			taken++
			i++

			// binary and basic files have exactly one data block, ascii files
			// run until the block holding the first EOF
			if kind != Ascii || bytes.IndexByte(d.data, constants.AsciiEOF) >= 0 {
				break
			}
		}
		if taken == 0 {
			return nil, malformed(s.offset, "%s header %q is not followed by a data block", kind, decodeName(s.data[constants.TagRepeat:constants.HeaderSize]))
		}
		entry++
	}

	return blocks, nil
}

// split cuts buf at every sync marker. markers are searched at any offset so
// files written with or without 8 byte alignment are both accepted.
func split(buf []byte) ([]span, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	marker := constants.SyncMarker[:]
	if !bytes.HasPrefix(buf, marker) {
		return nil, malformed(0, "missing sync marker")
	}

	var spans []span
	pos := 0
	for {
		start := pos + len(marker)
		next := bytes.Index(buf[start:], marker)
		if next < 0 {
			spans = append(spans, span{offset: pos, data: buf[start:]})
			return spans, nil
		}
		spans = append(spans, span{offset: pos, data: buf[start : start+next]})
		pos = start + next
	}
}

// headerKind reports whether data starts like a file header: the same
// recognised tag repeated 10 times.
func headerKind(data []byte) (Kind, bool) {
	if len(data) < constants.TagRepeat {
		return Custom, false
	}
	var kind Kind
	switch data[0] {
	case constants.TagBinary:
		kind = Binary
	case constants.TagBasic:
		kind = Basic
	case constants.TagAscii:
		kind = Ascii
	default:
		return Custom, false
	}
	for _, b := range data[1:constants.TagRepeat] {
		if b != data[0] {
			return Custom, false
		}
	}
	return kind, true
}

// Name returns the file name stored in a header block, empty for other roles.
func (b Block) Name() string {
	if b.Role != RoleHeader {
		return ""
	}
	return decodeName(b.Data[constants.TagRepeat:constants.HeaderSize])
}
