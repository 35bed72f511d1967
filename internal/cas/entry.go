// internal/cas/entry.go

// package cas reads and writes msx cassette images (.cas files). a .cas file
// is a sequence of blocks, each one starting with a sync marker. blocks are
// grouped into entries: binary, basic and ascii files (a named header block
// followed by data blocks) and custom blocks written by programs that drive
// the cassette port directly.
package cas

import (
	"bytes"
	"fmt"
	"go_cas_packager/internal/constants"
)

// Kind identifies the type of a tape file.
type Kind int

const (
	Binary Kind = iota // machine code loaded with BLOAD
	Ascii              // plain text, usually basic source, loaded with LOAD
	Basic              // tokenised basic loaded with CLOAD
	Custom             // anything else
)

// String returns the label used in listings.
func (k Kind) String() string {
	switch k {
	case Binary:
		return "bin"
	case Ascii:
		return "ascii"
	case Basic:
		return "basic"
	case Custom:
		return "custom"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Ext returns the file extension used when the entry is extracted. Custom
// entries have no extension, they are numbered instead.
func (k Kind) Ext() string {
	switch k {
	case Binary:
		return ".bin"
	case Ascii:
		return ".asc"
	case Basic:
		return ".bas"
	}
	return ""
}

// tag returns the header tag byte of a named kind.
func (k Kind) tag() (byte, bool) {
	switch k {
	case Binary:
		return constants.TagBinary, true
	case Ascii:
		return constants.TagAscii, true
	case Basic:
		return constants.TagBasic, true
	}
	return 0, false
}

// Addresses holds the memory layout of a binary file.
type Addresses struct {
	Start uint16 // first address loaded
	End   uint16 // last address loaded
	Exec  uint16 // entry point
}

func (a Addresses) String() string {
	return fmt.Sprintf("[0x%x,0x%x]:0x%x", a.Start, a.End, a.Exec)
}

// Entry is one file stored on tape. entries are not modified once built;
// the constructors copy the payload they are given.
type Entry struct {
	Kind Kind
	Name string // up to 6 bytes, empty for custom entries
	// Payload is the data as it is stored on tape. for ascii entries this
	// includes the EOF padding, see PadAscii; decoded ascii entries keep
	// whatever the tape held.
	Payload []byte
	Addr    *Addresses // binary only, nil otherwise
}

// NewBinary builds a binary entry. name is truncated to 6 bytes.
func NewBinary(name string, addr Addresses, payload []byte) Entry {
	n, _ := TruncateName(name)
	return Entry{Kind: Binary, Name: n, Payload: clone(payload), Addr: &addr}
}

// NewBasic builds a tokenised basic entry. the payload must not include the
// 0xFF marker msx disks put in front of basic files.
func NewBasic(name string, payload []byte) Entry {
	n, _ := TruncateName(name)
	return Entry{Kind: Basic, Name: n, Payload: clone(payload)}
}

// NewAscii builds an ascii entry from plain text, padding it with EOF bytes.
func NewAscii(name string, text []byte) Entry {
	n, _ := TruncateName(name)
	return Entry{Kind: Ascii, Name: n, Payload: PadAscii(text)}
}

// NewCustom builds an unnamed custom entry.
func NewCustom(payload []byte) Entry {
	return Entry{Kind: Custom, Payload: clone(payload)}
}

// TapeSize returns the number of payload bytes the entry occupies on tape.
func (e Entry) TapeSize() int {
	return len(e.Payload)
}

// Content returns the entry data without tape padding.
func (e Entry) Content() []byte {
	if e.Kind == Ascii {
		return StripAscii(e.Payload)
	}
	return e.Payload
}

// PadAscii returns a copy of text padded with EOF bytes up to the next
// multiple of 256. at least one EOF is always added: the bios stops loading
// at the first EOF and would wait forever for a tape without one. text after
// an EOF already present in the input is never loaded, so it is dropped.
func PadAscii(text []byte) []byte {
	text = StripAscii(text)
	out := make([]byte, len(text), len(text)+asciiPadding(len(text)))
	copy(out, text)
	for len(out) < cap(out) {
		out = append(out, constants.AsciiEOF)
	}
	return out
}

// StripAscii returns the text before the first EOF byte.
func StripAscii(payload []byte) []byte {
	if i := bytes.IndexByte(payload, constants.AsciiEOF); i >= 0 {
		return payload[:i]
	}
	return payload
}

func asciiPadding(n int) int {
	return constants.AsciiChunkSize - n%constants.AsciiChunkSize
}

// clone never returns nil so decoded and constructed entries compare equal.
func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
