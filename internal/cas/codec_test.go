package cas

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math/rand"
	"reflect"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var marker = []byte{0x1f, 0xa6, 0xde, 0xba, 0xcc, 0x13, 0x7d, 0x74}

func TestDecodeTapeWithSomeFiles(t *testing.T) {
	var buf []byte
	// header block for binary file "FILE1"
	buf = append(buf, marker...)
	buf = append(buf, 0xd0, 0xd0, 0xd0, 0xd0, 0xd0, 0xd0, 0xd0, 0xd0, 0xd0, 0xd0, 'F', 'I', 'L', 'E', '1', ' ')
	// data block for binary file "FILE1"
	buf = append(buf, marker...)
	buf = append(buf, 0x00, 0x80, 0x08, 0x80, 0x00, 0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0xa0)
	// header block for ascii file "FILE2"
	buf = append(buf, marker...)
	buf = append(buf, 0xea, 0xea, 0xea, 0xea, 0xea, 0xea, 0xea, 0xea, 0xea, 0xea, 'F', 'I', 'L', 'E', '2', ' ')
	// two short data blocks, the second one holding the EOF
	buf = append(buf, marker...)
	buf = append(buf, 'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H')
	buf = append(buf, marker...)
	buf = append(buf, 'I', 'J', 'K', 'L', 'M', 'N', 'O', 0x1a)

	entries, err := Decode(buf)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, Binary, entries[0].Kind)
	assert.Equal(t, "FILE1", entries[0].Name)
	assert.Equal(t, &Addresses{Start: 0x8000, End: 0x8008, Exec: 0x0000}, entries[0].Addr)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0xa0}, entries[0].Payload)

	assert.Equal(t, Ascii, entries[1].Kind)
	assert.Equal(t, "FILE2", entries[1].Name)
	assert.Equal(t, 16, entries[1].TapeSize())
	assert.Equal(t, []byte("ABCDEFGHIJKLMNO"), entries[1].Content())
}

func TestDecodeEmpty(t *testing.T) {
	entries, err := Decode(nil)
	require.NoError(t, err)
	assert.Empty(t, entries)

	out, err := Encode(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestDecodeMalformed(t *testing.T) {
	binHeader := append(append([]byte{}, marker...), 0xd0, 0xd0, 0xd0, 0xd0, 0xd0, 0xd0, 0xd0, 0xd0, 0xd0, 0xd0, 'A', ' ', ' ', ' ', ' ', ' ')
	asciiHeader := append(append([]byte{}, marker...), 0xea, 0xea, 0xea, 0xea, 0xea, 0xea, 0xea, 0xea, 0xea, 0xea, 'B', ' ', ' ', ' ', ' ', ' ')

	tests := []struct {
		name string
		buf  []byte
	}{
		{"leading garbage", append([]byte{0x00}, binHeader...)},
		{"no sync marker", []byte("hello world")},
		{"header without data", binHeader},
		{"header followed by header", append(append([]byte{}, binHeader...), asciiHeader...)},
		{"ascii header without data", asciiHeader},
		{"short binary data block", append(append(append([]byte{}, binHeader...), marker...), 0x00, 0x80, 0x10)},
		{"truncated header", append(append([]byte{}, marker...), 0xd3, 0xd3, 0xd3, 0xd3, 0xd3, 0xd3, 0xd3, 0xd3, 0xd3, 0xd3, 'X')},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.buf)
			assert.ErrorIs(t, err, ErrMalformedContainer)
		})
	}
}

func TestDecodeLenientCustom(t *testing.T) {
	var buf []byte
	buf = append(buf, marker...) // empty custom block
	buf = append(buf, marker...)
	buf = append(buf, 0xd0, 0xd0, 0xd0) // looks like a tag but too short for a header
	buf = append(buf, marker...)
	buf = append(buf, 0xd0, 0xd0, 0xd0, 0xd0, 0xd0, 0xd0, 0xd0, 0xd0, 0xd0, 0xd3, 1, 2, 3, 4, 5, 6) // mixed tags

	entries, err := Decode(buf)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.Equal(t, Custom, e.Kind)
		assert.Empty(t, e.Name)
		assert.Nil(t, e.Addr)
	}
	assert.Empty(t, entries[0].Payload)
	assert.Equal(t, []byte{0xd0, 0xd0, 0xd0}, entries[1].Payload)
}

func TestDecodeLegacyAlignedBinary(t *testing.T) {
	// older writers pad every block to 8 bytes with zeros
	entry := NewBinary("PAD", Addresses{Start: 0x9000, End: 0x9002, Exec: 0x9000}, []byte{0xc9, 0xc9, 0xc9})
	buf, err := Encode(nil, entry)
	require.NoError(t, err)
	require.Len(t, buf, 41)
	buf = append(buf, make([]byte, 7)...)
	buf, err = Encode(buf, NewBasic("NEXT", []byte{1, 2, 3}))
	require.NoError(t, err)

	entries, err := Decode(buf)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, []byte{0xc9, 0xc9, 0xc9, 0, 0, 0, 0, 0, 0, 0}, entries[0].Payload)
	assert.Equal(t, "NEXT", entries[1].Name)
}

func TestBinaryScenario(t *testing.T) {
	payload := make([]byte, 96)
	for i := range payload {
		payload[i] = byte(i)
	}
	in := NewBinary("ARK", Addresses{Start: 0xC000, End: 0xC057, Exec: 0xC000}, payload)

	buf, err := Encode(nil, in)
	require.NoError(t, err)

	entries, err := Decode(buf)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	out := entries[0]
	assert.Equal(t, Binary, out.Kind)
	assert.Equal(t, "ARK", out.Name)
	assert.Len(t, out.Payload, 96)
	assert.Equal(t, Addresses{Start: 0xC000, End: 0xC057, Exec: 0xC000}, *out.Addr)
	assert.Equal(t, "[0xc000,0xc057]:0xc000", out.Addr.String())
}

func TestEncodeLayout(t *testing.T) {
	buf, err := Encode(nil, NewBasic("HELLO", []byte{0x01, 0x02}))
	require.NoError(t, err)

	want := append([]byte{}, marker...)
	want = append(want, 0xd3, 0xd3, 0xd3, 0xd3, 0xd3, 0xd3, 0xd3, 0xd3, 0xd3, 0xd3, 'H', 'E', 'L', 'L', 'O', ' ')
	want = append(want, marker...)
	want = append(want, 0x01, 0x02)
	assert.Equal(t, want, buf)
}

func TestEncodeAsciiPadding(t *testing.T) {
	tests := []struct {
		name   string
		length int
		blocks int
	}{
		{"empty", 0, 1},
		{"short", 10, 1},
		{"one below block", 255, 1},
		{"exact block gets eof block", 256, 2},
		{"two blocks", 300, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := bytes.Repeat([]byte("A"), tt.length)
			entry := NewAscii("TEXT", text)
			assert.Equal(t, tt.blocks*256, entry.TapeSize())

			buf, err := Encode(nil, entry)
			require.NoError(t, err)

			blocks, err := Frame(buf)
			require.NoError(t, err)
			require.Len(t, blocks, tt.blocks+1)
			for _, b := range blocks[1:] {
				assert.Equal(t, RoleData, b.Role)
				assert.Len(t, b.Data, 256)
			}

			entries, err := Decode(buf)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, tt.blocks*256, entries[0].TapeSize())
			assert.Equal(t, text, entries[0].Content())
		})
	}
}

func TestEncodeRejectsInvalidEntries(t *testing.T) {
	_, err := Encode(nil, Entry{Kind: Binary, Name: "NOADDR", Payload: []byte{1}})
	assert.ErrorIs(t, err, ErrInvalidEntry)

	_, err = Encode(nil, Entry{Kind: Kind(42)})
	assert.ErrorIs(t, err, ErrInvalidEntry)
}

func TestEncodeRejectsUnframeablePayloads(t *testing.T) {
	withMarker := append(append([]byte{1, 2}, marker...), 5)
	tests := []struct {
		name  string
		entry Entry
	}{
		{"custom reading as basic header", NewCustom(bytes.Repeat([]byte{0xd3}, 16))},
		{"custom reading as short header", NewCustom(bytes.Repeat([]byte{0xd0}, 10))},
		{"custom with marker", NewCustom(withMarker)},
		{"basic data reading as header", NewBasic("B", bytes.Repeat([]byte{0xea}, 12))},
		{"binary with marker", NewBinary("B", Addresses{}, withMarker)},
		{"binary addresses reading as header", NewBinary("B", Addresses{Start: 0xd0d0, End: 0xd0d0, Exec: 0xd0d0}, bytes.Repeat([]byte{0xd0}, 4))},
		{"ascii with marker", NewAscii("A", withMarker)},
		{"ascii without data", Entry{Kind: Ascii, Name: "A", Payload: []byte{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.entry.Validate(), ErrInvalidEntry)

			existing, err := Encode(nil, NewBasic("GAME", []byte{1}))
			require.NoError(t, err)
			out, err := Encode(existing, tt.entry)
			assert.ErrorIs(t, err, ErrInvalidEntry)
			assert.Nil(t, out)

			_, err = EncodeAligned(existing, tt.entry)
			assert.ErrorIs(t, err, ErrInvalidEntry)
		})
	}

	// the same bytes are fine once they are not at the start of a block
	assert.NoError(t, NewCustom(append([]byte{0}, bytes.Repeat([]byte{0xd3}, 16)...)).Validate())
}

func TestAsciiWithoutEOFKeepsTapeLength(t *testing.T) {
	var buf []byte
	buf = append(buf, marker...)
	buf = append(buf, 0xea, 0xea, 0xea, 0xea, 0xea, 0xea, 0xea, 0xea, 0xea, 0xea, 'N', 'O', 'E', 'O', 'F', ' ')
	buf = append(buf, marker...)
	buf = append(buf, []byte("0123456789")...)

	entries, err := Decode(buf)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 10, entries[0].TapeSize())
	assert.Equal(t, []byte("0123456789"), entries[0].Content())

	again, err := Encode(nil, entries...)
	require.NoError(t, err)
	assert.Equal(t, buf, again)
}

func TestAsciiLongLastBlockRoundTrips(t *testing.T) {
	// one oversized data block whose EOF sits early on
	data := append(bytes.Repeat([]byte("A"), 10), 0x1a)
	data = append(data, bytes.Repeat([]byte{0x1a}, 589)...)
	var buf []byte
	buf = append(buf, marker...)
	buf = append(buf, 0xea, 0xea, 0xea, 0xea, 0xea, 0xea, 0xea, 0xea, 0xea, 0xea, 'B', 'I', 'G', ' ', ' ', ' ')
	buf = append(buf, marker...)
	buf = append(buf, data...)

	entries, err := Decode(buf)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 600, entries[0].TapeSize())

	again, err := Encode(nil, entries...)
	require.NoError(t, err)
	assert.Equal(t, buf, again)
}

func TestEncodeDoesNotTouchExisting(t *testing.T) {
	encoded, err := Encode(nil, NewCustom([]byte{1, 2, 3}))
	require.NoError(t, err)
	// spare capacity must not be written either
	existing := append(make([]byte, 0, len(encoded)+64), encoded...)
	snapshot := append([]byte{}, existing[:cap(existing)]...)

	out, err := Encode(existing, NewBasic("B", []byte{9}))
	require.NoError(t, err)
	assert.Equal(t, snapshot, existing[:cap(existing)])
	assert.Equal(t, existing, out[:len(existing)])
}

func TestEncodeTruncatesNames(t *testing.T) {
	entry := Entry{Kind: Basic, Name: "LONGNAME", Payload: []byte{1}}
	buf, err := Encode(nil, entry)
	require.NoError(t, err)
	assert.Equal(t, []byte("LONGNA"), buf[8+10:8+16])

	entries, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, "LONGNA", entries[0].Name)
}

func TestFrameRoles(t *testing.T) {
	buf, err := Encode(nil,
		NewCustom([]byte{1}),
		NewAscii("A", bytes.Repeat([]byte("x"), 600)),
		NewBinary("B", Addresses{}, []byte{2}),
		NewCustom(nil),
	)
	require.NoError(t, err)

	blocks, err := Frame(buf)
	require.NoError(t, err)

	var roles []Role
	var owners []int
	for _, b := range blocks {
		roles = append(roles, b.Role)
		owners = append(owners, b.Entry)
	}
	assert.Equal(t, []Role{RoleCustom, RoleHeader, RoleData, RoleData, RoleData, RoleHeader, RoleData, RoleCustom}, roles)
	assert.Equal(t, []int{0, 1, 1, 1, 1, 2, 2, 3}, owners)
	assert.Equal(t, len(buf), blocks[len(blocks)-1].End())
	assert.Equal(t, 0, blocks[0].Offset)
}

// entryList generates random entry sequences for testing/quick. some
// payloads carry a sync marker or start like a file header.
type entryList []Entry

func (entryList) Generate(r *rand.Rand, size int) reflect.Value {
	names := []string{"", "A", "GAME", "LOADER", "X Y"}
	tags := []byte{0xd0, 0xd3, 0xea}
	payload := func() []byte {
		p := make([]byte, r.Intn(size*8+1))
		r.Read(p)
		switch r.Intn(8) {
		case 0:
			at := r.Intn(len(p) + 1)
			p = append(p[:at], append(append([]byte{}, marker...), p[at:]...)...)
		case 1:
			p = append(bytes.Repeat([]byte{tags[r.Intn(len(tags))]}, 16), p...)
		}
		return p
	}

	n := r.Intn(6)
	list := make(entryList, 0, n)
	for i := 0; i < n; i++ {
		name := names[r.Intn(len(names))]
		switch r.Intn(4) {
		case 0:
			addr := Addresses{Start: uint16(r.Intn(0x10000)), End: uint16(r.Intn(0x10000)), Exec: uint16(r.Intn(0x10000))}
			list = append(list, NewBinary(name, addr, payload()))
		case 1:
			text := make([]byte, r.Intn(size*8+1))
			for j := range text {
				text[j] = byte(0x20 + r.Intn(0x5f))
			}
			if r.Intn(8) == 0 {
				text = append(text, marker...)
			}
			list = append(list, NewAscii(name, text))
		case 2:
			list = append(list, NewBasic(name, payload()))
		default:
			list = append(list, NewCustom(payload()))
		}
	}
	return reflect.ValueOf(list)
}

// unframeable reports whether some entry of list holds a sync marker or a
// block that starts like a file header.
func unframeable(list []Entry) bool {
	for _, e := range list {
		data := e.Payload
		if e.Kind == Binary {
			data = append(make([]byte, 6), e.Payload...)
			binary.LittleEndian.PutUint16(data[0:2], e.Addr.Start)
			binary.LittleEndian.PutUint16(data[2:4], e.Addr.End)
			binary.LittleEndian.PutUint16(data[4:6], e.Addr.Exec)
		}
		if bytes.Contains(data, marker) {
			return true
		}
		if _, ok := headerKind(data); ok && e.Kind != Ascii {
			return true
		}
	}
	return false
}

// encodes checks that Encode either round-trips list or rejects it because
// of an entry it cannot frame.
func encodes(list []Entry) ([]byte, bool) {
	buf, err := Encode(nil, list...)
	if err != nil {
		return nil, errors.Is(err, ErrInvalidEntry) && unframeable(list)
	}
	decoded, err := Decode(buf)
	if err != nil {
		return nil, false
	}
	return buf, assert.ObjectsAreEqual(list, decoded) || (len(list) == 0 && len(decoded) == 0)
}

func TestRoundTripProperty(t *testing.T) {
	roundTrip := func(list entryList) bool {
		_, ok := encodes(list)
		return ok
	}
	require.NoError(t, quick.Check(roundTrip, nil))
}

func TestAdditivityProperty(t *testing.T) {
	additive := func(first, second entryList) bool {
		all := append(append([]Entry{}, first...), second...)
		if unframeable(all) {
			_, ok := encodes(all)
			return ok
		}
		once, err := Encode(nil, first...)
		if err != nil {
			return false
		}
		twice, err := Encode(once, second...)
		if err != nil {
			return false
		}
		buf, ok := encodes(all)
		return ok && bytes.Equal(twice, buf)
	}
	require.NoError(t, quick.Check(additive, nil))
}
