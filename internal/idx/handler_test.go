package idx

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go_cas_packager/internal/cas"
)

func TestParse(t *testing.T) {
	input := `; tape index
0x0000 intro

1a0 MAIN
0X0200 level two
`
	entries, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []IDXEntry{
		{Position: 0x0, Name: "intro"},
		{Position: 0x1a0, Name: "MAIN"},
		{Position: 0x200, Name: "level two"},
	}, entries)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse(strings.NewReader("0x10\n"))
	assert.ErrorContains(t, err, "line 1")

	_, err = Parse(strings.NewReader("; ok\nzz name\n"))
	assert.ErrorContains(t, err, "line 2")
}

func TestFromContainerAndRoundTrip(t *testing.T) {
	buf, err := cas.Encode(nil,
		cas.NewCustom([]byte{1, 2}),
		cas.NewBinary("ARK", cas.Addresses{Start: 0xC000, End: 0xC001, Exec: 0xC000}, []byte{0xC9, 0xC9}),
		cas.NewAscii("", []byte("10 END")),
		cas.NewCustom([]byte{3}),
	)
	require.NoError(t, err)

	entries, err := FromContainer(buf)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, IDXEntry{Position: 0, Name: "custom.001"}, entries[0])
	assert.Equal(t, IDXEntry{Position: 10, Name: "ARK.bin"}, entries[1])
	assert.Equal(t, "noname.asc", entries[2].Name)
	assert.Equal(t, "custom.002", entries[3].Name)
	assert.Less(t, entries[1].Position, entries[2].Position)

	path := filepath.Join(t.TempDir(), "tape.idx")
	require.NoError(t, WriteIDX(path, entries))
	read, err := ReadIDX(path)
	require.NoError(t, err)
	assert.Equal(t, entries, read)
}

func TestFromContainerMalformed(t *testing.T) {
	_, err := FromContainer([]byte("junk"))
	assert.ErrorIs(t, err, cas.ErrMalformedContainer)
}
