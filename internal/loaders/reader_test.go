package loaders

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go_cas_packager/internal/cas"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		filename string
		want     cas.Kind
	}{
		{"game.bin", cas.Binary},
		{"GAME.BIN", cas.Binary},
		{"list.asc", cas.Ascii},
		{"prog.bas", cas.Basic},
		{"prog.Bas", cas.Basic},
		{"data.rom", cas.Custom},
		{"noext", cas.Custom},
		{"dir.bin/file", cas.Custom},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.filename))
		})
	}
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestLoadBinary(t *testing.T) {
	data := []byte{0xFE, 0x00, 0xC0, 0x02, 0xC0, 0x00, 0xC0, 0xC9, 0x00, 0xC9}
	res := Load(writeFile(t, "ark.bin", data))
	require.NoError(t, res.Err)
	assert.NoError(t, res.Warning)

	assert.Equal(t, cas.Binary, res.Entry.Kind)
	assert.Equal(t, "ark", res.Entry.Name)
	assert.Equal(t, []byte{0xC9, 0x00, 0xC9}, res.Entry.Payload)
	require.NotNil(t, res.Entry.Addr)
	assert.Equal(t, cas.Addresses{Start: 0xC000, End: 0xC002, Exec: 0xC000}, *res.Entry.Addr)
}

func TestLoadBinaryWithoutHeader(t *testing.T) {
	res := Load(writeFile(t, "raw.bin", []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06}))
	assert.ErrorIs(t, res.Err, ErrInvalidBinary)

	res = Load(writeFile(t, "short.bin", []byte{0xFE, 0x00}))
	assert.ErrorIs(t, res.Err, ErrInvalidBinary)
}

func TestLoadBinaryBareAddresses(t *testing.T) {
	// data block written out as is: start, end, exec then the code
	data := []byte{0x00, 0xC0, 0x02, 0xC0, 0x00, 0xC0, 0xC9, 0x00, 0xC9}
	res := Load(writeFile(t, "ark.bin", data))
	require.NoError(t, res.Err)
	assert.Error(t, res.Warning)

	assert.Equal(t, cas.Binary, res.Entry.Kind)
	assert.Equal(t, []byte{0xC9, 0x00, 0xC9}, res.Entry.Payload)
	require.NotNil(t, res.Entry.Addr)
	assert.Equal(t, cas.Addresses{Start: 0xC000, End: 0xC002, Exec: 0xC000}, *res.Entry.Addr)
}

func TestLoadRejectsUnframeableData(t *testing.T) {
	header := bytes.Repeat([]byte{0xD0}, 16)
	res := Load(writeFile(t, "blob.dat", header))
	assert.ErrorIs(t, res.Err, cas.ErrInvalidEntry)

	withMarker := append([]byte{0xFF, 1, 2}, 0x1F, 0xA6, 0xDE, 0xBA, 0xCC, 0x13, 0x7D, 0x74, 5)
	res = Load(writeFile(t, "game.bas", withMarker))
	assert.ErrorIs(t, res.Err, cas.ErrInvalidEntry)
}

func TestLoadBasic(t *testing.T) {
	res := Load(writeFile(t, "prog.bas", []byte{0xFF, 0x10, 0x80}))
	require.NoError(t, res.Err)
	assert.NoError(t, res.Warning)
	assert.Equal(t, cas.Basic, res.Entry.Kind)
	assert.Equal(t, []byte{0x10, 0x80}, res.Entry.Payload)
}

func TestLoadPlainBasicIsAscii(t *testing.T) {
	text := []byte("10 PRINT \"HI\"\r\n")
	res := Load(writeFile(t, "prog.bas", text))
	require.NoError(t, res.Err)
	assert.Error(t, res.Warning)
	assert.Equal(t, cas.Ascii, res.Entry.Kind)
	assert.Equal(t, text, res.Entry.Content())
	assert.Len(t, res.Entry.Payload, 256)
}

func TestLoadCustomAndAscii(t *testing.T) {
	res := Load(writeFile(t, "blob.dat", []byte{1, 2, 3}))
	require.NoError(t, res.Err)
	assert.Equal(t, cas.Custom, res.Entry.Kind)
	assert.Empty(t, res.Entry.Name)
	assert.Equal(t, []byte{1, 2, 3}, res.Entry.Payload)

	res = Load(writeFile(t, "notes.asc", []byte("hello")))
	require.NoError(t, res.Err)
	assert.Equal(t, cas.Ascii, res.Entry.Kind)
	assert.Equal(t, "notes", res.Entry.Name)
}

func TestLoadTruncatesName(t *testing.T) {
	res := Load(writeFile(t, "longname.asc", []byte("x")))
	require.NoError(t, res.Err)
	assert.ErrorIs(t, res.Warning, cas.ErrNameTruncated)
	assert.Equal(t, "longna", res.Entry.Name)
}

func TestLoadFilesIsolatesFailures(t *testing.T) {
	good := writeFile(t, "good.asc", []byte("ok"))
	missing := filepath.Join(t.TempDir(), "missing.bin")
	bad := writeFile(t, "bad.bin", []byte{0x00})
	header := writeFile(t, "head.dat", bytes.Repeat([]byte{0xD3}, 16))

	results := LoadFiles([]string{good, missing, bad, header}, nil)
	require.Len(t, results, 4)
	assert.ErrorIs(t, results[3].Err, cas.ErrInvalidEntry)
	results = results[:3]

	assert.NoError(t, results[0].Err)
	assert.Equal(t, "good", results[0].Entry.Name)
	assert.ErrorIs(t, results[1].Err, ErrUnreadableSource)
	assert.ErrorIs(t, results[2].Err, ErrInvalidBinary)
	assert.Equal(t, []string{good, missing, bad}, []string{results[0].Path, results[1].Path, results[2].Path})
}
