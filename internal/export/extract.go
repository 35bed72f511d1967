// internal/export/extract.go
package export

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go_cas_packager/internal/cas"
	"go_cas_packager/internal/constants"
	"go_cas_packager/internal/util"
)

// ErrUnwritableDestination is returned for a host file that cannot be created.
var ErrUnwritableDestination = errors.New("unwritable destination")

// File is a host file produced from one entry.
type File struct {
	Entry int    // index of the entry in the container
	Name  string // host file name
	Data  []byte
}

// Result is the outcome of writing one File.
type Result struct {
	File
	Path string
	Err  error
}

// Plan names every entry and builds the content of its host file. binary
// files get the msx disk BSAVE header and basic files the tokenised marker,
// so extracted files can be added back unchanged. ascii files lose their
// EOF padding. custom entries are numbered custom.001, custom.002, ... in
// container order. repeated names get a numeric suffix.
func Plan(entries []cas.Entry) []File {
	files := make([]File, 0, len(entries))
	used := make(map[string]int)
	custom := 0
	for i, e := range entries {
		var name string
		if e.Kind == cas.Custom {
			custom++
			name = fmt.Sprintf("custom.%03d", custom)
		} else {
			name = util.FileName(e.Name) + e.Kind.Ext()
		}
		name = unique(used, name)
		files = append(files, File{Entry: i, Name: name, Data: content(e)})
	}
	return files
}

func unique(used map[string]int, name string) string {
	key := strings.ToLower(name)
	used[key]++
	if n := used[key]; n > 1 {
		ext := filepath.Ext(name)
		if strings.HasPrefix(name, "custom.") {
			ext = ""
		}
		name = fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, ext), n, ext)
	}
	return name
}

func content(e cas.Entry) []byte {
	switch e.Kind {
	case cas.Binary:
		out := make([]byte, 1+constants.AddressSize, 1+constants.AddressSize+len(e.Payload))
		out[0] = constants.MagicBinary
		if e.Addr != nil {
			binary.LittleEndian.PutUint16(out[1:3], e.Addr.Start)
			binary.LittleEndian.PutUint16(out[3:5], e.Addr.End)
			binary.LittleEndian.PutUint16(out[5:7], e.Addr.Exec)
		}
		return append(out, e.Payload...)
	case cas.Basic:
		return append([]byte{constants.MagicBasic}, e.Payload...)
	}
	return e.Content()
}

// Extract writes one file per entry into dir, creating dir if needed. errors
// are reported per file and never stop the remaining files. a container
// without entries writes nothing.
func Extract(entries []cas.Entry, dir string) []Result {
	files := Plan(entries)
	if len(files) == 0 {
		return nil
	}

	results := make([]Result, len(files))
	mkErr := os.MkdirAll(dir, 0755)
	for i, f := range files {
		path := filepath.Join(dir, f.Name)
		results[i] = Result{File: f, Path: path}
		if mkErr != nil {
			results[i].Err = fmt.Errorf("%w: '%s': %w", ErrUnwritableDestination, path, mkErr)
			continue
		}
		if err := os.WriteFile(path, f.Data, 0644); err != nil {
			results[i].Err = fmt.Errorf("%w: '%s': %w", ErrUnwritableDestination, path, err)
		}
	}
	return results
}
