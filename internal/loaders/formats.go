// internal/loaders/formats.go

// package loaders turns host files into tape entries for the add command.
package loaders

import (
	"path/filepath"
	"strings"

	"go_cas_packager/internal/cas"
	"go_cas_packager/internal/constants"
)

// Fmt describes how a host file of a given extension is stored on tape.
type Fmt struct {
	Ext   string   // lower case extension, with the dot
	Kind  cas.Kind // kind given to files with this extension
	Magic int      // first byte written by the msx disk routines, NA if none
	Name  string   // description shown in verbose logs
}

const NA = -1 // Not Applicable

// Ft lists the recognised extensions. anything else is added as a custom
// block.
var Ft = []Fmt{
	{Ext: ".bin", Kind: cas.Binary, Magic: constants.MagicBinary, Name: "BSAVE BINARY"},
	{Ext: ".bas", Kind: cas.Basic, Magic: constants.MagicBasic, Name: "TOKENISED BASIC"},
	{Ext: ".asc", Kind: cas.Ascii, Magic: NA, Name: "ASCII TEXT"},
}

// lookup returns the format entry for filename, if its extension is known.
func lookup(filename string) (Fmt, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, f := range Ft {
		if f.Ext == ext {
			return f, true
		}
	}
	return Fmt{}, false
}

// hasMagic reports whether data starts with the format's magic byte.
// formats without one accept anything.
func (f Fmt) hasMagic(data []byte) bool {
	if f.Magic == NA {
		return true
	}
	return len(data) > 0 && data[0] == byte(f.Magic)
}

// formatOf returns the table entry of a kind.
func formatOf(kind cas.Kind) Fmt {
	for _, f := range Ft {
		if f.Kind == kind {
			return f
		}
	}
	return Fmt{Kind: kind, Magic: NA, Name: "CUSTOM BLOCK"}
}

// Classify maps a file name to the kind it is added as. it never fails:
// unknown extensions fall back to Custom.
func Classify(filename string) cas.Kind {
	if f, ok := lookup(filename); ok {
		return f.Kind
	}
	return cas.Custom
}
