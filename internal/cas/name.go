package cas

import (
	"bytes"
	"go_cas_packager/internal/constants"
	"strings"
)

// TruncateName keeps the first 6 bytes of name and reports whether anything
// was cut. trailing spaces are dropped since they are the padding on tape.
func TruncateName(name string) (string, bool) {
	truncated := len(name) > constants.NameSize
	if truncated {
		name = name[:constants.NameSize]
	}
	return strings.TrimRight(name, " "), truncated
}

// encodeName returns the 6 name bytes written to a header block.
func encodeName(name string) [constants.NameSize]byte {
	var out [constants.NameSize]byte
	for i := range out {
		out[i] = constants.NameFill
	}
	copy(out[:], name)
	return out
}

// decodeName trims the space and NUL padding from the name field of a header.
func decodeName(field []byte) string {
	return string(bytes.TrimRight(field, " \x00"))
}
