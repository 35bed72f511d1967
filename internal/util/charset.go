package util

import "strings"

// MSX2Text converts tape name bytes to a printable ASCII string. the msx
// character set matches ASCII from 0x20 to 0x7E; graphic and control
// characters are shown as a period.
func MSX2Text(name []byte) string {
	result := make([]byte, len(name))
	for i, b := range name {
		switch {
		case b >= 0x20 && b <= 0x7E:
			result[i] = b
		case b == 0xFF: // blank cursor glyph, used as filler by some tools
			result[i] = 0x20
		default:
			result[i] = 0x2E
		}
	}
	return string(result)
}

// FileName turns a tape name into a name that is safe to create on the
// host: printable, without path separators, never empty.
func FileName(name string) string {
	s := strings.TrimSpace(MSX2Text([]byte(name)))
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
	if s == "" || s == "." || s == ".." {
		return "noname"
	}
	return s
}
