// internal/idx/handler.go

// package idx reads and writes .idx files. these list hexadecimal byte offsets
// into a .cas file with the name of the tape file starting there, so players
// and emulators can seek straight to a program on a multi-file tape. the
// modulator uses them to tag the blocks it renders (see package audio).
package idx

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go_cas_packager/internal/cas"
)

const (
	idxPositionBase = 16 // hexadecimal position
	idxPositionBits = 32 // assuming positions fit within 32 bits
)

// IDXEntry holds data parsed from one line of a .idx file.
// Position is the byte offset of a block within the associated .cas file.
// tools disagree on whether it points at the sync marker or past it, so
// matching is done with a tolerance (constants.MaxOffset).
type IDXEntry struct {
	Position int    // byte offset within the associated .cas file
	Name     string // tag or name associated with this position
}

// ReadIDX opens and parses a tape index (.idx) file specified by filepath.
// it expects lines in the format "<HexPosition> <Name>", allowing an optional "0x"
// prefix for the position. comment lines starting with ';' and empty lines are
// skipped.
func ReadIDX(filepath string) ([]IDXEntry, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("error opening idx file %s: %w", filepath, err)
	}
	defer file.Close()

	entries, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("idx file %s: %w", filepath, err)
	}
	return entries, nil
}

// Parse reads .idx lines from r.
func Parse(r io.Reader) ([]IDXEntry, error) {
	var entries []IDXEntry
	scanner := bufio.NewScanner(r)
	lineNumber := 0

	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())

		// skip empty lines and comments
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}

		// expect format "<position> <name>", split at first space only
		parts := strings.SplitN(line, " ", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid idx line format: %s", lineNumber, line)
		}

		positionStr := strings.TrimPrefix(strings.ToLower(parts[0]), "0x")
		position, err := strconv.ParseInt(positionStr, idxPositionBase, idxPositionBits)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid hex position '%s': %w", lineNumber, parts[0], err)
		}

		entries = append(entries, IDXEntry{Position: int(position), Name: strings.TrimSpace(parts[1])})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning idx: %w", err)
	}
	return entries, nil
}

// FromContainer builds one index entry per tape file in buf: the offset of
// its first block and its listing name. custom blocks are named custom.NNN
// like the extracted files.
func FromContainer(buf []byte) ([]IDXEntry, error) {
	blocks, err := cas.Frame(buf)
	if err != nil {
		return nil, err
	}

	var entries []IDXEntry
	custom := 0
	last := -1
	for _, b := range blocks {
		if b.Entry == last {
			continue
		}
		last = b.Entry

		var name string
		switch b.Role {
		case cas.RoleCustom:
			custom++
			name = fmt.Sprintf("custom.%03d", custom)
		default:
			name = b.Name()
			if name == "" {
				name = "noname"
			}
			name += b.Kind.Ext()
		}
		entries = append(entries, IDXEntry{Position: b.Offset, Name: name})
	}
	return entries, nil
}

// WriteIDX writes entries to filepath, one "<hex offset> <name>" line each.
func WriteIDX(filepath string, entries []IDXEntry) error {
	file, err := os.Create(filepath)
	if err != nil {
		return fmt.Errorf("error creating idx file %s: %w", filepath, err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	fmt.Fprintf(w, "; %d entries\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(w, "0x%06x %s\n", e.Position, e.Name)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("error writing idx file %s: %w", filepath, err)
	}
	return file.Close()
}
