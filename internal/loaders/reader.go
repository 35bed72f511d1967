// internal/loaders/reader.go
package loaders

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go_cas_packager/internal/cas"
	"go_cas_packager/internal/constants"
)

var (
	// ErrUnreadableSource is returned when a host file cannot be read.
	ErrUnreadableSource = errors.New("unreadable source")

	// ErrInvalidBinary is returned for a .bin file that starts with neither
	// the BSAVE header nor a usable set of addresses.
	ErrInvalidBinary = errors.New("invalid binary file")
)

// bsaveHeaderSize is the magic byte plus start, end and exec addresses.
const bsaveHeaderSize = 1 + constants.AddressSize

// Result is the outcome of loading one host file. Warning is set when the
// entry was built but something was adjusted (name truncated, .bas stored as
// ascii); Err is set when no entry could be built.
type Result struct {
	Path    string
	Entry   cas.Entry
	Warning error
	Err     error
}

// Load reads the file at path and builds the entry the add command appends.
// the entry is named after the base name without extension. a name longer
// than 6 bytes is truncated and the warning wraps cas.ErrNameTruncated.
func Load(path string) Result {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Path: path, Err: fmt.Errorf("%w: '%s': %w", ErrUnreadableSource, path, err)}
	}

	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	name, truncated := cas.TruncateName(stem)
	var warning error
	if truncated {
		warning = fmt.Errorf("%w: '%s' stored as '%s'", cas.ErrNameTruncated, stem, name)
	}

	kind := Classify(path)
	entry, err := build(kind, name, data)
	if err == nil {
		err = entry.Validate()
	}
	if err != nil {
		return Result{Path: path, Err: fmt.Errorf("'%s': %w", path, err)}
	}
	if entry.Kind == cas.Ascii && kind == cas.Basic {
		warning = errors.Join(warning, fmt.Errorf("'%s' is not tokenised, stored as ascii", path))
	}
	if kind == cas.Binary && !formatOf(kind).hasMagic(data) {
		warning = errors.Join(warning, fmt.Errorf("'%s' has no 0x%02X header, first %d bytes read as addresses", path, constants.MagicBinary, constants.AddressSize))
	}
	return Result{Path: path, Entry: entry, Warning: warning}
}

func build(kind cas.Kind, name string, data []byte) (cas.Entry, error) {
	switch kind {
	case cas.Binary:
		if len(data) >= bsaveHeaderSize && formatOf(kind).hasMagic(data) {
			return cas.NewBinary(name, readAddresses(data[1:]), data[bsaveHeaderSize:]), nil
		}
		// a tape data block saved as is: addresses without the magic byte
		if len(data) >= constants.AddressSize {
			addr := readAddresses(data)
			payload := data[constants.AddressSize:]
			if addr.Start <= addr.End && int(addr.End-addr.Start)+1 <= len(payload) {
				return cas.NewBinary(name, addr, payload), nil
			}
		}
		return cas.Entry{}, fmt.Errorf("%w: missing 0x%02X header", ErrInvalidBinary, constants.MagicBinary)

	case cas.Basic:
		if formatOf(kind).hasMagic(data) {
			return cas.NewBasic(name, data[1:]), nil
		}
		return cas.NewAscii(name, data), nil

	case cas.Ascii:
		return cas.NewAscii(name, data), nil
	}
	return cas.NewCustom(data), nil
}

// readAddresses reads start, end and exec, 16-bit little endian.
func readAddresses(data []byte) cas.Addresses {
	return cas.Addresses{
		Start: binary.LittleEndian.Uint16(data[0:2]),
		End:   binary.LittleEndian.Uint16(data[2:4]),
		Exec:  binary.LittleEndian.Uint16(data[4:6]),
	}
}

// LoadFiles loads every path, one result per path in argument order. a file
// that fails never stops the others.
func LoadFiles(paths []string, logger *slog.Logger) []Result {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	results := make([]Result, 0, len(paths))
	for _, path := range paths {
		res := Load(path)
		if res.Err != nil {
			logger.Debug("load failed", "path", path, "err", res.Err)
		} else {
			logger.Debug("loaded", "path", path, "format", formatOf(Classify(path)).Name, "kind", res.Entry.Kind, "name", res.Entry.Name, "bytes", res.Entry.TapeSize())
		}
		results = append(results, res)
	}
	return results
}
