// mobile/api.go

package mobile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go_cas_packager/internal/audio"
	"go_cas_packager/internal/cas"
	"go_cas_packager/internal/export"
	"go_cas_packager/internal/idx"
)

// Version is a simple function to verify the mobile library is linked correctly.
func Version() string {
	return "caspack mobile 1"
}

// ProcessCAS2Pack creates a .cpk package from a .cas file.
// this is the main entry point for the mobile frontend. it handles file i/o,
// modulates the container into audio samples, and packages the output.
//
// parameters:
//   - casFilePath: absolute path to the source .cas file.
//   - baud: "1200" or "2400".
//
// returns:
//   - string: the absolute path to the new .cpk file on success.
//   - error: an error if any part of the process fails.
func ProcessCAS2Pack(casFilePath string, baud string) (string, error) {
	baseFilePath := strings.TrimSuffix(casFilePath, filepath.Ext(casFilePath))

	pcm, indexData, profile, err := modulate(casFilePath, baseFilePath, baud)
	if err != nil {
		return "", err
	}
	if err := export.SplitAndPackageBlocks(pcm, indexData, baseFilePath, profile, nil); err != nil {
		return "", fmt.Errorf("failed to create cpk package: %w", err)
	}
	return baseFilePath + ".cpk", nil
}

// ProcessCAS2WAV writes the signal of a .cas file next to it as a .wav file
// and returns the path of the new file.
func ProcessCAS2WAV(casFilePath string, baud string) (string, error) {
	baseFilePath := strings.TrimSuffix(casFilePath, filepath.Ext(casFilePath))

	pcm, _, profile, err := modulate(casFilePath, baseFilePath, baud)
	if err != nil {
		return "", err
	}
	outPath := baseFilePath + ".wav"
	if err := audio.WriteWAVFile(outPath, pcm, profile.SampleRate); err != nil {
		return "", err
	}
	return outPath, nil
}

// ListCAS returns the listing of a .cas file, one entry per line.
func ListCAS(casFilePath string) (string, error) {
	data, err := cas.ReadFile(casFilePath)
	if err != nil {
		return "", err
	}
	entries, err := cas.Decode(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", casFilePath, err)
	}
	var b strings.Builder
	for _, row := range export.List(entries) {
		b.WriteString(row.String())
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func modulate(casFilePath, baseFilePath, baud string) ([]byte, []audio.IndexEntry, audio.Profile, error) {
	profile := audio.DefaultProfile()
	rate, err := strconv.Atoi(baud)
	if err != nil {
		return nil, nil, profile, fmt.Errorf("invalid baud '%s'", baud)
	}
	profile.Baud = rate

	data, err := cas.ReadFile(casFilePath)
	if err != nil {
		return nil, nil, profile, fmt.Errorf("failed to read cas file %s: %w", casFilePath, err)
	}

	// optionally read the .idx file if it exists.
	var idxEntries []idx.IDXEntry
	idxFilePath := baseFilePath + ".idx"
	if _, err := os.Stat(idxFilePath); err == nil {
		idxEntries, err = idx.ReadIDX(idxFilePath)
		if err != nil {
			return nil, nil, profile, fmt.Errorf("failed to parse idx file %s: %w", idxFilePath, err)
		}
	}

	m := audio.NewModulator(audio.WithProfile(profile), audio.WithWorkers(0), audio.WithIndex(idxEntries))
	pcm, indexData, err := m.Modulate(context.Background(), data)
	if err != nil {
		return nil, nil, profile, fmt.Errorf("failed to modulate cas data: %w", err)
	}
	if len(pcm) == 0 {
		return nil, nil, profile, errors.New("processing resulted in no audio samples")
	}
	return pcm, indexData, profile, nil
}
