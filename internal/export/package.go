// internal/export/package.go

package export

import (
	"archive/tar"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"

	"go_cas_packager/internal/audio"
	"go_cas_packager/internal/constants"
)

// PackageManifest defines the structure for the package_manifest.json file
// included within the .cpk archive.
type PackageManifest struct {
	TargetSystem       string `json:"target_system"`
	Baud               int    `json:"baud"`                  // data rate of the signal
	SampleRate         int    `json:"sample_rate"`           // audio sample rate in hz
	SourceFile         string `json:"source_file"`           // base name of the original .cas file
	Waveform           string `json:"waveform"`              // waveform used for cycles (only square atm)
	AudioBitsPerSample int    `json:"audio_bits_per_sample"` // bits per audio sample
	AudioChannels      int    `json:"audio_channels"`        // number of audio channels
	Files              int    `json:"files"`                 // number of wav files in the package
	CreationTimestamp  string `json:"creation_timestamp"`    // when the cpk file was created
}

// SplitAndPackageBlocks writes baseFilePath.cpk, a gzipped tarball holding a
// manifest (package_manifest.json), the segment index (blocks.csv) and one
// wav file per tape file, cut from pcm along indexData.
func SplitAndPackageBlocks(pcm []byte, indexData []audio.IndexEntry, baseFilePath string, profile audio.Profile, logger *slog.Logger) (err error) {
	if profile.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", profile.SampleRate)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	sampleRate := float64(profile.SampleRate)

	// the wav encoder needs to seek, so segments are staged on disk
	stage, err := os.MkdirTemp("", "cpk-*")
	if err != nil {
		return fmt.Errorf("error creating staging directory: %w", err)
	}
	defer os.RemoveAll(stage)

	outPath := baseFilePath + ".cpk"
	file, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("error creating output file %s: %w", outPath, err)
	}
	defer func() {
		if closeErr := file.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("error closing output file %s: %w", outPath, closeErr)
		}
	}()

	gzWriter, err := gzip.NewWriterLevel(file, 7)
	if err != nil {
		return fmt.Errorf("error creating gzip writer: %w", err)
	}
	tarWriter := tar.NewWriter(gzWriter)
	defer func() {
		if tarCloseErr := tarWriter.Close(); err == nil && tarCloseErr != nil {
			err = fmt.Errorf("error closing tar writer: %w", tarCloseErr)
		}
		if gzCloseErr := gzWriter.Close(); err == nil && gzCloseErr != nil {
			err = fmt.Errorf("error closing gzip writer: %w", gzCloseErr)
		}
	}()

	groups := _groupBlocks(indexData, sampleRate)
	now := time.Now()

	manifest := PackageManifest{
		TargetSystem:       "msx",
		Baud:               profile.Baud,
		SampleRate:         profile.SampleRate,
		SourceFile:         filepath.Base(baseFilePath + ".cas"),
		Waveform:           "square",
		AudioBitsPerSample: constants.WAVBitsPerSample,
		AudioChannels:      constants.WAVChannels,
		Files:              len(groups),
		CreationTimestamp:  now.UTC().Format(time.RFC3339),
	}
	manifestData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling manifest to json: %w", err)
	}
	if err = writeTarEntry(tarWriter, "package_manifest.json", manifestData, now); err != nil {
		return err
	}

	csvData, err := ExportBlockInfo(indexData, "", sampleRate)
	if err != nil {
		return fmt.Errorf("error generating csv data for package: %w", err)
	}

	for n, group := range groups {
		name := blockFileName(n, group)
		start, end := group.StartEntry.StartSample, group.EndEntry.EndSample+1
		if start < 0 || end > len(pcm) || end <= start {
			return fmt.Errorf("segment %s has invalid sample range %d-%d (pcm len %d)", name, start, end, len(pcm))
		}

		staged := filepath.Join(stage, name)
		if err = audio.WriteWAVFile(staged, pcm[start:end], profile.SampleRate); err != nil {
			return err
		}
		if err = copyTarEntry(tarWriter, name, staged, now); err != nil {
			return err
		}
		logger.Debug("packaged segment", "file", name, "tag", group.Tag(), "blocks", group.Blocks, "samples", end-start)
	}

	if err = writeTarEntry(tarWriter, "blocks.csv", csvData, now); err != nil {
		return err
	}

	logger.Info("created package", "path", outPath, "files", len(groups))
	return nil
}

func writeTarEntry(tw *tar.Writer, name string, data []byte, modTime time.Time) error {
	header := &tar.Header{Name: name, Size: int64(len(data)), Mode: 0644, ModTime: modTime}
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("error writing tar header for %s: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("error writing %s to tar: %w", name, err)
	}
	return nil
}

func copyTarEntry(tw *tar.Writer, name, path string, modTime time.Time) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening staged %s: %w", name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("error reading staged %s: %w", name, err)
	}
	header := &tar.Header{Name: name, Size: info.Size(), Mode: 0644, ModTime: modTime}
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("error writing tar header for %s: %w", name, err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("error writing %s to tar: %w", name, err)
	}
	return nil
}
