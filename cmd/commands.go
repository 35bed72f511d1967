// cmd/commands.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"go_cas_packager/internal/audio"
	"go_cas_packager/internal/cas"
	"go_cas_packager/internal/export"
	"go_cas_packager/internal/idx"
	"go_cas_packager/internal/loaders"
)

type OutputFormat string

const (
	FormatWAV OutputFormat = "wav"
	FormatPCM OutputFormat = "pcm"
)

// exportOptions holds the flags of the export command.
type exportOptions struct {
	format   string
	baud     int
	rate     int
	workers  int
	csv      bool
	cpk      bool
	writeIdx bool
}

var exportOpts exportOptions

var listCmd = &cobra.Command{
	Use:   "list <cas>",
	Short: "List the files stored in a .cas image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runList(cmd.OutOrStdout(), args[0])
	},
}

var addCmd = &cobra.Command{
	Use:   "add <cas> <files...>",
	Short: "Append host files to a .cas image, creating it if needed",
	Long: `Append host files to a .cas image, creating it if needed.

The file type follows the extension: .bin (BSAVE binary with its 0xFE header),
.bas (tokenised basic, or plain text stored as ascii), .asc (ascii text).
Anything else is stored as a custom block. Names are cut to 6 characters.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAdd(cmd.OutOrStdout(), args[0], args[1:], addAlign)
	},
}

var addAlign bool

var extractDir string

var extractCmd = &cobra.Command{
	Use:   "extract <cas>",
	Short: "Write every file of a .cas image to disk",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExtract(cmd.OutOrStdout(), args[0], extractDir)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <cas> [output]",
	Short: "Convert a .cas image to audio (wav or raw pcm) or a cpk package",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		output := ""
		if len(args) == 2 {
			output = args[1]
		}
		return runExport(cmd.Context(), cmd.OutOrStdout(), args[0], output, exportOpts)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "caspack %s\n", version)
	},
}

func init() {
	addCmd.Flags().BoolVar(&addAlign, "align", false, "Pad blocks to 8 bytes for players that expect aligned sync markers (zero bytes are appended to the last file already on the tape)")
	extractCmd.Flags().StringVarP(&extractDir, "dir", "d", ".", "Destination directory")

	defaults := audio.DefaultProfile()
	f := exportCmd.Flags()
	f.StringVar(&exportOpts.format, "format", string(FormatWAV), "Output format (wav or pcm)")
	f.IntVar(&exportOpts.baud, "baud", defaults.Baud, "Data rate (1200 or 2400)")
	f.IntVar(&exportOpts.rate, "rate", defaults.SampleRate, "Sample rate in Hz")
	f.IntVar(&exportOpts.workers, "workers", 0, "Blocks rendered in parallel (0 = one per CPU)")
	f.BoolVar(&exportOpts.csv, "csv", false, "Generate standalone CSV file (only if --cpk is not set)")
	f.BoolVar(&exportOpts.cpk, "cpk", false, "Create a cpk-package (.cpk archive with wav blocks and csv)")
	f.BoolVar(&exportOpts.writeIdx, "idx", false, "Write an .idx file with the offset of every tape file")
}

// readEntries reads and decodes a container file.
func readEntries(path string) ([]byte, []cas.Entry, error) {
	data, err := cas.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	entries, err := cas.Decode(data)
	if err != nil {
		return nil, nil, fmt.Errorf("error decoding '%s': %w", path, err)
	}
	return data, entries, nil
}

func runList(w io.Writer, path string) error {
	_, entries, err := readEntries(path)
	if err != nil {
		return err
	}
	logger.Debug("listing", "path", path, "entries", len(entries))
	return export.WriteListing(w, export.List(entries))
}

// runAdd appends files to the container at path. a file that cannot be
// loaded is reported and skipped; the others are still added.
func runAdd(w io.Writer, path string, files []string, aligned bool) error {
	existing, exists, err := cas.ReadFileOrEmpty(path)
	if err != nil {
		return err
	}
	if !exists {
		fmt.Fprintf(w, "Creating %s\n", path)
	}

	var (
		entries []cas.Entry
		failed  int
	)
	for _, res := range loaders.LoadFiles(files, logger) {
		if res.Err != nil {
			fmt.Fprintf(w, "Skipping %s: %v\n", res.Path, res.Err)
			failed++
			continue
		}
		if res.Warning != nil {
			fmt.Fprintf(w, "Warning: %v\n", res.Warning)
		}
		fmt.Fprintf(w, "Adding %s as %s\n", res.Path, export.List([]cas.Entry{res.Entry})[0])
		entries = append(entries, res.Entry)
	}

	if len(entries) > 0 || !exists {
		encode := cas.Encode
		if aligned {
			encode = cas.EncodeAligned
		}
		data, err := encode(existing, entries...)
		if err != nil {
			return err
		}
		if err := cas.WriteFile(path, data); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be added", failed, len(files))
	}
	return nil
}

// runExtract writes every entry to dir. failures are reported per file.
func runExtract(w io.Writer, path, dir string) error {
	_, entries, err := readEntries(path)
	if err != nil {
		return err
	}

	var failed int
	for _, res := range export.Extract(entries, dir) {
		if res.Err != nil {
			fmt.Fprintf(w, "Extracting %s... failed: %v\n", res.Name, res.Err)
			failed++
			continue
		}
		fmt.Fprintf(w, "Extracting %s... Done\n", res.Name)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be extracted", failed, len(entries))
	}
	return nil
}

func runExport(ctx context.Context, w io.Writer, path, output string, opts exportOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	outputFormat := OutputFormat(strings.ToLower(opts.format))
	if outputFormat != FormatWAV && outputFormat != FormatPCM {
		return fmt.Errorf("unsupported output format: %s. Use 'wav' or 'pcm'", opts.format)
	}

	baseFilePath := strings.TrimSuffix(path, filepath.Ext(path))
	if output == "" {
		output = baseFilePath + "." + string(outputFormat)
	}
	idxFilePath := baseFilePath + ".idx"

	fmt.Fprintf(w, "Reading CAS file: %s\n", path)
	data, entries, err := readEntries(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%d files, %d bytes\n", len(entries), len(data))

	// an existing .idx file names the blocks; otherwise one can be written
	var idxEntries []idx.IDXEntry
	if _, err := os.Stat(idxFilePath); err == nil {
		idxEntries, err = idx.ReadIDX(idxFilePath)
		if err != nil {
			// idx read error treated as non-fatal
			logger.Warn("ignoring idx file", "path", idxFilePath, "err", err)
			idxEntries = nil
		} else {
			fmt.Fprintf(w, "Read %d entries from IDX file: %s\n", len(idxEntries), idxFilePath)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		logger.Warn("cannot check idx file", "path", idxFilePath, "err", err)
	} else if opts.writeIdx {
		idxEntries, err = idx.FromContainer(data)
		if err != nil {
			return err
		}
		if err := idx.WriteIDX(idxFilePath, idxEntries); err != nil {
			return err
		}
		fmt.Fprintf(w, "Wrote IDX file: %s\n", idxFilePath)
	}

	profile := audio.DefaultProfile()
	profile.Baud = opts.baud
	profile.SampleRate = opts.rate

	m := audio.NewModulator(
		audio.WithProfile(profile),
		audio.WithWorkers(opts.workers),
		audio.WithLogger(logger),
		audio.WithIndex(idxEntries),
		audio.WithProgress(func(e audio.ProgressEvent) {
			fmt.Fprintf(w, "Block %d/%d rendered (%d/%d samples)\n", e.Block, e.Blocks, e.Samples, e.Total)
			logger.Debug("block rendered", "block", e.Block, "of", e.Blocks, "samples", e.Samples, "total", e.Total)
		}),
	)
	fmt.Fprintf(w, "Modulating at %d baud, %d Hz...\n", profile.Baud, profile.SampleRate)
	pcm, indexData, err := m.Modulate(ctx, data)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Generated %d PCM samples (%s) in %d blocks.\n", len(pcm), profile.Duration(len(pcm)), len(indexData))

	if opts.cpk {
		fmt.Fprintf(w, "Creating cpk package: %s.cpk\n", baseFilePath)
		if err := export.SplitAndPackageBlocks(pcm, indexData, baseFilePath, profile, logger); err != nil {
			return fmt.Errorf("error creating cpk package: %w", err)
		}
		return nil
	}

	fmt.Fprintf(w, "Writing audio file: %s (Format: %s)\n", output, outputFormat)
	switch outputFormat {
	case FormatWAV:
		err = audio.WriteWAVFile(output, pcm, profile.SampleRate)
	case FormatPCM:
		err = audio.WritePCMFile(output, pcm)
	}
	if err != nil {
		return err
	}

	if opts.csv {
		csvPath := baseFilePath + ".csv"
		fmt.Fprintf(w, "Writing CSV file: %s\n", csvPath)
		if _, err := export.ExportBlockInfo(indexData, csvPath, float64(profile.SampleRate)); err != nil {
			return err
		}
	}
	return nil
}
