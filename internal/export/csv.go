// internal/export/csv.go

package export

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"go_cas_packager/internal/audio"
)

// ExportBlockInfo generates a formatted, human-readable .csv table with one
// row per tape file, used as the index of a .cpk package.
//
// if an outputPath is provided, the function has the side effect of writing the
// generated data to that file path.
//
// parameters:
//   - indexData: the block timeline returned by the modulator.
//   - outputPath: the file path to write the .csv to. if this string is empty, the function
//     will not write to disk.
//   - sampleRate: the audio sample rate, required for accurately calculating end times.
func ExportBlockInfo(indexData []audio.IndexEntry, outputPath string, sampleRate float64) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %f", sampleRate)
	}

	csvBuffer := new(bytes.Buffer)
	w := tabwriter.NewWriter(csvBuffer, 0, 8, 2, ' ', 0)

	// human-readable table with | as visual separator and a trailing tab
	_, err := fmt.Fprintln(w, "start_time\t|\tend_time\t|\tblock\t|\tidx_tag\t|\thex_start\t|\tblocks\t|\tfile\t")
	if err != nil {
		return nil, fmt.Errorf("error writing csv header: %w", err)
	}

	for n, group := range _groupBlocks(indexData, sampleRate) {
		_, err = fmt.Fprintf(w, "%.6f\t|\t%.6f\t|\t%s\t|\t%s\t|\t0x%08x\t|\t%d\t|\t%s\t\n",
			group.StartEntry.StartTime,
			group.BlockEndTime,
			group.BlockType,
			sanitizeTag(group.Tag()),
			group.StartEntry.StartPosition,
			group.Blocks,
			blockFileName(n, group),
		)
		if err != nil {
			return nil, fmt.Errorf("error writing csv data row %d: %w", n, err)
		}
	}

	if err = w.Flush(); err != nil {
		return nil, fmt.Errorf("error flushing tabwriter: %w", err)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, csvBuffer.Bytes(), 0644); err != nil {
			return nil, fmt.Errorf("error writing csv file %s: %w", outputPath, err)
		}
	}

	return csvBuffer.Bytes(), nil
}

// sanitizeTag keeps tags from breaking the table layout.
func sanitizeTag(tag string) string {
	return strings.NewReplacer("\t", " ", "\n", " ", "|", " ").Replace(tag)
}

// blockFileName names the wav file of a segment inside a .cpk package.
func blockFileName(n int, group _groupedBlockInfo) string {
	return fmt.Sprintf("block_%03d_%s.wav", n, group.BlockType)
}
