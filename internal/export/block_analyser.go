// internal/export/block_analyser.go
package export

import (
	"go_cas_packager/internal/audio"
)

// _groupedBlockInfo holds one exportable segment of the signal: a tape file
// (header block plus its data blocks) or a custom block.
type _groupedBlockInfo struct {
	BlockType    string            // "file" or "custom"
	StartEntry   *audio.IndexEntry // first block of the segment
	EndEntry     *audio.IndexEntry // last block of the segment (inclusive)
	BlockEndTime float64           // end of the segment in seconds
	Blocks       int               // number of container blocks in the segment
}

// Tag returns the label of the segment: the idx tag, else the file name.
func (g _groupedBlockInfo) Tag() string {
	return g.StartEntry.Tag()
}

// _groupBlocks splits the block timeline into segments, one per tape file.
// data blocks are attached to the file they belong to; a data block without
// a preceding header of the same file (which Frame never produces) starts a
// segment of its own.
func _groupBlocks(indexData []audio.IndexEntry, sampleRate float64) []_groupedBlockInfo {
	var groups []_groupedBlockInfo
	for i := range indexData {
		current := &indexData[i]
		if n := len(groups); n > 0 && current.Type == "data" && groups[n-1].EndEntry.Entry == current.Entry {
			g := &groups[n-1]
			g.EndEntry = current
			g.BlockEndTime = _calculateEndTime(current, sampleRate)
			g.Blocks++
			continue
		}

		blockType := "file"
		if current.Type == "custom" {
			blockType = "custom"
		}
		groups = append(groups, _groupedBlockInfo{
			BlockType:    blockType,
			StartEntry:   current,
			EndEntry:     current,
			BlockEndTime: _calculateEndTime(current, sampleRate),
			Blocks:       1,
		})
	}
	return groups
}

// _calculateEndTime computes the precise end time of an index entry based on its samples.
func _calculateEndTime(entry *audio.IndexEntry, sampleRate float64) float64 {
	if sampleRate <= 0 || entry == nil {
		if entry != nil {
			return entry.StartTime
		}
		return 0.0
	}
	if entry.EndSample < entry.StartSample {
		return entry.StartTime // treat as zero duration
	}

	// +1 because start/end are inclusive indices
	durationSamples := float64(entry.EndSample - entry.StartSample + 1)
	return entry.StartTime + (durationSamples / sampleRate)
}
