// internal/audio/tags.go
package audio

import (
	"slices"

	"go_cas_packager/internal/constants"
	"go_cas_packager/internal/idx"
)

// mergeIDXData assigns tags from an external .idx file to rendered blocks.
// for each idx entry it looks for the block that starts a tape file (header
// or custom block) closest to the entry's byte position, within MaxOffset
// bytes. the tag is then copied to the data blocks of the same file.
// indexData is in container order, as produced by Modulate.
func mergeIDXData(indexData []IndexEntry, idxEntries []idx.IDXEntry) []IndexEntry {
	// skip if nothing to merge (no .idx file with entries)
	if len(idxEntries) == 0 || len(indexData) == 0 {
		return indexData
	}

	sorted := slices.Clone(idxEntries)
	slices.SortStableFunc(sorted, func(a, b idx.IDXEntry) int { return a.Position - b.Position })

	k := 0 // index into indexData
	for _, idxEntry := range sorted {
		targetPos := idxEntry.Position
		minPos := targetPos - constants.MaxOffset
		maxPos := targetPos + constants.MaxOffset

		// advance past blocks that end before the window
		for k < len(indexData) && indexData[k].EndPosition < minPos {
			k++
		}

		bestMatchIdx := -1
		minDistance := constants.MaxOffset + 1
		for cur := k; cur < len(indexData); cur++ {
			candidate := &indexData[cur]
			if candidate.StartPosition > maxPos {
				break
			}
			if candidate.Type == "data" {
				continue
			}
			if distance := abs(targetPos - candidate.StartPosition); distance < minDistance {
				minDistance = distance
				bestMatchIdx = cur
			}
		}

		if bestMatchIdx != -1 {
			indexData[bestMatchIdx].IDXTag = idxEntry.Name
		}
	}

	// data blocks inherit the tag of their file
	tags := make(map[int]string)
	for i := range indexData {
		e := &indexData[i]
		if e.Type != "data" {
			tags[e.Entry] = e.IDXTag
			continue
		}
		e.IDXTag = tags[e.Entry]
	}
	return indexData
}

// abs returns the absolute value of the integer x.
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
