// internal/audio/wav.go
package audio

import (
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"go_cas_packager/internal/constants"
)

// wavChunk is the number of samples handed to the encoder per write.
const wavChunk = 64 * 1024

// WriteWAV writes pcm as an 8-bit mono wav stream. the encoder seeks back to
// fill in the chunk sizes, hence the io.WriteSeeker.
func WriteWAV(w io.WriteSeeker, pcm []byte, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, constants.WAVBitsPerSample, constants.WAVChannels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: constants.WAVChannels, SampleRate: sampleRate},
		SourceBitDepth: constants.WAVBitsPerSample,
		Data:           make([]int, 0, min(len(pcm), wavChunk)),
	}

	// the first write also emits the header, so it happens even for an
	// empty signal
	for start := 0; start == 0 || start < len(pcm); start += wavChunk {
		end := min(start+wavChunk, len(pcm))
		buf.Data = buf.Data[:0]
		for _, s := range pcm[start:end] {
			buf.Data = append(buf.Data, int(s))
		}
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("error writing wav data: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("error finalising wav: %w", err)
	}
	return nil
}

// WriteWAVFile creates a wav file from pcm data
func WriteWAVFile(filename string, pcm []byte, sampleRate int) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("error creating wav file '%s': %w", filename, err)
	}
	defer file.Close()

	if err := WriteWAV(file, pcm, sampleRate); err != nil {
		return fmt.Errorf("wav file '%s': %w", filename, err)
	}
	return file.Close()
}

// WritePCMFile writes the raw samples without a header.
func WritePCMFile(filename string, pcm []byte) error {
	if err := os.WriteFile(filename, pcm, 0644); err != nil {
		return fmt.Errorf("error writing pcm file '%s': %w", filename, err)
	}
	return nil
}
