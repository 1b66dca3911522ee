package whisper

import (
	"encoding/binary"
	"fmt"
	"os"
)

// decodeWAVFile reads a RIFF/WAV file containing 16-bit signed little-endian
// PCM and returns its samples as mono float32 in the range [-1, 1], which is
// the input format whisper.cpp expects. Multi-channel audio is downmixed by
// averaging.
func decodeWAVFile(path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("whisper: read wav file: %w", err)
	}
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("whisper: %q is not a RIFF/WAVE file", path)
	}

	var (
		channels      int
		bitsPerSample int
		pcm           []byte
	)

	// Walk the chunk list. Chunks are word-aligned; a chunk with an odd size
	// is followed by one padding byte.
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+size > len(data) {
			return nil, fmt.Errorf("whisper: truncated %q chunk in %q", id, path)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("whisper: malformed fmt chunk in %q", path)
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 { // PCM
				return nil, fmt.Errorf("whisper: unsupported WAV audio format %d (want PCM)", format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			pcm = data[body : body+size]
		}

		off = body + size
		if size%2 == 1 {
			off++
		}
	}

	if pcm == nil {
		return nil, fmt.Errorf("whisper: no data chunk in %q", path)
	}
	if bitsPerSample != 16 {
		return nil, fmt.Errorf("whisper: unsupported bit depth %d (want 16)", bitsPerSample)
	}
	if channels <= 0 {
		channels = 1
	}

	return pcm16ToFloat32Mono(pcm, channels), nil
}

// pcm16ToFloat32Mono converts 16-bit signed little-endian PCM bytes to mono
// float32 samples, averaging across channels.
func pcm16ToFloat32Mono(pcm []byte, channels int) []float32 {
	frames := len(pcm) / 2 / channels
	samples := make([]float32, 0, frames)
	for f := 0; f < frames; f++ {
		var sum float32
		for c := 0; c < channels; c++ {
			i := (f*channels + c) * 2
			s := int16(binary.LittleEndian.Uint16(pcm[i : i+2]))
			sum += float32(s) / 32768.0
		}
		samples = append(samples, sum/float32(channels))
	}
	return samples
}
