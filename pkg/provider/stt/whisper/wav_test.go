package whisper

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// buildWAV assembles a minimal RIFF/WAVE file with a PCM fmt chunk and the
// given 16-bit samples interleaved across channels.
func buildWAV(t *testing.T, channels int, samples []int16) string {
	t.Helper()

	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}

	fmtChunk := make([]byte, 16)
	binary.LittleEndian.PutUint16(fmtChunk[0:], 1) // PCM
	binary.LittleEndian.PutUint16(fmtChunk[2:], uint16(channels))
	binary.LittleEndian.PutUint32(fmtChunk[4:], 16000)
	binary.LittleEndian.PutUint32(fmtChunk[8:], uint32(16000*channels*2))
	binary.LittleEndian.PutUint16(fmtChunk[12:], uint16(channels*2))
	binary.LittleEndian.PutUint16(fmtChunk[14:], 16)

	var buf []byte
	appendChunk := func(id string, body []byte) {
		buf = append(buf, id...)
		size := make([]byte, 4)
		binary.LittleEndian.PutUint32(size, uint32(len(body)))
		buf = append(buf, size...)
		buf = append(buf, body...)
		if len(body)%2 == 1 {
			buf = append(buf, 0)
		}
	}

	header := append([]byte("RIFF"), 0, 0, 0, 0)
	header = append(header, "WAVE"...)
	buf = header
	appendChunk("fmt ", fmtChunk)
	appendChunk("data", pcm)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(buf)-8))

	path := filepath.Join(t.TempDir(), "test.wav")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	return path
}

func TestDecodeWAVFile_Mono(t *testing.T) {
	path := buildWAV(t, 1, []int16{0, 16384, -16384, 32767})

	samples, err := decodeWAVFile(path)
	if err != nil {
		t.Fatalf("decodeWAVFile: %v", err)
	}
	want := []float32{0, 0.5, -0.5, 32767.0 / 32768.0}
	if len(samples) != len(want) {
		t.Fatalf("got %d samples, want %d", len(samples), len(want))
	}
	for i := range want {
		if math.Abs(float64(samples[i]-want[i])) > 1e-6 {
			t.Errorf("sample[%d] = %f, want %f", i, samples[i], want[i])
		}
	}
}

func TestDecodeWAVFile_StereoDownmix(t *testing.T) {
	// One frame: left 16384, right -16384 averages to 0.
	path := buildWAV(t, 2, []int16{16384, -16384})

	samples, err := decodeWAVFile(path)
	if err != nil {
		t.Fatalf("decodeWAVFile: %v", err)
	}
	if len(samples) != 1 {
		t.Fatalf("got %d samples, want 1", len(samples))
	}
	if math.Abs(float64(samples[0])) > 1e-6 {
		t.Errorf("downmixed sample = %f, want 0", samples[0])
	}
}

func TestDecodeWAVFile_NotWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "text.wav")
	if err := os.WriteFile(path, []byte("definitely not audio"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := decodeWAVFile(path); err == nil {
		t.Error("expected an error for a non-WAV file")
	}
}

func TestDecodeWAVFile_Missing(t *testing.T) {
	if _, err := decodeWAVFile("/nonexistent/test.wav"); err == nil {
		t.Error("expected an error for a missing file")
	}
}
