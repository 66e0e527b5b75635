package source

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func TestMemReader_ReadAt(t *testing.T) {
	t.Parallel()

	r := NewMemReader([]float32{0.1, 0.2, 0.3, 0.4, 0.5}, 48000)

	dst := make([]float32, 3)
	if n := r.ReadAt(dst, 1); n != 3 {
		t.Errorf("n = %d, want 3", n)
	}
	if dst[0] != 0.2 || dst[2] != 0.4 {
		t.Errorf("dst = %v, want [0.2 0.3 0.4]", dst)
	}
}

func TestMemReader_ZeroPadsPastEnd(t *testing.T) {
	t.Parallel()

	r := NewMemReader([]float32{0.1, 0.2, 0.3}, 48000)

	// Straddling the end: one real sample, three zeros.
	dst := []float32{9, 9, 9, 9}
	if n := r.ReadAt(dst, 2); n != 1 {
		t.Errorf("n = %d, want 1", n)
	}
	if dst[0] != 0.3 || dst[1] != 0 || dst[3] != 0 {
		t.Errorf("dst = %v, want [0.3 0 0 0]", dst)
	}

	// Entirely past the end: all zeros.
	dst = []float32{9, 9}
	if n := r.ReadAt(dst, 100); n != 0 {
		t.Errorf("n = %d, want 0", n)
	}
	if dst[0] != 0 || dst[1] != 0 {
		t.Errorf("dst = %v, want zeros", dst)
	}
}

func TestMemReader_NegativeOffset(t *testing.T) {
	t.Parallel()

	r := NewMemReader([]float32{0.5, 0.6}, 48000)
	dst := make([]float32, 2)
	if n := r.ReadAt(dst, -10); n != 2 {
		t.Errorf("n = %d, want 2", n)
	}
	if dst[0] != 0.5 {
		t.Errorf("dst[0] = %v, want 0.5", dst[0])
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	reg := DefaultRegistry()
	formats := reg.Formats()
	if len(formats) != 2 {
		t.Errorf("Formats() = %v, want wav and mp3", formats)
	}

	_, err := reg.Decode("flac", bytes.NewReader(nil))
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Decode(flac) err = %v, want ErrUnknownFormat", err)
	}
}

// writeWAV16 builds a minimal mono 16-bit PCM WAV stream in memory.
func writeWAV16(sampleRate int, samples []int16) []byte {
	var buf bytes.Buffer
	dataSize := uint32(len(samples) * 2)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataSize)
	binary.Write(&buf, binary.LittleEndian, samples)
	return buf.Bytes()
}

func TestWAVDecoder_RoundTrip(t *testing.T) {
	t.Parallel()

	samples := []int16{0, 16384, -16384, 32767, -32768}
	data := writeWAV16(44100, samples)

	r, err := WAVDecoder{}.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	defer r.Close()

	if r.SampleRate() != 44100 {
		t.Errorf("SampleRate = %d, want 44100", r.SampleRate())
	}
	if r.Len() != int64(len(samples)) {
		t.Errorf("Len = %d, want %d", r.Len(), len(samples))
	}

	dst := make([]float32, len(samples))
	r.ReadAt(dst, 0)
	want := []float64{0, 0.5, -0.5, 32767.0 / 32768.0, -1}
	for i := range want {
		if math.Abs(float64(dst[i])-want[i]) > 1e-4 {
			t.Errorf("sample %d = %v, want %v", i, dst[i], want[i])
		}
	}
}

func TestWAVDecoder_RejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := WAVDecoder{}.Decode(bytes.NewReader([]byte("definitely not a wav file")))
	if err == nil {
		t.Fatal("Decode of garbage should fail")
	}
}

func TestWAVDecoder_NonSeekableInput(t *testing.T) {
	t.Parallel()

	data := writeWAV16(22050, []int16{100, 200, 300})

	// An io.Reader that is not an io.ReadSeeker.
	r, err := WAVDecoder{}.Decode(onlyReader{bytes.NewReader(data)})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	defer r.Close()
	if r.Len() != 3 {
		t.Errorf("Len = %d, want 3", r.Len())
	}
}

type onlyReader struct{ r *bytes.Reader }

func (o onlyReader) Read(p []byte) (int, error) { return o.r.Read(p) }
