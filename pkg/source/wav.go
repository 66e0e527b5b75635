package source

import (
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/auralabs/aura/pkg/audio"
)

var (
	// ErrNotWAV is returned for input that is not a RIFF/WAVE stream.
	ErrNotWAV = errors.New("source: not a WAV file")
)

// WAVDecoder decodes RIFF/WAVE PCM into a [Reader]. Multi-channel files
// are downmixed to mono by channel averaging.
type WAVDecoder struct{}

// Decode implements [Decoder]. The whole file is decoded eagerly; go-audio
// needs an io.ReadSeeker, so non-seekable input is buffered first.
func (WAVDecoder) Decode(r io.Reader) (Reader, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("source: read wav data: %w", err)
		}
		rs = newByteSeeker(data)
	}

	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotWAV
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("source: decode wav: %w", err)
	}

	samples := normalizePCM(buf, dec.BitDepth)
	if channels := buf.Format.NumChannels; channels > 1 {
		samples = audio.DownmixMono(samples, channels)
	}

	return NewMemReader(samples, buf.Format.SampleRate), nil
}

// normalizePCM converts go-audio integer PCM to float32 in [-1, 1] based
// on the source bit depth.
func normalizePCM(buf *goaudio.IntBuffer, bitDepth uint16) []float32 {
	var maxVal float32
	switch bitDepth {
	case 8:
		maxVal = 128
	case 16:
		maxVal = 32768
	case 24:
		maxVal = 8388608
	case 32:
		maxVal = 2147483648
	default:
		maxVal = 32768
	}

	out := make([]float32, len(buf.Data))
	for i, s := range buf.Data {
		out[i] = float32(s) / maxVal
	}
	return out
}

// byteSeeker is a minimal in-memory io.ReadSeeker over a byte slice.
type byteSeeker struct {
	data   []byte
	offset int64
}

func newByteSeeker(data []byte) *byteSeeker {
	return &byteSeeker{data: data}
}

func (b *byteSeeker) Read(p []byte) (int, error) {
	if b.offset >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[b.offset:])
	b.offset += int64(n)
	return n, nil
}

func (b *byteSeeker) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = b.offset + offset
	case io.SeekEnd:
		abs = int64(len(b.data)) + offset
	default:
		return 0, errors.New("source: invalid seek whence")
	}
	if abs < 0 {
		return 0, errors.New("source: negative seek position")
	}
	b.offset = abs
	return abs, nil
}
