package source

import (
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/auralabs/aura/pkg/audio"
)

// MP3Decoder decodes MPEG audio into a [Reader]. go-mp3 always outputs
// 16-bit little-endian stereo, which is downmixed to mono.
type MP3Decoder struct{}

// Decode implements [Decoder]. The whole stream is decoded eagerly.
func (MP3Decoder) Decode(r io.Reader) (Reader, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("source: decode mp3: %w", err)
	}

	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("source: read mp3 stream: %w", err)
	}

	samples := audio.DownmixMono(audio.DecodePCM16(data), 2)
	return NewMemReader(samples, dec.SampleRate()), nil
}
