// Package source provides random-access sample readers for file-backed
// audio.
//
// A [Reader] yields normalized mono samples at arbitrary offsets,
// zero-padded past end-of-stream, so the same extraction call path serves
// both live capture and offline export: the export loop simply reads the
// next buffer-sized window for each frame it renders.
//
// Decoders for concrete container formats (WAV, MP3) register with a
// [Registry] keyed on format name; the whole file is decoded into memory at
// open time, trading memory for the random access and determinism the
// export path requires.
package source

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

var (
	// ErrUnknownFormat is returned by [Registry.Decode] for an unregistered
	// format key.
	ErrUnknownFormat = errors.New("source: unknown format")
)

// Reader is a random-access view of a decoded mono sample stream.
// Implementations are safe for concurrent readers; ReadAt has no cursor.
type Reader interface {
	// ReadAt fills dst with samples starting at offset and returns the
	// number of real samples copied. Positions past the end of the stream
	// are zero-padded, so dst is always fully populated; a negative offset
	// is treated as zero.
	ReadAt(dst []float32, offset int64) int

	// SampleRate of the decoded stream in Hz.
	SampleRate() int

	// Len is the total number of samples in the stream.
	Len() int64

	// Close releases the decoded data.
	Close() error
}

// Decoder constructs a [Reader] from an input stream.
type Decoder interface {
	Decode(r io.Reader) (Reader, error)
}

// Registry maps format keys (e.g., "wav", "mp3") to decoders.
// Safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	codecs map[string]Decoder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Decoder)}
}

// DefaultRegistry returns a registry with the built-in WAV and MP3 decoders
// registered.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	reg.Register("wav", WAVDecoder{})
	reg.Register("mp3", MP3Decoder{})
	return reg
}

// Register adds or replaces the decoder for a format key.
func (r *Registry) Register(format string, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[format] = d
}

// Decode opens a reader for the given format. Returns [ErrUnknownFormat]
// when no decoder is registered for it.
func (r *Registry) Decode(format string, in io.Reader) (Reader, error) {
	r.mu.Lock()
	d, ok := r.codecs[format]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return d.Decode(in)
}

// Formats returns the registered format keys in no particular order.
func (r *Registry) Formats() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.codecs))
	for k := range r.codecs {
		out = append(out, k)
	}
	return out
}
