package audio

import (
	"errors"
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVSink is a RecordingSink that writes mono 16-bit PCM WAV files. The
// encoder is created on the first frame, since the stream's sample rate is
// only known once audio arrives.
type WAVSink struct {
	path string
	f    *os.File
	enc  *wav.Encoder
	buf  goaudio.IntBuffer
}

// NewWAVSink creates the output file at path. The file is finalised by Close
// or removed again by Discard.
func NewWAVSink(path string) (*WAVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create recording file: %w", err)
	}
	return &WAVSink{path: path, f: f}, nil
}

// Write implements [RecordingSink].
func (s *WAVSink) Write(frame Frame) error {
	if s.enc == nil {
		s.enc = wav.NewEncoder(s.f, frame.SampleRate, 16, 1, 1)
		s.buf.Format = &goaudio.Format{NumChannels: 1, SampleRate: frame.SampleRate}
		s.buf.SourceBitDepth = 16
	}
	if cap(s.buf.Data) < len(frame.Samples) {
		s.buf.Data = make([]int, len(frame.Samples))
	}
	s.buf.Data = s.buf.Data[:len(frame.Samples)]
	for i, v := range frame.Samples {
		s.buf.Data[i] = int(Clamp1(v) * 32767)
	}
	if err := s.enc.Write(&s.buf); err != nil {
		return fmt.Errorf("write wav frame: %w", err)
	}
	return nil
}

// Close finalises the WAV header and closes the file.
func (s *WAVSink) Close() error {
	var errs []error
	if s.enc != nil {
		if err := s.enc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("finalise wav: %w", err))
		}
	}
	if err := s.f.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Discard closes and removes the partially written file.
func (s *WAVSink) Discard() error {
	return errors.Join(s.f.Close(), os.Remove(s.path))
}

// Path returns the output file location.
func (s *WAVSink) Path() string { return s.path }
