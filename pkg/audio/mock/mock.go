// Package mock provides in-memory mock implementations of the
// [audio.Stream], [audio.Capture], and [audio.RecordingSink] interfaces for
// use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so
// that tests can assert on call counts and arguments, and they expose
// exported fields that the test can set to control return values.
//
// Typical usage:
//
//	frames := make(chan audio.Frame, 16)
//	stream := &mock.Stream{FramesResult: frames}
//	capture := &mock.Capture{OpenResult: stream}
//	got, err := capture.Open(ctx, "mic-1")
package mock

import (
	"context"
	"sync"

	"github.com/auralabs/aura/pkg/audio"
)

// ─── Stream ───────────────────────────────────────────────────────────────────

// Stream is a mock implementation of [audio.Stream].
// Set the exported Result fields before use; inspect the Call* fields after.
type Stream struct {
	mu sync.Mutex

	// FramesResult is returned by [Stream.Frames].
	FramesResult chan audio.Frame

	// CloseError is returned by [Stream.Close].
	CloseError error

	// CallCountFrames records how many times Frames was called.
	CallCountFrames int

	// CallCountClose records how many times Close was called.
	CallCountClose int

	closeOnce sync.Once
}

// Frames implements [audio.Stream].
func (s *Stream) Frames() <-chan audio.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountFrames++
	return s.FramesResult
}

// Close implements [audio.Stream]. The first call closes the frames channel.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountClose++
	s.closeOnce.Do(func() {
		if s.FramesResult != nil {
			close(s.FramesResult)
		}
	})
	return s.CloseError
}

// ─── Capture ──────────────────────────────────────────────────────────────────

// Capture is a mock implementation of [audio.Capture].
type Capture struct {
	mu sync.Mutex

	// OpenResult is returned by [Capture.Open] when OpenError is nil.
	OpenResult audio.Stream

	// OpenError is returned by [Capture.Open].
	OpenError error

	// DevicesResult is returned by [Capture.Devices].
	DevicesResult []audio.Device

	// DevicesError is returned by [Capture.Devices].
	DevicesError error

	// CallCountOpen records how many times Open was called.
	CallCountOpen int

	// OpenedDeviceIDs records the device ID of every Open call in order.
	OpenedDeviceIDs []string
}

// Open implements [audio.Capture].
func (c *Capture) Open(_ context.Context, deviceID string) (audio.Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCountOpen++
	c.OpenedDeviceIDs = append(c.OpenedDeviceIDs, deviceID)
	if c.OpenError != nil {
		return nil, c.OpenError
	}
	return c.OpenResult, nil
}

// Devices implements [audio.Capture].
func (c *Capture) Devices(_ context.Context) ([]audio.Device, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.DevicesResult, c.DevicesError
}

// ─── RecordingSink ────────────────────────────────────────────────────────────

// RecordingSink is a mock implementation of [audio.RecordingSink] that
// retains every written frame for inspection.
type RecordingSink struct {
	mu sync.Mutex

	// WriteError is returned by [RecordingSink.Write].
	WriteError error

	// CloseError is returned by [RecordingSink.Close].
	CloseError error

	// DiscardError is returned by [RecordingSink.Discard].
	DiscardError error

	// Written holds every frame passed to Write, in order.
	Written []audio.Frame

	// CallCountClose records how many times Close was called.
	CallCountClose int

	// CallCountDiscard records how many times Discard was called.
	CallCountDiscard int
}

// Write implements [audio.RecordingSink].
func (s *RecordingSink) Write(frame audio.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.WriteError != nil {
		return s.WriteError
	}
	s.Written = append(s.Written, frame)
	return nil
}

// Close implements [audio.RecordingSink].
func (s *RecordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountClose++
	return s.CloseError
}

// Discard implements [audio.RecordingSink].
func (s *RecordingSink) Discard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountDiscard++
	return s.DiscardError
}

// WrittenFrames returns a copy of the frames written so far.
func (s *RecordingSink) WrittenFrames() []audio.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audio.Frame, len(s.Written))
	copy(out, s.Written)
	return out
}
