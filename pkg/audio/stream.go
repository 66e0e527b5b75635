// Package audio defines the frame types and collaborator interfaces that
// connect the Aura engine to its platform-specific neighbours: microphone
// capture, speaker playback, and recording persistence.
//
// The engine itself never opens devices or touches file formats. Capture and
// persistence are injected as implementations of [Stream] and
// [RecordingSink]; the package ships mocks under audio/mock for tests.
package audio

import "context"

// Stream is a live source of audio frames, typically backed by a microphone
// owned by the capture collaborator. Frames arrive at the collaborator's
// native buffer cadence; the engine imposes no pacing of its own.
//
// Implementations must close the Frames channel when the stream ends, either
// because Close was called or because the underlying device disappeared.
type Stream interface {
	// Frames returns the channel on which captured frames are delivered.
	// The same channel is returned on every call.
	Frames() <-chan Frame

	// Close stops capture and releases the device. After Close the Frames
	// channel is closed once any buffered frames have been delivered.
	// Calling Close more than once is safe and returns nil.
	Close() error
}

// Capture opens live streams for a selected device. It is the factory half
// of the capture collaborator.
type Capture interface {
	// Open starts capturing from the device with the given ID. The returned
	// stream delivers frames until Close is called or the device disconnects.
	Open(ctx context.Context, deviceID string) (Stream, error)

	// Devices lists the currently available input devices.
	Devices(ctx context.Context) ([]Device, error)
}

// RecordingSink receives raw frames during recording. The engine forwards
// frames unmodified; container formats, encoding, and file paths are the
// sink's concern.
type RecordingSink interface {
	// Write persists one frame. Called from the capture goroutine and must
	// not block for longer than a frame period.
	Write(frame Frame) error

	// Close finalises the recording. After Close, Write must return an error.
	Close() error

	// Discard abandons the recording and removes any partial output.
	Discard() error
}
