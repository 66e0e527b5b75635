package audio

import "time"

// Frame represents a single buffer of audio samples flowing through the
// pipeline. Frames are the atomic unit of audio transport — captured from an
// input stream, analysed by the feature extractor, and forwarded unmodified
// to a recording sink while a take is in progress.
type Frame struct {
	// Samples holds normalized mono PCM in [-1, 1].
	Samples []float32

	// SampleRate in Hz (e.g., 48000 for live capture, 44100 for files).
	SampleRate int

	// Timestamp marks when this frame was captured, relative to session
	// start. Monotonic within a session.
	Timestamp time.Duration
}

// Duration returns the wall-clock span covered by the frame's samples.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(f.Samples)) / float64(f.SampleRate) * float64(time.Second))
}

// Device describes an audio input device as reported by the capture
// collaborator. The engine treats it as an opaque descriptor; only ID is
// used for identity.
type Device struct {
	// ID uniquely identifies the device for the lifetime of the process.
	ID string

	// Name is the human-readable device name.
	Name string

	// SampleRate is the device's native capture rate in Hz.
	SampleRate int
}
