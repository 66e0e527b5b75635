// Package state implements the session state machine for the Aura engine.
//
// A session is always in exactly one [State]: idle, recording, playing back,
// exporting, or failed. State only changes through [Machine.Apply], which
// validates the requested [Transition] against the current state and leaves
// the state untouched when the transition is invalid. Rejections are
// reported through the Apply return value and an optional callback — never
// through panics or errors — so racing callers (a user's stop request
// against a device-disconnect event) degrade to a no-op instead of a fault.
//
// Package state also defines [AuraError], the three-tier error taxonomy that
// collaborator failures are translated into before they reach the engine.
package state

import (
	"time"

	"github.com/auralabs/aura/pkg/audio"
)

// State is the closed set of session states. Exactly one variant is active
// at any time.
type State interface {
	isState()

	// Name returns the variant name for logs and metrics.
	Name() string
}

// Idle is the resting state. Device is nil until a device has been selected;
// recording cannot start without one.
type Idle struct {
	Device *audio.Device
}

// Recording is an active microphone take. Frames are forwarded to the
// recording sink for the duration of this state.
type Recording struct {
	Device    audio.Device
	StartedAt time.Time

	// TakeID names the recording with the persistence collaborator.
	TakeID string
}

// Playing is file playback driving the visualization. Position and Duration
// are in seconds.
type Playing struct {
	// Device is the input device selected before playback began, restored
	// when playback stops.
	Device *audio.Device

	FileRef  string
	Position float64
	Duration float64
	Paused   bool
}

// Exporting is an offline render of a previously played file. Progress is
// in [0, 1]. Resume is the playback state to return to on completion or
// cancellation.
type Exporting struct {
	SourceRef string
	OutputRef string
	Progress  float64
	Resume    Playing
}

// Failed holds the error being presented to the user. Dismissing it returns
// to idle with the previously selected device, when one is known.
type Failed struct {
	Device *audio.Device
	Err    *AuraError
}

func (Idle) isState()      {}
func (Recording) isState() {}
func (Playing) isState()   {}
func (Exporting) isState() {}
func (Failed) isState()    {}

// Name implements [State].
func (Idle) Name() string { return "idle" }

// Name implements [State].
func (Recording) Name() string { return "recording" }

// Name implements [State].
func (Playing) Name() string { return "playing" }

// Name implements [State].
func (Exporting) Name() string { return "exporting" }

// Name implements [State].
func (Failed) Name() string { return "failed" }

// Transition is the closed set of requests that can be applied to a
// [Machine].
type Transition interface {
	isTransition()

	// Name returns the transition name for logs and metrics.
	Name() string
}

// SelectDevice changes the selected input device while idle.
type SelectDevice struct {
	Device *audio.Device
}

// StartRecording begins a take on the currently selected device. Rejected
// when no device is selected.
type StartRecording struct {
	TakeID    string
	StartedAt time.Time
}

// StopRecording ends or cancels the active take and returns to idle with
// the same device.
type StopRecording struct{}

// StartPlayback begins playback of a file, from idle or from another
// playback (replacing it). Position starts at zero, unpaused.
type StartPlayback struct {
	FileRef  string
	Duration float64
}

// Pause pauses active playback. Rejected when already paused.
type Pause struct{}

// Resume resumes paused playback. Rejected when not paused.
type Resume struct{}

// StopPlayback ends playback and returns to idle.
type StopPlayback struct{}

// Seek updates the playback position. Also used for ordinary position
// progress reporting during playback.
type Seek struct {
	Position float64
}

// StartExport begins an offline export of the file currently in playback.
// Only valid from playback.
type StartExport struct {
	OutputRef string
}

// ExportProgress updates export progress in [0, 1].
type ExportProgress struct {
	Progress float64
}

// FinishExport completes or cancels the export and returns to the playback
// state it was started from.
type FinishExport struct {
	Cancelled bool
}

// ReportError moves any state to [Failed].
type ReportError struct {
	Err *AuraError
}

// Dismiss acknowledges a failure and returns to idle.
type Dismiss struct{}

func (SelectDevice) isTransition()   {}
func (StartRecording) isTransition() {}
func (StopRecording) isTransition()  {}
func (StartPlayback) isTransition()  {}
func (Pause) isTransition()          {}
func (Resume) isTransition()         {}
func (StopPlayback) isTransition()   {}
func (Seek) isTransition()           {}
func (StartExport) isTransition()    {}
func (ExportProgress) isTransition() {}
func (FinishExport) isTransition()   {}
func (ReportError) isTransition()    {}
func (Dismiss) isTransition()        {}

// Name implements [Transition].
func (SelectDevice) Name() string { return "select_device" }

// Name implements [Transition].
func (StartRecording) Name() string { return "start_recording" }

// Name implements [Transition].
func (StopRecording) Name() string { return "stop_recording" }

// Name implements [Transition].
func (StartPlayback) Name() string { return "start_playback" }

// Name implements [Transition].
func (Pause) Name() string { return "pause" }

// Name implements [Transition].
func (Resume) Name() string { return "resume" }

// Name implements [Transition].
func (StopPlayback) Name() string { return "stop_playback" }

// Name implements [Transition].
func (Seek) Name() string { return "seek" }

// Name implements [Transition].
func (StartExport) Name() string { return "start_export" }

// Name implements [Transition].
func (ExportProgress) Name() string { return "export_progress" }

// Name implements [Transition].
func (FinishExport) Name() string { return "finish_export" }

// Name implements [Transition].
func (ReportError) Name() string { return "report_error" }

// Name implements [Transition].
func (Dismiss) Name() string { return "dismiss" }

// Next computes the state that results from applying t to cur. The second
// return value reports whether the transition is valid; when false, the
// returned state is cur unchanged.
//
// Next is a pure function: it never mutates its arguments and has no side
// effects, which keeps the full transition table unit-testable without a
// running engine.
func Next(cur State, t Transition) (State, bool) {
	// ReportError is accepted from every state.
	if re, ok := t.(ReportError); ok {
		return Failed{Device: deviceOf(cur), Err: re.Err}, true
	}

	switch s := cur.(type) {
	case Idle:
		switch tr := t.(type) {
		case SelectDevice:
			return Idle{Device: tr.Device}, true
		case StartRecording:
			if s.Device == nil {
				return cur, false
			}
			return Recording{Device: *s.Device, StartedAt: tr.StartedAt, TakeID: tr.TakeID}, true
		case StartPlayback:
			return Playing{Device: s.Device, FileRef: tr.FileRef, Duration: tr.Duration}, true
		}

	case Recording:
		if _, ok := t.(StopRecording); ok {
			dev := s.Device
			return Idle{Device: &dev}, true
		}

	case Playing:
		switch tr := t.(type) {
		case StartPlayback:
			return Playing{Device: s.Device, FileRef: tr.FileRef, Duration: tr.Duration}, true
		case Pause:
			if s.Paused {
				return cur, false
			}
			s.Paused = true
			return s, true
		case Resume:
			if !s.Paused {
				return cur, false
			}
			s.Paused = false
			return s, true
		case StopPlayback:
			return Idle{Device: s.Device}, true
		case Seek:
			s.Position = tr.Position
			return s, true
		case StartExport:
			return Exporting{SourceRef: s.FileRef, OutputRef: tr.OutputRef, Resume: s}, true
		}

	case Exporting:
		switch tr := t.(type) {
		case ExportProgress:
			s.Progress = tr.Progress
			return s, true
		case FinishExport:
			return s.Resume, true
		}

	case Failed:
		if _, ok := t.(Dismiss); ok {
			return Idle{Device: s.Device}, true
		}
	}

	return cur, false
}

// deviceOf extracts the selected device from any state variant, or nil when
// the variant carries none.
func deviceOf(s State) *audio.Device {
	switch v := s.(type) {
	case Idle:
		return v.Device
	case Recording:
		dev := v.Device
		return &dev
	case Playing:
		return v.Device
	case Exporting:
		return v.Resume.Device
	case Failed:
		return v.Device
	}
	return nil
}
