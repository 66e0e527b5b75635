package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/auralabs/aura/pkg/audio"
	"github.com/auralabs/aura/pkg/state"
)

// Devices tracks the available input devices and the current selection. It
// is constructed explicitly and injected where needed; device changes are
// published into the Director as transitions rather than mutated in place,
// so a hardware disconnect and a user action cannot race.
//
// Safe for concurrent use.
type Devices struct {
	capture  audio.Capture
	director *Director

	mu   sync.Mutex
	list []audio.Device
}

// NewDevices creates the device registry for the given capture collaborator.
func NewDevices(capture audio.Capture, director *Director) *Devices {
	return &Devices{capture: capture, director: director}
}

// Refresh re-enumerates input devices. If the selected device disappeared,
// it publishes a transient device-disconnect error into the Director.
func (ds *Devices) Refresh(ctx context.Context) error {
	list, err := ds.capture.Devices(ctx)
	if err != nil {
		return fmt.Errorf("devices: enumerate: %w", err)
	}

	ds.mu.Lock()
	ds.list = list
	ds.mu.Unlock()

	if len(list) == 0 {
		ds.director.Apply(state.ReportError{Err: state.Blocking(
			state.CodeNoInputDevices,
			"no input devices found",
			nil,
		)})
		return nil
	}

	if sel := ds.Selected(); sel != nil && !containsDevice(list, sel.ID) {
		slog.Warn("selected device disconnected", "device", sel.ID)
		ds.director.Apply(state.ReportError{Err: state.Transient(
			state.CodeDeviceDisconnect,
			fmt.Sprintf("input device %q disconnected", sel.Name),
			nil,
		)})
	}
	return nil
}

// List returns a copy of the last enumerated device list.
func (ds *Devices) List() []audio.Device {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	out := make([]audio.Device, len(ds.list))
	copy(out, ds.list)
	return out
}

// Selected returns the device carried by the current session state, or nil
// when none is selected.
func (ds *Devices) Selected() *audio.Device {
	switch s := ds.director.Current().(type) {
	case state.Idle:
		return s.Device
	case state.Recording:
		dev := s.Device
		return &dev
	case state.Playing:
		return s.Device
	case state.Failed:
		return s.Device
	}
	return nil
}

// Select picks an input device by ID. Selection is only valid while idle;
// an unknown ID or a rejected transition yields a recoverable error.
func (ds *Devices) Select(id string) error {
	ds.mu.Lock()
	var found *audio.Device
	for i := range ds.list {
		if ds.list[i].ID == id {
			dev := ds.list[i]
			found = &dev
			break
		}
	}
	ds.mu.Unlock()

	if found == nil {
		return state.Recoverable(
			state.CodeDeviceUnavailable,
			fmt.Sprintf("unknown input device %q", id),
			"refresh devices and pick one from the list",
			nil,
		)
	}
	if !ds.director.Apply(state.SelectDevice{Device: found}) {
		return state.Recoverable(
			state.CodeDeviceUnavailable,
			"device can only be changed while idle",
			"stop the current activity first",
			nil,
		)
	}
	slog.Info("input device selected", "device", found.ID, "name", found.Name)
	return nil
}

func containsDevice(list []audio.Device, id string) bool {
	for _, d := range list {
		if d.ID == id {
			return true
		}
	}
	return false
}
