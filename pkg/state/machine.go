package state

import (
	"log/slog"
	"sync"
)

// RejectFunc is called when a transition is rejected. It runs on the
// caller's goroutine while no locks are held, so it may safely call back
// into the machine.
type RejectFunc func(cur State, t Transition)

// Machine serialises all state transitions for a session. Every mutation
// goes through [Machine.Apply]; concurrent callers (user actions, device
// events, export progress) are ordered by an internal mutex so that exactly
// one state exists at any time.
//
// Safe for concurrent use.
type Machine struct {
	mu  sync.Mutex
	cur State

	onReject RejectFunc
}

// Option configures a [Machine] during construction.
type Option func(*Machine)

// WithRejectFunc installs a callback invoked for every rejected transition.
func WithRejectFunc(fn RejectFunc) Option {
	return func(m *Machine) { m.onReject = fn }
}

// NewMachine creates a Machine starting in [Idle] with no device selected.
func NewMachine(opts ...Option) *Machine {
	m := &Machine{cur: Idle{}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Current returns the active state.
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur
}

// Apply attempts the transition and reports whether it was accepted. On
// rejection the state is untouched and the reject callback, if any, fires
// with the state that rejected the request.
func (m *Machine) Apply(t Transition) bool {
	m.mu.Lock()
	next, ok := Next(m.cur, t)
	var rejectedFrom State
	if ok {
		slog.Debug("state transition",
			"from", m.cur.Name(),
			"transition", t.Name(),
			"to", next.Name(),
		)
		m.cur = next
	} else {
		rejectedFrom = m.cur
	}
	m.mu.Unlock()

	if !ok {
		slog.Debug("state transition rejected",
			"from", rejectedFrom.Name(),
			"transition", t.Name(),
		)
		if m.onReject != nil {
			m.onReject(rejectedFrom, t)
		}
	}
	return ok
}
