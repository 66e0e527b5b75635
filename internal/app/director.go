// Package app wires the Aura subsystems into a running engine.
//
// The [Director] is the single logical owner of the session: every state
// transition goes through it, it runs the fixed-timestep physics loop, and
// it holds the latest audio feature snapshot. Producers (capture, playback,
// device events) never touch the engine directly — they offer snapshots and
// request transitions, and the Director serializes everything.
//
// [App] owns the full lifecycle: New creates and connects the subsystems,
// Run executes the loops, and Shutdown tears everything down in order.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/auralabs/aura/internal/health"
	"github.com/auralabs/aura/internal/observe"
	"github.com/auralabs/aura/pkg/dsp"
	"github.com/auralabs/aura/pkg/orb"
	"github.com/auralabs/aura/pkg/state"
)

// tickInterval is the physics step period.
const tickInterval = time.Second / time.Duration(orb.UpdateRate)

// maxCatchUp caps the accumulator so a stalled scheduler does not trigger a
// burst of catch-up ticks.
const maxCatchUp = 250 * time.Millisecond

// heartbeatMaxAge is how long the physics loop may stall before the
// readiness probe reports it.
const heartbeatMaxAge = time.Second

// Director serializes all session mutations and drives the physics engine
// at a fixed 60 Hz from the most recent audio feature snapshot.
//
// Feature snapshots follow a most-recent-wins policy: there is no queue
// between the audio producer and the physics loop. When physics ticks faster
// than audio produces, the prior snapshot is reused; when audio produces
// faster, intermediate snapshots are superseded and counted, not processed.
//
// Safe for concurrent use.
type Director struct {
	machine *state.Machine
	metrics *observe.Metrics
	stats   *observe.FrameStats
	beat    *health.Heartbeat

	// engineMu guards the engine: Step mutates it from the loop goroutine
	// while renderers read ShaderState and Vertices concurrently.
	engineMu sync.Mutex
	engine   *orb.Engine

	mu     sync.Mutex
	latest dsp.Features
	fresh  bool
}

// DirectorOption configures a [Director] during construction.
type DirectorOption func(*Director)

// WithMetrics uses the given metrics instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) DirectorOption {
	return func(d *Director) { d.metrics = m }
}

// WithFrameStats installs a frame timing collector.
func WithFrameStats(fs *observe.FrameStats) DirectorOption {
	return func(d *Director) { d.stats = fs }
}

// NewDirector creates a Director around the given engine, starting in the
// idle state with a silent feature slot.
func NewDirector(engine *orb.Engine, opts ...DirectorOption) *Director {
	d := &Director{
		engine: engine,
		latest: dsp.Silence(),
		beat:   health.NewHeartbeat("director", heartbeatMaxAge),
	}
	for _, o := range opts {
		o(d)
	}
	if d.metrics == nil {
		d.metrics = observe.DefaultMetrics()
	}
	d.machine = state.NewMachine(state.WithRejectFunc(func(_ state.State, t state.Transition) {
		d.metrics.RecordRejectedTransition(context.Background(), t.Name())
	}))
	return d
}

// Apply requests a state transition and reports whether it was accepted.
func (d *Director) Apply(t state.Transition) bool {
	return d.machine.Apply(t)
}

// Current returns the active session state.
func (d *Director) Current() state.State {
	return d.machine.Current()
}

// OfferFeatures hands the Director a fresh feature snapshot. If the previous
// snapshot was never consumed by a physics tick it is superseded.
func (d *Director) OfferFeatures(f dsp.Features) {
	d.mu.Lock()
	superseded := d.fresh
	d.latest = f
	d.fresh = true
	d.mu.Unlock()

	if superseded {
		d.metrics.SnapshotsSuperseded.Add(context.Background(), 1)
		if d.stats != nil {
			d.stats.IncrSuperseded()
		}
	}
	if f.OnsetDetected {
		d.metrics.OnsetsDetected.Add(context.Background(), 1)
		if d.stats != nil {
			d.stats.IncrOnsets()
		}
	}
}

// snapshot returns the current feature slot, marking it consumed.
func (d *Director) snapshot() dsp.Features {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fresh = false
	return d.latest
}

// driving reports whether the current state lets audio features reach the
// live engine. While exporting, the live orb idles; the export loop drives
// its own engine instance.
func (d *Director) driving() bool {
	switch d.machine.Current().(type) {
	case state.Recording:
		return true
	case state.Playing:
		return true
	}
	return false
}

// Step advances the simulation by exactly one tick. Exposed so offline
// callers and tests can drive the loop without wall-clock time.
func (d *Director) Step(ctx context.Context) {
	f := d.snapshot()
	if !d.driving() {
		f = dsp.Silence()
	}

	start := time.Now()
	d.engineMu.Lock()
	d.engine.ApplyFeatures(f)
	d.engine.Update()
	d.engineMu.Unlock()
	elapsed := time.Since(start)

	d.metrics.PhysicsTickDuration.Record(ctx, elapsed.Seconds())
	if d.stats != nil {
		d.stats.RecordPhysics(elapsed)
	}
	d.beat.Beat()
}

// Run executes the fixed-timestep loop until ctx is cancelled. Time is
// accumulated between wakeups and consumed in whole ticks, so a late wakeup
// yields catch-up steps rather than a slow simulation.
func (d *Director) Run(ctx context.Context) error {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	last := time.Now()
	var acc time.Duration
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			acc += now.Sub(last)
			last = now
			if acc > maxCatchUp {
				acc = maxCatchUp
			}
			for acc >= tickInterval {
				d.Step(ctx)
				acc -= tickInterval
			}
		}
	}
}

// ShaderState returns the renderer-facing snapshot of the live engine.
func (d *Director) ShaderState() orb.ShaderState {
	d.engineMu.Lock()
	defer d.engineMu.Unlock()
	return d.engine.ShaderState()
}

// Vertices returns a copy of the live engine's vertex state.
func (d *Director) Vertices() []orb.Vertex {
	d.engineMu.Lock()
	defer d.engineMu.Unlock()
	return d.engine.Vertices()
}

// Heartbeat exposes the loop's liveness signal for readiness checks.
func (d *Director) Heartbeat() *health.Heartbeat {
	return d.beat
}
