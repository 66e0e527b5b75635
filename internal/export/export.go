// Package export renders a recorded audio file into a frame-by-frame
// sequence of shader states, offline and faster than real time.
//
// The export loop drives a private extractor/engine pair through exactly the
// cadence a live session would have seen: features are extracted once per
// analysis buffer and each 60 Hz physics tick consumes the most recent
// snapshot. With the same seed, the exported trajectory matches the live one.
package export

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/auralabs/aura/internal/observe"
	"github.com/auralabs/aura/pkg/dsp"
	"github.com/auralabs/aura/pkg/orb"
	"github.com/auralabs/aura/pkg/source"
)

// ErrExportActive is returned when an export is requested while another one
// is running. Only one export may be active system-wide; a second request
// fails fast instead of queueing.
var ErrExportActive = errors.New("export: another export is already running")

// frameRate is the render frame rate, locked to the physics tick rate.
const frameRate = orb.UpdateRate

// Sink receives rendered frames. Implementations own the output medium; the
// export loop never touches the filesystem directly.
type Sink interface {
	// WriteFrame persists the shader state for one frame. Frames arrive in
	// order starting at zero.
	WriteFrame(frame int, s orb.ShaderState) error

	// Close finalises the output after the last frame.
	Close() error

	// Discard removes any partially written output after a cancelled or
	// failed export.
	Discard() error
}

// Request describes one export job.
type Request struct {
	// Source provides random-access samples. Reads past the end are
	// zero-padded, so the tail of the file renders as silence.
	Source source.Reader

	// Sink receives the rendered frames.
	Sink Sink

	// Seed must match the seed of the session being reproduced.
	Seed int64

	// MeshDetail is the icosphere subdivision level.
	MeshDetail int

	// BufferSize is the per-extraction sample count and must match the live
	// session's analysis buffer.
	BufferSize int

	// OnProgress, when set, is called with values in [0, 1] as frames are
	// written. Called from the export goroutine.
	OnProgress func(p float64)
}

// Exporter runs export jobs one at a time.
//
// Safe for concurrent use; concurrent Run calls beyond the first fail with
// [ErrExportActive].
type Exporter struct {
	metrics *observe.Metrics
	stats   *observe.FrameStats

	mu     sync.Mutex
	active bool
}

// Option configures an [Exporter].
type Option func(*Exporter)

// WithMetrics uses the given metrics instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Exporter) { e.metrics = m }
}

// WithFrameStats installs a frame timing collector.
func WithFrameStats(fs *observe.FrameStats) Option {
	return func(e *Exporter) { e.stats = fs }
}

// New creates an idle Exporter.
func New(opts ...Option) *Exporter {
	e := &Exporter{}
	for _, o := range opts {
		o(e)
	}
	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}
	return e
}

// Active reports whether an export is currently running.
func (e *Exporter) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Run executes one export job and blocks until it completes, fails, or ctx
// is cancelled. Cancellation is cooperative: the flag is polled between
// frames, partial output is discarded through the sink, and ctx.Err() is
// returned.
func (e *Exporter) Run(ctx context.Context, req Request) error {
	e.mu.Lock()
	if e.active {
		e.mu.Unlock()
		return ErrExportActive
	}
	e.active = true
	e.mu.Unlock()

	ctx, span := observe.StartSpan(ctx, "export.render")
	defer span.End()
	log := observe.Logger(ctx)

	e.metrics.ActiveExports.Add(ctx, 1)
	defer func() {
		e.metrics.ActiveExports.Add(context.WithoutCancel(ctx), -1)
		e.mu.Lock()
		e.active = false
		e.mu.Unlock()
	}()

	if err := req.validate(); err != nil {
		return err
	}

	rate := req.Source.SampleRate()
	totalFrames := int(math.Ceil(float64(req.Source.Len()) / float64(rate) * frameRate))
	if totalFrames == 0 {
		totalFrames = 1
	}

	span.SetAttributes(attribute.Int("frames", totalFrames))
	log.Info("export started",
		"frames", totalFrames,
		"sample_rate", rate,
		"buffer_size", req.BufferSize,
		"seed", req.Seed,
	)

	engine := orb.NewEngine(orb.SphereVertices(req.MeshDetail), req.Seed)
	extractor := dsp.NewExtractor(req.BufferSize)
	buf := make([]float32, req.BufferSize)

	// Replay the live cadence: extract once per analysis buffer, tick at
	// the frame rate reusing the latest snapshot in between.
	features := dsp.Silence()
	var nextExtract int64

	for frame := 0; frame < totalFrames; frame++ {
		if err := ctx.Err(); err != nil {
			return e.abort(ctx, req.Sink, err)
		}

		start := time.Now()
		now := float64(frame) / frameRate

		for int64(now*float64(rate)) >= nextExtract {
			req.Source.ReadAt(buf, nextExtract)
			extractStart := time.Now()
			features = extractor.Extract(buf, rate, float64(nextExtract)/float64(rate))
			e.metrics.RecordFrame(ctx, "export", time.Since(extractStart).Seconds())
			nextExtract += int64(req.BufferSize)
		}

		engine.ApplyFeatures(features)
		engine.Update()

		if err := req.Sink.WriteFrame(frame, engine.ShaderState()); err != nil {
			return e.abort(ctx, req.Sink, fmt.Errorf("export: write frame %d: %w", frame, err))
		}

		elapsed := time.Since(start)
		e.metrics.ExportFrameDuration.Record(ctx, elapsed.Seconds())
		if e.stats != nil {
			e.stats.RecordExportFrame(elapsed)
		}
		if req.OnProgress != nil {
			req.OnProgress(float64(frame+1) / float64(totalFrames))
		}
	}

	if err := req.Sink.Close(); err != nil {
		return fmt.Errorf("export: close sink: %w", err)
	}
	log.Info("export finished", "frames", totalFrames)
	return nil
}

// abort discards partial output and returns cause. A failing discard is
// logged, not returned; the original cause wins.
func (e *Exporter) abort(ctx context.Context, sink Sink, cause error) error {
	log := observe.Logger(ctx)
	trace.SpanFromContext(ctx).RecordError(cause)
	if err := sink.Discard(); err != nil {
		log.Warn("failed to discard partial export output", "err", err)
	}
	log.Info("export aborted", "reason", cause)
	return cause
}

func (r Request) validate() error {
	if r.Source == nil {
		return errors.New("export: request needs a source")
	}
	if r.Sink == nil {
		return errors.New("export: request needs a sink")
	}
	if r.MeshDetail <= 0 {
		return fmt.Errorf("export: invalid mesh detail %d", r.MeshDetail)
	}
	if r.BufferSize < dsp.MinSamples {
		return fmt.Errorf("export: buffer size %d below minimum %d", r.BufferSize, dsp.MinSamples)
	}
	return nil
}
