package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/auralabs/aura/internal/config"
	"github.com/auralabs/aura/internal/export"
	"github.com/auralabs/aura/internal/health"
	"github.com/auralabs/aura/internal/observe"
	"github.com/auralabs/aura/pkg/audio"
	"github.com/auralabs/aura/pkg/dsp"
	"github.com/auralabs/aura/pkg/orb"
	"github.com/auralabs/aura/pkg/source"
	"github.com/auralabs/aura/pkg/state"
)

// RecordingSinkFactory creates the persistence sink for a new take.
type RecordingSinkFactory func(takeID string) (audio.RecordingSink, error)

// ExportSinkFactory creates the output sink for an export job.
type ExportSinkFactory func(outputRef string) (export.Sink, error)

// App owns all subsystem lifetimes and orchestrates the engine: device
// registry, capture and playback producers, the Director loop, the export
// loop, and the diagnostics HTTP server.
type App struct {
	cfg      *config.Config
	capture  audio.Capture
	registry *source.Registry

	director *Director
	devices  *Devices
	exporter *export.Exporter
	metrics  *observe.Metrics
	stats    *observe.FrameStats

	recSinks    RecordingSinkFactory
	exportSinks ExportSinkFactory

	mu           sync.Mutex
	stream       audio.Stream
	recSink      audio.RecordingSink
	playCancel   context.CancelFunc
	exportCancel context.CancelFunc

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject collaborators
// and test doubles.
type Option func(*App)

// WithRecordingSinks installs the factory that persists raw takes. Without
// one, recording still drives the orb but nothing is written.
func WithRecordingSinks(f RecordingSinkFactory) Option {
	return func(a *App) { a.recSinks = f }
}

// WithExportSinks installs the factory that receives exported frames.
func WithExportSinks(f ExportSinkFactory) Option {
	return func(a *App) { a.exportSinks = f }
}

// WithAppMetrics uses the given metrics instead of [observe.DefaultMetrics].
func WithAppMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The capture
// collaborator provides live audio; the registry decodes file sources.
func New(cfg *config.Config, capture audio.Capture, registry *source.Registry, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	if capture == nil {
		return nil, errors.New("app: capture collaborator is required")
	}
	if registry == nil {
		registry = source.DefaultRegistry()
	}

	a := &App{
		cfg:      cfg,
		capture:  capture,
		registry: registry,
		stats:    observe.NewFrameStats(120),
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	engine := orb.NewEngine(orb.SphereVertices(cfg.Orb.MeshDetail), cfg.Orb.Seed)
	a.director = NewDirector(engine, WithMetrics(a.metrics), WithFrameStats(a.stats))
	a.devices = NewDevices(capture, a.director)
	a.exporter = export.New(export.WithMetrics(a.metrics), export.WithFrameStats(a.stats))

	slog.Info("engine initialised",
		"vertices", engine.VertexCount(),
		"mesh_detail", cfg.Orb.MeshDetail,
		"seed", cfg.Orb.Seed,
		"buffer_size", cfg.Audio.BufferSize,
	)
	return a, nil
}

// Director exposes the session owner for renderers and UI collaborators.
func (a *App) Director() *Director { return a.director }

// Devices exposes the input device registry.
func (a *App) Devices() *Devices { return a.devices }

// FrameStats exposes the frame timing collector for diagnostics display.
func (a *App) FrameStats() *observe.FrameStats { return a.stats }

// AddCloser registers fn to be called during Shutdown, after the capture and
// playback producers have stopped. Closers run in registration order.
func (a *App) AddCloser(fn func() error) {
	a.closers = append(a.closers, fn)
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run enumerates devices, starts the Director loop and the diagnostics
// server, and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.devices.Refresh(ctx); err != nil {
		slog.Warn("initial device enumeration failed", "err", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.director.Run(ctx)
	})

	if addr := a.cfg.Server.MetricsAddr; addr != "" {
		g.Go(func() error {
			return a.serveDiagnostics(ctx, addr)
		})
	}

	slog.Info("app running")
	return g.Wait()
}

// serveDiagnostics runs the /metrics, /healthz and /readyz endpoints until
// ctx is cancelled.
func (a *App) serveDiagnostics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(a.director.Heartbeat().Checker()).Register(mux)

	srv := &http.Server{Addr: addr, Handler: observe.Middleware(a.metrics)(mux)}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("diagnostics server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("app: diagnostics server: %w", err)
	}
}

// ─── Recording ───────────────────────────────────────────────────────────────

// StartRecording opens the selected input device and begins a take. Frames
// drive the orb and, when a recording sink factory is installed, are
// forwarded unmodified to the sink.
func (a *App) StartRecording(ctx context.Context) error {
	dev := a.devices.Selected()
	if dev == nil {
		return state.Recoverable(
			state.CodeDeviceUnavailable,
			"no input device selected",
			"select an input device first",
			nil,
		)
	}

	stream, err := a.capture.Open(ctx, dev.ID)
	if err != nil {
		aerr := state.Translate(err)
		a.director.Apply(state.ReportError{Err: aerr})
		return aerr
	}

	takeID := uuid.NewString()
	var sink audio.RecordingSink
	if a.recSinks != nil {
		sink, err = a.recSinks(takeID)
		if err != nil {
			_ = stream.Close()
			go audio.Drain(stream.Frames())
			aerr := state.Translate(err)
			a.director.Apply(state.ReportError{Err: aerr})
			return aerr
		}
	}

	if !a.director.Apply(state.StartRecording{TakeID: takeID, StartedAt: time.Now()}) {
		_ = stream.Close()
		go audio.Drain(stream.Frames())
		if sink != nil {
			_ = sink.Discard()
		}
		return state.Recoverable(
			state.CodeDeviceUnavailable,
			"cannot start recording in the current state",
			"stop the current activity first",
			nil,
		)
	}

	a.mu.Lock()
	a.stream = stream
	a.recSink = sink
	a.mu.Unlock()

	go a.captureLoop(ctx, stream, sink)
	slog.Info("recording started", "take", takeID, "device", dev.ID)
	return nil
}

// captureLoop consumes live frames until the stream closes: every frame is
// analysed and offered to the Director, and forwarded to the sink while the
// take is active. Each take gets its own extractor, so smoothing state never
// leaks between sessions.
func (a *App) captureLoop(ctx context.Context, stream audio.Stream, sink audio.RecordingSink) {
	extractor := dsp.NewExtractor(a.cfg.Audio.BufferSize)
	for frame := range stream.Frames() {
		start := time.Now()
		f := extractor.Extract(frame.Samples, frame.SampleRate, frame.Timestamp.Seconds())
		elapsed := time.Since(start)

		a.metrics.RecordFrame(ctx, "live", elapsed.Seconds())
		a.stats.RecordAnalysis(elapsed)
		a.director.OfferFeatures(f)

		if sink == nil {
			continue
		}
		if _, recording := a.director.Current().(state.Recording); !recording {
			continue
		}
		if err := sink.Write(frame); err != nil {
			aerr := state.Translate(err)
			a.director.Apply(state.ReportError{Err: aerr})
			a.stopCapture(false)
			// Streams may keep delivering buffered frames until they notice
			// the close; drain them so the producer can finish.
			go audio.Drain(stream.Frames())
			return
		}
	}

	// Stream ended. If the take is still active this is a hardware-side
	// disconnect, not a user stop.
	if _, recording := a.director.Current().(state.Recording); recording {
		a.director.Apply(state.ReportError{Err: state.Transient(
			state.CodeDeviceDisconnect,
			"input stream ended unexpectedly",
			nil,
		)})
		a.stopCapture(false)
	}
	a.director.OfferFeatures(dsp.Silence())
}

// StopRecording ends the active take and finalises the recording sink.
func (a *App) StopRecording() error {
	if !a.director.Apply(state.StopRecording{}) {
		return state.Recoverable(
			state.CodeInternal,
			"no recording in progress",
			"",
			nil,
		)
	}
	a.stopCapture(true)
	slog.Info("recording stopped")
	return nil
}

// stopCapture closes the live stream and sink. keep decides whether the
// sink's output is finalised or discarded.
func (a *App) stopCapture(keep bool) {
	a.mu.Lock()
	stream, sink := a.stream, a.recSink
	a.stream, a.recSink = nil, nil
	a.mu.Unlock()

	if stream != nil {
		if err := stream.Close(); err != nil {
			slog.Warn("stream close error", "err", err)
		}
	}
	if sink == nil {
		return
	}
	var err error
	if keep {
		err = sink.Close()
	} else {
		err = sink.Discard()
	}
	if err != nil {
		slog.Warn("recording sink close error", "err", err, "kept", keep)
	}
}

// ─── Playback ────────────────────────────────────────────────────────────────

// Play decodes the file at path and starts playback driving the orb.
func (a *App) Play(ctx context.Context, path string) error {
	reader, err := a.openSource(path)
	if err != nil {
		aerr := state.Translate(err)
		a.director.Apply(state.ReportError{Err: aerr})
		return aerr
	}

	duration := float64(reader.Len()) / float64(reader.SampleRate())
	if !a.director.Apply(state.StartPlayback{FileRef: path, Duration: duration}) {
		_ = reader.Close()
		return state.Recoverable(
			state.CodeInternal,
			"cannot start playback in the current state",
			"stop the current activity first",
			nil,
		)
	}

	// Replace any previous playback loop.
	playCtx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	if a.playCancel != nil {
		a.playCancel()
	}
	a.playCancel = cancel
	a.mu.Unlock()

	go a.playbackLoop(playCtx, path, reader)
	slog.Info("playback started", "file", path, "duration_s", duration)
	return nil
}

// Pause pauses active playback.
func (a *App) Pause() bool { return a.director.Apply(state.Pause{}) }

// Resume resumes paused playback.
func (a *App) Resume() bool { return a.director.Apply(state.Resume{}) }

// Seek moves the playback position, in seconds.
func (a *App) Seek(position float64) bool {
	return a.director.Apply(state.Seek{Position: position})
}

// StopPlayback ends playback and returns to idle.
func (a *App) StopPlayback() bool {
	ok := a.director.Apply(state.StopPlayback{})
	if ok {
		a.cancelPlaybackLoop()
	}
	return ok
}

// playbackLoop feeds file samples through the extractor at the analysis
// buffer cadence. Position always comes from the session state, so user
// seeks take effect on the next buffer.
func (a *App) playbackLoop(ctx context.Context, fileRef string, reader source.Reader) {
	defer func() {
		if err := reader.Close(); err != nil {
			slog.Warn("source close error", "err", err)
		}
		a.director.OfferFeatures(dsp.Silence())
	}()

	extractor := dsp.NewExtractor(a.cfg.Audio.BufferSize)
	rate := reader.SampleRate()
	bufSeconds := float64(a.cfg.Audio.BufferSize) / float64(rate)
	buf := make([]float32, a.cfg.Audio.BufferSize)

	ticker := time.NewTicker(time.Duration(bufSeconds * float64(time.Second)))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		var cur state.Playing
		switch s := a.director.Current().(type) {
		case state.Playing:
			cur = s
		case state.Exporting:
			// Playback is parked while the export replays the file; the
			// loop idles and picks the restored position back up after.
			a.director.OfferFeatures(dsp.Silence())
			continue
		default:
			return
		}
		if cur.FileRef != fileRef {
			return
		}
		if cur.Paused {
			a.director.OfferFeatures(dsp.Silence())
			continue
		}

		offset := int64(cur.Position * float64(rate))
		reader.ReadAt(buf, offset)

		start := time.Now()
		f := extractor.Extract(buf, rate, cur.Position)
		elapsed := time.Since(start)

		a.metrics.RecordFrame(ctx, "live", elapsed.Seconds())
		a.stats.RecordAnalysis(elapsed)
		a.director.OfferFeatures(f)

		next := cur.Position + bufSeconds
		if next >= cur.Duration {
			a.director.Apply(state.StopPlayback{})
			return
		}
		a.director.Apply(state.Seek{Position: next})
	}
}

func (a *App) cancelPlaybackLoop() {
	a.mu.Lock()
	cancel := a.playCancel
	a.playCancel = nil
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// openSource opens and decodes a file source, translating failures into the
// application error taxonomy.
func (a *App) openSource(path string) (source.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, state.Recoverable(
				state.CodeFileNotFound,
				fmt.Sprintf("file %q not found", path),
				"check the path and try again",
				err,
			)
		case errors.Is(err, fs.ErrPermission):
			return nil, state.Recoverable(
				state.CodePermissionDenied,
				fmt.Sprintf("no permission to read %q", path),
				"grant read access to the file",
				err,
			)
		}
		return nil, err
	}
	defer f.Close()

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	reader, err := a.registry.Decode(format, f)
	if err != nil {
		if errors.Is(err, source.ErrUnknownFormat) {
			return nil, state.Recoverable(
				state.CodeUnsupportedFormat,
				fmt.Sprintf("unsupported audio format %q", format),
				fmt.Sprintf("supported formats: %s", strings.Join(a.registry.Formats(), ", ")),
				err,
			)
		}
		return nil, state.Recoverable(
			state.CodeUnsupportedFormat,
			fmt.Sprintf("could not decode %q", path),
			"the file may be corrupt or not audio",
			err,
		)
	}
	return reader, nil
}

// ─── Export ──────────────────────────────────────────────────────────────────

// StartExport renders the file currently in playback to outputRef, offline.
// Progress flows back through the session state; completion or cancellation
// returns to the playback it was started from.
func (a *App) StartExport(ctx context.Context, outputRef string) error {
	if a.exportSinks == nil {
		return state.Blocking(state.CodeExportFailed, "no export sink configured", nil)
	}
	if a.exporter.Active() {
		return state.Transient(state.CodeExportFailed, "an export is already running", export.ErrExportActive)
	}

	playing, ok := a.director.Current().(state.Playing)
	if !ok {
		return state.Recoverable(
			state.CodeExportFailed,
			"export is only available during playback",
			"open and play the file you want to export",
			nil,
		)
	}

	reader, err := a.openSource(playing.FileRef)
	if err != nil {
		return state.Translate(err)
	}

	sink, err := a.exportSinks(outputRef)
	if err != nil {
		_ = reader.Close()
		aerr := state.Translate(err)
		a.director.Apply(state.ReportError{Err: aerr})
		return aerr
	}

	if !a.director.Apply(state.StartExport{OutputRef: outputRef}) {
		_ = reader.Close()
		_ = sink.Discard()
		return state.Transient(state.CodeExportFailed, "an export is already running", export.ErrExportActive)
	}

	exportCtx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.exportCancel = cancel
	a.mu.Unlock()

	go a.runExport(exportCtx, reader, sink)
	return nil
}

// runExport executes the export job and steers the session state through
// progress, completion, cancellation, or failure.
func (a *App) runExport(ctx context.Context, reader source.Reader, sink export.Sink) {
	defer func() {
		if err := reader.Close(); err != nil {
			slog.Warn("export source close error", "err", err)
		}
		a.mu.Lock()
		a.exportCancel = nil
		a.mu.Unlock()
	}()

	err := a.exporter.Run(ctx, export.Request{
		Source:     reader,
		Sink:       sink,
		Seed:       a.cfg.Orb.Seed,
		MeshDetail: a.cfg.Orb.MeshDetail,
		BufferSize: a.cfg.Audio.BufferSize,
		OnProgress: func(p float64) {
			a.director.Apply(state.ExportProgress{Progress: p})
		},
	})

	switch {
	case err == nil:
		a.director.Apply(state.FinishExport{})
	case errors.Is(err, context.Canceled):
		a.director.Apply(state.FinishExport{Cancelled: true})
	default:
		a.director.Apply(state.ReportError{Err: state.Translate(err)})
	}
}

// CancelExport requests cooperative cancellation of the running export.
func (a *App) CancelExport() {
	a.mu.Lock()
	cancel := a.exportCancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down producers and closers in order. It respects the
// context deadline: if ctx expires before all closers finish, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		a.CancelExport()
		a.cancelPlaybackLoop()
		a.stopCapture(true)

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
