// Package observe provides application-wide observability primitives for
// Aura: OpenTelemetry metrics, tracing helpers, structured logging, and
// in-process frame timing statistics.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Aura metrics.
const meterName = "github.com/auralabs/aura"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// AnalysisDuration tracks feature extraction latency per audio buffer.
	AnalysisDuration metric.Float64Histogram

	// PhysicsTickDuration tracks the cost of one fixed-timestep physics tick.
	PhysicsTickDuration metric.Float64Histogram

	// ExportFrameDuration tracks per-frame cost during offline export.
	ExportFrameDuration metric.Float64Histogram

	// --- Counters ---

	// FramesProcessed counts audio buffers run through feature extraction.
	// Use with attribute: attribute.String("mode", "live"|"export").
	FramesProcessed metric.Int64Counter

	// OnsetsDetected counts transient onsets flagged by the analyser.
	OnsetsDetected metric.Int64Counter

	// SnapshotsSuperseded counts feature snapshots dropped because a newer
	// one arrived before the physics loop consumed them.
	SnapshotsSuperseded metric.Int64Counter

	// TransitionsRejected counts state transitions refused by the machine.
	// Use with attribute: attribute.String("transition", ...).
	TransitionsRejected metric.Int64Counter

	// --- Gauges ---

	// ActiveExports tracks the number of export jobs currently running.
	ActiveExports metric.Int64UpDownCounter

	// HTTPRequestDuration tracks diagnostics endpoint latency. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for real-time audio work: a 60 Hz tick leaves under 17 ms per frame, so
// most buckets sit below that.
var latencyBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.0167, 0.05, 0.1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.AnalysisDuration, err = m.Float64Histogram("aura.analysis.duration",
		metric.WithDescription("Latency of audio feature extraction per buffer."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PhysicsTickDuration, err = m.Float64Histogram("aura.physics.tick.duration",
		metric.WithDescription("Cost of one fixed-timestep physics tick."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ExportFrameDuration, err = m.Float64Histogram("aura.export.frame.duration",
		metric.WithDescription("Per-frame cost during offline export."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.FramesProcessed, err = m.Int64Counter("aura.frames.processed",
		metric.WithDescription("Total audio buffers run through feature extraction, by mode."),
	); err != nil {
		return nil, err
	}
	if met.OnsetsDetected, err = m.Int64Counter("aura.onsets.detected",
		metric.WithDescription("Total transient onsets flagged by the analyser."),
	); err != nil {
		return nil, err
	}
	if met.SnapshotsSuperseded, err = m.Int64Counter("aura.snapshots.superseded",
		metric.WithDescription("Feature snapshots dropped before the physics loop consumed them."),
	); err != nil {
		return nil, err
	}
	if met.TransitionsRejected, err = m.Int64Counter("aura.transitions.rejected",
		metric.WithDescription("State transitions refused by the machine, by transition name."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveExports, err = m.Int64UpDownCounter("aura.active_exports",
		metric.WithDescription("Number of export jobs currently running."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("aura.http.request.duration",
		metric.WithDescription("Diagnostics HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordFrame records a processed audio buffer with its analysis latency.
func (m *Metrics) RecordFrame(ctx context.Context, mode string, seconds float64) {
	attrs := metric.WithAttributes(attribute.String("mode", mode))
	m.FramesProcessed.Add(ctx, 1, attrs)
	m.AnalysisDuration.Record(ctx, seconds, attrs)
}

// RecordRejectedTransition records a transition the state machine refused.
func (m *Metrics) RecordRejectedTransition(ctx context.Context, transition string) {
	m.TransitionsRejected.Add(ctx, 1,
		metric.WithAttributes(attribute.String("transition", transition)),
	)
}
