package observe

import (
	"math"
	"sort"
	"sync"
	"time"
)

// FrameStats collects per-stage frame timing samples and counter values for
// diagnostics display. It maintains a bounded ring buffer of recent timing
// observations from which percentiles are computed on demand.
//
// Thread-safe for concurrent use.
type FrameStats struct {
	mu sync.Mutex

	analysis timingBuffer
	physics  timingBuffer
	export   timingBuffer

	buffers    int64
	onsets     int64
	superseded int64
}

// NewFrameStats creates a FrameStats with the given window size (maximum
// number of timing samples retained per stage).
func NewFrameStats(windowSize int) *FrameStats {
	if windowSize <= 0 {
		windowSize = 100
	}
	return &FrameStats{
		analysis: newTimingBuffer(windowSize),
		physics:  newTimingBuffer(windowSize),
		export:   newTimingBuffer(windowSize),
	}
}

// RecordAnalysis records a feature-extraction timing sample.
func (fs *FrameStats) RecordAnalysis(d time.Duration) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.analysis.add(d)
	fs.buffers++
}

// RecordPhysics records a physics-tick timing sample.
func (fs *FrameStats) RecordPhysics(d time.Duration) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.physics.add(d)
}

// RecordExportFrame records an offline export per-frame timing sample.
func (fs *FrameStats) RecordExportFrame(d time.Duration) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.export.add(d)
}

// IncrOnsets increments the detected-onset counter.
func (fs *FrameStats) IncrOnsets() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.onsets++
}

// IncrSuperseded increments the superseded-snapshot counter.
func (fs *FrameStats) IncrSuperseded() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.superseded++
}

// TimingPercentiles holds p50 and p95 values for a timing stage.
type TimingPercentiles struct {
	P50 time.Duration
	P95 time.Duration
}

// Snapshot captures a point-in-time view of all frame statistics.
type Snapshot struct {
	Analysis    TimingPercentiles
	Physics     TimingPercentiles
	ExportFrame TimingPercentiles
	Buffers     int64
	Onsets      int64
	Superseded  int64
}

// Snapshot returns a point-in-time view of all frame statistics.
func (fs *FrameStats) Snapshot() Snapshot {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return Snapshot{
		Analysis:    fs.analysis.percentiles(),
		Physics:     fs.physics.percentiles(),
		ExportFrame: fs.export.percentiles(),
		Buffers:     fs.buffers,
		Onsets:      fs.onsets,
		Superseded:  fs.superseded,
	}
}

// timingBuffer is a bounded ring buffer of duration samples.
type timingBuffer struct {
	data []time.Duration
	size int
	pos  int
	full bool
}

func newTimingBuffer(size int) timingBuffer {
	return timingBuffer{
		data: make([]time.Duration, size),
		size: size,
	}
}

func (tb *timingBuffer) add(d time.Duration) {
	tb.data[tb.pos] = d
	tb.pos++
	if tb.pos >= tb.size {
		tb.pos = 0
		tb.full = true
	}
}

func (tb *timingBuffer) percentiles() TimingPercentiles {
	n := tb.pos
	if tb.full {
		n = tb.size
	}
	if n == 0 {
		return TimingPercentiles{}
	}

	// Copy and sort the valid samples.
	sorted := make([]time.Duration, n)
	if tb.full {
		copy(sorted, tb.data)
	} else {
		copy(sorted, tb.data[:n])
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return TimingPercentiles{
		P50: percentile(sorted, 0.50),
		P95: percentile(sorted, 0.95),
	}
}

// percentile returns the value at the given percentile (0.0-1.0) from a
// sorted slice of durations using nearest-rank.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
