// Package dsp extracts perceptual features from raw PCM buffers.
//
// The central type is [Extractor], a stateful, per-stream analyser that
// turns each fixed-size sample buffer into a [Features] snapshot: loudness
// (RMS), brightness (spectral centroid), noisiness (zero-crossing rate),
// onset detection, and a silence flag. Smoothing state persists across
// calls so consecutive snapshots move continuously; Reset clears it.
//
// Extraction is synchronous by design: Extract returns immediately, never
// blocks, never performs I/O, and keeps allocation bounded by reusing
// preallocated scratch buffers — making it suitable for a dedicated
// real-time producer goroutine that must finish within one buffer period.
//
// A single Extractor must not be shared across goroutines; create one per
// stream.
package dsp

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
)

const (
	// MinSamples is the smallest buffer Extract will analyse. Shorter
	// buffers return [Silence] without touching extractor state.
	MinSamples = 256

	// DefaultFFTLength is the transform size used when none is configured.
	DefaultFFTLength = 2048

	// Smoothing factors for the exponential moving averages. Lower values
	// smooth harder.
	rmsAlpha      = 0.15
	centroidAlpha = 0.1
	zcrAlpha      = 0.2

	// onsetThreshold is the raw RMS rise between consecutive buffers that
	// registers as an onset.
	onsetThreshold = 0.08

	// onsetRefractory is the minimum spacing between onsets in seconds.
	onsetRefractory = 0.1

	// silenceThreshold is the smoothed RMS level below which the stream is
	// considered silent.
	silenceThreshold = 0.02

	// defaultCentroid is the neutral brightness reported when the spectrum
	// carries no energy.
	defaultCentroid = 0.5
)

// Features is one immutable snapshot of perceptual audio features, produced
// once per buffer. All scalar fields are normalized to [0, 1].
type Features struct {
	// RMS is the smoothed root-mean-square signal energy.
	RMS float64

	// SpectralCentroid is the smoothed frequency-domain centre of mass,
	// normalized by the Nyquist frequency.
	SpectralCentroid float64

	// ZeroCrossingRate is the smoothed fraction of adjacent-sample sign
	// changes.
	ZeroCrossingRate float64

	// OnsetDetected reports a sudden energy rise in this buffer.
	OnsetDetected bool

	// OnsetMagnitude scales the detected onset; zero when none.
	OnsetMagnitude float64

	// Silent reports that smoothed energy is below the silence threshold.
	Silent bool
}

// Silence is the canonical feature snapshot for an absent or too-short
// buffer.
func Silence() Features {
	return Features{SpectralCentroid: defaultCentroid, Silent: true}
}

// Extractor converts PCM sample buffers into [Features]. See the package
// documentation for the threading contract.
type Extractor struct {
	fftLength int
	window    []float64 // Hann coefficients, length fftLength
	scratch   []float64 // windowed input, length fftLength

	smoothedRMS      float64
	smoothedCentroid float64
	smoothedZCR      float64
	prevRawRMS       float64
	lastOnsetTime    float64
	seenOnset        bool
}

// NewExtractor creates an Extractor with the given transform size. Sizes
// below [MinSamples] (including zero) fall back to [DefaultFFTLength].
// Non-power-of-two sizes are rounded up to the next power of two.
func NewExtractor(fftLength int) *Extractor {
	if fftLength < MinSamples {
		fftLength = DefaultFFTLength
	}
	fftLength = nextPow2(fftLength)

	window := make([]float64, fftLength)
	for i := range window {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(fftLength-1)))
	}

	return &Extractor{
		fftLength:        fftLength,
		window:           window,
		scratch:          make([]float64, fftLength),
		smoothedCentroid: defaultCentroid,
	}
}

// FFTLength returns the configured transform size.
func (e *Extractor) FFTLength() int {
	return e.fftLength
}

// Extract analyses one buffer of normalized samples taken at sampleRate Hz.
// now is the monotonic session time in seconds, used for onset spacing.
//
// Buffers shorter than [MinSamples] return [Silence] without mutating any
// internal state. Out-of-range samples are clamped, never rejected; Extract
// does not fail.
func (e *Extractor) Extract(samples []float32, sampleRate int, now float64) Features {
	if len(samples) < MinSamples || sampleRate <= 0 {
		return Silence()
	}

	rawRMS := clamp01(rms(samples))
	e.smoothedRMS = ema(e.smoothedRMS, rawRMS, rmsAlpha)

	rawCentroid := e.spectralCentroid(samples, sampleRate)
	e.smoothedCentroid = ema(e.smoothedCentroid, rawCentroid, centroidAlpha)

	rawZCR := zeroCrossingRate(samples)
	e.smoothedZCR = ema(e.smoothedZCR, rawZCR, zcrAlpha)

	var onset bool
	var onsetMag float64
	delta := rawRMS - e.prevRawRMS
	if delta > onsetThreshold && (!e.seenOnset || now-e.lastOnsetTime > onsetRefractory) {
		onset = true
		onsetMag = math.Min(delta/onsetThreshold, 1)
		e.lastOnsetTime = now
		e.seenOnset = true
	}
	e.prevRawRMS = rawRMS

	return Features{
		RMS:              e.smoothedRMS,
		SpectralCentroid: e.smoothedCentroid,
		ZeroCrossingRate: e.smoothedZCR,
		OnsetDetected:    onset,
		OnsetMagnitude:   onsetMag,
		Silent:           e.smoothedRMS < silenceThreshold,
	}
}

// Reset clears all smoothing and onset state, as if the extractor were
// freshly constructed.
func (e *Extractor) Reset() {
	e.smoothedRMS = 0
	e.smoothedCentroid = defaultCentroid
	e.smoothedZCR = 0
	e.prevRawRMS = 0
	e.lastOnsetTime = 0
	e.seenOnset = false
}

// spectralCentroid computes the magnitude-weighted mean frequency of the
// first fftLength samples, normalized by Nyquist. Returns the neutral
// centroid when the spectrum carries no energy.
func (e *Extractor) spectralCentroid(samples []float32, sampleRate int) float64 {
	n := e.fftLength
	for i := 0; i < n; i++ {
		if i < len(samples) {
			e.scratch[i] = float64(samples[i]) * e.window[i]
		} else {
			e.scratch[i] = 0
		}
	}

	spectrum := fft.FFTReal(e.scratch)

	binWidth := float64(sampleRate) / float64(n)
	var weighted, total float64
	for i := 0; i < n/2; i++ {
		mag := cmplxAbs(spectrum[i])
		weighted += float64(i) * binWidth * mag
		total += mag
	}
	if total < 1e-10 {
		return defaultCentroid
	}

	nyquist := float64(sampleRate) / 2
	return clamp01(weighted / total / nyquist)
}

// rms is the root-mean-square of the buffer.
func rms(samples []float32) float64 {
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// zeroCrossingRate is the fraction of adjacent-sample sign changes.
func zeroCrossingRate(samples []float32) float64 {
	if len(samples) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] >= 0) != (samples[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(samples)-1)
}

// ema blends a new observation into the running average.
func ema(current, raw, alpha float64) float64 {
	return alpha*raw + (1-alpha)*current
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
