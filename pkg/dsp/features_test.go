package dsp

import (
	"math"
	"testing"
)

const testSampleRate = 48000

// sine fills a buffer with a pure tone at freq Hz and the given amplitude.
func sine(n int, freq, amplitude float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amplitude * math.Sin(2*math.Pi*freq*float64(i)/testSampleRate))
	}
	return out
}

func TestExtract_AllZeroBufferIsSilent(t *testing.T) {
	t.Parallel()

	e := NewExtractor(DefaultFFTLength)
	f := e.Extract(make([]float32, 2048), testSampleRate, 0)

	if f.RMS != 0 {
		t.Errorf("RMS = %v, want 0", f.RMS)
	}
	if !f.Silent {
		t.Error("all-zero buffer should be silent")
	}
	if f.OnsetDetected {
		t.Error("all-zero buffer should not produce an onset")
	}
	if f.SpectralCentroid != defaultCentroid {
		t.Errorf("SpectralCentroid = %v, want neutral %v", f.SpectralCentroid, defaultCentroid)
	}
}

func TestExtract_FeaturesStayNormalized(t *testing.T) {
	t.Parallel()

	e := NewExtractor(DefaultFFTLength)

	buffers := [][]float32{
		sine(2048, 440, 0.8),
		sine(2048, 12000, 1.0),
		sine(2048, 50, 0.1),
	}
	// Clipped square-ish buffer with out-of-range samples.
	hot := make([]float32, 2048)
	for i := range hot {
		if i%2 == 0 {
			hot[i] = 1.7
		} else {
			hot[i] = -1.7
		}
	}
	buffers = append(buffers, hot)

	now := 0.0
	for i, buf := range buffers {
		f := e.Extract(buf, testSampleRate, now)
		now += 2048.0 / testSampleRate

		if f.RMS < 0 || f.RMS > 1 {
			t.Errorf("buffer %d: RMS = %v out of [0,1]", i, f.RMS)
		}
		if f.SpectralCentroid < 0 || f.SpectralCentroid > 1 {
			t.Errorf("buffer %d: SpectralCentroid = %v out of [0,1]", i, f.SpectralCentroid)
		}
		if f.ZeroCrossingRate < 0 || f.ZeroCrossingRate > 1 {
			t.Errorf("buffer %d: ZeroCrossingRate = %v out of [0,1]", i, f.ZeroCrossingRate)
		}
		if f.OnsetMagnitude < 0 || f.OnsetMagnitude > 1 {
			t.Errorf("buffer %d: OnsetMagnitude = %v out of [0,1]", i, f.OnsetMagnitude)
		}
	}
}

func TestExtract_BrightnessTracksFrequency(t *testing.T) {
	t.Parallel()

	low := NewExtractor(DefaultFFTLength)
	high := NewExtractor(DefaultFFTLength)

	var lowC, highC float64
	now := 0.0
	// Let the EMA settle.
	for loopIdx := 0; loopIdx < 50; loopIdx++ {
		lowC = low.Extract(sine(2048, 200, 0.8), testSampleRate, now).SpectralCentroid
		highC = high.Extract(sine(2048, 10000, 0.8), testSampleRate, now).SpectralCentroid
		now += 2048.0 / testSampleRate
	}

	if highC <= lowC {
		t.Errorf("centroid of 10kHz tone (%v) should exceed 200Hz tone (%v)", highC, lowC)
	}
}

func TestExtract_ZCRTracksNoisiness(t *testing.T) {
	t.Parallel()

	e := NewExtractor(DefaultFFTLength)

	var tone, buzz float64
	now := 0.0
	for loopIdx := 0; loopIdx < 50; loopIdx++ {
		tone = e.Extract(sine(2048, 100, 0.5), testSampleRate, now).ZeroCrossingRate
		now += 2048.0 / testSampleRate
	}
	e.Reset()
	for loopIdx := 0; loopIdx < 50; loopIdx++ {
		buzz = e.Extract(sine(2048, 15000, 0.5), testSampleRate, now).ZeroCrossingRate
		now += 2048.0 / testSampleRate
	}

	if buzz <= tone {
		t.Errorf("ZCR of 15kHz tone (%v) should exceed 100Hz tone (%v)", buzz, tone)
	}
}

func TestExtract_OnsetDetectionAndRefractory(t *testing.T) {
	t.Parallel()

	e := NewExtractor(DefaultFFTLength)
	quiet := make([]float32, 2048)
	loud := sine(2048, 440, 0.9)

	e.Extract(quiet, testSampleRate, 0)

	f := e.Extract(loud, testSampleRate, 0.043)
	if !f.OnsetDetected {
		t.Fatal("quiet→loud step should produce an onset")
	}
	if f.OnsetMagnitude <= 0 {
		t.Errorf("OnsetMagnitude = %v, want > 0", f.OnsetMagnitude)
	}

	// A second jump inside the refractory window is suppressed.
	e.Extract(quiet, testSampleRate, 0.086)
	f = e.Extract(loud, testSampleRate, 0.129)
	if f.OnsetDetected {
		t.Error("onset inside the 0.1s refractory window should be suppressed")
	}

	// After the refractory window another onset fires.
	e.Extract(quiet, testSampleRate, 0.3)
	f = e.Extract(loud, testSampleRate, 0.343)
	if !f.OnsetDetected {
		t.Error("onset after the refractory window should fire")
	}
}

func TestExtract_ShortBufferDoesNotMutateState(t *testing.T) {
	t.Parallel()

	e := NewExtractor(DefaultFFTLength)
	now := 0.0
	for loopIdx := 0; loopIdx < 20; loopIdx++ {
		e.Extract(sine(2048, 440, 0.8), testSampleRate, now)
		now += 2048.0 / testSampleRate
	}
	before := *e

	f := e.Extract(make([]float32, 100), testSampleRate, now)
	if f != Silence() {
		t.Errorf("short buffer = %#v, want canonical silence", f)
	}
	if e.smoothedRMS != before.smoothedRMS ||
		e.smoothedCentroid != before.smoothedCentroid ||
		e.smoothedZCR != before.smoothedZCR ||
		e.prevRawRMS != before.prevRawRMS ||
		e.lastOnsetTime != before.lastOnsetTime {
		t.Error("short buffer must not mutate extractor state")
	}
}

func TestExtract_SmoothingConverges(t *testing.T) {
	t.Parallel()

	e := NewExtractor(DefaultFFTLength)
	buf := sine(2048, 440, 0.5)
	raw := rms(buf)

	var f Features
	now := 0.0
	for loopIdx := 0; loopIdx < 100; loopIdx++ {
		f = e.Extract(buf, testSampleRate, now)
		now += 2048.0 / testSampleRate
	}

	if math.Abs(f.RMS-raw) > 1e-3 {
		t.Errorf("smoothed RMS %v did not converge to raw %v", f.RMS, raw)
	}
	if f.Silent {
		t.Error("a sustained 0.5-amplitude tone is not silent")
	}
}

func TestReset(t *testing.T) {
	t.Parallel()

	e := NewExtractor(DefaultFFTLength)
	now := 0.0
	for loopIdx := 0; loopIdx < 10; loopIdx++ {
		e.Extract(sine(2048, 440, 0.9), testSampleRate, now)
		now += 2048.0 / testSampleRate
	}
	e.Reset()

	if e.smoothedRMS != 0 || e.smoothedZCR != 0 || e.prevRawRMS != 0 {
		t.Error("Reset should zero smoothing state")
	}
	if e.smoothedCentroid != defaultCentroid {
		t.Errorf("Reset centroid = %v, want %v", e.smoothedCentroid, defaultCentroid)
	}
}

func TestNewExtractor_SizeHandling(t *testing.T) {
	t.Parallel()

	if got := NewExtractor(0).FFTLength(); got != DefaultFFTLength {
		t.Errorf("FFTLength(0) = %d, want %d", got, DefaultFFTLength)
	}
	if got := NewExtractor(1000).FFTLength(); got != 1024 {
		t.Errorf("FFTLength(1000) = %d, want 1024", got)
	}
}
