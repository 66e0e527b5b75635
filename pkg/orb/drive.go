package orb

import "github.com/auralabs/aura/pkg/dsp"

// ApplyFeatures maps one audio feature snapshot onto the engine's force
// inputs. Loudness drives radial expansion, brightness sets surface tension,
// noisiness feeds the ripple field, and a detected onset fires an impulse.
//
// The live loop and the offline export loop both go through this single
// mapping so that identical feature sequences deform the orb identically.
func (e *Engine) ApplyFeatures(f dsp.Features) {
	impulse := 0.0
	if f.OnsetDetected {
		impulse = f.OnsetMagnitude
	}
	e.ApplyForces(
		f.RMS,
		TensionFromBrightness(f.SpectralCentroid),
		f.ZeroCrossingRate,
		impulse,
		f.Silent,
	)
}
