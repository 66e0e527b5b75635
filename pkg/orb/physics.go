package orb

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	opensimplex "github.com/ojrac/opensimplex-go"
)

// Physical constants governing the orb. Conformance of recorded sessions
// depends on these exact values; they are not configurable.
const (
	// BaseRadius is the resting sphere radius.
	BaseRadius = 1.0

	// TensionBase and TensionRange map normalized brightness onto the
	// per-vertex spring constant: tension = TensionBase + b*TensionRange.
	TensionBase  = 10.0
	TensionRange = 5.0

	// MaxDeformation bounds vertex displacement to ±3% of BaseRadius.
	MaxDeformation = 0.03

	// UpdateRate is the fixed physics tick rate in Hz.
	UpdateRate = 60.0

	springDamping    = 0.85
	globalDamping    = 0.75
	maxVelocity      = 0.5
	radialForceScale = 0.03
	rippleAmplitude  = 0.005
	rippleFrequency  = 8.0

	impulseForceScale = 0.5
	impulseDuration   = 0.15

	silenceDecayTime = 2.0
	rippleDecayTau   = 1.5
	ambientFrequency = 0.05
	ambientAmplitude = 0.001

	// expansionRateActive and expansionRateSilent are the per-tick lerp
	// rates for radial expansion. The return during silence is deliberately
	// slower than the attack.
	expansionRateActive = 0.3
	expansionRateSilent = 0.1

	dt = 1.0 / UpdateRate
)

// TensionFromBrightness maps a normalized spectral centroid onto the spring
// tension fed to [Engine.ApplyForces].
func TensionFromBrightness(b float64) float64 {
	return TensionBase + sanitize01(b)*TensionRange
}

// Vertex is one mesh point owned by the engine. Base is fixed at creation;
// Position and Velocity evolve each tick.
type Vertex struct {
	Base     mgl64.Vec3
	Position mgl64.Vec3
	Velocity mgl64.Vec3
}

// ShaderState is the read-only snapshot handed to a renderer once per tick.
type ShaderState struct {
	BaseRadius      float64
	RadialExpansion float64
	RippleAmplitude float64
	Time            float64
}

// impulse is a short directional kick triggered by an onset.
type impulse struct {
	direction mgl64.Vec3
	magnitude float64
	remaining float64
}

// Engine advances per-vertex spring-damper state at a fixed 60Hz timestep.
// It is deterministic: two engines built from the same vertex set and seed,
// fed an identical ordered sequence of ApplyForces/Update calls, produce
// identical trajectories. Impulse directions come from a seeded PRNG for
// exactly this reason.
//
// Engine is not safe for concurrent use; the owning loop must serialise
// calls. It never fails: malformed inputs are clamped, not rejected.
type Engine struct {
	vertices []Vertex
	noise    opensimplex.Noise
	rng      *rand.Rand
	seed     int64

	radialExpansion float64
	currentRipple   float64
	surfaceTension  float64
	rippleDecay     float64
	time            float64
	silenceTime     float64
	active          *impulse
}

// NewEngine creates an engine over the given unit-sphere vertex positions.
// The seed drives both the ripple noise field and impulse directions; live
// and export paths must use the same seed to stay in visual lockstep.
func NewEngine(positions []mgl64.Vec3, seed int64) *Engine {
	vertices := make([]Vertex, len(positions))
	for i, p := range positions {
		base := p.Mul(BaseRadius)
		vertices[i] = Vertex{Base: base, Position: base}
	}
	return &Engine{
		vertices:       vertices,
		noise:          opensimplex.New(seed),
		rng:            rand.New(rand.NewSource(seed)),
		seed:           seed,
		surfaceTension: TensionBase,
		rippleDecay:    1,
	}
}

// ApplyForces blends one feature snapshot into the scalar driving state.
// radialForce, ripple, and impulseStrength are normalized to [0, 1];
// tension is an absolute spring constant (see [TensionFromBrightness]).
// silent accumulates the silence clock that gates decay behaviours.
func (e *Engine) ApplyForces(radialForce, tension, ripple, impulseStrength float64, silent bool) {
	radialForce = sanitize01(radialForce)
	ripple = sanitize01(ripple)
	impulseStrength = sanitize01(impulseStrength)
	if math.IsNaN(tension) || tension < 0 {
		tension = TensionBase
	}

	if silent {
		e.silenceTime += dt
	} else {
		e.silenceTime = 0
	}

	rate := expansionRateActive
	if silent {
		rate = expansionRateSilent
	}
	target := radialForce * radialForceScale * BaseRadius
	e.radialExpansion += (target - e.radialExpansion) * rate

	e.surfaceTension = tension

	// The ripple fades out exponentially while silent and snaps back to
	// full strength on any activity.
	if silent {
		e.rippleDecay *= math.Exp(-dt / rippleDecayTau)
	} else {
		e.rippleDecay = 1
	}
	e.currentRipple = ripple * rippleAmplitude * e.rippleDecay

	// A new impulse replaces any active one.
	if impulseStrength > 0 {
		e.active = &impulse{
			direction: e.randomUnit(),
			magnitude: impulseStrength * impulseForceScale,
			remaining: impulseDuration,
		}
	}
}

// Update advances the simulation by one fixed tick.
func (e *Engine) Update() {
	e.time += dt

	var impulseForce mgl64.Vec3
	if e.active != nil {
		impulseForce = e.active.direction.Mul(e.active.magnitude)
		e.active.remaining -= dt
		if e.active.remaining <= 0 {
			e.active = nil
		}
	}

	ambient := 0.0
	if e.silenceTime > silenceDecayTime {
		ambient = ambientAmplitude * math.Sin(2*math.Pi*ambientFrequency*e.time)
	}

	minRadius := BaseRadius * (1 - MaxDeformation)
	maxRadius := BaseRadius * (1 + MaxDeformation)

	for i := range e.vertices {
		v := &e.vertices[i]

		// Spatial ripple offset from the noise field, drifting over time so
		// the pattern crawls across the surface.
		n := e.noise.Eval3(
			v.Base.X()*rippleFrequency+e.time*0.7,
			v.Base.Y()*rippleFrequency+e.time*0.3,
			v.Base.Z()*rippleFrequency,
		)
		rippleOffset := n * e.currentRipple

		targetRadius := BaseRadius + e.radialExpansion + rippleOffset + ambient

		currentRadius := v.Position.Len()
		dir := v.Base
		if currentRadius > 1e-12 {
			dir = v.Position.Mul(1 / currentRadius)
		}

		displacement := clamp(currentRadius-targetRadius, -MaxDeformation, MaxDeformation)

		radialVelocity := v.Velocity.Dot(dir)
		force := -e.surfaceTension*displacement -
			springDamping*radialVelocity +
			impulseForce.Dot(dir)
		accel := dir.Mul(force)

		// Velocity-Verlet step.
		v.Position = v.Position.Add(v.Velocity.Mul(dt)).Add(accel.Mul(0.5 * dt * dt))
		v.Velocity = v.Velocity.Add(accel.Mul(dt))

		// Global exponential damping, then hard speed cap.
		v.Velocity = v.Velocity.Mul(1 - globalDamping*dt)
		if speed := v.Velocity.Len(); speed > maxVelocity {
			v.Velocity = v.Velocity.Mul(maxVelocity / speed)
		}

		// Hard deformation bound on the resulting radius.
		r := v.Position.Len()
		if r < 1e-12 {
			v.Position = v.Base.Mul(minRadius / BaseRadius)
			continue
		}
		if r < minRadius {
			v.Position = v.Position.Mul(minRadius / r)
		} else if r > maxRadius {
			v.Position = v.Position.Mul(maxRadius / r)
		}
	}
}

// ShaderState returns the snapshot exposed to the renderer. The renderer
// must treat it read-only; it shares no storage with the engine.
func (e *Engine) ShaderState() ShaderState {
	return ShaderState{
		BaseRadius:      BaseRadius,
		RadialExpansion: e.radialExpansion,
		RippleAmplitude: e.currentRipple,
		Time:            e.time,
	}
}

// Vertices returns a copy of the current vertex state.
func (e *Engine) Vertices() []Vertex {
	out := make([]Vertex, len(e.vertices))
	copy(out, e.vertices)
	return out
}

// VertexCount returns the number of simulated vertices.
func (e *Engine) VertexCount() int {
	return len(e.vertices)
}

// Reset restores every vertex to its base position with zero velocity,
// zeroes all scalar state, and rewinds the PRNG so a replay from reset
// reproduces the original trajectory.
func (e *Engine) Reset() {
	for i := range e.vertices {
		e.vertices[i].Position = e.vertices[i].Base
		e.vertices[i].Velocity = mgl64.Vec3{}
	}
	e.radialExpansion = 0
	e.currentRipple = 0
	e.surfaceTension = TensionBase
	e.rippleDecay = 1
	e.time = 0
	e.silenceTime = 0
	e.active = nil
	e.rng = rand.New(rand.NewSource(e.seed))
}

// randomUnit draws a uniformly distributed unit vector from the session PRNG.
func (e *Engine) randomUnit() mgl64.Vec3 {
	for {
		v := mgl64.Vec3{e.rng.NormFloat64(), e.rng.NormFloat64(), e.rng.NormFloat64()}
		if l := v.Len(); l > 1e-9 {
			return v.Mul(1 / l)
		}
	}
}

// sanitize01 clamps to [0, 1] and maps NaN to 0.
func sanitize01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
