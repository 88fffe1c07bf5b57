// Package integrate implements the time-stepping layer: the timestep
// criteria that bound the next step size, and the integrators that
// actually advance the store's quantities by it. Grounded on
// original_source/core/timestepping/TimeStepCriterion.cpp for the
// per-criterion formulas and dynsim/internal/integrators for the Go
// integrator shape (a pure function from state+derivative to next state).
package integrate

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/astrophys-sim/impactcore/internal/particle"
	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

const epsDeriv = 1e-12

// Criterion bounds the next timestep given the current store state.
// Implementations may return math.Inf(1) to mean "no opinion".
type Criterion interface {
	Compute(s *particle.Store, maxStep float64) float64
}

// Courant is the CFL condition: dt <= courant * h / c_s, transcribed from
// CourantCriterion::compute.
type Courant struct {
	Number float64 // "courant" factor, typically 0.2-0.4
}

func NewCourant() Courant { return Courant{Number: 0.3} }

func (c Courant) Compute(s *particle.Store, maxStep float64) float64 {
	if !s.Has(particle.Position) || !s.Has(particle.SoundSpeed) {
		return math.Inf(1)
	}
	positions := particle.MustGetValue[vecmath.Vec](s, particle.Position)
	cs := particle.MustGetValue[float64](s, particle.SoundSpeed)
	min := math.Inf(1)
	for i := range positions {
		if cs[i] <= 0 {
			continue
		}
		min = math.Min(min, c.Number*positions[i].H()/cs[i])
	}
	return min
}

// Acceleration bounds the step so a particle's smoothing length isn't
// crossed by its own acceleration within one step: dt <= factor *
// (h^2/|a|^2)^(1/4), transcribed from AccelerationCriterion::compute.
type Acceleration struct {
	Factor float64
}

func NewAcceleration() Acceleration { return Acceleration{Factor: 0.2} }

func (a Acceleration) Compute(s *particle.Store, maxStep float64) float64 {
	if !s.Has(particle.Position) {
		return math.Inf(1)
	}
	positions := particle.MustGetValue[vecmath.Vec](s, particle.Position)
	accel := particle.Acceleration(s)
	min := math.Inf(1)
	for i := range positions {
		dvSq := accel[i].NormSq()
		if dvSq <= epsDeriv {
			continue
		}
		h := positions[i].H()
		step := a.Factor * math.Sqrt(math.Sqrt(h*h/dvSq))
		min = math.Min(min, step)
	}
	return min
}

// Derivative bounds the step so no first-order quantity changes by more
// than a fraction of its own magnitude in one step: dt <= factor *
// (|v|+minValue)/|dv|, skipping components already below twice the
// material's minimal scale. Transcribed from
// DerivativeCriterion::computeImpl's MinimalStepTls branch (this repo
// always takes the "very high negative power" minimal-step path, since
// the mean-power generalization has no consumer here).
type Derivative struct {
	Factor float64
	Ids    []particle.QuantityID // which first-order quantities to check; nil means Density and Energy
}

func NewDerivative() Derivative {
	return Derivative{Factor: 0.2, Ids: []particle.QuantityID{particle.Density, particle.Energy}}
}

func (d Derivative) Compute(s *particle.Store, maxStep float64) float64 {
	min := math.Inf(1)
	ids := d.Ids
	if ids == nil {
		ids = []particle.QuantityID{particle.Density, particle.Energy}
	}
	for _, id := range ids {
		if !s.Has(id) {
			continue
		}
		order, _ := s.Order(id)
		if order < particle.OrderFirst {
			continue
		}
		v := particle.MustGetValue[float64](s, id)
		dv, err := particle.GetDt[float64](s, id)
		if err != nil {
			continue
		}
		for i := range v {
			mat := s.MaterialOf(i)
			if mat == nil {
				continue
			}
			minValue := mat.MinimalOf(id)
			absV, absDv := math.Abs(v[i]), math.Abs(dv[i])
			if absV < 2*minValue {
				continue
			}
			step := d.Factor * (absV + minValue) / (absDv + epsDeriv)
			min = math.Min(min, step)
		}
	}
	return min
}

// UserMax is a fixed ceiling on the step, independent of particle state.
type UserMax struct {
	Max float64
}

func (u UserMax) Compute(*particle.Store, float64) float64 { return u.Max }

// Combine returns the smallest step any criterion proposes, clamped to
// maxStep, using gonum's reduction rather than a hand-rolled loop.
func Combine(s *particle.Store, maxStep float64, criteria ...Criterion) float64 {
	steps := make([]float64, len(criteria)+1)
	steps[0] = maxStep
	for i, c := range criteria {
		steps[i+1] = c.Compute(s, maxStep)
	}
	return floats.Min(steps)
}
