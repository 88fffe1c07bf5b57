package integrate

import (
	"github.com/astrophys-sim/impactcore/internal/particle"
	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

// Integrator advances every order>=1 quantity in the store by dt using its
// currently-computed derivatives, then clamps scalar quantities to their
// material's range (vector and traceless-tensor quantities are not clamped).
type Integrator interface {
	Step(s *particle.Store, dt float64) error
}

// Euler is the plain explicit-Euler integrator: value += dt*derivative,
// using the derivative already sitting in the buffer at call time.
// Grounded directly on dynsim/internal/integrators/euler.go's
// result[i] = x[i] + dt*dx[i], generalized from a flat state vector to the
// store's per-quantity typed buffers.
type Euler struct{}

func (Euler) Step(s *particle.Store, dt float64) error {
	return stepAllQuantities(s, dt)
}

func stepAllQuantities(s *particle.Store, dt float64) error {
	for _, id := range s.QuantityIDs() {
		order, _ := s.Order(id)
		if order < particle.OrderFirst {
			continue
		}
		if err := stepQuantity(s, id, order, dt); err != nil {
			return err
		}
	}
	return nil
}

// stepQuantity dispatches on whichever of the three integrable element
// types id is stored as; exactly one of the three GetValue calls succeeds.
func stepQuantity(s *particle.Store, id particle.QuantityID, order particle.OrderEnum, dt float64) error {
	if v, err := particle.GetValue[float64](s, id); err == nil {
		return stepScalar(s, id, order, dt, v)
	}
	if v, err := particle.GetValue[vecmath.Vec](s, id); err == nil {
		return stepVector(s, id, order, dt, v)
	}
	if v, err := particle.GetValue[vecmath.Traceless2](s, id); err == nil {
		return stepTraceless(s, id, dt, v)
	}
	return nil // Sym2/int quantities are never integrated
}

func stepScalar(s *particle.Store, id particle.QuantityID, order particle.OrderEnum, dt float64, v []float64) error {
	dv, err := particle.GetDt[float64](s, id)
	if err != nil {
		return err
	}
	if order == particle.OrderSecond {
		d2v, err := particle.GetD2t[float64](s, id)
		if err != nil {
			return err
		}
		for i := range v {
			v[i] += dt * dv[i]
			dv[i] += dt * d2v[i]
		}
	} else {
		for i := range v {
			v[i] += dt * dv[i]
		}
	}
	clampScalarRange(s, id, v, dv)
	return nil
}

func stepVector(s *particle.Store, id particle.QuantityID, order particle.OrderEnum, dt float64, v []vecmath.Vec) error {
	dv, err := particle.GetDt[vecmath.Vec](s, id)
	if err != nil {
		return err
	}
	if order == particle.OrderSecond {
		d2v, err := particle.GetD2t[vecmath.Vec](s, id)
		if err != nil {
			return err
		}
		corr := positionCorrection(s, id)
		for i := range v {
			step := dv[i]
			if corr != nil {
				step = step.AddH(corr[i])
			}
			v[i] = v[i].AddH(step.ScaleH(dt))
			dv[i] = dv[i].AddH(d2v[i].ScaleH(dt))
		}
	} else {
		for i := range v {
			v[i] = v[i].AddH(dv[i].ScaleH(dt))
		}
	}
	return nil
}

// positionCorrection returns equation.XSPH's smoothed-velocity term when id
// is Position and that term is registered, nil otherwise. Folded only into
// the position update, never into velocity itself, so XSPH never perturbs
// momentum. XSPH writes its correction into XSPHCorrection's Dt buffer
// (see equation.XSPH's doc comment), not its value.
func positionCorrection(s *particle.Store, id particle.QuantityID) []vecmath.Vec {
	if id != particle.Position || !s.Has(particle.XSPHCorrection) {
		return nil
	}
	corr, err := particle.GetDt[vecmath.Vec](s, particle.XSPHCorrection)
	if err != nil {
		return nil
	}
	return corr
}

func stepTraceless(s *particle.Store, id particle.QuantityID, dt float64, v []vecmath.Traceless2) error {
	dv, err := particle.GetDt[vecmath.Traceless2](s, id)
	if err != nil {
		return err
	}
	for i := range v {
		v[i] = v[i].Add(dv[i].Scale(dt))
	}
	return nil
}

// clampScalarRange applies each particle's material range to a
// newly-integrated scalar value, zeroing its derivative when clamping
// actually moved the value so the next step doesn't immediately push it
// back out of range.
func clampScalarRange(s *particle.Store, id particle.QuantityID, v, dv []float64) {
	for i := range v {
		mat := s.MaterialOf(i)
		if mat == nil {
			continue
		}
		clamped, moved := mat.RangeOf(id).Clamp(v[i])
		if moved {
			v[i] = clamped
			dv[i] = 0
		}
	}
}
