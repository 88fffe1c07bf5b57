package integrate

import (
	"github.com/astrophys-sim/impactcore/internal/particle"
	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

// PredictorCorrector is a second-order trapezoidal integrator: predict every
// quantity with the derivatives already sitting in the buffers, recompute
// derivatives at the predicted state, then correct by a weighted blend of
// the old and new derivatives. Transcribed from
// TimeStepping.cpp's PredictorCorrector::{makePredictions,makeCorrections,
// stepImpl}. Reevaluate is supplied by the caller (cmd/impactcore's
// buildIntegrator)
// since recomputing derivatives needs the equation set, gravity solver and
// boundary handlers that this package doesn't own.
type PredictorCorrector struct {
	Reevaluate func(s *particle.Store) error
}

func NewPredictorCorrector(reevaluate func(s *particle.Store) error) *PredictorCorrector {
	return &PredictorCorrector{Reevaluate: reevaluate}
}

func (pc *PredictorCorrector) Step(s *particle.Store, dt float64) error {
	snap := snapshotDerivatives(s)
	predictAll(s, dt)
	ZeroDerivatives(s)
	if err := pc.Reevaluate(s); err != nil {
		return err
	}
	correctAll(s, dt, snap)
	return nil
}

// derivSnapshot holds the derivatives that fed the prediction step, kept
// around so makeCorrections can weigh them against the freshly recomputed
// ones. Only the derivative order actually used by the correction formula
// is captured: d2v for second-order quantities, dv for first-order ones.
type derivSnapshot struct {
	floatD2v map[particle.QuantityID][]float64
	floatDv  map[particle.QuantityID][]float64
	vecD2v   map[particle.QuantityID][]vecmath.Vec
	vecDv    map[particle.QuantityID][]vecmath.Vec
	tlsDv    map[particle.QuantityID][]vecmath.Traceless2
}

func snapshotDerivatives(s *particle.Store) *derivSnapshot {
	snap := &derivSnapshot{
		floatD2v: map[particle.QuantityID][]float64{},
		floatDv:  map[particle.QuantityID][]float64{},
		vecD2v:   map[particle.QuantityID][]vecmath.Vec{},
		vecDv:    map[particle.QuantityID][]vecmath.Vec{},
		tlsDv:    map[particle.QuantityID][]vecmath.Traceless2{},
	}
	for _, id := range s.QuantityIDs() {
		order, _ := s.Order(id)
		if order < particle.OrderFirst {
			continue
		}
		if _, err := particle.GetValue[float64](s, id); err == nil {
			if order == particle.OrderSecond {
				d2v, _ := particle.GetD2t[float64](s, id)
				snap.floatD2v[id] = append([]float64(nil), d2v...)
			} else {
				dv, _ := particle.GetDt[float64](s, id)
				snap.floatDv[id] = append([]float64(nil), dv...)
			}
			continue
		}
		if _, err := particle.GetValue[vecmath.Vec](s, id); err == nil {
			if order == particle.OrderSecond {
				d2v, _ := particle.GetD2t[vecmath.Vec](s, id)
				snap.vecD2v[id] = append([]vecmath.Vec(nil), d2v...)
			} else {
				dv, _ := particle.GetDt[vecmath.Vec](s, id)
				snap.vecDv[id] = append([]vecmath.Vec(nil), dv...)
			}
			continue
		}
		if _, err := particle.GetValue[vecmath.Traceless2](s, id); err == nil {
			dv, _ := particle.GetDt[vecmath.Traceless2](s, id)
			snap.tlsDv[id] = append([]vecmath.Traceless2(nil), dv...)
		}
	}
	return snap
}

// predictAll advances every quantity exactly like Euler, except a
// second-order quantity's value also picks up the d2v*dt^2/2 term.
func predictAll(s *particle.Store, dt float64) {
	dt2 := 0.5 * dt * dt
	for _, id := range s.QuantityIDs() {
		order, _ := s.Order(id)
		if order < particle.OrderFirst {
			continue
		}
		if v, err := particle.GetValue[float64](s, id); err == nil {
			dv, _ := particle.GetDt[float64](s, id)
			if order == particle.OrderSecond {
				d2v, _ := particle.GetD2t[float64](s, id)
				for i := range v {
					v[i] += dv[i]*dt + d2v[i]*dt2
					dv[i] += d2v[i] * dt
				}
			} else {
				for i := range v {
					v[i] += dv[i] * dt
				}
			}
			clampScalarRange(s, id, v, dv)
			continue
		}
		if v, err := particle.GetValue[vecmath.Vec](s, id); err == nil {
			dv, _ := particle.GetDt[vecmath.Vec](s, id)
			if order == particle.OrderSecond {
				d2v, _ := particle.GetD2t[vecmath.Vec](s, id)
				corr := positionCorrection(s, id)
				for i := range v {
					step := dv[i]
					if corr != nil {
						step = step.AddH(corr[i])
					}
					v[i] = v[i].AddH(step.ScaleH(dt)).AddH(d2v[i].ScaleH(dt2))
					dv[i] = dv[i].AddH(d2v[i].ScaleH(dt))
				}
			} else {
				for i := range v {
					v[i] = v[i].AddH(dv[i].ScaleH(dt))
				}
			}
			continue
		}
		if v, err := particle.GetValue[vecmath.Traceless2](s, id); err == nil {
			dv, _ := particle.GetDt[vecmath.Traceless2](s, id)
			for i := range v {
				v[i] = v[i].Add(dv[i].Scale(dt))
			}
		}
	}
}

// ZeroDerivatives clears only the buffers the derivative pipeline is about
// to accumulate into: d2v for second-order quantities (acceleration is
// always recomputed from scratch) and dv for first-order ones (a rate like
// density/energy change is likewise recomputed). A second-order quantity's
// dv is real integrated state (e.g. velocity) and must survive untouched.
// Exported so internal/run.Runner can zero the same buffers before its own
// pre-integrator Holder.Evaluate call, since accumulator.reduce adds onto
// whatever a buffer already holds rather than overwriting it.
func ZeroDerivatives(s *particle.Store) {
	for _, id := range s.QuantityIDs() {
		order, _ := s.Order(id)
		if order < particle.OrderFirst {
			continue
		}
		if d2v, err := particle.GetD2t[float64](s, id); err == nil {
			if order == particle.OrderSecond {
				for i := range d2v {
					d2v[i] = 0
				}
			}
			continue
		}
		if d2v, err := particle.GetD2t[vecmath.Vec](s, id); err == nil {
			if order == particle.OrderSecond {
				for i := range d2v {
					d2v[i] = vecmath.Zero()
				}
			}
			continue
		}
	}
	for _, id := range s.QuantityIDs() {
		order, _ := s.Order(id)
		if order != particle.OrderFirst {
			continue
		}
		if dv, err := particle.GetDt[float64](s, id); err == nil {
			for i := range dv {
				dv[i] = 0
			}
			continue
		}
		if dv, err := particle.GetDt[vecmath.Vec](s, id); err == nil {
			for i := range dv {
				dv[i] = vecmath.Zero()
			}
			continue
		}
		if dv, err := particle.GetDt[vecmath.Traceless2](s, id); err == nil {
			var zero vecmath.Traceless2
			for i := range dv {
				dv[i] = zero
			}
		}
	}
}

// correctAll blends the snapshot derivatives with the freshly recomputed
// ones: a=1/3, b=1/2 for the second-order value/first-derivative pair, 1/2
// for a first-order value, transcribed from makeCorrections.
func correctAll(s *particle.Store, dt float64, snap *derivSnapshot) {
	const a = 1.0 / 3.0
	const b = 0.5
	dt2 := 0.5 * dt * dt
	for _, id := range s.QuantityIDs() {
		order, _ := s.Order(id)
		if order < particle.OrderFirst {
			continue
		}
		if v, err := particle.GetValue[float64](s, id); err == nil {
			if order == particle.OrderSecond {
				oldD2v, ok := snap.floatD2v[id]
				if !ok {
					continue
				}
				newD2v, _ := particle.GetD2t[float64](s, id)
				dv, _ := particle.GetDt[float64](s, id)
				for i := range v {
					correction := newD2v[i] - oldD2v[i]
					v[i] += a * correction * dt2
					dv[i] += b * correction * dt
				}
				clampScalarRange(s, id, v, dv)
			} else {
				oldDv, ok := snap.floatDv[id]
				if !ok {
					continue
				}
				newDv, _ := particle.GetDt[float64](s, id)
				for i := range v {
					v[i] += b * (newDv[i] - oldDv[i]) * dt
				}
				clampScalarRange(s, id, v, newDv)
			}
			continue
		}
		if v, err := particle.GetValue[vecmath.Vec](s, id); err == nil {
			if order == particle.OrderSecond {
				oldD2v, ok := snap.vecD2v[id]
				if !ok {
					continue
				}
				newD2v, _ := particle.GetD2t[vecmath.Vec](s, id)
				dv, _ := particle.GetDt[vecmath.Vec](s, id)
				var oldCorr, newCorr []vecmath.Vec
				if id == particle.Position && s.Has(particle.XSPHCorrection) {
					oldCorr = snap.vecDv[particle.XSPHCorrection]
					newCorr, _ = particle.GetDt[vecmath.Vec](s, particle.XSPHCorrection)
				}
				for i := range v {
					correction := newD2v[i].AddH(oldD2v[i].ScaleH(-1))
					v[i] = v[i].AddH(correction.ScaleH(a * dt2))
					if newCorr != nil {
						cdelta := newCorr[i].AddH(oldCorr[i].ScaleH(-1))
						v[i] = v[i].AddH(cdelta.ScaleH(b * dt))
					}
					dv[i] = dv[i].AddH(correction.ScaleH(b * dt))
				}
			} else {
				oldDv, ok := snap.vecDv[id]
				if !ok {
					continue
				}
				newDv, _ := particle.GetDt[vecmath.Vec](s, id)
				for i := range v {
					correction := newDv[i].AddH(oldDv[i].ScaleH(-1))
					v[i] = v[i].AddH(correction.ScaleH(b * dt))
				}
			}
			continue
		}
		if v, err := particle.GetValue[vecmath.Traceless2](s, id); err == nil {
			oldDv, ok := snap.tlsDv[id]
			if !ok {
				continue
			}
			newDv, _ := particle.GetDt[vecmath.Traceless2](s, id)
			for i := range v {
				correction := newDv[i].Sub(oldDv[i])
				v[i] = v[i].Add(correction.Scale(b * dt))
			}
		}
	}
}
