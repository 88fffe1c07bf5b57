package equation

import (
	"github.com/astrophys-sim/impactcore/internal/derivative"
	"github.com/astrophys-sim/impactcore/internal/particle"
	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

// SmoothingLength advances h via dh/dt = h/(d*rho) * drho/dt, with d the
// spatial dimension. It runs in PhaseEval, after
// Continuity has written drho/dt, and writes into Position's h lane via
// its Dt buffer.
type SmoothingLength struct {
	Dim int
}

func (SmoothingLength) Name() string            { return "SmoothingLength" }
func (SmoothingLength) Phase() derivative.Phase { return derivative.PhaseEval }
func (SmoothingLength) Create(*particle.Store) error { return nil }
func (SmoothingLength) Outputs() ([]particle.QuantityID, []particle.QuantityID) {
	return nil, nil // writes h directly, not through the accumulator
}

func (SmoothingLength) EvalSymmetric(derivative.Accumulator, *particle.Store, int, []derivative.Neigh) {
}
func (SmoothingLength) EvalNeighs(derivative.Accumulator, *particle.Store, int, []derivative.Neigh) {
}

// Finish applies the closed-form h update once every pair contribution to
// drho/dt has been reduced; called by internal/run after Holder.Evaluate,
// since the update needs the fully-reduced drho/dt rather than a
// per-neighbor contribution.
func (sl SmoothingLength) Finish(s *particle.Store) error {
	positions, err := particle.GetValue[vecmath.Vec](s, particle.Position)
	if err != nil {
		return err
	}
	posDt, err := particle.GetDt[vecmath.Vec](s, particle.Position)
	if err != nil {
		return err
	}
	rho, err := particle.GetValue[float64](s, particle.Density)
	if err != nil {
		return err
	}
	rhoDt, err := particle.GetDt[float64](s, particle.Density)
	if err != nil {
		return err
	}
	d := float64(sl.Dim)
	for i := range positions {
		h := positions[i].H()
		dh := h / (d * rho[i]) * rhoDt[i]
		posDt[i].SetH(dh)
	}
	return nil
}
