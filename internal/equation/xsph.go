package equation

import (
	"github.com/astrophys-sim/impactcore/internal/derivative"
	"github.com/astrophys-sim/impactcore/internal/particle"
	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

// XSPH adds a smoothed-velocity correction used only as the positional
// time derivative: dr_i/dt = v_i + Epsilon * sum_j
// (m_j/rhobar_ij) * (v_j - v_i) * W_ij. It writes into a dedicated
// XSPHCorrection quantity's Dt buffer (the correction itself, not a
// derivative of anything) rather than directly perturbing velocity, so the
// integrator can add position derivative = velocity + correction without
// XSPH ever affecting momentum.
type XSPH struct {
	Epsilon float64
}

func NewXSPH() XSPH { return XSPH{Epsilon: 0.5} }

func (XSPH) Name() string            { return "XSPH" }
func (XSPH) Phase() derivative.Phase { return derivative.PhaseEval }
func (XSPH) Create(s *particle.Store) error {
	return particle.InsertConst(s, particle.XSPHCorrection, particle.OrderFirst, vecmath.Zero())
}
func (XSPH) Outputs() ([]particle.QuantityID, []particle.QuantityID) {
	return []particle.QuantityID{particle.XSPHCorrection}, nil
}

func (xs XSPH) EvalSymmetric(acc derivative.Accumulator, s *particle.Store, i int, neighs []derivative.Neigh) {
	mass := particle.MustGetValue[float64](s, particle.Mass)
	rho := particle.MustGetValue[float64](s, particle.Density)
	vel := particle.Velocity(s)

	for _, n := range neighs {
		j := n.Index
		rhobar := 0.5 * (rho[i] + rho[j])
		vij := vel[j].Sub(vel[i]).Scale(xs.Epsilon * mass[j] / rhobar * n.Weight)
		vji := vel[i].Sub(vel[j]).Scale(xs.Epsilon * mass[i] / rhobar * n.Weight)
		acc.AddVector(particle.XSPHCorrection, i, vij)
		acc.AddVector(particle.XSPHCorrection, j, vji)
	}
}

func (XSPH) EvalNeighs(derivative.Accumulator, *particle.Store, int, []derivative.Neigh) {}
