package equation

import (
	"github.com/astrophys-sim/impactcore/internal/derivative"
	"github.com/astrophys-sim/impactcore/internal/particle"
)

// Continuity writes dRho/dt = -rho*div(v) in the standard SPH divergence
// form, or -rho*tr(grad v) when a solid-stress term is present in the same
// run; the two forms coincide for an incompressible
// velocity gradient estimate and only differ in which quantities are
// already available, so this term always uses the standard SPH form and
// SolidStress separately advances the strain-rate trace it needs.
type Continuity struct{}

func (Continuity) Name() string            { return "Continuity" }
func (Continuity) Phase() derivative.Phase { return derivative.PhaseEval }
func (Continuity) Create(*particle.Store) error { return nil }
func (Continuity) Outputs() ([]particle.QuantityID, []particle.QuantityID) {
	return []particle.QuantityID{particle.Density}, nil
}

func (Continuity) EvalSymmetric(acc derivative.Accumulator, s *particle.Store, i int, neighs []derivative.Neigh) {
	mass := particle.MustGetValue[float64](s, particle.Mass)
	vel := particle.Velocity(s)

	for _, n := range neighs {
		j := n.Index
		vij := vel[i].Sub(vel[j])
		div := vij.Dot(n.Grad)
		acc.AddScalar(particle.Density, i, mass[j]*div)
		acc.AddScalar(particle.Density, j, mass[i]*div)
	}
}

func (Continuity) EvalNeighs(derivative.Accumulator, *particle.Store, int, []derivative.Neigh) {}
