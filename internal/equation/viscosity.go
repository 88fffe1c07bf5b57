package equation

import (
	"github.com/astrophys-sim/impactcore/internal/derivative"
	"github.com/astrophys-sim/impactcore/internal/particle"
	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

// ArtificialViscosity is Monaghan's standard SPH viscosity, controlled by
// (Alpha, Beta) and a small Eps guarding against a singular smoothing
// length; active only for converging pairs, v_ij . r_ij < 0.
type ArtificialViscosity struct {
	Alpha, Beta, Eps float64
}

func NewArtificialViscosity() ArtificialViscosity {
	return ArtificialViscosity{Alpha: 1.0, Beta: 2.0, Eps: 0.01}
}

func (ArtificialViscosity) Name() string            { return "ArtificialViscosity" }
func (ArtificialViscosity) Phase() derivative.Phase { return derivative.PhaseEval }
func (ArtificialViscosity) Create(*particle.Store) error { return nil }
func (ArtificialViscosity) Outputs() ([]particle.QuantityID, []particle.QuantityID) {
	return []particle.QuantityID{particle.Position, particle.Energy}, []particle.QuantityID{particle.Position, particle.Energy}
}

func (av ArtificialViscosity) EvalSymmetric(acc derivative.Accumulator, s *particle.Store, i int, neighs []derivative.Neigh) {
	mass := particle.MustGetValue[float64](s, particle.Mass)
	rho := particle.MustGetValue[float64](s, particle.Density)
	cs := particle.MustGetValue[float64](s, particle.SoundSpeed)
	positions := particle.MustGetValue[vecmath.Vec](s, particle.Position)
	vel := particle.Velocity(s)

	for _, n := range neighs {
		j := n.Index
		vij := vel[i].Sub(vel[j])
		vr := vij.Dot(n.Sep)
		if vr >= 0 {
			continue
		}

		hAvg := 0.5 * (positions[i].H() + positions[j].H())
		mu := hAvg * vr / (n.DistSq + av.Eps*hAvg*hAvg)
		csbar := 0.5 * (cs[i] + cs[j])
		rhobar := 0.5 * (rho[i] + rho[j])
		piVisc := (-av.Alpha*csbar*mu + av.Beta*mu*mu) / rhobar

		acc.AddVector(particle.Position, i, n.Grad.Scale(-piVisc*mass[j]))
		acc.AddVector(particle.Position, j, n.Grad.Scale(piVisc*mass[i]))

		heatDot := 0.5 * piVisc * vij.Dot(n.Grad)
		acc.AddScalar(particle.Energy, i, mass[j]*heatDot)
		acc.AddScalar(particle.Energy, j, mass[i]*heatDot)
	}
}

func (ArtificialViscosity) EvalNeighs(derivative.Accumulator, *particle.Store, int, []derivative.Neigh) {
}
