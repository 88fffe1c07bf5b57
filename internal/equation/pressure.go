// Package equation implements the equation terms as
// internal/derivative.Term registrations: pressure force, continuity,
// artificial viscosity, solid stress, damage growth, adaptive smoothing
// length, XSPH, and the external-force family. Grounded in shape on
// san-kum-dynsim/internal/physics/sph.go's per-pair force accumulation,
// generalized from a fixed poly6/spiky/visc kernel trio to the pluggable
// internal/kernel.Kernel and from a flat state vector to internal/particle's
// typed store.
package equation

import (
	"github.com/astrophys-sim/impactcore/internal/derivative"
	"github.com/astrophys-sim/impactcore/internal/particle"
)

// PressureForce contributes -(p_i/rho_i^2 + p_j/rho_j^2)*gradW to
// acceleration and the symmetric shock-heating term to dU/dt.
type PressureForce struct{}

func (PressureForce) Name() string            { return "PressureForce" }
func (PressureForce) Phase() derivative.Phase { return derivative.PhaseEval }
func (PressureForce) Create(*particle.Store) error { return nil }
func (PressureForce) Outputs() ([]particle.QuantityID, []particle.QuantityID) {
	// Energy is shared too: viscous heating accumulates into the same
	// buffer alongside pressure-work heating.
	return []particle.QuantityID{particle.Position, particle.Energy}, []particle.QuantityID{particle.Position, particle.Energy}
}

func (PressureForce) EvalSymmetric(acc derivative.Accumulator, s *particle.Store, i int, neighs []derivative.Neigh) {
	mass := particle.MustGetValue[float64](s, particle.Mass)
	rho := particle.MustGetValue[float64](s, particle.Density)
	press := particle.MustGetValue[float64](s, particle.Pressure)
	vel := particle.Velocity(s)

	for _, n := range neighs {
		j := n.Index
		coef := press[i]/(rho[i]*rho[i]) + press[j]/(rho[j]*rho[j])

		acc.AddVector(particle.Position, i, n.Grad.Scale(-coef*mass[j]))
		acc.AddVector(particle.Position, j, n.Grad.Scale(coef*mass[i]))

		heatDot := coef * vel[i].Sub(vel[j]).Dot(n.Grad)
		acc.AddScalar(particle.Energy, i, 0.5*mass[j]*heatDot)
		acc.AddScalar(particle.Energy, j, 0.5*mass[i]*heatDot)
	}
}

func (PressureForce) EvalNeighs(derivative.Accumulator, *particle.Store, int, []derivative.Neigh) {}
