package boundary

import (
	"github.com/astrophys-sim/impactcore/internal/particle"
	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

// FrozenParticles zeroes Position's velocity (Dt) and acceleration (D2t)
// for every particle within Radius of Boundary, or flagged in Flagged,
// each step: those particles stop moving without being removed from the
// simulation. Other quantities and their derivatives are left as they
// are. Applied at Finalize, after the integrator has
// already advanced quantities from this step's derivatives, so the effect
// is that a frozen particle's *next* step sees no motion (its Dt/D2t
// buffers are cleared here, read fresh by the following step's pipeline).
type FrozenParticles struct {
	Boundary Plane
	Radius   func(s *particle.Store, i int) float64
	Flagged  func(s *particle.Store, i int) bool
}

func (FrozenParticles) Initialize(*particle.Store) error { return nil }

func (f FrozenParticles) Finalize(s *particle.Store) error {
	positions, err := particle.GetValue[vecmath.Vec](s, particle.Position)
	if err != nil {
		return err
	}
	accel, err := particle.GetD2t[vecmath.Vec](s, particle.Position)
	if err != nil {
		return err
	}
	vel, err := particle.GetDt[vecmath.Vec](s, particle.Position)
	if err != nil {
		return err
	}
	for i := range positions {
		near := f.Boundary.SignedDistance(positions[i]) <= f.Radius(s, i)
		flagged := f.Flagged != nil && f.Flagged(s, i)
		if near || flagged {
			accel[i] = vecmath.Zero()
			vel[i] = vecmath.Zero()
		}
	}
	return nil
}
