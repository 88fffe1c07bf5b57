package equation

import (
	"github.com/astrophys-sim/impactcore/internal/derivative"
	"github.com/astrophys-sim/impactcore/internal/particle"
	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

// externalForce is the shared per-particle shape of the external-force
// family: none of them look at neighbors, so all the work is in
// EvalNeighs, which adds to the particle's acceleration. EvalSymmetric is
// empty, so these terms contribute only in a Holder running the
// asymmetric sweep.
type externalForce struct {
	apply func(s *particle.Store, i int) vecmath.Vec
}

func (externalForce) Name() string            { return "ExternalForce" }
func (externalForce) Phase() derivative.Phase { return derivative.PhaseEval }
func (externalForce) Create(*particle.Store) error { return nil }
func (externalForce) Outputs() ([]particle.QuantityID, []particle.QuantityID) {
	return []particle.QuantityID{particle.Position}, []particle.QuantityID{particle.Position}
}
func (externalForce) EvalSymmetric(derivative.Accumulator, *particle.Store, int, []derivative.Neigh) {
}

func (f externalForce) EvalNeighs(acc derivative.Accumulator, s *particle.Store, i int, _ []derivative.Neigh) {
	acc.AddVector(particle.Position, i, f.apply(s, i))
}

// ConstantAcceleration adds the same acceleration vector to every particle
// (e.g. a local "down").
func ConstantAcceleration(g vecmath.Vec) derivative.Term {
	return externalForce{apply: func(*particle.Store, int) vecmath.Vec { return g }}
}

// Inertial adds the Coriolis and centrifugal pseudo-forces of a frame
// rotating at angular velocity omega about the origin: a = -2*omega x v -
// omega x (omega x r).
func Inertial(omega vecmath.Vec) derivative.Term {
	return externalForce{apply: func(s *particle.Store, i int) vecmath.Vec {
		positions := particle.MustGetValue[vecmath.Vec](s, particle.Position)
		vel := particle.Velocity(s)
		coriolis := omega.Cross(vel[i]).Scale(-2)
		centrifugal := omega.Cross(omega.Cross(positions[i])).Scale(-1)
		return coriolis.Add(centrifugal)
	}}
}

// SphericalGravity is the analytic gravitational acceleration of a
// homogeneous sphere of the given mass and radius centered at center:
// linear inside the sphere, inverse-square outside. Nothing rejects
// registering this alongside internal/gravity's tree solver: both list
// Position as a shared output, so Holder.Register accepts the pair.
func SphericalGravity(center vecmath.Vec, mass, radius, g float64) derivative.Term {
	return externalForce{apply: func(s *particle.Store, i int) vecmath.Vec {
		positions := particle.MustGetValue[vecmath.Vec](s, particle.Position)
		d := positions[i].Sub(center)
		r := d.Norm()
		if r < 1e-12 {
			return vecmath.Zero()
		}
		var accelMag float64
		if r < radius {
			accelMag = -g * mass * r / (radius * radius * radius)
		} else {
			accelMag = -g * mass / (r * r)
		}
		return d.Scale(accelMag / r)
	}}
}
