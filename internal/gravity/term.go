package gravity

import (
	"github.com/astrophys-sim/impactcore/internal/derivative"
	"github.com/astrophys-sim/impactcore/internal/particle"
	"github.com/astrophys-sim/impactcore/internal/simerr"
	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

// Solver is a derivative.Term that accelerates every particle (and every
// registered attractor) with a Barnes-Hut tree. The tree is rebuilt only
// by Prepare, which must be called once
// per step, before the derivative.Holder runs its sweep, since building
// the tree is a whole-store operation the per-pair EvalNeighs interface
// cannot trigger itself.
type Solver struct {
	Theta   float64
	MaxRank int

	tree *Tree
}

// NewSolver returns a Solver with an empty tree. It performs no check for
// other gravity sources; see CheckSingleSource.
func NewSolver(theta float64, maxRank int) *Solver {
	return &Solver{Theta: theta, MaxRank: maxRank, tree: NewTree(theta, maxRank)}
}

// Prepare rebuilds the tree over the store's current particle positions
// and masses plus any attractors. Call once per step before Register's
// term runs.
func (g *Solver) Prepare(s *particle.Store) error {
	positions, err := particle.GetValue[vecmath.Vec](s, particle.Position)
	if err != nil {
		return err
	}
	mass, err := particle.GetValue[float64](s, particle.Mass)
	if err != nil {
		return err
	}
	bodies := make([]Body, 0, s.Count()+len(s.Attractors()))
	for i := range positions {
		bodies = append(bodies, Body{Position: positions[i], Mass: mass[i]})
	}
	for _, at := range s.Attractors() {
		bodies = append(bodies, Body{Position: at.Position, Mass: at.Mass})
	}
	g.tree.Build(bodies)
	return nil
}

func (g *Solver) Name() string            { return "Gravity" }
func (g *Solver) Phase() derivative.Phase { return derivative.PhaseEval }
func (g *Solver) Create(*particle.Store) error {
	return nil
}
func (g *Solver) Outputs() ([]particle.QuantityID, []particle.QuantityID) {
	return []particle.QuantityID{particle.Position}, []particle.QuantityID{particle.Position}
}
func (g *Solver) EvalSymmetric(derivative.Accumulator, *particle.Store, int, []derivative.Neigh) {
}

func (g *Solver) EvalNeighs(acc derivative.Accumulator, s *particle.Store, i int, _ []derivative.Neigh) {
	positions := particle.MustGetValue[vecmath.Vec](s, particle.Position)
	acc.AddVector(particle.Position, i, g.tree.Acceleration(positions[i], i))
}

// AttractorAccelerations returns the acceleration felt by each registered
// attractor from the SPH particle mass distribution and from every other
// attractor (attractors do not exclude themselves via a store index since
// they live outside the store; Tree.Build appends them after all real
// particles, so their body index is len(store)+k).
func (g *Solver) AttractorAccelerations(s *particle.Store) []vecmath.Vec {
	attractors := s.Attractors()
	out := make([]vecmath.Vec, len(attractors))
	base := s.Count()
	for k, at := range attractors {
		out[k] = g.tree.Acceleration(at.Position, base+k)
	}
	return out
}

// CheckSingleSource returns InvalidSetup when its caller reports that
// another Position-accelerating gravity source is registered. The flag
// comes from the caller only: cmd/impactcore's buildRunner passes false,
// and nothing in the module detects an equation.SphericalGravity term or a
// second Solver in the same Holder (both list Position as a shared
// output, so Holder.Register accepts them).
func CheckSingleSource(otherGravitySourceRegistered bool) error {
	if otherGravitySourceRegistered {
		return simerr.InvalidSetup("gravity", "tree solver cannot be combined with another gravity source writing Position's acceleration")
	}
	return nil
}
