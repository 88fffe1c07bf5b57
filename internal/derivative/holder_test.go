package derivative

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/astrophys-sim/impactcore/internal/kernel"
	"github.com/astrophys-sim/impactcore/internal/particle"
	"github.com/astrophys-sim/impactcore/internal/spatial"
	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

// countTerm counts, into a Density-shaped scalar, how many neighbors each
// particle sees; used to check that the symmetric sweep visits every pair
// exactly once and updates both sides.
type countTerm struct{}

func (countTerm) Name() string  { return "count" }
func (countTerm) Phase() Phase  { return PhaseEval }
func (countTerm) Create(s *particle.Store) error {
	return particle.InsertConst(s, particle.Density, particle.OrderFirst, 0.0)
}
func (countTerm) Outputs() ([]particle.QuantityID, []particle.QuantityID) {
	return []particle.QuantityID{particle.Density}, nil
}
func (countTerm) EvalSymmetric(acc Accumulator, s *particle.Store, i int, neighs []Neigh) {
	for _, n := range neighs {
		acc.AddScalar(particle.Density, i, 1)
		acc.AddScalar(particle.Density, n.Index, 1)
	}
}
func (countTerm) EvalNeighs(acc Accumulator, s *particle.Store, i int, neighs []Neigh) {}

func newTestStore(t *testing.T, positions []vecmath.Vec) *particle.Store {
	t.Helper()
	mat := particle.NewMaterial()
	mat.Create = func(s *particle.Store, m *particle.Material) error {
		if err := particle.Insert(s, particle.Position, particle.OrderSecond, positions); err != nil {
			return err
		}
		return particle.InsertConst(s, particle.Mass, particle.OrderZero, 1.0)
	}
	s, err := particle.NewStore([]int{len(positions)}, []*particle.Material{mat})
	require.NoError(t, err)
	return s
}

func TestHolderDuplicateOutputFails(t *testing.T) {
	positions := []vecmath.Vec{vecmath.V(0, 0, 0), vecmath.VH(0.5, 0, 0, 1)}
	s := newTestStore(t, positions)
	h := NewHolder(kernel.CubicSpline{Dim: 3})
	require.NoError(t, h.Register(s, countTerm{}, false))
	err := h.Register(s, countTerm{}, false)
	require.Error(t, err)
}

func TestHolderSymmetricSweepCountsEachPairOnce(t *testing.T) {
	positions := []vecmath.Vec{
		vecmath.VH(0, 0, 0, 1),
		vecmath.VH(0.5, 0, 0, 1),
		vecmath.VH(1.0, 0, 0, 1),
	}
	s := newTestStore(t, positions)
	h := NewHolder(kernel.CubicSpline{Dim: 3})
	require.NoError(t, h.Register(s, countTerm{}, false))

	finder := spatial.NewKdTree()
	geoms := make([]vecmath.Vec, len(positions))
	for i, p := range positions {
		geoms[i] = p
	}
	finder.Build(geoms)

	less := func(a, b int) bool { return a < b }
	err := h.Evaluate(s, finder, func(int) float64 { return 3.0 }, less)
	require.NoError(t, err)

	counts, err := particle.GetDt[float64](s, particle.Density)
	require.NoError(t, err)
	// every particle sees both others within radius 3
	for _, c := range counts {
		require.Equal(t, 2.0, c)
	}
}
