package boundary

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/astrophys-sim/impactcore/internal/particle"
	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

func newStoreNear(t *testing.T, positions []vecmath.Vec) *particle.Store {
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

func TestGhostParticlesDoesNotDoubleGhostsWithoutFinalize(t *testing.T) {
	positions := []vecmath.Vec{vecmath.VH(0, 0, 0.05, 1), vecmath.VH(1, 1, 5, 1)}
	s := newStoreNear(t, positions)

	g := NewGhostParticles(Plane{Normal: vecmath.V(0, 0, 1), Offset: 0}, func(*particle.Store, int) float64 { return 1.0 })
	require.NoError(t, g.Initialize(s))
	afterFirst := s.Count()
	require.NoError(t, g.Initialize(s))
	afterSecond := s.Count()
	require.Equal(t, afterFirst, afterSecond, "second Initialize without Finalize must not add more ghosts")
}

func TestGhostParticlesFinalizeRemovesGhosts(t *testing.T) {
	positions := []vecmath.Vec{vecmath.VH(0, 0, 0.05, 1)}
	s := newStoreNear(t, positions)

	g := NewGhostParticles(Plane{Normal: vecmath.V(0, 0, 1), Offset: 0}, func(*particle.Store, int) float64 { return 1.0 })
	require.NoError(t, g.Initialize(s))
	require.Equal(t, 2, s.Count())
	require.NoError(t, g.Finalize(s))
	require.Equal(t, 1, s.Count())
}

func TestKillEscapersRemovesOutsideDomain(t *testing.T) {
	positions := []vecmath.Vec{vecmath.V(0, 0, 0), vecmath.V(100, 100, 100)}
	s := newStoreNear(t, positions)

	k := KillEscapers{Domain: func(p vecmath.Vec) bool { return p.Norm() < 10 }}
	require.NoError(t, k.Finalize(s))
	require.Equal(t, 1, s.Count())
}
