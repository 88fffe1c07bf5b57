package equation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/astrophys-sim/impactcore/internal/derivative"
	"github.com/astrophys-sim/impactcore/internal/kernel"
	"github.com/astrophys-sim/impactcore/internal/particle"
	"github.com/astrophys-sim/impactcore/internal/spatial"
	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

func twoParticleStore(t *testing.T) *particle.Store {
	t.Helper()
	positions := []vecmath.Vec{vecmath.VH(0, 0, 0, 1), vecmath.VH(0.3, 0, 0, 1)}
	mat := particle.NewMaterial()
	mat.Create = func(s *particle.Store, m *particle.Material) error {
		if err := particle.Insert(s, particle.Position, particle.OrderSecond, positions); err != nil {
			return err
		}
		if err := particle.InsertConst(s, particle.Mass, particle.OrderZero, 1.0); err != nil {
			return err
		}
		if err := particle.InsertConst(s, particle.Density, particle.OrderFirst, 1.0); err != nil {
			return err
		}
		if err := particle.InsertConst(s, particle.Pressure, particle.OrderZero, 1.0); err != nil {
			return err
		}
		return particle.InsertConst(s, particle.Energy, particle.OrderFirst, 0.0)
	}
	s, err := particle.NewStore([]int{2}, []*particle.Material{mat})
	require.NoError(t, err)
	return s
}

func TestPressureForceIsActionReaction(t *testing.T) {
	s := twoParticleStore(t)
	h := derivative.NewHolder(kernel.CubicSpline{Dim: 3})
	require.NoError(t, h.Register(s, PressureForce{}, false))

	positions := particle.MustGetValue[vecmath.Vec](s, particle.Position)
	finder := spatial.NewKdTree()
	finder.Build(positions)

	less := func(a, b int) bool { return a < b }
	require.NoError(t, h.Evaluate(s, finder, func(int) float64 { return 5.0 }, less))

	accel, err := particle.GetD2t[vecmath.Vec](s, particle.Position)
	require.NoError(t, err)
	sum := accel[0].Add(accel[1])
	require.InDelta(t, 0, sum.X(), 1e-9)
	require.InDelta(t, 0, sum.Y(), 1e-9)
	require.InDelta(t, 0, sum.Z(), 1e-9)
}
