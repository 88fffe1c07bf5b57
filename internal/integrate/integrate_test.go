package integrate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/astrophys-sim/impactcore/internal/particle"
	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

func oneParticleStore(t *testing.T, position vecmath.Vec, density float64, densityRange vecmath.Interval) *particle.Store {
	t.Helper()
	mat := particle.NewMaterial()
	mat.Ranges = map[particle.QuantityID]vecmath.Interval{particle.Density: densityRange}
	mat.Create = func(s *particle.Store, m *particle.Material) error {
		if err := particle.Insert(s, particle.Position, particle.OrderSecond, []vecmath.Vec{position}); err != nil {
			return err
		}
		if err := particle.InsertConst(s, particle.Mass, particle.OrderZero, 1.0); err != nil {
			return err
		}
		return particle.InsertConst(s, particle.Density, particle.OrderFirst, density)
	}
	s, err := particle.NewStore([]int{1}, []*particle.Material{mat})
	require.NoError(t, err)
	return s
}

func TestEulerAdvancesPositionAndVelocity(t *testing.T) {
	s := oneParticleStore(t, vecmath.VH(0, 0, 0, 1), 1.0, vecmath.Unbounded())
	vel := particle.Velocity(s)
	vel[0] = vecmath.V(2, 0, 0)
	accel, err := particle.GetD2t[vecmath.Vec](s, particle.Position)
	require.NoError(t, err)
	accel[0] = vecmath.V(1, 0, 0)

	require.NoError(t, Euler{}.Step(s, 0.5))

	pos := particle.MustGetValue[vecmath.Vec](s, particle.Position)
	require.InDelta(t, 1.0, pos[0].X(), 1e-9) // 0 + 2*0.5
	vel = particle.Velocity(s)
	require.InDelta(t, 2.5, vel[0].X(), 1e-9) // 2 + 1*0.5
}

func TestEulerClampZeroesDerivativeOnMove(t *testing.T) {
	s := oneParticleStore(t, vecmath.VH(0, 0, 0, 1), 0.95, vecmath.NewInterval(0, 1))
	dv, err := particle.GetDt[float64](s, particle.Density)
	require.NoError(t, err)
	dv[0] = 1.0 // would push density to 1.05, clamp should bring it back to 1 and zero dv

	require.NoError(t, Euler{}.Step(s, 0.1))

	density := particle.MustGetValue[float64](s, particle.Density)
	require.InDelta(t, 1.0, density[0], 1e-9)
	dv, err = particle.GetDt[float64](s, particle.Density)
	require.NoError(t, err)
	require.InDelta(t, 0.0, dv[0], 1e-9)
}

func TestCourantCriterionScalesWithSmoothingLength(t *testing.T) {
	s := oneParticleStore(t, vecmath.VH(0, 0, 0, 2.0), 1.0, vecmath.Unbounded())
	require.NoError(t, particle.InsertConst(s, particle.SoundSpeed, particle.OrderZero, 4.0))

	c := NewCourant()
	step := c.Compute(s, 100.0)
	require.InDelta(t, c.Number*2.0/4.0, step, 1e-9)
}

func TestCourantCriterionIgnoresZeroSoundSpeed(t *testing.T) {
	s := oneParticleStore(t, vecmath.VH(0, 0, 0, 2.0), 1.0, vecmath.Unbounded())
	require.NoError(t, particle.InsertConst(s, particle.SoundSpeed, particle.OrderZero, 0.0))

	c := NewCourant()
	step := c.Compute(s, 100.0)
	require.True(t, math.IsInf(step, 1))
}

func TestUserMaxCriterionIsFixed(t *testing.T) {
	s := oneParticleStore(t, vecmath.VH(0, 0, 0, 1), 1.0, vecmath.Unbounded())
	u := UserMax{Max: 0.01}
	require.Equal(t, 0.01, u.Compute(s, 100.0))
}

func TestCombineTakesSmallestStep(t *testing.T) {
	s := oneParticleStore(t, vecmath.VH(0, 0, 0, 2.0), 1.0, vecmath.Unbounded())
	require.NoError(t, particle.InsertConst(s, particle.SoundSpeed, particle.OrderZero, 4.0))

	c := NewCourant()
	step := Combine(s, 100.0, c, UserMax{Max: 0.001})
	require.InDelta(t, 0.001, step, 1e-12)
}

func TestPredictorCorrectorConservesConstantAcceleration(t *testing.T) {
	s := oneParticleStore(t, vecmath.VH(0, 0, 0, 1), 1.0, vecmath.Unbounded())
	vel := particle.Velocity(s)
	vel[0] = vecmath.V(1, 0, 0)
	accel, err := particle.GetD2t[vecmath.Vec](s, particle.Position)
	require.NoError(t, err)
	accel[0] = vecmath.V(2, 0, 0)

	reevaluate := func(s *particle.Store) error {
		a, err := particle.GetD2t[vecmath.Vec](s, particle.Position)
		if err != nil {
			return err
		}
		a[0] = vecmath.V(2, 0, 0) // constant acceleration field: same at predicted position
		return nil
	}
	pc := NewPredictorCorrector(reevaluate)
	require.NoError(t, pc.Step(s, 1.0))

	pos := particle.MustGetValue[vecmath.Vec](s, particle.Position)
	// exact for constant acceleration: x = x0 + v0*t + 0.5*a*t^2 = 0 + 1 + 1 = 2
	require.InDelta(t, 2.0, pos[0].X(), 1e-9)
	vel = particle.Velocity(s)
	require.InDelta(t, 3.0, vel[0].X(), 1e-9) // v0 + a*t = 1 + 2
}
