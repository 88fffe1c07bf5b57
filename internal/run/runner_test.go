package run

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/astrophys-sim/impactcore/internal/derivative"
	"github.com/astrophys-sim/impactcore/internal/equation"
	"github.com/astrophys-sim/impactcore/internal/integrate"
	"github.com/astrophys-sim/impactcore/internal/kernel"
	"github.com/astrophys-sim/impactcore/internal/particle"
	"github.com/astrophys-sim/impactcore/internal/spatial"
	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

// constantEOS reports a fixed pressure and sound speed regardless of
// density/energy, just enough to prove Runner actually calls Evaluate.
type constantEOS struct {
	p, cs float64
}

func (e constantEOS) Evaluate(rho, u float64) (float64, float64) { return e.p, e.cs }

func twoParticleStore(t *testing.T) *particle.Store {
	t.Helper()
	positions := []vecmath.Vec{vecmath.VH(0, 0, 0, 1), vecmath.VH(0.5, 0, 0, 1)}
	mat := particle.NewMaterial()
	mat.EOS = constantEOS{p: 2.0, cs: 1.5}
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
		if err := particle.InsertConst(s, particle.Pressure, particle.OrderZero, 0.0); err != nil {
			return err
		}
		if err := particle.InsertConst(s, particle.SoundSpeed, particle.OrderZero, 0.0); err != nil {
			return err
		}
		return particle.InsertConst(s, particle.Energy, particle.OrderFirst, 0.0)
	}
	s, err := particle.NewStore([]int{2}, []*particle.Material{mat})
	require.NoError(t, err)
	return s
}

func newTestRunner(t *testing.T, s *particle.Store) *Runner {
	t.Helper()
	h := derivative.NewHolder(kernel.CubicSpline{Dim: 3})
	require.NoError(t, h.Register(s, equation.PressureForce{}, false))
	finder := spatial.NewKdTree()
	r := NewRunner(h, finder, integrate.Euler{})
	r.MaxDt = 0.01
	return r
}

func TestStepEvaluatesEOSBeforeAndAfterIntegration(t *testing.T) {
	s := twoParticleStore(t)
	r := newTestRunner(t, s)

	_, err := r.Step(s, 1.0)
	require.NoError(t, err)

	press := particle.MustGetValue[float64](s, particle.Pressure)
	cs := particle.MustGetValue[float64](s, particle.SoundSpeed)
	for i := range press {
		require.Equal(t, 2.0, press[i])
		require.Equal(t, 1.5, cs[i])
	}
}

func TestStepAppliesAntisymmetricAcceleration(t *testing.T) {
	s := twoParticleStore(t)
	r := newTestRunner(t, s)

	_, err := r.Step(s, 1.0)
	require.NoError(t, err)

	vel := particle.Velocity(s)
	sum := vel[0].Add(vel[1])
	require.InDelta(t, 0, sum.X(), 1e-9)
}

func TestRunAdvancesTimeToEnd(t *testing.T) {
	s := twoParticleStore(t)
	r := newTestRunner(t, s)
	r.MaxDt = 0.05

	var lastStats Stats
	cb := &recordingCallbacks{onStep: func(stats Stats) { lastStats = stats }}
	require.NoError(t, r.Run(context.Background(), s, cb, 0.1))
	require.GreaterOrEqual(t, lastStats.Time, 0.1)
}

type recordingCallbacks struct {
	onStep func(Stats)
}

func (recordingCallbacks) OnSetup(*particle.Store) error { return nil }
func (c *recordingCallbacks) OnTimeStep(_ *particle.Store, stats Stats) error {
	if c.onStep != nil {
		c.onStep(stats)
	}
	return nil
}
func (recordingCallbacks) ShouldAbort() bool { return false }
