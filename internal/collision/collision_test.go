package collision

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/astrophys-sim/impactcore/internal/particle"
	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

func storeOf(t *testing.T, positions []vecmath.Vec, velocities []vecmath.Vec, masses []float64) *particle.Store {
	t.Helper()
	mat := particle.NewMaterial()
	mat.Create = func(s *particle.Store, m *particle.Material) error {
		if err := particle.Insert(s, particle.Position, particle.OrderSecond, positions); err != nil {
			return err
		}
		vel := particle.Velocity(s)
		copy(vel, velocities)
		return particle.Insert(s, particle.Mass, particle.OrderZero, masses)
	}
	s, err := particle.NewStore([]int{len(positions)}, []*particle.Material{mat})
	require.NoError(t, err)
	return s
}

func TestContactTimeApproaching(t *testing.T) {
	r1 := vecmath.VH(0, 0, 0, 0.5)
	r2 := vecmath.VH(3, 0, 0, 0.5)
	v1 := vecmath.V(1, 0, 0)
	v2 := vecmath.Zero()
	tColl, ok := contactTime(r1, r2, v1, v2, r1.H(), r2.H(), 0.01)
	require.True(t, ok)
	// centers meet at t=3, contact (surfaces touch) happens at t=2.
	require.InDelta(t, 2.0, tColl, 1e-9)
}

func TestContactTimeMovingApart(t *testing.T) {
	r1 := vecmath.VH(0, 0, 0, 0.5)
	r2 := vecmath.VH(3, 0, 0, 0.5)
	v1 := vecmath.V(-1, 0, 0)
	v2 := vecmath.Zero()
	_, ok := contactTime(r1, r2, v1, v2, r1.H(), r2.H(), 0.01)
	require.False(t, ok)
}

func TestContactTimeMissesPerpendicular(t *testing.T) {
	r1 := vecmath.VH(0, 5, 0, 0.1)
	r2 := vecmath.VH(3, 0, 0, 0.1)
	v1 := vecmath.V(1, 0, 0)
	v2 := vecmath.Zero()
	_, ok := contactTime(r1, r2, v1, v2, r1.H(), r2.H(), 0.01)
	require.False(t, ok)
}

func TestContactTimeAlreadyOverlapping(t *testing.T) {
	r1 := vecmath.VH(0, 0, 0, 1)
	r2 := vecmath.VH(1, 0, 0, 1)
	v1 := vecmath.V(1, 0, 0)
	v2 := vecmath.Zero()
	tColl, ok := contactTime(r1, r2, v1, v2, r1.H(), r2.H(), 0.01)
	require.True(t, ok)
	require.Less(t, tColl, 0.0)
}

func TestElasticBounceConservesMomentumAndSpeed(t *testing.T) {
	positions := []vecmath.Vec{vecmath.VH(0, 0, 0, 0.5), vecmath.VH(1, 0, 0, 0.5)}
	velocities := []vecmath.Vec{vecmath.V(1, 0, 0), vecmath.V(-1, 0, 0)}
	masses := []float64{1, 1}
	s := storeOf(t, positions, velocities, masses)

	h := NewElasticBounce()
	result := h.Collide(s, 0, 1, 0)
	require.Equal(t, Bounce, result)

	vel := particle.Velocity(s)
	mass := particle.MustGetValue[float64](s, particle.Mass)
	totalP := vel[0].Scale(mass[0]).Add(vel[1].Scale(mass[1]))
	require.InDelta(t, 0, totalP.X(), 1e-9)
	require.InDelta(t, 0, totalP.Y(), 1e-9)
	require.InDelta(t, 0, totalP.Z(), 1e-9)
	require.InDelta(t, 1.0, vel[0].Norm(), 1e-9)
	require.InDelta(t, 1.0, vel[1].Norm(), 1e-9)
	// equal masses, head-on, unit restitution: velocities exchange sign.
	require.InDelta(t, -1.0, vel[0].X(), 1e-9)
	require.InDelta(t, 1.0, vel[1].X(), 1e-9)
}

func TestPerfectMergerConservesMassAndMomentum(t *testing.T) {
	positions := []vecmath.Vec{vecmath.VH(0, 0, 0, 1), vecmath.VH(1, 0, 0, 1)}
	velocities := []vecmath.Vec{vecmath.V(2, 0, 0), vecmath.V(0, 0, 0)}
	masses := []float64{1, 3}
	s := storeOf(t, positions, velocities, masses)

	var absorbed []int
	h := NewPerfectMerger(&absorbed)
	result := h.Collide(s, 0, 1, 0)
	require.Equal(t, Merger, result)
	require.Equal(t, []int{1}, absorbed)

	mass := particle.MustGetValue[float64](s, particle.Mass)
	vel := particle.Velocity(s)
	require.InDelta(t, 4.0, mass[0], 1e-9)
	// momentum conservation: (1*2 + 3*0)/4 = 0.5
	require.InDelta(t, 0.5, vel[0].X(), 1e-9)

	pos := particle.MustGetValue[vecmath.Vec](s, particle.Position)
	require.Greater(t, pos[0].H(), 1.0) // cbrt(1^3+1^3) > 1
}

func TestRecordOrdering(t *testing.T) {
	a := Record{I: 0, J: 1, TColl: 1.0, Overlap: 0}
	b := Record{I: 2, J: 3, TColl: 0.5, Overlap: 0}
	require.True(t, Less(b, a))

	c := Record{I: 0, J: 1, TColl: 0.5, Overlap: 0.2}
	d := Record{I: 2, J: 3, TColl: 0.5, Overlap: 0.1}
	require.True(t, Less(c, d))
}

func TestResolverMergesApproachingPair(t *testing.T) {
	positions := []vecmath.Vec{vecmath.VH(0, 0, 0, 0.4), vecmath.VH(2, 0, 0, 0.4)}
	velocities := []vecmath.Vec{vecmath.V(1, 0, 0), vecmath.V(-1, 0, 0)}
	masses := []float64{1, 1}
	s := storeOf(t, positions, velocities, masses)

	var absorbed []int
	r := NewResolver(NewPerfectMerger(&absorbed), NewPerfectMerger(&absorbed))
	r.Absorbed = &absorbed
	require.NoError(t, r.Step(s, 2.0))

	require.Equal(t, 1, s.Count())
	require.Equal(t, 1, r.Stats.Mergers)
	mass := particle.MustGetValue[float64](s, particle.Mass)
	require.InDelta(t, 2.0, mass[0], 1e-9)
}

func TestResolverLeavesNonCollidingPairAlone(t *testing.T) {
	positions := []vecmath.Vec{vecmath.VH(0, 0, 0, 0.1), vecmath.VH(100, 0, 0, 0.1)}
	velocities := []vecmath.Vec{vecmath.V(1, 0, 0), vecmath.V(0, 1, 0)}
	masses := []float64{1, 1}
	s := storeOf(t, positions, velocities, masses)

	var absorbed []int
	r := NewResolver(NewElasticBounce(), NewPerfectMerger(&absorbed))
	r.Absorbed = &absorbed
	require.NoError(t, r.Step(s, 1.0))

	require.Equal(t, 2, s.Count())
	pos := particle.MustGetValue[vecmath.Vec](s, particle.Position)
	require.InDelta(t, 1.0, pos[0].X(), 1e-9)
	require.InDelta(t, 100.0, pos[1].X(), 1e-9)
	require.InDelta(t, 1.0, pos[1].Y(), 1e-9)
}
