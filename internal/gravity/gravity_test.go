package gravity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

func TestReducedMultipoleIsTraceless(t *testing.T) {
	positions := []vecmath.Vec{
		vecmath.V(1, 2, 3), vecmath.V(-2, 1, 0.5), vecmath.V(0.3, -1.5, 2),
	}
	masses := []float64{1, 2, 0.5}
	for order := 2; order <= 4; order++ {
		raw := NewTensor(order)
		for i, p := range positions {
			raw.AddScaled(outerPower(p, order, masses[i]), 1)
		}
		red := reducedMultipole(raw)
		tr := nFoldContract(red, 1)
		for _, v := range tr.data {
			require.InDelta(t, 0, v, 1e-9, "order %d trace must vanish", order)
		}
	}
}

func TestQuadrupoleMatchesClosedForm(t *testing.T) {
	// single unit mass at (1,0,0): Q_ij = m*(3x_ix_j - r^2 delta_ij)/1 in the
	// unreduced convention this package uses (no factor of 3, see
	// reducedFactor(2,1)=-1/3), so Q_xx should be m*(1 - 1/3) = 2/3.
	raw := outerPower(vecmath.V(1, 0, 0), 2, 1)
	red := reducedMultipole(raw)
	require.InDelta(t, 2.0/3.0, red.Get(0, 0), 1e-12)
	require.InDelta(t, -1.0/3.0, red.Get(1, 1), 1e-12)
	require.InDelta(t, -1.0/3.0, red.Get(2, 2), 1e-12)
	require.InDelta(t, 0, red.Get(0, 1), 1e-12)
}

func TestShiftMatchesDirectComputation(t *testing.T) {
	positions := []vecmath.Vec{vecmath.V(1, 2, 3), vecmath.V(-1, 0.5, 2)}
	masses := []float64{2, 3}
	origin := vecmath.Zero()
	d := vecmath.V(0.7, -0.3, 1.1)

	rawAtOrigin := make([]*Tensor, 5)
	for order := 0; order <= 4; order++ {
		acc := NewTensor(order)
		for i, p := range positions {
			acc.AddScaled(outerPower(p.Sub(origin), order, masses[i]), 1)
		}
		rawAtOrigin[order] = acc
	}
	shifted := shift(rawAtOrigin, d)

	rawAtD := make([]*Tensor, 5)
	for order := 0; order <= 4; order++ {
		acc := NewTensor(order)
		for i, p := range positions {
			acc.AddScaled(outerPower(p.Sub(origin).Sub(d), order, masses[i]), 1)
		}
		rawAtD[order] = acc
	}

	for order := 0; order <= 4; order++ {
		for k, v := range rawAtD[order].data {
			require.InDelta(t, v, shifted[order].data[k], 1e-9, "order %d key %v", order, k)
		}
	}
}

func TestTreeMonopoleMatchesDirectSum(t *testing.T) {
	bodies := []Body{
		{Position: vecmath.V(0, 0, 0), Mass: 1},
		{Position: vecmath.V(1, 0, 0), Mass: 2},
		{Position: vecmath.V(0, 3, 0), Mass: 0.5},
		{Position: vecmath.V(-2, -1, 4), Mass: 1.5},
	}
	tree := NewTree(0.0, 4) // theta=0 forces exact direct summation everywhere
	tree.Build(bodies)

	eval := vecmath.V(5, 5, 5)
	got := tree.Acceleration(eval, -1)

	var want vecmath.Vec
	for _, b := range bodies {
		dr := eval.Sub(b.Position)
		dist := dr.Norm()
		want = want.Add(dr.Scale(-b.Mass / (dist * dist * dist)))
	}
	require.InDelta(t, want.X(), got.X(), 1e-6)
	require.InDelta(t, want.Y(), got.Y(), 1e-6)
	require.InDelta(t, want.Z(), got.Z(), 1e-6)
}

func TestAccelerationExcludesSelf(t *testing.T) {
	bodies := []Body{
		{Position: vecmath.V(0, 0, 0), Mass: 1},
		{Position: vecmath.V(1, 0, 0), Mass: 2},
	}
	tree := NewTree(0.0, 0)
	tree.Build(bodies)
	a := tree.Acceleration(vecmath.V(0, 0, 0), 0)
	// only body 1's pull should register
	want := vecmath.V(1, 0, 0).Scale(2)
	require.InDelta(t, want.X(), a.X(), 1e-9)
	require.True(t, math.Abs(a.Y()) < 1e-9 && math.Abs(a.Z()) < 1e-9)
}
