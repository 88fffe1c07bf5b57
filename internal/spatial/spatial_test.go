package spatial

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

func randomCloud(n int, seed int64) []vecmath.Vec {
	rng := rand.New(rand.NewSource(seed))
	pts := make([]vecmath.Vec, n)
	for i := range pts {
		pts[i] = vecmath.V(rng.Float64()*10, rng.Float64()*10, rng.Float64()*10)
	}
	return pts
}

func bruteForce(positions []vecmath.Vec, i int, r float64) map[int]float64 {
	got := make(map[int]float64)
	rSq := r * r
	for j, p := range positions {
		if j == i {
			continue
		}
		d2 := vecmath.DistSq(positions[i], p)
		if d2 <= rSq {
			got[j] = d2
		}
	}
	return got
}

func toSet(ns []Neighbor) map[int]float64 {
	m := make(map[int]float64, len(ns))
	for _, n := range ns {
		m[n.Index] = n.DistSq
	}
	return m
}

func TestFindersAgreeWithBruteForce(t *testing.T) {
	positions := randomCloud(200, 1)
	radii := make([]float64, len(positions))
	for i := range radii {
		radii[i] = 0.5
	}

	finders := map[string]Finder{
		"grid":   NewGrid(1.0),
		"kdtree": NewKdTree(),
		"bvh":    NewBVH(radii),
	}

	for name, f := range finders {
		f.Build(positions)
		for _, i := range []int{0, 17, 199} {
			r := 1.5
			want := bruteForce(positions, i, r)
			got := toSet(f.FindAll(i, r, nil))
			require.Equalf(t, len(want), len(got), "%s: neighbor count mismatch at i=%d", name, i)
			for j, d2 := range want {
				gd2, ok := got[j]
				require.Truef(t, ok, "%s: missing neighbor %d at i=%d", name, j, i)
				require.InDeltaf(t, d2, gd2, 1e-9, "%s: distance mismatch for neighbor %d", name, j)
			}
		}
	}
}

func TestFindLowerRankIsAntisymmetric(t *testing.T) {
	positions := randomCloud(80, 2)
	less := func(a, b int) bool { return a < b }

	kd := NewKdTree()
	kd.Build(positions)

	for i := range positions {
		for _, n := range kd.FindLowerRank(i, 2.0, less, nil) {
			if n.Index >= i {
				t.Fatalf("FindLowerRank(%d) returned rank-%d, not lower", i, n.Index)
			}
		}
	}

	// every unordered pair within range must appear exactly once across
	// the whole particle set when queried with the rank filter.
	pairs := make(map[[2]int]int)
	for i := range positions {
		for _, n := range kd.FindLowerRank(i, 2.0, less, nil) {
			lo, hi := n.Index, i
			pairs[[2]int{lo, hi}]++
		}
	}
	for _, count := range pairs {
		if count != 1 {
			t.Fatalf("expected each pair exactly once, got %d", count)
		}
	}
}

func TestEmptyFinder(t *testing.T) {
	for _, f := range []Finder{NewGrid(1.0), NewKdTree(), NewBVH(nil)} {
		f.Build(nil)
	}
}
