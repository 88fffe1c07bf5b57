package gravity

import (
	"math"

	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

// Acceleration walks the tree from its root, applying the opening-angle
// criterion (node.size/dist < Theta accepts the multipole approximation;
// otherwise the walk descends into children, or direct-sums a leaf) and
// returns the gravitational acceleration felt at pos, excluding the
// contribution of the body at excludeIdx (a particle never gravitates on
// itself; pass -1 to disable exclusion, e.g. when evaluating an
// attractor's acceleration).
func (t *Tree) Acceleration(pos vecmath.Vec, excludeIdx int) vecmath.Vec {
	if t.root == nil {
		return vecmath.Zero()
	}
	var a vecmath.Vec
	t.walk(t.root, pos, excludeIdx, &a)
	return a
}

func (t *Tree) walk(n *node, pos vecmath.Vec, excludeIdx int, a *vecmath.Vec) {
	if n == nil || n.mass == 0 {
		return
	}
	if n.body != nil {
		for _, i := range n.body {
			if i == excludeIdx {
				continue
			}
			b := t.bodies[i]
			dr := pos.Sub(b.Position)
			distSq := dr.NormSq()
			if distSq < 1e-24 {
				continue
			}
			invDist3 := 1 / (distSq * math.Sqrt(distSq))
			*a = a.Add(dr.Scale(-b.Mass * invDist3))
		}
		return
	}
	dr := pos.Sub(n.com)
	dist := dr.Norm()
	if dist > 0 && n.size/dist < t.Theta {
		*a = a.Add(evaluateGravity(dr, n.tless, t.MaxRank))
		return
	}
	for _, c := range n.children {
		t.walk(c, pos, excludeIdx, a)
	}
}
