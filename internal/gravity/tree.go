package gravity

import "github.com/astrophys-sim/impactcore/internal/vecmath"

// box is an axis-aligned bounding cube used to size a node and to bound
// the maximum extent used by the opening-angle criterion.
type box struct {
	lo, hi vecmath.Vec
}

func (b *box) extend(v vecmath.Vec) {
	b.lo = vecmath.V(min(b.lo.X(), v.X()), min(b.lo.Y(), v.Y()), min(b.lo.Z(), v.Z()))
	b.hi = vecmath.V(max(b.hi.X(), v.X()), max(b.hi.Y(), v.Y()), max(b.hi.Z(), v.Z()))
}

func (b box) size() float64 {
	dx, dy, dz := b.hi.X()-b.lo.X(), b.hi.Y()-b.lo.Y(), b.hi.Z()-b.lo.Z()
	m := dx
	if dy > m {
		m = dy
	}
	if dz > m {
		m = dz
	}
	return m
}

func (b box) center() vecmath.Vec {
	return b.lo.Add(b.hi).Scale(0.5)
}

// node is one octree cell (Barnes-Hut node). Leaves hold up to leafSize
// bodies directly in body; internal nodes hold up to 8 children.
//
// moments holds the node's RAW (redundant, not trace-removed) multipole
// tensors about com, orders 0..MaxRank. Raw moments, not traceless ones,
// are what the parallel-axis shift theorem is valid for; a node's
// traceless moments (what the far-field evaluator actually consumes) are
// computed once per Build, by Tree.finalize calling reducedMultipole per
// order, and cached in tless.
type node struct {
	box      box
	com      vecmath.Vec
	mass     float64
	size     float64
	children [8]*node
	body     []int
	moments  []*Tensor
	tless    []*Tensor // cached traceless moments, filled by Tree.finalize
}

const treeLeafSize = 1

// Body is one source of gravity: an SPH particle position/mass pair or an
// attractor (an order-0 gravitational source).
type Body struct {
	Position vecmath.Vec
	Mass     float64
}

// Tree is a Barnes-Hut octree built once per step over the current
// particle set plus any attractors, grounded on
// original_source/lib/gravity/BarnesHut.cpp's build/eval split and on
// other_examples' gonum spatial octree traversal shape.
type Tree struct {
	root    *node
	bodies  []Body
	Theta   float64 // opening angle; default 0.5
	MaxRank int     // multipole order used in evaluation, <= maxOrder
}

func NewTree(theta float64, maxRank int) *Tree {
	if maxRank > maxOrder {
		maxRank = maxOrder
	}
	return &Tree{Theta: theta, MaxRank: maxRank}
}

// Build constructs the octree over bodies, computes every node's raw
// moments bottom-up via the parallel-axis shift, then reduces each node's
// moments to traceless form once.
func (t *Tree) Build(bodies []Body) {
	t.bodies = bodies
	if len(bodies) == 0 {
		t.root = nil
		return
	}
	idx := make([]int, len(bodies))
	for i := range idx {
		idx[i] = i
	}
	var b box
	b.lo, b.hi = bodies[0].Position, bodies[0].Position
	for _, body := range bodies {
		b.extend(body.Position)
	}
	pad := b.size()*1e-3 + 1e-12
	b.lo = b.lo.Sub(vecmath.V(pad, pad, pad))
	b.hi = b.hi.Add(vecmath.V(pad, pad, pad))

	t.root = t.buildNode(b, idx)
	t.computeRawMoments(t.root)
	t.finalize(t.root)
}

func octant(c, p vecmath.Vec) int {
	o := 0
	if p.X() >= c.X() {
		o |= 1
	}
	if p.Y() >= c.Y() {
		o |= 2
	}
	if p.Z() >= c.Z() {
		o |= 4
	}
	return o
}

func childBox(b box, o int) box {
	c := b.center()
	nb := b
	if o&1 != 0 {
		nb.lo = vecmath.V(c.X(), nb.lo.Y(), nb.lo.Z())
	} else {
		nb.hi = vecmath.V(c.X(), nb.hi.Y(), nb.hi.Z())
	}
	if o&2 != 0 {
		nb.lo = vecmath.V(nb.lo.X(), c.Y(), nb.lo.Z())
	} else {
		nb.hi = vecmath.V(nb.hi.X(), c.Y(), nb.hi.Z())
	}
	if o&4 != 0 {
		nb.lo = vecmath.V(nb.lo.X(), nb.lo.Y(), c.Z())
	} else {
		nb.hi = vecmath.V(nb.hi.X(), nb.hi.Y(), c.Z())
	}
	return nb
}

func (t *Tree) buildNode(b box, idx []int) *node {
	n := &node{box: b, size: b.size()}
	if len(idx) <= treeLeafSize {
		n.body = idx
		return n
	}
	c := b.center()
	var buckets [8][]int
	for _, i := range idx {
		o := octant(c, t.bodies[i].Position)
		buckets[o] = append(buckets[o], i)
	}
	anyChild := false
	for o := 0; o < 8; o++ {
		if len(buckets[o]) == 0 {
			continue
		}
		if len(buckets[o]) == len(idx) {
			n.body = idx
			return n
		}
		anyChild = true
		n.children[o] = t.buildNode(childBox(b, o), buckets[o])
	}
	if !anyChild {
		n.body = idx
	}
	return n
}

// computeRawMoments fills mass, center of mass and RAW multipole moments
// bottom-up: leaves sum their bodies' raw moments about the node's own
// center of mass directly; internal nodes shift each child's raw moments
// from the child's center of mass to the parent's before summing
// (original_source/lib/gravity/BarnesHut.cpp's buildLeaf/buildInner
// split). No trace removal happens here — see finalize.
func (t *Tree) computeRawMoments(n *node) {
	if n == nil {
		return
	}
	if n.body != nil {
		var mass float64
		var com vecmath.Vec
		for _, i := range n.body {
			b := t.bodies[i]
			mass += b.Mass
			com = com.Add(b.Position.Scale(b.Mass))
		}
		if mass > 0 {
			com = com.Scale(1 / mass)
		}
		n.mass, n.com = mass, com

		raw := make([]*Tensor, t.MaxRank+1)
		for order := 0; order <= t.MaxRank; order++ {
			acc := NewTensor(order)
			for _, i := range n.body {
				b := t.bodies[i]
				acc.AddScaled(outerPower(b.Position.Sub(com), order, b.Mass), 1)
			}
			raw[order] = acc
		}
		n.moments = raw
		return
	}

	var mass float64
	var com vecmath.Vec
	for _, c := range n.children {
		if c == nil {
			continue
		}
		t.computeRawMoments(c)
		mass += c.mass
		com = com.Add(c.com.Scale(c.mass))
	}
	if mass > 0 {
		com = com.Scale(1 / mass)
	}
	n.mass, n.com = mass, com

	raw := make([]*Tensor, t.MaxRank+1)
	for order := 0; order <= t.MaxRank; order++ {
		raw[order] = NewTensor(order)
	}
	for _, c := range n.children {
		if c == nil {
			continue
		}
		shifted := shift(c.moments, com.Sub(c.com))
		for order := 0; order <= t.MaxRank; order++ {
			raw[order].AddScaled(shifted[order], 1)
		}
	}
	n.moments = raw
}

// finalize computes the cached traceless moments for every node, once,
// after the raw bottom-up pass is complete.
func (t *Tree) finalize(n *node) {
	if n == nil {
		return
	}
	n.tless = make([]*Tensor, len(n.moments))
	for i, m := range n.moments {
		n.tless[i] = reducedMultipole(m)
	}
	for _, c := range n.children {
		t.finalize(c)
	}
}
