package spatial

import (
	"sort"

	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

// bvhLeafSize bounds the number of particles held by a BVH leaf.
const bvhLeafSize = 8

type bvhSphere struct {
	center vecmath.Vec
	radius float64
}

type bvhNode struct {
	leaf        bool
	left, right int
	from, to    int
	bound       bvhSphere
}

// BVH is a top-down bounding-volume hierarchy of bounding spheres, split by
// a median cut along the longest axis of each node's point set (a coarse
// stand-in for a full surface-area-heuristic partition, sufficient here
// since every leaf holds few enough particles that split quality barely
// affects query cost). Grounded on the same arena+index shape as KdTree,
// per original_source's finders package, which offers both a k-d tree and
// a bounding-volume finder over the identical Finder contract.
type BVH struct {
	positions []vecmath.Vec
	radii     []float64
	mapping   []int
	nodes     []bvhNode
	root      int
}

// NewBVH builds a BVH over particles whose per-particle bounding radius is
// given by radii (typically eta*h); radii must be the same length as the
// positions passed to Build.
func NewBVH(radii []float64) *BVH {
	return &BVH{radii: radii}
}

func (t *BVH) Build(positions []vecmath.Vec) {
	t.positions = positions
	t.mapping = make([]int, len(positions))
	for i := range t.mapping {
		t.mapping[i] = i
	}
	t.nodes = t.nodes[:0]
	if len(positions) == 0 {
		t.root = -1
		return
	}
	t.root = t.build(0, len(positions))
}

func (t *BVH) radiusOf(i int) float64 {
	if i < len(t.radii) {
		return t.radii[i]
	}
	return 0
}

func (t *BVH) build(from, to int) int {
	bound := t.boundingSphere(from, to)
	if to-from <= bvhLeafSize {
		idx := len(t.nodes)
		t.nodes = append(t.nodes, bvhNode{leaf: true, from: from, to: to, bound: bound})
		return idx
	}

	lo, hi := t.positions[t.mapping[from]], t.positions[t.mapping[from]]
	for i := from + 1; i < to; i++ {
		p := t.positions[t.mapping[i]]
		lo = vecmath.V(min3(lo.X(), p.X()), min3(lo.Y(), p.Y()), min3(lo.Z(), p.Z()))
		hi = vecmath.V(max3(hi.X(), p.X()), max3(hi.Y(), p.Y()), max3(hi.Z(), p.Z()))
	}
	axis := longestAxis(kdBox{lo: lo, hi: hi})
	sub := t.mapping[from:to]
	sort.Slice(sub, func(i, j int) bool {
		return axisValue(t.positions[sub[i]], axis) < axisValue(t.positions[sub[j]], axis)
	})
	mid := from + (to-from)/2

	idx := len(t.nodes)
	t.nodes = append(t.nodes, bvhNode{})
	left := t.build(from, mid)
	right := t.build(mid, to)
	t.nodes[idx] = bvhNode{left: left, right: right, bound: bound}
	return idx
}

// boundingSphere returns the sphere centered at the point-set centroid,
// radius-inflated by each member particle's own bounding radius so a query
// ball test at the node level is conservative.
func (t *BVH) boundingSphere(from, to int) bvhSphere {
	var centroid vecmath.Vec
	n := float64(to - from)
	for i := from; i < to; i++ {
		centroid = centroid.Add(t.positions[t.mapping[i]])
	}
	centroid = centroid.Scale(1 / n)

	var radius float64
	for i := from; i < to; i++ {
		j := t.mapping[i]
		r := vecmath.Dist(centroid, t.positions[j]) + t.radiusOf(j)
		if r > radius {
			radius = r
		}
	}
	return bvhSphere{center: centroid, radius: radius}
}

func (t *BVH) FindAll(i int, r float64, out []Neighbor) []Neighbor {
	return t.query(i, r, nil, out)
}

func (t *BVH) FindLowerRank(i int, r float64, less RankLess, out []Neighbor) []Neighbor {
	return t.query(i, r, less, out)
}

func (t *BVH) query(i int, r float64, less RankLess, out []Neighbor) []Neighbor {
	if t.root < 0 {
		return out
	}
	p := t.positions[i]
	rSq := r * r
	return t.queryNode(t.root, i, p, r, rSq, less, out)
}

func (t *BVH) queryNode(n int, i int, p vecmath.Vec, r, rSq float64, less RankLess, out []Neighbor) []Neighbor {
	node := &t.nodes[n]
	// Conservative reject: query ball must be within r of the bounding
	// sphere's surface, accounting for the sphere's own radius inflation.
	d := vecmath.Dist(p, node.bound.center)
	if d-node.bound.radius > r {
		return out
	}
	if node.leaf {
		for k := node.from; k < node.to; k++ {
			j := t.mapping[k]
			if j == i {
				continue
			}
			if less != nil && !less(j, i) {
				continue
			}
			d2 := vecmath.DistSq(p, t.positions[j])
			if d2 <= rSq {
				out = append(out, Neighbor{Index: j, DistSq: d2})
			}
		}
		return out
	}
	out = t.queryNode(node.left, i, p, r, rSq, less, out)
	out = t.queryNode(node.right, i, p, r, rSq, less, out)
	return out
}
