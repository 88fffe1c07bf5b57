package spatial

import (
	"sort"

	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

// leafSize bounds the number of particles a leaf node holds before it is
// split further; mirrors the original finder's default leaf capacity.
const leafSize = 8

// kdNodeKind distinguishes an axis-aligned split from a leaf, matching the
// X/Y/Z/LEAF discriminator of the original KdNode.
type kdNodeKind int8

const (
	kdSplitX kdNodeKind = iota
	kdSplitY
	kdSplitZ
	kdLeaf
)

// kdNode is one entry of the tree's flat node arena. Inner nodes carry a
// split axis, split position, and the indices (into the same arena) of
// their two children; leaf nodes carry a contiguous [from, to) range into
// the tree's index permutation. Keeping inner and leaf shapes in one
// struct trades a few bytes of padding for a much simpler arena than the
// original's same-size-union trick (KdTree.h's InnerNode/LeafNode padding
// field), which Go's slice-of-struct arena does not need.
type kdNode struct {
	kind kdNodeKind

	splitPos    float64
	left, right int // node indices, inner nodes only

	from, to int // index range into mapping, leaf nodes only

	box kdBox
}

type kdBox struct {
	lo, hi vecmath.Vec
}

func (b kdBox) extend(p vecmath.Vec) kdBox {
	return kdBox{
		lo: vecmath.V(min3(b.lo.X(), p.X()), min3(b.lo.Y(), p.Y()), min3(b.lo.Z(), p.Z())),
		hi: vecmath.V(max3(b.hi.X(), p.X()), max3(b.hi.Y(), p.Y()), max3(b.hi.Z(), p.Z())),
	}
}

// distSqToBox returns the squared distance from p to the closest point of
// the box, 0 if p lies inside it.
func (b kdBox) distSqToBox(p vecmath.Vec) float64 {
	dx := axisGap(p.X(), b.lo.X(), b.hi.X())
	dy := axisGap(p.Y(), b.lo.Y(), b.hi.Y())
	dz := axisGap(p.Z(), b.lo.Z(), b.hi.Z())
	return dx*dx + dy*dy + dz*dz
}

func axisGap(v, lo, hi float64) float64 {
	if v < lo {
		return lo - v
	}
	if v > hi {
		return v - hi
	}
	return 0
}

func min3(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max3(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// KdTree is a median-split k-d tree over particle positions, used both for
// SPH neighbor sums and for the rank-filtered earliest-contact search of
// the collision resolver. Grounded on original_source's
// core/objects/finders/KdTree.h: a flat node arena addressed by index
// (InnerNode.left/right), and an index permutation array so leaves can be
// expressed as a contiguous [from,to) range without copying particles.
type KdTree struct {
	positions []vecmath.Vec
	mapping   []int
	nodes     []kdNode
	root      int
}

func NewKdTree() *KdTree { return &KdTree{} }

func (t *KdTree) Build(positions []vecmath.Vec) {
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

// build recursively partitions mapping[from:to] and returns the arena
// index of the node covering that range.
func (t *KdTree) build(from, to int) int {
	box := t.boundingBox(from, to)
	if to-from <= leafSize {
		idx := len(t.nodes)
		t.nodes = append(t.nodes, kdNode{kind: kdLeaf, from: from, to: to, box: box})
		return idx
	}

	axis := longestAxis(box)
	sub := t.mapping[from:to]
	sort.Slice(sub, func(i, j int) bool {
		return axisValue(t.positions[sub[i]], axis) < axisValue(t.positions[sub[j]], axis)
	})
	mid := from + (to-from)/2
	splitPos := axisValue(t.positions[t.mapping[mid]], axis)

	idx := len(t.nodes)
	t.nodes = append(t.nodes, kdNode{}) // reserve; children appended after
	left := t.build(from, mid)
	right := t.build(mid, to)
	t.nodes[idx] = kdNode{
		kind:     kdNodeKind(axis),
		splitPos: splitPos,
		left:     left,
		right:    right,
		box:      box,
	}
	return idx
}

func (t *KdTree) boundingBox(from, to int) kdBox {
	first := t.positions[t.mapping[from]]
	box := kdBox{lo: first, hi: first}
	for i := from + 1; i < to; i++ {
		box = box.extend(t.positions[t.mapping[i]])
	}
	return box
}

func longestAxis(b kdBox) int {
	dx := b.hi.X() - b.lo.X()
	dy := b.hi.Y() - b.lo.Y()
	dz := b.hi.Z() - b.lo.Z()
	if dx >= dy && dx >= dz {
		return 0
	}
	if dy >= dz {
		return 1
	}
	return 2
}

func axisValue(v vecmath.Vec, axis int) float64 {
	switch axis {
	case 0:
		return v.X()
	case 1:
		return v.Y()
	default:
		return v.Z()
	}
}

func (t *KdTree) FindAll(i int, r float64, out []Neighbor) []Neighbor {
	return t.query(i, r, nil, out)
}

func (t *KdTree) FindLowerRank(i int, r float64, less RankLess, out []Neighbor) []Neighbor {
	return t.query(i, r, less, out)
}

func (t *KdTree) query(i int, r float64, less RankLess, out []Neighbor) []Neighbor {
	if t.root < 0 {
		return out
	}
	p := t.positions[i]
	rSq := r * r
	return t.queryNode(t.root, i, p, rSq, less, out)
}

func (t *KdTree) queryNode(n int, i int, p vecmath.Vec, rSq float64, less RankLess, out []Neighbor) []Neighbor {
	node := &t.nodes[n]
	if node.box.distSqToBox(p) > rSq {
		return out
	}
	if node.kind == kdLeaf {
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
	out = t.queryNode(node.left, i, p, rSq, less, out)
	out = t.queryNode(node.right, i, p, rSq, less, out)
	return out
}
