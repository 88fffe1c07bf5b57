// Package gravity implements the Barnes-Hut tree gravity solver
// §3.4/§4.8: traceless Cartesian multipole moments up to hexadecapole
// (order 4), an opening-angle tree traversal, and the Green's-function
// recurrence for the multipole acceleration expansion. Grounded on
// original_source/lib/gravity/{Moments.h,BarnesHut.cpp} for the math and
// on other_examples/openshift-origin's gonum barneshut source for the
// octree build/traversal shape.
package gravity

import (
	"math"

	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

// maxOrder is the highest multipole order this package computes
// (orders {0,2,3,4}); order 1 (the dipole about the center of
// mass) is always zero by construction and never stored.
const maxOrder = 4

// Tensor is a fully symmetric Cartesian tensor over 3 dimensions, of a
// fixed order in [0,4]. It is stored as a map keyed by the canonical
// (sorted-ascending) index tuple rather than the (2N+1)-independent-
// component packing scheme: see DESIGN.md's "Multipole
// storage layout" entry for why — in short, it makes the parallel-axis
// shift theorem an exact generic identity instead of a per-order
// hand-transcribed formula. Every entry with the same canonical key is
// guaranteed equal by construction (buildSymmetric assigns each key
// exactly once); Get/Set never need to average.
type Tensor struct {
	order int
	data  map[[4]int]float64
}

func NewTensor(order int) *Tensor {
	return &Tensor{order: order, data: make(map[[4]int]float64)}
}

func (t *Tensor) Order() int { return t.order }

func canonicalKey(idx []int) [4]int {
	var key [4]int
	for i := range key {
		key[i] = -1
	}
	sorted := append([]int(nil), idx...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	copy(key[:], sorted)
	return key
}

func (t *Tensor) Get(idx ...int) float64 {
	if len(idx) != t.order {
		panic("gravity: tensor index arity mismatch")
	}
	if t.order == 0 {
		return t.data[[4]int{-1, -1, -1, -1}]
	}
	return t.data[canonicalKey(idx)]
}

func (t *Tensor) set(idx []int, v float64) {
	if t.order == 0 {
		t.data[[4]int{-1, -1, -1, -1}] = v
		return
	}
	t.data[canonicalKey(idx)] = v
}

// AddScaled adds o scaled by f into t; both must share the same order.
// Safe to call repeatedly: it operates on the already-deduplicated
// canonical map, unlike building a tensor from a raw index scan (see
// buildSymmetric).
func (t *Tensor) AddScaled(o *Tensor, f float64) *Tensor {
	if o.order != t.order {
		panic("gravity: tensor order mismatch in AddScaled")
	}
	for k, v := range o.data {
		t.data[k] += v * f
	}
	return t
}

func (t *Tensor) Scale(f float64) *Tensor {
	out := NewTensor(t.order)
	for k, v := range t.data {
		out.data[k] = v * f
	}
	return out
}

// forEachIndex calls fn once for every one of the 3^order raw (not just
// canonical) index tuples, in lexicographic order. order<=4 keeps this to
// at most 81 calls.
func forEachIndex(order int, fn func(idx []int)) {
	if order == 0 {
		fn(nil)
		return
	}
	idx := make([]int, order)
	var rec func(pos int)
	rec = func(pos int) {
		if pos == order {
			fn(idx)
			return
		}
		for a := 0; a < 3; a++ {
			idx[pos] = a
			rec(pos + 1)
		}
	}
	rec(0)
}

// buildSymmetric constructs an order-N tensor from a value function that
// must already be invariant under permuting its argument (true for every
// use in this file: outer powers, contractions, and permutation sums are
// all symmetric by construction). It evaluates valueFn exactly once per
// canonical key, which is essential — accumulating via Add for every raw
// index tuple that maps to the same canonical key would overcount
// off-diagonal entries by their permutation multiplicity.
func buildSymmetric(order int, valueFn func(idx []int) float64) *Tensor {
	out := NewTensor(order)
	if order == 0 {
		out.set(nil, valueFn(nil))
		return out
	}
	seen := make(map[[4]int]bool)
	forEachIndex(order, func(idx []int) {
		key := canonicalKey(idx)
		if seen[key] {
			return
		}
		seen[key] = true
		out.set(idx, valueFn(idx))
	})
	return out
}

func vecComponent(v vecmath.Vec, a int) float64 {
	switch a {
	case 0:
		return v.X()
	case 1:
		return v.Y()
	default:
		return v.Z()
	}
}

// outerPower returns v^(x)order scaled by mass: a single particle's raw
// contribution to a multipole sum of the given order.
func outerPower(v vecmath.Vec, order int, mass float64) *Tensor {
	return buildSymmetric(order, func(idx []int) float64 {
		p := mass
		for _, a := range idx {
			p *= vecComponent(v, a)
		}
		return p
	})
}

// contract returns the trace of t over its last two indices: an order-2
// tensor maps to order-0, an order-4 tensor maps to order-2, etc.
func contract(t *Tensor) *Tensor {
	if t.order < 2 {
		panic("gravity: cannot contract a tensor of order < 2")
	}
	return buildSymmetric(t.order-2, func(free []int) float64 {
		var sum float64
		for a := 0; a < 3; a++ {
			full := append(append([]int(nil), free...), a, a)
			sum += t.Get(full...)
		}
		return sum
	})
}

// nFoldContract applies contract m times, halving the order by 2 each
// time (original_source's ComputeTrace<M>).
func nFoldContract(t *Tensor, m int) *Tensor {
	for i := 0; i < m; i++ {
		t = contract(t)
	}
	return t
}

func factorial(n int) float64 {
	f := 1.0
	for i := 2; i <= n; i++ {
		f *= float64(i)
	}
	return f
}

func doubleFactorial(n int) float64 {
	if n <= 0 {
		return 1
	}
	f := 1.0
	for i := n; i > 0; i -= 2 {
		f *= float64(i)
	}
	return f
}

// reducedFactor is c_{n,m}, transcribed directly from
// original_source's reducedFactor<N,M>(): sign(-1)^m * (2n-2m-1)!! /
// (m! * (2n-1)!!).
func reducedFactor(n, m int) float64 {
	sign := 1.0
	if m%2 == 1 {
		sign = -1
	}
	num := doubleFactorial(2*n - 2*m - 1)
	denom := factorial(m) * doubleFactorial(2*n-1)
	return sign * num / denom
}

// delta2 is the order-2 Kronecker-delta tensor.
func delta2() *Tensor {
	return buildSymmetric(2, func(idx []int) float64 {
		if idx[0] == idx[1] {
			return 1
		}
		return 0
	})
}

// permutedProduct sums a.Get(subset)*b.Get(complement) over every way to
// split idx (length a.order+b.order) into an ordered subset of a.order
// positions (fed to a, in relative order) and the complementary
// b.order positions (fed to b, in relative order) — the same
// distinct-placement sum as original_source's Permutations<N1,N2>
// (e.g. Permutations<2,1> sums the 3 ways to pick which 2 of 3 indices
// pair up for the delta tensor).
func permutedProduct(a, b *Tensor, idx []int) float64 {
	n := a.order + b.order
	var sum float64
	combo := make([]int, a.order)
	var rec func(depth, start int)
	rec = func(depth, start int) {
		if depth == a.order {
			used := make([]bool, n)
			aIdx := make([]int, a.order)
			for i, p := range combo {
				aIdx[i] = idx[p]
				used[p] = true
			}
			bIdx := make([]int, 0, b.order)
			for p := 0; p < n; p++ {
				if !used[p] {
					bIdx = append(bIdx, idx[p])
				}
			}
			sum += a.Get(aIdx...) * b.Get(bIdx...)
			return
		}
		limit := n - (a.order - depth)
		for p := start; p <= limit; p++ {
			combo[depth] = p
			rec(depth+1, p+1)
		}
	}
	rec(0, 0)
	return sum
}

// makePermutations builds the order-(a.order+b.order) tensor whose value
// is permutedProduct(a, b, idx) at every canonical index.
func makePermutations(a, b *Tensor) *Tensor {
	return buildSymmetric(a.order+b.order, func(idx []int) float64 {
		return permutedProduct(a, b, idx)
	})
}

// delta4 is the fully symmetric double-delta of order 4 used by the
// hexadecapole reduction: delta_ij*delta_kl + delta_ik*delta_jl +
// delta_il*delta_jk (original_source's Delta<4>).
func delta4() *Tensor {
	dv := func(a, b int) float64 {
		if a == b {
			return 1
		}
		return 0
	}
	return buildSymmetric(4, func(idx []int) float64 {
		i, j, k, l := idx[0], idx[1], idx[2], idx[3]
		return dv(i, j)*dv(k, l) + dv(i, k)*dv(j, l) + dv(i, l)*dv(j, k)
	})
}

// reducedMultipole reduces a raw (redundant) symmetric moment tensor of
// order n to its traceless form, per computeReducedMultipole<N> in
// original_source/lib/gravity/Moments.h, transcribed order by order (the
// hand-derived per-order assembly does not generalize past N=4 without
// re-deriving the combinatorics of a generic Sym[] operator, so this
// package follows the source directly for n<=4 rather than inventing a
// new all-N formula — see DESIGN.md).
func reducedMultipole(t *Tensor) *Tensor {
	switch t.order {
	case 0, 1:
		return t
	case 2:
		trace0 := nFoldContract(t, 1) // order 0
		f0, f1 := reducedFactor(2, 0), reducedFactor(2, 1)
		return t.Scale(f0).AddScaled(makePermutations(delta2(), trace0), f1)
	case 3:
		trace1 := nFoldContract(t, 1) // order 1
		f0, f1 := reducedFactor(3, 0), reducedFactor(3, 1)
		return t.Scale(f0).AddScaled(makePermutations(delta2(), trace1), f1)
	case 4:
		trace1 := nFoldContract(t, 1) // order 2
		trace2 := nFoldContract(t, 2) // order 0
		f0, f1, f2 := reducedFactor(4, 0), reducedFactor(4, 1), reducedFactor(4, 2)
		out := t.Scale(f0)
		out.AddScaled(makePermutations(delta2(), trace1), f1)
		// c_{4,2} weights the 6-term makePermutations(delta2, delta2) sum,
		// which is 2*delta4.
		out.AddScaled(delta4().Scale(trace2.Get()), 2*f2)
		return out
	default:
		panic("gravity: reducedMultipole only supports order 0..4")
	}
}

// contractVec contracts t's last index against v, returning an order-
// (t.order-1) tensor. Repeating this k times against the same vector is
// equivalent to the source's makeInner<k>(dr^(x)k, q) full inner product,
// since q is totally symmetric so the order the indices are contracted in
// never matters.
func contractVec(t *Tensor, v vecmath.Vec) *Tensor {
	if t.order == 0 {
		panic("gravity: cannot contract a scalar against a vector")
	}
	return buildSymmetric(t.order-1, func(free []int) float64 {
		var sum float64
		for a := 0; a < 3; a++ {
			full := append(append([]int(nil), free...), a)
			sum += t.Get(full...) * vecComponent(v, a)
		}
		return sum
	})
}

// multipolePotential is computeMultipolePotential<M,N> of
// original_source/core/gravity/Moments.h: for target<q.order it
// contracts q against dr repeatedly and divides by the number of
// contractions' factorial; for target==q.order it is the identity; for
// target>q.order it is zero.
func multipolePotential(q *Tensor, dr vecmath.Vec, target int) *Tensor {
	n := q.order
	if target == n {
		return q
	}
	if target > n {
		return NewTensor(target)
	}
	k := n - target
	res := q
	for i := 0; i < k; i++ {
		res = contractVec(res, dr)
	}
	return res.Scale(1 / factorial(k))
}

// multipoleAcceleration is computeMultipoleAcceleration<M> of Moments.h:
// the contribution of a single multipole order to the acceleration felt
// at a point offset by dr from the expansion center, using the
// precomputed Green's-function coefficients gamma (see greenGamma).
func multipoleAcceleration(q *Tensor, gamma []float64, dr vecmath.Vec) vecmath.Vec {
	m := q.order
	q0 := multipolePotential(q, dr, 0).Get()
	var q1 vecmath.Vec
	if m > 0 {
		t1 := multipolePotential(q, dr, 1)
		q1 = vecmath.V(t1.Get(0), t1.Get(1), t1.Get(2))
	}
	return dr.Scale(gamma[m+1] * q0).Add(q1.Scale(gamma[m]))
}

// greenGamma fills gamma[0..maxOrder+1] with the Green's-function
// recurrence of Moments.h's computeGreenGamma: gamma[0] = -1/|dr|,
// gamma[i] = -(2i-1)/|dr|^2 * gamma[i-1].
func greenGamma(dr vecmath.Vec, maxOrder int) []float64 {
	gamma := make([]float64, maxOrder+2)
	invDistSq := 1 / dr.NormSq()
	gamma[0] = -math.Sqrt(invDistSq)
	for i := 1; i < len(gamma); i++ {
		gamma[i] = -(2*float64(i) - 1) * invDistSq * gamma[i-1]
	}
	return gamma
}

// evaluateGravity sums the acceleration felt at a point offset by dr from
// a node's expansion center, given that node's traceless moments up to
// maxOrder (Moments.h's evaluateGravity). Order 1 (the dipole) is always
// zero about a center of mass and is skipped.
func evaluateGravity(dr vecmath.Vec, moments []*Tensor, maxOrder int) vecmath.Vec {
	gamma := greenGamma(dr, maxOrder)
	drParam := dr.Scale(-1)
	var a vecmath.Vec
	for _, m := range [...]int{0, 2, 3, 4} {
		if m > maxOrder || m >= len(moments) {
			continue
		}
		a = a.Add(multipoleAcceleration(moments[m], gamma, drParam))
	}
	return a
}

// shift applies the parallel-axis theorem to a raw (not yet traceless)
// moment tensor of order n about a reference point r0: it returns the
// equivalent tensor about r0'=r0+d. Unlike reducedMultipole, this
// identity is genuinely order-agnostic. Expanding ((r_i-r0)-d)^(x)n at a
// fixed index tuple as a sum over which slots draw from (r_i-r0) versus
// (-d), and grouping by how many slots (k) draw from (-d), gives
//
//	M_n(r0+d) = sum_{k=0}^{n} makePermutations( M_{n-k}(r0), (-d)^(x)k )
//
// with no additional binomial coefficient: makePermutations' sum over the
// C(n,n-k) distinct slot-placements already counts, for each k, every one
// of the ways to choose which k slots take (-d) versus M_{n-k} — an
// explicit extra C(n,k) factor would double-count against that sum. This
// repo implements the identity once instead of transcribing the source's
// separate hand-derived formula per order (which the source itself only
// carried up to order 3 before leaving order>=4's cross-terms commented
// out — see Moments.h lines ~297-312 for the terms this identity
// replaces wholesale).
func shift(moments []*Tensor, d vecmath.Vec) []*Tensor {
	n := len(moments) - 1
	out := make([]*Tensor, n+1)
	for target := 0; target <= n; target++ {
		acc := NewTensor(target)
		for k := 0; k <= target; k++ {
			src := moments[target-k]
			var term *Tensor
			if k == 0 {
				term = src
			} else {
				dk := outerPower(d, k, 1) // d^(x)k
				if k%2 == 1 {
					dk = dk.Scale(-1) // (-d)^(x)k = (-1)^k * d^(x)k
				}
				term = makePermutations(src, dk)
			}
			acc.AddScaled(term, 1)
		}
		out[target] = acc
	}
	return out
}
