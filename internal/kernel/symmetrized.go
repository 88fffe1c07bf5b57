package kernel

import "github.com/astrophys-sim/impactcore/internal/vecmath"

// Symmetrized evaluates a kernel at the pair (ri, rj) using the averaged
// smoothing length h = (hi+hj)/2. The returned gradient is
// the vector gradW_ij = grad(r,h) * (ri-rj)/r, which is antisymmetric under
// exchange of i and j (gradW_ij = -gradW_ji).
func Symmetrized(k Kernel, ri, rj vecmath.Vec, hi, hj float64) (w float64, gradW vecmath.Vec) {
	h := 0.5 * (hi + hj)
	rij := ri.Sub(rj)
	r := rij.Norm()
	w = k.Value(r, h)
	if r < 1e-12 {
		return w, vecmath.Zero()
	}
	g := k.Grad(r, h)
	gradW = rij.Scale(g / r)
	return w, gradW
}

// InSupport reports whether the pair (ri,rj) with smoothing lengths hi,hj
// falls within compact support, i.e. |ri-rj| < eta*max(hi,hj) — the only
// condition under which a kernel is evaluated.
func InSupport(k Kernel, ri, rj vecmath.Vec, hi, hj float64) bool {
	hmax := hi
	if hj > hmax {
		hmax = hj
	}
	return vecmath.Dist(ri, rj) < k.Eta()*hmax
}
