package collision

import (
	"math"

	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

// contactTime solves for the collision time between two spheres following
// straight-line trajectories at their current velocities, transcribed
// from original_source/lib/gravity/NBodySolver.cpp's checkCollision.
//
// dr = r1-r2, dv = v1-v2; admission requires dot(dv,dr) < 0 (moving
// towards each other) and the closest-approach separation (dr projected
// perpendicular to dv) within contact distance h1+h2. allowedOverlap
// selects which root of the resulting quadratic to report: the smaller
// (entering) root, except for a pair already inside contact distance by so
// little that the discriminant lies in (1, 1+allowedOverlap], where the
// larger (exit) root is used so that such a shallow overlap is reported at
// a non-negative time.
//
// ok is false when the pair is not on a colliding trajectory at all
// (moving apart, or the perpendicular miss distance exceeds contact
// range). A negative tColl on return means the pair is already
// overlapping at the current positions by more than that margin.
func contactTime(r1, r2, v1, v2 vecmath.Vec, h1, h2, allowedOverlap float64) (tColl float64, ok bool) {
	dr := r1.Sub(r2)
	dv := v1.Sub(v2)
	dvdr := dv.Dot(dr)
	if dvdr >= 0 {
		return 0, false
	}
	dv2 := dv.NormSq()
	if dv2 < 1e-300 {
		return 0, false
	}
	contactDist := h1 + h2
	drPerp := dr.Sub(dv.Scale(dvdr / dv2))
	if drPerp.NormSq() > contactDist*contactDist {
		return 0, false
	}
	det := 1 - (dr.NormSq()-contactDist*contactDist)/(dvdr*dvdr)*dv2
	var root float64
	if det > 1 && det <= 1+allowedOverlap {
		root = 1 + math.Sqrt(det)
	} else {
		root = 1 - math.Sqrt(math.Max(0, det))
	}
	return -dvdr / dv2 * root, true
}
