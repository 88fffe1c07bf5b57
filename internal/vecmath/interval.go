package vecmath

import "math"

// Interval is a closed [Lo, Hi] float range, used for material-declared
// quantity ranges (§3.2's per-quantity allowed range) and timestepping
// bounds.
type Interval struct {
	Lo, Hi float64
}

func NewInterval(lo, hi float64) Interval { return Interval{Lo: lo, Hi: hi} }

// Unbounded is the default range for quantities with no material-imposed
// clamp.
func Unbounded() Interval { return Interval{Lo: math.Inf(-1), Hi: math.Inf(1)} }

func (r Interval) Contains(x float64) bool { return x >= r.Lo && x <= r.Hi }

// Clamp returns x restricted to [Lo, Hi] and whether clamping changed it.
func (r Interval) Clamp(x float64) (clamped float64, moved bool) {
	if x < r.Lo {
		return r.Lo, true
	}
	if x > r.Hi {
		return r.Hi, true
	}
	return x, false
}

func (r Interval) Size() float64 { return r.Hi - r.Lo }
