// Package vecmath provides the numeric primitives shared by every other
// package in the core: a 4-lane vector (smoothing length in the 4th lane),
// symmetric and traceless-symmetric 2-tensors, an affine transform, a
// closed interval, and an index-range sequence.
package vecmath

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Vec is a position/velocity/acceleration-shaped quantity: three geometric
// components plus a 4th lane that carries the smoothing length h (or its
// time derivatives, when Vec is used for velocity/acceleration). Geometric
// arithmetic (Add, Scale, Dot, ...) ignores the 4th lane; use SetH/H to
// access it explicitly.
type Vec struct {
	geom r3.Vec
	h    float64
}

// V builds a Vec from geometric components with h = 0.
func V(x, y, z float64) Vec { return Vec{geom: r3.Vec{X: x, Y: y, Z: z}} }

// VH builds a Vec with an explicit h lane.
func VH(x, y, z, h float64) Vec { return Vec{geom: r3.Vec{X: x, Y: y, Z: z}, h: h} }

func (v Vec) X() float64 { return v.geom.X }
func (v Vec) Y() float64 { return v.geom.Y }
func (v Vec) Z() float64 { return v.geom.Z }
func (v Vec) H() float64 { return v.h }

func (v *Vec) SetH(h float64) { v.h = h }

// ComponentH returns the h lane; a free function mirrors SetH for symmetry
// at call sites that pass a Vec by value.
func ComponentH(v Vec) float64 { return v.h }

func (v Vec) Add(o Vec) Vec { return Vec{geom: r3.Add(v.geom, o.geom)} }
func (v Vec) Sub(o Vec) Vec { return Vec{geom: r3.Sub(v.geom, o.geom)} }
func (v Vec) Scale(s float64) Vec { return Vec{geom: r3.Scale(s, v.geom)} }
func (v Vec) Dot(o Vec) float64   { return r3.Dot(v.geom, o.geom) }
func (v Vec) Cross(o Vec) Vec     { return Vec{geom: r3.Cross(v.geom, o.geom)} }

func (v Vec) Norm() float64    { return r3.Norm(v.geom) }
func (v Vec) NormSq() float64  { return r3.Dot(v.geom, v.geom) }

// Normalized returns v scaled to unit length; the zero vector is returned
// unchanged.
func (v Vec) Normalized() Vec {
	n := v.Norm()
	if n == 0 {
		return v
	}
	return v.Scale(1 / n)
}

// AddH adds two vectors including their h lanes, used when integrating
// smoothing length alongside position.
func (v Vec) AddH(o Vec) Vec {
	return Vec{geom: r3.Add(v.geom, o.geom), h: v.h + o.h}
}

// ScaleH scales a vector including its h lane.
func (v Vec) ScaleH(s float64) Vec {
	return Vec{geom: r3.Scale(s, v.geom), h: v.h * s}
}

// R3 exposes the underlying gonum vector for interop with spatial finders
// and the gravity tree, which operate purely geometrically.
func (v Vec) R3() r3.Vec { return v.geom }

func FromR3(g r3.Vec) Vec { return Vec{geom: g} }

func Zero() Vec { return Vec{} }

func IsFinite(v Vec) bool {
	return !math.IsNaN(v.geom.X) && !math.IsInf(v.geom.X, 0) &&
		!math.IsNaN(v.geom.Y) && !math.IsInf(v.geom.Y, 0) &&
		!math.IsNaN(v.geom.Z) && !math.IsInf(v.geom.Z, 0) &&
		!math.IsNaN(v.h) && !math.IsInf(v.h, 0)
}

// Dist returns the Euclidean distance between the geometric parts of a and b.
func Dist(a, b Vec) float64 { return a.Sub(b).Norm() }

// DistSq returns the squared Euclidean distance, avoiding a sqrt.
func DistSq(a, b Vec) float64 { return a.Sub(b).NormSq() }
