package boundary

import "github.com/astrophys-sim/impactcore/internal/vecmath"

// Plane is an oriented boundary surface: points with SignedDistance(p) < 0
// are outside the domain. Normal must be a unit vector.
type Plane struct {
	Normal vecmath.Vec
	Offset float64 // plane passes through Normal*Offset
}

func (p Plane) SignedDistance(x vecmath.Vec) float64 {
	return x.Dot(p.Normal) - p.Offset
}

// Reflect mirrors x across the plane.
func (p Plane) Reflect(x vecmath.Vec) vecmath.Vec {
	d := p.SignedDistance(x)
	return x.Sub(p.Normal.Scale(2 * d))
}

// ReflectVelocity mirrors the component of v along the plane's normal,
// leaving the tangential component untouched.
func (p Plane) ReflectVelocity(v vecmath.Vec) vecmath.Vec {
	vn := v.Dot(p.Normal)
	return v.Sub(p.Normal.Scale(2 * vn))
}
