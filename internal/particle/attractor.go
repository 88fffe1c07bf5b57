package particle

import "github.com/astrophys-sim/impactcore/internal/vecmath"

// Attractor is a massive point body coupled to SPH particles only through
// gravity; it is not itself an SPH
// particle and carries no SPH quantities.
type Attractor struct {
	Position vecmath.Vec
	Velocity vecmath.Vec
	Radius   float64
	Mass     float64
}
