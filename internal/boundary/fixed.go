package boundary

import (
	"github.com/astrophys-sim/impactcore/internal/particle"
	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

// FixedParticles seeds a static layer outside the domain at Initialize and
// removes it at Finalize. The layer reuses an existing
// particle's material parameters by duplicating Template (a representative
// index already in the store, typically one belonging to the boundary
// material), then overwrites the copies' positions and zeroes their
// velocity so they behave as an independent, motionless material without
// requiring a second call into a material's whole-store Create hook.
type FixedParticles struct {
	Template  int
	Positions func() []vecmath.Vec

	seededIdxs []int
}

func (f *FixedParticles) Initialize(s *particle.Store) error {
	positions := f.Positions()
	if len(positions) == 0 {
		return nil
	}
	template := make([]int, len(positions))
	for i := range template {
		template[i] = f.Template
	}
	f.seededIdxs = s.Duplicate(template)

	posBuf, err := particle.GetValue[vecmath.Vec](s, particle.Position)
	if err != nil {
		return err
	}
	velBuf := particle.Velocity(s)
	for k, idx := range f.seededIdxs {
		h := posBuf[idx].H()
		posBuf[idx] = vecmath.VH(positions[k].X(), positions[k].Y(), positions[k].Z(), h)
		velBuf[idx] = vecmath.Zero()
	}
	return nil
}

func (f *FixedParticles) Finalize(s *particle.Store) error {
	if len(f.seededIdxs) == 0 {
		return nil
	}
	s.Remove(f.seededIdxs, particle.RemoveSorted)
	f.seededIdxs = nil
	return nil
}
