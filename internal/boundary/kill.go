package boundary

import (
	"github.com/astrophys-sim/impactcore/internal/particle"
	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

// KillEscapers removes, at Finalize, every particle outside Domain
// propagating the removal to any registered dependent
// (e.g. a boundary handler's own ghost side-channel) via RemovePropagate.
type KillEscapers struct {
	Domain func(x vecmath.Vec) bool // true if x is inside the domain
}

func (KillEscapers) Initialize(*particle.Store) error { return nil }

func (k KillEscapers) Finalize(s *particle.Store) error {
	positions, err := particle.GetValue[vecmath.Vec](s, particle.Position)
	if err != nil {
		return err
	}
	var escaped []int
	for i, p := range positions {
		if !k.Domain(p) {
			escaped = append(escaped, i)
		}
	}
	if len(escaped) > 0 {
		s.Remove(escaped, particle.RemoveSorted|particle.RemovePropagate)
	}
	return nil
}
