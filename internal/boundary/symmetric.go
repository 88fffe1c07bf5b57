package boundary

import (
	"github.com/astrophys-sim/impactcore/internal/particle"
	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

// SymmetricPlane implements the z=0 reflecting-symmetry boundary of
// particles with z<0 are projected to z=0.1*h, and a ghost
// is added at z -> -z for every particle within eta*h of the plane. The
// projection uses each particle's own h, so it composes with adaptive
// smoothing length.
type SymmetricPlane struct {
	Boundary Plane
	Eta      float64

	ghosts map[int]int
}

func NewSymmetricPlane(boundary Plane, eta float64) *SymmetricPlane {
	return &SymmetricPlane{Boundary: boundary, Eta: eta}
}

func (sp *SymmetricPlane) Initialize(s *particle.Store) error {
	if len(sp.ghosts) > 0 {
		idxs := make([]int, 0, len(sp.ghosts))
		for g := range sp.ghosts {
			idxs = append(idxs, g)
		}
		s.Remove(idxs, 0)
	}

	positions, err := particle.GetValue[vecmath.Vec](s, particle.Position)
	if err != nil {
		return err
	}

	for i := range positions {
		if d := sp.Boundary.SignedDistance(positions[i]); d < 0 {
			// move along the normal onto the inside at exactly 0.1h,
			// keeping the particle's own h lane
			h := positions[i].H()
			positions[i] = positions[i].AddH(sp.Boundary.Normal.Scale(0.1*h - d))
		}
	}

	sp.ghosts = make(map[int]int)
	var candidates []int
	for i := range positions {
		h := positions[i].H()
		if d := sp.Boundary.SignedDistance(positions[i]); d >= 0 && d <= sp.Eta*h {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) > 0 {
		newIdxs := s.Duplicate(candidates)
		posBuf, _ := particle.GetValue[vecmath.Vec](s, particle.Position)
		velBuf := particle.Velocity(s)
		for k, ghostIdx := range newIdxs {
			src := candidates[k]
			posBuf[ghostIdx] = sp.Boundary.Reflect(posBuf[src])
			velBuf[ghostIdx] = sp.Boundary.ReflectVelocity(velBuf[src])
			sp.ghosts[ghostIdx] = src
		}
	}
	s.AddDependent(sp)
	return nil
}

func (sp *SymmetricPlane) Finalize(s *particle.Store) error {
	if len(sp.ghosts) == 0 {
		return nil
	}
	idxs := make([]int, 0, len(sp.ghosts))
	for g := range sp.ghosts {
		idxs = append(idxs, g)
	}
	s.Remove(idxs, 0)
	sp.ghosts = nil
	return nil
}

func (sp *SymmetricPlane) Remove(idxs []int) {
	if len(sp.ghosts) == 0 {
		return
	}
	removed := make(map[int]bool, len(idxs))
	for _, i := range idxs {
		removed[i] = true
	}
	shift := func(i int) int {
		s := 0
		for _, r := range idxs {
			if r < i {
				s++
			}
		}
		return i - s
	}
	next := make(map[int]int, len(sp.ghosts))
	for g, src := range sp.ghosts {
		if removed[g] {
			continue
		}
		next[shift(g)] = shift(src)
	}
	sp.ghosts = next
}
