package boundary

import (
	"github.com/astrophys-sim/impactcore/internal/particle"
	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

// VelocityOverride lets a caller replace a ghost's mirrored velocity, e.g.
// to enforce a no-slip wall instead of the default free-slip mirror.
type VelocityOverride func(s *particle.Store, sourceIdx, ghostIdx int)

// GhostParticles duplicates every real particle within SearchRadius of
// Boundary, projects the copy across the plane, and mirrors the normal
// velocity component. Ghosts are tracked in a side-channel
// (a particle.Dependent registered with the store) so that a store Remove
// drops the entries of removed ghosts and renumbers the rest (a ghost
// whose source is removed stays until Finalize or the next Initialize),
// and so two Initialize calls without an intervening Finalize never
// double the ghost set (property 10): Initialize always clears its own
// list first.
type GhostParticles struct {
	Boundary     Plane
	SearchRadius func(s *particle.Store, i int) float64
	Override     VelocityOverride

	ghostOf map[int]int // ghost index -> source index, current generation
	sources []int
}

func NewGhostParticles(boundary Plane, searchRadius func(s *particle.Store, i int) float64) *GhostParticles {
	return &GhostParticles{Boundary: boundary, SearchRadius: searchRadius}
}

func (g *GhostParticles) Initialize(s *particle.Store) error {
	if len(g.ghostOf) > 0 {
		idxs := make([]int, 0, len(g.ghostOf))
		for ghostIdx := range g.ghostOf {
			idxs = append(idxs, ghostIdx)
		}
		s.Remove(idxs, 0)
	}
	g.ghostOf = make(map[int]int)
	g.sources = g.sources[:0]

	positions, err := particle.GetValue[vecmath.Vec](s, particle.Position)
	if err != nil {
		return err
	}
	var candidates []int
	for i := range positions {
		r := g.SearchRadius(s, i)
		if d := g.Boundary.SignedDistance(positions[i]); d >= 0 && d <= r {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		s.AddDependent(g)
		return nil
	}
	newIdxs := s.Duplicate(candidates)

	posBuf, err := particle.GetValue[vecmath.Vec](s, particle.Position)
	if err != nil {
		return err
	}
	velBuf := particle.Velocity(s)
	for k, ghostIdx := range newIdxs {
		src := candidates[k]
		posBuf[ghostIdx] = g.Boundary.Reflect(posBuf[src])
		velBuf[ghostIdx] = g.Boundary.ReflectVelocity(velBuf[src])
		if g.Override != nil {
			g.Override(s, src, ghostIdx)
		}
		g.ghostOf[ghostIdx] = src
		g.sources = append(g.sources, src)
	}
	s.AddDependent(g)
	return nil
}

func (g *GhostParticles) Finalize(s *particle.Store) error {
	if len(g.ghostOf) == 0 {
		return nil
	}
	idxs := make([]int, 0, len(g.ghostOf))
	for ghostIdx := range g.ghostOf {
		idxs = append(idxs, ghostIdx)
	}
	s.Remove(idxs, 0)
	g.ghostOf = nil
	g.sources = nil
	return nil
}

// Remove implements particle.Dependent: when the store drops indices for
// reasons unrelated to this handler (e.g. a collision merger consuming a
// ghost's source), keep this handler's own bookkeeping index-consistent.
func (g *GhostParticles) Remove(idxs []int) {
	if len(g.ghostOf) == 0 {
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
	next := make(map[int]int, len(g.ghostOf))
	for ghostIdx, src := range g.ghostOf {
		if removed[ghostIdx] {
			continue
		}
		next[shift(ghostIdx)] = shift(src)
	}
	g.ghostOf = next
}
