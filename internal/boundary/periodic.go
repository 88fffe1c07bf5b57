package boundary

import (
	"github.com/astrophys-sim/impactcore/internal/particle"
	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

// Periodic wraps particles leaving through Low/High planes back onto the
// opposite face and spawns ghosts near a face on the opposite side, so
// pairs straddling the periodic boundary still interact through the SPH
// kernel sum.
type Periodic struct {
	Axis         int // 0=x, 1=y, 2=z
	Lo, Hi       float64
	SearchRadius func(s *particle.Store, i int) float64

	ghosts map[int]int // ghost -> source
}

func (p *Periodic) axisOf(v vecmath.Vec) float64 {
	switch p.Axis {
	case 0:
		return v.X()
	case 1:
		return v.Y()
	default:
		return v.Z()
	}
}

func (p *Periodic) withAxis(v vecmath.Vec, value float64) vecmath.Vec {
	x, y, z := v.X(), v.Y(), v.Z()
	switch p.Axis {
	case 0:
		x = value
	case 1:
		y = value
	default:
		z = value
	}
	return vecmath.VH(x, y, z, v.H())
}

func (p *Periodic) Initialize(s *particle.Store) error {
	if len(p.ghosts) > 0 {
		idxs := make([]int, 0, len(p.ghosts))
		for g := range p.ghosts {
			idxs = append(idxs, g)
		}
		s.Remove(idxs, 0)
	}

	span := p.Hi - p.Lo
	positions, err := particle.GetValue[vecmath.Vec](s, particle.Position)
	if err != nil {
		return err
	}

	p.ghosts = make(map[int]int)
	var candidatesLo, candidatesHi []int
	for i := range positions {
		a := p.axisOf(positions[i])
		r := p.SearchRadius(s, i)
		if a-p.Lo <= r {
			candidatesLo = append(candidatesLo, i)
		}
		if p.Hi-a <= r {
			candidatesHi = append(candidatesHi, i)
		}
	}

	addGhosts := func(candidates []int, shift float64) {
		if len(candidates) == 0 {
			return
		}
		newIdxs := s.Duplicate(candidates)
		posBuf, _ := particle.GetValue[vecmath.Vec](s, particle.Position)
		for k, ghostIdx := range newIdxs {
			src := candidates[k]
			posBuf[ghostIdx] = p.withAxis(posBuf[src], p.axisOf(posBuf[src])+shift)
			p.ghosts[ghostIdx] = src
		}
	}
	addGhosts(candidatesLo, span)
	addGhosts(candidatesHi, -span)

	s.AddDependent(p)
	return nil
}

// Finalize wraps any real particle (not ghost) that crossed a face back
// into [Lo, Hi), then drops this step's ghosts.
func (p *Periodic) Finalize(s *particle.Store) error {
	span := p.Hi - p.Lo
	positions, err := particle.GetValue[vecmath.Vec](s, particle.Position)
	if err != nil {
		return err
	}
	n := s.Count() - len(p.ghosts)
	for i := 0; i < n; i++ {
		a := p.axisOf(positions[i])
		if a < p.Lo {
			positions[i] = p.withAxis(positions[i], a+span)
		} else if a >= p.Hi {
			positions[i] = p.withAxis(positions[i], a-span)
		}
	}

	if len(p.ghosts) > 0 {
		idxs := make([]int, 0, len(p.ghosts))
		for g := range p.ghosts {
			idxs = append(idxs, g)
		}
		s.Remove(idxs, 0)
	}
	p.ghosts = nil
	return nil
}

func (p *Periodic) Remove(idxs []int) {
	if len(p.ghosts) == 0 {
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
	next := make(map[int]int, len(p.ghosts))
	for g, src := range p.ghosts {
		if removed[g] {
			continue
		}
		next[shift(g)] = shift(src)
	}
	p.ghosts = next
}
