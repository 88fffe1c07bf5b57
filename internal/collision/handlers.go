package collision

import (
	"math"

	"github.com/astrophys-sim/impactcore/internal/particle"
	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

// Handler decides the outcome of a candidate collision or overlap between
// particles i and j. tRemaining is the time still to integrate after the
// contact instant (the step dt minus the contact time, in the same units
// as dt, not a fraction of the step); a Bounce/Merger implementation
// that repositions particles should advance by velocity*tRemaining,
// mirroring the resolver's own rewind-then-readvance bracketing.
type Handler interface {
	Collide(s *particle.Store, i, j int, tRemaining float64) Result
}

// ElasticBounce reflects both particles' velocities about their line of
// centers, scaled by independent normal/tangential coefficients of
// restitution, transcribed from Collision.h's ElasticBounceHandler.
type ElasticBounce struct {
	RestitutionNormal     float64
	RestitutionTangential float64
}

func NewElasticBounce() ElasticBounce {
	return ElasticBounce{RestitutionNormal: 1, RestitutionTangential: 1}
}

func (b ElasticBounce) Collide(s *particle.Store, i, j int, tRemaining float64) Result {
	positions := particle.MustGetValue[vecmath.Vec](s, particle.Position)
	vel := particle.Velocity(s)

	dir := positions[i].Sub(positions[j])
	n := dir.Norm()
	if n < 1e-300 {
		return None
	}
	dir = dir.Scale(1 / n)

	vel[i] = b.reflect(vel[i], dir.Scale(-1))
	vel[j] = b.reflect(vel[j], dir)

	positions[i] = positions[i].AddH(vel[i].ScaleH(tRemaining))
	positions[j] = positions[j].AddH(vel[j].ScaleH(tRemaining))
	return Bounce
}

func (b ElasticBounce) reflect(v, dir vecmath.Vec) vecmath.Vec {
	proj := v.Dot(dir)
	vt := v.Sub(dir.Scale(proj))
	vn := dir.Scale(proj)
	return vt.Scale(b.RestitutionTangential).Sub(vn.Scale(b.RestitutionNormal))
}

// PerfectMerger merges j into i: the survivor's mass, momentum and radius
// (conserving volume) become the combined pair's; j is marked absorbed.
// Absorbed indices are collected by the resolver and removed from the
// store in one batch after the queue drains, transcribed from
// Collision.h's PerfectMergingHandler.
type PerfectMerger struct {
	absorbed *[]int
}

func NewPerfectMerger(absorbed *[]int) PerfectMerger {
	return PerfectMerger{absorbed: absorbed}
}

func (m PerfectMerger) Collide(s *particle.Store, i, j int, tRemaining float64) Result {
	positions := particle.MustGetValue[vecmath.Vec](s, particle.Position)
	vel := particle.Velocity(s)
	mass := particle.MustGetValue[float64](s, particle.Mass)

	hMerger := math.Cbrt(cube(positions[i].H()) + cube(positions[j].H()))
	mMerger := mass[i] + mass[j]
	rMerger := weightedAverage(positions[i], mass[i], positions[j], mass[j])
	vMerger := weightedAverage(vel[i], mass[i], vel[j], mass[j])

	vel[i] = vMerger
	positions[i] = vecmath.VH(rMerger.X(), rMerger.Y(), rMerger.Z(), hMerger).AddH(vMerger.ScaleH(tRemaining))
	mass[i] = mMerger

	*m.absorbed = append(*m.absorbed, j)
	return Merger
}

func cube(x float64) float64 { return x * x * x }

func weightedAverage(a vecmath.Vec, wa float64, b vecmath.Vec, wb float64) vecmath.Vec {
	return a.Scale(wa).Add(b.Scale(wb)).Scale(1 / (wa + wb))
}
