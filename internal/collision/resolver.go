package collision

import (
	"sort"
	"sync"

	"github.com/astrophys-sim/impactcore/internal/particle"
	"github.com/astrophys-sim/impactcore/internal/schedule"
	"github.com/astrophys-sim/impactcore/internal/spatial"
	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

// Resolver runs the hard-sphere collision state machine once per step,
// entered after velocities have already been integrated for the step.
// Only the initial per-particle sweep is parallelised; the processing loop
// that follows is sequential because event ordering is globally
// significant.
type Resolver struct {
	Handler        Handler // dispatched for a genuine future contact (Overlap == 0)
	OverlapHandler Handler // dispatched when the pair is already overlapping at t=0
	OverlapRatio   float64 // fraction of (h1+h2) beyond which an overlap is not noise
	AllowedOverlap float64 // contactTime's quadratic-root selection threshold

	Scheduler   schedule.Scheduler // nil means schedule.Sequential{}
	Granularity int                // chunk size for the initial sweep; <1 means 64

	// Absorbed is the same slice pointer given to NewPerfectMerger so the
	// handler's writes and the resolver's step-7 removal read one shared
	// slice instead of two independent copies. Left nil when neither
	// Handler nor OverlapHandler ever produces Merger.
	Absorbed *[]int

	Stats Stats
}

func NewResolver(handler, overlapHandler Handler) *Resolver {
	return &Resolver{Handler: handler, OverlapHandler: overlapHandler, OverlapRatio: 0.01, AllowedOverlap: 0.01}
}

// Step runs the full 7-step state machine and mutates s in place.
func (r *Resolver) Step(s *particle.Store, dt float64) error {
	if s.Count() == 0 {
		return nil
	}
	finder := spatial.NewKdTree()
	positions, err := particle.GetValue[vecmath.Vec](s, particle.Position)
	if err != nil {
		return err
	}
	vel := particle.Velocity(s)
	finder.Build(positions)

	searchRadius := func(i int) float64 {
		return positions[i].H() + vel[i].Norm()*dt
	}

	// step 1: rank build. positions/velocities already give a well-defined
	// rank via r_i[h]+||v_i||*dt; no separate tree structure is needed for
	// the rank itself, only for the pair filter.
	rank := make([]float64, s.Count())
	maxRank := 0.0
	for i := range rank {
		rank[i] = searchRadius(i)
		if rank[i] > maxRank {
			maxRank = rank[i]
		}
	}
	less := func(i, j int) bool {
		if rank[i] != rank[j] {
			return rank[i] < rank[j]
		}
		return i < j // tie-break so equal ranks still form a strict order
	}

	// step 2: initial sweep, run over the scheduler since each particle's
	// candidate search only reads shared state (positions/velocities/tree)
	// and produces its own record; a chunk's hits accumulate into a local
	// slice and merge into the shared queue under a lock, mirroring the
	// thread-local-accumulator-then-reduce pattern the rest of the core
	// uses. The query radius is inflated by the global max rank rather
	// than the unknown neighbor's own rank, since a symmetric i+j radius
	// can't be known before the neighbor is found.
	sched := r.Scheduler
	if sched == nil {
		sched = schedule.Sequential{}
	}
	granularity := r.Granularity
	if granularity < 1 {
		granularity = 64
	}
	var queue []Record
	var queueMu sync.Mutex
	sched.ParallelFor(0, s.Count(), granularity, func(lo, hi int) {
		var local []Record
		var buf []spatial.Neighbor
		for i := lo; i < hi; i++ {
			buf = buf[:0]
			buf = finder.FindLowerRank(i, searchRadius(i)+maxRank, less, buf)
			if rec, ok := r.closestCollision(positions, vel, i, buf, dt); ok {
				local = append(local, rec)
			}
		}
		if len(local) == 0 {
			return
		}
		queueMu.Lock()
		queue = append(queue, local...)
		queueMu.Unlock()
	})

	// step 3: sort (a single-threaded merge here; the sweep above is the
	// only per-particle-parallelizable phase and internal/run's scheduler
	// is what actually fans it out across goroutines).
	sort.Slice(queue, func(a, b int) bool { return Less(queue[a], queue[b]) })

	if r.Absorbed != nil {
		*r.Absorbed = (*r.Absorbed)[:0]
	}
	removed := make(map[int]bool)
	advancedFull := make([]bool, s.Count())
	var buf []spatial.Neighbor

	// step 4-6: processing loop with local re-scan.
	for len(queue) > 0 {
		rec := queue[0]
		queue = queue[1:]
		if removed[rec.I] || removed[rec.J] {
			continue
		}

		tRemaining := dt - rec.TColl
		advance := func(idx int, dtLocal float64) {
			positions[idx] = positions[idx].AddH(vel[idx].ScaleH(dtLocal))
		}
		advance(rec.I, rec.TColl)
		advance(rec.J, rec.TColl)

		var result Result
		absorbedBefore := 0
		if r.Absorbed != nil {
			absorbedBefore = len(*r.Absorbed)
		}
		if rec.Overlap > 0 {
			r.Stats.Overlaps++
			result = r.OverlapHandler.Collide(s, rec.I, rec.J, tRemaining)
		} else {
			result = r.Handler.Collide(s, rec.I, rec.J, tRemaining)
		}
		switch result {
		case Bounce:
			r.Stats.Bounces++
			advancedFull[rec.I] = true
			advancedFull[rec.J] = true
		case Merger:
			r.Stats.Mergers++
			advancedFull[rec.I] = true
			if r.Absorbed != nil {
				for _, a := range (*r.Absorbed)[absorbedBefore:] {
					removed[a] = true
				}
			}
		default:
			r.Stats.Missed++
			// rewind: undo the advance since no outcome was applied.
			advance(rec.I, -rec.TColl)
			advance(rec.J, -rec.TColl)
			continue
		}

		// local re-scan: any surviving participant needs its future
		// collisions recomputed, since its velocity/position just changed.
		// The finder's tree shape is stale (built from step-start
		// positions) but its position slice is the same backing array as
		// s's, so point data is current. This is safe as a hard invariant,
		// not a hope: maxRank is the largest per-particle bound on how far
		// any particle can travel over the full step dt (searchRadius's
		// own definition), so inflating every query by maxRank already
		// covers the worst-case drift of every other particle relative to
		// the tree's stale geometry, and tRemaining at re-scan time is
		// always <= dt. Stale bounding boxes can only make pruning more
		// conservative (visit extra, empty subtrees), never exclude a
		// subtree that could still hold a genuine candidate.
		for _, idx := range [...]int{rec.I, rec.J} {
			if removed[idx] {
				continue
			}
			buf = buf[:0]
			buf = finder.FindAll(idx, searchRadius(idx)+maxRank, buf)
			if nrec, ok := r.closestCollision(positions, vel, idx, buf, dt-rec.TColl); ok {
				nrec.TColl += rec.TColl
				queue = append(queue, nrec)
				sort.Slice(queue, func(a, b int) bool { return Less(queue[a], queue[b]) })
			}
		}
	}

	// A participant in a resolved event was advanced to t_coll and then
	// (by its handler) through the rest of the step; every other
	// particle, having taken no part in any event, still owes its plain
	// free-flight motion for the full step.
	for i := 0; i < s.Count(); i++ {
		if !advancedFull[i] && !removed[i] {
			positions[i] = positions[i].AddH(vel[i].ScaleH(dt))
		}
	}

	// step 7: apply the removal set.
	if len(removed) > 0 {
		idxs := make([]int, 0, len(removed))
		for i := range removed {
			idxs = append(idxs, i)
		}
		sort.Ints(idxs)
		s.Remove(idxs, particle.RemoveSorted|particle.RemovePropagate)
	}
	return nil
}

func (r *Resolver) closestCollision(positions, vel []vecmath.Vec, i int, neighs []spatial.Neighbor, dt float64) (Record, bool) {
	var best Record
	found := false
	for _, n := range neighs {
		j := n.Index
		if j == i {
			continue
		}
		t, ok := contactTime(positions[i], positions[j], vel[i], vel[j], positions[i].H(), positions[j].H(), r.AllowedOverlap)
		if !ok || t >= dt {
			continue
		}
		overlap := 0.0
		tClamped := t
		if t < 0 {
			contactDist := positions[i].H() + positions[j].H()
			distSq := vecmath.DistSq(positions[i], positions[j])
			overlapSq := contactDist*contactDist - distSq
			if overlapSq < r.OverlapRatio*r.OverlapRatio*contactDist*contactDist {
				continue // below the noise floor, not worth a handler dispatch
			}
			overlap = contactDist - vecmath.Dist(positions[i], positions[j])
			tClamped = 0
		}
		rec := Record{I: i, J: j, TColl: tClamped, Overlap: overlap}
		if !found || Less(rec, best) {
			best, found = rec, true
		}
	}
	return best, found
}
