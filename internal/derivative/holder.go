// Package derivative implements the derivative pipeline: equation
// terms register named derivative outputs into a Holder, the holder
// dispatches a single sequential sweep over each particle's neighbors into
// one accumulator, and the sums are reduced back into the store in a fixed
// order. The sweep is not split across threads.
package derivative

import (
	"fmt"

	"github.com/astrophys-sim/impactcore/internal/kernel"
	"github.com/astrophys-sim/impactcore/internal/particle"
	"github.com/astrophys-sim/impactcore/internal/simerr"
	"github.com/astrophys-sim/impactcore/internal/spatial"
	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

// Phase orders derivative evaluation into two guaranteed stages: PhasePre
// computes quantities (e.g. density gradients) consumed by PhaseEval terms.
type Phase int

const (
	PhasePre Phase = iota
	PhaseEval
)

// Neigh is one neighbor of the particle currently being evaluated, carrying
// the precomputed separation and symmetrized kernel gradient so every term
// in the sweep reuses the same values instead of recomputing them.
type Neigh struct {
	Index  int
	Sep    vecmath.Vec // r_i - r_j
	DistSq float64
	Weight float64     // symmetrized kernel value W_ij
	Grad   vecmath.Vec // symmetrized kernel gradient grad_i W_ij
}

// Accumulator gives a Term write access to its own declared output buffers
// for one particle, collected in the sweep's single accumulator until the
// sweep finishes. Writes are not checked against the ids the term declared.
type Accumulator interface {
	AddScalar(id particle.QuantityID, i int, v float64)
	AddVector(id particle.QuantityID, i int, v vecmath.Vec)
	AddTraceless(id particle.QuantityID, i int, v vecmath.Traceless2)
}

// Term is one equation term's contribution to the pipeline: it registers
// one or more derivatives. Create declares this
// term's output quantities on the store (called once, before any sweep).
// Exactly one of EvalSymmetric/EvalNeighs is non-nil per term.
type Term interface {
	Name() string
	Phase() Phase
	Create(s *particle.Store) error

	// Outputs lists the quantity ids this term writes, used for the
	// duplicate-output InvalidSetup check. shared marks ids that
	// multiple terms may legitimately co-own (e.g. acceleration).
	Outputs() (ids []particle.QuantityID, shared []particle.QuantityID)

	// EvalSymmetric writes contributions to both i and every neighbor j;
	// the holder calls it once per unordered pair (rank-filtered).
	EvalSymmetric(acc Accumulator, s *particle.Store, i int, neighs []Neigh)
	// EvalNeighs writes contributions only to i; the holder calls it once
	// per particle over its full (unfiltered) neighbor list.
	EvalNeighs(acc Accumulator, s *particle.Store, i int, neighs []Neigh)
}

// Holder owns the registered terms and runs the two-phase sweep.
// Grounded on dynsim/internal/physics's per-step pass
// structure, generalized from a single fixed update function into a
// registration-based dispatch table with duplicate-output detection.
type Holder struct {
	kernel     kernel.Kernel
	terms      []Term
	symmetric  bool
	registered map[particle.QuantityID]bool
}

// NewHolder builds a pipeline that evaluates neighbor pairs using k for the
// symmetrized weight and gradient every registered term shares.
func NewHolder(k kernel.Kernel) *Holder {
	return &Holder{kernel: k, symmetric: true, registered: make(map[particle.QuantityID]bool)}
}

// Register adds term to the pipeline, calling its Create hook immediately
// and checking for output collisions. Passing asymmetric=true switches the
// whole pipeline to the asymmetric sweep for every term; the Holder does
// not inspect which of EvalSymmetric/EvalNeighs a term implements.
func (h *Holder) Register(s *particle.Store, term Term, asymmetric bool) error {
	if err := term.Create(s); err != nil {
		return err
	}
	ids, shared := term.Outputs()
	sharedSet := make(map[particle.QuantityID]bool, len(shared))
	for _, id := range shared {
		sharedSet[id] = true
	}
	for _, id := range ids {
		if h.registered[id] && !sharedSet[id] {
			return simerr.InvalidSetup("derivative", "term %s: output %s already declared by another term without being marked shared", term.Name(), id)
		}
		h.registered[id] = true
	}
	if asymmetric {
		h.symmetric = false
	}
	h.terms = append(h.terms, term)
	return nil
}

// Symmetric reports whether the pipeline runs the pair-once symmetric
// sweep (true) or the per-particle asymmetric sweep (false); it is decided
// once, at registration time, and fixed for the whole run.
func (h *Holder) Symmetric() bool { return h.symmetric }

func (h *Holder) termsInPhase(p Phase) []Term {
	var out []Term
	for _, t := range h.terms {
		if t.Phase() == p {
			out = append(out, t)
		}
	}
	return out
}

// Evaluate runs both phases to completion, in order, over every particle
// and its neighbors from finder. less is the rank order used for the
// symmetric sweep's pair filter; it is ignored when the pipeline is
// asymmetric.
func (h *Holder) Evaluate(s *particle.Store, finder spatial.Finder, radius func(i int) float64, less spatial.RankLess) error {
	if err := h.sweep(PhasePre, s, finder, radius, less); err != nil {
		return err
	}
	return h.sweep(PhaseEval, s, finder, radius, less)
}

func (h *Holder) sweep(phase Phase, s *particle.Store, finder spatial.Finder, radius func(i int) float64, less spatial.RankLess) error {
	terms := h.termsInPhase(phase)
	if len(terms) == 0 {
		return nil
	}
	acc := newAccumulator(s)
	positions, err := particle.GetValue[vecmath.Vec](s, particle.Position)
	if err != nil {
		return fmt.Errorf("derivative: %w", err)
	}

	n := s.Count()
	var buf []spatial.Neighbor
	var neighs []Neigh
	for i := 0; i < n; i++ {
		r := radius(i)
		buf = buf[:0]
		if h.symmetric {
			buf = finder.FindLowerRank(i, r, less, buf)
		} else {
			buf = finder.FindAll(i, r, buf)
		}
		neighs = neighs[:0]
		for _, nb := range buf {
			pi, pj := positions[i], positions[nb.Index]
			w, gradW := kernel.Symmetrized(h.kernel, pi, pj, pi.H(), pj.H())
			neighs = append(neighs, Neigh{Index: nb.Index, Sep: pi.Sub(pj), DistSq: nb.DistSq, Weight: w, Grad: gradW})
		}
		for _, t := range terms {
			if h.symmetric {
				t.EvalSymmetric(acc, s, i, neighs)
			} else {
				t.EvalNeighs(acc, s, i, neighs)
			}
		}
	}
	return acc.reduce(s)
}
