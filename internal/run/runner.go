package run

import (
	"context"

	"github.com/astrophys-sim/impactcore/internal/boundary"
	"github.com/astrophys-sim/impactcore/internal/collision"
	"github.com/astrophys-sim/impactcore/internal/derivative"
	"github.com/astrophys-sim/impactcore/internal/gravity"
	"github.com/astrophys-sim/impactcore/internal/integrate"
	"github.com/astrophys-sim/impactcore/internal/particle"
	"github.com/astrophys-sim/impactcore/internal/schedule"
	"github.com/astrophys-sim/impactcore/internal/simerr"
	"github.com/astrophys-sim/impactcore/internal/spatial"
	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

// Stats mirrors the numerical counters IRunCallbacks.on_time_step expects:
// evaluation time, neighbour count, collision outcomes and the current
// step size and time.
type Stats struct {
	Step          int
	Time          float64
	Dt            float64
	EvalMs        float64
	MeanNeighbors float64
	Collision     collision.Stats
}

// Callbacks is the external collaborator the time-stepping loop polls:
// on-setup validation, a per-step progress hook, and an abort poll checked
// once per step (the current step always completes before control
// returns).
type Callbacks interface {
	OnSetup(s *particle.Store) error
	OnTimeStep(s *particle.Store, stats Stats) error
	ShouldAbort() bool
}

// NopCallbacks is a Callbacks that never aborts and does nothing on setup
// or each step; useful for library callers and tests that don't need
// progress reporting.
type NopCallbacks struct{}

func (NopCallbacks) OnSetup(*particle.Store) error           { return nil }
func (NopCallbacks) OnTimeStep(*particle.Store, Stats) error { return nil }
func (NopCallbacks) ShouldAbort() bool                       { return false }

// Finisher applies a closed-form update after a full derivative sweep has
// been reduced, e.g. equation.SmoothingLength's h update from drho/dt.
type Finisher interface {
	Finish(s *particle.Store) error
}

// Runner drives one complete SPH step: material initialize, boundary
// initialize, finder rebuild, the derivative pipeline (gravity included as
// a registered term), the integrator, boundary finalize, material
// finalize, then the collision resolver — the fixed ordering
// SymmetricSolver::integrate and NBodySolver::collide establish upstream.
type Runner struct {
	Holder     *derivative.Holder
	Finder     spatial.Finder
	Gravity    *gravity.Solver // nil if no tree gravity is registered
	Boundaries []boundary.Handler
	Integrator integrate.Integrator
	Criteria   []integrate.Criterion
	Collision  *collision.Resolver // nil disables collision handling
	Scheduler  schedule.Scheduler  // not used by Step, which runs sequentially

	// Finishers runs after Holder.Evaluate, for terms whose update needs
	// a fully-reduced derivative rather than a per-neighbor contribution
	// (equation.SmoothingLength's closed-form h update is the only one
	// today).
	Finishers []Finisher

	Eta   float64 // neighbor search radius multiplier: r = Eta*h
	MaxDt float64
	Less  spatial.RankLess // symmetric-sweep pair filter; nil means index order
}

// NewRunner builds a Runner with index-order pair filtering and Eta=2 (the
// cubic-spline default support radius in units of h).
func NewRunner(holder *derivative.Holder, finder spatial.Finder, integrator integrate.Integrator) *Runner {
	return &Runner{
		Holder:     holder,
		Finder:     finder,
		Integrator: integrator,
		Eta:        2.0,
		MaxDt:      0.01,
		Less:       func(i, j int) bool { return i < j },
	}
}

// Run drives steps until t reaches tEnd, ctx is cancelled, or a callback
// aborts. It returns the first NumericFailure or scheduler error hit.
func (r *Runner) Run(ctx context.Context, s *particle.Store, cb Callbacks, tEnd float64) error {
	if cb == nil {
		cb = NopCallbacks{}
	}
	if err := cb.OnSetup(s); err != nil {
		return err
	}
	t := 0.0
	step := 0
	for t < tEnd {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if cb.ShouldAbort() {
			return nil
		}

		dt, err := r.Step(s, tEnd-t)
		if err != nil {
			return simerr.NumericFailure(step, t, "%v", err)
		}
		t += dt
		step++

		if err := cb.OnTimeStep(s, Stats{Step: step, Time: t, Dt: dt, Collision: r.collisionStats()}); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) collisionStats() collision.Stats {
	if r.Collision == nil {
		return collision.Stats{}
	}
	return r.Collision.Stats
}

// Step runs exactly one SPH step and returns the dt it actually took,
// which may be smaller than remaining if the timestep criteria demand it.
func (r *Runner) Step(s *particle.Store, remaining float64) (float64, error) {
	initializeMaterials(s)

	for _, b := range r.Boundaries {
		if err := b.Initialize(s); err != nil {
			return 0, err
		}
	}

	if err := r.rebuildFinder(s); err != nil {
		return 0, err
	}
	radius := func(i int) float64 {
		positions := particle.MustGetValue[vecmath.Vec](s, particle.Position)
		return r.Eta * positions[i].H()
	}
	less := r.Less
	if less == nil {
		less = func(i, j int) bool { return i < j }
	}
	if r.Gravity != nil {
		if err := r.Gravity.Prepare(s); err != nil {
			return 0, err
		}
	}
	// The accumulator adds its sweep contributions onto whatever the store's
	// Dt/D2t buffers already hold (internal/derivative's reduce), so without
	// this the buffers left by the previous step's integration (or, on the
	// predictor-corrector path, its own Reevaluate) would keep accumulating
	// across steps instead of being recomputed from scratch.
	integrate.ZeroDerivatives(s)
	if err := r.Holder.Evaluate(s, r.Finder, radius, less); err != nil {
		return 0, err
	}
	for _, f := range r.Finishers {
		if err := f.Finish(s); err != nil {
			return 0, err
		}
	}

	maxDt := r.MaxDt
	if maxDt <= 0 || maxDt > remaining {
		maxDt = remaining
	}
	dt := integrate.Combine(s, maxDt, r.Criteria...)

	if err := r.Integrator.Step(s, dt); err != nil {
		return 0, err
	}

	for _, b := range r.Boundaries {
		if err := b.Finalize(s); err != nil {
			return 0, err
		}
	}

	finalizeMaterials(s)

	if r.Collision != nil {
		if err := r.Collision.Step(s, dt); err != nil {
			return 0, err
		}
	}

	return dt, nil
}

func (r *Runner) rebuildFinder(s *particle.Store) error {
	positions, err := particle.GetValue[vecmath.Vec](s, particle.Position)
	if err != nil {
		return err
	}
	r.Finder.Build(positions)
	return nil
}

// initializeMaterials mirrors EosMaterial::initialize/SolidMaterial::initialize:
// evaluate the EoS over each material's index range, then let its rheology
// apply any pre-sweep state (yield factor bookkeeping).
func initializeMaterials(s *particle.Store) {
	for _, m := range s.Materials() {
		if m.Null {
			continue
		}
		evaluateEOS(s, m)
		if m.Rheology != nil {
			m.Rheology.Initialize(s, m)
		}
	}
}

// finalizeMaterials mirrors EosMaterial::finalize/SolidMaterial::finalize:
// re-evaluate the EoS at the post-integration state, integrate the
// rheology's yield model, then the damage model's flaw growth.
func finalizeMaterials(s *particle.Store) {
	for _, m := range s.Materials() {
		if m.Null {
			continue
		}
		evaluateEOS(s, m)
		if m.Rheology != nil {
			m.Rheology.Integrate(s, m)
		}
		if m.DamageModel != nil {
			m.DamageModel.Integrate(s, m)
		}
	}
}

func evaluateEOS(s *particle.Store, m *particle.Material) {
	if m.EOS == nil || !s.Has(particle.Density) || !s.Has(particle.Pressure) {
		return
	}
	rho := particle.MustGetValue[float64](s, particle.Density)
	u, err := particle.GetValue[float64](s, particle.Energy)
	hasU := err == nil
	press := particle.MustGetValue[float64](s, particle.Pressure)
	cs, err := particle.GetValue[float64](s, particle.SoundSpeed)
	hasCs := err == nil

	m.Range.ForEach(func(i int) {
		var ui float64
		if hasU {
			ui = u[i]
		}
		p, c := m.EOS.Evaluate(rho[i], ui)
		press[i] = p
		if hasCs {
			cs[i] = c
		}
	})
}
