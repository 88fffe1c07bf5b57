package main

import (
	"math"
	"math/rand"

	"github.com/astrophys-sim/impactcore/internal/boundary"
	"github.com/astrophys-sim/impactcore/internal/collision"
	"github.com/astrophys-sim/impactcore/internal/config"
	"github.com/astrophys-sim/impactcore/internal/derivative"
	"github.com/astrophys-sim/impactcore/internal/equation"
	"github.com/astrophys-sim/impactcore/internal/gravity"
	"github.com/astrophys-sim/impactcore/internal/integrate"
	"github.com/astrophys-sim/impactcore/internal/kernel"
	"github.com/astrophys-sim/impactcore/internal/material"
	"github.com/astrophys-sim/impactcore/internal/particle"
	"github.com/astrophys-sim/impactcore/internal/run"
	"github.com/astrophys-sim/impactcore/internal/schedule"
	"github.com/astrophys-sim/impactcore/internal/simerr"
	"github.com/astrophys-sim/impactcore/internal/spatial"
	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

// smoothingFactor sets h relative to a body's mean interparticle spacing;
// 1.2 keeps a cubic-spline kernel's support covering its nearest shells.
const smoothingFactor = 1.2

// toEosParams translates a config.EosConfig into the material factory's
// parameter bag, filling Rho0 from the owning body since Tillotson and
// Murnaghan both need the body's reference density.
func toEosParams(b config.BodyConfig) material.EosParams {
	e := b.Eos
	return material.EosParams{
		Kind: e.Kind, Gamma: e.Gamma,
		Rho0: b.Rho0, A: e.A, B: e.B,
		SmallA: e.SmallA, SmallB: e.SmallB,
		U0: e.U0, Uiv: e.Uiv, Ucv: e.Ucv,
		Alpha: e.Alpha, Beta: e.Beta,
	}
}

func toDamageParams(d config.DamageConfig, rho0 float64, seed int64) material.DamageParams {
	return material.DamageParams{
		Kind: d.Kind, KernelRadius: d.KernelRadius,
		WeibullK: d.WeibullK, WeibullM: d.WeibullM,
		ShearModulus: d.ShearModulus, BulkModulus: d.ShearModulus * 2, Rho0: rho0,
		RayleighC: d.RayleighC, DamageMin: d.DamageMin,
		DamageRange: vecmath.Interval{Lo: 0, Hi: 1},
		Seed:        seed,
	}
}

func toRheologyParams(b config.BodyConfig, seed int64) material.RheologyParams {
	r := b.Rheology
	return material.RheologyParams{
		Kind: r.Kind, ElasticityLimit: r.ElasticityLimit, MeltEnergy: r.MeltEnergy,
		Cohesion: r.Cohesion, InternalFriction: r.InternalFriction, DryFriction: r.DryFriction,
		Damage: toDamageParams(r.Damage, b.Rho0, seed),
	}
}

// sampleSphere fills count positions uniformly inside a sphere of the
// given radius around center, each stamped with the body's smoothing
// length h.
func sampleSphere(rng *rand.Rand, center vecmath.Vec, radius float64, count int) []vecmath.Vec {
	if count == 0 {
		return nil
	}
	volume := 4.0 / 3.0 * math.Pi * radius * radius * radius
	h := smoothingFactor * math.Cbrt(volume/float64(count))
	out := make([]vecmath.Vec, count)
	for i := range out {
		var x, y, z float64
		for {
			x = (rng.Float64()*2 - 1) * radius
			y = (rng.Float64()*2 - 1) * radius
			z = (rng.Float64()*2 - 1) * radius
			if x*x+y*y+z*z <= radius*radius {
				break
			}
		}
		out[i] = vecmath.VH(center.X()+x, center.Y()+y, center.Z()+z, h)
	}
	return out
}

// buildStore lays out every body's particles, builds each body's material
// via material.Factory, and wires the first material's Create hook to
// insert the shared, whole-store quantities (Position, Mass, Density,
// Energy, Pressure, SoundSpeed, DeviatoricStress) before any material's
// Rheology.Create runs, since Insert always replaces the full n-length
// buffer and per-material ranges only become meaningful once it exists.
func buildStore(cfg *config.Config) (*particle.Store, error) {
	if len(cfg.Bodies) == 0 {
		return nil, simerr.InvalidSetup("scenario", "config has no bodies")
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	counts := make([]int, len(cfg.Bodies))
	materials := make([]*particle.Material, len(cfg.Bodies))
	var positions, velocities []vecmath.Vec
	var masses, densities, energies []float64

	for i, b := range cfg.Bodies {
		counts[i] = b.Count
		center := vecmath.V(b.Position[0], b.Position[1], b.Position[2])
		bodyPositions := sampleSphere(rng, center, b.Radius, b.Count)
		vel := vecmath.V(b.Velocity[0], b.Velocity[1], b.Velocity[2])

		mass := b.Mass
		if mass <= 0 {
			volume := 4.0 / 3.0 * math.Pi * b.Radius * b.Radius * b.Radius
			mass = b.Rho0 * volume / float64(b.Count)
		}

		for range bodyPositions {
			velocities = append(velocities, vel)
			masses = append(masses, mass)
			densities = append(densities, b.Rho0)
			energies = append(energies, b.Energy)
		}
		positions = append(positions, bodyPositions...)

		spec := material.Spec{
			Eos:      toEosParams(b),
			Rheology: toRheologyParams(b, cfg.Seed+int64(i)+1),
			Params:   map[string]float64{"shear_modulus": b.Rheology.Damage.ShearModulus},
		}
		m, err := material.Factory{}.Build(spec)
		if err != nil {
			return nil, simerr.InvalidSetup("scenario", "body %s: %v", b.Name, err)
		}
		materials[i] = m
	}

	rheologyCreate := materials[0].Create
	materials[0].Create = func(s *particle.Store, m *particle.Material) error {
		if err := particle.Insert(s, particle.Position, particle.OrderSecond, positions); err != nil {
			return err
		}
		if err := particle.Insert(s, particle.Mass, particle.OrderZero, masses); err != nil {
			return err
		}
		if err := particle.Insert(s, particle.Density, particle.OrderFirst, densities); err != nil {
			return err
		}
		if err := particle.Insert(s, particle.Energy, particle.OrderFirst, energies); err != nil {
			return err
		}
		if err := particle.InsertConst(s, particle.Pressure, particle.OrderZero, 0.0); err != nil {
			return err
		}
		if err := particle.InsertConst(s, particle.SoundSpeed, particle.OrderZero, 0.0); err != nil {
			return err
		}
		if err := particle.InsertConst(s, particle.DeviatoricStress, particle.OrderFirst, vecmath.Traceless2{}); err != nil {
			return err
		}
		return rheologyCreate(s, m)
	}

	s, err := particle.NewStore(counts, materials)
	if err != nil {
		return nil, err
	}

	velBuf := particle.Velocity(s)
	copy(velBuf, velocities)

	return s, nil
}

// buildFinder constructs the neighbor-finding structure config.FinderConfig
// names; kd_tree is the default since it needs no per-scenario tuning.
func buildFinder(cfg config.FinderConfig) spatial.Finder {
	switch cfg.Kind {
	case "grid":
		cell := cfg.Eta
		if cell <= 0 {
			cell = config.DefaultEta
		}
		return spatial.NewGrid(cell)
	default:
		return spatial.NewKdTree()
	}
}

func buildIntegrator(name string, holder *derivative.Holder, finder spatial.Finder, radius func(int) float64, less spatial.RankLess, finishers []run.Finisher) (integrate.Integrator, error) {
	switch name {
	case "euler":
		return integrate.Euler{}, nil
	case "predictor_corrector", "":
		return integrate.NewPredictorCorrector(func(s *particle.Store) error {
			if err := holder.Evaluate(s, finder, radius, less); err != nil {
				return err
			}
			for _, f := range finishers {
				if err := f.Finish(s); err != nil {
					return err
				}
			}
			return nil
		}), nil
	default:
		return nil, simerr.InvalidSetup("scenario", "unknown integrator %q", name)
	}
}

func buildScheduler(name string, workers int) schedule.Scheduler {
	switch name {
	case "fixed_pool":
		return schedule.FixedPool{Workers: workers}
	case "stealing":
		return schedule.Stealing{Workers: workers}
	default:
		return schedule.Sequential{}
	}
}

func buildCollisionHandler(name string, absorbed *[]int) (collision.Handler, error) {
	switch name {
	case "bounce", "":
		return collision.NewElasticBounce(), nil
	case "merge":
		return collision.NewPerfectMerger(absorbed), nil
	default:
		return nil, simerr.InvalidSetup("scenario", "unknown collision handler %q", name)
	}
}

// buildRunner assembles the derivative pipeline, gravity, boundaries,
// collision resolver and integrator named by cfg around an already-built
// store, mirroring the fixed per-step ordering internal/run.Runner enforces.
func buildRunner(cfg *config.Config, s *particle.Store) (*run.Runner, error) {
	holder := derivative.NewHolder(kernel.CubicSpline{Dim: 3})
	smoothing := equation.SmoothingLength{Dim: 3}
	terms := []derivative.Term{
		smoothing,
		equation.Continuity{},
		equation.PressureForce{},
		equation.NewArtificialViscosity(),
		equation.NewXSPH(),
		equation.StrainRate{},
		equation.SolidStress{},
		equation.DamageGrowth{},
	}
	for _, t := range terms {
		if err := holder.Register(s, t, false); err != nil {
			return nil, err
		}
	}
	finishers := []run.Finisher{smoothing}

	var solver *gravity.Solver
	if cfg.Gravity.Enabled {
		if err := gravity.CheckSingleSource(false); err != nil {
			return nil, err
		}
		solver = gravity.NewSolver(cfg.Gravity.Theta, cfg.Gravity.MaxRank)
		if err := holder.Register(s, solver, false); err != nil {
			return nil, err
		}
	}

	finder := buildFinder(cfg.Finder)
	eta := cfg.Finder.Eta
	if eta <= 0 {
		eta = config.DefaultEta
	}
	radius := func(i int) float64 {
		positions := particle.MustGetValue[vecmath.Vec](s, particle.Position)
		return eta * positions[i].H()
	}
	less := func(i, j int) bool { return i < j }

	integrator, err := buildIntegrator(cfg.Integrator, holder, finder, radius, less, finishers)
	if err != nil {
		return nil, err
	}

	r := run.NewRunner(holder, finder, integrator)
	r.Gravity = solver
	r.Finishers = finishers
	r.Eta = eta
	r.MaxDt = cfg.MaxDt
	r.Scheduler = buildScheduler(cfg.Scheduler, cfg.Workers)
	r.Criteria = []integrate.Criterion{integrate.NewCourant(), integrate.NewAcceleration(), integrate.NewDerivative()}

	boundaries, err := buildBoundaries(cfg.Boundaries)
	if err != nil {
		return nil, err
	}
	r.Boundaries = boundaries

	if cfg.Collision.Enabled {
		var absorbed []int
		handler, err := buildCollisionHandler(cfg.Collision.Handler, &absorbed)
		if err != nil {
			return nil, err
		}
		overlapHandler, err := buildCollisionHandler(cfg.Collision.OverlapHandler, &absorbed)
		if err != nil {
			return nil, err
		}
		resolver := collision.NewResolver(handler, overlapHandler)
		resolver.Absorbed = &absorbed
		resolver.OverlapRatio = cfg.Collision.OverlapRatio
		resolver.AllowedOverlap = cfg.Collision.AllowedOverlap
		resolver.Scheduler = r.Scheduler
		resolver.Granularity = cfg.Collision.Granularity
		r.Collision = resolver
	}

	return r, nil
}

// buildBoundaries wires the "kill_escapers" boundary kind, the only one a
// generic float64-keyed config can describe without inventing a richer
// schema for planes and radii the other handlers need; ghost/fixed/frozen/
// periodic/symmetric handlers still exist and are wired directly by
// scenario code that needs them (see internal/boundary's tests), not
// through this config path.
func buildBoundaries(cfgs []config.BoundaryConfig) ([]boundary.Handler, error) {
	out := make([]boundary.Handler, 0, len(cfgs))
	for _, c := range cfgs {
		switch c.Kind {
		case "kill_escapers":
			radius := c.Params["radius"]
			if radius <= 0 {
				return nil, simerr.InvalidSetup("scenario", "kill_escapers requires a positive radius param")
			}
			out = append(out, boundary.KillEscapers{
				Domain: func(x vecmath.Vec) bool { return x.NormSq() <= radius*radius },
			})
		default:
			return nil, simerr.InvalidSetup("scenario", "unknown boundary kind %q", c.Kind)
		}
	}
	return out, nil
}
