package material

import (
	"fmt"
	"math/rand"

	"github.com/astrophys-sim/impactcore/internal/particle"
	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

// EosParams is the flat parameter bag a Factory reads to build one of the
// concrete EOS implementations; unused fields are ignored by whichever
// Kind is selected.
type EosParams struct {
	Kind string // "ideal_gas", "tillotson", "murnaghan"

	Gamma float64

	Rho0     float64
	A, B     float64
	SmallA   float64
	SmallB   float64
	U0       float64
	Uiv, Ucv float64
	Alpha    float64
	Beta     float64
}

// Build constructs the concrete particle.EOS named by p.Kind.
func (p EosParams) Build() (particle.EOS, error) {
	switch p.Kind {
	case "ideal_gas":
		return IdealGas{Gamma: p.Gamma}, nil
	case "tillotson":
		return Tillotson{
			Rho0: p.Rho0, A: p.A, B: p.B,
			SmallA: p.SmallA, SmallB: p.SmallB,
			U0: p.U0, Uiv: p.Uiv, Ucv: p.Ucv,
			Alpha: p.Alpha, Beta: p.Beta,
		}, nil
	case "murnaghan":
		return Murnaghan{Rho0: p.Rho0, A: p.A}, nil
	default:
		return nil, fmt.Errorf("material: unknown eos kind %q", p.Kind)
	}
}

// DamageParams selects and configures a particle.DamageModel.
type DamageParams struct {
	Kind string // "grady_kipp", "null"

	KernelRadius float64
	WeibullK     float64
	WeibullM     float64
	ShearModulus float64
	BulkModulus  float64
	Rho0         float64
	RayleighC    float64

	InitialDamage float64
	DamageRange   vecmath.Interval
	DamageMin     float64

	Seed int64
}

func (p DamageParams) Build() (particle.DamageModel, error) {
	switch p.Kind {
	case "grady_kipp":
		return &GradyKipp{
			KernelRadius:  p.KernelRadius,
			RNG:           rand.New(rand.NewSource(p.Seed)),
			WeibullK:      p.WeibullK,
			WeibullM:      p.WeibullM,
			ShearModulus:  p.ShearModulus,
			BulkModulus:   p.BulkModulus,
			Rho0:          p.Rho0,
			RayleighC:     p.RayleighC,
			InitialDamage: p.InitialDamage,
			DamageRange:   p.DamageRange,
			DamageMin:     p.DamageMin,
		}, nil
	case "null", "":
		return Null{}, nil
	default:
		return nil, fmt.Errorf("material: unknown damage kind %q", p.Kind)
	}
}

// RheologyParams selects and configures a particle.Rheology.
type RheologyParams struct {
	Kind string // "von_mises", "drucker_prager", "elastic"

	ElasticityLimit  float64
	MeltEnergy       float64
	Cohesion         float64
	InternalFriction float64
	DryFriction      float64

	Damage DamageParams
}

func (p RheologyParams) Build() (particle.Rheology, error) {
	damage, err := p.Damage.Build()
	if err != nil {
		return nil, err
	}
	switch p.Kind {
	case "von_mises":
		return VonMises{Damage: damage, ElasticityLimit: p.ElasticityLimit, MeltEnergy: p.MeltEnergy}, nil
	case "drucker_prager":
		return &DruckerPrager{
			Damage:           damage,
			Cohesion:         p.Cohesion,
			InternalFriction: p.InternalFriction,
			ElasticityLimit:  p.ElasticityLimit,
			DryFriction:      p.DryFriction,
		}, nil
	case "elastic", "":
		return Elastic{}, nil
	default:
		return nil, fmt.Errorf("material: unknown rheology kind %q", p.Kind)
	}
}

// Spec is the full description of one body's material, the unit a Factory
// turns into a *particle.Material. Mirrors the "material factory... called
// once per body at setup" contract: one Spec per body, built once before
// the store's particle ranges are finalized.
type Spec struct {
	Eos      EosParams
	Rheology RheologyParams
	Ranges   map[particle.QuantityID]vecmath.Interval
	Minimal  map[particle.QuantityID]float64
	Params   map[string]float64
}

// Factory turns a Spec into a wired *particle.Material, sharing the same
// rheology (and its damage sub-model) instance the material's Create hook
// installs so internal/run's initialize/finalize calls dispatch to a
// concrete, already-configured implementation.
type Factory struct{}

func (Factory) Build(spec Spec) (*particle.Material, error) {
	eos, err := spec.Eos.Build()
	if err != nil {
		return nil, err
	}
	rheology, err := spec.Rheology.Build()
	if err != nil {
		return nil, err
	}

	m := particle.NewMaterial()
	m.EOS = eos
	m.Rheology = rheology
	if dm, ok := rheologyDamage(rheology); ok {
		m.DamageModel = dm
	}
	for id, r := range spec.Ranges {
		m.Ranges[id] = r
	}
	for id, v := range spec.Minimal {
		m.Minimal[id] = v
	}
	for k, v := range spec.Params {
		m.Params[k] = v
	}
	m.Create = func(s *particle.Store, m *particle.Material) error {
		return m.Rheology.Create(s, m)
	}
	return m, nil
}

// rheologyDamage recovers the damage sub-model a VonMises/DruckerPrager
// rheology owns so Material.DamageModel can be set directly instead of
// internal/run needing to know each rheology's internal shape.
func rheologyDamage(r particle.Rheology) (particle.DamageModel, bool) {
	switch v := r.(type) {
	case VonMises:
		return v.Damage, v.Damage != nil
	case *DruckerPrager:
		return v.Damage, v.Damage != nil
	default:
		return nil, false
	}
}
