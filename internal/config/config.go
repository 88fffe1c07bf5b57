package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDt       = 1e-4
	DefaultMaxDt    = 0.01
	DefaultDuration = 10.0
	DefaultTheta    = 0.5
	DefaultEta      = 2.0
	DefaultCourant  = 0.3
)

// Config is the top-level run description: which finder, gravity, boundary
// handlers and collision handlers to wire up, one BodyConfig per material,
// and a generic Params escape hatch for anything a concrete model needs
// that doesn't warrant its own field.
type Config struct {
	Integrator string  `yaml:"integrator"` // "euler", "predictor_corrector"
	Scheduler  string  `yaml:"scheduler"`  // "sequential", "fixed_pool", "stealing"
	Workers    int     `yaml:"workers"`
	Dt         float64 `yaml:"dt"`
	MaxDt      float64 `yaml:"max_dt"`
	Duration   float64 `yaml:"duration"`
	Seed       int64   `yaml:"seed"`

	Finder  FinderConfig  `yaml:"finder"`
	Gravity GravityConfig `yaml:"gravity"`

	Boundaries []BoundaryConfig `yaml:"boundaries"`
	Collision  CollisionConfig  `yaml:"collision"`

	Bodies []BodyConfig `yaml:"bodies"`

	Params map[string]float64 `yaml:"params"`
}

// FinderConfig selects and configures the neighbor-finding structure.
type FinderConfig struct {
	Kind string  `yaml:"kind"` // "grid" or "kd_tree"; any other value builds a kd_tree
	Eta  float64 `yaml:"eta"`
}

// GravityConfig configures the Barnes-Hut tree gravity term; Enabled=false
// leaves internal/run.Runner.Gravity nil.
type GravityConfig struct {
	Enabled bool    `yaml:"enabled"`
	Theta   float64 `yaml:"theta"`
	MaxRank int     `yaml:"max_order"` // multipole order, 0..4
}

// BoundaryConfig names one boundary handler and its parameters; Params
// is intentionally loose since each handler (ghost/fixed/frozen/periodic/
// symmetric/kill) reads a different subset.
type BoundaryConfig struct {
	Kind   string             `yaml:"kind"`
	Params map[string]float64 `yaml:"params"`
}

// CollisionConfig selects the two hard-sphere handlers the resolver
// dispatches to.
type CollisionConfig struct {
	Enabled        bool    `yaml:"enabled"`
	Handler        string  `yaml:"handler"`         // "bounce", "merge"
	OverlapHandler string  `yaml:"overlap_handler"` // "bounce", "merge"
	Restitution    float64 `yaml:"restitution"`
	OverlapRatio   float64 `yaml:"overlap_ratio"`
	AllowedOverlap float64 `yaml:"allowed_overlap"`
	Granularity    int     `yaml:"granularity"`
}

// BodyConfig is one material's setup: its EoS/rheology/damage selection
// (translated into a material.Spec by cmd/impactcore and built by
// internal/material.Factory) plus the
// particle range it occupies and its initial state generator.
type BodyConfig struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`

	Eos      EosConfig      `yaml:"eos"`
	Rheology RheologyConfig `yaml:"rheology"`

	Radius float64 `yaml:"radius"`
	Rho0   float64 `yaml:"rho0"`
	Energy float64 `yaml:"energy"`

	Position [3]float64 `yaml:"position"`
	Velocity [3]float64 `yaml:"velocity"`
	Mass     float64    `yaml:"mass"`
}

type EosConfig struct {
	Kind   string  `yaml:"kind"`
	Gamma  float64 `yaml:"gamma"`
	A      float64 `yaml:"a"`
	B      float64 `yaml:"b"`
	SmallA float64 `yaml:"small_a"`
	SmallB float64 `yaml:"small_b"`
	U0     float64 `yaml:"u0"`
	Uiv    float64 `yaml:"uiv"`
	Ucv    float64 `yaml:"ucv"`
	Alpha  float64 `yaml:"alpha"`
	Beta   float64 `yaml:"beta"`
}

type RheologyConfig struct {
	Kind             string       `yaml:"kind"`
	ElasticityLimit  float64      `yaml:"elasticity_limit"`
	MeltEnergy       float64      `yaml:"melt_energy"`
	Cohesion         float64      `yaml:"cohesion"`
	InternalFriction float64      `yaml:"internal_friction"`
	DryFriction      float64      `yaml:"dry_friction"`
	Damage           DamageConfig `yaml:"damage"`
}

type DamageConfig struct {
	Kind         string  `yaml:"kind"`
	KernelRadius float64 `yaml:"kernel_radius"`
	WeibullK     float64 `yaml:"weibull_k"`
	WeibullM     float64 `yaml:"weibull_m"`
	ShearModulus float64 `yaml:"shear_modulus"`
	RayleighC    float64 `yaml:"rayleigh_c"`
	DamageMin    float64 `yaml:"damage_min"`
}

func DefaultConfig() *Config {
	return &Config{
		Integrator: "predictor_corrector",
		Scheduler:  "sequential",
		Dt:         DefaultDt,
		MaxDt:      DefaultMaxDt,
		Duration:   DefaultDuration,
		Finder:     FinderConfig{Kind: "kd_tree", Eta: DefaultEta},
		Gravity:    GravityConfig{Enabled: true, Theta: DefaultTheta, MaxRank: 2},
		Collision: CollisionConfig{
			Enabled: true, Handler: "bounce", OverlapHandler: "merge",
			Restitution: 0.8, OverlapRatio: 0.01, AllowedOverlap: 0.01,
		},
		Params: make(map[string]float64),
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Param reads a scalar out of the generic escape hatch, falling back to
// def when unset, mirroring particle.Material.Param.
func (c *Config) Param(name string, def float64) float64 {
	if v, ok := c.Params[name]; ok {
		return v
	}
	return def
}
