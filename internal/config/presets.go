package config

// Presets groups named scenario configs under a top-level regime name, the
// way the original teacher grouped presets per dynamical model; here the
// grouping is per collision regime instead.
var Presets = map[string]map[string]*Config{
	"impact": {
		"grazing": {
			Integrator: "predictor_corrector", Scheduler: "fixed_pool", Workers: 4,
			Dt: 1e-4, MaxDt: 0.01, Duration: 5.0,
			Finder:  FinderConfig{Kind: "kd_tree", Eta: DefaultEta},
			Gravity: GravityConfig{Enabled: true, Theta: 0.5, MaxRank: 2},
			Collision: CollisionConfig{
				Enabled: true, Handler: "bounce", OverlapHandler: "merge",
				Restitution: 0.9, OverlapRatio: 0.01, AllowedOverlap: 0.01,
			},
			Bodies: []BodyConfig{
				{Name: "target", Count: 4000, Radius: 1.0, Rho0: 2700, Energy: 1e4,
					Eos: EosConfig{Kind: "tillotson"}},
				{Name: "impactor", Count: 400, Radius: 0.3, Rho0: 2700, Energy: 1e4,
					Position: [3]float64{3, 0.5, 0}, Velocity: [3]float64{-5, 0, 0},
					Eos: EosConfig{Kind: "tillotson"}},
			},
		},
		"head_on": {
			Integrator: "predictor_corrector", Scheduler: "stealing", Workers: 8,
			Dt: 1e-4, MaxDt: 0.005, Duration: 3.0,
			Finder:  FinderConfig{Kind: "kd_tree", Eta: DefaultEta},
			Gravity: GravityConfig{Enabled: true, Theta: 0.5, MaxRank: 2},
			Collision: CollisionConfig{
				Enabled: true, Handler: "merge", OverlapHandler: "merge",
				Restitution: 0.5, OverlapRatio: 0.01, AllowedOverlap: 0.01,
			},
			Bodies: []BodyConfig{
				{Name: "target", Count: 4000, Radius: 1.0, Rho0: 2700, Energy: 1e4,
					Eos: EosConfig{Kind: "tillotson"}},
				{Name: "impactor", Count: 4000, Radius: 1.0, Rho0: 2700, Energy: 1e4,
					Position: [3]float64{4, 0, 0}, Velocity: [3]float64{-8, 0, 0},
					Eos: EosConfig{Kind: "tillotson"}},
			},
		},
	},
	"granular": {
		"bounce": {
			Integrator: "euler", Scheduler: "sequential",
			Dt: 1e-3, MaxDt: 0.01, Duration: 10.0,
			Finder:  FinderConfig{Kind: "grid", Eta: DefaultEta},
			Gravity: GravityConfig{Enabled: false},
			Collision: CollisionConfig{
				Enabled: true, Handler: "bounce", OverlapHandler: "bounce",
				Restitution: 0.6, OverlapRatio: 0.02, AllowedOverlap: 0.02,
			},
			Bodies: []BodyConfig{
				{Name: "grains", Count: 2000, Radius: 0.05, Rho0: 1500, Energy: 0,
					Eos: EosConfig{Kind: "murnaghan", A: 1e6},
					Rheology: RheologyConfig{
						Kind: "drucker_prager", Cohesion: 1e3, InternalFriction: 0.6,
						ElasticityLimit: 1e6, DryFriction: 0.5,
						Damage: DamageConfig{Kind: "null"},
					},
				},
			},
		},
	},
	"strength": {
		"spall": {
			Integrator: "predictor_corrector", Scheduler: "fixed_pool", Workers: 4,
			Dt: 1e-5, MaxDt: 1e-3, Duration: 1.0,
			Finder:  FinderConfig{Kind: "kd_tree", Eta: DefaultEta},
			Gravity: GravityConfig{Enabled: false},
			Collision: CollisionConfig{Enabled: false},
			Bodies: []BodyConfig{
				{Name: "plate", Count: 5000, Radius: 1.0, Rho0: 7800, Energy: 1e3,
					Eos: EosConfig{Kind: "ideal_gas", Gamma: 1.2},
					Rheology: RheologyConfig{
						Kind: "von_mises", ElasticityLimit: 3e8, MeltEnergy: 5e5,
						Damage: DamageConfig{
							Kind: "grady_kipp", KernelRadius: 2.0,
							WeibullK: 8e33, WeibullM: 8.5,
							ShearModulus: 8e10, RayleighC: 0.4, DamageMin: 1e-3,
						},
					},
				},
			},
		},
	},
}

func GetPreset(regime, preset string) *Config {
	presets, ok := Presets[regime]
	if !ok {
		return nil
	}
	cfg, ok := presets[preset]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets(regime string) []string {
	presets, ok := Presets[regime]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	return names
}
