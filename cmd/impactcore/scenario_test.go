package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/astrophys-sim/impactcore/internal/config"
	"github.com/astrophys-sim/impactcore/internal/particle"
	"github.com/astrophys-sim/impactcore/internal/run"
)

func smallConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Integrator = "euler"
	cfg.Scheduler = "sequential"
	cfg.Dt = 1e-3
	cfg.MaxDt = 1e-3
	cfg.Duration = 2e-3
	cfg.Seed = 7
	cfg.Gravity.Enabled = false
	cfg.Collision.Enabled = false
	cfg.Bodies = []config.BodyConfig{
		{
			Name: "left", Count: 6, Radius: 0.5, Rho0: 1.0, Energy: 1.0,
			Position: [3]float64{-2, 0, 0}, Velocity: [3]float64{1, 0, 0},
			Eos: config.EosConfig{Kind: "ideal_gas", Gamma: 1.4},
		},
		{
			Name: "right", Count: 4, Radius: 0.4, Rho0: 1.0, Energy: 1.0,
			Position: [3]float64{2, 0, 0}, Velocity: [3]float64{-1, 0, 0},
			Eos: config.EosConfig{Kind: "ideal_gas", Gamma: 1.4},
		},
	}
	return cfg
}

func TestBuildStoreLaysOutBodiesContiguously(t *testing.T) {
	cfg := smallConfig()
	s, err := buildStore(cfg)
	require.NoError(t, err)
	require.Equal(t, 10, s.Count())

	mats := s.Materials()
	require.Len(t, mats, 2)
	require.Equal(t, 6, mats[0].Range.Len())
	require.Equal(t, 4, mats[1].Range.Len())
}

func TestBuildStoreRejectsEmptyBodies(t *testing.T) {
	cfg := config.DefaultConfig()
	_, err := buildStore(cfg)
	require.Error(t, err)
}

func TestBuildStorePopulatesSharedQuantities(t *testing.T) {
	cfg := smallConfig()
	s, err := buildStore(cfg)
	require.NoError(t, err)
	require.True(t, s.Has(particle.Density))
	require.True(t, s.Has(particle.Pressure))
	require.True(t, s.Has(particle.SoundSpeed))
	require.True(t, s.Has(particle.DeviatoricStress))

	vel := particle.Velocity(s)
	require.InDelta(t, 1.0, vel[0].X(), 1e-9)
	require.InDelta(t, -1.0, vel[9].X(), 1e-9)
}

func TestBuildRunnerHonorsGravityDisabled(t *testing.T) {
	cfg := smallConfig()
	s, err := buildStore(cfg)
	require.NoError(t, err)
	r, err := buildRunner(cfg, s)
	require.NoError(t, err)
	require.Nil(t, r.Gravity)
	require.Nil(t, r.Collision)
}

func TestBuildRunnerRejectsUnknownIntegrator(t *testing.T) {
	cfg := smallConfig()
	cfg.Integrator = "nonsense"
	s, err := buildStore(cfg)
	require.NoError(t, err)
	_, err = buildRunner(cfg, s)
	require.Error(t, err)
}

func TestBuildBoundariesRejectsUnknownKind(t *testing.T) {
	_, err := buildBoundaries([]config.BoundaryConfig{{Kind: "nonsense"}})
	require.Error(t, err)
}

func TestRunScenarioAdvancesTime(t *testing.T) {
	cfg := smallConfig()
	s, err := buildStore(cfg)
	require.NoError(t, err)
	r, err := buildRunner(cfg, s)
	require.NoError(t, err)

	err = r.Run(context.Background(), s, run.NopCallbacks{}, cfg.Duration)
	require.NoError(t, err)
	require.Equal(t, 10, s.Count())
}
