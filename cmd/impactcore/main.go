package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/astrophys-sim/impactcore/internal/config"
	"github.com/astrophys-sim/impactcore/internal/particle"
	"github.com/astrophys-sim/impactcore/internal/run"
)

var (
	configFile string
	presetName string
	regimeName string
	seedFlag   int64
	durationFl float64
	quiet      bool
)

// main wires the impactcore command tree and exits 1 on any command error,
// mirroring dynsim's cobra root.
func main() {
	rootCmd := &cobra.Command{
		Use:   "impactcore",
		Short: "SPH / hard-sphere collision simulation core",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a scenario to completion",
		RunE:  runScenario,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "scenario config file (yaml)")
	runCmd.Flags().StringVar(&regimeName, "regime", "", "preset regime (impact, granular, strength)")
	runCmd.Flags().StringVar(&presetName, "preset", "", "preset name within --regime")
	runCmd.Flags().Int64Var(&seedFlag, "seed", 0, "override random seed (0 keeps the config's)")
	runCmd.Flags().Float64Var(&durationFl, "duration", 0, "override simulation duration in seconds (0 keeps the config's)")
	runCmd.Flags().BoolVar(&quiet, "quiet", false, "suppress per-step progress output")

	presetsCmd := &cobra.Command{
		Use:   "presets [regime]",
		Short: "list available presets for a regime",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := config.ListPresets(args[0])
			if len(names) == 0 {
				fmt.Printf("no presets for regime: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, n := range names {
				fmt.Printf("  %s\n", n)
			}
			return nil
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "load a scenario and build its store and runner without simulating",
		RunE:  validateScenario,
	}
	validateCmd.Flags().StringVar(&configFile, "config", "", "scenario config file (yaml)")
	validateCmd.Flags().StringVar(&regimeName, "regime", "", "preset regime (impact, granular, strength)")
	validateCmd.Flags().StringVar(&presetName, "preset", "", "preset name within --regime")

	rootCmd.AddCommand(runCmd, presetsCmd, validateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves --config, or falls back to --regime/--preset; a bare
// invocation with neither uses DefaultConfig, which has no bodies, so
// buildStore then rejects it as InvalidSetup.
func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.Load(configFile)
	}
	if regimeName != "" {
		cfg := config.GetPreset(regimeName, presetName)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset %s/%s (available: %v)", regimeName, presetName, config.ListPresets(regimeName))
		}
		return cfg, nil
	}
	return config.DefaultConfig(), nil
}

func applyOverrides(cfg *config.Config) {
	if seedFlag != 0 {
		cfg.Seed = seedFlag
	}
	if durationFl > 0 {
		cfg.Duration = durationFl
	}
}

type progressCallbacks struct {
	quiet bool
	start time.Time
}

func (progressCallbacks) OnSetup(*particle.Store) error { return nil }

func (c progressCallbacks) OnTimeStep(s *particle.Store, stats run.Stats) error {
	if c.quiet {
		return nil
	}
	if stats.Step%100 == 0 {
		fmt.Printf("step %6d  t=%.6e  dt=%.3e  particles=%d  merges=%d\n",
			stats.Step, stats.Time, stats.Dt, s.Count(), stats.Collision.Mergers)
	}
	return nil
}

func (progressCallbacks) ShouldAbort() bool { return false }

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyOverrides(cfg)

	s, err := buildStore(cfg)
	if err != nil {
		return fmt.Errorf("build store: %w", err)
	}
	r, err := buildRunner(cfg, s)
	if err != nil {
		return fmt.Errorf("build runner: %w", err)
	}

	fmt.Printf("running %d bodies, %d particles, duration=%.4gs, integrator=%s\n",
		len(cfg.Bodies), s.Count(), cfg.Duration, cfg.Integrator)
	start := time.Now()

	cb := progressCallbacks{quiet: quiet, start: start}
	if err := r.Run(context.Background(), s, cb, cfg.Duration); err != nil {
		return err
	}

	elapsed := time.Since(start)
	fmt.Printf("completed in %v\n", elapsed)
	if r.Collision != nil {
		fmt.Printf("collisions: bounces=%d merges=%d\n", r.Collision.Stats.Bounces, r.Collision.Stats.Mergers)
	}
	fmt.Printf("final particle count: %d\n", s.Count())
	return nil
}

func validateScenario(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyOverrides(cfg)

	s, err := buildStore(cfg)
	if err != nil {
		return fmt.Errorf("build store: %w", err)
	}
	if _, err := buildRunner(cfg, s); err != nil {
		return fmt.Errorf("build runner: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BODY\tCOUNT\tEOS\tRHEOLOGY\tDAMAGE")
	for _, b := range cfg.Bodies {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", b.Name, b.Count, b.Eos.Kind, b.Rheology.Kind, b.Rheology.Damage.Kind)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("ok: %d particles across %d bodies\n", s.Count(), len(cfg.Bodies))
	return nil
}
