package equation

import (
	"github.com/astrophys-sim/impactcore/internal/derivative"
	"github.com/astrophys-sim/impactcore/internal/particle"
)

// DamageGrowth integrates each particle's Grady-Kipp scalar damage
// D^(1/3). This term only marks the quantity present;
// the actual flaw-activation growth-rate integral is material-specific and
// lives in internal/material's Damage implementation, invoked by
// internal/run once per step via Material.DamageModel.Integrate — mirrors
// the split between an equation term declaring a quantity and a material
// model owning its constitutive integration.
type DamageGrowth struct{}

func (DamageGrowth) Name() string            { return "DamageGrowth" }
func (DamageGrowth) Phase() derivative.Phase { return derivative.PhaseEval }
func (DamageGrowth) Create(*particle.Store) error { return nil }
func (DamageGrowth) Outputs() ([]particle.QuantityID, []particle.QuantityID) {
	return nil, nil
}

func (DamageGrowth) EvalSymmetric(derivative.Accumulator, *particle.Store, int, []derivative.Neigh) {
}
func (DamageGrowth) EvalNeighs(derivative.Accumulator, *particle.Store, int, []derivative.Neigh) {}
