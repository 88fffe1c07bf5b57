package particle

import "github.com/astrophys-sim/impactcore/internal/vecmath"

// EOS is the pure (rho,u) -> (p, sound speed) map.
// Concrete implementations live in internal/material to keep this package
// free of physics; Material stores one as an opaque field so the
// derivative pipeline's pressure-force term can call it without particle
// importing material (which would create an import cycle, since material
// implementations take a *Store).
type EOS interface {
	Evaluate(rho, u float64) (p, cs float64)
}

// DamageFlag selects which quantities Damage.Reduce applies its reduction
// factor to, mirroring the original DamageFlag bitmask.
type DamageFlag int

const (
	DamagePressure DamageFlag = 1 << iota
	DamageStressTensor
	DamageReductionFactor
)

func (f DamageFlag) Has(bit DamageFlag) bool { return f&bit != 0 }

// Rheology exposes create/initialize/integrate over a material's index
// range.
type Rheology interface {
	Create(s *Store, m *Material) error
	Initialize(s *Store, m *Material)
	Integrate(s *Store, m *Material)
}

// DamageModel exposes the Grady-Kipp flaw lifecycle. Named distinctly from
// the Damage QuantityID since Go's package-level namespace is flat.
type DamageModel interface {
	SetFlaws(s *Store, m *Material)
	Reduce(s *Store, m *Material, flags DamageFlag)
	Integrate(s *Store, m *Material)
}

// Material owns a contiguous particle range and its parameter map: density,
// EoS, rheology, damage, per-quantity allowed range and minimal scale for
// timestepping. A Null material marks a range with no
// physical parameters (a "null-material store").
type Material struct {
	Range vecmath.IndexSeq
	Null  bool

	Params map[string]float64

	EOS         EOS
	Rheology    Rheology
	DamageModel DamageModel

	// Ranges clamps quantity values after each integration step;
	// Minimal disables the timestep criterion for a
	// particle whose quantity value falls below the material's minimal
	// scale.
	Ranges  map[QuantityID]vecmath.Interval
	Minimal map[QuantityID]float64

	// Create inserts this material's quantities (stress, damage, sound
	// speed, ...) into the store at construction time.
	Create func(s *Store, m *Material) error
}

func NewMaterial() *Material {
	return &Material{
		Params:  make(map[string]float64),
		Ranges:  make(map[QuantityID]vecmath.Interval),
		Minimal: make(map[QuantityID]float64),
	}
}

func (m *Material) Param(name string, def float64) float64 {
	if v, ok := m.Params[name]; ok {
		return v
	}
	return def
}

func (m *Material) RangeOf(id QuantityID) vecmath.Interval {
	if r, ok := m.Ranges[id]; ok {
		return r
	}
	return vecmath.Unbounded()
}

func (m *Material) MinimalOf(id QuantityID) float64 {
	return m.Minimal[id]
}

// Sequence returns the material's index range as a vecmath.IndexSeq,
// mirroring MaterialView::sequence() in the source.
func (m *Material) Sequence() vecmath.IndexSeq { return m.Range }
