package material

import (
	"math"

	"github.com/astrophys-sim/impactcore/internal/particle"
	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

// VonMises is the pressure-independent yield criterion, transcribed from
// Rheology.cpp's VonMisesRheology::{initialize,integrate}: reduce the
// deviatoric stress by damage, compute a yielding factor from the
// energy-dependent elasticity limit, then scale the stress tensor in place
// by min(sqrt(1/(3*J2)), 1).
type VonMises struct {
	Damage          particle.DamageModel // nil means damage reduction is skipped
	ElasticityLimit float64
	MeltEnergy      float64
}

func (r VonMises) Create(s *particle.Store, m *particle.Material) error {
	if err := particle.InsertConst(s, particle.StressReducing, particle.OrderZero, 1.0); err != nil {
		return err
	}
	if r.Damage != nil {
		r.Damage.SetFlaws(s, m)
	}
	return nil
}

func (r VonMises) Initialize(s *particle.Store, m *particle.Material) {
	if !s.Has(particle.DeviatoricStress) || !s.Has(particle.Energy) {
		return
	}
	if r.Damage != nil {
		r.Damage.Reduce(s, m, particle.DamagePressure|particle.DamageStressTensor)
	}
	u := particle.MustGetValue[float64](s, particle.Energy)
	stress := particle.MustGetValue[vecmath.Traceless2](s, particle.DeviatoricStress)
	reducing := particle.MustGetValue[float64](s, particle.StressReducing)

	const eps = 1e-15
	m.Range.ForEach(func(i int) {
		unorm := u[i] / r.MeltEnergy
		y := r.ElasticityLimit
		if unorm >= 1e-5 {
			y = r.ElasticityLimit * math.Max(1-unorm, 0)
		}
		if y < eps {
			reducing[i] = 0
			stress[i] = vecmath.Traceless2{}
			return
		}
		sy := stress[i].Scale(1 / y)
		inv := 0.5*sy.Ddot(sy) + eps
		red := math.Min(math.Sqrt(1/(3*inv)), 1)
		reducing[i] = red
		stress[i] = stress[i].Scale(red)
	})

	if r.Damage != nil {
		r.Damage.Reduce(s, m, particle.DamageStressTensor|particle.DamageReductionFactor)
	}
}

func (r VonMises) Integrate(s *particle.Store, m *particle.Material) {
	if r.Damage != nil {
		r.Damage.Integrate(s, m)
	}
}

// DruckerPrager is the pressure-dependent yield criterion for granular and
// porous material, transcribed from Rheology.cpp's
// DruckerPragerRheology::initialize, and clamps the deviatoric stress
// against YieldStress[i] the same way VonMises clamps against its
// elasticity limit (the original C++ left this clamp as a todo, "copy+paste
// of von mises").
type DruckerPrager struct {
	Damage particle.DamageModel

	Cohesion         float64 // Y_0
	InternalFriction float64 // mu_i
	ElasticityLimit  float64 // Y_M
	DryFriction      float64 // mu_d

	YieldStress []float64
}

func (r *DruckerPrager) Create(s *particle.Store, m *particle.Material) error {
	if err := particle.InsertConst(s, particle.StressReducing, particle.OrderZero, 1.0); err != nil {
		return err
	}
	if r.Damage != nil {
		r.Damage.SetFlaws(s, m)
	}
	return nil
}

func (r *DruckerPrager) Initialize(s *particle.Store, m *particle.Material) {
	if !s.Has(particle.Pressure) || !s.Has(particle.Damage) {
		return
	}
	p := particle.MustGetValue[float64](s, particle.Pressure)
	d := particle.MustGetValue[float64](s, particle.Damage)
	r.YieldStress = r.YieldStress[:0]

	hasStress := s.Has(particle.DeviatoricStress)
	var stress []vecmath.Traceless2
	var reducing []float64
	if hasStress {
		stress = particle.MustGetValue[vecmath.Traceless2](s, particle.DeviatoricStress)
		reducing = particle.MustGetValue[float64](s, particle.StressReducing)
	}

	const eps = 1e-15
	m.Range.ForEach(func(i int) {
		yi := r.Cohesion + r.InternalFriction*p[i]/(1+r.InternalFriction*p[i]/(r.ElasticityLimit-r.Cohesion))
		yd := r.DryFriction * p[i]
		var y float64
		if yd > yi {
			y = yi
		} else {
			dd := d[i] * d[i] * d[i]
			y = (1-dd)*yi + dd*yd
		}
		r.YieldStress = append(r.YieldStress, y)

		if !hasStress || y < eps {
			return
		}
		sy := stress[i].Scale(1 / y)
		inv := 0.5*sy.Ddot(sy) + eps
		red := math.Min(math.Sqrt(1/(3*inv)), 1)
		reducing[i] = red
		stress[i] = stress[i].Scale(red)
	})
}

func (r *DruckerPrager) Integrate(s *particle.Store, m *particle.Material) {
	if r.Damage != nil {
		r.Damage.Integrate(s, m)
	}
}

// Elastic applies no yielding at all, transcribed from
// Rheology.cpp's ElasticRheology (both initialize and integrate are
// no-ops in the source).
type Elastic struct{}

func (Elastic) Create(s *particle.Store, m *particle.Material) error {
	return particle.InsertConst(s, particle.StressReducing, particle.OrderZero, 1.0)
}
func (Elastic) Initialize(*particle.Store, *particle.Material) {}
func (Elastic) Integrate(*particle.Store, *particle.Material)  {}
