package material

import (
	"math"
	"math/rand"

	"github.com/astrophys-sim/impactcore/internal/particle"
	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

// GradyKipp is the scalar (D in [0,1]) Weibull-flaw damage model,
// transcribed from Damage.cpp's ScalarDamage. Flaws are seeded once at
// setup via a Weibull distribution over the body's volume, and each
// particle's damage grows toward 1 whenever the local elastic strain
// exceeds its smallest-flaw activation threshold.
type GradyKipp struct {
	KernelRadius float64 // support radius of the smoothing kernel, in units of h
	RNG          *rand.Rand

	WeibullK float64 // k_weibull
	WeibullM float64 // m_weibull

	ShearModulus float64 // mu
	BulkModulus  float64 // A
	Rho0         float64
	RayleighC    float64 // fraction of the elastic wave speed used for crack growth

	InitialDamage float64
	DamageRange   vecmath.Interval
	DamageMin     float64

	YoungModulus float64 // filled in by SetFlaws
}

func (d *GradyKipp) SetFlaws(s *particle.Store, m *particle.Material) {
	mustInsertConst(s, particle.Damage, particle.OrderFirst, d.InitialDamage)
	m.Ranges[particle.Damage] = d.DamageRange
	m.Minimal[particle.Damage] = d.DamageMin
	mustInsertConst(s, particle.EpsMin, particle.OrderZero, 0.0)
	mustInsertConst(s, particle.MZero, particle.OrderZero, 0.0)
	mustInsertConst(s, particle.ExplicitGrowth, particle.OrderZero, 0.0)
	mustInsertConst(s, particle.NFlaws, particle.OrderZero, 0.0)

	rho := particle.MustGetValue[float64](s, particle.Density)
	mass := particle.MustGetValue[float64](s, particle.Mass)
	positions := particle.MustGetValue[vecmath.Vec](s, particle.Position)
	epsMin := particle.MustGetValue[float64](s, particle.EpsMin)
	mZero := particle.MustGetValue[float64](s, particle.MZero)
	growth := particle.MustGetValue[float64](s, particle.ExplicitGrowth)
	nFlaws := particle.MustGetValue[float64](s, particle.NFlaws)

	d.YoungModulus = d.ShearModulus * 9 * d.BulkModulus / (3*d.BulkModulus + d.ShearModulus)
	cg := d.RayleighC * math.Sqrt((d.BulkModulus+4.0/3.0*d.ShearModulus)/d.Rho0)

	n := m.Range.Len()
	if n == 0 {
		return
	}
	m.Range.ForEach(func(i int) {
		growth[i] = cg / (d.KernelRadius * positions[i].H())
	})

	volume := 0.0
	m.Range.ForEach(func(i int) { volume += mass[i] / rho[i] })
	denom := 1.0 / (math.Pow(d.WeibullK, 1/d.WeibullM) * math.Pow(volume, 1/d.WeibullM))

	indices := make([]int, 0, n)
	m.Range.ForEach(func(i int) { indices = append(indices, i) })
	epsMax := make(map[int]float64, n)

	flawedCnt, p := 0, 1
	for flawedCnt < n {
		i := indices[d.RNG.Intn(n)]
		eps := denom * math.Pow(float64(p), 1/d.WeibullM)
		if nFlaws[i] == 0 {
			flawedCnt++
			epsMin[i] = eps
		}
		epsMax[i] = eps
		p++
		nFlaws[i]++
	}
	for _, i := range indices {
		if nFlaws[i] == 1 {
			mZero[i] = 1
		} else {
			mZero[i] = math.Log(nFlaws[i]) / math.Log(epsMax[i]/epsMin[i])
		}
	}
}

func (d *GradyKipp) Reduce(s *particle.Store, m *particle.Material, flags particle.DamageFlag) {
	damage := particle.MustGetValue[float64](s, particle.Damage)
	press := particle.MustGetValue[float64](s, particle.Pressure)
	reducing := particle.MustGetValue[float64](s, particle.StressReducing)
	stress := particle.MustGetValue[vecmath.Traceless2](s, particle.DeviatoricStress)

	m.Range.ForEach(func(i int) {
		dd := damage[i] * damage[i] * damage[i]
		if flags.Has(particle.DamagePressure) && press[i] < 0 {
			press[i] = (1 - dd) * press[i]
		}
		if flags.Has(particle.DamageStressTensor) {
			stress[i] = stress[i].Scale(1 - dd)
		}
		if flags.Has(particle.DamageReductionFactor) {
			reducing[i] = (1 - dd) * reducing[i]
		}
	})
}

// largeDamageRate marks a fully damaged particle's growth rate as
// unmistakably dominant so the predictor-corrector's clamp to the damage
// range wins over whatever the prediction step computed, transcribed
// from Damage.cpp's use of LARGE for this same purpose.
const largeDamageRate = 1e10

func (d *GradyKipp) Integrate(s *particle.Store, m *particle.Material) {
	stress := particle.MustGetValue[vecmath.Traceless2](s, particle.DeviatoricStress)
	dStress, err := particle.GetDt[vecmath.Traceless2](s, particle.DeviatoricStress)
	if err != nil {
		return
	}
	press := particle.MustGetValue[float64](s, particle.Pressure)
	epsMin := particle.MustGetValue[float64](s, particle.EpsMin)
	mZero := particle.MustGetValue[float64](s, particle.MZero)
	growth := particle.MustGetValue[float64](s, particle.ExplicitGrowth)
	nFlaws := particle.MustGetValue[float64](s, particle.NFlaws)
	damage := particle.MustGetValue[float64](s, particle.Damage)
	dDamage, err := particle.GetDt[float64](s, particle.Damage)
	if err != nil {
		return
	}

	damageRange := m.RangeOf(particle.Damage)
	m.Range.ForEach(func(i int) {
		if damage[i] >= damageRange.Hi {
			dDamage[i] = largeDamageRate
			stress[i] = vecmath.Traceless2{}
			dStress[i] = vecmath.Traceless2{}
			return
		}
		sigma := stress[i].AsSym2().Add(vecmath.Identity2(-press[i]))
		sigMax := vecmath.MaxEigenvalue(sigma)
		youngRed := math.Max((1-damage[i]*damage[i]*damage[i])*d.YoungModulus, 1e-20)
		strain := sigMax / youngRed
		ratio := strain / epsMin[i]
		if ratio <= 1 {
			return
		}
		dDamage[i] = growth[i] * math.Cbrt(math.Min(math.Pow(ratio, mZero[i]), nFlaws[i]))
	})
}

// Null applies no damage at all, transcribed from Damage.cpp's NullDamage:
// setFlaws and integrate are no-ops, reduce just leaves the stress tensor
// unmodified.
type Null struct{}

func (Null) SetFlaws(*particle.Store, *particle.Material)                    {}
func (Null) Reduce(*particle.Store, *particle.Material, particle.DamageFlag) {}
func (Null) Integrate(*particle.Store, *particle.Material)                   {}

// mustInsertConst inserts id if not already present; setFlaws-time inserts
// are setup-time configuration errors, not runtime conditions, so a
// failure panics rather than threading an error through the
// particle.DamageModel interface (which, mirroring ScalarDamage::setFlaws,
// returns nothing).
func mustInsertConst[T any](s *particle.Store, id particle.QuantityID, order particle.OrderEnum, value T) {
	if s.Has(id) {
		return
	}
	if err := particle.InsertConst(s, id, order, value); err != nil {
		panic(err)
	}
}
