// Package material implements the constitutive models a particle.Material
// plugs in: equations of state, deviatoric-stress rheologies and scalar
// damage. None of these types touch particle.Store directly except through
// the particle.EOS/Rheology/Damage interfaces they satisfy, so internal/run
// can drive every material identically regardless of which concrete model
// backs it.
package material

import "math"

// IdealGas is the polytropic gas law p = (gamma-1)*rho*u, transcribed from
// Eos.cpp's IdealGasEos::evaluate.
type IdealGas struct {
	Gamma float64
}

func (e IdealGas) Evaluate(rho, u float64) (p, cs float64) {
	p = (e.Gamma - 1) * u * rho
	cs = math.Sqrt(e.Gamma * p / rho)
	return p, cs
}

// Murnaghan is the linear bulk-modulus solid EoS, transcribed from
// Eos.cpp's MurnaghanEos::evaluate. It ignores u entirely, matching the
// source's UNUSED(u) parameter.
type Murnaghan struct {
	Rho0 float64
	A    float64 // bulk modulus
}

func (e Murnaghan) Evaluate(rho, _ float64) (p, cs float64) {
	cs = math.Sqrt(e.A / e.Rho0)
	p = cs * cs * (rho - e.Rho0)
	return p, cs
}

// Tillotson is the two-phase (compressed/expanded) rock and metal EoS,
// transcribed term-for-term from Eos.cpp's TillotsonEos::evaluate,
// including the linear interpolation across the incomplete-vaporization
// band [Uiv, Ucv] and the sound-speed floor at 0.25*A/rho0.
type Tillotson struct {
	Rho0     float64
	A, B     float64 // bulk modulus, nonlinear compression term
	SmallA   float64
	SmallB   float64
	U0       float64 // sublimation energy
	Uiv, Ucv float64 // incipient/complete vaporization energy
	Alpha    float64
	Beta     float64
}

func (e Tillotson) Evaluate(rho, u float64) (p, cs float64) {
	eta := rho / e.Rho0
	mu := eta - 1
	denom := u/(e.U0*eta*eta) + 1

	// compressed phase
	pc := (e.SmallA+e.SmallB/denom)*rho*u + e.A*mu + e.B*mu*mu
	dpduC := e.SmallA*rho + e.SmallB*rho/(denom*denom)
	dpdrhoC := e.SmallA*u + e.SmallB*u*(3*denom-2)/(denom*denom) + e.A/e.Rho0 + 2*e.B*mu/e.Rho0
	csc := dpdrhoC + dpduC*pc/(rho*rho)

	// expanded phase
	rhoExp := e.Rho0/rho - 1
	betaExp := math.Exp(-math.Min(e.Beta*rhoExp, 70))
	alphaExp := math.Exp(-math.Min(e.Alpha*rhoExp*rhoExp, 70))
	pe := e.SmallA*rho*u + (e.SmallB*rho*u/denom+e.A*mu*betaExp)*alphaExp
	dpduE := e.SmallA*rho + alphaExp*e.SmallB*rho/(denom*denom)
	dpdrhoE := e.SmallA*u +
		alphaExp*(e.SmallB*u*(3*denom-2)/(denom*denom)) +
		alphaExp*(e.SmallB*u*rho/denom)*e.Rho0*(2*e.Alpha*rhoExp)/(rho*rho) +
		alphaExp*e.A*betaExp*(1/e.Rho0+e.Rho0*mu/(rho*rho)*(2*e.Alpha*rhoExp+e.Beta))
	cse := dpdrhoE + dpduE*pe/(rho*rho)
	cse = math.Max(cse, 0)

	p, cs = pc, csc
	switch {
	case rho <= e.Rho0 && u > e.Ucv:
		p, cs = pe, cse
	case rho <= e.Rho0 && u > e.Uiv && u <= e.Ucv:
		p = ((u-e.Uiv)*pe + (e.Ucv-u)*pc) / (e.Ucv - e.Uiv)
		cs = ((u-e.Uiv)*cse + (e.Ucv-u)*csc) / (e.Ucv - e.Uiv)
	}
	cs = math.Max(cs, 0.25*e.A/e.Rho0)
	return p, math.Sqrt(cs)
}
