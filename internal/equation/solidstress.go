package equation

import (
	"github.com/astrophys-sim/impactcore/internal/derivative"
	"github.com/astrophys-sim/impactcore/internal/particle"
	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

// StrainRate is a PhasePre term: it reduces the symmetric strain-rate
// tensor's deviatoric part and the spin tensor's axial vector from the
// neighbor sweep, so SolidStress can read both already-summed per particle
// in PhaseEval. Grounded on
// original_source/lib/physics/Rheology.cpp's per-particle strain/rotation
// tensor assembly, split into pairwise contributions to fit this pipeline's
// pair-once symmetric sweep instead of a full unfiltered per-particle
// neighbor loop.
type StrainRate struct{}

func (StrainRate) Name() string            { return "StrainRate" }
func (StrainRate) Phase() derivative.Phase { return derivative.PhasePre }
func (StrainRate) Create(s *particle.Store) error {
	if err := particle.InsertConst(s, particle.StrainRateDeviatoric, particle.OrderFirst, vecmath.Traceless2{}); err != nil {
		return err
	}
	return particle.InsertConst(s, particle.SpinAxial, particle.OrderFirst, vecmath.Zero())
}
func (StrainRate) Outputs() ([]particle.QuantityID, []particle.QuantityID) {
	return []particle.QuantityID{particle.StrainRateDeviatoric, particle.SpinAxial}, nil
}

// EvalSymmetric folds each pair's contribution into both particles' strain
// rate and spin. A pair (i,j) contributes the same relative velocity and
// gradient to both particles' sums (grad_j W_ji = -grad_i W_ij cancels
// against v_ji = -v_ij), so only the mass/density weight differs between
// the i and j accumulations, mirroring the existing pressure/viscosity
// pairwise pattern.
func (StrainRate) EvalSymmetric(acc derivative.Accumulator, s *particle.Store, i int, neighs []derivative.Neigh) {
	mass := particle.MustGetValue[float64](s, particle.Mass)
	rho := particle.MustGetValue[float64](s, particle.Density)
	vel := particle.Velocity(s)

	for _, n := range neighs {
		j := n.Index
		vij := vel[i].Sub(vel[j])
		g := n.Grad

		exx := vij.X() * g.X()
		eyy := vij.Y() * g.Y()
		ezz := vij.Z() * g.Z()
		exy := 0.5 * (vij.X()*g.Y() + vij.Y()*g.X())
		exz := 0.5 * (vij.X()*g.Z() + vij.Z()*g.X())
		eyz := 0.5 * (vij.Y()*g.Z() + vij.Z()*g.Y())
		trace := (exx + eyy + ezz) / 3

		swx := 0.5 * (vij.Y()*g.Z() - vij.Z()*g.Y())
		swy := 0.5 * (vij.Z()*g.X() - vij.X()*g.Z())
		swz := 0.5 * (vij.X()*g.Y() - vij.Y()*g.X())
		spin := vecmath.V(swx, swy, swz)

		wi := mass[j] / rho[j]
		acc.AddTraceless(particle.StrainRateDeviatoric, i, vecmath.Traceless2{
			XX: wi * (exx - trace), YY: wi * (eyy - trace),
			XY: wi * exy, XZ: wi * exz, YZ: wi * eyz,
		})
		acc.AddVector(particle.SpinAxial, i, spin.ScaleH(wi))

		wj := mass[i] / rho[i]
		acc.AddTraceless(particle.StrainRateDeviatoric, j, vecmath.Traceless2{
			XX: wj * (exx - trace), YY: wj * (eyy - trace),
			XY: wj * exy, XZ: wj * exz, YZ: wj * eyz,
		})
		acc.AddVector(particle.SpinAxial, j, spin.ScaleH(wj))
	}
}

func (StrainRate) EvalNeighs(derivative.Accumulator, *particle.Store, int, []derivative.Neigh) {}

// SolidStress contributes +s_i/rho_i^2 * gradW to acceleration and the
// Jaumann-corrected elastic stress rate into ds/dt; requires a Rheology on
// the owning material and StrainRate registered alongside it. Grounded
// numerically on original_source/lib/physics/Rheology.cpp's stress-rate
// assembly: the strain rate and spin tensor are built once per particle
// from its neighbor sum, then combined into the objective (Jaumann) rate
// before the material's own Rheology.Integrate applies yield-surface
// corrections.
type SolidStress struct{}

func (SolidStress) Name() string            { return "SolidStress" }
func (SolidStress) Phase() derivative.Phase { return derivative.PhaseEval }
func (SolidStress) Create(*particle.Store) error { return nil }
func (SolidStress) Outputs() ([]particle.QuantityID, []particle.QuantityID) {
	return []particle.QuantityID{particle.Position, particle.DeviatoricStress}, []particle.QuantityID{particle.Position}
}

func (SolidStress) EvalSymmetric(acc derivative.Accumulator, s *particle.Store, i int, neighs []derivative.Neigh) {
	if !s.Has(particle.DeviatoricStress) {
		return
	}
	mass := particle.MustGetValue[float64](s, particle.Mass)
	rho := particle.MustGetValue[float64](s, particle.Density)
	stress := particle.MustGetValue[vecmath.Traceless2](s, particle.DeviatoricStress)

	for _, n := range neighs {
		j := n.Index
		si := stress[i].AsSym2().Scale(1 / (rho[i] * rho[i]))
		sj := stress[j].AsSym2().Scale(1 / (rho[j] * rho[j]))

		acc.AddVector(particle.Position, i, si.MulVec(n.Grad).Scale(mass[j]))
		acc.AddVector(particle.Position, j, sj.MulVec(n.Grad).Scale(-mass[i]))
	}

	// StrainRate (PhasePre) writes its per-particle sums into the Dt
	// buffers of these two scratch quantities, the same way equation.XSPH
	// writes XSPHCorrection's Dt buffer for integrate.euler to pick up —
	// their value buffers are never meaningfully written or read.
	strainDev, err := particle.GetDt[vecmath.Traceless2](s, particle.StrainRateDeviatoric)
	if err != nil {
		return
	}
	spin, err := particle.GetDt[vecmath.Vec](s, particle.SpinAxial)
	if err != nil {
		return
	}
	mu := 0.0
	if mat := s.MaterialOf(i); mat != nil {
		mu = mat.Param("shear_modulus", 0)
	}

	sDot := strainDev[i].Scale(2 * mu)
	acc.AddTraceless(particle.DeviatoricStress, i, JaumannRate(stress[i], sDot, spin[i]))
}

func (SolidStress) EvalNeighs(derivative.Accumulator, *particle.Store, int, []derivative.Neigh) {}

// JaumannRate applies the objective (co-rotational) correction to a raw
// material stress-rate estimate: dS/dt = sDot + (Omega*S - S*Omega), where
// Omega is the antisymmetric spin tensor whose action on any vector v
// equals spinAxial cross v. Expanded directly in components (rather than
// building two 3x3 matrices) since S is symmetric and the commutator of an
// antisymmetric and a symmetric tensor is itself symmetric and traceless,
// matching Traceless2's shape exactly.
func JaumannRate(s vecmath.Traceless2, sDot vecmath.Traceless2, spinAxial vecmath.Vec) vecmath.Traceless2 {
	full := s.AsSym2()
	wx, wy, wz := spinAxial.X(), spinAxial.Y(), spinAxial.Z()
	sxx, syy, szz := full.XX(), full.YY(), full.ZZ()
	sxy, sxz, syz := full.XY(), full.XZ(), full.YZ()

	cxx := -2*wz*sxy + 2*wy*sxz
	cyy := 2*wz*sxy - 2*wx*syz
	cxy := wz*(sxx-syy) + wy*syz - wx*sxz
	cxz := wy*(szz-sxx) - wz*syz + wx*sxy
	cyz := wx*(syy-szz) + wz*sxz - wy*sxy

	correction := vecmath.Traceless2{XX: cxx, YY: cyy, XY: cxy, XZ: cxz, YZ: cyz}
	return sDot.Add(correction)
}
