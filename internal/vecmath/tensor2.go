package vecmath

import (
	"gonum.org/v1/gonum/mat"
)

// Sym2 is a symmetric 3x3 tensor stored as a diagonal vector and an
// off-diagonal vector (xy, xz, yz), avoiding the redundant lower triangle.
type Sym2 struct {
	Diag Vec // xx, yy, zz
	Off  Vec // xy, xz, yz
}

func NewSym2(xx, yy, zz, xy, xz, yz float64) Sym2 {
	return Sym2{Diag: V(xx, yy, zz), Off: V(xy, xz, yz)}
}

func (s Sym2) XX() float64 { return s.Diag.X() }
func (s Sym2) YY() float64 { return s.Diag.Y() }
func (s Sym2) ZZ() float64 { return s.Diag.Z() }
func (s Sym2) XY() float64 { return s.Off.X() }
func (s Sym2) XZ() float64 { return s.Off.Y() }
func (s Sym2) YZ() float64 { return s.Off.Z() }

func (s Sym2) Trace() float64 { return s.XX() + s.YY() + s.ZZ() }

func (s Sym2) Add(o Sym2) Sym2 {
	return Sym2{Diag: s.Diag.Add(o.Diag), Off: s.Off.Add(o.Off)}
}

func (s Sym2) Scale(f float64) Sym2 {
	return Sym2{Diag: s.Diag.Scale(f), Off: s.Off.Scale(f)}
}

// MulVec applies the tensor to a vector: (S*v)_i = sum_j S_ij v_j.
func (s Sym2) MulVec(v Vec) Vec {
	return V(
		s.XX()*v.X()+s.XY()*v.Y()+s.XZ()*v.Z(),
		s.XY()*v.X()+s.YY()*v.Y()+s.YZ()*v.Z(),
		s.XZ()*v.X()+s.YZ()*v.Y()+s.ZZ()*v.Z(),
	)
}

// Traceless returns the reduced (trace-free) part of s.
func (s Sym2) Traceless() Traceless2 {
	tr3 := s.Trace() / 3
	return Traceless2{
		XX: s.XX() - tr3,
		YY: s.YY() - tr3,
		XY: s.XY(),
		XZ: s.XZ(),
		YZ: s.YZ(),
	}
}

// Traceless2 is a traceless symmetric 3x3 tensor stored with 5 independent
// components; ZZ is always -(XX+YY).
type Traceless2 struct {
	XX, YY, XY, XZ, YZ float64
}

func (t Traceless2) ZZ() float64 { return -t.XX - t.YY }

// AsSym2 promotes t to a full Sym2 (with the derived ZZ component).
func (t Traceless2) AsSym2() Sym2 {
	return NewSym2(t.XX, t.YY, t.ZZ(), t.XY, t.XZ, t.YZ)
}

func (t Traceless2) Add(o Traceless2) Traceless2 {
	return Traceless2{
		XX: t.XX + o.XX, YY: t.YY + o.YY,
		XY: t.XY + o.XY, XZ: t.XZ + o.XZ, YZ: t.YZ + o.YZ,
	}
}

func (t Traceless2) Sub(o Traceless2) Traceless2 {
	return Traceless2{
		XX: t.XX - o.XX, YY: t.YY - o.YY,
		XY: t.XY - o.XY, XZ: t.XZ - o.XZ, YZ: t.YZ - o.YZ,
	}
}

func (t Traceless2) Scale(f float64) Traceless2 {
	return Traceless2{XX: t.XX * f, YY: t.YY * f, XY: t.XY * f, XZ: t.XZ * f, YZ: t.YZ * f}
}

// Ddot computes the double-dot (Frobenius) contraction t:o = sum_ij t_ij o_ij.
func (t Traceless2) Ddot(o Traceless2) float64 {
	full := t.AsSym2()
	fullO := o.AsSym2()
	return full.XX()*fullO.XX() + full.YY()*fullO.YY() + full.ZZ()*fullO.ZZ() +
		2*(full.XY()*fullO.XY() + full.XZ()*fullO.XZ() + full.YZ()*fullO.YZ())
}

// SecondInvariant returns J2 = 0.5 * t:t, the second stress invariant used
// by the von Mises yield criterion.
func (t Traceless2) SecondInvariant() float64 { return 0.5 * t.Ddot(t) }

// Invariant1 is the trace of the *full* symmetric tensor sigma = t - p*I,
// used by the damage eigen-analysis (findEigenvalues in the source).
func Invariant1(full Sym2) float64 { return full.Trace() }

// Invariant2 is the sum of principal 2x2 minors of full.
func Invariant2(full Sym2) float64 {
	return full.XX()*full.YY() - full.XY()*full.XY() +
		full.YY()*full.ZZ() - full.YZ()*full.YZ() +
		full.XX()*full.ZZ() - full.XZ()*full.XZ()
}

// Invariant3 is the determinant of full.
func Invariant3(full Sym2) float64 {
	return full.XX()*(full.YY()*full.ZZ()-full.YZ()*full.YZ()) -
		full.XY()*(full.XY()*full.ZZ()-full.YZ()*full.XZ()) +
		full.XZ()*(full.XY()*full.YZ()-full.YY()*full.XZ())
}

// Eigenvalues returns the three (unordered) eigenvalues of a symmetric
// tensor, using gonum's symmetric eigen-decomposition.
func Eigenvalues(full Sym2) [3]float64 {
	sym := mat.NewSymDense(3, []float64{
		full.XX(), full.XY(), full.XZ(),
		full.XY(), full.YY(), full.YZ(),
		full.XZ(), full.YZ(), full.ZZ(),
	})
	var eig mat.EigenSym
	eig.Factorize(sym, false)
	vals := eig.Values(nil)
	return [3]float64{vals[0], vals[1], vals[2]}
}

// MaxEigenvalue is a convenience wrapper for the damage growth criterion,
// which only needs sigma_max.
func MaxEigenvalue(full Sym2) float64 {
	e := Eigenvalues(full)
	m := e[0]
	if e[1] > m {
		m = e[1]
	}
	if e[2] > m {
		m = e[2]
	}
	return m
}

// Identity2 returns the identity tensor scaled by f (f*I).
func Identity2(f float64) Sym2 { return NewSym2(f, f, f, 0, 0, 0) }
