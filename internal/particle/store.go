package particle

import (
	"fmt"
	"sort"

	"github.com/astrophys-sim/impactcore/internal/simerr"
	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

// Dependent is auxiliary state that tracks a store's structural mutations,
// e.g. a boundary handler's ghost-particle index list: user data whose
// remove(idxs) must be called whenever
// particles are removed").
type Dependent interface {
	Remove(idxs []int)
}

// RemoveFlags controls Store.Remove's behaviour.
type RemoveFlags int

const (
	// RemoveSorted indicates idxs is already sorted ascending with no
	// duplicates; skips the internal sort.
	RemoveSorted RemoveFlags = 1 << iota
	// RemovePropagate additionally invokes Remove on every registered
	// Dependent.
	RemovePropagate
)

// Store owns an ordered set of quantities, all sharing the same particle
// count N, partitioned into materials.
type Store struct {
	n          int
	quantities map[QuantityID]*quantity
	order      []QuantityID
	materials  []*Material
	attractors []Attractor
	dependents []Dependent
}

// NewStore allocates a store for len(counts) materials, the i-th owning
// counts[i] contiguous particles, and invokes each material's Create hook
// (which typically inserts Position/Mass and any material-specific
// quantities such as stress or damage).
func NewStore(counts []int, materials []*Material) (*Store, error) {
	if len(counts) != len(materials) {
		return nil, simerr.InvalidSetup("particle", "counts and materials length mismatch")
	}
	n := 0
	for _, c := range counts {
		n += c
	}
	s := &Store{n: n, quantities: make(map[QuantityID]*quantity)}
	lo := 0
	for i, m := range materials {
		hi := lo + counts[i]
		m.Range = vecmath.NewIndexSeq(lo, hi)
		s.materials = append(s.materials, m)
		lo = hi
	}
	for _, m := range s.materials {
		if m.Create != nil {
			if err := m.Create(s, m); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

func (s *Store) Count() int          { return s.n }
func (s *Store) Materials() []*Material { return s.materials }

func (s *Store) MaterialOf(i int) *Material {
	for _, m := range s.materials {
		if m.Range.Contains(i) {
			return m
		}
	}
	return nil
}

func (s *Store) Attractors() []Attractor           { return s.attractors }
func (s *Store) AddAttractor(a Attractor)          { s.attractors = append(s.attractors, a) }
func (s *Store) AddDependent(d Dependent)          { s.dependents = append(s.dependents, d) }

// Propagate invokes fn on every registered dependent store/side-channel.
func (s *Store) Propagate(fn func(Dependent)) {
	for _, d := range s.dependents {
		fn(d)
	}
}

func (s *Store) Has(id QuantityID) bool {
	_, ok := s.quantities[id]
	return ok
}

func (s *Store) Order(id QuantityID) (OrderEnum, bool) {
	q, ok := s.quantities[id]
	if !ok {
		return 0, false
	}
	return q.order, true
}

// QuantityIDs returns every registered quantity id in insertion order,
// which the derivative pipeline's deterministic reduction relies on.
func (s *Store) QuantityIDs() []QuantityID {
	out := make([]QuantityID, len(s.order))
	copy(out, s.order)
	return out
}

func valueTypeOf[T any]() (ValueType, bool) {
	var zero T
	switch any(zero).(type) {
	case float64:
		return ScalarValue, true
	case vecmath.Vec:
		return VectorValue, true
	case vecmath.Sym2:
		return Sym2Value, true
	case vecmath.Traceless2:
		return Traceless2Value, true
	case int:
		return IndexValue, true
	default:
		return 0, false
	}
}

// Insert creates a new quantity of the given order and type T, with initial
// values copied from values (len(values) must equal Count()). Re-inserting
// an existing id replaces it.
func Insert[T any](s *Store, id QuantityID, order OrderEnum, values []T) error {
	vt, ok := valueTypeOf[T]()
	if !ok {
		return simerr.InvalidSetup("particle", "unsupported quantity element type for %s", id)
	}
	if len(values) != s.n {
		return simerr.InvalidSetup("particle", "%s: expected %d values, got %d", id, s.n, len(values))
	}
	q := newQuantity(id, vt, order, s.n)
	copy(q.value.([]T), values)
	s.quantities[id] = q
	s.order = append(s.order, id)
	return nil
}

// InsertConst inserts a quantity with every particle set to the same value.
func InsertConst[T any](s *Store, id QuantityID, order OrderEnum, value T) error {
	vals := make([]T, s.n)
	for i := range vals {
		vals[i] = value
	}
	return Insert(s, id, order, vals)
}

// GetValue returns the value buffer of quantity id, typed as []T.
func GetValue[T any](s *Store, id QuantityID) ([]T, error) {
	q, ok := s.quantities[id]
	if !ok {
		return nil, fmt.Errorf("particle: no such quantity %s", id)
	}
	buf, ok := q.value.([]T)
	if !ok {
		return nil, fmt.Errorf("particle: %s stored as different type", id)
	}
	return buf, nil
}

// GetDt returns the first-derivative buffer; id must have Order >= First.
func GetDt[T any](s *Store, id QuantityID) ([]T, error) {
	q, ok := s.quantities[id]
	if !ok {
		return nil, fmt.Errorf("particle: no such quantity %s", id)
	}
	if q.order < OrderFirst {
		return nil, fmt.Errorf("particle: %s has no derivative (order zero)", id)
	}
	buf, ok := q.dt.([]T)
	if !ok {
		return nil, fmt.Errorf("particle: %s stored as different type", id)
	}
	return buf, nil
}

// GetD2t returns the second-derivative buffer; id must have Order == Second.
func GetD2t[T any](s *Store, id QuantityID) ([]T, error) {
	q, ok := s.quantities[id]
	if !ok {
		return nil, fmt.Errorf("particle: no such quantity %s", id)
	}
	if q.order < OrderSecond {
		return nil, fmt.Errorf("particle: %s has no second derivative", id)
	}
	buf, ok := q.d2t.([]T)
	if !ok {
		return nil, fmt.Errorf("particle: %s stored as different type", id)
	}
	return buf, nil
}

// MustGetValue panics on error; used at call sites that already validated
// the quantity's presence and type during setup.
func MustGetValue[T any](s *Store, id QuantityID) []T {
	v, err := GetValue[T](s, id)
	if err != nil {
		panic(err)
	}
	return v
}

// Velocity is the first derivative of Position; positions are always a
// second-order vector quantity, so velocity/acceleration
// are never independent quantities.
func Velocity(s *Store) []vecmath.Vec {
	v, err := GetDt[vecmath.Vec](s, Position)
	if err != nil {
		panic(err)
	}
	return v
}

// Acceleration is the second derivative of Position.
func Acceleration(s *Store) []vecmath.Vec {
	v, err := GetD2t[vecmath.Vec](s, Position)
	if err != nil {
		panic(err)
	}
	return v
}

// sortedUnique returns idxs sorted ascending with duplicates removed.
func sortedUnique(idxs []int) []int {
	out := append([]int(nil), idxs...)
	sort.Ints(out)
	j := 0
	for i, v := range out {
		if i == 0 || v != out[j-1] {
			out[j] = v
			j++
		}
	}
	return out[:j]
}

// Remove deletes the given particle indices from every quantity buffer
// atomically. An out-of-range index is a contract
// violation and panics.
func (s *Store) Remove(idxs []int, flags RemoveFlags) {
	if len(idxs) == 0 {
		return
	}
	sorted := idxs
	if flags&RemoveSorted == 0 {
		sorted = sortedUnique(idxs)
	}
	for _, i := range sorted {
		if i < 0 || i >= s.n {
			panic(fmt.Sprintf("particle: Remove index %d out of range [0,%d)", i, s.n))
		}
	}

	keep := make([]bool, s.n)
	for i := range keep {
		keep[i] = true
	}
	for _, i := range sorted {
		keep[i] = false
	}

	for _, id := range s.order {
		q := s.quantities[id]
		q.value = compact(q.valueType, q.value, keep)
		if q.dt != nil {
			q.dt = compact(q.valueType, q.dt, keep)
		}
		if q.d2t != nil {
			q.d2t = compact(q.valueType, q.d2t, keep)
		}
	}

	// Re-derive material ranges: count removed indices strictly before
	// each material's original bounds to re-base it.
	removedBefore := func(bound int) int {
		c := 0
		for _, i := range sorted {
			if i < bound {
				c++
			}
		}
		return c
	}
	for _, m := range s.materials {
		removedInside := 0
		for _, i := range sorted {
			if m.Range.Contains(i) {
				removedInside++
			}
		}
		newLo := m.Range.Lo - removedBefore(m.Range.Lo)
		newHi := m.Range.Hi - removedBefore(m.Range.Lo) - removedInside
		m.Range = vecmath.NewIndexSeq(newLo, newHi)
	}

	s.n -= len(sorted)

	if flags&RemovePropagate != 0 {
		s.Propagate(func(d Dependent) { d.Remove(sorted) })
	}
}

func compact(vt ValueType, buf any, keep []bool) any {
	switch vt {
	case ScalarValue:
		src := buf.([]float64)
		out := make([]float64, 0, len(src))
		for i, k := range keep {
			if k {
				out = append(out, src[i])
			}
		}
		return out
	case VectorValue:
		src := buf.([]vecmath.Vec)
		out := make([]vecmath.Vec, 0, len(src))
		for i, k := range keep {
			if k {
				out = append(out, src[i])
			}
		}
		return out
	case Sym2Value:
		src := buf.([]vecmath.Sym2)
		out := make([]vecmath.Sym2, 0, len(src))
		for i, k := range keep {
			if k {
				out = append(out, src[i])
			}
		}
		return out
	case Traceless2Value:
		src := buf.([]vecmath.Traceless2)
		out := make([]vecmath.Traceless2, 0, len(src))
		for i, k := range keep {
			if k {
				out = append(out, src[i])
			}
		}
		return out
	case IndexValue:
		src := buf.([]int)
		out := make([]int, 0, len(src))
		for i, k := range keep {
			if k {
				out = append(out, src[i])
			}
		}
		return out
	default:
		panic("particle: unknown value type in compact")
	}
}

func appendRows(vt ValueType, buf any, idxs []int) any {
	switch vt {
	case ScalarValue:
		src := buf.([]float64)
		for _, i := range idxs {
			src = append(src, src[i])
		}
		return src
	case VectorValue:
		src := buf.([]vecmath.Vec)
		for _, i := range idxs {
			src = append(src, src[i])
		}
		return src
	case Sym2Value:
		src := buf.([]vecmath.Sym2)
		for _, i := range idxs {
			src = append(src, src[i])
		}
		return src
	case Traceless2Value:
		src := buf.([]vecmath.Traceless2)
		for _, i := range idxs {
			src = append(src, src[i])
		}
		return src
	case IndexValue:
		src := buf.([]int)
		for _, i := range idxs {
			src = append(src, src[i])
		}
		return src
	default:
		panic("particle: unknown value type in appendRows")
	}
}

// Duplicate appends copies of the selected rows across every quantity and
// returns the new indices, used to spawn ghosts and periodic images.
func (s *Store) Duplicate(idxs []int) []int {
	newIdxs := make([]int, len(idxs))
	for k := range idxs {
		newIdxs[k] = s.n + k
	}
	for _, id := range s.order {
		q := s.quantities[id]
		q.value = appendRows(q.valueType, q.value, idxs)
		if q.dt != nil {
			q.dt = appendRows(q.valueType, q.dt, idxs)
		}
		if q.d2t != nil {
			q.d2t = appendRows(q.valueType, q.d2t, idxs)
		}
	}
	s.n += len(idxs)
	// Duplicated particles extend the last material's range; ghosts are
	// physically indistinguishable from their source for material lookup
	// purposes only through that material's parameter map, and the caller
	// is expected to override any quantity a ghost should differ in (e.g.
	// mirrored velocity) after Duplicate returns.
	if len(s.materials) > 0 {
		last := s.materials[len(s.materials)-1]
		last.Range = vecmath.NewIndexSeq(last.Range.Lo, last.Range.Hi+len(idxs))
	}
	return newIdxs
}

// Merge appends other's particles to s, requiring an identical quantity
// layout (same ids, types and orders); used to combine bodies into a
// single simulation.
func (s *Store) Merge(other *Store) error {
	if len(s.order) != len(other.order) {
		return simerr.InvalidSetup("particle", "merge: quantity layout mismatch (count)")
	}
	for _, id := range s.order {
		q, ok := s.quantities[id]
		if !ok {
			return simerr.InvalidSetup("particle", "merge: missing quantity %s", id)
		}
		oq, ok := other.quantities[id]
		if !ok {
			return simerr.InvalidSetup("particle", "merge: other store missing quantity %s", id)
		}
		if q.valueType != oq.valueType || q.order != oq.order {
			return simerr.InvalidSetup("particle", "merge: quantity %s layout mismatch", id)
		}
	}
	offset := s.n
	for _, id := range s.order {
		q := s.quantities[id]
		oq := other.quantities[id]
		q.value = concat(q.valueType, q.value, oq.value)
		if q.dt != nil {
			q.dt = concat(q.valueType, q.dt, oq.dt)
		}
		if q.d2t != nil {
			q.d2t = concat(q.valueType, q.d2t, oq.d2t)
		}
	}
	for _, m := range other.materials {
		shifted := &Material{
			Range:    m.Range.Shift(offset),
			Params:   m.Params,
			EOS:      m.EOS,
			Rheology: m.Rheology,
			DamageModel: m.DamageModel,
			Null:     m.Null,
		}
		s.materials = append(s.materials, shifted)
	}
	s.n += other.n
	return nil
}

func concat(vt ValueType, a, b any) any {
	switch vt {
	case ScalarValue:
		return append(a.([]float64), b.([]float64)...)
	case VectorValue:
		return append(a.([]vecmath.Vec), b.([]vecmath.Vec)...)
	case Sym2Value:
		return append(a.([]vecmath.Sym2), b.([]vecmath.Sym2)...)
	case Traceless2Value:
		return append(a.([]vecmath.Traceless2), b.([]vecmath.Traceless2)...)
	case IndexValue:
		return append(a.([]int), b.([]int)...)
	default:
		panic("particle: unknown value type in concat")
	}
}
