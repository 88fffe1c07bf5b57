package particle

import (
	"fmt"

	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

// quantity is the type-erased buffer set for one QuantityID: a value buffer
// plus, depending on Order, a first- and second-derivative buffer. The
// concrete element type is fixed at construction and enforced by the typed
// accessors in store.go (Get/GetDt/GetD2t), which fail rather than panic on
// a type mismatch — the "typed lookup that returns an error when the stored
// type differs".
type quantity struct {
	id        QuantityID
	valueType ValueType
	order     OrderEnum

	value any
	dt    any
	d2t   any
}

func zeroBuffer(vt ValueType, n int) any {
	switch vt {
	case ScalarValue:
		return make([]float64, n)
	case VectorValue:
		return make([]vecmath.Vec, n)
	case Sym2Value:
		return make([]vecmath.Sym2, n)
	case Traceless2Value:
		return make([]vecmath.Traceless2, n)
	case IndexValue:
		return make([]int, n)
	default:
		panic(fmt.Sprintf("particle: unknown value type %d", vt))
	}
}

func newQuantity(id QuantityID, vt ValueType, order OrderEnum, n int) *quantity {
	q := &quantity{id: id, valueType: vt, order: order, value: zeroBuffer(vt, n)}
	if order >= OrderFirst {
		q.dt = zeroBuffer(vt, n)
	}
	if order >= OrderSecond {
		q.d2t = zeroBuffer(vt, n)
	}
	return q
}

func bufferLen(vt ValueType, buf any) int {
	switch vt {
	case ScalarValue:
		return len(buf.([]float64))
	case VectorValue:
		return len(buf.([]vecmath.Vec))
	case Sym2Value:
		return len(buf.([]vecmath.Sym2))
	case Traceless2Value:
		return len(buf.([]vecmath.Traceless2))
	case IndexValue:
		return len(buf.([]int))
	default:
		return 0
	}
}

func (q *quantity) len() int { return bufferLen(q.valueType, q.value) }
