package derivative

import (
	"fmt"

	"github.com/astrophys-sim/impactcore/internal/particle"
	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

// accumulator collects per-particle contributions into plain slices sized
// once for the store's current particle count. Holder.Evaluate runs its
// sweep sequentially into a single accumulator (there are no per-thread
// buffers), so one buffer per output id gives a deterministic result;
// reduce() walks ids in the store's registration order.
type accumulator struct {
	n       int
	scalars map[particle.QuantityID][]float64
	vectors map[particle.QuantityID][]vecmath.Vec
	tensors map[particle.QuantityID][]vecmath.Traceless2
}

func newAccumulator(s *particle.Store) *accumulator {
	return &accumulator{
		n:       s.Count(),
		scalars: make(map[particle.QuantityID][]float64),
		vectors: make(map[particle.QuantityID][]vecmath.Vec),
		tensors: make(map[particle.QuantityID][]vecmath.Traceless2),
	}
}

func (a *accumulator) AddScalar(id particle.QuantityID, i int, v float64) {
	buf, ok := a.scalars[id]
	if !ok {
		buf = make([]float64, a.n)
		a.scalars[id] = buf
	}
	buf[i] += v
}

func (a *accumulator) AddVector(id particle.QuantityID, i int, v vecmath.Vec) {
	buf, ok := a.vectors[id]
	if !ok {
		buf = make([]vecmath.Vec, a.n)
		a.vectors[id] = buf
	}
	buf[i] = buf[i].AddH(v)
}

func (a *accumulator) AddTraceless(id particle.QuantityID, i int, v vecmath.Traceless2) {
	buf, ok := a.tensors[id]
	if !ok {
		buf = make([]vecmath.Traceless2, a.n)
		a.tensors[id] = buf
	}
	buf[i] = buf[i].Add(v)
}

// reduce writes every accumulated buffer into the store's derivative
// buffers, in a fixed order (registration order of the store's ids) so
// repeated runs on identical input reduce bit-for-bit identically.
func (a *accumulator) reduce(s *particle.Store) error {
	for _, id := range s.QuantityIDs() {
		if buf, ok := a.scalars[id]; ok {
			if err := writeDt(s, id, buf); err != nil {
				return err
			}
		}
		if buf, ok := a.vectors[id]; ok {
			if err := writeDtVec(s, id, buf); err != nil {
				return err
			}
		}
		if buf, ok := a.tensors[id]; ok {
			if err := writeDtTraceless(s, id, buf); err != nil {
				return err
			}
		}
	}
	return nil
}

// highestOrderTarget reports whether contributions for id go into the
// second derivative buffer (order-2 quantities such as Position, whose
// force terms write acceleration) or the first (everything else).
func highestOrderTarget(s *particle.Store, id particle.QuantityID) (bool, error) {
	order, ok := s.Order(id)
	if !ok {
		return false, fmt.Errorf("derivative: no such quantity %s", id)
	}
	return order == particle.OrderSecond, nil
}

func writeDt(s *particle.Store, id particle.QuantityID, contrib []float64) error {
	second, err := highestOrderTarget(s, id)
	if err != nil {
		return err
	}
	if second {
		d2t, err := particle.GetD2t[float64](s, id)
		if err != nil {
			return err
		}
		for i, v := range contrib {
			d2t[i] += v
		}
		return nil
	}
	dt, err := particle.GetDt[float64](s, id)
	if err != nil {
		return err
	}
	for i, v := range contrib {
		dt[i] += v
	}
	return nil
}

func writeDtVec(s *particle.Store, id particle.QuantityID, contrib []vecmath.Vec) error {
	second, err := highestOrderTarget(s, id)
	if err != nil {
		return err
	}
	if second {
		d2t, err := particle.GetD2t[vecmath.Vec](s, id)
		if err != nil {
			return err
		}
		for i, v := range contrib {
			d2t[i] = d2t[i].AddH(v)
		}
		return nil
	}
	dt, err := particle.GetDt[vecmath.Vec](s, id)
	if err != nil {
		return err
	}
	for i, v := range contrib {
		dt[i] = dt[i].AddH(v)
	}
	return nil
}

func writeDtTraceless(s *particle.Store, id particle.QuantityID, contrib []vecmath.Traceless2) error {
	dt, err := particle.GetDt[vecmath.Traceless2](s, id)
	if err != nil {
		return err
	}
	for i, v := range contrib {
		dt[i] = dt[i].Add(v)
	}
	return nil
}
