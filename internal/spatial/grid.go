package spatial

import (
	"math"

	"github.com/astrophys-sim/impactcore/internal/vecmath"
)

// Grid is a uniform linked-list spatial hash: particles are bucketed into
// cubic cells of a fixed side length, and a range query walks every cell
// that could possibly overlap the query ball. Cheap to build, good when
// particle density is roughly uniform; degrades to a full scan when a
// handful of cells hold most particles. Grounded on the cell-bucketing
// idiom of akmonengine-feather's spatialgrid.go and andewx-dieselsph's
// spatial.go, generalized from 2-D to 3-D and from fixed-radius insertion
// to a caller-supplied per-query radius.
type Grid struct {
	cellSize float64

	positions []vecmath.Vec
	origin    vecmath.Vec

	dims  [3]int
	cells map[[3]int][]int
}

// NewGrid builds a grid whose cell side is cellSize; cellSize should be at
// least the largest radius any query will use, so a query never has to
// look beyond the 3x3x3 block of cells centered on it.
func NewGrid(cellSize float64) *Grid {
	if cellSize <= 0 {
		cellSize = 1
	}
	return &Grid{cellSize: cellSize}
}

func (g *Grid) Build(positions []vecmath.Vec) {
	g.positions = positions
	g.cells = make(map[[3]int][]int, len(positions))
	if len(positions) == 0 {
		return
	}
	minX, minY, minZ := positions[0].X(), positions[0].Y(), positions[0].Z()
	for _, p := range positions {
		minX = math.Min(minX, p.X())
		minY = math.Min(minY, p.Y())
		minZ = math.Min(minZ, p.Z())
	}
	g.origin = vecmath.V(minX, minY, minZ)

	for idx, p := range positions {
		cell := g.cellOf(p)
		g.cells[cell] = append(g.cells[cell], idx)
	}
}

func (g *Grid) cellOf(p vecmath.Vec) [3]int {
	return [3]int{
		int(math.Floor((p.X() - g.origin.X()) / g.cellSize)),
		int(math.Floor((p.Y() - g.origin.Y()) / g.cellSize)),
		int(math.Floor((p.Z() - g.origin.Z()) / g.cellSize)),
	}
}

func (g *Grid) FindAll(i int, r float64, out []Neighbor) []Neighbor {
	return g.query(i, r, nil, out)
}

func (g *Grid) FindLowerRank(i int, r float64, less RankLess, out []Neighbor) []Neighbor {
	return g.query(i, r, less, out)
}

func (g *Grid) query(i int, r float64, less RankLess, out []Neighbor) []Neighbor {
	if len(g.positions) == 0 {
		return out
	}
	pi := g.positions[i]
	cell := g.cellOf(pi)
	reach := int(math.Ceil(r / g.cellSize))
	rSq := r * r

	for dx := -reach; dx <= reach; dx++ {
		for dy := -reach; dy <= reach; dy++ {
			for dz := -reach; dz <= reach; dz++ {
				bucket, ok := g.cells[[3]int{cell[0] + dx, cell[1] + dy, cell[2] + dz}]
				if !ok {
					continue
				}
				for _, j := range bucket {
					if j == i {
						continue
					}
					if less != nil && !less(j, i) {
						continue
					}
					d2 := vecmath.DistSq(pi, g.positions[j])
					if d2 <= rSq {
						out = append(out, Neighbor{Index: j, DistSq: d2})
					}
				}
			}
		}
	}
	return out
}
