// Package spatial implements the neighbor-finding substrate: a uniform
// grid, a k-d tree and a bounding-sphere BVH, all sharing a
// common range-query contract used both for SPH kernel sums and for
// collision search.
package spatial

import "github.com/astrophys-sim/impactcore/internal/vecmath"

// Neighbor is one hit of a range query: the neighbor's index and squared
// distance from the query point.
type Neighbor struct {
	Index int
	DistSq float64
}

// RankLess is a strict partial order over particle indices, used by
// FindLowerRank so that a symmetric pairwise loop visits each pair exactly
// once (a "rank filter").
type RankLess func(i, j int) bool

// Finder is the common contract of every neighbor-finding structure.
// Build becomes the finder's ground truth until the next Build; queries
// never mutate the finder and are safe to call concurrently from distinct
// goroutines. No finder sees the smoothing length h — the caller supplies
// the physical search radius (typically eta*h).
type Finder interface {
	Build(positions []vecmath.Vec)
	// FindAll appends to out every neighbor j (j != i) with
	// |positions[j]-positions[i]| <= r, and returns the extended slice.
	FindAll(i int, r float64, out []Neighbor) []Neighbor
	// FindLowerRank behaves like FindAll but only returns neighbors j for
	// which less(j, i) holds, i.e. j has strictly lower rank than i.
	FindLowerRank(i int, r float64, less RankLess, out []Neighbor) []Neighbor
}
