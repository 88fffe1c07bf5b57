// Package boundary implements the boundary-condition handlers: ghost
// particles, fixed particles, frozen particles, periodic wrapping, a
// symmetric reflecting plane, and escaper removal. Every handler shares
// the Initialize/Finalize contract so internal/run can treat the
// configured list uniformly regardless of which handlers are active.
package boundary

import "github.com/astrophys-sim/impactcore/internal/particle"

// Handler is called once per step around the derivative/integration
// sequence: Initialize before derivatives are evaluated (it may add
// ghosts), Finalize after integration (it removes ghosts, clamps
// positions, or drops escapers).
type Handler interface {
	Initialize(s *particle.Store) error
	Finalize(s *particle.Store) error
}
