package solver

import (
	"context"
	"errors"

	"github.com/openfluke/yee/grid"
)

// ErrStepPending is returned when Inject or Step is called before the
// previous step's probe value was read.
var ErrStepPending = errors.New("previous step not yet read back")

// Backend advances the six fields of one run. Calls follow the cycle
// Inject, Step, Probe; a backend has at most one step in flight.
type Backend interface {
	// Inject overwrites the source cell with value.
	Inject(value float32) error
	// Step runs the H half-step, then the E half-step, then stages the
	// probe cell for readback.
	Step() error
	// Probe blocks until the staged probe value of the last Step is on the
	// host. ctx bounds the wait together with the backend's own timeout.
	Probe(ctx context.Context) (float32, error)
	// Close releases every resource the backend holds.
	Close() error
}

// Snapshotter is implemented by backends that can copy a whole field to
// the host between steps.
type Snapshotter interface {
	Snapshot(ctx context.Context, c grid.Component) ([]float32, error)
}
