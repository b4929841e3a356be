//go:build !opencl

package opencl

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/openfluke/yee/grid"
	"github.com/openfluke/yee/solver"
)

// Solver is unavailable without the opencl build tag.
type Solver struct{}

// New always fails with ErrUnavailable.
func New(*solver.Setup, time.Duration, *zap.Logger) (*Solver, error) {
	return nil, ErrUnavailable
}

func (s *Solver) Inject(float32) error                  { return ErrUnavailable }
func (s *Solver) Step() error                            { return ErrUnavailable }
func (s *Solver) Probe(context.Context) (float32, error) { return 0, ErrUnavailable }
func (s *Solver) Close() error                           { return nil }
func (s *Solver) DeviceName() string                     { return "" }

func (s *Solver) Snapshot(context.Context, grid.Component) ([]float32, error) {
	return nil, ErrUnavailable
}
