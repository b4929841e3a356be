package solver

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/openfluke/yee/probe"
)

// Engine runs the time loop of one setup over one backend.
type Engine struct {
	setup   *Setup
	backend Backend
	sink    probe.Sink
	log     *zap.Logger
}

// NewEngine wires a backend to its sinks. A nil logger is replaced by a
// no-op logger.
func NewEngine(setup *Setup, backend Backend, log *zap.Logger, sinks ...probe.Sink) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		setup:   setup,
		backend: backend,
		sink:    probe.Multi(sinks),
		log:     log,
	}
}

// Run executes steps 0..Steps-1. Each step injects the source, dispatches
// both half-steps, waits for the probe value and emits it before the next
// injection. The first failure stops the run and is returned with its step.
func (e *Engine) Run(ctx context.Context) error {
	s := e.setup
	e.log.Info("simulation starting",
		zap.Stringer("grid", s.Grid),
		zap.Float64("dt", s.Dt),
		zap.Float64("courant", s.Courant),
		zap.Int("steps", s.Steps),
		zap.Stringer("source", s.Source.Point),
		zap.Stringer("probe", s.Probe.Point))

	start := time.Now()
	for n := 0; n < s.Steps; n++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("step %d: %w", n, err)
		}
		value, err := e.step(ctx, n)
		if err != nil {
			return fmt.Errorf("step %d: %w", n, err)
		}
		rec := probe.Record{Step: n, Time: float64(n) * s.Dt, Value: value}
		if err := e.sink.Write(rec); err != nil {
			return fmt.Errorf("step %d: emit: %w", n, err)
		}
	}

	e.log.Info("simulation complete",
		zap.Int("steps", s.Steps),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (e *Engine) step(ctx context.Context, n int) (float32, error) {
	if err := e.backend.Inject(e.setup.Source.Waveform.At(n)); err != nil {
		return 0, fmt.Errorf("inject: %w", err)
	}
	if err := e.backend.Step(); err != nil {
		return 0, fmt.Errorf("dispatch: %w", err)
	}
	v, err := e.backend.Probe(ctx)
	if err != nil {
		return 0, fmt.Errorf("readback: %w", err)
	}
	return v, nil
}
