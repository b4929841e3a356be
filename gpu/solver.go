package gpu

import (
	"context"
	"fmt"
	"time"

	"github.com/openfluke/webgpu/wgpu"
	"go.uber.org/zap"

	"github.com/openfluke/yee/grid"
	"github.com/openfluke/yee/kernel"
	"github.com/openfluke/yee/solver"
)

// Solver is the WebGPU backend: both kernels, the field store and the two
// bind groups, all created once and reused every step.
type Solver struct {
	ctx     *Context
	grid    grid.Grid
	pipes   *Pipelines
	store   *FieldStore
	binds   *BindingSets
	counts  [3]uint32
	timeout time.Duration

	srcBuf *wgpu.Buffer
	srcOff uint64
	prbBuf *wgpu.Buffer
	prbOff uint64

	gate solver.StepGate
}

var _ solver.Backend = (*Solver)(nil)
var _ solver.Snapshotter = (*Solver)(nil)

// NewSolver checks the run fits the device, then builds pipelines, buffers
// and bind groups in that order. Anything built before a failure is
// released.
func NewSolver(c *Context, setup *solver.Setup, timeout time.Duration) (*Solver, error) {
	g, wg := setup.Grid, setup.Workgroup
	if c.Report != nil {
		if err := c.Report.Limits.Fits(g, wg); err != nil {
			return nil, err
		}
	}
	p, err := kernel.NewParams(g)
	if err != nil {
		return nil, err
	}

	s := &Solver{ctx: c, grid: g, timeout: timeout}
	s.counts[0], s.counts[1], s.counts[2] = wg.Counts(p)

	if s.pipes, err = NewPipelines(c, wg); err != nil {
		return nil, err
	}
	if s.store, err = NewFieldStore(c, g, setup.Coefficients); err != nil {
		s.Close()
		return nil, err
	}
	if s.binds, err = NewBindingSets(c, s.pipes.Layout, s.store); err != nil {
		s.Close()
		return nil, err
	}

	s.srcBuf = s.store.Field(setup.Source.Component)
	s.srcOff = uint64(setup.SourceIndex()) * 4
	s.prbBuf = s.store.Field(setup.Probe.Component)
	s.prbOff = uint64(setup.ProbeIndex()) * 4

	c.log.Info("webgpu solver ready",
		zap.Stringer("grid", g),
		zap.Stringer("workgroup", wg),
		zap.Uint32s("dispatch", s.counts[:]),
		zap.Uint64("field_bytes", g.Bytes()))
	return s, nil
}

// Inject queues a write of value into the source cell. Queue writes are
// ordered before the next submit, so the following H pass sees it.
func (s *Solver) Inject(value float32) error {
	if err := s.gate.Ready(); err != nil {
		return err
	}
	s.ctx.Queue.WriteBuffer(s.srcBuf, s.srcOff, wgpu.ToBytes([]float32{value}))
	return nil
}

// Step encodes the H pass, the E pass and the probe copy into one command
// buffer and submits it.
func (s *Solver) Step() error {
	if err := s.gate.Ready(); err != nil {
		return err
	}
	enc, err := s.ctx.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	for _, h := range kernel.Halves {
		pass := enc.BeginComputePass(nil)
		pass.SetPipeline(s.pipes.Pipeline(h))
		pass.SetBindGroup(0, s.binds.Group(h), nil)
		pass.DispatchWorkgroups(s.counts[0], s.counts[1], s.counts[2])
		pass.End()
	}
	enc.CopyBufferToBuffer(s.prbBuf, s.prbOff, s.store.Staging(), 0, 4)

	cmd, err := enc.Finish(nil)
	if err != nil {
		return fmt.Errorf("command encoder finish: %w", err)
	}
	s.ctx.Queue.Submit(cmd)
	s.gate.Begin()
	return nil
}

// Probe maps the staging word and returns it. A failed map leaves the
// staging buffer's request outstanding, so the solver refuses further work.
func (s *Solver) Probe(ctx context.Context) (float32, error) {
	if err := s.gate.Awaiting(); err != nil {
		return 0, err
	}
	out, err := s.ctx.mapRead(ctx, s.store.Staging(), 4, s.timeout)
	if err := s.gate.Done(err); err != nil {
		return 0, err
	}
	return out[0], nil
}

// Snapshot reads a whole field back. Only valid between steps.
func (s *Solver) Snapshot(ctx context.Context, comp grid.Component) ([]float32, error) {
	if err := s.gate.Ready(); err != nil {
		return nil, err
	}
	if !comp.Valid() {
		return nil, fmt.Errorf("invalid component %d", int(comp))
	}
	out, err := s.ctx.ReadBuffer(ctx, s.store.Field(comp), s.grid.Cells(), s.timeout)
	if err := s.gate.Done(err); err != nil {
		return nil, err
	}
	return out, nil
}

// Close releases bind groups, buffers and pipelines in reverse order of
// creation. The Context stays open.
func (s *Solver) Close() error {
	if s.binds != nil {
		s.binds.Release()
		s.binds = nil
	}
	if s.store != nil {
		s.store.Release()
		s.store = nil
	}
	if s.pipes != nil {
		s.pipes.Release()
		s.pipes = nil
	}
	return nil
}
