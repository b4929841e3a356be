//go:build opencl

package opencl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unsafe"

	"github.com/jgillich/go-opencl/cl"
	"go.uber.org/zap"

	"github.com/openfluke/yee/grid"
	"github.com/openfluke/yee/kernel"
	"github.com/openfluke/yee/solver"
)

// Solver is the OpenCL backend. Kernel argument i is contract binding i.
type Solver struct {
	context *cl.Context
	queue   *cl.CommandQueue
	program *cl.Program
	kernels [len(kernel.Halves)]*cl.Kernel
	fields  [len(grid.Components)]*cl.MemObject
	coefs   [4]*cl.MemObject
	params  *cl.MemObject

	grid    grid.Grid
	global  []int
	local   []int
	timeout time.Duration

	srcBuf *cl.MemObject
	srcOff int
	prbBuf *cl.MemObject
	prbOff int

	scratch    []float32
	gate       solver.StepGate
	deviceName string
}

var _ solver.Backend = (*Solver)(nil)
var _ solver.Snapshotter = (*Solver)(nil)

func pickDevice() (*cl.Device, error) {
	platforms, err := cl.GetPlatforms()
	if err != nil {
		msg := "querying OpenCL platforms"
		if strings.Contains(err.Error(), "-1001") {
			msg += ": no ICD loader reported any platforms; install OpenCL drivers and verify with `clinfo`"
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrNoDevice, msg, err)
	}
	for _, typ := range []cl.DeviceType{cl.DeviceTypeGPU, cl.DeviceTypeCPU} {
		for _, p := range platforms {
			devices, derr := p.GetDevices(typ)
			if derr != nil && derr != cl.ErrDeviceNotFound {
				continue
			}
			if len(devices) > 0 {
				return devices[0], nil
			}
		}
	}
	return nil, ErrNoDevice
}

// New builds the program, uploads zeroed fields, coefficients and params,
// and binds both kernels. Anything created before a failure is released.
func New(setup *solver.Setup, timeout time.Duration, log *zap.Logger) (*Solver, error) {
	if log == nil {
		log = zap.NewNop()
	}
	device, err := pickDevice()
	if err != nil {
		return nil, err
	}
	p, err := kernel.NewParams(setup.Grid)
	if err != nil {
		return nil, err
	}

	g, wg := setup.Grid, setup.Workgroup
	x, y, z := wg.Counts(p)
	s := &Solver{
		grid:       g,
		global:     []int{int(x * wg.X), int(y * wg.Y), int(z * wg.Z)},
		local:      []int{int(wg.X), int(wg.Y), int(wg.Z)},
		timeout:    timeout,
		scratch:    make([]float32, 1),
		deviceName: device.Name(),
	}

	s.context, err = cl.CreateContext([]*cl.Device{device})
	if err != nil {
		return nil, fmt.Errorf("creating OpenCL context: %w", err)
	}
	s.queue, err = s.context.CreateCommandQueue(device, 0)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating OpenCL command queue: %w", err)
	}
	s.program, err = s.context.CreateProgramWithSource([]string{kernel.OpenCL()})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating OpenCL program: %w", err)
	}
	if err := s.program.BuildProgram([]*cl.Device{device}, ""); err != nil {
		s.Close()
		var buildErr cl.BuildError
		if errors.As(err, &buildErr) {
			return nil, fmt.Errorf("%w: building OpenCL program: %s", kernel.ErrShader, string(buildErr))
		}
		return nil, fmt.Errorf("%w: building OpenCL program: %v", kernel.ErrShader, err)
	}
	for i, h := range kernel.Halves {
		if s.kernels[i], err = s.program.CreateKernel(h.String()); err != nil {
			s.Close()
			return nil, fmt.Errorf("%w: creating kernel %s: %v", kernel.ErrLayoutMismatch, h, err)
		}
	}

	if err := s.allocate(setup.Coefficients, p); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.bind(); err != nil {
		s.Close()
		return nil, err
	}

	s.srcBuf, s.srcOff = s.fields[setup.Source.Component], setup.SourceIndex()*4
	s.prbBuf, s.prbOff = s.fields[setup.Probe.Component], setup.ProbeIndex()*4

	log.Info("opencl solver ready",
		zap.String("device", s.deviceName),
		zap.Stringer("grid", g),
		zap.Ints("global", s.global),
		zap.Ints("local", s.local))
	return s, nil
}

func (s *Solver) allocate(coefs *grid.Coefficients, p kernel.Params) error {
	n := s.grid.Cells()
	if coefs.Len() != n {
		return fmt.Errorf("coefficient maps hold %d cells, grid has %d", coefs.Len(), n)
	}
	byteSize := n * int(unsafe.Sizeof(float32(0)))
	zeros := make([]float32, n)

	var err error
	for _, comp := range grid.Components {
		if s.fields[comp], err = s.context.CreateEmptyBuffer(cl.MemReadWrite, byteSize); err != nil {
			return fmt.Errorf("allocating %s buffer: %w", comp, err)
		}
		if _, err := s.queue.EnqueueWriteBufferFloat32(s.fields[comp], true, 0, zeros, nil); err != nil {
			return fmt.Errorf("clearing %s buffer: %w", comp, err)
		}
	}

	maps := [4][]float32{kernel.CA: coefs.CA, kernel.CB: coefs.CB, kernel.CP: coefs.CP, kernel.CQ: coefs.CQ}
	for i, data := range maps {
		if s.coefs[i], err = s.context.CreateEmptyBuffer(cl.MemReadOnly, byteSize); err != nil {
			return fmt.Errorf("allocating %s buffer: %w", kernel.Coef(i), err)
		}
		if _, err := s.queue.EnqueueWriteBufferFloat32(s.coefs[i], true, 0, data, nil); err != nil {
			return fmt.Errorf("writing %s buffer: %w", kernel.Coef(i), err)
		}
	}

	raw := p.Bytes()
	if s.params, err = s.context.CreateEmptyBuffer(cl.MemReadOnly, len(raw)); err != nil {
		return fmt.Errorf("allocating params buffer: %w", err)
	}
	if _, err := s.queue.EnqueueWriteBuffer(s.params, true, 0, len(raw), unsafe.Pointer(&raw[0]), nil); err != nil {
		return fmt.Errorf("writing params buffer: %w", err)
	}
	return nil
}

// bind sets every kernel argument once from the binding plan.
func (s *Solver) bind() error {
	for i, h := range kernel.Halves {
		plan := kernel.PlanFor(h)
		if err := plan.Validate(); err != nil {
			return err
		}
		for j, r := range plan.Resources {
			if err := s.kernels[i].SetArgBuffer(j, s.resolve(r)); err != nil {
				return fmt.Errorf("%w: %s arg %d (%s): %v", kernel.ErrLayoutMismatch, h, j, r.Name(), err)
			}
		}
	}
	return nil
}

func (s *Solver) resolve(r kernel.Resource) *cl.MemObject {
	switch r.Role {
	case kernel.RoleParams:
		return s.params
	case kernel.RoleCoefficient:
		return s.coefs[r.Coef]
	}
	return s.fields[r.Field]
}

func (s *Solver) Inject(value float32) error {
	if err := s.gate.Ready(); err != nil {
		return err
	}
	if _, err := s.queue.EnqueueWriteBufferFloat32(s.srcBuf, true, s.srcOff, []float32{value}, nil); err != nil {
		return fmt.Errorf("writing source cell: %w", err)
	}
	return nil
}

// Step enqueues both kernels and a non-blocking read of the probe cell.
// The in-order queue keeps H, E and the read in sequence.
func (s *Solver) Step() error {
	if err := s.gate.Ready(); err != nil {
		return err
	}
	for i, h := range kernel.Halves {
		if _, err := s.queue.EnqueueNDRangeKernel(s.kernels[i], nil, s.global, s.local, nil); err != nil {
			return fmt.Errorf("enqueueing %s: %w", h, err)
		}
	}
	if _, err := s.queue.EnqueueReadBufferFloat32(s.prbBuf, false, s.prbOff, s.scratch, nil); err != nil {
		return fmt.Errorf("reading probe cell: %w", err)
	}
	if err := s.queue.Flush(); err != nil {
		return fmt.Errorf("flushing queue: %w", err)
	}
	s.gate.Begin()
	return nil
}

// Probe drains the queue and returns the probe word.
func (s *Solver) Probe(ctx context.Context) (float32, error) {
	if err := s.gate.Awaiting(); err != nil {
		return 0, err
	}
	if err := s.gate.Done(s.finish(ctx)); err != nil {
		return 0, err
	}
	return s.scratch[0], nil
}

// finish waits for the queue. clFinish cannot be interrupted, so a hung
// device leaves the waiting goroutine behind; the run is over by then.
func (s *Solver) finish(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- s.queue.Finish() }()

	deadline := time.NewTimer(s.timeout)
	defer deadline.Stop()
	select {
	case err := <-done:
		return err
	case <-deadline.C:
		return fmt.Errorf("%w after %s", ErrTimeout, s.timeout)
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
	}
}

// Snapshot reads a whole field back between steps.
func (s *Solver) Snapshot(ctx context.Context, comp grid.Component) ([]float32, error) {
	if err := s.gate.Ready(); err != nil {
		return nil, err
	}
	if !comp.Valid() {
		return nil, fmt.Errorf("invalid component %d", int(comp))
	}
	out := make([]float32, s.grid.Cells())
	if _, err := s.queue.EnqueueReadBufferFloat32(s.fields[comp], false, 0, out, nil); err != nil {
		return nil, fmt.Errorf("reading %s: %w", comp, err)
	}
	if err := s.gate.Done(s.finish(ctx)); err != nil {
		return nil, err
	}
	return out, nil
}

// DeviceName is the OpenCL device in use.
func (s *Solver) DeviceName() string { return s.deviceName }

// Close releases buffers, kernels, program, queue and context in that order.
func (s *Solver) Close() error {
	if s.params != nil {
		s.params.Release()
		s.params = nil
	}
	for i, b := range s.coefs {
		if b != nil {
			b.Release()
			s.coefs[i] = nil
		}
	}
	for i, b := range s.fields {
		if b != nil {
			b.Release()
			s.fields[i] = nil
		}
	}
	for i, k := range s.kernels {
		if k != nil {
			k.Release()
			s.kernels[i] = nil
		}
	}
	if s.program != nil {
		s.program.Release()
		s.program = nil
	}
	if s.queue != nil {
		s.queue.Release()
		s.queue = nil
	}
	if s.context != nil {
		s.context.Release()
		s.context = nil
	}
	return nil
}
