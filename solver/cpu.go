package solver

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/openfluke/yee/grid"
)

// CPU is the host reference backend. It applies the same stencil as the
// compute kernels, split over k-slabs, and serves as the oracle the device
// backends are checked against.
type CPU struct {
	g       grid.Grid
	fields  [len(grid.Components)][]float32
	coefs   *grid.Coefficients
	inv     [3]float32
	src     grid.Component
	srcIdx  int
	prb     grid.Component
	prbIdx  int
	workers int

	staged float32
	gate   StepGate
}

// NewCPU allocates zeroed fields for setup.
func NewCPU(setup *Setup) (*CPU, error) {
	g := setup.Grid
	if setup.Coefficients == nil || setup.Coefficients.Len() != g.Cells() {
		return nil, fmt.Errorf("coefficient maps do not match grid %s", g)
	}
	c := &CPU{
		g:       g,
		coefs:   setup.Coefficients,
		src:     setup.Source.Component,
		srcIdx:  setup.SourceIndex(),
		prb:     setup.Probe.Component,
		prbIdx:  setup.ProbeIndex(),
		workers: runtime.GOMAXPROCS(0),
	}
	c.inv[0], c.inv[1], c.inv[2] = g.InvSpacing()
	for i := range c.fields {
		c.fields[i] = make([]float32, g.Cells())
	}
	return c, nil
}

func (c *CPU) Inject(value float32) error {
	if err := c.gate.Ready(); err != nil {
		return err
	}
	c.fields[c.src][c.srcIdx] = value
	return nil
}

func (c *CPU) Step() error {
	if err := c.gate.Ready(); err != nil {
		return err
	}
	if err := c.slabs(c.updateH); err != nil {
		return err
	}
	if err := c.slabs(c.updateE); err != nil {
		return err
	}
	c.staged = c.fields[c.prb][c.prbIdx]
	c.gate.Begin()
	return nil
}

func (c *CPU) Probe(ctx context.Context) (float32, error) {
	if err := c.gate.Awaiting(); err != nil {
		return 0, err
	}
	if err := c.gate.Done(ctx.Err()); err != nil {
		return 0, err
	}
	return c.staged, nil
}

// Snapshot copies one field.
func (c *CPU) Snapshot(_ context.Context, comp grid.Component) ([]float32, error) {
	if err := c.gate.Ready(); err != nil {
		return nil, err
	}
	if !comp.Valid() {
		return nil, fmt.Errorf("invalid component %d", int(comp))
	}
	out := make([]float32, len(c.fields[comp]))
	copy(out, c.fields[comp])
	return out, nil
}

func (c *CPU) Close() error { return nil }

// slabs runs fn over disjoint k ranges in parallel. A half-step only
// writes the fields it does not read, so slabs never race.
func (c *CPU) slabs(fn func(k0, k1 int)) error {
	var g errgroup.Group
	g.SetLimit(c.workers)
	per := (c.g.Nz + c.workers - 1) / c.workers
	for k0 := 0; k0 < c.g.Nz; k0 += per {
		k1 := min(k0+per, c.g.Nz)
		g.Go(func() error {
			fn(k0, k1)
			return nil
		})
	}
	return g.Wait()
}

func (c *CPU) updateH(k0, k1 int) {
	nx, ny, nz := c.g.Nx, c.g.Ny, c.g.Nz
	sy, sz := nx, nx*ny
	ex, ey, ez := c.fields[grid.Ex], c.fields[grid.Ey], c.fields[grid.Ez]
	hx, hy, hz := c.fields[grid.Hx], c.fields[grid.Hy], c.fields[grid.Hz]
	cp, cq := c.coefs.CP, c.coefs.CQ
	idx, idy, idz := c.inv[0], c.inv[1], c.inv[2]

	for k := k0; k < k1; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				n := i + sy*j + sz*k
				ex0, ey0, ez0 := ex[n], ey[n], ez[n]

				var eyIP, ezIP, exJP, ezJP, exKP, eyKP float32
				if i+1 < nx {
					eyIP, ezIP = ey[n+1], ez[n+1]
				}
				if j+1 < ny {
					exJP, ezJP = ex[n+sy], ez[n+sy]
				}
				if k+1 < nz {
					exKP, eyKP = ex[n+sz], ey[n+sz]
				}

				curlX := (ezJP-ez0)*idy - (eyKP-ey0)*idz
				curlY := (exKP-ex0)*idz - (ezIP-ez0)*idx
				curlZ := (eyIP-ey0)*idx - (exJP-ex0)*idy

				hx[n] = cp[n]*hx[n] - cq[n]*curlX
				hy[n] = cp[n]*hy[n] - cq[n]*curlY
				hz[n] = cp[n]*hz[n] - cq[n]*curlZ
			}
		}
	}
}

func (c *CPU) updateE(k0, k1 int) {
	nx, ny := c.g.Nx, c.g.Ny
	sy, sz := nx, nx*ny
	ex, ey, ez := c.fields[grid.Ex], c.fields[grid.Ey], c.fields[grid.Ez]
	hx, hy, hz := c.fields[grid.Hx], c.fields[grid.Hy], c.fields[grid.Hz]
	ca, cb := c.coefs.CA, c.coefs.CB
	idx, idy, idz := c.inv[0], c.inv[1], c.inv[2]

	for k := k0; k < k1; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				n := i + sy*j + sz*k
				hx0, hy0, hz0 := hx[n], hy[n], hz[n]

				var hyIM, hzIM, hxJM, hzJM, hxKM, hyKM float32
				if i > 0 {
					hyIM, hzIM = hy[n-1], hz[n-1]
				}
				if j > 0 {
					hxJM, hzJM = hx[n-sy], hz[n-sy]
				}
				if k > 0 {
					hxKM, hyKM = hx[n-sz], hy[n-sz]
				}

				curlX := (hz0-hzJM)*idy - (hy0-hyKM)*idz
				curlY := (hx0-hxKM)*idz - (hz0-hzIM)*idx
				curlZ := (hy0-hyIM)*idx - (hx0-hxJM)*idy

				ex[n] = ca[n]*ex[n] + cb[n]*curlX
				ey[n] = ca[n]*ey[n] + cb[n]*curlY
				ez[n] = ca[n]*ez[n] + cb[n]*curlZ
			}
		}
	}
}
