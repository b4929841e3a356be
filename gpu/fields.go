package gpu

import (
	"fmt"

	"github.com/openfluke/webgpu/wgpu"

	"github.com/openfluke/yee/grid"
	"github.com/openfluke/yee/kernel"
)

const (
	fieldUsage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc
	coefUsage  = wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
)

// FieldStore owns every device buffer of a run: the six fields, the four
// coefficient maps, the params uniform and the one-word probe staging
// buffer. Nothing outside the store and its bind groups holds them.
type FieldStore struct {
	Grid grid.Grid

	fields  [len(grid.Components)]*wgpu.Buffer
	coefs   [4]*wgpu.Buffer
	params  *wgpu.Buffer
	staging *wgpu.Buffer
}

// NewFieldStore uploads zeroed fields, the coefficient maps and params.
func NewFieldStore(c *Context, g grid.Grid, coefs *grid.Coefficients) (*FieldStore, error) {
	if coefs.Len() != g.Cells() {
		return nil, fmt.Errorf("coefficient maps hold %d cells, grid has %d", coefs.Len(), g.Cells())
	}
	p, err := kernel.NewParams(g)
	if err != nil {
		return nil, err
	}

	s := &FieldStore{Grid: g}
	zeros := make([]float32, g.Cells())
	for _, comp := range grid.Components {
		s.fields[comp], err = c.NewFloatBuffer(comp.String(), zeros, fieldUsage)
		if err != nil {
			s.Release()
			return nil, err
		}
	}

	maps := [4][]float32{kernel.CA: coefs.CA, kernel.CB: coefs.CB, kernel.CP: coefs.CP, kernel.CQ: coefs.CQ}
	for i, data := range maps {
		s.coefs[i], err = c.NewFloatBuffer(kernel.Coef(i).String(), data, coefUsage)
		if err != nil {
			s.Release()
			return nil, err
		}
	}

	s.params, err = c.NewBytesBuffer("params", p.Bytes(), wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	if err != nil {
		s.Release()
		return nil, err
	}

	s.staging, err = c.NewStagingBuffer("readback", 4)
	if err != nil {
		s.Release()
		return nil, err
	}
	return s, nil
}

// Field returns the buffer of one component.
func (s *FieldStore) Field(comp grid.Component) *wgpu.Buffer { return s.fields[comp] }

// Staging is the one-word probe readback buffer.
func (s *FieldStore) Staging() *wgpu.Buffer { return s.staging }

// Resolve maps a binding-plan resource to its buffer.
func (s *FieldStore) Resolve(r kernel.Resource) *wgpu.Buffer {
	switch r.Role {
	case kernel.RoleParams:
		return s.params
	case kernel.RoleCoefficient:
		return s.coefs[r.Coef]
	}
	return s.fields[r.Field]
}

// Release destroys every buffer the store created.
func (s *FieldStore) Release() {
	for i, b := range s.fields {
		if b != nil {
			b.Destroy()
			s.fields[i] = nil
		}
	}
	for i, b := range s.coefs {
		if b != nil {
			b.Destroy()
			s.coefs[i] = nil
		}
	}
	if s.params != nil {
		s.params.Destroy()
		s.params = nil
	}
	if s.staging != nil {
		s.staging.Destroy()
		s.staging = nil
	}
}
