package gpu

import (
	"fmt"

	"github.com/openfluke/webgpu/wgpu"

	"github.com/openfluke/yee/kernel"
)

// Pipelines holds the two half-step kernels compiled against one shared
// bind group layout.
type Pipelines struct {
	Layout    *wgpu.BindGroupLayout
	Workgroup kernel.Workgroup

	pipelineLayout *wgpu.PipelineLayout
	compute        [len(kernel.Halves)]*wgpu.ComputePipeline
}

// bindGroupLayoutEntries renders kernel.Contract as WebGPU layout entries.
func bindGroupLayoutEntries() []wgpu.BindGroupLayoutEntry {
	entries := make([]wgpu.BindGroupLayoutEntry, len(kernel.Contract))
	for i, slot := range kernel.Contract {
		typ := wgpu.BufferBindingTypeReadOnlyStorage
		switch slot.Role {
		case kernel.RoleParams:
			typ = wgpu.BufferBindingTypeUniform
		case kernel.RoleOutput:
			typ = wgpu.BufferBindingTypeStorage
		}
		entries[i] = wgpu.BindGroupLayoutEntry{
			Binding:    slot.Binding,
			Visibility: wgpu.ShaderStageCompute,
			Buffer:     wgpu.BufferBindingLayout{Type: typ},
		}
	}
	return entries
}

// NewPipelines verifies both generated kernels against the contract, then
// builds the shared layout and the two compute pipelines. A layout mismatch
// fails here, never at dispatch.
func NewPipelines(c *Context, wg kernel.Workgroup) (*Pipelines, error) {
	sources := make([]string, len(kernel.Halves))
	for i, h := range kernel.Halves {
		sources[i] = kernel.WGSL(h, wg)
		if err := kernel.Verify(sources[i], wg); err != nil {
			return nil, fmt.Errorf("%s: %w", h, err)
		}
	}

	p := &Pipelines{Workgroup: wg}
	var err error
	// Explicit layout so both pipelines accept either bind group.
	p.Layout, err = c.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "fdtd_bgl",
		Entries: bindGroupLayoutEntries(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create bind group layout: %v", kernel.ErrLayoutMismatch, err)
	}

	p.pipelineLayout, err = c.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "fdtd_pl",
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.Layout},
	})
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("%w: create pipeline layout: %v", kernel.ErrLayoutMismatch, err)
	}

	for i, h := range kernel.Halves {
		module, err := c.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
			Label:          h.String(),
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: sources[i]},
		})
		if err != nil {
			p.Release()
			return nil, fmt.Errorf("%w: %s: shader compile: %v", kernel.ErrShader, h, err)
		}
		p.compute[i], err = c.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
			Label:  "pipeline_" + h.String(),
			Layout: p.pipelineLayout,
			Compute: wgpu.ProgrammableStageDescriptor{
				Module:     module,
				EntryPoint: kernel.EntryPoint,
			},
		})
		module.Release()
		if err != nil {
			p.Release()
			return nil, fmt.Errorf("%w: %s: pipeline create: %v", kernel.ErrLayoutMismatch, h, err)
		}
	}
	return p, nil
}

// Pipeline returns the compute pipeline of a half-step.
func (p *Pipelines) Pipeline(h kernel.Half) *wgpu.ComputePipeline { return p.compute[h] }

// Release frees the pipelines and layouts.
func (p *Pipelines) Release() {
	for i, cp := range p.compute {
		if cp != nil {
			cp.Release()
			p.compute[i] = nil
		}
	}
	if p.pipelineLayout != nil {
		p.pipelineLayout.Release()
		p.pipelineLayout = nil
	}
	if p.Layout != nil {
		p.Layout.Release()
		p.Layout = nil
	}
}
