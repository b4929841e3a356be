package gpu

import (
	"fmt"

	"github.com/openfluke/webgpu/wgpu"

	"github.com/openfluke/yee/kernel"
)

// BindingSets are the two bind groups built once before the time loop:
// H reads E and writes H with CP/CQ, E reads H and writes E with CA/CB.
type BindingSets struct {
	groups [len(kernel.Halves)]*wgpu.BindGroup
}

// NewBindingSets realises kernel.PlanFor for both halves against the store.
func NewBindingSets(c *Context, layout *wgpu.BindGroupLayout, store *FieldStore) (*BindingSets, error) {
	b := &BindingSets{}
	for i, h := range kernel.Halves {
		plan := kernel.PlanFor(h)
		if err := plan.Validate(); err != nil {
			b.Release()
			return nil, err
		}
		entries := make([]wgpu.BindGroupEntry, len(plan.Resources))
		for j, r := range plan.Resources {
			buf := store.Resolve(r)
			entries[j] = wgpu.BindGroupEntry{
				Binding: kernel.Contract[j].Binding,
				Buffer:  buf,
				Size:    buf.GetSize(),
			}
		}
		var err error
		b.groups[i], err = c.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   "bg_" + h.String(),
			Layout:  layout,
			Entries: entries,
		})
		if err != nil {
			b.Release()
			return nil, fmt.Errorf("create bind group %s: %w", h, err)
		}
	}
	return b, nil
}

// Group returns the bind group of a half-step.
func (b *BindingSets) Group(h kernel.Half) *wgpu.BindGroup { return b.groups[h] }

// Release frees both bind groups.
func (b *BindingSets) Release() {
	for i, g := range b.groups {
		if g != nil {
			g.Release()
			b.groups[i] = nil
		}
	}
}
