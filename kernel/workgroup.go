package kernel

import "fmt"

// Workgroup is the fixed per-axis extent the kernels are compiled with.
type Workgroup struct {
	X, Y, Z uint32
}

// DefaultWorkgroup is 4x4x4.
var DefaultWorkgroup = Workgroup{X: 4, Y: 4, Z: 4}

// MaxInvocations is the WebGPU default limit on invocations per workgroup.
const MaxInvocations = 256

// Invocations is X*Y*Z, computed wide so large extents cannot wrap.
func (w Workgroup) Invocations() uint64 { return uint64(w.X) * uint64(w.Y) * uint64(w.Z) }

// Validate rejects zero extents and groups above MaxInvocations.
func (w Workgroup) Validate() error {
	if w.X == 0 || w.Y == 0 || w.Z == 0 {
		return fmt.Errorf("workgroup %s has a zero extent", w)
	}
	if w.Invocations() > MaxInvocations {
		return fmt.Errorf("workgroup %s has %d invocations, limit %d", w, w.Invocations(), MaxInvocations)
	}
	return nil
}

func (w Workgroup) String() string { return fmt.Sprintf("%dx%dx%d", w.X, w.Y, w.Z) }

// DispatchCount is ceil(n/extent). Kernels guard the cells past n.
func DispatchCount(n, extent uint32) uint32 {
	return (n + extent - 1) / extent
}

// Counts returns the workgroup grid for a dispatch over p's cells.
func (w Workgroup) Counts(p Params) (x, y, z uint32) {
	return DispatchCount(p.Nx, w.X), DispatchCount(p.Ny, w.Y), DispatchCount(p.Nz, w.Z)
}
