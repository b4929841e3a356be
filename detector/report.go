package detector

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openfluke/yee/grid"
	"github.com/openfluke/yee/kernel"
)

// ErrDoesNotFit is returned when a grid or workgroup exceeds device limits.
var ErrDoesNotFit = errors.New("simulation does not fit device limits")

/* ---------- public API ---------- */

// Report is a portable summary of the selected adapter and its limits.
type Report struct {
	WhenISO     string            `json:"when_iso"`
	Runtime     string            `json:"runtime"`
	Backend     string            `json:"backend"`
	AdapterType string            `json:"adapter_type"`
	VendorID    string            `json:"vendor_id_hex"`
	DeviceID    string            `json:"device_id_hex"`
	Name        string            `json:"name"`
	Driver      string            `json:"driver"`
	Recommended Recommendations   `json:"recommended"`
	Limits      Limits            `json:"limits"`
	Features    []string          `json:"features"`
	Env         map[string]string `json:"env,omitempty"`
}

type Limits struct {
	MaxComputeInvocationsPerWorkgroup uint32 `json:"max_compute_invocations_per_workgroup"`
	MaxComputeWorkgroupSizeX          uint32 `json:"max_compute_workgroup_size_x"`
	MaxComputeWorkgroupSizeY          uint32 `json:"max_compute_workgroup_size_y"`
	MaxComputeWorkgroupSizeZ          uint32 `json:"max_compute_workgroup_size_z"`
	MaxComputeWorkgroupsPerDimension  uint32 `json:"max_compute_workgroups_per_dimension"`
	MaxStorageBuffersPerShaderStage   uint32 `json:"max_storage_buffers_per_shader_stage"`
	MaxStorageBufferBindingSize       uint64 `json:"max_storage_buffer_binding_size"`
	MaxBufferSize                     uint64 `json:"max_buffer_size"`
}

type Recommendations struct {
	// Cubic workgroup that fits the per-axis and per-group limits.
	Workgroup kernel.Workgroup `json:"workgroup"`

	// Largest cubic grid edge whose field array fits one storage binding.
	MaxCubeEdge int `json:"max_cube_edge"`
}

// JSON renders the report indented.
func (r *Report) JSON() (string, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Fits checks that one field array of g can be bound as a storage buffer,
// that the dispatch grid stays within per-dimension limits and that the
// workgroup extent is supported. It runs before any buffer is allocated.
func (l Limits) Fits(g grid.Grid, wg kernel.Workgroup) error {
	size := g.Bytes()
	if l.MaxStorageBufferBindingSize > 0 && size > l.MaxStorageBufferBindingSize {
		return fmt.Errorf("%w: field array %d bytes > max storage binding %d", ErrDoesNotFit, size, l.MaxStorageBufferBindingSize)
	}
	if l.MaxBufferSize > 0 && size > l.MaxBufferSize {
		return fmt.Errorf("%w: field array %d bytes > max buffer size %d", ErrDoesNotFit, size, l.MaxBufferSize)
	}
	if l.MaxComputeWorkgroupSizeX > 0 &&
		(wg.X > l.MaxComputeWorkgroupSizeX || wg.Y > l.MaxComputeWorkgroupSizeY || wg.Z > l.MaxComputeWorkgroupSizeZ) {
		return fmt.Errorf("%w: workgroup %s exceeds per-axis limits %dx%dx%d", ErrDoesNotFit, wg,
			l.MaxComputeWorkgroupSizeX, l.MaxComputeWorkgroupSizeY, l.MaxComputeWorkgroupSizeZ)
	}
	if l.MaxComputeInvocationsPerWorkgroup > 0 && wg.Invocations() > uint64(l.MaxComputeInvocationsPerWorkgroup) {
		return fmt.Errorf("%w: workgroup %s has %d invocations > %d", ErrDoesNotFit, wg, wg.Invocations(), l.MaxComputeInvocationsPerWorkgroup)
	}
	if l.MaxStorageBuffersPerShaderStage > 0 && l.MaxStorageBuffersPerShaderStage < 8 {
		return fmt.Errorf("%w: kernels bind 8 storage buffers, device allows %d", ErrDoesNotFit, l.MaxStorageBuffersPerShaderStage)
	}
	if max := l.MaxComputeWorkgroupsPerDimension; max > 0 {
		p := kernel.Params{Nx: uint32(g.Nx), Ny: uint32(g.Ny), Nz: uint32(g.Nz)}
		x, y, z := wg.Counts(p)
		if x > max || y > max || z > max {
			return fmt.Errorf("%w: dispatch %dx%dx%d exceeds %d workgroups per dimension", ErrDoesNotFit, x, y, z, max)
		}
	}
	return nil
}

/* ---------- helpers ---------- */

func chooseWorkgroup(l Limits) kernel.Workgroup {
	for _, c := range []uint32{8, 4, 2} {
		if c <= l.MaxComputeWorkgroupSizeX && c <= l.MaxComputeWorkgroupSizeY &&
			c <= l.MaxComputeWorkgroupSizeZ && c*c*c <= l.MaxComputeInvocationsPerWorkgroup {
			return kernel.Workgroup{X: c, Y: c, Z: c}
		}
	}
	return kernel.Workgroup{X: 1, Y: 1, Z: 1}
}

func maxCubeEdge(l Limits) int {
	budget := l.MaxStorageBufferBindingSize
	if l.MaxBufferSize > 0 && l.MaxBufferSize < budget {
		budget = l.MaxBufferSize
	}
	cells := budget / 4
	n := 1
	for uint64(n+1)*uint64(n+1)*uint64(n+1) <= cells {
		n++
	}
	return n
}
