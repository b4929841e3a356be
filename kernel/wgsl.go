package kernel

import (
	"fmt"
	"strings"
)

// Declarations renders the binding declarations of a plan in contract order.
func (p Plan) Declarations() string {
	var b strings.Builder
	for i, r := range p.Resources {
		slot := Contract[i]
		switch r.Role {
		case RoleParams:
			fmt.Fprintf(&b, "@group(0) @binding(%d) var<uniform> %s : Params;\n", slot.Binding, r.Name())
		default:
			fmt.Fprintf(&b, "@group(0) @binding(%d) var<storage, %s> %s : array<f32>;\n", slot.Binding, r.Role.Access(), r.Name())
		}
	}
	return b.String()
}

// Neighbour loads are zero outside the grid, which makes the outer faces
// perfect electric conductors.
const updateHBody = `
    let ex0 = ex[c];
    let ey0 = ey[c];
    let ez0 = ez[c];

    var ey_ip : f32 = 0.0;
    var ez_ip : f32 = 0.0;
    var ex_jp : f32 = 0.0;
    var ez_jp : f32 = 0.0;
    var ex_kp : f32 = 0.0;
    var ey_kp : f32 = 0.0;
    if (i + 1u < params.nx) {
        ey_ip = ey[c + 1u];
        ez_ip = ez[c + 1u];
    }
    if (j + 1u < params.ny) {
        ex_jp = ex[c + sy];
        ez_jp = ez[c + sy];
    }
    if (k + 1u < params.nz) {
        ex_kp = ex[c + sz];
        ey_kp = ey[c + sz];
    }

    let curl_x = (ez_jp - ez0) * params.inv_dy - (ey_kp - ey0) * params.inv_dz;
    let curl_y = (ex_kp - ex0) * params.inv_dz - (ez_ip - ez0) * params.inv_dx;
    let curl_z = (ey_ip - ey0) * params.inv_dx - (ex_jp - ex0) * params.inv_dy;

    hx[c] = cp[c] * hx[c] - cq[c] * curl_x;
    hy[c] = cp[c] * hy[c] - cq[c] * curl_y;
    hz[c] = cp[c] * hz[c] - cq[c] * curl_z;
`

const updateEBody = `
    let hx0 = hx[c];
    let hy0 = hy[c];
    let hz0 = hz[c];

    var hy_im : f32 = 0.0;
    var hz_im : f32 = 0.0;
    var hx_jm : f32 = 0.0;
    var hz_jm : f32 = 0.0;
    var hx_km : f32 = 0.0;
    var hy_km : f32 = 0.0;
    if (i > 0u) {
        hy_im = hy[c - 1u];
        hz_im = hz[c - 1u];
    }
    if (j > 0u) {
        hx_jm = hx[c - sy];
        hz_jm = hz[c - sy];
    }
    if (k > 0u) {
        hx_km = hx[c - sz];
        hy_km = hy[c - sz];
    }

    let curl_x = (hz0 - hz_jm) * params.inv_dy - (hy0 - hy_km) * params.inv_dz;
    let curl_y = (hx0 - hx_km) * params.inv_dz - (hz0 - hz_im) * params.inv_dx;
    let curl_z = (hy0 - hy_im) * params.inv_dx - (hx0 - hx_jm) * params.inv_dy;

    ex[c] = ca[c] * ex[c] + cb[c] * curl_x;
    ey[c] = ca[c] * ey[c] + cb[c] * curl_y;
    ez[c] = ca[c] * ez[c] + cb[c] * curl_z;
`

// WGSL generates the compute shader for a half-step. Entry point is "main".
func WGSL(h Half, wg Workgroup) string {
	body := updateHBody
	if h == HalfE {
		body = updateEBody
	}
	return fmt.Sprintf(`// %s
%s
%s
@compute @workgroup_size(%d, %d, %d)
fn main(@builtin(global_invocation_id) gid : vec3<u32>) {
    let i = gid.x;
    let j = gid.y;
    let k = gid.z;
    if (i >= params.nx || j >= params.ny || k >= params.nz) {
        return;
    }
    let sy = params.nx;
    let sz = params.nx * params.ny;
    let c = i + sy * j + sz * k;
%s}
`, h, ParamsWGSL(), PlanFor(h).Declarations(), wg.X, wg.Y, wg.Z, body)
}

// EntryPoint is the compute entry of every generated shader.
const EntryPoint = "main"
