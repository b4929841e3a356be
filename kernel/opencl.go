package kernel

import (
	"fmt"
	"strings"
)

// OpenCLArgs renders the kernel parameter list of a plan in contract order,
// so argument index == binding number.
func (p Plan) OpenCLArgs() string {
	args := make([]string, len(p.Resources))
	for i, r := range p.Resources {
		switch r.Role {
		case RoleParams:
			args[i] = "__constant const Params* params"
		case RoleOutput:
			args[i] = "__global float* " + r.Name()
		default:
			args[i] = "__global const float* " + r.Name()
		}
	}
	return strings.Join(args, ",\n    ")
}

const openCLHBody = `
    float ex0 = ex[c], ey0 = ey[c], ez0 = ez[c];
    float ey_ip = 0.0f, ez_ip = 0.0f;
    float ex_jp = 0.0f, ez_jp = 0.0f;
    float ex_kp = 0.0f, ey_kp = 0.0f;
    if (i + 1 < params->nx) { ey_ip = ey[c + 1]; ez_ip = ez[c + 1]; }
    if (j + 1 < params->ny) { ex_jp = ex[c + sy]; ez_jp = ez[c + sy]; }
    if (k + 1 < params->nz) { ex_kp = ex[c + sz]; ey_kp = ey[c + sz]; }

    float curl_x = (ez_jp - ez0) * params->inv_dy - (ey_kp - ey0) * params->inv_dz;
    float curl_y = (ex_kp - ex0) * params->inv_dz - (ez_ip - ez0) * params->inv_dx;
    float curl_z = (ey_ip - ey0) * params->inv_dx - (ex_jp - ex0) * params->inv_dy;

    hx[c] = cp[c] * hx[c] - cq[c] * curl_x;
    hy[c] = cp[c] * hy[c] - cq[c] * curl_y;
    hz[c] = cp[c] * hz[c] - cq[c] * curl_z;
`

const openCLEBody = `
    float hx0 = hx[c], hy0 = hy[c], hz0 = hz[c];
    float hy_im = 0.0f, hz_im = 0.0f;
    float hx_jm = 0.0f, hz_jm = 0.0f;
    float hx_km = 0.0f, hy_km = 0.0f;
    if (i > 0) { hy_im = hy[c - 1]; hz_im = hz[c - 1]; }
    if (j > 0) { hx_jm = hx[c - sy]; hz_jm = hz[c - sy]; }
    if (k > 0) { hx_km = hx[c - sz]; hy_km = hy[c - sz]; }

    float curl_x = (hz0 - hz_jm) * params->inv_dy - (hy0 - hy_km) * params->inv_dz;
    float curl_y = (hx0 - hx_km) * params->inv_dz - (hz0 - hz_im) * params->inv_dx;
    float curl_z = (hy0 - hy_im) * params->inv_dx - (hx0 - hx_jm) * params->inv_dy;

    ex[c] = ca[c] * ex[c] + cb[c] * curl_x;
    ey[c] = ca[c] * ey[c] + cb[c] * curl_y;
    ez[c] = ca[c] * ez[c] + cb[c] * curl_z;
`

// OpenCL generates one program holding both half-step kernels, named after
// Half.String.
func OpenCL() string {
	var b strings.Builder
	b.WriteString(ParamsOpenCL())
	for _, h := range Halves {
		body := openCLHBody
		if h == HalfE {
			body = openCLEBody
		}
		fmt.Fprintf(&b, `
__kernel void %s(
    %s)
{
    uint i = get_global_id(0);
    uint j = get_global_id(1);
    uint k = get_global_id(2);
    if (i >= params->nx || j >= params->ny || k >= params->nz) {
        return;
    }
    uint sy = params->nx;
    uint sz = params->nx * params->ny;
    uint c = i + sy * j + sz * k;
%s}
`, h, PlanFor(h).OpenCLArgs(), body)
	}
	return b.String()
}
