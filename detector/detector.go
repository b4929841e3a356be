// Package detector describes the WebGPU adapter the solver runs on and
// checks a simulation fits its limits before anything is allocated.
package detector

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/openfluke/webgpu/wgpu"
)

// Describe synthesizes a report for an acquired adapter.
func Describe(adapter *wgpu.Adapter) *Report {
	info := adapter.GetInfo()
	limits := FromSupported(adapter.GetLimits())

	var feats []string
	for _, f := range adapter.EnumerateFeatures() {
		feats = append(feats, featureName(f))
	}

	return &Report{
		WhenISO:     time.Now().UTC().Format(time.RFC3339),
		Runtime:     detectRuntime(),
		Backend:     backendName(info.BackendType),
		AdapterType: adapterTypeName(info.AdapterType),
		VendorID:    fmt.Sprintf("0x%04x", info.VendorId),
		DeviceID:    fmt.Sprintf("0x%04x", info.DeviceId),
		Name:        strings.TrimSpace(info.Name),
		Driver:      strings.TrimSpace(info.DriverDescription),
		Limits:      limits,
		Features:    feats,
		Recommended: Recommendations{
			Workgroup:   chooseWorkgroup(limits),
			MaxCubeEdge: maxCubeEdge(limits),
		},
		Env: pickEnv([]string{"WGPU_BACKEND", "WGPU_ADAPTER_NAME", "YEE_BACKEND"}),
	}
}

// FromSupported copies the limits the solver cares about.
func FromSupported(l wgpu.SupportedLimits) Limits {
	return Limits{
		MaxComputeInvocationsPerWorkgroup: l.Limits.MaxComputeInvocationsPerWorkgroup,
		MaxComputeWorkgroupSizeX:          l.Limits.MaxComputeWorkgroupSizeX,
		MaxComputeWorkgroupSizeY:          l.Limits.MaxComputeWorkgroupSizeY,
		MaxComputeWorkgroupSizeZ:          l.Limits.MaxComputeWorkgroupSizeZ,
		MaxComputeWorkgroupsPerDimension:  l.Limits.MaxComputeWorkgroupsPerDimension,
		MaxStorageBuffersPerShaderStage:   l.Limits.MaxStorageBuffersPerShaderStage,
		MaxStorageBufferBindingSize:       l.Limits.MaxStorageBufferBindingSize,
		MaxBufferSize:                     l.Limits.MaxBufferSize,
	}
}

func featureName(f wgpu.FeatureName) string     { return f.String() }
func backendName(b wgpu.BackendType) string     { return b.String() }
func adapterTypeName(t wgpu.AdapterType) string { return t.String() }

func detectRuntime() string {
	if runtime.GOOS == "js" {
		return "wasm"
	}
	return "native"
}

func pickEnv(keys []string) map[string]string {
	out := map[string]string{}
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
