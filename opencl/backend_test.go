//go:build opencl

package opencl

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfluke/yee/config"
	"github.com/openfluke/yee/probe"
	"github.com/openfluke/yee/solver"
)

func TestOpenCLMatchesCPU(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Grid.Nx, cfg.Grid.Ny, cfg.Grid.Nz = 10, 11, 9
	cfg.Time.Steps = 20
	cfg.Source.I, cfg.Source.J, cfg.Source.K = 5, 5, 4
	cfg.Probe.I, cfg.Probe.J, cfg.Probe.K = 8, 5, 4
	cfg.Source.Delay, cfg.Source.Width = 6, 3
	setup, err := solver.NewSetup(cfg)
	require.NoError(t, err)

	cl, err := New(setup, 5*time.Second, nil)
	if err != nil {
		t.Skipf("no OpenCL device: %v", err)
	}
	defer cl.Close()
	cpu, err := solver.NewCPU(setup)
	require.NoError(t, err)

	ctx := context.Background()
	got, want := probe.NewRecorder(setup.Steps), probe.NewRecorder(setup.Steps)
	require.NoError(t, solver.NewEngine(setup, cl, nil, got).Run(ctx))
	require.NoError(t, solver.NewEngine(setup, cpu, nil, want).Run(ctx))

	w, g := want.Values(), got.Values()
	for n := range w {
		tol := 1e-4*math.Abs(float64(w[n])) + 1e-5
		assert.InDeltaf(t, w[n], g[n], tol, "step %d", n)
	}
}
