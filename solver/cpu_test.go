package solver

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/openfluke/yee/config"
	"github.com/openfluke/yee/grid"
	"github.com/openfluke/yee/probe"
)

func TestCPUInjectionTouchesOnlySourceCell(t *testing.T) {
	setup := smallSetup(t, 12, 1)
	cpu, err := NewCPU(setup)
	require.NoError(t, err)
	ctx := context.Background()

	for _, comp := range grid.Components {
		f, err := cpu.Snapshot(ctx, comp)
		require.NoError(t, err)
		for i, v := range f {
			require.Zerof(t, v, "%s[%d] before injection", comp, i)
		}
	}

	v := setup.Source.Waveform.At(0)
	require.NoError(t, cpu.Inject(v))

	src := setup.SourceIndex()
	for _, comp := range grid.Components {
		f, err := cpu.Snapshot(ctx, comp)
		require.NoError(t, err)
		for i, got := range f {
			if comp == setup.Source.Component && i == src {
				assert.Equal(t, v, got)
				continue
			}
			require.Zerof(t, got, "%s[%d] after injection", comp, i)
		}
	}
}

func TestCPUOneStepByHand(t *testing.T) {
	setup := smallSetup(t, 12, 1)
	cpu, err := NewCPU(setup)
	require.NoError(t, err)

	const v = 1
	require.NoError(t, cpu.Inject(v))
	require.NoError(t, cpu.Step())
	_, err = cpu.Probe(context.Background())
	require.NoError(t, err)

	g := setup.Grid
	s := setup.Source.At
	idx, _, _ := g.InvSpacing()
	cq := setup.Coefficients.CQ[0]
	cb := setup.Coefficients.CB[0]

	hy, err := cpu.Snapshot(context.Background(), grid.Hy)
	require.NoError(t, err)
	assert.InEpsilon(t, -cq*v*idx, hy[g.IndexOf(s)], 1e-5)
	assert.InEpsilon(t, cq*v*idx, hy[g.IndexOf(s.Offset(-1, 0, 0))], 1e-5)

	ez, err := cpu.Snapshot(context.Background(), grid.Ez)
	require.NoError(t, err)
	assert.InEpsilon(t, cb*cq*idx*idx*v, ez[g.IndexOf(s.Offset(1, 0, 0))], 1e-5)
	assert.Zero(t, ez[g.IndexOf(s.Offset(2, 0, 0))], "influence moves one cell per step")
}

func TestCPUProtocolGuards(t *testing.T) {
	cpu, err := NewCPU(smallSetup(t, 8, 1))
	require.NoError(t, err)

	_, err = cpu.Probe(context.Background())
	assert.Error(t, err)

	require.NoError(t, cpu.Step())
	assert.ErrorIs(t, cpu.Inject(1), ErrStepPending)
	assert.ErrorIs(t, cpu.Step(), ErrStepPending)
}

// The probe sits ten cells from the source; influence spreads one cell per
// step, so the first eight readings are exactly zero.
func TestCPUCausalityAndStability(t *testing.T) {
	defer goleak.VerifyNone(t)

	setup := smallSetup(t, 24, 120)
	cpu, err := NewCPU(setup)
	require.NoError(t, err)
	defer cpu.Close()

	rec := probe.NewRecorder(setup.Steps)
	require.NoError(t, NewEngine(setup, cpu, nil, rec).Run(context.Background()))

	offset := setup.Probe.At.I - setup.Source.At.I
	require.Equal(t, 10, offset)

	values := rec.Values()
	for n := 0; n <= offset-2; n++ {
		assert.Zerof(t, values[n], "probe at step %d before the wavefront", n)
	}

	var peak float64
	for n, v := range values {
		f := float64(v)
		require.Falsef(t, math.IsNaN(f) || math.IsInf(f, 0), "step %d not finite", n)
		peak = math.Max(peak, math.Abs(f))
	}
	assert.Greater(t, peak, 0.0, "wavefront never reached the probe")
	assert.Less(t, peak, 10.0, "probe exceeds a bounded multiple of the source peak")
}

// Full default scenario: 64^3 vacuum cavity, 300 steps, observation cell ten
// cells from a Gaussian source. The stencil first reaches it on step 9.
func TestCPUReferenceRun(t *testing.T) {
	if testing.Short() {
		t.Skip("reference run takes about a second")
	}
	defer goleak.VerifyNone(t)

	cfg := config.DefaultConfig()
	cfg.Device.Backend = config.BackendCPU
	setup, err := NewSetup(cfg)
	require.NoError(t, err)
	require.Equal(t, 64, setup.Grid.Nx)
	require.Equal(t, 300, setup.Steps)

	cpu, err := NewCPU(setup)
	require.NoError(t, err)
	defer cpu.Close()

	rec := probe.NewRecorder(setup.Steps)
	require.NoError(t, NewEngine(setup, cpu, nil, rec).Run(context.Background()))

	values := rec.Values()
	require.Len(t, values, 300)
	for n := 0; n <= 8; n++ {
		require.Zerof(t, values[n], "step %d before the stencil arrives", n)
	}
	assert.NotZero(t, values[9], "the stencil arrives on step 9")

	var peak, tail float64
	peakAt := 0
	for n, v := range values {
		f := math.Abs(float64(v))
		require.Falsef(t, math.IsNaN(f) || math.IsInf(f, 0), "step %d not finite", n)
		if f > peak {
			peak, peakAt = f, n
		}
		if n >= 250 {
			tail = math.Max(tail, f)
		}
	}
	assert.Less(t, peak, 10.0)
	assert.Less(t, peakAt, 120, "direct pulse should dominate before wall reflections return")
	assert.Less(t, tail, peak, "envelope should decay after the direct pulse")
}
