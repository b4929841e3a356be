package solver

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/openfluke/yee/config"
	"github.com/openfluke/yee/probe"
)

// scriptedBackend logs every call and returns the injected value as probe.
type scriptedBackend struct {
	calls    []string
	last     float32
	steps    int
	failStep int
	closed   bool
}

func (b *scriptedBackend) Inject(v float32) error {
	b.calls = append(b.calls, "inject")
	b.last = v
	return nil
}

func (b *scriptedBackend) Step() error {
	b.calls = append(b.calls, "step")
	b.steps++
	if b.steps == b.failStep {
		return errors.New("device lost")
	}
	return nil
}

func (b *scriptedBackend) Probe(context.Context) (float32, error) {
	b.calls = append(b.calls, "probe")
	return b.last, nil
}

func (b *scriptedBackend) Close() error {
	b.closed = true
	return nil
}

func smallSetup(t *testing.T, n, steps int) *Setup {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Grid.Nx, cfg.Grid.Ny, cfg.Grid.Nz = n, n, n
	cfg.Time.Steps = steps
	cfg.Source.I, cfg.Source.J, cfg.Source.K = n/2, n/2, n/2
	cfg.Probe.I, cfg.Probe.J, cfg.Probe.K = n/2+min(10, n/2-1), n/2, n/2
	cfg.Device.Backend = config.BackendCPU
	s, err := NewSetup(cfg)
	require.NoError(t, err)
	return s
}

func TestEngineCallOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	setup := smallSetup(t, 8, 5)
	b := &scriptedBackend{}
	rec := probe.NewRecorder(5)

	require.NoError(t, NewEngine(setup, b, nil, rec).Run(context.Background()))

	want := make([]string, 0, 15)
	for range 5 {
		want = append(want, "inject", "step", "probe")
	}
	assert.Equal(t, want, b.calls)
	assert.False(t, b.closed, "engine does not own the backend")

	records := rec.Records()
	require.Len(t, records, 5)
	for n, r := range records {
		assert.Equal(t, n, r.Step)
		assert.Equal(t, setup.Source.Waveform.At(n), r.Value, "record %d attributed to wrong step", n)
		assert.InDelta(t, float64(n)*setup.Dt, r.Time, 1e-20)
	}
}

func TestEngineStopsAtFirstFailure(t *testing.T) {
	setup := smallSetup(t, 8, 10)
	b := &scriptedBackend{failStep: 3}
	rec := probe.NewRecorder(10)

	err := NewEngine(setup, b, nil, rec).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 2")
	assert.Contains(t, err.Error(), "device lost")
	assert.Len(t, rec.Records(), 2)
}

func TestEngineHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := &scriptedBackend{}
	err := NewEngine(smallSetup(t, 8, 10), b, nil).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, b.calls)
}

type failingSink struct{}

func (failingSink) Write(probe.Record) error { return fmt.Errorf("disk full") }

func TestEngineSinkError(t *testing.T) {
	err := NewEngine(smallSetup(t, 8, 3), &scriptedBackend{}, nil, failingSink{}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 0: emit")
}

func TestNewSetupRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Grid.Courant = 0.7
	_, err := NewSetup(cfg)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestNewSetupRejectsOversizedGrid(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Grid.Nx, cfg.Grid.Ny, cfg.Grid.Nz = 1<<21, 1<<21, 1<<21
	var err error
	require.NotPanics(t, func() { _, err = NewSetup(cfg) })
	assert.ErrorIs(t, err, config.ErrInvalid)
}
