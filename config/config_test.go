package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfluke/yee/grid"
	"github.com/openfluke/yee/source"
)

func TestDefaultConfigIsReferenceRun(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 64, cfg.Grid.Nx)
	assert.Equal(t, 0.5, cfg.Grid.Courant)
	assert.Equal(t, 300, cfg.Time.Steps)
	assert.Equal(t, grid.Ez, cfg.Source.Component)
	assert.Equal(t, grid.Coord{I: 32, J: 32, K: 32}, cfg.SourceModel().At)
	assert.Equal(t, grid.Coord{I: 42, J: 32, K: 32}, cfg.ProbeModel().At)
	assert.Equal(t, 5*time.Second, cfg.Timeout())
	assert.Equal(t, BackendWebGPU, cfg.Device.Backend)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "yee.yaml")

	cfg := DefaultConfig()
	cfg.Grid.Nx = 33
	cfg.Probe.Component = grid.Hy
	cfg.Output.CSV = "trace.csv"
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yee.yaml")
	require.NoError(t, os.WriteFile(path, []byte("time:\n  steps: 12\nsource:\n  component: ey\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Time.Steps)
	assert.Equal(t, grid.Ey, cfg.Source.Component)
	assert.Equal(t, 64, cfg.Grid.Ny)
}

func TestLoadRejectsUnknownComponent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yee.yaml")
	require.NoError(t, os.WriteFile(path, []byte("probe:\n  component: ew\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("backend steps and level", func(t *testing.T) {
		t.Setenv("YEE_BACKEND", "cpu")
		t.Setenv("YEE_STEPS", "7")
		t.Setenv("YEE_LOG_LEVEL", "debug")

		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())

		assert.Equal(t, BackendCPU, cfg.Device.Backend)
		assert.Equal(t, 7, cfg.Time.Steps)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("bad steps", func(t *testing.T) {
		t.Setenv("YEE_STEPS", "many")

		cfg := DefaultConfig()
		err := cfg.applyEnvOverrides()
		assert.ErrorIs(t, err, ErrInvalid)
	})
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		target error
	}{
		{"courant above bound", func(c *Config) { c.Grid.Courant = 0.6 }, grid.ErrCourant},
		{"zero courant", func(c *Config) { c.Grid.Courant = 0 }, grid.ErrCourant},
		{"zero dimension", func(c *Config) { c.Grid.Nz = 0 }, grid.ErrInvalidGrid},
		{"too many cells", func(c *Config) { c.Grid.Nx, c.Grid.Ny, c.Grid.Nz = 1<<21, 1<<21, 1<<21 }, grid.ErrInvalidGrid},
		{"negative spacing", func(c *Config) { c.Grid.Dx = -1 }, grid.ErrInvalidGrid},
		{"source outside", func(c *Config) { c.Source.I = 64 }, source.ErrOutOfBounds},
		{"probe outside", func(c *Config) { c.Probe.K = -1 }, source.ErrOutOfBounds},
		{"magnetic source", func(c *Config) { c.Source.Component = grid.Hz }, source.ErrNotElectric},
		{"zero width", func(c *Config) { c.Source.Width = 0 }, source.ErrInvalidWaveform},
		{"negative sigma", func(c *Config) { c.Material.Sigma = -1 }, grid.ErrInvalidMaterial},
		{"no steps", func(c *Config) { c.Time.Steps = 0 }, ErrInvalid},
		{"unknown backend", func(c *Config) { c.Device.Backend = "cuda" }, ErrInvalid},
		{"oversized workgroup", func(c *Config) { c.Device.WorkgroupX = 16; c.Device.WorkgroupY = 16; c.Device.WorkgroupZ = 2 }, ErrInvalid},
		{"bad timeout", func(c *Config) { c.Device.ReadbackTimeout = "soon" }, ErrInvalid},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestValidateJoinsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Grid.Courant = 1
	cfg.Source.J = 100
	cfg.Probe.J = 100

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, grid.ErrCourant))
	assert.True(t, errors.Is(err, source.ErrOutOfBounds))
	assert.Contains(t, err.Error(), "source:")
	assert.Contains(t, err.Error(), "probe:")
}
