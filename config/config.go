// Package config holds the run configuration. A Config is built once by
// DefaultConfig or Load, validated, and then passed by pointer to every
// component; nothing mutates it after Validate.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/openfluke/yee/grid"
)

// Backends understood by Device.Backend.
const (
	BackendWebGPU = "webgpu"
	BackendOpenCL = "opencl"
	BackendCPU    = "cpu"
)

// Config is the full description of one simulation run.
type Config struct {
	Grid     GridConfig     `yaml:"grid"`
	Time     TimeConfig     `yaml:"time"`
	Material MaterialConfig `yaml:"material"`
	Source   SourceConfig   `yaml:"source"`
	Probe    ProbeConfig    `yaml:"probe"`
	Device   DeviceConfig   `yaml:"device"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GridConfig is the Yee grid and its Courant number.
type GridConfig struct {
	Nx      int     `yaml:"nx"`
	Ny      int     `yaml:"ny"`
	Nz      int     `yaml:"nz"`
	Dx      float64 `yaml:"dx"` // metres
	Dy      float64 `yaml:"dy"`
	Dz      float64 `yaml:"dz"`
	Courant float64 `yaml:"courant"`
}

// TimeConfig bounds the time loop.
type TimeConfig struct {
	Steps int `yaml:"steps"`
}

// MaterialConfig is the uniform medium filling the grid.
type MaterialConfig struct {
	EpsR   float64 `yaml:"eps_r"`
	MuR    float64 `yaml:"mu_r"`
	Sigma  float64 `yaml:"sigma"`   // S/m
	SigmaM float64 `yaml:"sigma_m"` // ohm/m
}

// SourceConfig places the Gaussian hard source.
type SourceConfig struct {
	Component grid.Component `yaml:"component"`
	I         int            `yaml:"i"`
	J         int            `yaml:"j"`
	K         int            `yaml:"k"`
	Delay     float64        `yaml:"delay"` // steps
	Width     float64        `yaml:"width"` // steps
}

// ProbeConfig places the probe.
type ProbeConfig struct {
	Component grid.Component `yaml:"component"`
	I         int            `yaml:"i"`
	J         int            `yaml:"j"`
	K         int            `yaml:"k"`
}

// DeviceConfig selects and tunes the compute backend.
type DeviceConfig struct {
	Backend         string `yaml:"backend"`          // webgpu, opencl, cpu
	PowerPreference string `yaml:"power_preference"` // high-performance, low-power
	Adapter         string `yaml:"adapter"`          // substring of adapter name, optional
	ReadbackTimeout string `yaml:"readback_timeout"`
	WorkgroupX      uint32 `yaml:"workgroup_x"`
	WorkgroupY      uint32 `yaml:"workgroup_y"`
	WorkgroupZ      uint32 `yaml:"workgroup_z"`
}

// OutputConfig lists where the probe trace goes besides the log.
type OutputConfig struct {
	CSV    string `yaml:"csv"`
	SQLite string `yaml:"sqlite"`
	Plot   string `yaml:"plot"`
	Quiet  bool   `yaml:"quiet"` // suppress the per-step log line
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level    string `yaml:"level"`    // debug, info, warn, error
	Encoding string `yaml:"encoding"` // json, console
}

// DefaultConfig returns the reference run: 64^3 cells of 1 mm, Sc=0.5,
// 300 steps, Ez Gaussian at the centre, Ez probe ten cells along x.
func DefaultConfig() *Config {
	const n = 64
	return &Config{
		Grid: GridConfig{
			Nx: n, Ny: n, Nz: n,
			Dx: 1e-3, Dy: 1e-3, Dz: 1e-3,
			Courant: 0.5,
		},
		Time:     TimeConfig{Steps: 300},
		Material: MaterialConfig{EpsR: 1, MuR: 1},
		Source: SourceConfig{
			Component: grid.Ez,
			I:         n / 2, J: n / 2, K: n / 2,
			Delay: 40,
			Width: 20,
		},
		Probe: ProbeConfig{
			Component: grid.Ez,
			I:         n/2 + 10, J: n / 2, K: n / 2,
		},
		Device: DeviceConfig{
			Backend:         BackendWebGPU,
			PowerPreference: "high-performance",
			ReadbackTimeout: "5s",
			WorkgroupX:      4,
			WorkgroupY:      4,
			WorkgroupZ:      4,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "console",
		},
	}
}

// Load reads a YAML file over the defaults, then applies environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// YAML renders the configuration as it would be saved.
func (c *Config) YAML() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// applyEnvOverrides applies YEE_BACKEND, YEE_STEPS and YEE_LOG_LEVEL.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("YEE_BACKEND"); v != "" {
		c.Device.Backend = v
	}
	if v := os.Getenv("YEE_STEPS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: YEE_STEPS=%q: %v", ErrInvalid, v, err)
		}
		c.Time.Steps = n
	}
	if v := os.Getenv("YEE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Timeout parses Device.ReadbackTimeout.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.Device.ReadbackTimeout)
	if err != nil {
		return 0
	}
	return d
}

// GridModel returns the grid described by the grid section.
func (c *Config) GridModel() grid.Grid {
	g := c.Grid
	return grid.Grid{Nx: g.Nx, Ny: g.Ny, Nz: g.Nz, Dx: g.Dx, Dy: g.Dy, Dz: g.Dz}
}

// MaterialModel returns the uniform medium.
func (c *Config) MaterialModel() grid.Material {
	m := c.Material
	return grid.Material{EpsR: m.EpsR, MuR: m.MuR, Sigma: m.Sigma, SigmaM: m.SigmaM}
}
