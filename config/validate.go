package config

import (
	"errors"
	"fmt"

	"github.com/openfluke/yee/grid"
	"github.com/openfluke/yee/kernel"
	"github.com/openfluke/yee/source"
)

// ErrInvalid wraps every configuration error. Invalid values are rejected,
// never clamped.
var ErrInvalid = errors.New("invalid configuration")

// SourceModel returns the hard source of the run.
func (c *Config) SourceModel() source.Source {
	s := c.Source
	return source.Source{
		Point:    source.Point{Component: s.Component, At: grid.Coord{I: s.I, J: s.J, K: s.K}},
		Waveform: source.Gaussian{Delay: s.Delay, Width: s.Width},
	}
}

// ProbeModel returns the probe of the run.
func (c *Config) ProbeModel() source.Probe {
	p := c.Probe
	return source.Probe{Point: source.Point{Component: p.Component, At: grid.Coord{I: p.I, J: p.J, K: p.K}}}
}

// WorkgroupModel returns the kernel workgroup extent.
func (c *Config) WorkgroupModel() kernel.Workgroup {
	d := c.Device
	return kernel.Workgroup{X: d.WorkgroupX, Y: d.WorkgroupY, Z: d.WorkgroupZ}
}

// Validate collects every problem in the configuration. It runs before
// any device resource is allocated.
func (c *Config) Validate() error {
	var errs []error

	g := c.GridModel()
	gridErr := g.Validate()
	if gridErr != nil {
		errs = append(errs, gridErr)
	}
	if err := grid.CheckCourant(c.Grid.Courant); err != nil {
		errs = append(errs, err)
	}
	if c.Time.Steps <= 0 {
		errs = append(errs, fmt.Errorf("time.steps %d must be positive", c.Time.Steps))
	}
	if err := c.MaterialModel().Validate(); err != nil {
		errs = append(errs, err)
	}

	// Bounds checks need a valid grid.
	if gridErr == nil {
		if err := c.SourceModel().Validate(g); err != nil {
			errs = append(errs, err)
		}
		if err := c.ProbeModel().Validate(g); err != nil {
			errs = append(errs, err)
		}
	}

	switch c.Device.Backend {
	case BackendWebGPU, BackendOpenCL, BackendCPU:
	default:
		errs = append(errs, fmt.Errorf("device.backend %q: want %s, %s or %s",
			c.Device.Backend, BackendWebGPU, BackendOpenCL, BackendCPU))
	}
	switch c.Device.PowerPreference {
	case "", "high-performance", "low-power":
	default:
		errs = append(errs, fmt.Errorf("device.power_preference %q: want high-performance or low-power", c.Device.PowerPreference))
	}
	if err := c.WorkgroupModel().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Timeout() <= 0 {
		errs = append(errs, fmt.Errorf("device.readback_timeout %q must be a positive duration", c.Device.ReadbackTimeout))
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q: want debug, info, warn or error", c.Logging.Level))
	}
	switch c.Logging.Encoding {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.encoding %q: want json or console", c.Logging.Encoding))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}
