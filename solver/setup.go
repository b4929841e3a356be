// Package solver drives the FDTD time loop over a compute backend. The
// engine owns the step protocol; backends own the field memory.
package solver

import (
	"fmt"

	"github.com/openfluke/yee/config"
	"github.com/openfluke/yee/grid"
	"github.com/openfluke/yee/kernel"
	"github.com/openfluke/yee/source"
)

// Setup is everything a backend needs to allocate a run. It is derived once
// from a validated config and never changes afterwards.
type Setup struct {
	Grid         grid.Grid
	Courant      float64
	Dt           float64 // seconds
	Steps        int
	Material     grid.Material
	Coefficients *grid.Coefficients
	Source       source.Source
	Probe        source.Probe
	Workgroup    kernel.Workgroup
}

// NewSetup validates cfg and derives the time step and coefficient maps.
func NewSetup(cfg *config.Config) (*Setup, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := cfg.GridModel()
	dt, err := grid.TimeStep(g, cfg.Grid.Courant)
	if err != nil {
		return nil, err
	}
	m := cfg.MaterialModel()
	coefs, err := grid.BuildUniform(g, dt, m)
	if err != nil {
		return nil, fmt.Errorf("build coefficients: %w", err)
	}
	return &Setup{
		Grid:         g,
		Courant:      cfg.Grid.Courant,
		Dt:           dt,
		Steps:        cfg.Time.Steps,
		Material:     m,
		Coefficients: coefs,
		Source:       cfg.SourceModel(),
		Probe:        cfg.ProbeModel(),
		Workgroup:    cfg.WorkgroupModel(),
	}, nil
}

// SourceIndex is the linear offset of the source cell.
func (s *Setup) SourceIndex() int { return s.Source.Index(s.Grid) }

// ProbeIndex is the linear offset of the probe cell.
func (s *Setup) ProbeIndex() int { return s.Probe.Index(s.Grid) }
