// Package source models the point excitation and the point probe.
package source

import (
	"errors"
	"fmt"
	"math"

	"github.com/openfluke/yee/grid"
)

var (
	// ErrOutOfBounds is returned when a source or probe cell lies outside the grid.
	ErrOutOfBounds = errors.New("point outside grid")
	// ErrNotElectric is returned when a source targets a magnetic component.
	ErrNotElectric = errors.New("source must drive an electric field component")
	// ErrInvalidWaveform is returned for a non-positive pulse width.
	ErrInvalidWaveform = errors.New("invalid waveform")
)

// Gaussian is exp(-((n-Delay)/Width)^2) in step-index space, peaking at
// exactly 1.0 when n == Delay.
type Gaussian struct {
	Delay float64
	Width float64
}

// At evaluates the pulse at step n.
func (p Gaussian) At(n int) float32 {
	t := (float64(n) - p.Delay) / p.Width
	return float32(math.Exp(-t * t))
}

// Validate rejects widths that would divide by zero or are not finite.
func (p Gaussian) Validate() error {
	if !(p.Width > 0) || math.IsInf(p.Width, 0) {
		return fmt.Errorf("%w: width %g must be positive", ErrInvalidWaveform, p.Width)
	}
	if math.IsNaN(p.Delay) || math.IsInf(p.Delay, 0) {
		return fmt.Errorf("%w: delay %g must be finite", ErrInvalidWaveform, p.Delay)
	}
	return nil
}

// Point is one cell of one field component.
type Point struct {
	Component grid.Component
	At        grid.Coord
}

// Validate checks the point lies inside g.
func (p Point) Validate(g grid.Grid) error {
	if !p.Component.Valid() {
		return fmt.Errorf("invalid component %d", int(p.Component))
	}
	if !g.Contains(p.At) {
		return fmt.Errorf("%w: %s%s not in [0,%d)x[0,%d)x[0,%d)", ErrOutOfBounds, p.Component, p.At, g.Nx, g.Ny, g.Nz)
	}
	return nil
}

// Index is the linear offset of the cell within its field array.
func (p Point) Index(g grid.Grid) int { return g.IndexOf(p.At) }

func (p Point) String() string { return p.Component.String() + p.At.String() }

// Source is a hard source: each step the waveform value replaces the
// field value at the cell.
type Source struct {
	Point
	Waveform Gaussian
}

// Validate checks the cell, the component and the waveform.
func (s Source) Validate(g grid.Grid) error {
	if err := s.Point.Validate(g); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if !s.Component.Electric() {
		return fmt.Errorf("source: %w (got %s)", ErrNotElectric, s.Component)
	}
	if err := s.Waveform.Validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	return nil
}

// Probe is a passive read of one cell after each step.
type Probe struct {
	Point
}

// Validate checks the probe cell.
func (p Probe) Validate(g grid.Grid) error {
	if err := p.Point.Validate(g); err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	return nil
}
