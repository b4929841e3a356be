package grid

import (
	"errors"
	"fmt"
)

// ErrInvalidMaterial is returned for non-physical material parameters.
var ErrInvalidMaterial = errors.New("invalid material")

// Material holds the per-cell properties the update coefficients derive from.
type Material struct {
	EpsR   float64 // relative permittivity
	MuR    float64 // relative permeability
	Sigma  float64 // electric conductivity, S/m
	SigmaM float64 // magnetic loss, ohm/m
}

// FreeSpace is vacuum: eps_r = mu_r = 1, no loss.
var FreeSpace = Material{EpsR: 1, MuR: 1}

// Validate rejects non-positive eps_r/mu_r and negative losses.
func (m Material) Validate() error {
	if !(m.EpsR > 0) || !(m.MuR > 0) {
		return fmt.Errorf("%w: eps_r=%g mu_r=%g must be positive", ErrInvalidMaterial, m.EpsR, m.MuR)
	}
	if m.Sigma < 0 || m.SigmaM < 0 {
		return fmt.Errorf("%w: sigma=%g sigma_m=%g must not be negative", ErrInvalidMaterial, m.Sigma, m.SigmaM)
	}
	return nil
}

// Coefficients returns CA, CB, CP, CQ for time step dt.
//
//	CA = (1 - sigma dt/2eps) / (1 + sigma dt/2eps)
//	CB = (dt/eps) / (1 + sigma dt/2eps)
//
// and CP, CQ the same with sigma_m and mu.
func (m Material) Coefficients(dt float64) (ca, cb, cp, cq float64) {
	eps := m.EpsR * Eps0
	mu := m.MuR * Mu0
	le := m.Sigma * dt / (2 * eps)
	lm := m.SigmaM * dt / (2 * mu)
	ca = (1 - le) / (1 + le)
	cb = (dt / eps) / (1 + le)
	cp = (1 - lm) / (1 + lm)
	cq = (dt / mu) / (1 + lm)
	return ca, cb, cp, cq
}

// Coefficients are the four maps laid out exactly like a field array.
// They are uploaded once and never change during a run.
type Coefficients struct {
	CA, CB []float32 // E update
	CP, CQ []float32 // H update
}

// BuildCoefficients evaluates materialAt for every cell. A nil materialAt
// means free space everywhere.
func BuildCoefficients(g Grid, dt float64, materialAt func(Coord) Material) (*Coefficients, error) {
	if materialAt == nil {
		return BuildUniform(g, dt, FreeSpace)
	}
	c, err := allocCoefficients(g, dt)
	if err != nil {
		return nil, err
	}
	for k := 0; k < g.Nz; k++ {
		for j := 0; j < g.Ny; j++ {
			for i := 0; i < g.Nx; i++ {
				m := materialAt(Coord{I: i, J: j, K: k})
				if err := m.Validate(); err != nil {
					return nil, fmt.Errorf("cell (%d,%d,%d): %w", i, j, k, err)
				}
				ca, cb, cp, cq := m.Coefficients(dt)
				idx := g.Index(i, j, k)
				c.CA[idx], c.CB[idx] = float32(ca), float32(cb)
				c.CP[idx], c.CQ[idx] = float32(cp), float32(cq)
			}
		}
	}
	return c, nil
}

// BuildUniform fills all four maps from a single material.
func BuildUniform(g Grid, dt float64, m Material) (*Coefficients, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	c, err := allocCoefficients(g, dt)
	if err != nil {
		return nil, err
	}
	ca, cb, cp, cq := m.Coefficients(dt)
	for i := range c.CA {
		c.CA[i], c.CB[i] = float32(ca), float32(cb)
		c.CP[i], c.CQ[i] = float32(cp), float32(cq)
	}
	return c, nil
}

func allocCoefficients(g Grid, dt float64) (*Coefficients, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if !(dt > 0) {
		return nil, fmt.Errorf("time step %g must be positive", dt)
	}
	n := g.Cells()
	return &Coefficients{
		CA: make([]float32, n),
		CB: make([]float32, n),
		CP: make([]float32, n),
		CQ: make([]float32, n),
	}, nil
}

// Len is the number of cells each map covers.
func (c *Coefficients) Len() int { return len(c.CA) }
