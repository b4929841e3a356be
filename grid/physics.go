package grid

import (
	"errors"
	"fmt"
	"math"
)

// Vacuum constants.
const (
	C0   = 3.0e8           // speed of light, m/s
	Eps0 = 8.854187817e-12 // F/m
	Mu0  = 1.2566370614e-6 // H/m
)

// MaxCourant is the 3D stability bound 1/sqrt(3).
var MaxCourant = 1 / math.Sqrt(3)

// ErrCourant is returned when the Courant number is outside (0, 1/sqrt(3)].
var ErrCourant = errors.New("courant number violates 3D stability bound")

// CheckCourant validates sc against MaxCourant.
func CheckCourant(sc float64) error {
	if !(sc > 0) || sc > MaxCourant {
		return fmt.Errorf("%w: Sc=%g, want 0 < Sc <= %.6f", ErrCourant, sc, MaxCourant)
	}
	return nil
}

// TimeStep derives dt = Sc * min(dx,dy,dz) / c0.
func TimeStep(g Grid, sc float64) (float64, error) {
	if err := g.Validate(); err != nil {
		return 0, err
	}
	if err := CheckCourant(sc); err != nil {
		return 0, err
	}
	return sc * g.MinSpacing() / C0, nil
}
