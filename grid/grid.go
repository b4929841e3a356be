// Package grid defines the Yee lattice the solver runs on: cell counts,
// spacing, linear indexing of the field arrays and the material coefficient
// maps derived from it.
package grid

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidGrid is returned for non-positive dimensions or spacings.
var ErrInvalidGrid = errors.New("invalid grid")

// MaxCells bounds Nx*Ny*Nz so every linear index fits a u32 kernel parameter.
const MaxCells = math.MaxUint32

// Grid is fixed for the lifetime of a run. Changing any field means every
// buffer and binding set built from it has to be rebuilt.
type Grid struct {
	Nx, Ny, Nz int
	Dx, Dy, Dz float64 // metres
}

// New validates and returns a grid.
func New(nx, ny, nz int, dx, dy, dz float64) (Grid, error) {
	g := Grid{Nx: nx, Ny: ny, Nz: nz, Dx: dx, Dy: dy, Dz: dz}
	return g, g.Validate()
}

// Validate reports whether the dimensions and spacings are usable.
func (g Grid) Validate() error {
	if g.Nx <= 0 || g.Ny <= 0 || g.Nz <= 0 {
		return fmt.Errorf("%w: dimensions %dx%dx%d must be positive", ErrInvalidGrid, g.Nx, g.Ny, g.Nz)
	}
	if _, ok := cellCount(g.Nx, g.Ny, g.Nz); !ok {
		return fmt.Errorf("%w: dimensions %dx%dx%d exceed %d cells", ErrInvalidGrid, g.Nx, g.Ny, g.Nz, uint64(MaxCells))
	}
	for _, d := range []float64{g.Dx, g.Dy, g.Dz} {
		if !(d > 0) || math.IsInf(d, 0) {
			return fmt.Errorf("%w: spacing (%g, %g, %g) must be positive and finite", ErrInvalidGrid, g.Dx, g.Dy, g.Dz)
		}
	}
	return nil
}

// cellCount multiplies positive dimensions, stopping before the product
// passes MaxCells.
func cellCount(dims ...int) (uint64, bool) {
	n := uint64(1)
	for _, d := range dims {
		if uint64(d) > MaxCells/n {
			return 0, false
		}
		n *= uint64(d)
	}
	return n, true
}

// Cells is the number of scalars in one field array.
func (g Grid) Cells() int { return g.Nx * g.Ny * g.Nz }

// Bytes is the size of one float32 field array.
func (g Grid) Bytes() uint64 { return uint64(g.Cells()) * 4 }

// Index linearizes (i, j, k) as i + Nx*(j + Ny*k).
func (g Grid) Index(i, j, k int) int {
	return i + g.Nx*(j+g.Ny*k)
}

// IndexOf is Index for a Coord.
func (g Grid) IndexOf(c Coord) int { return g.Index(c.I, c.J, c.K) }

// CoordOf inverts Index.
func (g Grid) CoordOf(idx int) Coord {
	i := idx % g.Nx
	j := (idx / g.Nx) % g.Ny
	k := idx / (g.Nx * g.Ny)
	return Coord{I: i, J: j, K: k}
}

// Contains reports whether c lies in [0,Nx)x[0,Ny)x[0,Nz).
func (g Grid) Contains(c Coord) bool {
	return c.I >= 0 && c.I < g.Nx &&
		c.J >= 0 && c.J < g.Ny &&
		c.K >= 0 && c.K < g.Nz
}

// Center returns the cell at (Nx/2, Ny/2, Nz/2).
func (g Grid) Center() Coord { return Coord{I: g.Nx / 2, J: g.Ny / 2, K: g.Nz / 2} }

// MinSpacing is the smallest of Dx, Dy, Dz.
func (g Grid) MinSpacing() float64 { return math.Min(g.Dx, math.Min(g.Dy, g.Dz)) }

// InvSpacing returns 1/Dx, 1/Dy, 1/Dz in the precision the kernels use.
func (g Grid) InvSpacing() (float32, float32, float32) {
	return float32(1 / g.Dx), float32(1 / g.Dy), float32(1 / g.Dz)
}

func (g Grid) String() string {
	return fmt.Sprintf("%dx%dx%d (%d cells, d=%gx%gx%g m)", g.Nx, g.Ny, g.Nz, g.Cells(), g.Dx, g.Dy, g.Dz)
}

// Coord addresses one cell.
type Coord struct {
	I, J, K int
}

// Offset returns c shifted by (di, dj, dk).
func (c Coord) Offset(di, dj, dk int) Coord {
	return Coord{I: c.I + di, J: c.J + dj, K: c.K + dk}
}

func (c Coord) String() string { return fmt.Sprintf("(%d,%d,%d)", c.I, c.J, c.K) }
