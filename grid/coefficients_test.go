package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreeSpaceCoefficients(t *testing.T) {
	g := Grid{Nx: 6, Ny: 5, Nz: 4, Dx: 1e-3, Dy: 1e-3, Dz: 1e-3}
	dt, err := TimeStep(g, 0.5)
	require.NoError(t, err)

	c, err := BuildCoefficients(g, dt, nil)
	require.NoError(t, err)
	require.Equal(t, g.Cells(), c.Len())
	require.Len(t, c.CB, g.Cells())
	require.Len(t, c.CP, g.Cells())
	require.Len(t, c.CQ, g.Cells())

	wantCB := float32(dt / Eps0)
	wantCQ := float32(dt / Mu0)
	assert.Greater(t, wantCB, float32(0))
	assert.Greater(t, wantCQ, float32(0))
	for i := 0; i < c.Len(); i++ {
		assert.Equal(t, float32(1), c.CA[i])
		assert.Equal(t, float32(1), c.CP[i])
		assert.Equal(t, wantCB, c.CB[i])
		assert.Equal(t, wantCQ, c.CQ[i])
	}
}

func TestLossyCoefficients(t *testing.T) {
	dt := 1e-12
	m := Material{EpsR: 4, MuR: 1, Sigma: 0.5, SigmaM: 0}
	ca, cb, cp, cq := m.Coefficients(dt)

	loss := 0.5 * dt / (2 * 4 * Eps0)
	assert.InDelta(t, (1-loss)/(1+loss), ca, 1e-12)
	assert.InDelta(t, dt/(4*Eps0)/(1+loss), cb, 1e-3)
	assert.Less(t, ca, 1.0)
	assert.Greater(t, ca, 0.0)
	assert.Equal(t, 1.0, cp)
	assert.InDelta(t, dt/Mu0, cq, 1e-12)
}

func TestBuildCoefficientsPerCell(t *testing.T) {
	g := Grid{Nx: 4, Ny: 4, Nz: 4, Dx: 1, Dy: 1, Dz: 1}
	inner := Material{EpsR: 2, MuR: 1}
	c, err := BuildCoefficients(g, 1e-9, func(p Coord) Material {
		if p.I >= 2 {
			return inner
		}
		return FreeSpace
	})
	require.NoError(t, err)
	assert.Equal(t, c.CB[g.Index(0, 0, 0)], 2*c.CB[g.Index(3, 0, 0)])
}

func TestBuildCoefficientsRejects(t *testing.T) {
	g := Grid{Nx: 2, Ny: 2, Nz: 2, Dx: 1, Dy: 1, Dz: 1}
	_, err := BuildUniform(g, 1e-9, Material{EpsR: 0, MuR: 1})
	assert.ErrorIs(t, err, ErrInvalidMaterial)
	_, err = BuildUniform(g, 1e-9, Material{EpsR: 1, MuR: 1, Sigma: -1})
	assert.ErrorIs(t, err, ErrInvalidMaterial)
	_, err = BuildUniform(g, 0, FreeSpace)
	assert.Error(t, err)
}
