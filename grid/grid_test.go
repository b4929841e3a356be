package grid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexOrdering(t *testing.T) {
	g := Grid{Nx: 4, Ny: 3, Nz: 2, Dx: 1, Dy: 1, Dz: 1}
	assert.Equal(t, 0, g.Index(0, 0, 0))
	assert.Equal(t, 1, g.Index(1, 0, 0))
	assert.Equal(t, 4, g.Index(0, 1, 0))
	assert.Equal(t, 12, g.Index(0, 0, 1))
	assert.Equal(t, g.Cells()-1, g.Index(3, 2, 1))

	for idx := 0; idx < g.Cells(); idx++ {
		assert.Equal(t, idx, g.IndexOf(g.CoordOf(idx)))
	}
}

func TestContains(t *testing.T) {
	g := Grid{Nx: 8, Ny: 8, Nz: 8, Dx: 1, Dy: 1, Dz: 1}
	assert.True(t, g.Contains(Coord{0, 0, 0}))
	assert.True(t, g.Contains(Coord{7, 7, 7}))
	assert.False(t, g.Contains(Coord{8, 0, 0}))
	assert.False(t, g.Contains(Coord{0, -1, 0}))
	assert.False(t, g.Contains(Coord{0, 0, 8}))
}

func TestNewRejectsBadGrid(t *testing.T) {
	_, err := New(0, 4, 4, 1e-3, 1e-3, 1e-3)
	assert.ErrorIs(t, err, ErrInvalidGrid)
	_, err = New(4, 4, 4, 1e-3, 0, 1e-3)
	assert.ErrorIs(t, err, ErrInvalidGrid)
	_, err = New(4, 4, 4, 1e-3, math.NaN(), 1e-3)
	assert.ErrorIs(t, err, ErrInvalidGrid)
	_, err = New(1<<21, 1<<21, 1<<21, 1e-3, 1e-3, 1e-3)
	assert.ErrorIs(t, err, ErrInvalidGrid)
	_, err = New(math.MaxInt, 2, 1, 1e-3, 1e-3, 1e-3)
	assert.ErrorIs(t, err, ErrInvalidGrid)

	g, err := New(4, 5, 6, 1e-3, 2e-3, 3e-3)
	require.NoError(t, err)
	assert.Equal(t, 1e-3, g.MinSpacing())
	assert.Equal(t, uint64(4*5*6*4), g.Bytes())
}

func TestValidateCellBound(t *testing.T) {
	g := Grid{Nx: 65536, Ny: 65535, Nz: 1, Dx: 1, Dy: 1, Dz: 1}
	assert.NoError(t, g.Validate())
	g.Ny = 65536
	assert.ErrorIs(t, g.Validate(), ErrInvalidGrid)
}

func TestTimeStep(t *testing.T) {
	g := Grid{Nx: 64, Ny: 64, Nz: 64, Dx: 1e-3, Dy: 1e-3, Dz: 1e-3}
	dt, err := TimeStep(g, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.5*1e-3/C0, dt, 1e-24)

	_, err = TimeStep(g, 0.6)
	assert.ErrorIs(t, err, ErrCourant)
	_, err = TimeStep(g, 0)
	assert.ErrorIs(t, err, ErrCourant)
	_, err = TimeStep(g, MaxCourant)
	assert.NoError(t, err)
}

func TestParseComponent(t *testing.T) {
	for _, c := range Components {
		got, err := ParseComponent(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	c, err := ParseComponent(" EZ ")
	require.NoError(t, err)
	assert.Equal(t, Ez, c)
	assert.True(t, Ez.Electric())
	assert.False(t, Hx.Electric())

	_, err = ParseComponent("bz")
	assert.Error(t, err)
}
