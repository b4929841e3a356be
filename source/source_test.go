package source

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openfluke/yee/grid"
)

func TestGaussianPeak(t *testing.T) {
	p := Gaussian{Delay: 40, Width: 20}
	assert.Equal(t, float32(1), p.At(40))
	assert.Less(t, p.At(0), float32(0.02))
	assert.Greater(t, p.At(0), float32(0.018))
}

func TestGaussianSymmetry(t *testing.T) {
	p := Gaussian{Delay: 40, Width: 20}
	for d := 0; d <= 40; d++ {
		assert.Equal(t, p.At(40-d), p.At(40+d), "d=%d", d)
	}
	for n := 1; n < 80; n++ {
		if n <= 40 {
			assert.GreaterOrEqual(t, p.At(n), p.At(n-1))
		} else {
			assert.LessOrEqual(t, p.At(n), p.At(n-1))
		}
	}
}

func TestGaussianValidate(t *testing.T) {
	assert.NoError(t, Gaussian{Delay: 40, Width: 20}.Validate())
	assert.ErrorIs(t, Gaussian{Delay: 40}.Validate(), ErrInvalidWaveform)
	assert.ErrorIs(t, Gaussian{Delay: 40, Width: -1}.Validate(), ErrInvalidWaveform)
}

func TestPointBounds(t *testing.T) {
	g := grid.Grid{Nx: 16, Ny: 16, Nz: 16, Dx: 1, Dy: 1, Dz: 1}
	src := Source{Point: Point{Component: grid.Ez, At: g.Center()}, Waveform: Gaussian{Delay: 40, Width: 20}}
	assert.NoError(t, src.Validate(g))

	src.At = grid.Coord{I: 16, J: 0, K: 0}
	assert.ErrorIs(t, src.Validate(g), ErrOutOfBounds)

	src.At = g.Center()
	src.Component = grid.Hz
	assert.ErrorIs(t, src.Validate(g), ErrNotElectric)

	pr := Probe{Point{Component: grid.Hy, At: grid.Coord{I: 3, J: -1, K: 2}}}
	assert.ErrorIs(t, pr.Validate(g), ErrOutOfBounds)
	pr.At.J = 15
	assert.NoError(t, pr.Validate(g))
	assert.Equal(t, g.Index(3, 15, 2), pr.Index(g))
}
