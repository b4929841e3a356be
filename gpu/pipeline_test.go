package gpu

import (
	"testing"

	"github.com/openfluke/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfluke/yee/kernel"
)

func TestBindGroupLayoutEntriesFollowContract(t *testing.T) {
	entries := bindGroupLayoutEntries()
	require.Len(t, entries, len(kernel.Contract))

	want := []wgpu.BufferBindingType{
		wgpu.BufferBindingTypeUniform,
		wgpu.BufferBindingTypeReadOnlyStorage,
		wgpu.BufferBindingTypeReadOnlyStorage,
		wgpu.BufferBindingTypeReadOnlyStorage,
		wgpu.BufferBindingTypeStorage,
		wgpu.BufferBindingTypeStorage,
		wgpu.BufferBindingTypeStorage,
		wgpu.BufferBindingTypeReadOnlyStorage,
		wgpu.BufferBindingTypeReadOnlyStorage,
	}
	for i, e := range entries {
		assert.Equal(t, uint32(i), e.Binding)
		assert.Equal(t, wgpu.ShaderStageCompute, e.Visibility)
		assert.Equalf(t, want[i], e.Buffer.Type, "binding %d", i)
	}
}

func TestNewPipelinesBuildsBothHalves(t *testing.T) {
	c := openOrSkip(t)
	p, err := NewPipelines(c, kernel.DefaultWorkgroup)
	require.NoError(t, err)
	defer p.Release()

	for _, h := range kernel.Halves {
		assert.NotNilf(t, p.Pipeline(h), "%s pipeline", h)
	}
}
