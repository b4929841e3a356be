//go:build !opencl

package opencl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWithoutTag(t *testing.T) {
	s, err := New(nil, 0, nil)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrUnavailable)
}
