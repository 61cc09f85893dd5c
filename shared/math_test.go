package shared_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/EinfachAndy/hopmap/shared"
)

func TestNextPowerOfTwo(t *testing.T) {
	assert.Equal(t, uint64(0), shared.NextPowerOf2(0))
	assert.Equal(t, uint64(1), shared.NextPowerOf2(1))
	assert.Equal(t, uint64(2), shared.NextPowerOf2(2))
	assert.Equal(t, uint64(4), shared.NextPowerOf2(3))
	assert.Equal(t, uint64(4), shared.NextPowerOf2(4))
	assert.Equal(t, uint64(8), shared.NextPowerOf2(5))
	assert.Equal(t, uint64(8), shared.NextPowerOf2(7))
	assert.Equal(t, uint64(8), shared.NextPowerOf2(8))
	assert.Equal(t, uint64(16), shared.NextPowerOf2(9))
	assert.Equal(t, uint64(16), shared.NextPowerOf2(15))
	assert.Equal(t, uint64(16), shared.NextPowerOf2(16))
	assert.Equal(t, uint64(1024), shared.NextPowerOf2(1000))
	assert.Equal(t, uint64(2048), shared.NextPowerOf2(2000))
}

func TestIsPowerOfTwo(t *testing.T) {
	assert.False(t, shared.IsPowerOfTwo(0))
	assert.True(t, shared.IsPowerOfTwo(1))
	assert.True(t, shared.IsPowerOfTwo(2))
	assert.False(t, shared.IsPowerOfTwo(3))
	assert.True(t, shared.IsPowerOfTwo(4))
	assert.False(t, shared.IsPowerOfTwo(6))
	assert.True(t, shared.IsPowerOfTwo(1<<32))
	assert.False(t, shared.IsPowerOfTwo(1<<32+1))
}
