package shared_test

import (
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"

	"github.com/EinfachAndy/hopmap/shared"
)

func TestHasherDeterminism(t *testing.T) {
	h64 := shared.GetHasher[uint64]()
	assert.Equal(t, h64(42), h64(42))
	assert.NotEqual(t, h64(42), h64(43))

	h32 := shared.GetHasher[int32]()
	assert.Equal(t, h32(-7), h32(-7))

	hs := shared.GetHasher[string]()
	assert.Equal(t, hs("foo"), hs("foo"))
	assert.NotEqual(t, hs("foo"), hs("bar"))
}

func TestStringHasherIsXXHash(t *testing.T) {
	hs := shared.GetHasher[string]()
	assert.Equal(t, xxhash.Sum64String("hopscotch"), hs("hopscotch"))
}

func TestHasherLowBitDistribution(t *testing.T) {
	// the low bits route to a segment, so sequential keys must not all
	// land in the same one
	h := shared.GetHasher[uint64]()
	seen := make(map[uint64]struct{})
	for i := uint64(0); i < 64; i++ {
		seen[h(i)&15] = struct{}{}
	}
	assert.Greater(t, len(seen), 8)
}

func TestUnsupportedKeyTypePanics(t *testing.T) {
	assert.Panics(t, func() {
		shared.GetHasher[[]byte]()
	})
}
