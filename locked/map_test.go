package locked_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/EinfachAndy/hopmap/locked"
	"github.com/EinfachAndy/hopmap/shared"
)

func TestCrossCheck(t *testing.T) {
	m := locked.New[uint64, uint32]()
	stdm := make(map[uint64]uint32)

	rnd := rand.New(rand.NewSource(7))

	const nops = 10000
	for i := 0; i < nops; i++ {
		key := uint64(rnd.Intn(1000))
		val := rnd.Uint32()

		switch rnd.Intn(3) {
		case 0:
			v1, ok1 := m.Get(key)
			v2, ok2 := stdm[key]
			if ok1 != ok2 || v1 != v2 {
				t.Fatalf("lookup mismatch for key %d", key)
			}
		case 1:
			_, wasIn := stdm[key]
			stdm[key] = val
			isNew := m.PutOrUpdate(key, val)
			if isNew == wasIn {
				t.Fatalf("PutOrUpdate returned wrong state for key %d", key)
			}
		case 2:
			want, wasIn := stdm[key]
			delete(stdm, key)

			v, ok := m.Remove(key)
			if ok != wasIn {
				t.Fatalf("remove state mismatch for key %d", key)
			}
			if ok && v != want {
				t.Fatalf("remove returned %d, want %d", v, want)
			}
		}

		if len(stdm) != m.Size() {
			t.Fatalf("len of maps are not equal %d != %d", len(stdm), m.Size())
		}
	}
}

func TestFirstWriterWins(t *testing.T) {
	m := locked.New[string, int]()

	assert.True(t, m.Put("a", 1))
	assert.False(t, m.Put("a", 2))

	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	assert.False(t, m.PutOrUpdate("a", 3))
	v, _ = m.Get("a")
	assert.Equal(t, 3, v)
}

func TestMaxLoad(t *testing.T) {
	m := locked.New[uint64, uint64]()

	assert.ErrorIs(t, m.MaxLoad(0.0), shared.ErrOutOfRange)
	assert.ErrorIs(t, m.MaxLoad(1.0), shared.ErrOutOfRange)
	assert.NoError(t, m.MaxLoad(0.5))
}

func TestCopy(t *testing.T) {
	orig := locked.New[uint64, uint32]()
	for i := uint32(0); i < 10; i++ {
		orig.Put(uint64(i), i)
	}

	cpy := orig.Copy()
	cpy.PutOrUpdate(0, 42)

	if v, _ := cpy.Get(0); v != 42 {
		t.Fatal("didn't get 42")
	}
	if v, _ := orig.Get(0); v != 0 {
		t.Fatal("manipulated origin")
	}
	assert.Equal(t, orig.Size(), cpy.Size())
}

func TestParallelAccess(t *testing.T) {
	m := locked.New[uint64, uint64]()

	const (
		workers = 4
		keys    = 1000
	)

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		base := uint64(w) * keys
		g.Go(func() error {
			for i := uint64(0); i < keys; i++ {
				m.Put(base+i, base+i)
				if v, ok := m.Get(base + i); !ok || v != base+i {
					t.Errorf("lost key %d", base+i)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, workers*keys, m.Size())
}
