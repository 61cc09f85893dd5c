package hopmap_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/EinfachAndy/hopmap"
)

func checkeq[K comparable, V comparable](cm *hopmap.HashMap[K, V], get func(k K) (V, bool), t *testing.T) {
	cm.Each(func(key K, val V) bool {
		if ov, ok := get(key); !ok {
			t.Fatalf("key %v should exist", key)
		} else if val != ov {
			t.Fatalf("value mismatch: %v != %v", val, ov)
		}
		v, found := cm.Get(key)
		if !found {
			t.Fatalf("double check failed for key %v", key)
		}
		if v != val {
			t.Fatalf("double check failed for value %v", v)
		}
		return false
	})
}

func TestCrossCheck(t *testing.T) {
	maps := map[string]*hopmap.HashMap[uint64, uint32]{
		"hopscotch": hopmap.MustNewHashMap(hopmap.Config[uint64, uint32]{Type: hopmap.Hopscotch}),
		"locked":    hopmap.MustNewHashMap(hopmap.Config[uint64, uint32]{Type: hopmap.Locked}),
	}

	const nops = 10000

	for name, m := range maps {
		t.Run(name, func(t *testing.T) {
			rnd := rand.New(rand.NewSource(1))
			stdm := make(map[uint64]uint32)

			for i := 0; i < nops; i++ {
				key := uint64(rnd.Intn(1000))
				val := rnd.Uint32()
				op := rnd.Intn(4)

				switch op {
				case 0:
					v1, ok1 := m.Get(key)
					v2, ok2 := stdm[key]
					if ok1 != ok2 || v1 != v2 {
						t.Fatalf("lookup failed")
					}
				case 1:
					// prioritize insert operation
					fallthrough
				case 2:
					_, wasIn := stdm[key]
					stdm[key] = val
					isNew, err := m.PutOrUpdate(key, val)
					if err != nil {
						t.Fatalf("put failed: %v", err)
					}
					if isNew == wasIn {
						t.Fatalf("PutOrUpdate returned wrong state")
					}

					v, found := m.Get(key)
					if !found {
						t.Fatalf("lookup failed after insert for key %d", key)
					}
					if v != val {
						t.Fatalf("values are not equal %d != %d", v, val)
					}
				case 3:
					var del uint64
					if len(stdm) == 0 {
						break
					}
					for k := range stdm {
						del = k
						break
					}
					delete(stdm, del)

					_, found := m.Get(del)
					if !found {
						t.Fatalf("lookup failed for key %d", del)
					}
					_, wasIn := m.Remove(del)
					if !wasIn {
						t.Fatalf("only deleted keys which are in")
					}
					_, found = m.Get(del)
					if found {
						t.Fatalf("key %d was not removed", del)
					}
				}

				if len(stdm) != m.Size() {
					t.Fatalf("len of maps are not equal %d != %d", len(stdm), m.Size())
				}
			}

			checkeq(m, func(k uint64) (uint32, bool) {
				v, ok := stdm[k]
				return v, ok
			}, t)
		})
	}
}

func Example() {
	m := hopmap.MustNewHashMap(hopmap.Config[string, int]{Type: hopmap.Hopscotch})
	m.Put("foo", 42)
	m.Put("bar", 13)

	fmt.Println(m.Get("foo"))
	fmt.Println(m.Get("baz"))

	m.Remove("foo")

	fmt.Println(m.Get("foo"))
	fmt.Println(m.Get("bar"))

	m.Clear()

	fmt.Println(m.Get("foo"))
	fmt.Println(m.Get("bar"))
	// Output:
	// 42 true
	// 0 false
	// 0 false
	// 13 true
	// 0 false
	// 0 false
}
