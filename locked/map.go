// Package locked provides a chaining hashmap guarded by a single
// reader-writer lock. It trades the scalability of the hopscotch engine
// for dead-simple serial semantics, which makes it the reference
// implementation of the cross-check tests and a reasonable choice for
// low-contention workloads.
package locked

import (
	"fmt"
	"sync"

	"github.com/EinfachAndy/hopmap/shared"
)

type linkedList[K comparable, V any] struct {
	head *node[K, V]
}

type node[K comparable, V any] struct {
	next  *node[K, V]
	key   K
	value V
}

// Map is a hashmap where the elements are organized into buckets
// depending on their hash values and collisions are chained in a single
// linked list. All operations serialize on one RWMutex, readers among
// each other do not.
type Map[K comparable, V any] struct {
	mu      sync.RWMutex
	buckets []linkedList[K, V]
	hasher  shared.HashFn[K]
	// length stores the current inserted elements
	length uintptr
	// capMinus1 is used for a bitwise AND on the hash value,
	// because the size of the underlying array is a power of two value
	capMinus1 uintptr

	nextResize uintptr
	maxLoad    float32
}

// New creates a ready to use chaining hashmap with default settings.
func New[K comparable, V any]() *Map[K, V] {
	return NewWithHasher[K, V](shared.GetHasher[K]())
}

// NewWithHasher same as `New` but with a given hash function.
func NewWithHasher[K comparable, V any](hasher shared.HashFn[K]) *Map[K, V] {
	m := &Map[K, V]{
		hasher:  hasher,
		maxLoad: shared.DefaultMaxLoad,
	}
	m.Reserve(shared.DefaultSize)

	return m
}

//go:inline
func (m *Map[K, V]) search(key K, idx uintptr) *V {
	for current := m.buckets[idx].head; current != nil; current = current.next {
		if current.key == key {
			return &(current.value)
		}
	}
	return nil
}

// Get returns the value stored for this key, or false if not found.
func (m *Map[K, V]) Get(key K) (V, bool) {
	var v V

	m.mu.RLock()
	defer m.mu.RUnlock()

	ptr := m.search(key, uintptr(m.hasher(key))&m.capMinus1)
	if ptr != nil {
		return *ptr, true
	}

	return v, false
}

//go:inline
func (m *Map[K, V]) pushFront(head **node[K, V], newNode *node[K, V]) {
	newNode.next = *head
	*head = newNode
}

func (m *Map[K, V]) put(key K, val V, update bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.length >= m.nextResize {
		m.grow()
	}

	idx := uintptr(m.hasher(key)) & m.capMinus1

	ptr := m.search(key, idx)
	if ptr != nil {
		if update {
			*ptr = val
		}
		return false
	}

	m.length++
	m.pushFront(&(m.buckets[idx].head), &node[K, V]{key: key, value: val})

	return true
}

// Put binds the given key to the given value. An existing binding is
// left as it is (first writer wins, see `PutOrUpdate`).
// Returns true, if the element is a new item in the map.
func (m *Map[K, V]) Put(key K, val V) bool {
	return m.put(key, val, false)
}

// PutOrUpdate same as `Put`, but an existing binding is overwritten.
func (m *Map[K, V]) PutOrUpdate(key K, val V) bool {
	return m.put(key, val, true)
}

func (m *Map[K, V]) resize(n uintptr) {
	m.capMinus1 = n - 1
	oldBuckets := m.buckets
	m.buckets = make([]linkedList[K, V], n)
	m.nextResize = uintptr(float32(n) * m.maxLoad)

	for i := range oldBuckets {
		for current := oldBuckets[i].head; current != nil; {
			newElem := current
			current = current.next
			newElem.next = nil // unlink from old

			newIdx := uintptr(m.hasher(newElem.key)) & m.capMinus1
			m.pushFront(&(m.buckets[newIdx].head), newElem)
		}
	}
}

// Clear removes all key-value pairs from the map.
func (m *Map[K, V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.buckets {
		m.buckets[i].head = nil
	}

	m.length = 0
}

// Size returns the number of items in the map.
func (m *Map[K, V]) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return int(m.length)
}

// Load return the current load of the map.
func (m *Map[K, V]) Load() float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return float32(m.length) / float32(cap(m.buckets))
}

func (m *Map[K, V]) grow() {
	m.resize(uintptr(cap(m.buckets) * 2))
}

// Reserve sets the number of buckets to the most appropriate to contain
// at least n elements. If n is lower than that, the function may have no
// effect.
func (m *Map[K, V]) Reserve(n uintptr) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		needed = uintptr(float32(n) / m.maxLoad)
		newCap = uintptr(shared.NextPowerOf2(uint64(needed)))
	)

	if uintptr(cap(m.buckets)) < newCap {
		m.resize(newCap)
	}
}

// Remove removes the specified key-value pair from the map and returns
// the prior value, or false if there was no binding.
func (m *Map[K, V]) Remove(key K) (V, bool) {
	var zero V

	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		idx     = uintptr(m.hasher(key)) & m.capMinus1
		current = m.buckets[idx].head
		prev    *node[K, V]
	)

	// check head
	if current != nil && current.key == key {
		m.buckets[idx].head = current.next
		m.length--

		return current.value, true
	}

	// search for the key
	for current != nil && current.key != key {
		prev = current
		current = current.next
	}

	if current == nil {
		return zero, false // not found
	}

	// unlink
	prev.next = current.next
	m.length--

	return current.value, true
}

// Copy returns a copy of this map.
func (m *Map[K, V]) Copy() *Map[K, V] {
	newM := NewWithHasher[K, V](m.hasher)

	m.Each(func(k K, v V) bool {
		newM.Put(k, v)
		return false
	})

	return newM
}

// MaxLoad forces resizing if the ratio is reached.
// Useful values are in range [0.5-0.9].
// Returns ErrOutOfRange if `lf` is not in the open range (0.0,1.0).
func (m *Map[K, V]) MaxLoad(lf float32) error {
	if lf <= 0.0 || lf >= 1.0 {
		return fmt.Errorf("%f: %w", lf, shared.ErrOutOfRange)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.maxLoad = lf
	m.nextResize = uintptr(float32(cap(m.buckets)) * lf)

	return nil
}

// Each calls 'fn' on every key-value pair in the map in no particular
// order. If 'fn' returns true, the iteration stops. The lock is held for
// the whole iteration, 'fn' must not call back into the map.
func (m *Map[K, V]) Each(fn func(key K, val V) bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.buckets {
		for current := m.buckets[i].head; current != nil; current = current.next {
			if stop := fn(current.key, current.value); stop {
				// stop iteration
				return
			}
		}
	}
}
