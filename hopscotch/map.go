// Package hopscotch implements a concurrent hashmap based on the
// hopscotch scheme of Herlihy, Shavit and Tzafrir. Keys are routed by
// the low bits of their hash to one of a power-of-two number of
// segments; collisions within a segment are managed inside a limited
// neighborhood, tracked as a bitmap on the home bucket. Put and Remove
// serialize per segment on a mutex, Get never blocks: it snapshots the
// segment's displacement timestamp, walks the neighborhood and retries a
// bounded number of times if a displacement reshuffled the segment
// underneath it.
package hopscotch

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/EinfachAndy/hopmap/shared"
)

// Config carries the construction parameters of a Map.
type Config[K comparable, V any] struct {
	// Segments is the number of lock striped segments.
	// Must be a power of two. If unset `shared.DefaultSegments` is used.
	Segments uint
	// BucketsPerSegment is the ring size of one segment.
	// Must be a power of two. If unset `shared.DefaultBucketsPerSegment`
	// is used.
	BucketsPerSegment uint
	// HopRange is the neighborhood size, in range [1,64]. Every key
	// resides within HopRange-1 buckets of its home bucket, which bounds
	// the lookup cost. If unset `shared.DefaultHopRange` is used, capped
	// to BucketsPerSegment.
	HopRange uint
	// AddRange is the linear probe distance searched for a free bucket
	// on insert, in range [HopRange,BucketsPerSegment]. If unset the
	// full segment is probed.
	AddRange uint
	// MaxTries bounds the retries of an optimistic lookup that raced
	// with a displacement. If unset `shared.DefaultMaxTries` is used.
	MaxTries uint
	// MaxBucketsPerSegment bounds growth. Zero means unbounded; a
	// non-zero bound must be a power of two >= BucketsPerSegment. With
	// the bound reached, inserts that find no free neighborhood slot
	// fail with `shared.ErrCapacityExhausted`.
	MaxBucketsPerSegment uint
	// Hasher that is used. Must be configured for complex data types.
	// If unset a default hasher is used for golang basic types.
	// The low bits select the segment, so the function must mix the
	// whole word well.
	Hasher shared.HashFn[K]
}

// Map is a concurrent hopscotch hashmap. The zero value is not usable,
// use one of the constructors.
type Map[K comparable, V any] struct {
	table    atomic.Pointer[table[K, V]]
	hasher   shared.HashFn[K]
	maxTries uint
	// maxBuckets caps the per segment ring size, 0 means unbounded
	maxBuckets uint
	// growMu serializes growth, Clear and Dispose
	growMu sync.Mutex
}

// New creates a ready to use concurrent hopscotch map with default
// settings.
func New[K comparable, V any]() *Map[K, V] {
	return NewWithHasher[K, V](shared.GetHasher[K]())
}

// NewWithHasher same as `New` but with a given hash function.
func NewWithHasher[K comparable, V any](hasher shared.HashFn[K]) *Map[K, V] {
	m, err := NewWithConfig(Config[K, V]{Hasher: hasher})
	if err != nil {
		// the default geometry is valid
		panic(err.Error())
	}
	return m
}

// NewWithConfig creates a map from the given configuration. Violated
// preconditions are reported as `shared.ErrInvalidConfiguration`.
func NewWithConfig[K comparable, V any](cfg Config[K, V]) (*Map[K, V], error) {
	if cfg.Segments == 0 {
		cfg.Segments = shared.DefaultSegments
	}
	if cfg.BucketsPerSegment == 0 {
		cfg.BucketsPerSegment = shared.DefaultBucketsPerSegment
	}
	if cfg.HopRange == 0 {
		cfg.HopRange = shared.DefaultHopRange
		if cfg.HopRange > cfg.BucketsPerSegment {
			cfg.HopRange = cfg.BucketsPerSegment
		}
	}
	if cfg.AddRange == 0 {
		cfg.AddRange = cfg.BucketsPerSegment
	}
	if cfg.MaxTries == 0 {
		cfg.MaxTries = shared.DefaultMaxTries
	}
	if cfg.Hasher == nil {
		cfg.Hasher = shared.GetHasher[K]()
	}

	if !shared.IsPowerOfTwo(uint64(cfg.Segments)) {
		return nil, fmt.Errorf("%d segments: %w", cfg.Segments, shared.ErrInvalidConfiguration)
	}
	if !shared.IsPowerOfTwo(uint64(cfg.BucketsPerSegment)) {
		return nil, fmt.Errorf("%d buckets per segment: %w", cfg.BucketsPerSegment, shared.ErrInvalidConfiguration)
	}
	if cfg.HopRange > maxHopRange {
		return nil, fmt.Errorf("hop range %d: %w", cfg.HopRange, shared.ErrInvalidConfiguration)
	}
	if cfg.AddRange < cfg.HopRange || cfg.AddRange > cfg.BucketsPerSegment {
		return nil, fmt.Errorf("add range %d: %w", cfg.AddRange, shared.ErrInvalidConfiguration)
	}
	if cfg.MaxBucketsPerSegment != 0 &&
		(!shared.IsPowerOfTwo(uint64(cfg.MaxBucketsPerSegment)) ||
			cfg.MaxBucketsPerSegment < cfg.BucketsPerSegment) {
		return nil, fmt.Errorf("max %d buckets per segment: %w", cfg.MaxBucketsPerSegment, shared.ErrInvalidConfiguration)
	}

	m := &Map[K, V]{
		hasher:     cfg.Hasher,
		maxTries:   cfg.MaxTries,
		maxBuckets: cfg.MaxBucketsPerSegment,
	}
	m.table.Store(newTable[K, V](cfg.Segments, cfg.BucketsPerSegment, cfg.HopRange, cfg.AddRange))

	return m, nil
}

// Get returns the value stored for this key, or false if there is no
// such value. It never blocks on a segment lock. If a concurrent
// displacement reshuffles the segment during the walk, the scan is
// repeated, up to MaxTries scans in all; with equal timestamps bracketing a
// missing scan, absence is authoritative.
func (m *Map[K, V]) Get(key K) (V, bool) {
	var (
		hkey = m.hasher(key)
		t    = m.table.Load()
		seg  = t.segmentFor(hkey)
		home = t.homeIdx(hkey)
		zero V
	)

	for try := uint(0); ; {
		ts := seg.timestamp.Load()

		if e, _, ok := t.scan(seg, home, hkey); ok {
			return e.val, true
		}

		try++
		if try >= m.maxTries || seg.timestamp.Load() == ts {
			return zero, false
		}
	}
}

// Put binds the given key to the given value. If the key is already
// bound, the binding is left as it is (first writer wins, see
// `PutOrUpdate`). Returns true if the element is a new item in the map.
// A put that cannot be placed grows the table; with a growth bound
// configured and reached it fails with `shared.ErrCapacityExhausted`.
func (m *Map[K, V]) Put(key K, val V) (bool, error) {
	return m.insert(key, val, false)
}

// PutOrUpdate same as `Put`, but an existing binding is overwritten with
// the new value.
func (m *Map[K, V]) PutOrUpdate(key K, val V) (bool, error) {
	return m.insert(key, val, true)
}

func (m *Map[K, V]) insert(key K, val V, update bool) (bool, error) {
	hkey := m.hasher(key)

	for {
		t := m.table.Load()
		seg := t.segmentFor(hkey)

		seg.lock.Lock()
		if m.table.Load() != t {
			// the table grew while we queued on the lock
			seg.lock.Unlock()
			continue
		}

		home := t.homeIdx(hkey)

		// bail out if the entry already exists
		if _, off, ok := t.scan(seg, home, hkey); ok {
			if update {
				idx := (home + uint64(off)) & t.bucketMask
				seg.buckets[idx].ent.Store(&entry[K, V]{hkey: hkey, key: key, val: val})
			}
			seg.lock.Unlock()
			return false, nil
		}

		if t.emplace(seg, home, &entry[K, V]{hkey: hkey, key: key, val: val}) {
			seg.count.Inc()
			seg.lock.Unlock()
			return true, nil
		}

		seg.lock.Unlock()

		if err := m.grow(t); err != nil {
			return false, err
		}
	}
}

// Remove unbinds the key and returns the prior value, or false if there
// is no such binding.
func (m *Map[K, V]) Remove(key K) (V, bool) {
	var (
		hkey = m.hasher(key)
		zero V
	)

	for {
		t := m.table.Load()
		seg := t.segmentFor(hkey)

		seg.lock.Lock()
		if m.table.Load() != t {
			seg.lock.Unlock()
			continue
		}

		e, off, ok := t.scan(seg, t.homeIdx(hkey), hkey)
		if !ok {
			seg.lock.Unlock()
			return zero, false
		}

		t.unlink(seg, t.homeIdx(hkey), off)
		seg.lock.Unlock()

		return e.val, true
	}
}

// grow replaces the current table with one of doubled per-segment
// capacity and rehashes all live bindings. old is the snapshot the
// caller failed on; if the table has moved on since, the caller simply
// retries on the newer one.
func (m *Map[K, V]) grow(old *table[K, V]) error {
	m.growMu.Lock()
	defer m.growMu.Unlock()

	cur := m.table.Load()
	if cur != old {
		// another writer already grew the table
		return nil
	}

	// freeze every segment. Writers queued on these locks re-validate
	// the table pointer after acquisition and restart on the new table.
	// Readers keep walking the frozen snapshot, which stays intact.
	for i := range cur.segments {
		cur.segments[i].lock.Lock()
	}
	defer func() {
		for i := range cur.segments {
			cur.segments[i].lock.Unlock()
		}
	}()

	nBuckets := cur.nBuckets
	for {
		nBuckets *= 2
		if m.maxBuckets != 0 && nBuckets > m.maxBuckets {
			return fmt.Errorf("%d buckets per segment: %w", cur.nBuckets, shared.ErrCapacityExhausted)
		}

		addRange := cur.addRange
		if addRange < nBuckets {
			// probing less than the ring after growth keeps the old
			// clustering failure mode alive for no gain
			addRange = nBuckets
		}

		next := newTable[K, V](uint(len(cur.segments)), nBuckets, cur.hopRange, addRange)
		if rehash(cur, next) {
			m.table.Store(next)
			return nil
		}

		// pathologically clustered hashes, double again
	}
}

// rehash re-emplaces every live entry of src into the private dst table.
// Entries keep their hashed key, so the hash function is not consulted
// again. Returns false if some entry could not be placed at this size.
func rehash[K comparable, V any](src, dst *table[K, V]) bool {
	for i := range src.segments {
		seg := &src.segments[i]
		for b := range seg.buckets {
			e := seg.buckets[b].ent.Load()
			if e == nil {
				continue
			}

			nseg := dst.segmentFor(e.hkey)
			if !dst.emplace(nseg, dst.homeIdx(e.hkey), e) {
				return false
			}
			nseg.count.Inc()
		}
	}

	return true
}

// Size returns the number of items in the map.
func (m *Map[K, V]) Size() int {
	var (
		t = m.table.Load()
		n uint64
	)

	for i := range t.segments {
		n += t.segments[i].count.Load()
	}

	return int(n)
}

// Cap returns the current number of buckets over all segments.
func (m *Map[K, V]) Cap() int {
	t := m.table.Load()
	return len(t.segments) * int(t.nBuckets)
}

// Load return the current load of the map.
func (m *Map[K, V]) Load() float32 {
	return float32(m.Size()) / float32(m.Cap())
}

// Each calls 'fn' on every key-value pair in the map in no particular
// order. If 'fn' returns true, the iteration stops. The iteration is
// weakly consistent: it runs without locks against a snapshot of the
// segment array, concurrent updates may or may not be observed and a key
// in flight between two buckets may be visited twice.
func (m *Map[K, V]) Each(fn func(key K, val V) bool) {
	t := m.table.Load()

	for i := range t.segments {
		seg := &t.segments[i]
		for b := range seg.buckets {
			if e := seg.buckets[b].ent.Load(); e != nil {
				if stop := fn(e.key, e.val); stop {
					// stop iteration
					return
				}
			}
		}
	}
}

// Clear removes all key-value pairs from the map. Capacity is retained.
func (m *Map[K, V]) Clear() {
	m.growMu.Lock()
	defer m.growMu.Unlock()

	t := m.table.Load()
	for i := range t.segments {
		seg := &t.segments[i]

		seg.lock.Lock()
		for b := range seg.buckets {
			seg.buckets[b].ent.Store(nil)
			seg.buckets[b].hopInfo.Store(0)
		}
		seg.count.Store(0)
		seg.lock.Unlock()
	}
}

// Dispose detaches the segments from the map. The map must not be used
// afterwards; any operation on a disposed map panics. Operations still
// in flight on the old segment array are unaffected.
func (m *Map[K, V]) Dispose() {
	m.growMu.Lock()
	defer m.growMu.Unlock()

	m.table.Store(nil)
}
