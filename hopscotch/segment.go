package hopscotch

import (
	"sync"

	"go.uber.org/atomic"
)

// segment is a contiguous, logically circular run of buckets guarded by
// one mutex. Offset arithmetic wraps modulo the ring size. count tracks
// the occupied buckets. timestamp ticks on every displacement and is the
// guard of the optimistic read path; plain inserts and removes do not
// move live keys and leave it alone.
type segment[K comparable, V any] struct {
	buckets   []bucket[K, V]
	lock      sync.Mutex
	count     atomic.Uint64
	timestamp atomic.Uint64
}

// table is an immutable snapshot of the map geometry. Growth builds a
// fresh table and swaps it in whole, so lock-free readers always work
// against a consistent segment array.
type table[K comparable, V any] struct {
	segments    []segment[K, V]
	segmentMask uint64
	bucketMask  uint64
	nBuckets    uint
	hopRange    uint
	addRange    uint
}

func newTable[K comparable, V any](nSegments, nBuckets, hopRange, addRange uint) *table[K, V] {
	t := &table[K, V]{
		segments:    make([]segment[K, V], nSegments),
		segmentMask: uint64(nSegments - 1),
		bucketMask:  uint64(nBuckets - 1),
		nBuckets:    nBuckets,
		hopRange:    hopRange,
		addRange:    addRange,
	}

	// initialize the segments in place
	for i := range t.segments {
		t.segments[i].buckets = make([]bucket[K, V], nBuckets)
	}

	return t
}

//go:inline
func (t *table[K, V]) segmentFor(hkey uint64) *segment[K, V] {
	return &t.segments[hkey&t.segmentMask]
}

//go:inline
func (t *table[K, V]) homeIdx(hkey uint64) uint64 {
	return hkey & t.bucketMask
}

// scan walks the set bits of the home bucket's neighborhood, low offsets
// first, and returns the entry holding hkey together with its offset
// from home. The bitmap is read once into a local copy, so a concurrent
// flip cannot corrupt the walk; at worst the scan misses a fresh insert
// or revisits a vacated slot, which the lookup path compensates for with
// its timestamp retry.
func (t *table[K, V]) scan(seg *segment[K, V], home, hkey uint64) (*entry[K, V], uint, bool) {
	hop := seg.buckets[home].hopInfo.Load()

	for off := uint(0); hop != 0; off++ {
		if (hop & 1) == 1 {
			e := seg.buckets[(home+uint64(off))&t.bucketMask].ent.Load()
			if e != nil && e.hkey == hkey {
				return e, off, true
			}
		}

		hop >>= 1
	}

	return nil, 0, false
}

// emplace stores e within hop range of its home bucket. The caller holds
// the segment lock and has verified that hkey is not yet present. It
// returns false if neither the linear probe nor displacement could bring
// a free bucket into range, in which case e is not stored and the table
// must grow. Displacements made before the failure stay in place; the
// segment still holds the same bindings and satisfies its invariants.
func (t *table[K, V]) emplace(seg *segment[K, V], home uint64, e *entry[K, V]) bool {
	// linear probing for the next free bucket
	dist := uint(0)
	for ; dist < t.addRange; dist++ {
		if seg.buckets[(home+uint64(dist))&t.bucketMask].isEmpty() {
			break
		}
	}
	if dist == t.addRange {
		return false
	}

	// pull the free bucket into the neighborhood of the home bucket
	for dist >= t.hopRange {
		var ok bool
		dist, ok = t.moveCloser(seg, home, dist)
		if !ok {
			return false
		}
	}

	// publish the entry before its neighborhood bit, so a reader that
	// observes the bit also observes the entry
	seg.buckets[(home+uint64(dist))&t.bucketMask].ent.Store(e)
	seg.buckets[home].set(dist, true)

	return true
}

// moveCloser vacates a bucket closer to home by relocating a key from a
// preceding neighborhood into the currently free bucket. dist is the
// free bucket's distance from home; on success the distance of the newly
// vacated bucket is returned. The candidate keys of each examined home c
// sit at offsets 1..offset-1 from c (bit 0, c's own key, is never a
// candidate); among them the largest offset wins.
//
// Publication order matters for the lock-free readers: the relocated
// entry appears in its new bucket and in c's bitmap before the timestamp
// ticks, and only after the tick are the old bit and the old bucket
// withdrawn. A reader bracketing its scan with equal timestamps has
// therefore seen one of the two stable states.
func (t *table[K, V]) moveCloser(seg *segment[K, V], home uint64, dist uint) (uint, bool) {
	freeIdx := (home + uint64(dist)) & t.bucketMask

	for offset := t.hopRange - 1; offset >= 1; offset-- {
		cIdx := (freeIdx - uint64(offset)) & t.bucketMask
		c := &seg.buckets[cIdx]

		hop := c.hopInfo.Load()
		j := uint(0)
		for i, mask := uint(1), uint64(2); i < offset; i, mask = i+1, mask<<1 {
			if (hop & mask) != 0 {
				j = i
			}
		}
		if j == 0 {
			continue
		}

		donor := &seg.buckets[(cIdx+uint64(j))&t.bucketMask]

		seg.buckets[freeIdx].ent.Store(donor.ent.Load())
		c.set(offset, true)
		seg.timestamp.Inc()
		c.set(j, false)
		donor.ent.Store(nil)

		return dist - (offset - j), true
	}

	return 0, false
}

// unlink removes the entry at the given offset from home. The caller
// holds the segment lock. No timestamp tick: a remove does not move any
// live key.
func (t *table[K, V]) unlink(seg *segment[K, V], home uint64, off uint) {
	seg.buckets[(home+uint64(off))&t.bucketMask].ent.Store(nil)
	seg.buckets[home].set(off, false)
	seg.count.Dec()
}
