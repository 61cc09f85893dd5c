package shared

const (
	// DefaultMaxLoad is the default value for the load factor of the
	// locked chaining map, which can be changed with MaxLoad(). This
	// value is a trade-off of runtime and memory consumption.
	DefaultMaxLoad = 0.7

	DefaultSize = 4

	// Default geometry of the concurrent hopscotch map. The segment
	// count bounds write parallelism, the bucket count is the ring size
	// of one segment. Both must stay powers of two.
	DefaultSegments          = 16
	DefaultBucketsPerSegment = 64

	// DefaultHopRange is the neighborhood size. A lookup touches at most
	// this many buckets.
	DefaultHopRange = 32

	// DefaultMaxTries bounds the optimistic lookup retries taken when a
	// concurrent displacement is detected.
	DefaultMaxTries = 2
)
