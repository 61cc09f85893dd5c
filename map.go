// Package hopmap provides concurrent hashmaps behind a common facade: a
// lock striped hopscotch engine with lock-free reads and a coarse locked
// chaining map.
package hopmap

import (
	"github.com/EinfachAndy/hopmap/hopscotch"
	"github.com/EinfachAndy/hopmap/locked"
	"github.com/EinfachAndy/hopmap/shared"
)

// HashMap is the basic hashmap interface as a set of function pointers.
type HashMap[K comparable, V any] struct {
	Get         func(key K) (V, bool)
	Put         func(key K, val V) (bool, error)
	PutOrUpdate func(key K, val V) (bool, error)
	Remove      func(key K) (V, bool)
	Size        func() int
	Load        func() float32
	Clear       func()
	Each        func(fn func(key K, val V) bool)
}

// Type specifies the type of the hashmap.
type Type int

const (
	Hopscotch Type = 0
	Locked    Type = 1
)

// Config is used by the factory to create and configure a hashmap
// instance.
type Config[K comparable, V any] struct {
	Type Type
	// Hasher that is used. Must be configured for complex data types.
	// If unset a default hasher is used for golang basic types.
	Hasher shared.HashFn[K]
	// Size grows the locked map to the desired size. Ignored by the
	// hopscotch engine, which is sized by its geometry below.
	Size uintptr
	// Geometry of the hopscotch engine, see `hopscotch.Config`.
	// Zero values select the defaults.
	Segments             uint
	BucketsPerSegment    uint
	HopRange             uint
	AddRange             uint
	MaxTries             uint
	MaxBucketsPerSegment uint
}

// MustNewHashMap same as 'NewHashMap' but panics if and only if an error
// occurs.
func MustNewHashMap[K comparable, V any](cfg Config[K, V]) *HashMap[K, V] {
	m, err := NewHashMap(cfg)
	if err != nil {
		panic(err.Error())
	}
	return m
}

// NewHashMap is a factory function to instantiate the hashmap
// implementations of this module behind a struct of function pointers.
// In most cases the usage of the dedicated hashmap type is recommended.
func NewHashMap[K comparable, V any](cfg Config[K, V]) (*HashMap[K, V], error) {
	if cfg.Hasher == nil {
		cfg.Hasher = shared.GetHasher[K]()
	}

	res := &HashMap[K, V]{}

	switch cfg.Type {
	case Hopscotch:
		m, err := hopscotch.NewWithConfig(hopscotch.Config[K, V]{
			Segments:             cfg.Segments,
			BucketsPerSegment:    cfg.BucketsPerSegment,
			HopRange:             cfg.HopRange,
			AddRange:             cfg.AddRange,
			MaxTries:             cfg.MaxTries,
			MaxBucketsPerSegment: cfg.MaxBucketsPerSegment,
			Hasher:               cfg.Hasher,
		})
		if err != nil {
			return nil, err
		}
		res.Get = m.Get
		res.Put = m.Put
		res.PutOrUpdate = m.PutOrUpdate
		res.Remove = m.Remove
		res.Size = m.Size
		res.Load = m.Load
		res.Clear = m.Clear
		res.Each = m.Each
	case Locked:
		m := locked.NewWithHasher[K, V](cfg.Hasher)
		res.Get = m.Get
		res.Put = func(key K, val V) (bool, error) { return m.Put(key, val), nil }
		res.PutOrUpdate = func(key K, val V) (bool, error) { return m.PutOrUpdate(key, val), nil }
		res.Remove = m.Remove
		res.Size = m.Size
		res.Load = m.Load
		res.Clear = m.Clear
		res.Each = m.Each

		if cfg.Size > 0 {
			m.Reserve(cfg.Size)
		}
	}

	return res, nil
}
