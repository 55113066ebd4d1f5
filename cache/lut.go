// Package cache provides a small sharded LRU cache for baked
// transfer-function lookup tables.
//
// Baking a LUT is deterministic, so results can be cached by a content
// hash of the control points and the resolution. Interactive editing that
// toggles between a handful of presets then re-uses baked tables instead
// of re-interpolating.
package cache

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
)

const (
	// shardCount is the number of shards for reduced lock contention.
	// Must be a power of 2 for fast modulo via bitwise AND.
	shardCount = 8

	// shardMask is used for fast shard selection.
	shardMask = shardCount - 1

	// DefaultCapacity is the default maximum entries per shard.
	DefaultCapacity = 32
)

// Key identifies a baked LUT: a content hash of the control points
// combined with the bake resolution.
type Key uint64

// HashPoints computes a Key over raw control-point data and a resolution.
// The data slice is the little-endian serialization of the points; equal
// point sequences always produce equal keys.
func HashPoints(data []byte, resolution int) Key {
	h := fnv.New64a()
	_, _ = h.Write(data) // fnv.Write never returns an error
	var buf [4]byte
	buf[0] = byte(resolution)
	buf[1] = byte(resolution >> 8)
	buf[2] = byte(resolution >> 16)
	buf[3] = byte(resolution >> 24)
	_, _ = h.Write(buf[:])
	return Key(h.Sum64())
}

// LUTCache is a thread-safe, sharded LRU cache mapping bake keys to
// RGBA lookup tables. Cached tables are shared; callers must treat them
// as read-only.
type LUTCache struct {
	shards   [shardCount]*lutShard
	capacity int

	hits   atomic.Uint64
	misses atomic.Uint64
}

type lutShard struct {
	mu      sync.Mutex
	entries map[Key][]byte
	order   []Key // oldest first
}

// NewLUTCache creates a cache with the given per-shard capacity.
// If capacity <= 0, DefaultCapacity is used.
func NewLUTCache(capacity int) *LUTCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &LUTCache{capacity: capacity}
	for i := range c.shards {
		c.shards[i] = &lutShard{entries: make(map[Key][]byte)}
	}
	return c
}

func (c *LUTCache) shard(key Key) *lutShard {
	return c.shards[uint64(key)&shardMask]
}

// Get returns the cached LUT for key, or (nil, false).
func (c *LUTCache) Get(key Key) ([]byte, bool) {
	s := c.shard(key)
	s.mu.Lock()
	lut, ok := s.entries[key]
	if ok {
		s.touch(key)
	}
	s.mu.Unlock()

	if ok {
		c.hits.Add(1)
		return lut, true
	}
	c.misses.Add(1)
	return nil, false
}

// GetOrBake returns the cached LUT for key, baking and storing it on a
// miss. The bake function runs with the shard lock held so concurrent
// lookups of the same key bake only once.
func (c *LUTCache) GetOrBake(key Key, bake func() []byte) []byte {
	s := c.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if lut, ok := s.entries[key]; ok {
		s.touch(key)
		c.hits.Add(1)
		return lut
	}
	c.misses.Add(1)

	lut := bake()
	for len(s.order) >= c.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.entries, oldest)
	}
	s.entries[key] = lut
	s.order = append(s.order, key)
	return lut
}

// touch moves key to the most-recent position. Caller holds the lock.
func (s *lutShard) touch(key Key) {
	for i, k := range s.order {
		if k == key {
			copy(s.order[i:], s.order[i+1:])
			s.order[len(s.order)-1] = key
			return
		}
	}
}

// Stats returns the number of cache hits and misses since creation.
func (c *LUTCache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// Len returns the total number of cached tables.
func (c *LUTCache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}
