package cache

import (
	"sync"
	"testing"
)

func TestHashPointsDeterministic(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if HashPoints(data, 256) != HashPoints(data, 256) {
		t.Error("identical inputs produced different keys")
	}
	if HashPoints(data, 256) == HashPoints(data, 128) {
		t.Error("different resolutions produced the same key")
	}
	other := []byte{1, 2, 3, 4, 5, 6, 7, 9}
	if HashPoints(data, 256) == HashPoints(other, 256) {
		t.Error("different data produced the same key")
	}
}

func TestGetOrBake(t *testing.T) {
	c := NewLUTCache(4)
	bakes := 0
	bake := func() []byte {
		bakes++
		return []byte{0xAA, 0xBB}
	}

	key := HashPoints([]byte{1}, 16)
	first := c.GetOrBake(key, bake)
	second := c.GetOrBake(key, bake)

	if bakes != 1 {
		t.Errorf("bake called %d times, want 1", bakes)
	}
	if &first[0] != &second[0] {
		t.Error("cache returned a different LUT on hit")
	}

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("Stats() = %d hits, %d misses, want 1, 1", hits, misses)
	}
}

func TestEviction(t *testing.T) {
	c := NewLUTCache(2)
	// Drive all keys into one shard by construction: keys differing only
	// in high bits map to the same shard.
	k := func(i int) Key { return Key(uint64(i) << 3) }
	for i := 0; i < 5; i++ {
		c.GetOrBake(k(i), func() []byte { return []byte{byte(i)} })
	}
	if _, ok := c.Get(k(0)); ok {
		t.Error("oldest entry survived eviction")
	}
	if _, ok := c.Get(k(4)); !ok {
		t.Error("newest entry was evicted")
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := NewLUTCache(16)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := HashPoints([]byte{byte(i % 10)}, 256)
				lut := c.GetOrBake(key, func() []byte { return []byte{byte(i)} })
				if len(lut) != 1 {
					t.Errorf("unexpected LUT length %d", len(lut))
					return
				}
			}
		}(g)
	}
	wg.Wait()
}
