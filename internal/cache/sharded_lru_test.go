package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestShardedLRUBlockCache_BasicOperations(t *testing.T) {
	cache := NewShardedLRUBlockCache(1024*1024, nil) // 1MB

	ctx := context.Background()
	key := CacheKey{Kind: CacheKindColumn, Path: "snap_000/PartType1/Coordinates.col", Block: 0}
	data := []byte("test data")

	cache.Set(ctx, key, data)
	got, ok := cache.Get(ctx, key)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(got) != string(data) {
		t.Errorf("got %q, want %q", got, data)
	}

	missKey := CacheKey{Kind: CacheKindColumn, Path: "snap_999/PartType1/Coordinates.col", Block: 0}
	_, ok = cache.Get(ctx, missKey)
	if ok {
		t.Fatal("expected cache miss")
	}
}

func TestShardedLRUBlockCache_ShardDistribution(t *testing.T) {
	cache := NewShardedLRUBlockCache(64*1024*1024, nil) // 64MB

	ctx := context.Background()
	data := make([]byte, 1024) // 1KB

	// Insert 1000 blocks across 100 blobs
	for i := 0; i < 1000; i++ {
		key := CacheKey{
			Kind:  CacheKindColumn,
			Path:  fmt.Sprintf("snap_%03d/PartType1/Coordinates.col", i%100),
			Block: uint64(i),
		}
		cache.Set(ctx, key, data)
	}

	// Check that items are distributed across shards
	nonEmptyShards := 0
	for i := 0; i < numShards; i++ {
		if cache.shards[i].Size() > 0 {
			nonEmptyShards++
		}
	}

	// With 1000 items across 64 shards, we expect most shards to have items
	if nonEmptyShards < 30 {
		t.Errorf("poor shard distribution: only %d shards have items", nonEmptyShards)
	}
}

func TestShardedLRUBlockCache_Concurrent(t *testing.T) {
	cache := NewShardedLRUBlockCache(64*1024*1024, nil) // 64MB

	ctx := context.Background()
	data := make([]byte, 1024)

	const numGoroutines = 100
	const numOpsPerGoroutine = 1000

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for g := 0; g < numGoroutines; g++ {
		go func(goroutineID int) {
			defer wg.Done()
			for i := 0; i < numOpsPerGoroutine; i++ {
				key := CacheKey{
					Kind:  CacheKindColumn,
					Path:  fmt.Sprintf("snap_%03d/PartType1/Coordinates.col", goroutineID),
					Block: uint64(i),
				}
				cache.Set(ctx, key, data)
				cache.Get(ctx, key)
			}
		}(g)
	}

	wg.Wait()

	hits, misses := cache.Stats()
	total := hits + misses
	if total != numGoroutines*numOpsPerGoroutine {
		t.Errorf("stats mismatch: got %d total, want %d", total, numGoroutines*numOpsPerGoroutine)
	}
}

func TestShardedLRUBlockCache_Invalidate(t *testing.T) {
	cache := NewShardedLRUBlockCache(64*1024*1024, nil)

	ctx := context.Background()
	data := []byte("test")

	// Insert blocks for two snapshots
	for i := 0; i < 100; i++ {
		cache.Set(ctx, CacheKey{Path: "snap_001/x.col", Block: uint64(i)}, data)
		cache.Set(ctx, CacheKey{Path: "snap_002/x.col", Block: uint64(i)}, data)
	}

	// Invalidate snapshot 1
	cache.Invalidate(func(key CacheKey) bool {
		return key.Path == "snap_001/x.col"
	})

	// Check snapshot 1 is gone
	_, ok := cache.Get(ctx, CacheKey{Path: "snap_001/x.col", Block: 0})
	if ok {
		t.Error("expected snap_001 blocks to be invalidated")
	}

	// Check snapshot 2 is still there
	_, ok = cache.Get(ctx, CacheKey{Path: "snap_002/x.col", Block: 0})
	if !ok {
		t.Error("expected snap_002 blocks to still be cached")
	}
}

func BenchmarkLRUBlockCache_Get(b *testing.B) {
	cache := NewLRUBlockCache(64*1024*1024, nil)
	ctx := context.Background()
	key := CacheKey{Kind: CacheKindColumn, Path: "snap_000/PartType1/Coordinates.col", Block: 0}
	cache.Set(ctx, key, make([]byte, 4096))

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			cache.Get(ctx, key)
		}
	})
}

func BenchmarkShardedLRUBlockCache_Get(b *testing.B) {
	cache := NewShardedLRUBlockCache(64*1024*1024, nil)
	ctx := context.Background()
	key := CacheKey{Kind: CacheKindColumn, Path: "snap_000/PartType1/Coordinates.col", Block: 0}
	cache.Set(ctx, key, make([]byte, 4096))

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			cache.Get(ctx, key)
		}
	})
}

func BenchmarkShardedLRUBlockCache_GetMixed(b *testing.B) {
	cache := NewShardedLRUBlockCache(64*1024*1024, nil)
	ctx := context.Background()
	data := make([]byte, 4096)

	// Pre-populate
	for i := 0; i < 1000; i++ {
		cache.Set(ctx, CacheKey{Kind: CacheKindColumn, Path: "snap_000/PartType1/Coordinates.col", Block: uint64(i)}, data)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			key := CacheKey{Kind: CacheKindColumn, Path: "snap_000/PartType1/Coordinates.col", Block: uint64(i % 1000)}
			cache.Get(ctx, key)
			i++
		}
	})
}
