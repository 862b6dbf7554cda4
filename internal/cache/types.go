package cache

import (
	"context"
)

// CacheKind separates key spaces so that invalidation and tuning can
// target one class of data without touching the others.
type CacheKind uint8

const (
	CacheKindUnknown  CacheKind = iota
	CacheKindColumn             // compressed column blocks from snapshot files
	CacheKindManifest           // manifest and alias documents
	CacheKindBlob               // generic blob store blocks
)

// CacheKey identifies one block of one blob. Keys must be stable across
// processes so a disk cache survives restarts.
type CacheKey struct {
	Kind CacheKind
	// Path is the blob name within its store, e.g. "snap_011/PartType1/Coordinates.col".
	Path string
	// Block is the block index within the blob.
	Block uint64
}

// BlockCache is a byte-oriented cache for immutable blocks.
// Returned slices must be treated as read-only.
type BlockCache interface {
	// Get returns a cached block. ok=false if missing.
	Get(ctx context.Context, key CacheKey) (b []byte, ok bool)
	// Set caches a block. Implementations may copy or retain; caller must treat b as immutable.
	Set(ctx context.Context, key CacheKey, b []byte)
	// Invalidate removes entries matching the predicate.
	Invalidate(predicate func(key CacheKey) bool)
	// Close releases any resources (e.g. background workers).
	Close() error
	// Stats returns cache statistics.
	Stats() (hits, misses int64)
}
