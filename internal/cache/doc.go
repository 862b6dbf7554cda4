// Package cache provides LRU caching for snapshot column blocks.
//
// # Block Cache (RAM)
//
// The ShardedLRUBlockCache stores recently fetched blocks from snapshot
// blobs. It uses 64-way sharding so concurrent readers on different
// ranks rarely contend on the same mutex. Cached bytes can be charged
// against a resource.Controller memory budget.
//
// # Disk Cache (L2)
//
// For object storage backends, DiskBlockCache provides a persistent L2
// cache:
//   - Async writes keep the read path off the disk
//   - LRU eviction with a configurable size limit
//   - Rebuilds its index from disk on startup
package cache
