// Package blobstore provides storage backends for snapshot data.
//
// BlobStore is the interface for reading and writing immutable blobs:
// snapshot column files, manifests and alias documents. Implementations
// must be safe for concurrent use, since every rank of a mesh group may
// read columns at the same time.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem with mmap-backed reads
//   - MemoryStore: in-memory store for tests
//   - CachingStore: block-level caching wrapper for remote backends
//   - s3.Store: Amazon S3 with range reads and parallel uploads
//   - minio.Store: any S3-compatible endpoint via the MinIO client
//
// # Custom Implementations
//
// Implement the BlobStore interface to support custom storage backends.
// For remote backends, ReadRange should map to range requests so the
// snapshot reader can stream column blocks without downloading whole
// files. Wrap the store in a CachingStore to keep hot blocks local:
//
//	store := blobstore.NewCachingStore(remote, cache.NewShardedLRUBlockCache(256<<20, nil), 1<<20)
package blobstore
