// Package hash provides checksum utilities for data integrity.
//
// Column blobs and uploads are protected with CRC32-Castagnoli (CRC32C),
// which is hardware accelerated on x86 (SSE4.2) and ARM and is the same
// polynomial S3 uses for its CRC32C checksum headers.
//
// One-shot:
//
//	sum := hash.CRC32C(data)
//
// Streaming:
//
//	h := hash.NewCRC32C()
//	h.Write(chunk)
//	sum := h.Sum32()
package hash
