// Package mmap provides read-only memory-mapped file access.
//
// Column blobs and manifests are read through mappings so large files are
// paged in on demand instead of copied through buffers.
//
// # Usage
//
//	m, err := mmap.Open("Coordinates.col")
//	if err != nil { ... }
//	defer m.Close()
//
//	data := m.Bytes()
//
//	region, _ := m.Region(offset, size)
//	m.Advise(mmap.AccessSequential)
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with madvise(2) access hints
//   - Windows: CreateFileMapping/MapViewOfFile (access hints are a no-op)
//
// # Thread Safety
//
// Mapping and Region are safe for concurrent reads. Close is idempotent.
// Callers must ensure no goroutine touches Bytes() after Close returns.
package mmap
