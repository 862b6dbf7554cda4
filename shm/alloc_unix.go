//go:build !windows

package shm

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// allocBacking maps an anonymous shared region big enough for total
// elements and returns a typed view over it plus the raw mapping.
func allocBacking[T any](total int) ([]T, []byte, error) {
	if total == 0 {
		return nil, nil, nil
	}

	var zero T
	size := total * int(unsafe.Sizeof(zero))

	raw, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANON)
	if err != nil {
		return nil, nil, fmt.Errorf("shm: mmap %d bytes: %w", size, err)
	}

	data := unsafe.Slice((*T)(unsafe.Pointer(&raw[0])), total)
	return data, raw, nil
}

func freeBacking(raw []byte) error {
	if raw == nil {
		return nil
	}
	return unix.Munmap(raw)
}
