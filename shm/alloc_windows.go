//go:build windows

package shm

// allocBacking allocates a heap-backed region. Windows has no anonymous
// shared mappings through x/sys/unix; within one process heap memory
// behaves identically.
func allocBacking[T any](total int) ([]T, []byte, error) {
	if total == 0 {
		return nil, nil, nil
	}
	return make([]T, total), nil, nil
}

func freeBacking(raw []byte) error {
	return nil
}
