package shm

import (
	"context"
	"errors"
	"fmt"
	"unsafe"

	"github.com/hupe1980/meshgo/comm"
	"github.com/hupe1980/meshgo/resource"
)

// ErrInvalidLength is returned by Allocate when any rank passes a negative
// local length.
var ErrInvalidLength = errors.New("shm: local length must be >= 0")

// Options configures an allocation.
type Options struct {
	// Controller, when set, charges the backing bytes against a memory
	// budget. Honored on the owning rank (rank 0).
	Controller *resource.Controller
}

// Array is a shared array of T. Every rank of the group holds its own
// handle on the same backing storage; handles must not be shared between
// goroutines.
type Array[T any] struct {
	c      *comm.Comm
	data   []T    // full view
	raw    []byte // mapped backing, nil for heap or empty arrays
	offset int
	local  int

	ctrl  *resource.Controller
	bytes int64

	freed bool
}

type allocation[T any] struct {
	data []T
	raw  []byte
	err  error
}

// Allocate creates a shared array whose full length is the sum of every
// rank's localLen, laid out in rank order. Collective. Rank 0 owns the
// backing region and broadcasts it to the group.
func Allocate[T any](ctx context.Context, c *comm.Comm, localLen int, optFns ...func(o *Options)) (*Array[T], error) {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	lengths := comm.Allgather(c, localLen)
	for r, n := range lengths {
		if n < 0 {
			return nil, fmt.Errorf("%w: got %d on rank %d", ErrInvalidLength, n, r)
		}
	}

	offset, total := 0, 0
	for r, n := range lengths {
		if r < c.Rank() {
			offset += n
		}
		total += n
	}

	var zero T
	size := int64(total) * int64(unsafe.Sizeof(zero))

	var res allocation[T]
	if c.Rank() == 0 {
		res = allocate[T](ctx, total, size, opts.Controller)
	}
	res = comm.Bcast(c, 0, res)
	if res.err != nil {
		return nil, res.err
	}

	a := &Array[T]{
		c:      c,
		data:   res.data,
		raw:    res.raw,
		offset: offset,
		local:  localLen,
		bytes:  size,
	}
	if c.Rank() == 0 {
		a.ctrl = opts.Controller
	}
	return a, nil
}

func allocate[T any](ctx context.Context, total int, size int64, ctrl *resource.Controller) allocation[T] {
	if ctrl != nil {
		if err := ctrl.AcquireMemory(ctx, size); err != nil {
			return allocation[T]{err: fmt.Errorf("shm: memory budget: %w", err)}
		}
	}

	data, raw, err := allocBacking[T](total)
	if err != nil {
		if ctrl != nil {
			ctrl.ReleaseMemory(size)
		}
		return allocation[T]{err: err}
	}
	return allocation[T]{data: data, raw: raw}
}

// Len returns the full array length.
func (a *Array[T]) Len() int {
	a.check()
	return len(a.data)
}

// LocalLen returns the length of this rank's window.
func (a *Array[T]) LocalLen() int {
	a.check()
	return a.local
}

// Offset returns the global index of the first element of this rank's
// window.
func (a *Array[T]) Offset() int {
	a.check()
	return a.offset
}

// Local returns this rank's write window. May be empty.
func (a *Array[T]) Local() []T {
	a.check()
	return a.data[a.offset : a.offset+a.local]
}

// Full returns the whole array. Consistent across ranks only after the
// writers' barrier and Sync.
func (a *Array[T]) Full() []T {
	a.check()
	return a.data
}

// Sync publishes outstanding writes to the group. Collective.
func (a *Array[T]) Sync() {
	a.check()
	a.c.Barrier()
}

// Free releases the backing storage. Collective and one-shot; all views
// become invalid. Freeing twice panics.
func (a *Array[T]) Free() error {
	if a.freed {
		panic("shm: Free of freed array")
	}

	a.c.Barrier()

	var err error
	if a.c.Rank() == 0 {
		err = freeBacking(a.raw)
		if a.ctrl != nil {
			a.ctrl.ReleaseMemory(a.bytes)
		}
	}

	a.c.Barrier()

	a.freed = true
	a.data = nil
	a.raw = nil
	return err
}

func (a *Array[T]) check() {
	if a.freed {
		panic("shm: use of freed array")
	}
}
