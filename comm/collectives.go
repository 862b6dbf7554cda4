package comm

import (
	"cmp"
	"fmt"
)

// Number constrains the element types usable in sum reductions.
type Number interface {
	~int | ~int32 | ~int64 | ~float32 | ~float64
}

// AllreduceMin returns the element-wise minimum of vals across all ranks.
// Every rank receives the identical result. Collective; all ranks must pass
// slices of the same length.
func AllreduceMin[T cmp.Ordered](c *Comm, vals []T) []T {
	return allreduce(c, vals, func(a, b T) T {
		if b < a {
			return b
		}
		return a
	})
}

// AllreduceMax returns the element-wise maximum of vals across all ranks.
// Every rank receives the identical result. Collective; all ranks must pass
// slices of the same length.
func AllreduceMax[T cmp.Ordered](c *Comm, vals []T) []T {
	return allreduce(c, vals, func(a, b T) T {
		if b > a {
			return b
		}
		return a
	})
}

func allreduce[T cmp.Ordered](c *Comm, vals []T, pick func(a, b T) T) []T {
	var out []T
	c.g.gather(c.rank, vals, func(slots []any) {
		// Fold in rank order so every rank computes bit-identical results.
		first := slots[0].([]T)
		out = make([]T, len(first))
		copy(out, first)
		for r := 1; r < len(slots); r++ {
			for i, v := range slots[r].([]T) {
				out[i] = pick(out[i], v)
			}
		}
	})
	return out
}

// ReduceSum returns the element-wise sum of vals across all ranks on root
// and nil on every other rank. Collective; all ranks must pass slices of
// the same length.
func ReduceSum[T Number](c *Comm, root int, vals []T) []T {
	var out []T
	c.g.gather(c.rank, vals, func(slots []any) {
		if c.rank != root {
			return
		}
		first := slots[0].([]T)
		out = make([]T, len(first))
		copy(out, first)
		for r := 1; r < len(slots); r++ {
			for i, v := range slots[r].([]T) {
				out[i] += v
			}
		}
	})
	return out
}

// Allgather returns every rank's v, indexed by rank. Collective.
func Allgather[T any](c *Comm, v T) []T {
	var out []T
	c.g.gather(c.rank, v, func(slots []any) {
		out = make([]T, len(slots))
		for r, s := range slots {
			out[r] = s.(T)
		}
	})
	return out
}

// Bcast returns root's v on every rank. Collective.
func Bcast[T any](c *Comm, root int, v T) T {
	var out T
	c.g.gather(c.rank, v, func(slots []any) {
		out = slots[root].(T)
	})
	return out
}

// Alltoallv exchanges variable-length segments with every rank. send is
// partitioned into Size contiguous segments; segment r, of sendCounts[r]
// elements, goes to rank r. Returns the segments received from ranks
// 0..Size-1 concatenated in rank order, with element order inside each
// segment preserved, plus the per-sender receive counts. Collective.
//
// Panics if sendCounts does not partition send exactly.
func Alltoallv[T any](c *Comm, send []T, sendCounts []int) ([]T, []int) {
	if len(sendCounts) != c.g.size {
		panic(fmt.Sprintf("comm: alltoallv got %d send counts for %d ranks", len(sendCounts), c.g.size))
	}

	segs := make([][]T, len(sendCounts))
	off := 0
	for r, n := range sendCounts {
		segs[r] = send[off : off+n]
		off += n
	}
	if off != len(send) {
		panic(fmt.Sprintf("comm: alltoallv send counts sum to %d, have %d elements", off, len(send)))
	}

	var (
		recv       []T
		recvCounts []int
	)
	c.g.gather(c.rank, segs, func(slots []any) {
		recvCounts = make([]int, len(slots))
		total := 0
		for r, s := range slots {
			n := len(s.([][]T)[c.rank])
			recvCounts[r] = n
			total += n
		}
		recv = make([]T, 0, total)
		for _, s := range slots {
			recv = append(recv, s.([][]T)[c.rank]...)
		}
	})
	return recv, recvCounts
}
