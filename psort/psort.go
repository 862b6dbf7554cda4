package psort

import (
	"cmp"
	"slices"

	"github.com/hupe1980/meshgo/comm"
)

// kv pairs a sort key with the global index of the element carrying it.
type kv struct {
	key int64
	idx int64
}

func cmpKV(a, b kv) int {
	if c := cmp.Compare(a.key, b.key); c != 0 {
		return c
	}
	return cmp.Compare(a.idx, b.idx)
}

// SortIndex globally sorts every rank's keys and returns this rank's slice
// of the argsort: out[i] is the original global index of the element at
// global sorted position off+i, where off is this rank's start in the input
// layout. The output is distributed exactly like the input, ties break by
// ascending global index. Collective.
func SortIndex(c *comm.Comm, keys []int64) []int64 {
	size := c.Size()

	counts := comm.Allgather(c, int64(len(keys)))

	var origStart, total int64
	for r, n := range counts {
		if r < c.Rank() {
			origStart += n
		}
		total += n
	}
	if total == 0 {
		return []int64{}
	}

	pairs := make([]kv, len(keys))
	for i, k := range keys {
		pairs[i] = kv{key: k, idx: origStart + int64(i)}
	}
	slices.SortFunc(pairs, cmpKV)

	splitters := pickSplitters(c, pairs, size)

	// Bucket the locally sorted pairs: bucket b holds keys <= splitters[b],
	// the last bucket everything above the final splitter. One forward scan
	// since both sides are sorted.
	sendCounts := make([]int, size)
	b := 0
	for _, p := range pairs {
		for b < len(splitters) && p.key > splitters[b] {
			b++
		}
		sendCounts[b]++
	}

	chunk, _ := comm.Alltoallv(c, pairs, sendCounts)
	slices.SortFunc(chunk, cmpKV)

	// chunk now covers a contiguous run of the global sorted order.
	chunkLens := comm.Allgather(c, int64(len(chunk)))
	var chunkStart int64
	for r := 0; r < c.Rank(); r++ {
		chunkStart += chunkLens[r]
	}
	chunkEnd := chunkStart + int64(len(chunk))

	// Slice the run by the input layout and ship each piece home. Pieces
	// arrive in sender rank order, which is global sorted order.
	idx := make([]int64, len(chunk))
	for i, p := range chunk {
		idx[i] = p.idx
	}

	sendCounts2 := make([]int, size)
	var qStart int64
	for q := 0; q < size; q++ {
		qEnd := qStart + counts[q]
		lo, hi := max(chunkStart, qStart), min(chunkEnd, qEnd)
		if hi > lo {
			sendCounts2[q] = int(hi - lo)
		}
		qStart = qEnd
	}

	out, _ := comm.Alltoallv(c, idx, sendCounts2)
	return out
}

// pickSplitters draws up to size-1 regular samples from every rank's sorted
// pairs and derives size-1 splitter keys every rank computes identically.
func pickSplitters(c *comm.Comm, pairs []kv, size int) []int64 {
	samples := make([]int64, 0, size-1)
	for j := 1; j < size; j++ {
		if pos := j * len(pairs) / size; pos < len(pairs) {
			samples = append(samples, pairs[pos].key)
		}
	}

	gathered := comm.Allgather(c, samples)

	var all []int64
	for _, s := range gathered {
		all = append(all, s...)
	}
	if len(all) == 0 {
		return nil
	}
	slices.Sort(all)

	splitters := make([]int64, 0, size-1)
	for j := 1; j < size; j++ {
		pos := j * len(all) / size
		if pos >= len(all) {
			pos = len(all) - 1
		}
		splitters = append(splitters, all[pos])
	}
	return splitters
}
