package comm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrInvalidGroupSize is returned by Run when size is less than one.
var ErrInvalidGroupSize = errors.New("comm: group size must be >= 1")

// Comm is one rank's handle on a rank group. Each rank owns exactly one
// Comm; handles must not be shared between goroutines.
type Comm struct {
	rank int
	g    *group
}

// Rank returns this rank's index in [0, Size).
func (c *Comm) Rank() int {
	return c.rank
}

// Size returns the number of ranks in the group.
func (c *Comm) Size() int {
	return c.g.size
}

// Barrier blocks until every rank of the group has entered it.
func (c *Comm) Barrier() {
	c.g.barrier()
}

// Run launches size rank goroutines executing fn and waits for all of them.
// The returned error is the first non-nil error from any rank. The context
// passed to fn is canceled once any rank fails; collectives themselves do
// not observe it.
func Run(ctx context.Context, size int, fn func(ctx context.Context, c *Comm) error) error {
	if size < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidGroupSize, size)
	}

	grp := newGroup(size)

	eg, ctx := errgroup.WithContext(ctx)
	for rank := 0; rank < size; rank++ {
		c := &Comm{rank: rank, g: grp}
		eg.Go(func() error {
			return fn(ctx, c)
		})
	}

	return eg.Wait()
}

// group holds the shared state of one rank group: a reusable generation
// barrier and one exchange slot per rank.
type group struct {
	size int

	mu         sync.Mutex
	cond       *sync.Cond
	arrived    int
	generation uint64

	slots []any
}

func newGroup(size int) *group {
	g := &group{
		size:  size,
		slots: make([]any, size),
	}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// barrier is a reusable counting barrier. The mutex hand-off doubles as the
// happens-before edge publishing each rank's slot writes.
func (g *group) barrier() {
	g.mu.Lock()
	gen := g.generation
	g.arrived++
	if g.arrived == g.size {
		g.arrived = 0
		g.generation++
		g.mu.Unlock()
		g.cond.Broadcast()
		return
	}
	for gen == g.generation {
		g.cond.Wait()
	}
	g.mu.Unlock()
}

// gather publishes v in this rank's slot and runs read between two
// barriers. Slot contents are only valid inside read; any data a caller
// needs afterwards must be copied out there.
func (g *group) gather(rank int, v any, read func(slots []any)) {
	g.slots[rank] = v
	g.barrier()
	read(g.slots)
	g.barrier()
}
