package meshgo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/meshgo/comm"
	"github.com/hupe1980/meshgo/grid"
	"github.com/hupe1980/meshgo/psort"
	"github.com/hupe1980/meshgo/shm"
)

// Mesh is one rank's handle on a collectively built particle mesh. All
// ranks of the group share the same cell count, cell offset and sort index
// storage; the handle itself must not be shared between goroutines.
//
// Queries are purely local and never block on other ranks. Free is
// collective and one-shot; any use after Free panics.
type Mesh struct {
	c *comm.Comm
	g grid.Grid
	n int64

	cellCount  *shm.Array[int64]
	cellOffset *shm.Array[int64]
	sortIndex  *shm.Array[int64]

	// Published views, cached so queries skip the array plumbing.
	counts  []int64
	offsets []int64
	sorted  []int64

	occupied *roaring64.Bitmap

	logger  *Logger
	metrics MetricsCollector

	freed bool
}

// Build constructs a mesh over the shared position array. Collective: every
// rank of the group must call with the same resolution. Positions are taken
// as already wrapped into the simulation volume; no periodic images are
// considered.
//
// The grid spans the global bounding box of all positions with resolution
// cells per axis. With no particles at all the mesh degenerates to an empty
// box at the origin and every query returns no results.
func Build(ctx context.Context, c *comm.Comm, positions *shm.Array[grid.Vec3], resolution int, optFns ...Option) (*Mesh, error) {
	opts := applyOptions(optFns)
	if opts.logger == nil {
		opts.logger = NoopLogger()
	}
	if opts.metricsCollector == nil {
		opts.metricsCollector = NoopMetricsCollector{}
	}

	start := time.Now()

	m, err := build(ctx, c, positions, resolution, opts)

	duration := time.Since(start)
	opts.metricsCollector.RecordBuild(duration, err)

	var particles int64
	if m != nil {
		particles = m.n
	}
	opts.logger.WithRank(c.Rank()).LogBuild(ctx, resolution, particles, duration, err)

	if err != nil {
		return nil, err
	}
	return m, nil
}

func build(ctx context.Context, c *comm.Comm, positions *shm.Array[grid.Vec3], resolution int, opts options) (*Mesh, error) {
	if positions == nil {
		return nil, ErrNilPositions
	}

	// Preconditions are checked through a collective so every rank agrees
	// on the outcome.
	resolutions := comm.Allgather(c, resolution)
	lo, hi := resolutions[0], resolutions[0]
	for _, r := range resolutions {
		if r < lo {
			lo = r
		}
		if r > hi {
			hi = r
		}
	}
	if lo != hi {
		return nil, &ErrResolutionMismatch{Min: lo, Max: hi}
	}
	if lo < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidResolution, lo)
	}

	local := positions.Local()
	n := int64(positions.Len())

	var bounds grid.Bounds
	if n > 0 {
		lb := grid.BoundsOf(local)
		mins := comm.AllreduceMin(c, lb.Min[:])
		maxs := comm.AllreduceMax(c, lb.Max[:])
		bounds = grid.Bounds{
			Min: grid.Vec3{mins[0], mins[1], mins[2]},
			Max: grid.Vec3{maxs[0], maxs[1], maxs[2]},
		}
	}

	g := grid.New(bounds, resolution)
	nrCells := g.Cells()

	keys := g.CellKeys(local)

	hist := make([]int64, nrCells)
	for _, k := range keys {
		hist[k]++
	}
	total := comm.ReduceSum(c, 0, hist)

	shmOpts := func(o *shm.Options) {
		o.Controller = opts.resource
	}

	// Aggregate arrays live in one window on the designated writer.
	writerLen := 0
	if c.Rank() == 0 {
		writerLen = nrCells
	}

	cellCount, err := shm.Allocate[int64](ctx, c, writerLen, shmOpts)
	if err != nil {
		return nil, fmt.Errorf("meshgo: allocate cell counts: %w", err)
	}

	cellOffset, err := shm.Allocate[int64](ctx, c, writerLen, shmOpts)
	if err != nil {
		cellCount.Free()
		return nil, fmt.Errorf("meshgo: allocate cell offsets: %w", err)
	}

	sortIndex, err := shm.Allocate[int64](ctx, c, positions.LocalLen(), shmOpts)
	if err != nil {
		cellCount.Free()
		cellOffset.Free()
		return nil, fmt.Errorf("meshgo: allocate sort index: %w", err)
	}

	if c.Rank() == 0 {
		copy(cellCount.Full(), total)
	}
	c.Barrier()
	cellCount.Sync()

	if c.Rank() == 0 {
		offsets := cellOffset.Full()
		var acc int64
		for i, cnt := range cellCount.Full() {
			offsets[i] = acc
			acc += cnt
		}
	}
	c.Barrier()
	cellOffset.Sync()

	copy(sortIndex.Local(), psort.SortIndex(c, keys))
	c.Barrier()
	sortIndex.Sync()

	occupied := roaring64.New()
	for i, cnt := range cellCount.Full() {
		if cnt > 0 {
			occupied.Add(uint64(i))
		}
	}

	return &Mesh{
		c:          c,
		g:          g,
		n:          n,
		cellCount:  cellCount,
		cellOffset: cellOffset,
		sortIndex:  sortIndex,
		counts:     cellCount.Full(),
		offsets:    cellOffset.Full(),
		sorted:     sortIndex.Full(),
		occupied:   occupied,
		logger:     opts.logger.WithRank(c.Rank()),
		metrics:    opts.metricsCollector,
	}, nil
}

// Bounds returns the global bounding box the grid spans.
func (m *Mesh) Bounds() grid.Bounds {
	m.check()
	return m.g.Bounds
}

// Grid returns the mesh geometry.
func (m *Mesh) Grid() grid.Grid {
	m.check()
	return m.g
}

// Resolution returns the number of cells per axis.
func (m *Mesh) Resolution() int {
	m.check()
	return m.g.Resolution
}

// NumParticles returns the global particle count.
func (m *Mesh) NumParticles() int64 {
	m.check()
	return m.n
}

// CellCount returns the number of particles in the given linearized cell.
func (m *Mesh) CellCount(cell int) int64 {
	m.check()
	return m.counts[cell]
}

// CellOffset returns the start of the given cell's window in the sorted
// particle order.
func (m *Mesh) CellOffset(cell int) int64 {
	m.check()
	return m.offsets[cell]
}

// CellMembers returns the global indexes of the particles in the given
// linearized cell. The slice aliases shared storage and must not be modified.
func (m *Mesh) CellMembers(cell int) []int64 {
	m.check()
	off := m.offsets[cell]
	return m.sorted[off : off+m.counts[cell]]
}

// Occupied returns the bitmap of non-empty linearized cells. The bitmap is
// shared with the mesh and must not be modified.
func (m *Mesh) Occupied() *roaring64.Bitmap {
	m.check()
	return m.occupied
}

// Free releases the shared index storage. Collective and one-shot: every
// rank must call, no queries may follow on any rank, and freeing twice
// panics.
func (m *Mesh) Free() error {
	if m.freed {
		panic("meshgo: Free of freed mesh")
	}

	start := time.Now()

	err := errors.Join(
		m.cellCount.Free(),
		m.cellOffset.Free(),
		m.sortIndex.Free(),
	)

	m.freed = true
	m.counts = nil
	m.offsets = nil
	m.sorted = nil
	m.occupied = nil

	m.metrics.RecordFree(time.Since(start), err)
	m.logger.LogFree(context.Background(), err)
	return err
}

func (m *Mesh) check() {
	if m.freed {
		panic("meshgo: use of freed mesh")
	}
}
