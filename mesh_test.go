package meshgo_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/meshgo"
	"github.com/hupe1980/meshgo/comm"
	"github.com/hupe1980/meshgo/grid"
	"github.com/hupe1980/meshgo/shm"
	"github.com/hupe1980/meshgo/testutil"
)

var unitBox = grid.Bounds{Min: grid.Vec3{0, 0, 0}, Max: grid.Vec3{1, 1, 1}}

// withMesh distributes pts block-wise over size ranks, builds a mesh and
// runs fn on every rank. Frees the mesh and positions afterwards.
func withMesh(t *testing.T, size int, pts []grid.Vec3, resolution int, fn func(c *comm.Comm, m *meshgo.Mesh, pos *shm.Array[grid.Vec3]) error, optFns ...meshgo.Option) {
	t.Helper()

	lens := testutil.SplitLengths(len(pts), size)

	err := comm.Run(context.Background(), size, func(ctx context.Context, c *comm.Comm) error {
		pos, err := shm.Allocate[grid.Vec3](ctx, c, lens[c.Rank()])
		if err != nil {
			return err
		}

		start := 0
		for r := 0; r < c.Rank(); r++ {
			start += lens[r]
		}
		copy(pos.Local(), pts[start:start+lens[c.Rank()]])
		c.Barrier()
		pos.Sync()

		m, err := meshgo.Build(ctx, c, pos, resolution, optFns...)
		if err != nil {
			pos.Free()
			return err
		}

		fnErr := fn(c, m, pos)

		if err := m.Free(); err != nil {
			return err
		}
		if err := pos.Free(); err != nil {
			return err
		}
		return fnErr
	})
	require.NoError(t, err)
}

func TestBuildCellDataConsistency(t *testing.T) {
	pts := testutil.NewRNG(42).UniformCloud(500, unitBox)

	withMesh(t, 3, pts, 8, func(c *comm.Comm, m *meshgo.Mesh, pos *shm.Array[grid.Vec3]) error {
		g := m.Grid()
		assert.Equal(t, 512, g.Cells())
		assert.Equal(t, int64(500), m.NumParticles())

		// Counts add up to the particle count and offsets are their
		// exclusive prefix sum.
		var sum, off int64
		for cell := 0; cell < g.Cells(); cell++ {
			assert.Equal(t, off, m.CellOffset(cell))
			off += m.CellCount(cell)
			sum += m.CellCount(cell)
		}
		assert.Equal(t, int64(500), sum)

		// Every cell window holds exactly particles of that cell.
		seen := make(map[int64]bool, 500)
		for cell := 0; cell < g.Cells(); cell++ {
			for _, id := range m.CellMembers(cell) {
				assert.Equal(t, cell, g.CellOf(pts[id]))
				assert.False(t, seen[id])
				seen[id] = true
			}
		}
		assert.Len(t, seen, 500)
		return nil
	})
}

func TestBuildThreeParticleCells(t *testing.T) {
	// Two cells per axis. The corner particles land in the first and last
	// cell, the third in cell (1,0,0).
	pts := []grid.Vec3{
		{0.1, 0.1, 0.1},
		{1.9, 1.9, 1.9},
		{1.1, 0.1, 0.1},
	}

	withMesh(t, 3, pts, 2, func(c *comm.Comm, m *meshgo.Mesh, pos *shm.Array[grid.Vec3]) error {
		assert.Equal(t, []int64{0}, m.CellMembers(0))
		assert.Equal(t, []int64{2}, m.CellMembers(1))
		assert.Equal(t, []int64{1}, m.CellMembers(7))

		var nonzero int
		for cell := 0; cell < m.Grid().Cells(); cell++ {
			if cnt := m.CellCount(cell); cnt > 0 {
				nonzero++
				assert.Equal(t, int64(1), cnt)
			}
		}
		assert.Equal(t, 3, nonzero)

		// A slab over the lower cells catches both low particles and
		// nothing from the far corner cell.
		got := m.QueryBox(grid.Vec3{0, 0, 0}, grid.Vec3{1.5, 0.5, 0.5})
		slices.Sort(got)
		assert.Equal(t, []int64{0, 2}, got)

		got = m.QueryRadius(grid.Vec3{0.15, 0.15, 0.15}, 0.1, pos)
		assert.Equal(t, []int64{0}, got)
		return nil
	})
}

func TestBuildBoundsSpanAllRanks(t *testing.T) {
	// Extremes live on different ranks; the global box must cover both.
	pts := []grid.Vec3{
		{-5, 0, 0}, {0, 0, 0},
		{0, 7, 0}, {0, 0, 0},
		{0, 0, 0}, {3, 0, 9},
	}

	withMesh(t, 3, pts, 4, func(c *comm.Comm, m *meshgo.Mesh, pos *shm.Array[grid.Vec3]) error {
		b := m.Bounds()
		assert.Equal(t, grid.Vec3{-5, 0, 0}, b.Min)
		assert.Equal(t, grid.Vec3{3, 7, 9}, b.Max)
		return nil
	})
}

func TestBuildIdenticalPositions(t *testing.T) {
	// Fully degenerate box: every particle in cell 0, queries at the point
	// return everything.
	pts := make([]grid.Vec3, 40)
	for i := range pts {
		pts[i] = grid.Vec3{1, 2, 3}
	}

	withMesh(t, 4, pts, 8, func(c *comm.Comm, m *meshgo.Mesh, pos *shm.Array[grid.Vec3]) error {
		assert.Equal(t, int64(40), m.CellCount(0))

		got := m.QueryRadius(grid.Vec3{1, 2, 3}, 0, pos)
		assert.Len(t, got, 40)

		got = m.QueryBox(grid.Vec3{1, 2, 3}, grid.Vec3{1, 2, 3})
		assert.Len(t, got, 40)
		return nil
	})
}

func TestBuildZeroParticles(t *testing.T) {
	withMesh(t, 3, nil, 4, func(c *comm.Comm, m *meshgo.Mesh, pos *shm.Array[grid.Vec3]) error {
		assert.Equal(t, int64(0), m.NumParticles())
		assert.Empty(t, m.QueryBox(grid.Vec3{-1, -1, -1}, grid.Vec3{1, 1, 1}))
		assert.Empty(t, m.QueryRadius(grid.Vec3{0, 0, 0}, 5, pos))

		s := m.Stats()
		assert.Equal(t, uint64(0), s.OccupiedCells)
		return nil
	})
}

func TestBuildSingleRank(t *testing.T) {
	pts := testutil.NewRNG(7).UniformCloud(200, unitBox)

	withMesh(t, 1, pts, 5, func(c *comm.Comm, m *meshgo.Mesh, pos *shm.Array[grid.Vec3]) error {
		want := testutil.IndexesInSphere(pts, grid.Vec3{0.5, 0.5, 0.5}, 0.3)
		got := m.QueryRadius(grid.Vec3{0.5, 0.5, 0.5}, 0.3, pos)
		slices.Sort(got)
		assert.Equal(t, want, got)
		return nil
	})
}

func TestBuildDeterministicAcrossRuns(t *testing.T) {
	pts := testutil.NewRNG(21).UniformCloud(300, unitBox)

	collect := func() []int64 {
		var out []int64
		withMesh(t, 4, pts, 6, func(c *comm.Comm, m *meshgo.Mesh, pos *shm.Array[grid.Vec3]) error {
			if c.Rank() == 0 {
				out = m.QueryBox(grid.Vec3{0.2, 0.2, 0.2}, grid.Vec3{0.8, 0.8, 0.8})
			}
			return nil
		})
		return out
	}

	assert.Equal(t, collect(), collect())
}

func TestBuildResolutionMismatch(t *testing.T) {
	err := comm.Run(context.Background(), 3, func(ctx context.Context, c *comm.Comm) error {
		pos, err := shm.Allocate[grid.Vec3](ctx, c, 1)
		if err != nil {
			return err
		}
		defer pos.Free()
		pos.Local()[0] = grid.Vec3{float64(c.Rank()), 0, 0}
		c.Barrier()
		pos.Sync()

		res := 8
		if c.Rank() == 1 {
			res = 16
		}
		_, err = meshgo.Build(ctx, c, pos, res)

		var mismatch *meshgo.ErrResolutionMismatch
		assert.ErrorAs(t, err, &mismatch)
		if mismatch != nil {
			assert.Equal(t, 8, mismatch.Min)
			assert.Equal(t, 16, mismatch.Max)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestBuildInvalidResolution(t *testing.T) {
	err := comm.Run(context.Background(), 2, func(ctx context.Context, c *comm.Comm) error {
		pos, err := shm.Allocate[grid.Vec3](ctx, c, 1)
		if err != nil {
			return err
		}
		defer pos.Free()
		c.Barrier()
		pos.Sync()

		_, err = meshgo.Build(ctx, c, pos, 0)
		assert.ErrorIs(t, err, meshgo.ErrInvalidResolution)
		return nil
	})
	require.NoError(t, err)
}

func TestBuildNilPositions(t *testing.T) {
	err := comm.Run(context.Background(), 2, func(ctx context.Context, c *comm.Comm) error {
		_, err := meshgo.Build(ctx, c, nil, 8)
		assert.ErrorIs(t, err, meshgo.ErrNilPositions)
		return nil
	})
	require.NoError(t, err)
}

func TestBuildWithMetricsAndLogging(t *testing.T) {
	metrics := &meshgo.BasicMetricsCollector{}
	pts := testutil.NewRNG(3).UniformCloud(64, unitBox)

	withMesh(t, 2, pts, 4, func(c *comm.Comm, m *meshgo.Mesh, pos *shm.Array[grid.Vec3]) error {
		m.QueryBox(grid.Vec3{0, 0, 0}, grid.Vec3{1, 1, 1})
		m.QueryRadius(grid.Vec3{0.5, 0.5, 0.5}, 0.1, pos)
		return nil
	}, meshgo.WithMetricsCollector(metrics), meshgo.WithLogger(meshgo.NoopLogger()))

	stats := metrics.GetStats()
	assert.Equal(t, int64(2), stats.BuildCount)
	assert.Equal(t, int64(0), stats.BuildErrors)
	assert.Equal(t, int64(2), stats.QueryBoxCount)
	assert.Equal(t, int64(2), stats.QueryRadiusCount)
	assert.Equal(t, int64(2), stats.FreeCount)
}

func TestBuildGroupConsistentError(t *testing.T) {
	// Errors surface identically on every rank so no rank proceeds with a
	// half-built mesh.
	rankErrs := make([]error, 4)
	err := comm.Run(context.Background(), 4, func(ctx context.Context, c *comm.Comm) error {
		pos, err := shm.Allocate[grid.Vec3](ctx, c, 2)
		if err != nil {
			return err
		}
		defer pos.Free()
		c.Barrier()
		pos.Sync()

		_, rankErrs[c.Rank()] = meshgo.Build(ctx, c, pos, -3)
		return nil
	})
	require.NoError(t, err)

	for _, rankErr := range rankErrs {
		require.Error(t, rankErr)
		assert.True(t, errors.Is(rankErr, meshgo.ErrInvalidResolution))
	}
}
