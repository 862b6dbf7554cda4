// Package meshgo provides a shared-memory spatial index for distributed
// particle sets.
//
// A fixed group of ranks, each holding a slice of a large 3-D particle set,
// collectively builds a uniform-grid mesh over the global bounding box.
// Construction is a counting sort: global per-cell counts, exclusive prefix
// offsets and a globally sorted index permutation, all placed in storage
// every rank reads directly. Afterwards any rank answers spatial queries
// without further coordination.
//
// # Quick Start
//
//	err := comm.Run(ctx, 4, func(ctx context.Context, c *comm.Comm) error {
//		pos, _ := shm.Allocate[grid.Vec3](ctx, c, len(local))
//		copy(pos.Local(), local)
//		c.Barrier()
//		pos.Sync()
//
//		m, err := meshgo.Build(ctx, c, pos, 16)
//		if err != nil {
//			return err
//		}
//
//		inBox := m.QueryBox(grid.Vec3{0, 0, 0}, grid.Vec3{10, 10, 10})
//		inSphere := m.QueryRadius(grid.Vec3{5, 5, 5}, 2.5, pos)
//		_, _ = inBox, inSphere
//
//		if err := m.Free(); err != nil {
//			return err
//		}
//		return pos.Free()
//	})
//
// # Query Semantics
//
// QueryBox is conservative: it returns every particle of every cell the box
// overlaps, so all particles inside the box are present along with some
// outside it. QueryRadius is exact: candidates are distance-filtered against
// the position array. Both are purely local and never error; an empty
// result is a valid empty slice.
//
// # Lifecycle
//
// Build and Free are collective; every rank must call them. The index is
// immutable between the two. Using a mesh after Free panics.
//
// # Key Features
//
//   - Collective counting-sort construction over in-process rank groups
//   - Anonymous shared mappings for index storage (golang.org/x/sys)
//   - Conservative box and exact radius queries, optional roaring filters
//   - Snapshot column reading with zstd/lz4 compression and cloud backends
//   - Memory and IO budgets via resource.Controller
package meshgo
