package meshgo

import (
	"context"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/meshgo/grid"
	"github.com/hupe1980/meshgo/shm"
)

// FilterFunc decides whether a candidate particle index is kept.
type FilterFunc func(id int64) bool

// QueryOptions customizes a single query.
type QueryOptions struct {
	// Filter drops every candidate it returns false for. Nil keeps all.
	Filter FilterFunc
}

// BitmapFilter returns a FilterFunc keeping only the indexes present in bm.
func BitmapFilter(bm *roaring64.Bitmap) FilterFunc {
	return func(id int64) bool {
		return bm.Contains(uint64(id))
	}
}

func applyQueryOptions(optFns []func(o *QueryOptions)) QueryOptions {
	var o QueryOptions
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// QueryBox returns the global indexes of all particles in cells overlapping
// the box [pmin, pmax]. The result is conservative: every particle inside
// the box is included, along with other particles from the same cells.
// Positions outside the grid clip to the boundary cells.
//
// Purely local; never blocks on other ranks. An empty result is a valid
// empty slice.
func (m *Mesh) QueryBox(pmin, pmax grid.Vec3, optFns ...func(o *QueryOptions)) []int64 {
	m.check()
	start := time.Now()

	out := m.queryBox(pmin, pmax, applyQueryOptions(optFns))

	duration := time.Since(start)
	m.metrics.RecordQueryBox(len(out), duration)
	m.logger.LogQuery(context.Background(), "box", len(out), duration)
	return out
}

func (m *Mesh) queryBox(pmin, pmax grid.Vec3, opts QueryOptions) []int64 {
	lo, hi := m.g.CellRange(pmin, pmax)

	out := []int64{}
	for k := lo[2]; k <= hi[2]; k++ {
		for j := lo[1]; j <= hi[1]; j++ {
			for i := lo[0]; i <= hi[0]; i++ {
				cell := m.g.CellIndex(i, j, k)
				cnt := m.counts[cell]
				if cnt == 0 {
					continue
				}
				members := m.sorted[m.offsets[cell] : m.offsets[cell]+cnt]
				if opts.Filter == nil {
					out = append(out, members...)
					continue
				}
				for _, id := range members {
					if opts.Filter(id) {
						out = append(out, id)
					}
				}
			}
		}
	}
	return out
}

// QueryRadius returns the global indexes of all particles within radius of
// centre. Exact: candidates from the overlapped cells are kept only if
// their distance to centre is at most radius. positions must be the shared
// array the mesh was built over.
//
// Purely local; never blocks on other ranks. An empty result is a valid
// empty slice.
func (m *Mesh) QueryRadius(centre grid.Vec3, radius float64, positions *shm.Array[grid.Vec3], optFns ...func(o *QueryOptions)) []int64 {
	m.check()
	start := time.Now()

	out := m.queryRadius(centre, radius, positions, applyQueryOptions(optFns))

	duration := time.Since(start)
	m.metrics.RecordQueryRadius(len(out), duration)
	m.logger.LogQuery(context.Background(), "radius", len(out), duration)
	return out
}

func (m *Mesh) queryRadius(centre grid.Vec3, radius float64, positions *shm.Array[grid.Vec3], opts QueryOptions) []int64 {
	var pmin, pmax grid.Vec3
	for d := 0; d < 3; d++ {
		pmin[d] = centre[d] - radius
		pmax[d] = centre[d] + radius
	}
	lo, hi := m.g.CellRange(pmin, pmax)

	pos := positions.Full()
	r2 := radius * radius

	out := []int64{}
	for k := lo[2]; k <= hi[2]; k++ {
		for j := lo[1]; j <= hi[1]; j++ {
			for i := lo[0]; i <= hi[0]; i++ {
				cell := m.g.CellIndex(i, j, k)
				cnt := m.counts[cell]
				if cnt == 0 {
					continue
				}
				for _, id := range m.sorted[m.offsets[cell] : m.offsets[cell]+cnt] {
					if opts.Filter != nil && !opts.Filter(id) {
						continue
					}
					p := pos[id]
					dx := p[0] - centre[0]
					dy := p[1] - centre[1]
					dz := p[2] - centre[2]
					if dx*dx+dy*dy+dz*dz <= r2 {
						out = append(out, id)
					}
				}
			}
		}
	}
	return out
}
