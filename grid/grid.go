package grid

import "math"

// Vec3 is a position or extent in 3-D space.
type Vec3 [3]float64

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min Vec3
	Max Vec3
}

// BoundsOf returns the component-wise bounding box of pts.
// An empty slice yields the reduction-neutral box (+Inf mins, -Inf maxes),
// safe to combine with other boxes via component-wise min/max.
func BoundsOf(pts []Vec3) Bounds {
	b := Bounds{
		Min: Vec3{math.Inf(1), math.Inf(1), math.Inf(1)},
		Max: Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)},
	}
	for _, p := range pts {
		for d := 0; d < 3; d++ {
			if p[d] < b.Min[d] {
				b.Min[d] = p[d]
			}
			if p[d] > b.Max[d] {
				b.Max[d] = p[d]
			}
		}
	}
	return b
}

// Extent returns Max - Min per axis.
func (b Bounds) Extent() Vec3 {
	var e Vec3
	for d := 0; d < 3; d++ {
		e[d] = b.Max[d] - b.Min[d]
	}
	return e
}

// Grid is a uniform mesh over a bounding box with Resolution cells per axis.
type Grid struct {
	Bounds     Bounds
	Resolution int
	CellSize   Vec3
}

// New returns a Grid subdividing b into resolution cells per axis.
// Assumes resolution >= 1 (caller's responsibility). An axis with zero
// extent gets zero cell size and every position on it maps to cell 0.
func New(b Bounds, resolution int) Grid {
	var cs Vec3
	for d := 0; d < 3; d++ {
		if ext := b.Max[d] - b.Min[d]; ext > 0 {
			cs[d] = ext / float64(resolution)
		}
	}
	return Grid{Bounds: b, Resolution: resolution, CellSize: cs}
}

// Cells returns the total number of cells (Resolution cubed).
func (g Grid) Cells() int {
	return g.Resolution * g.Resolution * g.Resolution
}

// CellIndex linearizes cell coordinates as i + R*j + R*R*k.
func (g Grid) CellIndex(i, j, k int) int {
	r := g.Resolution
	return i + r*j + r*r*k
}

// CellCoords returns the cell coordinates containing p, clipped to
// [0, Resolution-1] per axis. A position exactly on the upper bound lands
// in the last cell; positions outside the bounds land in the nearest
// boundary cell.
func (g Grid) CellCoords(p Vec3) [3]int {
	var c [3]int
	for d := 0; d < 3; d++ {
		c[d] = g.cellAxis(d, p[d])
	}
	return c
}

func (g Grid) cellAxis(d int, x float64) int {
	if g.CellSize[d] <= 0 {
		return 0
	}
	f := math.Floor((x - g.Bounds.Min[d]) / g.CellSize[d])
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > float64(g.Resolution-1) {
		return g.Resolution - 1
	}
	return int(f)
}

// CellOf returns the linearized cell index containing p.
func (g Grid) CellOf(p Vec3) int {
	c := g.CellCoords(p)
	return g.CellIndex(c[0], c[1], c[2])
}

// CellKeys returns the linearized cell index of every position as int64
// sort keys.
func (g Grid) CellKeys(pts []Vec3) []int64 {
	keys := make([]int64, len(pts))
	for i, p := range pts {
		keys[i] = int64(g.CellOf(p))
	}
	return keys
}

// CellRange returns the inclusive cell coordinate range overlapped by the
// box [pmin, pmax], clipped to the grid. Queries enumerate the full range
// on every axis.
func (g Grid) CellRange(pmin, pmax Vec3) (lo, hi [3]int) {
	return g.CellCoords(pmin), g.CellCoords(pmax)
}
