// Package grid provides the uniform mesh geometry used by the particle
// index: bounding boxes, cell size derivation and the mapping from 3-D
// positions to linearized cell indexes.
//
// A Grid subdivides an axis-aligned bounding box into Resolution cells per
// axis. Cell (i, j, k) linearizes to i + R*j + R*R*k. Positions outside the
// bounds clip to the nearest boundary cell, so every position maps to a
// valid cell.
//
// # Usage
//
//	b := grid.BoundsOf(points)
//	g := grid.New(b, 16)
//	cell := g.CellOf(points[0])
package grid
