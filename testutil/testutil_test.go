package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/meshgo/grid"
)

var unitBox = grid.Bounds{Min: grid.Vec3{0, 0, 0}, Max: grid.Vec3{1, 1, 1}}

func TestUniformCloud(t *testing.T) {
	rng := NewRNG(4711)

	pts := rng.UniformCloud(256, unitBox)
	require.Len(t, pts, 256)

	for _, p := range pts {
		for d := 0; d < 3; d++ {
			assert.GreaterOrEqual(t, p[d], 0.0)
			assert.Less(t, p[d], 1.0)
		}
	}
}

func TestRNGDeterministic(t *testing.T) {
	a := NewRNG(99).UniformCloud(32, unitBox)
	b := NewRNG(99).UniformCloud(32, unitBox)
	assert.Equal(t, a, b)

	rng := NewRNG(99)
	first := rng.UniformCloud(32, unitBox)
	rng.Reset()
	assert.Equal(t, first, rng.UniformCloud(32, unitBox))
}

func TestIndexesInBox(t *testing.T) {
	pts := []grid.Vec3{
		{0.5, 0.5, 0.5},
		{2, 2, 2},
		{1, 1, 1}, // on the boundary, included
	}

	got := IndexesInBox(pts, grid.Vec3{0, 0, 0}, grid.Vec3{1, 1, 1})
	assert.Equal(t, []int64{0, 2}, got)
}

func TestIndexesInSphere(t *testing.T) {
	pts := []grid.Vec3{
		{0, 0, 0},
		{1, 0, 0}, // exactly on the sphere, included
		{1.01, 0, 0},
	}

	got := IndexesInSphere(pts, grid.Vec3{0, 0, 0}, 1)
	assert.Equal(t, []int64{0, 1}, got)
}

func TestSplitLengths(t *testing.T) {
	assert.Equal(t, []int{3, 3, 2, 2}, SplitLengths(10, 4))
	assert.Equal(t, []int{0, 0, 0}, SplitLengths(0, 3))
	assert.Equal(t, []int{7}, SplitLengths(7, 1))

	total := 0
	for _, n := range SplitLengths(1234, 7) {
		total += n
	}
	assert.Equal(t, 1234, total)
}
