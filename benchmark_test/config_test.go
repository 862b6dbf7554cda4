package benchmark_test

import (
	"context"
	"testing"

	"github.com/hupe1980/meshgo/comm"
	"github.com/hupe1980/meshgo/grid"
	"github.com/hupe1980/meshgo/shm"
	"github.com/hupe1980/meshgo/testutil"
)

// ============================================================================
// Benchmark Configuration
// ============================================================================

// Standard particle counts used across benchmarks for consistency.
const (
	sizeSmall  = 10_000  // Quick iteration
	sizeMedium = 100_000 // Default CI
	sizeLarge  = 500_000 // Production-scale
)

// Standard grid resolutions.
const (
	resCoarse = 16
	resMedium = 32
	resFine   = 64
)

// Seed for deterministic benchmarks - enables reproducible comparisons.
const benchSeed = 42

// benchBox is the domain all benchmark clouds are drawn from.
var benchBox = grid.Bounds{Min: grid.Vec3{0, 0, 0}, Max: grid.Vec3{100, 100, 100}}

// ============================================================================
// Benchmark Helpers
// ============================================================================

// MakeCloud generates n particle positions over benchBox. Clustered clouds
// stress uneven cell histograms and sort skew.
func MakeCloud(n int, clustered bool) []grid.Vec3 {
	rng := testutil.NewRNG(benchSeed)
	if clustered {
		return rng.ClusteredCloud(n, benchBox, 32, 2.0)
	}
	return rng.UniformCloud(n, benchBox)
}

// RunRanks runs fn as a rank group of the given size and fails the benchmark
// on error.
func RunRanks(b *testing.B, ranks int, fn func(ctx context.Context, c *comm.Comm) error) {
	b.Helper()
	if err := comm.Run(context.Background(), ranks, fn); err != nil {
		b.Fatalf("rank group failed: %v", err)
	}
}

// LoadShared copies a block partition of pts into a freshly allocated shared
// array and publishes it. Collective.
func LoadShared(ctx context.Context, c *comm.Comm, pts []grid.Vec3) (*shm.Array[grid.Vec3], error) {
	lens := testutil.SplitLengths(len(pts), c.Size())

	pos, err := shm.Allocate[grid.Vec3](ctx, c, lens[c.Rank()])
	if err != nil {
		return nil, err
	}

	start := 0
	for r := 0; r < c.Rank(); r++ {
		start += lens[r]
	}
	copy(pos.Local(), pts[start:start+lens[c.Rank()]])
	c.Barrier()
	pos.Sync()

	return pos, nil
}
