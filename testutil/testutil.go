package testutil

import (
	"math/rand"
	"sync"

	"github.com/hupe1980/meshgo/grid"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// FillUniformBox fills dst with positions uniform over b.
// Locks only once per call (preferred over drawing in a loop).
func (r *RNG) FillUniformBox(dst []grid.Vec3, b grid.Bounds) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		for d := 0; d < 3; d++ {
			dst[i][d] = b.Min[d] + r.rand.Float64()*(b.Max[d]-b.Min[d])
		}
	}
}

// UniformCloud returns n positions uniform over b.
func (r *RNG) UniformCloud(n int, b grid.Bounds) []grid.Vec3 {
	pts := make([]grid.Vec3, n)
	r.FillUniformBox(pts, b)
	return pts
}

// ClusteredCloud returns n positions drawn from clusters Gaussian blobs
// with the given standard deviation, cluster centres uniform over b.
// Points may fall outside b.
func (r *RNG) ClusteredCloud(n int, b grid.Bounds, clusters int, stddev float64) []grid.Vec3 {
	r.mu.Lock()
	defer r.mu.Unlock()

	centres := make([]grid.Vec3, clusters)
	for i := range centres {
		for d := 0; d < 3; d++ {
			centres[i][d] = b.Min[d] + r.rand.Float64()*(b.Max[d]-b.Min[d])
		}
	}

	pts := make([]grid.Vec3, n)
	for i := range pts {
		c := centres[r.rand.Intn(clusters)]
		for d := 0; d < 3; d++ {
			pts[i][d] = c[d] + r.rand.NormFloat64()*stddev
		}
	}
	return pts
}

// IndexesInBox returns, by brute force, the global indexes of all points
// inside the closed box [pmin, pmax].
func IndexesInBox(pts []grid.Vec3, pmin, pmax grid.Vec3) []int64 {
	out := []int64{}
	for i, p := range pts {
		inside := true
		for d := 0; d < 3; d++ {
			if p[d] < pmin[d] || p[d] > pmax[d] {
				inside = false
				break
			}
		}
		if inside {
			out = append(out, int64(i))
		}
	}
	return out
}

// IndexesInSphere returns, by brute force, the global indexes of all points
// within radius of centre.
func IndexesInSphere(pts []grid.Vec3, centre grid.Vec3, radius float64) []int64 {
	r2 := radius * radius
	out := []int64{}
	for i, p := range pts {
		dx := p[0] - centre[0]
		dy := p[1] - centre[1]
		dz := p[2] - centre[2]
		if dx*dx+dy*dy+dz*dz <= r2 {
			out = append(out, int64(i))
		}
	}
	return out
}

// SplitLengths block-partitions n elements over ranks: the first n%ranks
// ranks get one extra element.
func SplitLengths(n, ranks int) []int {
	lens := make([]int, ranks)
	base, extra := n/ranks, n%ranks
	for r := range lens {
		lens[r] = base
		if r < extra {
			lens[r]++
		}
	}
	return lens
}
