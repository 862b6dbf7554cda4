// Package testutil provides testing utilities for meshgo.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating particle clouds, computing exact query
// answers by brute force, and partitioning data across ranks.
//
// # Particle Generation
//
//	rng := testutil.NewRNG(seed)
//	pts := rng.UniformCloud(1000, bounds)
//	pts = rng.ClusteredCloud(1000, bounds, 8, 0.05)
//
// # Ground Truth
//
//	inBox := testutil.IndexesInBox(pts, pmin, pmax)
//	inSphere := testutil.IndexesInSphere(pts, centre, radius)
package testutil
