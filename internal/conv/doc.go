// Package conv provides checked integer conversions.
//
// Counts and offsets read from column blob headers are untrusted; these
// helpers reject negatives and overflow instead of silently truncating.
//
// For conversions that are provably safe by domain constraints (loop
// indices, bounded counters) use direct casts instead.
package conv
