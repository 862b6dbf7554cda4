// Package psort provides a distributed sample sort over a rank group.
//
// SortIndex does not move caller data. It sorts the concatenation of every
// rank's keys and hands back the argsort: for each position of the globally
// sorted order that falls into this rank's share of the input layout, the
// original global index of the element occupying it. Equal keys order by
// ascending global index, so the result is deterministic for a fixed group
// size.
package psort
