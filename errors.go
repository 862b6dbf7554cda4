package meshgo

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidResolution is returned when the grid resolution is not positive.
	ErrInvalidResolution = errors.New("resolution must be positive")

	// ErrNilPositions is returned when Build is called without a position array.
	ErrNilPositions = errors.New("positions array must not be nil")
)

// ErrResolutionMismatch indicates that ranks called Build with different
// resolutions. Every rank of the group returns the same mismatch.
type ErrResolutionMismatch struct {
	Min int
	Max int
}

func (e *ErrResolutionMismatch) Error() string {
	return fmt.Sprintf("resolution mismatch across ranks: min %d, max %d", e.Min, e.Max)
}
