package meshgo

import (
	"gonum.org/v1/gonum/stat"
)

// Stats summarizes the occupancy of a built mesh.
type Stats struct {
	// Particles is the global particle count.
	Particles int64
	// Cells is the total cell count (resolution cubed).
	Cells int
	// OccupiedCells is the number of cells holding at least one particle.
	OccupiedCells uint64
	// MaxPerCell is the largest cell population.
	MaxPerCell int64
	// MeanPerOccupied is the mean population of occupied cells.
	MeanPerOccupied float64
	// StdDevPerOccupied is the population standard deviation of occupied
	// cells. Zero when fewer than two cells are occupied.
	StdDevPerOccupied float64
	// Imbalance is MaxPerCell over MeanPerOccupied; 1 means perfectly even.
	Imbalance float64
}

// Stats computes occupancy statistics from the published cell counts.
// Purely local.
func (m *Mesh) Stats() Stats {
	m.check()

	s := Stats{
		Particles:     m.n,
		Cells:         m.g.Cells(),
		OccupiedCells: m.occupied.GetCardinality(),
	}
	if s.OccupiedCells == 0 {
		return s
	}

	xs := make([]float64, 0, s.OccupiedCells)
	for _, cnt := range m.counts {
		if cnt == 0 {
			continue
		}
		if cnt > s.MaxPerCell {
			s.MaxPerCell = cnt
		}
		xs = append(xs, float64(cnt))
	}

	s.MeanPerOccupied = stat.Mean(xs, nil)
	if len(xs) > 1 {
		s.StdDevPerOccupied = stat.StdDev(xs, nil)
	}
	if s.MeanPerOccupied > 0 {
		s.Imbalance = float64(s.MaxPerCell) / s.MeanPerOccupied
	}
	return s
}
