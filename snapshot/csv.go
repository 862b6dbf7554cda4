package snapshot

import (
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/hupe1980/meshgo/grid"
)

type csvPosition struct {
	X float64 `csv:"x"`
	Y float64 `csv:"y"`
	Z float64 `csv:"z"`
}

// ReadPositionsCSV parses particle positions from CSV with an x,y,z
// header, in any column order.
func ReadPositionsCSV(r io.Reader) ([]grid.Vec3, error) {
	var records []csvPosition
	if err := gocsv.Unmarshal(r, &records); err != nil {
		return nil, fmt.Errorf("snapshot: parse positions csv: %w", err)
	}

	positions := make([]grid.Vec3, len(records))
	for i, rec := range records {
		positions[i] = grid.Vec3{rec.X, rec.Y, rec.Z}
	}
	return positions, nil
}

// LoadPositionsCSV reads particle positions from a CSV file.
func LoadPositionsCSV(path string) ([]grid.Vec3, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open positions csv: %w", err)
	}
	defer f.Close()

	return ReadPositionsCSV(f)
}
