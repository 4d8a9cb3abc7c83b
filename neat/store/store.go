// Package store persists genome renderings across generations, so the best
// individuals of a run can be inspected or reloaded after the process exits.
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/baldhumanity/neatcore/neat"
)

// Record is one archived genome together with the run and generation it came
// from.
type Record struct {
	RunID      string
	Generation int
	GenomeKey  int
	Fitness    float64
	Genome     neat.GenomeData
}

// Store archives genome renderings. Implementations must be safe for
// concurrent use.
type Store interface {
	// SaveGenome archives one genome, replacing any earlier record with the
	// same (run, generation, genome key).
	SaveGenome(ctx context.Context, rec Record) error
	// BestGenome returns the highest-fitness record of a run.
	BestGenome(ctx context.Context, runID string) (Record, bool, error)
	// GenomesByGeneration returns every record of one generation of a run.
	GenomesByGeneration(ctx context.Context, runID string, generation int) ([]Record, error)
	Close() error
}

// NewRunID returns a fresh identifier for an evolutionary run.
func NewRunID() string {
	return uuid.NewString()
}
