package neat

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
)

// Stagnation tracks species fitness over generations and flags species that
// have stopped improving.
type Stagnation struct {
	Config             *StagnationConfig
	SpeciesFitnessFunc func([]float64) float64
}

// NewStagnation creates a stagnation manager, resolving the configured
// species fitness function by name. The name is case-insensitive, matching
// what config validation accepts.
func NewStagnation(config *StagnationConfig) (*Stagnation, error) {
	fn, ok := StatFunctions[strings.ToLower(config.SpeciesFitnessFunc)]
	if !ok {
		return nil, fmt.Errorf("invalid species_fitness_func in config: %s", config.SpeciesFitnessFunc)
	}
	return &Stagnation{
		Config:             config,
		SpeciesFitnessFunc: fn,
	}, nil
}

// StagnationInfo holds the stagnation verdict for a single species.
type StagnationInfo struct {
	SpeciesID  int
	Species    *Species
	IsStagnant bool
}

// Update refreshes each species' fitness and history and marks species
// stagnant when they have not improved for max_stagnation generations. The
// species_elitism fittest species are never marked stagnant. Results are
// ordered by ascending species fitness.
func (s *Stagnation) Update(speciesSet *SpeciesSet, generation int) []StagnationInfo {
	if len(speciesSet.Species) == 0 {
		return nil
	}

	type speciesEntry struct {
		id int
		sp *Species
	}
	entries := make([]speciesEntry, 0, len(speciesSet.Species))

	for sid, sp := range speciesSet.Species {
		previousMax := math.Inf(-1)
		if len(sp.FitnessHistory) > 0 {
			previousMax = MaxFloat(sp.FitnessHistory)
		}

		fitnesses := sp.GetFitnesses()
		if len(fitnesses) == 0 {
			sp.Fitness = math.Inf(-1)
		} else {
			sp.Fitness = s.SpeciesFitnessFunc(fitnesses)
		}
		sp.FitnessHistory = append(sp.FitnessHistory, sp.Fitness)
		sp.AdjustedFitness = 0

		if sp.Fitness > previousMax {
			sp.LastImproved = generation
		}
		entries = append(entries, speciesEntry{sid, sp})
	}

	// Least fit first, so the tail of the slice holds the elite.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].sp.Fitness != entries[j].sp.Fitness {
			return entries[i].sp.Fitness < entries[j].sp.Fitness
		}
		return entries[i].id < entries[j].id
	})

	result := make([]StagnationInfo, len(entries))
	for i, entry := range entries {
		stagnantTime := generation - entry.sp.LastImproved
		isStagnant := stagnantTime >= s.Config.MaxStagnation &&
			(len(entries)-i) > s.Config.SpeciesElitism

		if isStagnant {
			slog.Info("species stagnant",
				"species", entry.id,
				"fitness", entry.sp.Fitness,
				"stagnant_generations", stagnantTime)
		}
		result[i] = StagnationInfo{
			SpeciesID:  entry.id,
			Species:    entry.sp,
			IsStagnant: isStagnant,
		}
	}
	return result
}
