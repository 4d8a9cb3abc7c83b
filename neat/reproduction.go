package neat

import (
	"log/slog"
	"math"
	"math/rand"
	"sort"
)

// Reproduction creates genomes, either from scratch for an initial
// population or through crossover and mutation of a speciated one.
type Reproduction struct {
	Config        *ReproductionConfig
	NextGenomeKey int           // next genome key to hand out, starting at 1
	Ancestors     map[int][]int // genome key -> parent keys

	// Not serialized with checkpoints; rebuilt from config on load.
	stagnation *Stagnation
}

// NewReproduction creates a new reproduction manager.
func NewReproduction(config *ReproductionConfig, stagnation *Stagnation) *Reproduction {
	return &Reproduction{
		Config:        config,
		NextGenomeKey: 1,
		Ancestors:     make(map[int][]int),
		stagnation:    stagnation,
	}
}

// getNextKey returns the next available genome key.
func (r *Reproduction) getNextKey() int {
	key := r.NextGenomeKey
	r.NextGenomeKey++
	return key
}

// setStagnation re-attaches the stagnation manager after a checkpoint load.
func (r *Reproduction) setStagnation(stagnation *Stagnation) {
	r.stagnation = stagnation
}

// CreateNewPopulation creates an initial population of genomes. The tracker
// assigns innovation ids to the initial connections, so identical initial
// topologies share ids across all genomes.
func (r *Reproduction) CreateNewPopulation(genomeConfig *GenomeConfig, tracker *InnovationTracker, popSize int) map[int]*Genome {
	newGenomes := make(map[int]*Genome, popSize)
	for i := 0; i < popSize; i++ {
		key := r.getNextKey()
		g := NewGenome(key, genomeConfig)
		g.ConfigureNew(tracker)
		newGenomes[key] = g
		r.Ancestors[key] = []int{}
	}
	return newGenomes
}

// Reproduce builds the next generation: stagnant species are removed,
// adjusted fitness is computed by fitness sharing, spawn counts are
// distributed proportionally, elites carry over unchanged and the remaining
// slots are filled by crossover of surviving parents plus mutation.
func (r *Reproduction) Reproduce(overallConfig *Config, speciesSet *SpeciesSet, tracker *InnovationTracker, popSize, generation int) (map[int]*Genome, error) {
	stagnationInfo := r.stagnation.Update(speciesSet, generation)

	var allFitnesses []float64
	var remainingSpecies []*Species
	for _, info := range stagnationInfo {
		if info.IsStagnant {
			slog.Info("species removed due to stagnation", "species", info.SpeciesID)
			continue
		}
		fitnesses := info.Species.GetFitnesses()
		if len(fitnesses) == 0 {
			slog.Info("species removed with no members", "species", info.SpeciesID)
			continue
		}
		allFitnesses = append(allFitnesses, fitnesses...)
		remainingSpecies = append(remainingSpecies, info.Species)
	}

	if len(remainingSpecies) == 0 {
		return make(map[int]*Genome), nil
	}

	// Fitness sharing: species fitness rescaled to [0, 1] over the range of
	// all member fitnesses.
	minFitness := MinFloat(allFitnesses)
	maxFitness := MaxFloat(allFitnesses)
	fitnessRange := math.Max(1.0, maxFitness-minFitness)

	adjustedFitnessSum := 0.0
	for _, sp := range remainingSpecies {
		sp.AdjustedFitness = (sp.Fitness - minFitness) / fitnessRange
		adjustedFitnessSum += sp.AdjustedFitness
	}

	previousSizes := make([]int, len(remainingSpecies))
	adjustedFitnesses := make([]float64, len(remainingSpecies))
	for i, sp := range remainingSpecies {
		previousSizes[i] = len(sp.Members)
		adjustedFitnesses[i] = sp.AdjustedFitness
	}

	spawnMinSize := maxInt(r.Config.MinSpeciesSize, r.Config.Elitism)
	spawnAmounts := computeSpawnAmounts(adjustedFitnesses, adjustedFitnessSum, previousSizes, popSize, spawnMinSize)

	newPopulation := make(map[int]*Genome)
	newAncestors := make(map[int][]int)

	for i, sp := range remainingSpecies {
		spawn := maxInt(spawnAmounts[i], r.Config.Elitism)
		if spawn <= 0 {
			continue
		}

		oldMembers := make([]*Genome, 0, len(sp.Members))
		for _, g := range sp.Members {
			oldMembers = append(oldMembers, g)
		}
		sort.Slice(oldMembers, func(a, b int) bool {
			if oldMembers[a].Fitness != oldMembers[b].Fitness {
				return oldMembers[a].Fitness > oldMembers[b].Fitness
			}
			return oldMembers[a].Key < oldMembers[b].Key
		})

		// Elites transfer unchanged under their original keys.
		for j := 0; j < r.Config.Elitism && j < len(oldMembers); j++ {
			elite := oldMembers[j]
			newPopulation[elite.Key] = elite
			newAncestors[elite.Key] = []int{elite.Key}
			spawn--
		}
		if spawn <= 0 {
			continue
		}

		// Only the top survival_threshold fraction may reproduce.
		survivalCutoff := int(math.Ceil(r.Config.SurvivalThreshold * float64(len(oldMembers))))
		survivalCutoff = maxInt(survivalCutoff, 2)
		if survivalCutoff > len(oldMembers) {
			survivalCutoff = len(oldMembers)
		}
		parents := oldMembers[:survivalCutoff]

		for j := 0; j < spawn; j++ {
			parent1 := parents[rand.Intn(len(parents))]
			parent2 := parents[rand.Intn(len(parents))]

			childKey := r.getNextKey()
			child := NewGenome(childKey, &overallConfig.Genome)
			child.ConfigureCrossover(parent1, parent2)
			if err := child.Mutate(tracker); err != nil {
				return nil, err
			}

			newPopulation[childKey] = child
			newAncestors[childKey] = []int{parent1.Key, parent2.Key}
		}
	}
	r.Ancestors = newAncestors

	if len(newPopulation) != popSize {
		slog.Debug("population size differs from target",
			"actual", len(newPopulation), "target", popSize)
	}
	return newPopulation, nil
}

// computeSpawnAmounts distributes popSize offspring over the species
// proportionally to adjusted fitness, dampened toward each species' previous
// size and floored at minSpeciesSize.
func computeSpawnAmounts(adjustedFitnesses []float64, adjustedFitnessSum float64, previousSizes []int, popSize, minSpeciesSize int) []int {
	spawnAmounts := make([]int, len(adjustedFitnesses))

	for i, af := range adjustedFitnesses {
		ps := previousSizes[i]
		var s float64
		if adjustedFitnessSum > 0 {
			s = af / adjustedFitnessSum * float64(popSize)
		} else {
			s = float64(minSpeciesSize)
		}
		s = math.Max(float64(minSpeciesSize), s)

		// Move halfway from the previous size toward the target.
		d := (s - float64(ps)) * 0.5
		c := int(math.Round(d))
		spawn := ps
		if c != 0 {
			spawn += c
		} else if d > 0 {
			spawn++
		} else if d < 0 {
			spawn--
		}
		spawnAmounts[i] = maxInt(minSpeciesSize, spawn)
	}

	totalSpawn := 0
	for _, sa := range spawnAmounts {
		totalSpawn += sa
	}
	if totalSpawn == 0 {
		for i := range spawnAmounts {
			spawnAmounts[i] = minSpeciesSize
		}
		totalSpawn = len(spawnAmounts) * minSpeciesSize
		if totalSpawn == 0 {
			return spawnAmounts
		}
	}

	// Normalize to the target population size, respecting the floor.
	norm := float64(popSize) / float64(totalSpawn)
	final := make([]int, len(spawnAmounts))
	currentTotal := 0
	for i, sa := range spawnAmounts {
		final[i] = maxInt(minSpeciesSize, int(math.Round(float64(sa)*norm)))
		currentTotal += final[i]
	}

	diff := popSize - currentTotal
	if diff != 0 {
		indices := rand.Perm(len(final))
		for _, idx := range indices {
			if diff == 0 {
				break
			}
			if diff > 0 {
				final[idx]++
				diff--
			} else if final[idx] > minSpeciesSize {
				final[idx]--
				diff++
			}
		}
	}
	return final
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
