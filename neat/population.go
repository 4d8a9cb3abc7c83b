package neat

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
)

// FitnessFunc evaluates the current generation of genomes, updating each
// genome's Fitness field. The map is keyed by genome key.
type FitnessFunc func(genomes map[int]*Genome) error

// Population holds the state of the NEAT evolutionary process: the current
// genomes, their species partition and the shared innovation tracker for the
// run.
type Population struct {
	Config       *Config
	Population   map[int]*Genome
	SpeciesSet   *SpeciesSet
	Reproduction *Reproduction
	Stagnation   *Stagnation
	Tracker      *InnovationTracker
	Generation   int
	BestGenome   *Genome // best genome found so far
}

// NewPopulation creates a Population and its first generation of genomes.
func NewPopulation(config *Config) (*Population, error) {
	stagnation, err := NewStagnation(&config.Stagnation)
	if err != nil {
		return nil, fmt.Errorf("failed to create stagnation manager: %w", err)
	}

	tracker := NewInnovationTracker(config.Genome.FirstSplitNodeKey())
	reproduction := NewReproduction(&config.Reproduction, stagnation)
	initialPopulation := reproduction.CreateNewPopulation(&config.Genome, tracker, config.Neat.PopSize)

	return &Population{
		Config:       config,
		Population:   initialPopulation,
		SpeciesSet:   NewSpeciesSet(&config.SpeciesSet),
		Reproduction: reproduction,
		Stagnation:   stagnation,
		Tracker:      tracker,
	}, nil
}

// RunGeneration executes a single generation: fitness evaluation, best-genome
// tracking, speciation and reproduction. It returns the winning genome when
// the configured fitness criterion over the population meets the fitness
// threshold, otherwise nil.
func (p *Population) RunGeneration(fitnessFunc FitnessFunc) (*Genome, error) {
	p.Generation++
	start := time.Now()

	if err := fitnessFunc(p.Population); err != nil {
		return nil, fmt.Errorf("fitness evaluation failed in generation %d: %w", p.Generation, err)
	}

	currentBest := p.findBestGenome()
	if currentBest != nil && (p.BestGenome == nil || currentBest.Fitness > p.BestGenome.Fitness) {
		p.BestGenome = currentBest
		slog.Info("new best genome",
			"generation", p.Generation,
			"genome", p.BestGenome.Key,
			"fitness", p.BestGenome.Fitness)
	}

	if !p.Config.Neat.NoFitnessTermination && p.criterionFitness() >= p.Config.Neat.FitnessThreshold {
		return p.BestGenome, nil
	}

	if len(p.Population) == 0 {
		return p.handleExtinction()
	}

	p.SpeciesSet.Speciate(p.Population, p.Generation)

	newPopulation, err := p.Reproduction.Reproduce(p.Config, p.SpeciesSet, p.Tracker, p.Config.Neat.PopSize, p.Generation)
	if err != nil {
		return p.BestGenome, fmt.Errorf("reproduction failed in generation %d: %w", p.Generation, err)
	}
	if len(newPopulation) == 0 {
		return p.handleExtinction()
	}
	p.Population = newPopulation

	slog.Info("generation complete",
		"generation", p.Generation,
		"species", len(p.SpeciesSet.Species),
		"population", len(p.Population),
		"elapsed", time.Since(start))
	return nil, nil
}

// handleExtinction resets the population when configured to, otherwise
// reports the run as dead.
func (p *Population) handleExtinction() (*Genome, error) {
	if !p.Config.Neat.ResetOnExtinction {
		return p.BestGenome, fmt.Errorf("population extinct in generation %d", p.Generation)
	}
	slog.Warn("population extinct, resetting", "generation", p.Generation)
	p.Population = p.Reproduction.CreateNewPopulation(&p.Config.Genome, p.Tracker, p.Config.Neat.PopSize)
	p.SpeciesSet = NewSpeciesSet(&p.Config.SpeciesSet)
	return nil, nil
}

// criterionFitness reduces the population's fitnesses with the configured
// fitness_criterion.
func (p *Population) criterionFitness() float64 {
	if len(p.Population) == 0 {
		return math.Inf(-1)
	}
	fitnesses := make([]float64, 0, len(p.Population))
	for _, g := range p.Population {
		fitnesses = append(fitnesses, g.Fitness)
	}
	switch strings.ToLower(p.Config.Neat.FitnessCriterion) {
	case "min":
		return MinFloat(fitnesses)
	case "mean":
		return Mean(fitnesses)
	default:
		return MaxFloat(fitnesses)
	}
}

// findBestGenome returns the genome with the highest fitness in the current
// population.
func (p *Population) findBestGenome() *Genome {
	var best *Genome
	maxFitness := math.Inf(-1)
	for _, g := range p.Population {
		if g.Fitness > maxFitness {
			maxFitness = g.Fitness
			best = g
		}
	}
	return best
}
