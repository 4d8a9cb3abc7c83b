package neat

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// FitnessEvaluator scores a single genome. Implementations must treat the
// genome as read-only; the evaluator publishes the returned score itself.
type FitnessEvaluator func(ctx context.Context, g *Genome) (float64, error)

// ParallelEvaluator fans fitness evaluation out over a worker pool. Each
// genome is scored by exactly one worker and only the Fitness field is
// written, so concurrent evaluation never mutates shared genome structure.
type ParallelEvaluator struct {
	// Workers caps the number of concurrent evaluations. Zero or negative
	// means no limit beyond the number of genomes.
	Workers  int
	Evaluate FitnessEvaluator
}

// NewParallelEvaluator creates a ParallelEvaluator with the given worker
// limit.
func NewParallelEvaluator(workers int, evaluate FitnessEvaluator) *ParallelEvaluator {
	return &ParallelEvaluator{Workers: workers, Evaluate: evaluate}
}

// EvaluatePopulation scores every genome in the population concurrently and
// stores the results in the genomes' Fitness fields. The first evaluator
// error cancels the remaining work and is returned.
func (pe *ParallelEvaluator) EvaluatePopulation(ctx context.Context, population map[int]*Genome) error {
	group, ctx := errgroup.WithContext(ctx)
	if pe.Workers > 0 {
		group.SetLimit(pe.Workers)
	}

	for _, genome := range population {
		g := genome
		group.Go(func() error {
			fitness, err := pe.Evaluate(ctx, g)
			if err != nil {
				return err
			}
			g.Fitness = fitness
			return nil
		})
	}
	return group.Wait()
}

// FitnessFunc adapts the evaluator to the Population.RunGeneration driver.
func (pe *ParallelEvaluator) FitnessFunc(ctx context.Context) FitnessFunc {
	return func(genomes map[int]*Genome) error {
		return pe.EvaluatePopulation(ctx, genomes)
	}
}
