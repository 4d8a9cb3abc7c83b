// Package neatcore provides a Go implementation of the NeuroEvolution of
// Augmenting Topologies (NEAT) algorithm.
//
// NEAT is a genetic algorithm for the generation of evolving artificial neural
// networks. It alters both the weighting parameters and structures of networks,
// using historical markings (innovation numbers) to make crossover between
// differently-shaped genomes well-defined, and speciation to protect new
// structure while it optimizes.
//
// The evolutionary core lives in the neat package: genomes, the shared
// innovation tracker, mutation operators, innovation-aligned crossover, the
// compatibility metric and speciator. The neat/nn package turns genomes into
// runnable phenotype networks (feed-forward and recurrent), and neat/store
// offers an opt-in archive for genome renderings.
//
// Basic usage:
//
//	// Load configuration
//	config, err := neat.LoadConfig("path/to/config")
//	if err != nil {
//		log.Fatalf("Error loading config: %v", err)
//	}
//
//	// Create a new population
//	pop, err := neat.NewPopulation(config)
//	if err != nil {
//		log.Fatalf("Error creating population: %v", err)
//	}
//
//	// Run for 100 generations with your fitness function
//	for i := 0; i < 100; i++ {
//		winner, err := pop.RunGeneration(evalGenomes)
//		if err != nil {
//			log.Fatalf("Error running generation: %v", err)
//		}
//
//		if winner != nil {
//			fmt.Println("Solution found!")
//			break
//		}
//	}
package neatcore
