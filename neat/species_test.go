package neat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// speciesTestGenome builds a genome whose connection genes carry the given
// innovation ids with zero weights, so compatibility distance is driven by
// gene overlap alone.
func speciesTestGenome(key int, config *GenomeConfig, innovations ...int) *Genome {
	g := NewGenome(key, config)
	for i, innov := range innovations {
		// Distinct endpoint pairs per innovation; the pair values are
		// irrelevant to Distance.
		ck := ConnectionKey{InNodeID: -(i + 1), OutNodeID: 0}
		g.Connections[ck] = &ConnectionGene{Key: ck, Innovation: innov, Enabled: true}
	}
	return g
}

func TestSpeciatePartition(t *testing.T) {
	config := newTestConfig(5, 1)
	config.SpeciesSet.CompatibilityThreshold = 3.0
	config.Genome.CompatibilityWeightCoefficient = 0.0

	// g1 and g2 share all genes (distance 0); g3 has four genes none of
	// which match (distance 8 from g1, above threshold).
	g1 := speciesTestGenome(1, &config.Genome, 1, 2, 3, 4)
	g2 := speciesTestGenome(2, &config.Genome, 1, 2, 3, 4)
	g3 := speciesTestGenome(3, &config.Genome, 5, 6, 7, 8)
	population := map[int]*Genome{1: g1, 2: g2, 3: g3}

	ss := NewSpeciesSet(&config.SpeciesSet)
	ss.Speciate(population, 1)

	require.Len(t, ss.Species, 2)

	sid1, ok := ss.GetSpeciesID(1)
	require.True(t, ok)
	sid2, ok := ss.GetSpeciesID(2)
	require.True(t, ok)
	sid3, ok := ss.GetSpeciesID(3)
	require.True(t, ok)

	assert.Equal(t, sid1, sid2, "identical genomes share a species")
	assert.NotEqual(t, sid1, sid3, "incompatible genome founds its own species")

	sp, ok := ss.GetSpecies(3)
	require.True(t, ok)
	assert.Equal(t, g3, sp.Representative, "a new species is represented by its founder")
}

func TestSpeciateEveryGenomeAssigned(t *testing.T) {
	config := newTestConfig(5, 1)
	population := map[int]*Genome{}
	for i := 1; i <= 10; i++ {
		population[i] = speciesTestGenome(i, &config.Genome, i, i+1, i+2)
	}

	ss := NewSpeciesSet(&config.SpeciesSet)
	ss.Speciate(population, 1)

	assigned := 0
	for _, sp := range ss.Species {
		assigned += len(sp.Members)
	}
	assert.Equal(t, len(population), assigned, "partition must cover the population")
	for key := range population {
		_, ok := ss.GetSpeciesID(key)
		assert.True(t, ok)
	}
}

func TestSpeciateGreedyFirstFitOrder(t *testing.T) {
	config := newTestConfig(5, 1)
	config.SpeciesSet.CompatibilityThreshold = 5.0
	config.Genome.CompatibilityWeightCoefficient = 0.0

	// g1 founds species 1, g2 founds species 2 (distance 8 from g1).
	// g3 lies within threshold of both representatives (distance 4 to each);
	// the scan visits species keys in ascending order, so species 1 wins.
	g1 := speciesTestGenome(1, &config.Genome, 1, 2, 3, 4)
	g2 := speciesTestGenome(2, &config.Genome, 5, 6, 7, 8)
	g3 := speciesTestGenome(3, &config.Genome, 1, 2, 3, 4, 5, 6, 7, 8)

	ss := NewSpeciesSet(&config.SpeciesSet)
	ss.Speciate(map[int]*Genome{1: g1, 2: g2}, 1)
	require.Len(t, ss.Species, 2)

	ss.Speciate(map[int]*Genome{1: g1, 2: g2, 3: g3}, 2)
	sid1, _ := ss.GetSpeciesID(1)
	sid3, ok := ss.GetSpeciesID(3)
	require.True(t, ok)
	assert.Equal(t, sid1, sid3)
}

func TestSpeciateEmptyPopulationResets(t *testing.T) {
	config := newTestConfig(5, 1)
	ss := NewSpeciesSet(&config.SpeciesSet)
	ss.Speciate(map[int]*Genome{1: speciesTestGenome(1, &config.Genome, 1)}, 1)
	require.NotEmpty(t, ss.Species)

	ss.Speciate(map[int]*Genome{}, 2)
	assert.Empty(t, ss.Species)
	assert.Empty(t, ss.GenomeToSpecies)
}

func TestGenomeDistanceCache(t *testing.T) {
	config := newTestConfig(5, 1)
	g1 := speciesTestGenome(1, &config.Genome, 1, 2)
	g2 := speciesTestGenome(2, &config.Genome, 1, 2)

	cache := NewGenomeDistanceCache()
	d1 := cache.Distance(g1, g2)
	d2 := cache.Distance(g2, g1)
	assert.Equal(t, d1, d2)
	assert.Equal(t, 1, cache.Misses)
	assert.Equal(t, 1, cache.Hits)
}

func TestNewStagnationFitnessFuncCaseInsensitive(t *testing.T) {
	// Config validation accepts any casing, so resolution must too.
	s, err := NewStagnation(&StagnationConfig{
		SpeciesFitnessFunc: "Mean",
		MaxStagnation:      15,
		SpeciesElitism:     1,
	})
	require.NoError(t, err)
	assert.NotNil(t, s.SpeciesFitnessFunc)

	_, err = NewStagnation(&StagnationConfig{SpeciesFitnessFunc: "best"})
	assert.Error(t, err)
}

func TestStagnationMarksOnlyNonElite(t *testing.T) {
	config := newTestConfig(5, 1)
	config.Stagnation.MaxStagnation = 2
	config.Stagnation.SpeciesElitism = 1

	stagnation, err := NewStagnation(&config.Stagnation)
	require.NoError(t, err)

	ss := NewSpeciesSet(&config.SpeciesSet)
	makeSpecies := func(sid int, fitness float64) *Species {
		sp := NewSpecies(sid, 0)
		g := speciesTestGenome(sid*100, &config.Genome, 1)
		g.Fitness = fitness
		sp.Members = map[int]*Genome{g.Key: g}
		sp.Representative = g
		return sp
	}
	ss.Species = map[int]*Species{
		1: makeSpecies(1, 1.0),
		2: makeSpecies(2, 2.0),
	}

	// Neither species improves over three generations.
	for gen := 1; gen <= 3; gen++ {
		infos := stagnation.Update(ss, gen)
		require.Len(t, infos, 2)
		byID := map[int]StagnationInfo{}
		for _, info := range infos {
			byID[info.SpeciesID] = info
		}
		if gen < 3 {
			assert.False(t, byID[1].IsStagnant)
			assert.False(t, byID[2].IsStagnant)
		} else {
			assert.True(t, byID[1].IsStagnant, "weaker species stagnates")
			assert.False(t, byID[2].IsStagnant, "fittest species is protected by elitism")
		}
	}
}

func TestComputeSpawnAmountsMatchesPopulationSize(t *testing.T) {
	spawns := computeSpawnAmounts([]float64{0.75, 0.25}, 1.0, []int{10, 10}, 20, 2)
	total := 0
	for _, s := range spawns {
		total += s
		assert.GreaterOrEqual(t, s, 2)
	}
	assert.Equal(t, 20, total)
}
