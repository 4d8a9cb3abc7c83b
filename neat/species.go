package neat

import (
	"log/slog"
	"sort"
)

// Species represents a group of genetically similar genomes.
type Species struct {
	Key             int             // unique identifier for the species
	Created         int             // generation the species was created
	LastImproved    int             // last generation where fitness improved
	Representative  *Genome         // reference genome new candidates are compared against
	Members         map[int]*Genome // genome key -> genome
	Fitness         float64         // species fitness per the configured species_fitness_func
	AdjustedFitness float64         // fitness after sharing, set during reproduction
	FitnessHistory  []float64
}

// NewSpecies creates a new species.
func NewSpecies(key, generation int) *Species {
	return &Species{
		Key:            key,
		Created:        generation,
		LastImproved:   generation,
		Members:        make(map[int]*Genome),
		FitnessHistory: []float64{},
	}
}

// Update replaces the species' representative and members.
func (s *Species) Update(representative *Genome, members map[int]*Genome) {
	s.Representative = representative
	s.Members = members
}

// GetFitnesses returns the fitness values of all members.
func (s *Species) GetFitnesses() []float64 {
	fitnesses := make([]float64, 0, len(s.Members))
	for _, g := range s.Members {
		fitnesses = append(fitnesses, g.Fitness)
	}
	return fitnesses
}

// --------------------------- GenomeDistanceCache ---------------------------

type genomePair struct {
	lo, hi int // genome keys, lo <= hi
}

// GenomeDistanceCache memoizes pairwise genome distances within one
// speciation pass. Distance is symmetric, so pairs are stored in key order.
type GenomeDistanceCache struct {
	distances map[genomePair]float64
	Hits      int
	Misses    int
}

// NewGenomeDistanceCache creates an empty distance cache.
func NewGenomeDistanceCache() *GenomeDistanceCache {
	return &GenomeDistanceCache{distances: make(map[genomePair]float64)}
}

// Distance returns the compatibility distance between two genomes, computing
// it at most once per pair.
func (dc *GenomeDistanceCache) Distance(genome1, genome2 *Genome) float64 {
	pair := genomePair{lo: genome1.Key, hi: genome2.Key}
	if pair.lo > pair.hi {
		pair.lo, pair.hi = pair.hi, pair.lo
	}

	if d, ok := dc.distances[pair]; ok {
		dc.Hits++
		return d
	}
	dc.Misses++
	d := genome1.Distance(genome2)
	dc.distances[pair] = d
	return d
}

// --------------------------- SpeciesSet ---------------------------

// SpeciesSet partitions the population into species by compatibility
// distance.
type SpeciesSet struct {
	Species         map[int]*Species // species key -> Species
	GenomeToSpecies map[int]int      // genome key -> species key
	Indexer         int              // next species key, starting at 1
	Config          *SpeciesSetConfig
}

// NewSpeciesSet creates an empty species set manager.
func NewSpeciesSet(config *SpeciesSetConfig) *SpeciesSet {
	return &SpeciesSet{
		Species:         make(map[int]*Species),
		GenomeToSpecies: make(map[int]int),
		Indexer:         1,
		Config:          config,
	}
}

// Speciate assigns every genome of the population to a species with a greedy
// first-fit scan: genomes are visited in ascending key order and each one
// joins the first species, scanned in ascending key order, whose
// representative lies within the compatibility threshold. A genome no
// species accepts founds a new one with itself as representative.
//
// Representatives of surviving species carry over from the previous
// generation for the comparison pass and are then replaced by a current
// member. Species that attract no members are dropped. The assignment
// depends on the scan order; two genomes within threshold of different
// representatives go to whichever species is checked first.
func (ss *SpeciesSet) Speciate(population map[int]*Genome, generation int) {
	if len(population) == 0 {
		ss.Species = make(map[int]*Species)
		ss.GenomeToSpecies = make(map[int]int)
		return
	}

	threshold := ss.Config.CompatibilityThreshold
	cache := NewGenomeDistanceCache()

	genomes := make([]*Genome, 0, len(population))
	for _, g := range population {
		genomes = append(genomes, g)
	}
	sort.Slice(genomes, func(i, j int) bool { return genomes[i].Key < genomes[j].Key })

	speciesKeys := make([]int, 0, len(ss.Species))
	for sid := range ss.Species {
		speciesKeys = append(speciesKeys, sid)
	}
	sort.Ints(speciesKeys)

	representatives := make(map[int]*Genome, len(ss.Species))
	for sid, sp := range ss.Species {
		representatives[sid] = sp.Representative
	}
	newMembers := make(map[int][]int)

	for _, g := range genomes {
		assigned := -1
		for _, sid := range speciesKeys {
			rep := representatives[sid]
			if rep == nil {
				continue
			}
			if cache.Distance(rep, g) < threshold {
				assigned = sid
				break
			}
		}
		if assigned == -1 {
			assigned = ss.Indexer
			ss.Indexer++
			speciesKeys = append(speciesKeys, assigned)
			representatives[assigned] = g
		}
		newMembers[assigned] = append(newMembers[assigned], g.Key)
	}

	newSpecies := make(map[int]*Species)
	newGenomeToSpecies := make(map[int]int)
	for _, sid := range speciesKeys {
		memberKeys := newMembers[sid]
		if len(memberKeys) == 0 {
			continue
		}

		sp := ss.Species[sid]
		if sp == nil {
			sp = NewSpecies(sid, generation)
		}

		members := make(map[int]*Genome, len(memberKeys))
		for _, gid := range memberKeys {
			members[gid] = population[gid]
			newGenomeToSpecies[gid] = sid
		}

		// Pin the representative to a current member so later generations
		// compare against a live genome.
		rep := representatives[sid]
		if _, ok := members[rep.Key]; !ok {
			rep = members[memberKeys[0]]
		}
		sp.Update(rep, members)
		newSpecies[sid] = sp
	}

	ss.Species = newSpecies
	ss.GenomeToSpecies = newGenomeToSpecies

	if cache.Misses > 0 {
		distances := make([]float64, 0, len(cache.distances))
		for _, d := range cache.distances {
			distances = append(distances, d)
		}
		slog.Debug("speciation complete",
			"generation", generation,
			"species", len(ss.Species),
			"mean_distance", Mean(distances),
			"stdev_distance", Stdev(distances))
	}
}

// GetSpeciesID returns the species key for a given genome key.
func (ss *SpeciesSet) GetSpeciesID(genomeID int) (int, bool) {
	sid, exists := ss.GenomeToSpecies[genomeID]
	return sid, exists
}

// GetSpecies returns the Species a given genome belongs to.
func (ss *SpeciesSet) GetSpecies(genomeID int) (*Species, bool) {
	sid, exists := ss.GenomeToSpecies[genomeID]
	if !exists {
		return nil, false
	}
	s, exists := ss.Species[sid]
	return s, exists
}
