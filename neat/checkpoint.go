package neat

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
)

// PopulationSaveData holds the parts of a Population worth persisting. The
// Config is not saved; it is reloaded from the original file so a checkpoint
// stays readable after tuning parameters that do not affect genome shape.
type PopulationSaveData struct {
	Population   map[int]*Genome
	SpeciesSet   *SpeciesSet
	Reproduction *Reproduction
	Tracker      TrackerState
	Generation   int
	BestGenome   *Genome
}

// SaveCheckpoint writes the population state to a gzip-compressed gob file,
// innovation tracker included, so a resumed run keeps its historical
// markings.
func (p *Population) SaveCheckpoint(filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint file '%s': %w", filePath, err)
	}
	defer file.Close()

	gzWriter := gzip.NewWriter(file)
	defer gzWriter.Close()

	saveData := PopulationSaveData{
		Population:   p.Population,
		SpeciesSet:   p.SpeciesSet,
		Reproduction: p.Reproduction,
		Tracker:      p.Tracker.Snapshot(),
		Generation:   p.Generation,
		BestGenome:   p.BestGenome,
	}

	if err := gob.NewEncoder(gzWriter).Encode(saveData); err != nil {
		return fmt.Errorf("failed to encode population data: %w", err)
	}

	slog.Info("checkpoint saved", "path", filePath, "generation", p.Generation)
	return nil
}

// LoadCheckpoint restores a Population from a checkpoint file. The original
// configuration file is needed to reconstruct the Config and the managers
// built from it.
func LoadCheckpoint(checkpointPath, configPath string) (*Population, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config '%s' for checkpoint: %w", configPath, err)
	}
	return loadCheckpointWithConfig(checkpointPath, config)
}

// LoadCheckpointWithConfig restores a Population using an already-built
// configuration, for callers that construct their Config in code.
func LoadCheckpointWithConfig(checkpointPath string, config *Config) (*Population, error) {
	return loadCheckpointWithConfig(checkpointPath, config)
}

func loadCheckpointWithConfig(checkpointPath string, config *Config) (*Population, error) {
	file, err := os.Open(checkpointPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint file '%s': %w", checkpointPath, err)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for checkpoint: %w", err)
	}
	defer gzReader.Close()

	saveData := PopulationSaveData{}
	if err := gob.NewDecoder(gzReader).Decode(&saveData); err != nil {
		return nil, fmt.Errorf("failed to decode population data from checkpoint: %w", err)
	}

	stagnation, err := NewStagnation(&config.Stagnation)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild stagnation from loaded config: %w", err)
	}

	if saveData.Reproduction == nil {
		saveData.Reproduction = NewReproduction(&config.Reproduction, stagnation)
	} else {
		saveData.Reproduction.Config = &config.Reproduction
		saveData.Reproduction.setStagnation(stagnation)
	}

	tracker := NewInnovationTracker(config.Genome.FirstSplitNodeKey())
	tracker.Restore(saveData.Tracker)

	// Gob flattens pointers, so re-link the shared config and point species
	// membership back at the decoded population genomes.
	for _, genome := range saveData.Population {
		genome.Config = &config.Genome
	}
	if saveData.BestGenome != nil {
		saveData.BestGenome.Config = &config.Genome
	}
	if saveData.SpeciesSet == nil {
		saveData.SpeciesSet = NewSpeciesSet(&config.SpeciesSet)
	} else {
		saveData.SpeciesSet.Config = &config.SpeciesSet
		for _, sp := range saveData.SpeciesSet.Species {
			for key := range sp.Members {
				if g, ok := saveData.Population[key]; ok {
					sp.Members[key] = g
				}
			}
			if sp.Representative != nil {
				if g, ok := saveData.Population[sp.Representative.Key]; ok {
					sp.Representative = g
				} else {
					sp.Representative.Config = &config.Genome
				}
			}
		}
	}

	p := &Population{
		Config:       config,
		Population:   saveData.Population,
		SpeciesSet:   saveData.SpeciesSet,
		Reproduction: saveData.Reproduction,
		Stagnation:   stagnation,
		Tracker:      tracker,
		Generation:   saveData.Generation,
		BestGenome:   saveData.BestGenome,
	}

	slog.Info("checkpoint loaded", "path", checkpointPath, "generation", p.Generation)
	return p, nil
}
