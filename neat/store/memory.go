package store

import (
	"context"
	"sort"
	"sync"
)

type recordKey struct {
	runID      string
	generation int
	genomeKey  int
}

// MemoryStore is an in-memory Store, useful for tests and short-lived runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[recordKey]Record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[recordKey]Record)}
}

func (s *MemoryStore) SaveGenome(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[recordKey{rec.RunID, rec.Generation, rec.GenomeKey}] = rec
	return nil
}

func (s *MemoryStore) BestGenome(ctx context.Context, runID string) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best Record
	found := false
	for key, rec := range s.records {
		if key.runID != runID {
			continue
		}
		if !found || rec.Fitness > best.Fitness {
			best = rec
			found = true
		}
	}
	return best, found, nil
}

func (s *MemoryStore) GenomesByGeneration(ctx context.Context, runID string, generation int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Record
	for key, rec := range s.records {
		if key.runID == runID && key.generation == generation {
			result = append(result, rec)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].GenomeKey < result[j].GenomeKey })
	return result, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
