package neat

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointRoundTrip(t *testing.T) {
	config := newTestConfig(2, 1)
	config.Neat.PopSize = 10
	config.Genome.InitialConnection = "full_direct"
	config.Genome.DeriveKeys()

	pop, err := NewPopulation(config)
	require.NoError(t, err)

	// Advance the tracker past its initial state so the round trip is
	// meaningful.
	for _, g := range pop.Population {
		_, err := g.AddNode(pop.Tracker, ConnectionKey{InNodeID: -1, OutNodeID: 0})
		require.NoError(t, err)
		break
	}
	pop.Generation = 3

	path := filepath.Join(t.TempDir(), "checkpoint.gz")
	require.NoError(t, pop.SaveCheckpoint(path))

	loaded, err := LoadCheckpointWithConfig(path, config)
	require.NoError(t, err)

	assert.Equal(t, pop.Generation, loaded.Generation)
	assert.Len(t, loaded.Population, len(pop.Population))
	assert.Equal(t, pop.Tracker.NextInnovation(), loaded.Tracker.NextInnovation())
	assert.Equal(t, pop.Reproduction.NextGenomeKey, loaded.Reproduction.NextGenomeKey)

	for key, want := range pop.Population {
		got := loaded.Population[key]
		require.NotNil(t, got, "genome %d missing after load", key)
		assert.Equal(t, want.ToData(), got.ToData())
		assert.Same(t, &config.Genome, got.Config, "config must be re-linked after load")
	}

	// The restored tracker must continue the same innovation sequence.
	assert.Equal(t,
		pop.Tracker.ConnectionInnovation(-2, 0),
		loaded.Tracker.ConnectionInnovation(-2, 0))
}

func TestLoadCheckpointMissingFile(t *testing.T) {
	config := newTestConfig(2, 1)
	_, err := LoadCheckpointWithConfig(filepath.Join(t.TempDir(), "missing.gz"), config)
	assert.Error(t, err)
}
