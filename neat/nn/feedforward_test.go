package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baldhumanity/neatcore/neat"
)

// identityConfig yields genomes whose nodes activate with identity, zero
// bias and unit response, so activations are exact linear sums.
func identityConfig(numInputs, numOutputs int) *neat.Config {
	config := neat.DefaultConfig(numInputs, numOutputs)
	config.Genome.InitialConnection = "unconnected"
	config.Genome.ActivationDefault = "identity"
	config.Genome.ActivationOptions = []string{"identity"}
	config.Genome.BiasInitStdev = 0.0
	config.Genome.ResponseInitStdev = 0.0
	return config
}

func buildGenome(t *testing.T, config *neat.Config, tracker *neat.InnovationTracker) *neat.Genome {
	t.Helper()
	g := neat.NewGenome(1, &config.Genome)
	g.ConfigureNew(tracker)
	return g
}

func TestFeedForwardActivateLinearSum(t *testing.T) {
	config := identityConfig(2, 1)
	tracker := neat.NewInnovationTracker(config.Genome.FirstSplitNodeKey())
	g := buildGenome(t, config, tracker)
	require.NoError(t, g.AddConnection(tracker, -1, 0, 2.0))

	net, err := CreateFeedForwardNetwork(g)
	require.NoError(t, err)

	outputs, err := net.Activate([]float64{0.5, 0.0})
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.InDelta(t, 1.0, outputs[0], 1e-12)
}

func TestFeedForwardBiasNode(t *testing.T) {
	config := identityConfig(2, 1)
	tracker := neat.NewInnovationTracker(config.Genome.FirstSplitNodeKey())
	g := buildGenome(t, config, tracker)
	// Only the bias node feeds the output; its activation is constant 1.0.
	require.NoError(t, g.AddConnection(tracker, config.Genome.BiasKey, 0, 0.75))

	net, err := CreateFeedForwardNetwork(g)
	require.NoError(t, err)

	outputs, err := net.Activate([]float64{0.0, 0.0})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, outputs[0], 1e-12)
}

func TestFeedForwardHiddenChain(t *testing.T) {
	config := identityConfig(1, 1)
	tracker := neat.NewInnovationTracker(config.Genome.FirstSplitNodeKey())
	g := buildGenome(t, config, tracker)

	require.NoError(t, g.AddConnection(tracker, -1, 0, 0.5))
	_, err := g.AddNode(tracker, neat.ConnectionKey{InNodeID: -1, OutNodeID: 0})
	require.NoError(t, err)

	net, err := CreateFeedForwardNetwork(g)
	require.NoError(t, err)

	// The split preserves the function: 1.0 * (input * 1.0) * 0.5.
	outputs, err := net.Activate([]float64{2.0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, outputs[0], 1e-12)
}

func TestFeedForwardShapeMismatch(t *testing.T) {
	config := identityConfig(2, 1)
	tracker := neat.NewInnovationTracker(config.Genome.FirstSplitNodeKey())
	g := buildGenome(t, config, tracker)

	net, err := CreateFeedForwardNetwork(g)
	require.NoError(t, err)

	_, err = net.Activate([]float64{1.0})
	assert.ErrorIs(t, err, neat.ErrShapeMismatch)
	_, err = net.Activate([]float64{1.0, 2.0, 3.0})
	assert.ErrorIs(t, err, neat.ErrShapeMismatch)
}

func TestFeedForwardRejectsCyclicGenome(t *testing.T) {
	config := identityConfig(1, 1)
	config.Genome.NumHidden = 2
	config.Genome.DeriveKeys()
	tracker := neat.NewInnovationTracker(config.Genome.FirstSplitNodeKey())
	g := buildGenome(t, config, tracker)

	// Wire a cycle between the two hidden nodes directly, bypassing the
	// AddConnection cycle guard.
	h1, h2 := config.Genome.HiddenKeys[0], config.Genome.HiddenKeys[1]
	for _, pair := range [][2]int{{h1, h2}, {h2, h1}} {
		key := neat.ConnectionKey{InNodeID: pair[0], OutNodeID: pair[1]}
		g.Connections[key] = &neat.ConnectionGene{Key: key, Innovation: tracker.ConnectionInnovation(pair[0], pair[1]), Weight: 1.0, Enabled: true}
	}

	_, err := CreateFeedForwardNetwork(g)
	assert.ErrorIs(t, err, neat.ErrInvalidTopology)
}

func TestFeedForwardDisabledConnectionIgnored(t *testing.T) {
	config := identityConfig(2, 1)
	tracker := neat.NewInnovationTracker(config.Genome.FirstSplitNodeKey())
	g := buildGenome(t, config, tracker)
	require.NoError(t, g.AddConnection(tracker, -1, 0, 2.0))
	require.NoError(t, g.AddConnection(tracker, -2, 0, 3.0))
	g.Connections[neat.ConnectionKey{InNodeID: -2, OutNodeID: 0}].Enabled = false

	net, err := CreateFeedForwardNetwork(g)
	require.NoError(t, err)

	outputs, err := net.Activate([]float64{1.0, 1.0})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, outputs[0], 1e-12)
}
