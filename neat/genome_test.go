package neat

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestConfig returns a config whose gene attributes initialize to fixed
// values (identity activation, zero bias, unit response) so structural tests
// are independent of the random source.
func newTestConfig(numInputs, numOutputs int) *Config {
	config := DefaultConfig(numInputs, numOutputs)
	config.Genome.InitialConnection = "unconnected"
	config.Genome.ActivationDefault = "identity"
	config.Genome.ActivationOptions = []string{"identity"}
	config.Genome.BiasInitStdev = 0.0
	config.Genome.ResponseInitStdev = 0.0
	// A matching gene disabled in either parent is re-enabled with
	// probability 1-disabled_inherit_prob; pin it so crossover assertions
	// on enabled flags are exact.
	config.Genome.DisabledInheritProb = 1.0
	config.Genome.DeriveKeys()
	return config
}

func newTestGenome(t *testing.T, key int, config *Config, tracker *InnovationTracker) *Genome {
	t.Helper()
	g := NewGenome(key, &config.Genome)
	g.ConfigureNew(tracker)
	return g
}

func TestConfigureNewNodeLayout(t *testing.T) {
	config := newTestConfig(2, 1)
	tracker := NewInnovationTracker(config.Genome.FirstSplitNodeKey())
	g := newTestGenome(t, 1, config, tracker)

	require.Contains(t, g.Nodes, -1)
	require.Contains(t, g.Nodes, -2)
	require.Contains(t, g.Nodes, -3) // bias
	require.Contains(t, g.Nodes, 0)
	assert.Equal(t, NodeInput, g.Nodes[-1].Type)
	assert.Equal(t, NodeBias, g.Nodes[-3].Type)
	assert.Equal(t, NodeOutput, g.Nodes[0].Type)
	assert.Empty(t, g.Connections)
}

func TestAddConnectionAssignsTrackedInnovation(t *testing.T) {
	config := newTestConfig(2, 1)
	tracker := NewInnovationTracker(config.Genome.FirstSplitNodeKey())
	g1 := newTestGenome(t, 1, config, tracker)
	g2 := newTestGenome(t, 2, config, tracker)

	require.NoError(t, g1.AddConnection(tracker, -1, 0, 0.5))
	require.NoError(t, g2.AddConnection(tracker, -1, 0, -0.5))

	key := ConnectionKey{InNodeID: -1, OutNodeID: 0}
	assert.Equal(t, g1.Connections[key].Innovation, g2.Connections[key].Innovation,
		"the same structural change must carry the same innovation id in every genome")
}

func TestAddConnectionRejectsInvalidTopology(t *testing.T) {
	config := newTestConfig(2, 1)
	tracker := NewInnovationTracker(config.Genome.FirstSplitNodeKey())
	g := newTestGenome(t, 1, config, tracker)
	require.NoError(t, g.AddConnection(tracker, -1, 0, 0.5))
	before := len(g.Connections)

	// Duplicate pair.
	err := g.AddConnection(tracker, -1, 0, 1.0)
	assert.ErrorIs(t, err, ErrInvalidTopology)

	// Unknown node.
	err = g.AddConnection(tracker, 99, 0, 1.0)
	assert.ErrorIs(t, err, ErrInvalidTopology)

	// Input node as target.
	err = g.AddConnection(tracker, 0, -1, 1.0)
	assert.ErrorIs(t, err, ErrInvalidTopology)

	// Self-loop in a feed-forward genome.
	err = g.AddConnection(tracker, 0, 0, 1.0)
	assert.ErrorIs(t, err, ErrInvalidTopology)

	assert.Equal(t, before, len(g.Connections), "a rejected operation must leave the genome unchanged")
}

func TestAddConnectionRejectsCycle(t *testing.T) {
	config := newTestConfig(1, 1)
	tracker := NewInnovationTracker(config.Genome.FirstSplitNodeKey())
	g := newTestGenome(t, 1, config, tracker)

	require.NoError(t, g.AddConnection(tracker, -1, 0, 1.0))
	nodeKey, err := g.AddNode(tracker, ConnectionKey{InNodeID: -1, OutNodeID: 0})
	require.NoError(t, err)

	// hidden -> output exists, so output -> hidden closes a cycle.
	err = g.AddConnection(tracker, 0, nodeKey, 1.0)
	assert.ErrorIs(t, err, ErrInvalidTopology)
}

func TestAddNodeSplitSemantics(t *testing.T) {
	config := newTestConfig(2, 1)
	tracker := NewInnovationTracker(config.Genome.FirstSplitNodeKey())
	g := newTestGenome(t, 1, config, tracker)

	key := ConnectionKey{InNodeID: -1, OutNodeID: 0}
	require.NoError(t, g.AddConnection(tracker, -1, 0, 0.7))
	original := g.Connections[key]

	nodeKey, err := g.AddNode(tracker, key)
	require.NoError(t, err)

	assert.False(t, original.Enabled, "the split connection must be disabled")
	require.Contains(t, g.Nodes, nodeKey)
	assert.Equal(t, NodeHidden, g.Nodes[nodeKey].Type)

	inLeg := g.Connections[ConnectionKey{InNodeID: -1, OutNodeID: nodeKey}]
	outLeg := g.Connections[ConnectionKey{InNodeID: nodeKey, OutNodeID: 0}]
	require.NotNil(t, inLeg)
	require.NotNil(t, outLeg)
	assert.True(t, inLeg.Enabled)
	assert.True(t, outLeg.Enabled)
	assert.Equal(t, 1.0, inLeg.Weight, "first leg carries weight 1.0")
	assert.Equal(t, 0.7, outLeg.Weight, "second leg carries the original weight")
	assert.NotEqual(t, inLeg.Innovation, outLeg.Innovation)
	assert.NotEqual(t, original.Innovation, inLeg.Innovation)

	// Splitting again fails: the hidden node already exists here.
	_, err = g.AddNode(tracker, key)
	assert.ErrorIs(t, err, ErrInvalidTopology)

	// A missing connection cannot be split.
	_, err = g.AddNode(tracker, ConnectionKey{InNodeID: -2, OutNodeID: 0})
	assert.ErrorIs(t, err, ErrInvalidTopology)
}

func TestAddNodeSameSplitAcrossGenomes(t *testing.T) {
	config := newTestConfig(2, 1)
	tracker := NewInnovationTracker(config.Genome.FirstSplitNodeKey())
	g1 := newTestGenome(t, 1, config, tracker)
	g2 := newTestGenome(t, 2, config, tracker)

	key := ConnectionKey{InNodeID: -1, OutNodeID: 0}
	require.NoError(t, g1.AddConnection(tracker, -1, 0, 0.3))
	require.NoError(t, g2.AddConnection(tracker, -1, 0, 0.9))

	node1, err := g1.AddNode(tracker, key)
	require.NoError(t, err)
	node2, err := g2.AddNode(tracker, key)
	require.NoError(t, err)

	assert.Equal(t, node1, node2, "the same split must yield the same hidden node key")
	inKey := ConnectionKey{InNodeID: -1, OutNodeID: node1}
	assert.Equal(t, g1.Connections[inKey].Innovation, g2.Connections[inKey].Innovation)
}

func TestToggleRandomConnection(t *testing.T) {
	config := newTestConfig(2, 1)
	tracker := NewInnovationTracker(config.Genome.FirstSplitNodeKey())
	g := newTestGenome(t, 1, config, tracker)

	_, toggled := g.ToggleRandomConnection()
	assert.False(t, toggled, "nothing to toggle in an unconnected genome")

	require.NoError(t, g.AddConnection(tracker, -1, 0, 0.5))
	key, toggled := g.ToggleRandomConnection()
	require.True(t, toggled)
	assert.Equal(t, ConnectionKey{InNodeID: -1, OutNodeID: 0}, key)
	assert.False(t, g.Connections[key].Enabled)

	key, toggled = g.ToggleRandomConnection()
	require.True(t, toggled)
	assert.True(t, g.Connections[key].Enabled)
}

func genomeGeneSets(g *Genome) ([]int, []ConnectionKey, []int) {
	nodeKeys := make([]int, 0, len(g.Nodes))
	for k := range g.Nodes {
		nodeKeys = append(nodeKeys, k)
	}
	sort.Ints(nodeKeys)

	connKeys := make([]ConnectionKey, 0, len(g.Connections))
	innovations := make([]int, 0, len(g.Connections))
	for k, c := range g.Connections {
		connKeys = append(connKeys, k)
		innovations = append(innovations, c.Innovation)
	}
	sort.Slice(connKeys, func(i, j int) bool {
		if connKeys[i].InNodeID != connKeys[j].InNodeID {
			return connKeys[i].InNodeID < connKeys[j].InNodeID
		}
		return connKeys[i].OutNodeID < connKeys[j].OutNodeID
	})
	sort.Ints(innovations)
	return nodeKeys, connKeys, innovations
}

func TestCrossoverWithItselfIsIdentity(t *testing.T) {
	config := newTestConfig(2, 1)
	tracker := NewInnovationTracker(config.Genome.FirstSplitNodeKey())
	g := newTestGenome(t, 1, config, tracker)
	require.NoError(t, g.AddConnection(tracker, -1, 0, 0.5))
	require.NoError(t, g.AddConnection(tracker, -2, 0, -0.25))
	_, err := g.AddNode(tracker, ConnectionKey{InNodeID: -1, OutNodeID: 0})
	require.NoError(t, err)
	g.Fitness = 1.0

	child := NewGenome(99, &config.Genome)
	child.ConfigureCrossover(g, g)

	wantNodes, wantConns, wantInnovs := genomeGeneSets(g)
	gotNodes, gotConns, gotInnovs := genomeGeneSets(child)
	assert.Equal(t, wantNodes, gotNodes)
	assert.Equal(t, wantConns, gotConns)
	assert.Equal(t, wantInnovs, gotInnovs)

	for key, conn := range g.Connections {
		assert.Equal(t, conn.Weight, child.Connections[key].Weight)
		assert.Equal(t, conn.Enabled, child.Connections[key].Enabled)
	}
}

func TestCrossoverInheritsDisjointFromFitterOnly(t *testing.T) {
	config := newTestConfig(2, 1)
	tracker := NewInnovationTracker(config.Genome.FirstSplitNodeKey())
	fitter := newTestGenome(t, 1, config, tracker)
	weaker := newTestGenome(t, 2, config, tracker)

	require.NoError(t, fitter.AddConnection(tracker, -1, 0, 0.5))
	require.NoError(t, weaker.AddConnection(tracker, -1, 0, 0.6))
	// Disjoint genes on both sides.
	require.NoError(t, fitter.AddConnection(tracker, -2, 0, 0.1))
	hidden, err := weaker.AddNode(tracker, ConnectionKey{InNodeID: -1, OutNodeID: 0})
	require.NoError(t, err)

	fitter.Fitness = 2.0
	weaker.Fitness = 1.0

	child := NewGenome(99, &config.Genome)
	child.ConfigureCrossover(weaker, fitter) // argument order must not matter

	assert.Contains(t, child.Connections, ConnectionKey{InNodeID: -2, OutNodeID: 0},
		"disjoint gene of the fitter parent is inherited")
	assert.NotContains(t, child.Connections, ConnectionKey{InNodeID: -1, OutNodeID: hidden},
		"disjoint gene of the weaker parent is not inherited")
	assert.NotContains(t, child.Nodes, hidden)
}

func TestDistanceSymmetricAndFormula(t *testing.T) {
	config := newTestConfig(2, 1)
	config.Genome.CompatibilityExcessCoefficient = 1.0
	config.Genome.CompatibilityDisjointCoefficient = 1.0
	config.Genome.CompatibilityWeightCoefficient = 0.5

	tracker := NewInnovationTracker(config.Genome.FirstSplitNodeKey())
	g1 := newTestGenome(t, 1, config, tracker)
	g2 := newTestGenome(t, 2, config, tracker)

	// Matching gene with differing weights.
	require.NoError(t, g1.AddConnection(tracker, -1, 0, 1.0))
	require.NoError(t, g2.AddConnection(tracker, -1, 0, 0.0))
	// Disjoint in g1 (innovation below g2's max), then excess in g2.
	require.NoError(t, g1.AddConnection(tracker, -2, 0, 0.5))
	_, err := g2.AddNode(tracker, ConnectionKey{InNodeID: -1, OutNodeID: 0})
	require.NoError(t, err)

	d12 := g1.Distance(g2)
	d21 := g2.Distance(g1)
	assert.InDelta(t, d12, d21, 1e-12, "distance must be symmetric")

	// g1: innovations {1, 2}; g2: {1 (disabled), 3, 4}.
	// Matching: 1 (weight diff 1.0). Disjoint: 2. Excess: 3, 4. N = 1.
	want := (1.0*2+1.0*1)/1.0 + 0.5*1.0
	assert.InDelta(t, want, d12, 1e-12)

	assert.InDelta(t, 0.0, g1.Distance(g1), 1e-12)
}

func TestMutateSurfacesNoErrorOnHealthyGenome(t *testing.T) {
	config := newTestConfig(2, 1)
	config.Genome.InitialConnection = "full_direct"
	config.Genome.ConnAddProb = 1.0
	config.Genome.NodeAddProb = 1.0
	tracker := NewInnovationTracker(config.Genome.FirstSplitNodeKey())
	g := newTestGenome(t, 1, config, tracker)

	for i := 0; i < 10; i++ {
		require.NoError(t, g.Mutate(tracker))
	}
	// Structural mutations must have kept weights within configured bounds.
	for _, conn := range g.Connections {
		assert.LessOrEqual(t, conn.Weight, config.Genome.WeightMaxValue)
		assert.GreaterOrEqual(t, conn.Weight, config.Genome.WeightMinValue)
	}
}
