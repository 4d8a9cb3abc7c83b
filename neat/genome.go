package neat

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
)

// Genome represents an individual organism in the population. It consists of
// NodeGenes and ConnectionGenes and is scored by a caller-supplied fitness
// function.
//
// A genome is not safe for concurrent mutation; parallel fitness evaluation
// must treat it as read-only and publish only the fitness score.
type Genome struct {
	Key         int                               // unique identifier within the population
	Nodes       map[int]*NodeGene                 // node key -> NodeGene
	Connections map[ConnectionKey]*ConnectionGene // ordered node pair -> ConnectionGene
	Fitness     float64
	Config      *GenomeConfig
}

// NewGenome creates an empty Genome with the specified key and config.
func NewGenome(key int, config *GenomeConfig) *Genome {
	return &Genome{
		Key:         key,
		Nodes:       make(map[int]*NodeGene),
		Connections: make(map[ConnectionKey]*ConnectionGene),
		Config:      config,
	}
}

// Copy creates a deep copy of the genome under a new key.
func (g *Genome) Copy(newKey int) *Genome {
	c := NewGenome(newKey, g.Config)
	c.Fitness = g.Fitness
	for key, node := range g.Nodes {
		c.Nodes[key] = node.Copy()
	}
	for key, conn := range g.Connections {
		c.Connections[key] = conn.Copy()
	}
	return c
}

// ConfigureNew initializes a fresh genome: input, bias, output and configured
// hidden nodes, plus the initial connection pattern. Hidden nodes use the
// fixed keys from the config so the same key means the same node across all
// genomes of the run.
func (g *Genome) ConfigureNew(tracker *InnovationTracker) {
	for _, nodeKey := range g.Config.InputKeys {
		g.Nodes[nodeKey] = newSourceNodeGene(nodeKey, NodeInput)
	}
	if g.Config.UseBias {
		g.Nodes[g.Config.BiasKey] = newSourceNodeGene(g.Config.BiasKey, NodeBias)
	}
	for _, nodeKey := range g.Config.OutputKeys {
		g.Nodes[nodeKey] = NewNodeGene(nodeKey, NodeOutput, g.Config)
	}
	for _, nodeKey := range g.Config.HiddenKeys {
		g.Nodes[nodeKey] = NewNodeGene(nodeKey, NodeHidden, g.Config)
	}

	g.setupInitialConnections(tracker)
}

// sourceNodeKeys returns the keys usable as connection sources: every node in
// the genome, inputs and bias included.
func (g *Genome) sourceNodeKeys() []int {
	keys := make([]int, 0, len(g.Nodes))
	for nk := range g.Nodes {
		keys = append(keys, nk)
	}
	sort.Ints(keys)
	return keys
}

// targetNodeKeys returns the keys usable as connection targets: hidden and
// output nodes only.
func (g *Genome) targetNodeKeys() []int {
	keys := make([]int, 0, len(g.Nodes))
	for nk, node := range g.Nodes {
		if node.Type == NodeInput || node.Type == NodeBias {
			continue
		}
		keys = append(keys, nk)
	}
	sort.Ints(keys)
	return keys
}

// setupInitialConnections creates the starting connections according to the
// initial_connection config value.
func (g *Genome) setupInitialConnections(tracker *InnovationTracker) {
	parts := strings.Fields(g.Config.InitialConnection)
	connType := parts[0]
	fraction := 1.0
	if strings.HasPrefix(connType, "partial") && len(parts) > 1 {
		if f, err := strconv.ParseFloat(parts[1], 64); err == nil {
			fraction = f
		}
	}

	addConn := func(in, out int, prob float64) {
		if prob < 1.0 && rand.Float64() >= prob {
			return
		}
		weight := initFloatAttribute(g.Config.WeightInitMean, g.Config.WeightInitStdev, g.Config.WeightInitType, g.Config.WeightMinValue, g.Config.WeightMaxValue)
		key := ConnectionKey{InNodeID: in, OutNodeID: out}
		g.Connections[key] = NewConnectionGene(key, tracker.ConnectionInnovation(in, out), weight)
	}

	sources := g.Config.InputKeys
	if g.Config.UseBias {
		sources = append(append([]int{}, sources...), g.Config.BiasKey)
	}
	hidden := g.Config.HiddenKeys
	outputs := g.Config.OutputKeys

	switch connType {
	case "unconnected":
		// No initial connections.
	case "fs_neat":
		// Every input (and bias) feeds every output directly, no hidden wiring.
		for _, ik := range sources {
			for _, ok := range outputs {
				addConn(ik, ok, 1.0)
			}
		}
	case "full_nodirect", "partial_nodirect":
		// Inputs to hidden, hidden to outputs; no direct input-output edges.
		// Degenerates to direct wiring when there are no hidden nodes.
		if len(hidden) == 0 {
			for _, ik := range sources {
				for _, ok := range outputs {
					addConn(ik, ok, fraction)
				}
			}
			break
		}
		for _, ik := range sources {
			for _, hk := range hidden {
				addConn(ik, hk, fraction)
			}
		}
		for _, hk := range hidden {
			for _, ok := range outputs {
				addConn(hk, ok, fraction)
			}
		}
	case "full_direct", "partial_direct":
		// Inputs to hidden and outputs, hidden to outputs.
		for _, ik := range sources {
			for _, hk := range hidden {
				addConn(ik, hk, fraction)
			}
			for _, ok := range outputs {
				addConn(ik, ok, fraction)
			}
		}
		for _, hk := range hidden {
			for _, ok := range outputs {
				addConn(hk, ok, fraction)
			}
		}
	default:
		// Unreachable when the config passed validation.
		panic(fmt.Sprintf("invalid initial_connection type: %s", g.Config.InitialConnection))
	}
}

// AddConnection inserts a new connection gene from node in to node out with
// the given weight. The innovation id comes from the tracker, so the same
// pair added in any genome of the run carries the same id.
//
// It returns ErrInvalidTopology, leaving the genome unchanged, when either
// endpoint is unknown, the target is an input or bias node, the pair already
// has a gene, or the edge would close a cycle in a feed-forward genome.
func (g *Genome) AddConnection(tracker *InnovationTracker, in, out int, weight float64) error {
	if _, ok := g.Nodes[in]; !ok {
		return fmt.Errorf("%w: source node %d does not exist", ErrInvalidTopology, in)
	}
	target, ok := g.Nodes[out]
	if !ok {
		return fmt.Errorf("%w: target node %d does not exist", ErrInvalidTopology, out)
	}
	if target.Type == NodeInput || target.Type == NodeBias {
		return fmt.Errorf("%w: node %d cannot be a connection target", ErrInvalidTopology, out)
	}

	key := ConnectionKey{InNodeID: in, OutNodeID: out}
	if _, exists := g.Connections[key]; exists {
		return fmt.Errorf("%w: connection %d->%d already exists", ErrInvalidTopology, in, out)
	}
	if g.Config.FeedForward && g.createsCycle(in, out) {
		return fmt.Errorf("%w: connection %d->%d would create a cycle", ErrInvalidTopology, in, out)
	}

	g.Connections[key] = NewConnectionGene(key, tracker.ConnectionInnovation(in, out), weight)
	return nil
}

// AddNode splits the connection identified by key: the original gene is
// disabled and replaced by a hidden node with two fresh connections. The
// first leg carries weight 1.0 and the second the original weight, which
// preserves the network function at the moment of the split.
//
// The hidden node key and both innovation ids come from the tracker, so the
// same split in another genome produces an identical structure. Returns the
// new node's key.
func (g *Genome) AddNode(tracker *InnovationTracker, key ConnectionKey) (int, error) {
	conn, ok := g.Connections[key]
	if !ok {
		return 0, fmt.Errorf("%w: connection %d->%d does not exist", ErrInvalidTopology, key.InNodeID, key.OutNodeID)
	}

	split, err := tracker.SplitConnection(conn.Innovation, key)
	if err != nil {
		return 0, err
	}
	if _, exists := g.Nodes[split.NodeKey]; exists {
		return 0, fmt.Errorf("%w: connection %d->%d was already split in this genome", ErrInvalidTopology, key.InNodeID, key.OutNodeID)
	}

	conn.Enabled = false
	g.Nodes[split.NodeKey] = NewNodeGene(split.NodeKey, NodeHidden, g.Config)

	inKey := ConnectionKey{InNodeID: key.InNodeID, OutNodeID: split.NodeKey}
	g.Connections[inKey] = NewConnectionGene(inKey, split.InInnovation, 1.0)

	outKey := ConnectionKey{InNodeID: split.NodeKey, OutNodeID: key.OutNodeID}
	g.Connections[outKey] = NewConnectionGene(outKey, split.OutInnovation, conn.Weight)

	return split.NodeKey, nil
}

// MutateWeights perturbs or replaces every connection weight according to the
// configured rates.
func (g *Genome) MutateWeights() {
	for _, conn := range g.Connections {
		conn.MutateWeight(g.Config)
	}
}

// ToggleRandomConnection flips the enabled flag of a randomly chosen
// connection gene and reports which one it changed. In feed-forward genomes
// a re-enable that would close a cycle through other enabled genes is
// skipped and another candidate is tried. Returns false when no connection
// could be toggled.
func (g *Genome) ToggleRandomConnection() (ConnectionKey, bool) {
	if len(g.Connections) == 0 {
		return ConnectionKey{}, false
	}
	keys := make([]ConnectionKey, 0, len(g.Connections))
	for k := range g.Connections {
		keys = append(keys, k)
	}
	rand.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })

	for _, key := range keys {
		conn := g.Connections[key]
		if !conn.Enabled && g.Config.FeedForward && g.createsCycle(key.InNodeID, key.OutNodeID) {
			continue
		}
		conn.Enabled = !conn.Enabled
		return key, true
	}
	return ConnectionKey{}, false
}

// Mutate applies structural and attribute mutations. Structural additions
// draw their identifiers from the tracker. A registry conflict aborts the
// mutation and is returned to the caller; topology rejections are treated as
// failed attempts and skipped.
func (g *Genome) Mutate(tracker *InnovationTracker) error {
	single := g.Config.SingleStructuralMutation
	structureMutated := false

	if rand.Float64() < g.Config.NodeAddProb {
		if err := g.mutateAddNode(tracker); err != nil {
			return err
		}
		structureMutated = true
	}

	if !single || !structureMutated {
		if rand.Float64() < g.Config.ConnAddProb {
			g.mutateAddConnection(tracker)
			structureMutated = true
		}
	}

	if !single || !structureMutated {
		if rand.Float64() < g.Config.EnabledMutateRate {
			g.ToggleRandomConnection()
		}
	}

	for _, node := range g.Nodes {
		node.Mutate(g.Config)
	}
	g.MutateWeights()
	return nil
}

// mutateAddNode splits a random connection. Already-split connections are
// left alone.
func (g *Genome) mutateAddNode(tracker *InnovationTracker) error {
	if len(g.Connections) == 0 {
		return nil
	}
	keys := make([]ConnectionKey, 0, len(g.Connections))
	for k := range g.Connections {
		keys = append(keys, k)
	}
	key := keys[rand.Intn(len(keys))]

	if _, err := g.AddNode(tracker, key); err != nil {
		if errors.Is(err, ErrRegistryConflict) {
			return err
		}
		// Topology rejection: this genome already performed the split.
	}
	return nil
}

// mutateAddConnection tries random node pairs until one yields a valid new
// connection, bounded to keep densely connected genomes cheap.
func (g *Genome) mutateAddConnection(tracker *InnovationTracker) {
	sources := g.sourceNodeKeys()
	targets := g.targetNodeKeys()
	if len(sources) == 0 || len(targets) == 0 {
		return
	}

	const maxAttempts = 20
	for i := 0; i < maxAttempts; i++ {
		in := sources[rand.Intn(len(sources))]
		out := targets[rand.Intn(len(targets))]
		weight := initFloatAttribute(g.Config.WeightInitMean, g.Config.WeightInitStdev, g.Config.WeightInitType, g.Config.WeightMinValue, g.Config.WeightMaxValue)
		if err := g.AddConnection(tracker, in, out, weight); err == nil {
			return
		}
	}
}

// ConfigureCrossover fills this genome with genes combined from two parents.
// Connection genes are aligned by innovation id: matching genes mix
// attributes, while disjoint and excess genes are inherited from the fitter
// parent only. On a fitness tie the config's crossover_tie_break policy
// decides the primary parent.
func (g *Genome) ConfigureCrossover(parent1, parent2 *Genome) {
	primary, secondary := parent1, parent2
	switch {
	case parent1.Fitness < parent2.Fitness:
		primary, secondary = parent2, parent1
	case parent1.Fitness == parent2.Fitness:
		if parent1.Config.CrossoverTieBreak == TieBreakRandom && rand.Float64() < 0.5 {
			primary, secondary = parent2, parent1
		}
	}

	g.Config = primary.Config

	secondaryByInnovation := secondary.connectionsByInnovation()
	for key, conn1 := range primary.Connections {
		if conn2, ok := secondaryByInnovation[conn1.Innovation]; ok {
			g.Connections[key] = conn1.Crossover(conn2, g.Config.DisabledInheritProb)
		} else {
			g.Connections[key] = conn1.Copy()
		}
	}

	// Nodes: the fixed layout plus every node an inherited connection refers
	// to. Attributes of nodes both parents carry are mixed like matching
	// genes; the rest come from the primary parent.
	needed := make(map[int]bool)
	for _, nodeKey := range g.Config.InputKeys {
		needed[nodeKey] = true
	}
	if g.Config.UseBias {
		needed[g.Config.BiasKey] = true
	}
	for _, nodeKey := range g.Config.OutputKeys {
		needed[nodeKey] = true
	}
	for key := range g.Connections {
		needed[key.InNodeID] = true
		needed[key.OutNodeID] = true
	}

	for nodeKey := range needed {
		node1, ok := primary.Nodes[nodeKey]
		if !ok {
			continue
		}
		if node2, ok := secondary.Nodes[nodeKey]; ok && node1.Type != NodeInput && node1.Type != NodeBias {
			g.Nodes[nodeKey] = node1.Crossover(node2)
		} else {
			g.Nodes[nodeKey] = node1.Copy()
		}
	}
}

// connectionsByInnovation indexes the genome's connection genes by their
// innovation id.
func (g *Genome) connectionsByInnovation() map[int]*ConnectionGene {
	byInnovation := make(map[int]*ConnectionGene, len(g.Connections))
	for _, conn := range g.Connections {
		byInnovation[conn.Innovation] = conn
	}
	return byInnovation
}

// maxInnovation returns the largest innovation id in the genome, or 0 when it
// has no connections.
func (g *Genome) maxInnovation() int {
	maxID := 0
	for _, conn := range g.Connections {
		if conn.Innovation > maxID {
			maxID = conn.Innovation
		}
	}
	return maxID
}

// Distance computes the compatibility distance between two genomes:
//
//	(c1*excess + c2*disjoint) / N  +  c3 * meanWeightDiff
//
// Genes are aligned by innovation id. A gene is excess when its innovation
// id lies beyond the other genome's largest id, disjoint otherwise. N is the
// connection gene count of the larger genome, taken as 1 when that count is
// below 20. The result is symmetric.
func (g *Genome) Distance(other *Genome) float64 {
	excess := 0
	disjoint := 0
	weightDiffSum := 0.0
	matching := 0

	otherByInnovation := other.connectionsByInnovation()
	gMax := g.maxInnovation()
	otherMax := other.maxInnovation()

	for _, conn1 := range g.Connections {
		if conn2, ok := otherByInnovation[conn1.Innovation]; ok {
			diff := conn1.Weight - conn2.Weight
			if diff < 0 {
				diff = -diff
			}
			weightDiffSum += diff
			matching++
		} else if conn1.Innovation > otherMax {
			excess++
		} else {
			disjoint++
		}
	}
	gByInnovation := g.connectionsByInnovation()
	for _, conn2 := range other.Connections {
		if _, ok := gByInnovation[conn2.Innovation]; ok {
			continue
		}
		if conn2.Innovation > gMax {
			excess++
		} else {
			disjoint++
		}
	}

	larger := len(g.Connections)
	if len(other.Connections) > larger {
		larger = len(other.Connections)
	}
	n := 1.0
	if larger >= 20 {
		n = float64(larger)
	}

	distance := (g.Config.CompatibilityExcessCoefficient*float64(excess) +
		g.Config.CompatibilityDisjointCoefficient*float64(disjoint)) / n
	if matching > 0 {
		distance += g.Config.CompatibilityWeightCoefficient * (weightDiffSum / float64(matching))
	}
	return distance
}

// createsCycle reports whether adding an edge in->out would close a cycle
// through the genome's enabled connections.
func (g *Genome) createsCycle(in, out int) bool {
	if in == out {
		return true
	}

	visited := make(map[int]bool)
	queue := []int{out}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current == in {
			return true
		}
		if visited[current] {
			continue
		}
		visited[current] = true

		for connKey, conn := range g.Connections {
			if conn.Enabled && connKey.InNodeID == current {
				queue = append(queue, connKey.OutNodeID)
			}
		}
	}
	return false
}
