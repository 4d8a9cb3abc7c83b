// Package nn turns genomes into runnable phenotype networks.
package nn

import (
	"fmt"
	"sort"

	"github.com/baldhumanity/neatcore/neat"
)

// neuralNode holds everything needed to evaluate one node: resolved
// activation/aggregation functions, attributes and the incoming enabled
// connections.
type neuralNode struct {
	Key           int
	Bias          float64
	Response      float64
	ActivationFn  neat.ActivationType
	AggregationFn neat.AggregationType
	Incoming      []neat.ConnectionKey
}

// FeedForwardNetwork is a phenotype network without cycles, activated in a
// single topologically ordered pass. It is stateless between activations and
// safe for concurrent use.
type FeedForwardNetwork struct {
	InputKeys     []int
	OutputKeys    []int
	BiasKey       int // constant-one node key, meaningful only when HasBias
	HasBias       bool
	NodeEvalOrder []int
	Nodes         map[int]neuralNode
	Connections   map[neat.ConnectionKey]neat.ConnectionGene
}

// buildNodes resolves the genome's hidden and output nodes into evaluable
// form and collects the enabled connections, indexed by target.
func buildNodes(g *neat.Genome) (map[int]neuralNode, map[neat.ConnectionKey]neat.ConnectionGene, error) {
	nodes := make(map[int]neuralNode)
	connections := make(map[neat.ConnectionKey]neat.ConnectionGene)
	incoming := make(map[int][]neat.ConnectionKey)

	for key, conn := range g.Connections {
		if !conn.Enabled {
			continue
		}
		connections[key] = *conn
		incoming[key.OutNodeID] = append(incoming[key.OutNodeID], key)
	}

	for key, gn := range g.Nodes {
		if gn.Type == neat.NodeInput || gn.Type == neat.NodeBias {
			continue
		}
		actFn, err := neat.GetActivation(gn.Activation)
		if err != nil {
			return nil, nil, fmt.Errorf("node %d: %w", key, err)
		}
		aggFn, err := neat.GetAggregation(gn.Aggregation)
		if err != nil {
			return nil, nil, fmt.Errorf("node %d: %w", key, err)
		}
		in := incoming[key]
		sort.Slice(in, func(i, j int) bool {
			if in[i].InNodeID != in[j].InNodeID {
				return in[i].InNodeID < in[j].InNodeID
			}
			return in[i].OutNodeID < in[j].OutNodeID
		})
		nodes[key] = neuralNode{
			Key:           key,
			Bias:          gn.Bias,
			Response:      gn.Response,
			ActivationFn:  actFn,
			AggregationFn: aggFn,
			Incoming:      in,
		}
	}
	return nodes, connections, nil
}

// CreateFeedForwardNetwork builds a runnable feed-forward network from a
// genome. The evaluation order comes from a topological sort of the enabled
// connection graph; a cycle among them means the genome violates its
// feed-forward contract and yields an invalid-topology error.
func CreateFeedForwardNetwork(g *neat.Genome) (*FeedForwardNetwork, error) {
	if !g.Config.FeedForward {
		return nil, fmt.Errorf("genome %d is configured as recurrent; use CreateRecurrentNetwork", g.Key)
	}

	nodes, connections, err := buildNodes(g)
	if err != nil {
		return nil, err
	}

	// Kahn's algorithm over every node of the genome. Source nodes (inputs,
	// bias) start at in-degree zero and are filtered from the result.
	inDegree := make(map[int]int, len(g.Nodes))
	graph := make(map[int][]int, len(g.Nodes))
	allKeys := make([]int, 0, len(g.Nodes))
	for nk := range g.Nodes {
		allKeys = append(allKeys, nk)
		inDegree[nk] = 0
	}
	sort.Ints(allKeys)

	for connKey := range connections {
		graph[connKey.InNodeID] = append(graph[connKey.InNodeID], connKey.OutNodeID)
		inDegree[connKey.OutNodeID]++
	}

	var queue []int
	for _, nk := range allKeys {
		if inDegree[nk] == 0 {
			queue = append(queue, nk)
		}
	}

	evalOrder := make([]int, 0, len(allKeys))
	for len(queue) > 0 {
		sort.Ints(queue)
		u := queue[0]
		queue = queue[1:]
		evalOrder = append(evalOrder, u)

		for _, v := range graph[u] {
			inDegree[v]--
			if inDegree[v] == 0 {
				queue = append(queue, v)
			}
		}
	}

	if len(evalOrder) != len(allKeys) {
		return nil, fmt.Errorf("%w: enabled connection graph of genome %d contains a cycle", neat.ErrInvalidTopology, g.Key)
	}

	// Source nodes get their values assigned directly, so only hidden and
	// output nodes stay in the evaluation order.
	filtered := make([]int, 0, len(evalOrder))
	for _, nk := range evalOrder {
		if _, ok := nodes[nk]; ok {
			filtered = append(filtered, nk)
		}
	}

	return &FeedForwardNetwork{
		InputKeys:     g.Config.InputKeys,
		OutputKeys:    g.Config.OutputKeys,
		BiasKey:       g.Config.BiasKey,
		HasBias:       g.Config.UseBias,
		NodeEvalOrder: filtered,
		Nodes:         nodes,
		Connections:   connections,
	}, nil
}

// Activate computes the network's outputs for one input vector. The input
// length must match the network's input layer or ErrShapeMismatch is
// returned. Output nodes with no enabled incoming connections still produce
// their activation of bias alone.
func (net *FeedForwardNetwork) Activate(inputs []float64) ([]float64, error) {
	if len(inputs) != len(net.InputKeys) {
		return nil, fmt.Errorf("%w: got %d inputs, network has %d input nodes",
			neat.ErrShapeMismatch, len(inputs), len(net.InputKeys))
	}

	nodeValues := make(map[int]float64, len(net.Nodes)+len(net.InputKeys)+1)
	for i, ik := range net.InputKeys {
		nodeValues[ik] = inputs[i]
	}
	if net.HasBias {
		nodeValues[net.BiasKey] = 1.0
	}

	var weighted []float64
	for _, nodeKey := range net.NodeEvalOrder {
		node := net.Nodes[nodeKey]

		weighted = weighted[:0]
		for _, connKey := range node.Incoming {
			conn := net.Connections[connKey]
			weighted = append(weighted, nodeValues[connKey.InNodeID]*conn.Weight)
		}

		aggregated := node.AggregationFn(weighted)
		nodeValues[nodeKey] = node.ActivationFn(node.Response * (aggregated + node.Bias))
	}

	outputs := make([]float64, len(net.OutputKeys))
	for i, ok := range net.OutputKeys {
		outputs[i] = nodeValues[ok]
	}
	return outputs, nil
}
