package nn

import (
	"fmt"
	"math"

	"github.com/baldhumanity/neatcore/neat"
)

// RecurrentNetwork is a phenotype network that may contain cycles. One
// Activate call runs a bounded number of synchronous relaxation passes: each
// pass computes every node from the previous pass's values, so evaluation is
// independent of node ordering. The pass loop exits early once the largest
// per-node change drops to the tolerance.
//
// The network keeps no state between Activate calls; each call starts from
// zeroed node values.
type RecurrentNetwork struct {
	InputKeys   []int
	OutputKeys  []int
	BiasKey     int
	HasBias     bool
	MaxSteps    int
	Tolerance   float64
	Nodes       map[int]neuralNode
	Connections map[neat.ConnectionKey]neat.ConnectionGene
}

// CreateRecurrentNetwork builds a runnable network from a genome, cycles
// permitted. Relaxation bounds come from the genome's config.
func CreateRecurrentNetwork(g *neat.Genome) (*RecurrentNetwork, error) {
	nodes, connections, err := buildNodes(g)
	if err != nil {
		return nil, err
	}
	return &RecurrentNetwork{
		InputKeys:   g.Config.InputKeys,
		OutputKeys:  g.Config.OutputKeys,
		BiasKey:     g.Config.BiasKey,
		HasBias:     g.Config.UseBias,
		MaxSteps:    g.Config.MaxRelaxSteps,
		Tolerance:   g.Config.RelaxTolerance,
		Nodes:       nodes,
		Connections: connections,
	}, nil
}

// Activate computes the network's outputs for one input vector, relaxing the
// node values for up to MaxSteps passes. The input length must match the
// input layer or ErrShapeMismatch is returned.
func (net *RecurrentNetwork) Activate(inputs []float64) ([]float64, error) {
	if len(inputs) != len(net.InputKeys) {
		return nil, fmt.Errorf("%w: got %d inputs, network has %d input nodes",
			neat.ErrShapeMismatch, len(inputs), len(net.InputKeys))
	}

	prev := make(map[int]float64, len(net.Nodes)+len(net.InputKeys)+1)
	cur := make(map[int]float64, len(prev))
	for i, ik := range net.InputKeys {
		prev[ik] = inputs[i]
		cur[ik] = inputs[i]
	}
	if net.HasBias {
		prev[net.BiasKey] = 1.0
		cur[net.BiasKey] = 1.0
	}
	for nk := range net.Nodes {
		prev[nk] = 0.0
	}

	var weighted []float64
	for step := 0; step < net.MaxSteps; step++ {
		maxDelta := 0.0
		for nodeKey, node := range net.Nodes {
			weighted = weighted[:0]
			for _, connKey := range node.Incoming {
				conn := net.Connections[connKey]
				weighted = append(weighted, prev[connKey.InNodeID]*conn.Weight)
			}
			aggregated := node.AggregationFn(weighted)
			value := node.ActivationFn(node.Response * (aggregated + node.Bias))
			cur[nodeKey] = value

			if delta := math.Abs(value - prev[nodeKey]); delta > maxDelta {
				maxDelta = delta
			}
		}

		for nk := range net.Nodes {
			prev[nk] = cur[nk]
		}
		if net.Tolerance > 0 && maxDelta <= net.Tolerance {
			break
		}
	}

	outputs := make([]float64, len(net.OutputKeys))
	for i, ok := range net.OutputKeys {
		outputs[i] = prev[ok]
	}
	return outputs, nil
}
