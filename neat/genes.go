package neat

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// NodeType classifies the role of a node gene within its genome.
type NodeType int

const (
	NodeHidden NodeType = iota
	NodeInput
	NodeOutput
	NodeBias
)

// String returns the lowercase name of the node type.
func (nt NodeType) String() string {
	switch nt {
	case NodeInput:
		return "input"
	case NodeOutput:
		return "output"
	case NodeBias:
		return "bias"
	default:
		return "hidden"
	}
}

// nodeTypeFromString is the inverse of NodeType.String.
func nodeTypeFromString(s string) (NodeType, error) {
	switch s {
	case "input":
		return NodeInput, nil
	case "output":
		return NodeOutput, nil
	case "bias":
		return NodeBias, nil
	case "hidden":
		return NodeHidden, nil
	}
	return NodeHidden, fmt.Errorf("unknown node type: %q", s)
}

// --------------------------- NodeGene ---------------------------

// NodeGene represents a node (neuron) in the neural network genome.
// Input and bias nodes carry no activation attributes; their value is set
// directly during network evaluation.
type NodeGene struct {
	Key         int // unique within the genome; negative for inputs/bias, >=0 for outputs/hidden
	Type        NodeType
	Bias        float64
	Response    float64
	Activation  string // name of the activation function
	Aggregation string // name of the aggregation function
}

// NewNodeGene creates a hidden or output NodeGene with attributes initialized
// according to the config.
func NewNodeGene(key int, nodeType NodeType, config *GenomeConfig) *NodeGene {
	return &NodeGene{
		Key:         key,
		Type:        nodeType,
		Bias:        initFloatAttribute(config.BiasInitMean, config.BiasInitStdev, config.BiasInitType, config.BiasMinValue, config.BiasMaxValue),
		Response:    initFloatAttribute(config.ResponseInitMean, config.ResponseInitStdev, config.ResponseInitType, config.ResponseMinValue, config.ResponseMaxValue),
		Activation:  initStringAttribute(config.ActivationDefault, config.ActivationOptions),
		Aggregation: initStringAttribute(config.AggregationDefault, config.AggregationOptions),
	}
}

// newSourceNodeGene creates an input or bias NodeGene. Those carry no
// evolvable attributes.
func newSourceNodeGene(key int, nodeType NodeType) *NodeGene {
	return &NodeGene{Key: key, Type: nodeType}
}

// String returns a string representation of the NodeGene.
func (ng *NodeGene) String() string {
	return fmt.Sprintf("NodeGene(Key: %d, Type: %s, Bias: %.3f, Response: %.3f, Activation: %s, Aggregation: %s)",
		ng.Key, ng.Type, ng.Bias, ng.Response, ng.Activation, ng.Aggregation)
}

// Copy creates a deep copy of the NodeGene.
func (ng *NodeGene) Copy() *NodeGene {
	c := *ng
	return &c
}

// Mutate adjusts the attributes of the NodeGene based on mutation rates in
// the config. Input and bias nodes are left untouched.
func (ng *NodeGene) Mutate(config *GenomeConfig) {
	if ng.Type == NodeInput || ng.Type == NodeBias {
		return
	}
	ng.Bias = mutateFloatAttribute(ng.Bias, config.BiasMutateRate, config.BiasReplaceRate, config.BiasMutatePower, config.BiasInitMean, config.BiasInitStdev, config.BiasInitType, config.BiasMinValue, config.BiasMaxValue)
	ng.Response = mutateFloatAttribute(ng.Response, config.ResponseMutateRate, config.ResponseReplaceRate, config.ResponseMutatePower, config.ResponseInitMean, config.ResponseInitStdev, config.ResponseInitType, config.ResponseMinValue, config.ResponseMaxValue)
	ng.Activation = mutateStringAttribute(ng.Activation, config.ActivationMutateRate, config.ActivationOptions)
	ng.Aggregation = mutateStringAttribute(ng.Aggregation, config.AggregationMutateRate, config.AggregationOptions)
}

// Crossover creates a new NodeGene by randomly inheriting attributes from two
// parent NodeGenes with the same key.
func (ng *NodeGene) Crossover(other *NodeGene) *NodeGene {
	child := ng.Copy()
	if rand.Float64() < 0.5 {
		child.Bias = other.Bias
	}
	if rand.Float64() < 0.5 {
		child.Response = other.Response
	}
	if rand.Float64() < 0.5 {
		child.Activation = other.Activation
	}
	if rand.Float64() < 0.5 {
		child.Aggregation = other.Aggregation
	}
	return child
}

// --------------------------- ConnectionGene ---------------------------

// ConnectionKey identifies a connection gene by its ordered (source, target)
// node pair. At most one connection gene exists per key within a genome.
type ConnectionKey struct {
	InNodeID  int
	OutNodeID int
}

// ConnectionGene represents a directed, weighted connection between two
// nodes. Innovation is the historical marking assigned by the
// InnovationTracker when the (in, out) pair was first invented anywhere in
// the population; crossover aligns genes by it.
type ConnectionGene struct {
	Key        ConnectionKey
	Innovation int
	Weight     float64
	Enabled    bool
}

// NewConnectionGene creates an enabled ConnectionGene with the given weight
// and innovation id.
func NewConnectionGene(key ConnectionKey, innovation int, weight float64) *ConnectionGene {
	return &ConnectionGene{
		Key:        key,
		Innovation: innovation,
		Weight:     weight,
		Enabled:    true,
	}
}

// String returns a string representation of the ConnectionGene.
func (cg *ConnectionGene) String() string {
	return fmt.Sprintf("ConnGene(Key: %d->%d, Innov: %d, Weight: %.3f, Enabled: %t)",
		cg.Key.InNodeID, cg.Key.OutNodeID, cg.Innovation, cg.Weight, cg.Enabled)
}

// Copy creates a deep copy of the ConnectionGene.
func (cg *ConnectionGene) Copy() *ConnectionGene {
	c := *cg
	return &c
}

// MutateWeight perturbs or replaces the connection weight according to the
// configured rates.
func (cg *ConnectionGene) MutateWeight(config *GenomeConfig) {
	cg.Weight = mutateFloatAttribute(cg.Weight, config.WeightMutateRate, config.WeightReplaceRate, config.WeightMutatePower, config.WeightInitMean, config.WeightInitStdev, config.WeightInitType, config.WeightMinValue, config.WeightMaxValue)
}

// Crossover combines two matching connection genes (same innovation id) into
// a child gene. The weight comes from either parent uniformly at random. A
// gene disabled in either parent stays disabled in the child with probability
// disabledInheritProb.
func (cg *ConnectionGene) Crossover(other *ConnectionGene, disabledInheritProb float64) *ConnectionGene {
	child := cg.Copy()
	if rand.Float64() < 0.5 {
		child.Weight = other.Weight
	}
	if cg.Enabled && other.Enabled {
		child.Enabled = true
	} else {
		child.Enabled = rand.Float64() >= disabledInheritProb
	}
	return child
}

// --------------------------- Attribute Helpers ---------------------------
// These helpers implement the shared init/mutate behavior of evolvable gene
// attributes.

func initFloatAttribute(mean, stdev float64, initType string, minVal, maxVal float64) float64 {
	var val float64
	switch strings.ToLower(initType) {
	case "gaussian", "normal", "":
		val = rand.NormFloat64()*stdev + mean
	case "uniform":
		// Estimate the uniform range from mean/stdev, two std devs each way.
		rangeMin := math.Max(minVal, mean-(2*stdev))
		rangeMax := math.Min(maxVal, mean+(2*stdev))
		if rangeMax < rangeMin {
			rangeMax = rangeMin
		}
		val = rand.Float64()*(rangeMax-rangeMin) + rangeMin
	default:
		val = rand.NormFloat64()*stdev + mean
	}
	return clamp(val, minVal, maxVal)
}

func mutateFloatAttribute(value, mutateRate, replaceRate, mutatePower, initMean, initStdev float64, initType string, minVal, maxVal float64) float64 {
	r := rand.Float64()
	if r < mutateRate {
		return clamp(value+rand.NormFloat64()*mutatePower, minVal, maxVal)
	}
	if r < mutateRate+replaceRate {
		return initFloatAttribute(initMean, initStdev, initType, minVal, maxVal)
	}
	return value
}

func initStringAttribute(defaultVal string, options []string) string {
	if len(options) == 0 {
		return ""
	}
	switch strings.ToLower(defaultVal) {
	case "random", "none", "":
		return options[rand.Intn(len(options))]
	}
	for _, opt := range options {
		if opt == defaultVal {
			return defaultVal
		}
	}
	// Default not among the options; fall back to a random choice.
	return options[rand.Intn(len(options))]
}

func mutateStringAttribute(value string, mutateRate float64, options []string) string {
	if len(options) <= 1 {
		return value
	}
	if mutateRate > 0 && rand.Float64() < mutateRate {
		others := make([]string, 0, len(options)-1)
		for _, opt := range options {
			if opt != value {
				others = append(others, opt)
			}
		}
		if len(others) == 0 {
			return value
		}
		return others[rand.Intn(len(others))]
	}
	return value
}
