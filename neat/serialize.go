package neat

import (
	"fmt"
	"sort"
)

// NodeData is the portable form of a NodeGene.
type NodeData struct {
	Key         int     `json:"key"`
	Type        string  `json:"type"`
	Bias        float64 `json:"bias"`
	Response    float64 `json:"response"`
	Activation  string  `json:"activation"`
	Aggregation string  `json:"aggregation"`
}

// ConnectionData is the portable form of a ConnectionGene.
type ConnectionData struct {
	In         int     `json:"in"`
	Out        int     `json:"out"`
	Innovation int     `json:"innovation"`
	Weight     float64 `json:"weight"`
	Enabled    bool    `json:"enabled"`
}

// GenomeData is a portable, order-stable rendering of a genome, suitable for
// JSON storage and transfer. Nodes are sorted by key and connections by
// innovation id, so renderings of equal genomes compare equal.
type GenomeData struct {
	Key         int              `json:"key"`
	Fitness     float64          `json:"fitness"`
	Nodes       []NodeData       `json:"nodes"`
	Connections []ConnectionData `json:"connections"`
}

// ToData renders the genome into its portable form.
func (g *Genome) ToData() GenomeData {
	data := GenomeData{
		Key:         g.Key,
		Fitness:     g.Fitness,
		Nodes:       make([]NodeData, 0, len(g.Nodes)),
		Connections: make([]ConnectionData, 0, len(g.Connections)),
	}

	for _, node := range g.Nodes {
		data.Nodes = append(data.Nodes, NodeData{
			Key:         node.Key,
			Type:        node.Type.String(),
			Bias:        node.Bias,
			Response:    node.Response,
			Activation:  node.Activation,
			Aggregation: node.Aggregation,
		})
	}
	sort.Slice(data.Nodes, func(i, j int) bool { return data.Nodes[i].Key < data.Nodes[j].Key })

	for _, conn := range g.Connections {
		data.Connections = append(data.Connections, ConnectionData{
			In:         conn.Key.InNodeID,
			Out:        conn.Key.OutNodeID,
			Innovation: conn.Innovation,
			Weight:     conn.Weight,
			Enabled:    conn.Enabled,
		})
	}
	sort.Slice(data.Connections, func(i, j int) bool {
		return data.Connections[i].Innovation < data.Connections[j].Innovation
	})
	return data
}

// GenomeFromData reconstructs a genome from its portable form. It returns
// ErrInvalidTopology when a connection refers to a node the rendering does
// not contain.
func GenomeFromData(data GenomeData, config *GenomeConfig) (*Genome, error) {
	g := NewGenome(data.Key, config)
	g.Fitness = data.Fitness

	for _, nd := range data.Nodes {
		nodeType, err := nodeTypeFromString(nd.Type)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", nd.Key, err)
		}
		g.Nodes[nd.Key] = &NodeGene{
			Key:         nd.Key,
			Type:        nodeType,
			Bias:        nd.Bias,
			Response:    nd.Response,
			Activation:  nd.Activation,
			Aggregation: nd.Aggregation,
		}
	}

	for _, cd := range data.Connections {
		if _, ok := g.Nodes[cd.In]; !ok {
			return nil, fmt.Errorf("%w: connection %d->%d refers to missing node %d", ErrInvalidTopology, cd.In, cd.Out, cd.In)
		}
		if _, ok := g.Nodes[cd.Out]; !ok {
			return nil, fmt.Errorf("%w: connection %d->%d refers to missing node %d", ErrInvalidTopology, cd.In, cd.Out, cd.Out)
		}
		key := ConnectionKey{InNodeID: cd.In, OutNodeID: cd.Out}
		g.Connections[key] = &ConnectionGene{
			Key:        key,
			Innovation: cd.Innovation,
			Weight:     cd.Weight,
			Enabled:    cd.Enabled,
		}
	}
	return g, nil
}
