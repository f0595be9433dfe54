// Package topology builds and queries the node/link graph of a simulated
// quantum network.
//
// A declarative NetworkSpec (constructed directly or decoded from YAML)
// names the nodes, the topology shape, and any explicit link overrides; Build
// materializes it into a Network of nodes, links, and transport channels
// with symmetric neighbor sets.
package topology

import (
	"fmt"

	"gopkg.in/yaml.v3"

	qerrors "github.com/entanglab/qnetsim/internal/errors"
)

// TopologyKind selects the link-generation shape of a network.
type TopologyKind string

// Supported topology shapes.
const (
	// TopologyMesh links every unordered pair of distinct nodes.
	TopologyMesh TopologyKind = "mesh"

	// TopologyStar links the first declared node (the hub) to every other.
	TopologyStar TopologyKind = "star"

	// TopologyRing links node i to node (i+1) mod N, forming a cycle.
	TopologyRing TopologyKind = "ring"

	// TopologyTree links node i to its binary-heap children 2i+1 and 2i+2.
	TopologyTree TopologyKind = "tree"
)

// IsValid reports whether the kind is one of the supported shapes.
func (k TopologyKind) IsValid() bool {
	switch k {
	case TopologyMesh, TopologyStar, TopologyRing, TopologyTree:
		return true
	default:
		return false
	}
}

// NodeKind classifies a network node.
type NodeKind string

// Node roles within a network.
const (
	NodeEndpoint NodeKind = "endpoint"
	NodeRepeater NodeKind = "repeater"
	NodeRouter   NodeKind = "router"
	NodeServer   NodeKind = "server"
)

// Position is an optional 3-D node position, used for default link distances.
type Position struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// MemorySpec declares a node's quantum memory. Only nodes with memory may
// buffer qubits across protocol steps.
type MemorySpec struct {
	// Capacity is the maximum number of simultaneously stored qubits.
	Capacity int `yaml:"capacity"`

	// CoherenceTime is the storage lifetime in seconds.
	CoherenceTime float64 `yaml:"coherenceTime"`
}

// NodeSpec declares one network node.
type NodeSpec struct {
	ID         string      `yaml:"id"`
	Kind       NodeKind    `yaml:"kind"`
	QubitCount int         `yaml:"qubitCount"`
	Position   *Position   `yaml:"position,omitempty"`
	Memory     *MemorySpec `yaml:"memory,omitempty"`
}

// ChannelSpec declares one transport channel on a link.
type ChannelSpec struct {
	ID        string  `yaml:"id"`
	Capacity  int     `yaml:"capacity"`
	Fidelity  float64 `yaml:"fidelity"`
	Bandwidth float64 `yaml:"bandwidth"`
}

// LinkSpec declares or overrides one link. Links generated by the topology
// shape get default parameters; a LinkSpec naming the same endpoints
// replaces those defaults, and one naming a new pair adds an extra link.
type LinkSpec struct {
	Source   string        `yaml:"source"`
	Target   string        `yaml:"target"`
	Distance float64       `yaml:"distance"`
	LossRate float64       `yaml:"lossRate"`
	Channels []ChannelSpec `yaml:"channels,omitempty"`
}

// NetworkSpec is the declarative description of a network, the input
// contract of the engine.
type NetworkSpec struct {
	Name     string       `yaml:"name"`
	Topology TopologyKind `yaml:"topology"`
	Nodes    []NodeSpec   `yaml:"nodes"`
	Links    []LinkSpec   `yaml:"links,omitempty"`
}

// ParseNetworkSpec decodes a NetworkSpec from YAML bytes and validates it.
func ParseNetworkSpec(data []byte) (*NetworkSpec, error) {
	var spec NetworkSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("%w: %v", qerrors.ErrInvalidSpec, err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Encode renders the spec as YAML.
func (s *NetworkSpec) Encode() ([]byte, error) {
	return yaml.Marshal(s)
}

// Validate checks the structural invariants of the spec: a known topology
// kind, unique node ids, link endpoints that are declared nodes, and loss
// rates inside [0,1].
func (s *NetworkSpec) Validate() error {
	if !s.Topology.IsValid() {
		return fmt.Errorf("%w: %q", qerrors.ErrUnknownTopology, s.Topology)
	}
	if len(s.Nodes) == 0 {
		return fmt.Errorf("%w: no nodes declared", qerrors.ErrInvalidSpec)
	}

	seen := make(map[string]bool, len(s.Nodes))
	for _, n := range s.Nodes {
		if n.ID == "" {
			return fmt.Errorf("%w: empty node id", qerrors.ErrInvalidSpec)
		}
		if seen[n.ID] {
			return fmt.Errorf("%w: %q", qerrors.ErrDuplicateNode, n.ID)
		}
		seen[n.ID] = true
		if n.QubitCount < 0 {
			return fmt.Errorf("%w: node %q has negative qubit count", qerrors.ErrInvalidSpec, n.ID)
		}
		if n.Memory != nil && n.Memory.Capacity < 1 {
			return fmt.Errorf("%w: node %q memory capacity must be positive", qerrors.ErrInvalidSpec, n.ID)
		}
	}

	for _, l := range s.Links {
		if !seen[l.Source] {
			return fmt.Errorf("%w: %q", qerrors.ErrLinkEndpoint, l.Source)
		}
		if !seen[l.Target] {
			return fmt.Errorf("%w: %q", qerrors.ErrLinkEndpoint, l.Target)
		}
		if l.Source == l.Target {
			return fmt.Errorf("%w: link from %q to itself", qerrors.ErrInvalidSpec, l.Source)
		}
		if l.LossRate < 0 || l.LossRate > 1 {
			return fmt.Errorf("%w: link %s-%s loss rate outside [0,1]", qerrors.ErrInvalidSpec, l.Source, l.Target)
		}
		for _, ch := range l.Channels {
			if ch.Capacity < 1 {
				return fmt.Errorf("%w: channel %q capacity must be positive", qerrors.ErrInvalidSpec, ch.ID)
			}
		}
	}
	return nil
}
