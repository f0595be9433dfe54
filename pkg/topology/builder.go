package topology

import (
	"fmt"
	"math"

	"github.com/entanglab/qnetsim/internal/constants"
	"github.com/entanglab/qnetsim/pkg/quantum"
	"github.com/entanglab/qnetsim/pkg/transport"
)

// Build materializes a validated NetworkSpec into a runtime Network. The
// topology kind generates the base link set; explicit LinkSpecs then override
// generated links or add extra ones. Every link ends up with at least one
// channel: a default is provisioned when the spec declares none.
func Build(spec *NetworkSpec) (*Network, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	net := &Network{
		name:  spec.Name,
		kind:  spec.Topology,
		nodes: make(map[string]*Node, len(spec.Nodes)),
		links: make(map[string]*Link),
		order: make([]string, 0, len(spec.Nodes)),
	}

	for _, ns := range spec.Nodes {
		node := &Node{
			id:        ns.ID,
			kind:      ns.Kind,
			position:  ns.Position,
			qubits:    make(map[quantum.Handle]struct{}),
			neighbors: make(map[string]struct{}),
		}
		if ns.Memory != nil {
			node.memory = &Memory{
				Capacity:      ns.Memory.Capacity,
				CoherenceTime: ns.Memory.CoherenceTime,
			}
		}
		net.nodes[ns.ID] = node
		net.order = append(net.order, ns.ID)
	}

	for _, pair := range generatedPairs(spec) {
		net.addLink(defaultLink(net, pair[0], pair[1]))
	}

	// Explicit links: same endpoints replace the generated link, new
	// endpoints extend the topology.
	for _, ls := range spec.Links {
		l := &Link{
			id:       LinkID(ls.Source, ls.Target),
			source:   ls.Source,
			target:   ls.Target,
			distance: ls.Distance,
			lossRate: ls.LossRate,
			channels: make(map[string]*transport.Channel),
		}
		for _, cs := range ls.Channels {
			l.addChannel(transport.NewChannel(cs.ID, cs.Capacity, cs.Fidelity, cs.Bandwidth))
		}
		net.addLink(l)
	}

	for _, l := range net.links {
		if len(l.channels) == 0 {
			l.addChannel(transport.NewChannel(
				fmt.Sprintf("%s-ch0", l.id),
				constants.DefaultChannelCapacity,
				constants.DefaultChannelFidelity,
				constants.DefaultChannelBandwidth,
			))
		}
	}
	return net, nil
}

// generatedPairs returns the endpoint pairs the topology kind implies, in
// deterministic spec order.
func generatedPairs(spec *NetworkSpec) [][2]string {
	ids := make([]string, len(spec.Nodes))
	for i, n := range spec.Nodes {
		ids[i] = n.ID
	}
	n := len(ids)

	var pairs [][2]string
	switch spec.Topology {
	case TopologyMesh:
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				pairs = append(pairs, [2]string{ids[i], ids[j]})
			}
		}
	case TopologyStar:
		for i := 1; i < n; i++ {
			pairs = append(pairs, [2]string{ids[0], ids[i]})
		}
	case TopologyRing:
		if n < 3 {
			// Degenerate rings: one node has no links, two nodes share one.
			if n == 2 {
				return [][2]string{{ids[0], ids[1]}}
			}
			return nil
		}
		for i := 0; i < n; i++ {
			pairs = append(pairs, [2]string{ids[i], ids[(i+1)%n]})
		}
	case TopologyTree:
		for i := 0; i < n; i++ {
			if left := 2*i + 1; left < n {
				pairs = append(pairs, [2]string{ids[i], ids[left]})
			}
			if right := 2*i + 2; right < n {
				pairs = append(pairs, [2]string{ids[i], ids[right]})
			}
		}
	}
	return pairs
}

// defaultLink creates a generated link with default parameters. Distance
// falls back to the Euclidean node separation when both endpoints declare
// positions.
func defaultLink(net *Network, a, b string) *Link {
	distance := 1.0
	if pa, pb := net.nodes[a].position, net.nodes[b].position; pa != nil && pb != nil {
		dx, dy, dz := pa.X-pb.X, pa.Y-pb.Y, pa.Z-pb.Z
		if d := math.Sqrt(dx*dx + dy*dy + dz*dz); d > 0 {
			distance = d
		}
	}
	return &Link{
		id:       LinkID(a, b),
		source:   a,
		target:   b,
		distance: distance,
		channels: make(map[string]*transport.Channel),
	}
}
