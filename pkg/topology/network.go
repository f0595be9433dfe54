package topology

import (
	"fmt"
	"sort"
	"sync"

	qerrors "github.com/entanglab/qnetsim/internal/errors"
	"github.com/entanglab/qnetsim/pkg/quantum"
	"github.com/entanglab/qnetsim/pkg/transport"
)

// Memory is a node's runtime quantum memory: a capacity bound on the qubits
// the node may hold at once.
type Memory struct {
	Capacity      int
	CoherenceTime float64
}

// Node is one runtime network node. Its qubit set and neighbor set are
// guarded by the mutex; topology mutation after Build happens only through
// Network methods.
type Node struct {
	id       string
	kind     NodeKind
	position *Position
	memory   *Memory

	mu        sync.Mutex
	qubits    map[quantum.Handle]struct{}
	neighbors map[string]struct{}
}

// ID returns the node identifier.
func (n *Node) ID() string { return n.id }

// Kind returns the node's declared role.
func (n *Node) Kind() NodeKind { return n.kind }

// Memory returns the node's memory parameters, or nil for a memoryless node.
func (n *Node) Memory() *Memory { return n.memory }

// Position returns the node's declared position, or nil.
func (n *Node) Position() *Position { return n.position }

// QubitCount returns the number of qubits the node currently holds.
func (n *Node) QubitCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.qubits)
}

// Holds reports whether the node currently holds the qubit.
func (n *Node) Holds(h quantum.Handle) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.qubits[h]
	return ok
}

// AddQubit records the qubit as held by the node. Only nodes with quantum
// memory may buffer qubits across protocol steps: a memoryless node rejects
// delivery outright, and one at capacity reports a resource error.
func (n *Node) AddQubit(h quantum.Handle) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.memory == nil {
		return qerrors.NewSimulationError("AddQubit",
			fmt.Errorf("%w: node %q has no quantum memory", qerrors.ErrMemoryExceeded, n.id))
	}
	if len(n.qubits) >= n.memory.Capacity {
		return qerrors.NewSimulationError("AddQubit",
			fmt.Errorf("%w: node %q at capacity %d", qerrors.ErrMemoryExceeded, n.id, n.memory.Capacity))
	}
	n.qubits[h] = struct{}{}
	return nil
}

// RemoveQubit drops the qubit from the node's held set. Removing a qubit the
// node does not hold is a no-op.
func (n *Node) RemoveQubit(h quantum.Handle) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.qubits, h)
}

// Neighbors returns the ids of directly linked nodes, sorted for stable
// iteration.
func (n *Node) Neighbors() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]string, 0, len(n.neighbors))
	for id := range n.neighbors {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (n *Node) addNeighbor(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.neighbors[id] = struct{}{}
}

// Link is one bidirectional edge between two nodes, owning the transport
// channels that carry traffic across it.
type Link struct {
	id       string
	source   string
	target   string
	distance float64
	lossRate float64

	mu       sync.Mutex
	channels map[string]*transport.Channel
}

// LinkID returns the canonical id for a link between two endpoints,
// independent of declaration order.
func LinkID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "-" + b
}

// ID returns the canonical link identifier.
func (l *Link) ID() string { return l.id }

// Endpoints returns the link's two node ids as declared.
func (l *Link) Endpoints() (string, string) { return l.source, l.target }

// Distance returns the link length.
func (l *Link) Distance() float64 { return l.distance }

// LossRate returns the link's qubit error probability.
func (l *Link) LossRate() float64 { return l.lossRate }

// Connects reports whether the link joins the two nodes, in either order.
func (l *Link) Connects(a, b string) bool {
	return (l.source == a && l.target == b) || (l.source == b && l.target == a)
}

// Channel returns the named channel on the link.
func (l *Link) Channel(id string) (*transport.Channel, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch, ok := l.channels[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q on link %s", qerrors.ErrUnknownChannel, id, l.id)
	}
	return ch, nil
}

// Channels returns the link's channels sorted by id.
func (l *Link) Channels() []*transport.Channel {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make([]string, 0, len(l.channels))
	for id := range l.channels {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*transport.Channel, 0, len(ids))
	for _, id := range ids {
		out = append(out, l.channels[id])
	}
	return out
}

// AnyChannel returns the link's first channel by id order. Every built link
// has at least one.
func (l *Link) AnyChannel() *transport.Channel {
	chs := l.Channels()
	if len(chs) == 0 {
		return nil
	}
	return chs[0]
}

func (l *Link) addChannel(ch *transport.Channel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.channels[ch.ID()] = ch
}

// Network is the runtime graph built from a NetworkSpec. Lookup methods are
// safe for concurrent use; the node and link sets are fixed after Build.
type Network struct {
	name  string
	kind  TopologyKind
	nodes map[string]*Node
	links map[string]*Link

	// order preserves spec declaration order for deterministic iteration.
	order []string
}

// Name returns the network name from the spec.
func (net *Network) Name() string { return net.name }

// Topology returns the network's topology kind.
func (net *Network) Topology() TopologyKind { return net.kind }

// NodeCount returns the number of nodes.
func (net *Network) NodeCount() int { return len(net.nodes) }

// LinkCount returns the number of links.
func (net *Network) LinkCount() int { return len(net.links) }

// Node returns the named node.
func (net *Network) Node(id string) (*Node, error) {
	n, ok := net.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", qerrors.ErrUnknownNode, id)
	}
	return n, nil
}

// NodeIDs returns all node ids in spec declaration order.
func (net *Network) NodeIDs() []string {
	out := make([]string, len(net.order))
	copy(out, net.order)
	return out
}

// Link returns the link between two endpoints, in either order.
func (net *Network) Link(a, b string) (*Link, error) {
	l, ok := net.links[LinkID(a, b)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", qerrors.ErrUnknownLink, LinkID(a, b))
	}
	return l, nil
}

// Links returns all links sorted by canonical id.
func (net *Network) Links() []*Link {
	ids := make([]string, 0, len(net.links))
	for id := range net.links {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*Link, 0, len(ids))
	for _, id := range ids {
		out = append(out, net.links[id])
	}
	return out
}

// Connected reports whether two nodes share a direct link.
func (net *Network) Connected(a, b string) bool {
	_, ok := net.links[LinkID(a, b)]
	return ok
}

// addLink registers the link and updates both endpoints' neighbor sets. A
// second link between the same endpoints replaces the first's parameters.
func (net *Network) addLink(l *Link) {
	net.links[l.id] = l
	net.nodes[l.source].addNeighbor(l.target)
	net.nodes[l.target].addNeighbor(l.source)
}
