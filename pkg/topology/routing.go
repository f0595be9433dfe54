package topology

import (
	"fmt"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	qerrors "github.com/entanglab/qnetsim/internal/errors"
)

// Route returns the minimum-cost node path from src to dst, inclusive of
// both endpoints, using Dijkstra over the link graph. Edge cost is the link
// distance weighted up by its loss rate, so lossier links are avoided when a
// cleaner detour exists. A route from a node to itself is that single node.
func (net *Network) Route(src, dst string) ([]string, error) {
	if _, err := net.Node(src); err != nil {
		return nil, qerrors.NewSimulationError("Route", err)
	}
	if _, err := net.Node(dst); err != nil {
		return nil, qerrors.NewSimulationError("Route", err)
	}
	if src == dst {
		return []string{src}, nil
	}

	g, index := net.weightedGraph()
	shortest := path.DijkstraFrom(g.Node(index[src]), g)
	nodes, weight := shortest.To(index[dst])
	if len(nodes) == 0 || weight < 0 {
		return nil, qerrors.NewSimulationError("Route",
			fmt.Errorf("%w: %s to %s", qerrors.ErrNoRoute, src, dst))
	}

	reverse := make(map[int64]string, len(index))
	for id, gid := range index {
		reverse[gid] = id
	}
	route := make([]string, len(nodes))
	for i, gn := range nodes {
		route[i] = reverse[gn.ID()]
	}
	return route, nil
}

// HopCount returns the number of links on the best route between two nodes.
func (net *Network) HopCount(src, dst string) (int, error) {
	route, err := net.Route(src, dst)
	if err != nil {
		return 0, err
	}
	return len(route) - 1, nil
}

// weightedGraph projects the network into a gonum weighted undirected graph,
// returning the graph and a stable node-id to graph-id index.
func (net *Network) weightedGraph() (*simple.WeightedUndirectedGraph, map[string]int64) {
	g := simple.NewWeightedUndirectedGraph(0, 0)
	index := make(map[string]int64, len(net.order))

	for i, id := range net.order {
		gid := int64(i)
		index[id] = gid
		g.AddNode(simple.Node(gid))
	}

	for _, l := range net.Links() {
		cost := l.distance * (1 + l.lossRate)
		if cost <= 0 {
			cost = 1
		}
		g.SetWeightedEdge(g.NewWeightedEdge(
			simple.Node(index[l.source]),
			simple.Node(index[l.target]),
			cost,
		))
	}
	return g, index
}
