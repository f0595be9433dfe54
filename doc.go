// Package qnetsim provides a quantum network protocol simulation engine.
//
// The engine models a quantum network as a graph of nodes and links, tracks
// distributed quantum resources (qubits, entangled pairs, quantum memory),
// and executes network-level quantum protocols: quantum key distribution
// (BB84, E91), teleportation, entanglement distribution (Bell and GHZ
// states), entanglement swapping, and purification.
//
// # Quick Start
//
// Build a network and run BB84 between two nodes:
//
//	import (
//		"context"
//
//		"github.com/entanglab/qnetsim/pkg/engine"
//		"github.com/entanglab/qnetsim/pkg/topology"
//	)
//
//	spec := topology.NetworkSpec{
//		Name:     "lab",
//		Topology: topology.TopologyRing,
//		Nodes: []topology.NodeSpec{
//			{ID: "alice", Kind: topology.NodeEndpoint, QubitCount: 16},
//			{ID: "bob", Kind: topology.NodeEndpoint, QubitCount: 16},
//			{ID: "relay", Kind: topology.NodeRepeater},
//		},
//	}
//
//	eng, _ := engine.New(&spec)
//	result, _ := eng.Run(context.Background(), engine.BB84Invocation{
//		Alice: "alice", Bob: "bob", KeyLength: 32, SecurityThreshold: 0.11,
//	})
//
// # Package Structure
//
// The library is organized into several packages:
//
//   - pkg/quantum: qubit arena, measurement, entangled pairs, GHZ states
//   - pkg/topology: network specs, topology builders, route selection
//   - pkg/transport: bounded channel queues with noise injection
//   - pkg/protocol: classical control-plane messages and authenticated codec
//   - pkg/engine: protocol executors and the Engine orchestrator
//   - pkg/metrics: structured logging, counters, histograms, tracing
//   - internal/constants: protocol defaults and simulation parameters
//   - internal/errors: error taxonomy for configuration, reference,
//     resource, state, capacity, timeout and security outcomes
//
// # Simulation Model
//
// Qubits are two-level systems carried as 2-entry complex amplitude vectors.
// Entangled pairs and GHZ groups are tracked as shared measurement state so
// that joint statistics are reproduced without exponential joint vectors.
// Link noise is a parameterized depolarizing abstraction, not a faithful
// physical model, and key material produced by the QKD executors carries no
// cryptographic-grade randomness guarantee.
//
// All randomness flows through seeded, named RNG streams, so simulations are
// reproducible and independent engines can coexist in one process.
package qnetsim
