package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/entanglab/qnetsim/internal/constants"
	"github.com/entanglab/qnetsim/pkg/engine"
	"github.com/entanglab/qnetsim/pkg/metrics"
	"github.com/entanglab/qnetsim/pkg/topology"
)

func runBench(runs int, protocol string, keyLength int, loss float64) {
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║      Quantum Network Protocol Benchmark                   ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	if runs < 1 {
		fmt.Fprintln(os.Stderr, "Error: --runs must be positive")
		os.Exit(1)
	}

	spec := &topology.NetworkSpec{
		Name:     "bench-pair",
		Topology: topology.TopologyMesh,
		Nodes: []topology.NodeSpec{
			{ID: "alice", Kind: topology.NodeEndpoint, QubitCount: 16,
				Memory: &topology.MemorySpec{Capacity: 16, CoherenceTime: 10}},
			{ID: "bob", Kind: topology.NodeEndpoint, QubitCount: 16,
				Memory: &topology.MemorySpec{Capacity: 16, CoherenceTime: 10}},
		},
	}
	if loss > 0 {
		spec.Links = []topology.LinkSpec{{Source: "alice", Target: "bob", Distance: 10, LossRate: loss}}
	}

	collector := metrics.NewCollector(metrics.Labels{"service": "qnetsim-bench"})
	e, err := engine.New(spec,
		engine.WithLogger(metrics.NullLogger()),
		engine.WithCollector(collector),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: build network: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Benchmarking %s (%d runs, loss %.2f)\n", protocol, runs, loss)
	fmt.Println(strings.Repeat("─", 60))

	ctx := context.Background()
	durations := make([]time.Duration, 0, runs)
	failures := 0
	startTime := time.Now()

	for i := 0; i < runs; i++ {
		inv, err := benchInvocation(e, protocol, keyLength)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		res, err := e.Run(ctx, inv)
		if err != nil || res.Status != engine.StatusCompleted {
			failures++
		} else {
			durations = append(durations, res.Duration)
			releaseEntangled(e, res)
		}

		step := runs / 10
		if step == 0 {
			step = 1
		}
		if (i+1)%step == 0 || i == runs-1 {
			fmt.Printf("Progress: %d/%d (%.0f%%)\r", i+1, runs, float64(i+1)/float64(runs)*100)
		}
	}
	fmt.Println()

	totalTime := time.Since(startTime)
	printBenchResults(runs, failures, totalTime, durations, collector.Snapshot())
}

// benchInvocation builds one invocation per iteration; teleport needs a fresh
// payload qubit each time.
func benchInvocation(e *engine.Engine, protocol string, keyLength int) (engine.Invocation, error) {
	switch strings.ToLower(protocol) {
	case "bb84":
		return engine.BB84Invocation{Alice: "alice", Bob: "bob", KeyLength: keyLength}, nil
	case "e91":
		return engine.E91Invocation{Alice: "alice", Bob: "bob", KeyLength: keyLength}, nil
	case "entangle-bell":
		return engine.EntangleInvocation{Nodes: []string{"alice", "bob"}, Kind: engine.EntangleBell}, nil
	case "teleport":
		payload := e.Arena().NewQubit("alice")
		if err := e.Arena().Prepare(payload, 1, constants.BasisX); err != nil {
			return nil, err
		}
		return engine.TeleportInvocation{Source: "alice", Target: "bob", Qubit: payload}, nil
	default:
		return nil, fmt.Errorf("unknown protocol: %s (use bb84, e91, entangle-bell, teleport)", protocol)
	}
}

// releaseEntangled checks delivered entangled qubits back out of their nodes'
// memory so occupancy stays flat across iterations.
func releaseEntangled(e *engine.Engine, res *engine.Result) {
	if res.Entangle == nil {
		return
	}
	for _, h := range res.Entangle.Handles {
		owner, err := e.Arena().Owner(h)
		if err != nil {
			continue
		}
		if node, err := e.Network().Node(owner); err == nil {
			node.RemoveQubit(h)
		}
	}
}

func printBenchResults(total, failed int, totalTime time.Duration, durations []time.Duration, snap metrics.Snapshot) {
	successful := len(durations)
	if successful == 0 {
		fmt.Fprintln(os.Stderr, "All runs failed")
		os.Exit(1)
	}

	var sum, min, max time.Duration
	min = time.Hour
	for _, d := range durations {
		sum += d
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
	}
	avg := sum / time.Duration(successful)

	fmt.Println("\nResults:")
	fmt.Printf("  Total runs: %d\n", total)
	fmt.Printf("  Successful: %d\n", successful)
	fmt.Printf("  Failed or aborted: %d\n", failed)
	fmt.Printf("  Total time: %v\n", totalTime)
	fmt.Println()
	fmt.Println("Run Performance:")
	fmt.Printf("  Average: %v\n", avg)
	fmt.Printf("  Minimum: %v\n", min)
	fmt.Printf("  Maximum: %v\n", max)
	fmt.Printf("  Throughput: %.2f runs/sec\n", float64(successful)/totalTime.Seconds())

	if snap.FinalBits > 0 {
		fmt.Println()
		fmt.Println("Key Material:")
		fmt.Printf("  Sifted bits: %d\n", snap.SiftedBits)
		fmt.Printf("  Final bits: %d\n", snap.FinalBits)
		fmt.Printf("  Key rate: %.0f bits/sec\n", float64(snap.FinalBits)/totalTime.Seconds())
		if snap.QBER.Count > 0 {
			fmt.Printf("  Mean QBER: %.4f\n", snap.QBER.Mean)
		}
	}
}
