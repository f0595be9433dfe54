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
	"github.com/entanglab/qnetsim/pkg/quantum"
	"github.com/entanglab/qnetsim/pkg/topology"
)

// demoSpec declares the built-in four-node ring used by the demo and bench
// commands: alice - bob - carol - dave - alice.
func demoSpec(loss float64) *topology.NetworkSpec {
	memory := func() *topology.MemorySpec {
		return &topology.MemorySpec{Capacity: 16, CoherenceTime: 10}
	}
	nodes := []topology.NodeSpec{
		{ID: "alice", Kind: topology.NodeEndpoint, QubitCount: 16, Memory: memory()},
		{ID: "bob", Kind: topology.NodeRepeater, QubitCount: 16, Memory: memory()},
		{ID: "carol", Kind: topology.NodeEndpoint, QubitCount: 16, Memory: memory()},
		{ID: "dave", Kind: topology.NodeRepeater, QubitCount: 16},
	}
	spec := &topology.NetworkSpec{
		Name:     "demo-ring",
		Topology: topology.TopologyRing,
		Nodes:    nodes,
	}
	if loss > 0 {
		pairs := [][2]string{{"alice", "bob"}, {"bob", "carol"}, {"carol", "dave"}, {"dave", "alice"}}
		for _, p := range pairs {
			spec.Links = append(spec.Links, topology.LinkSpec{
				Source: p[0], Target: p[1], Distance: 10, LossRate: loss,
			})
		}
	}
	return spec
}

func runDemo(verbose bool, loss float64, logLevel, logFormat, tracing string) {
	collector, logger, err := setupObservability(logLevel, logFormat, tracing)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║      Quantum Network Protocol Simulator Demo              ║")
	fmt.Println("║      BB84 / E91 / Teleport / Entangle / Purify / Swap     ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	spec := demoSpec(loss)
	e, err := engine.New(spec, engine.WithLogger(logger), engine.WithCollector(collector))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to build network: %v\n", err)
		os.Exit(1)
	}

	net := e.Network()
	fmt.Printf("Network: %s (%s, %d nodes, %d links, loss %.2f)\n",
		net.Name(), net.Topology(), net.NodeCount(), net.LinkCount(), loss)
	if verbose {
		for _, id := range net.NodeIDs() {
			node, _ := net.Node(id)
			fmt.Printf("  %-6s %-9s neighbors: %s\n", id, node.Kind(), strings.Join(node.Neighbors(), ", "))
		}
	}
	fmt.Println()

	ctx := context.Background()

	// 1. Prepare-and-measure key distribution between adjacent nodes.
	fmt.Println("[1/7] BB84 key distribution: alice -> bob")
	res, err := e.Run(ctx, engine.BB84Invocation{Alice: "alice", Bob: "bob", KeyLength: 128})
	reportKeyRun(res, err, verbose)

	// 2. Entanglement-based key distribution over the same link.
	fmt.Println("[2/7] E91 key distribution: alice -> bob")
	res, err = e.Run(ctx, engine.E91Invocation{Alice: "alice", Bob: "bob", KeyLength: 128})
	reportKeyRun(res, err, verbose)

	// 3. Teleport a qubit two hops across the ring.
	fmt.Println("[3/7] Teleportation: alice -> carol")
	payload := e.Arena().NewQubit("alice")
	if err := e.Arena().Prepare(payload, 1, constants.BasisX); err != nil {
		fmt.Fprintf(os.Stderr, "Error: prepare payload: %v\n", err)
		os.Exit(1)
	}
	res, err = e.Run(ctx, engine.TeleportInvocation{Source: "alice", Target: "carol", Qubit: payload})
	if reportRun(res, err) && res.Teleport != nil {
		fmt.Printf("      ✓ delivered qubit %d at carol, fidelity %.4f (corrections x=%d z=%d)\n",
			res.Teleport.Qubit, res.Teleport.Fidelity, res.Teleport.XBit, res.Teleport.ZBit)
	}

	// 4. Bell pair across a repeater, purified before delivery.
	fmt.Println("[4/7] Entanglement distribution: alice <-> carol (via swap)")
	res, err = e.Run(ctx, engine.EntangleInvocation{
		Nodes:        []string{"alice", "carol"},
		Kind:         engine.EntangleBell,
		PurifyRounds: 1,
	})
	if reportRun(res, err) && res.Entangle != nil {
		fmt.Printf("      ✓ pair %d delivered, fidelity %.4f, %d swaps\n",
			res.Entangle.Pair, res.Entangle.Fidelity, res.Entangle.Swaps)
	}

	// 5. Three-party GHZ state.
	fmt.Println("[5/7] GHZ state: alice, bob, carol")
	res, err = e.Run(ctx, engine.EntangleInvocation{
		Nodes: []string{"alice", "bob", "carol"},
		Kind:  engine.EntangleGHZ,
	})
	if reportRun(res, err) && res.Entangle != nil {
		fmt.Printf("      ✓ %d-party state delivered, fidelity %.4f\n",
			len(res.Entangle.Handles), res.Entangle.Fidelity)
	}

	// 6. Purification over raw pairs.
	fmt.Println("[6/7] Purification: 4 raw pairs, 2 rounds")
	pairs := make([]quantum.PairRef, 4)
	for i := range pairs {
		pairs[i], _, _ = e.Arena().CreatePair("alice", "bob")
	}
	res, err = e.Run(ctx, engine.PurifyInvocation{Pairs: pairs, MaxRounds: 2})
	if reportRun(res, err) && res.Purify != nil {
		fmt.Printf("      ✓ %d survivor(s) at fidelity %.4f, %d pairs sacrificed\n",
			len(res.Purify.Survivors), res.Purify.Fidelity, res.Purify.Sacrificed)
	}

	// 7. Standalone entanglement swap at bob.
	fmt.Println("[7/7] Entanglement swap at bob: alice-bob + bob-carol -> alice-carol")
	_, _, left := e.Arena().CreatePair("alice", "bob")
	_, right, _ := e.Arena().CreatePair("bob", "carol")
	res, err = e.Run(ctx, engine.SwapInvocation{Left: left, Right: right})
	if reportRun(res, err) && res.Swap != nil {
		fmt.Printf("      ✓ spliced pair %d, fidelity %.4f\n", res.Swap.Pair, res.Swap.Fidelity)
	}

	fmt.Println()
	printSnapshot(collector.Snapshot())
}

// reportKeyRun prints the outcome of a key distribution run, including the
// security abort path.
func reportKeyRun(res *engine.Result, err error, verbose bool) {
	if err != nil {
		fmt.Printf("      ✗ failed: %v\n", err)
		return
	}
	key := res.Key
	switch res.Status {
	case engine.StatusCompleted:
		fmt.Printf("      ✓ %d-bit key in %v (raw %d, sifted %d, QBER %.4f)\n",
			key.FinalLength, res.Duration.Round(time.Microsecond), key.RawLength, key.SiftedLength, key.QBER)
		if verbose {
			fmt.Printf("        key: %x...\n", key.Key[:8])
			if key.Correlation != 0 {
				fmt.Printf("        outcome correlation: %.4f\n", key.Correlation)
			}
		}
	case engine.StatusAborted:
		fmt.Printf("      ⚠ aborted at %s: %s\n", res.Phase, res.Message)
	default:
		fmt.Printf("      ✗ %s: %s\n", res.Status, res.Message)
	}
}

// reportRun prints failures and reports whether the run completed.
func reportRun(res *engine.Result, err error) bool {
	if err != nil {
		fmt.Printf("      ✗ failed: %v\n", err)
		return false
	}
	if res.Status != engine.StatusCompleted {
		fmt.Printf("      ✗ %s: %s\n", res.Status, res.Message)
		return false
	}
	return true
}

func printSnapshot(snap metrics.Snapshot) {
	fmt.Println("Simulation metrics:")
	fmt.Printf("  Runs:          %d started, %d completed, %d aborted, %d failed\n",
		snap.RunsStarted, snap.RunsCompleted, snap.RunsAborted, snap.RunsFailed)
	fmt.Printf("  Resources:     %d qubits, %d pairs, %d noise events\n",
		snap.QubitsAllocated, snap.PairsCreated, snap.NoiseEvents)
	fmt.Printf("  Control plane: %d messages sent, %d dropped, %d auth failures\n",
		snap.MessagesSent, snap.MessagesDropped, snap.AuthFailures)
	fmt.Printf("  Key material:  %d sifted bits, %d final bits\n", snap.SiftedBits, snap.FinalBits)
	if snap.QBER.Count > 0 {
		fmt.Printf("  QBER:          mean %.4f over %d runs (max %.4f)\n",
			snap.QBER.Mean, snap.QBER.Count, snap.QBER.Max)
	}
}

func setupObservability(logLevel, logFormat, tracing string) (*metrics.Collector, *metrics.Logger, error) {
	level, err := parseLogLevel(logLevel)
	if err != nil {
		return nil, nil, err
	}
	format, err := parseLogFormat(logFormat)
	if err != nil {
		return nil, nil, err
	}

	logger := metrics.NewLogger(
		metrics.WithOutput(os.Stderr),
		metrics.WithLevel(level),
		metrics.WithFormat(format),
		metrics.WithFields(metrics.Fields{"app": "qnetsim"}),
	)
	metrics.SetLogger(logger)

	switch strings.ToLower(tracing) {
	case "none":
		metrics.SetTracer(metrics.NoOpTracer{})
	case "simple":
		metrics.SetTracer(metrics.NewSimpleTracer())
	case "otel":
		if !metrics.OTelEnabled() {
			return nil, nil, fmt.Errorf("otel tracing not enabled (build with -tags otel)")
		}
		metrics.SetTracer(metrics.NewOTelTracer("qnetsim"))
	default:
		return nil, nil, fmt.Errorf("invalid tracing mode: %s (use none, simple, or otel)", tracing)
	}

	collector := metrics.NewCollector(metrics.Labels{"service": "qnetsim"})
	metrics.SetGlobal(collector)

	return collector, logger, nil
}

func parseLogLevel(level string) (metrics.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return metrics.LevelDebug, nil
	case "info":
		return metrics.LevelInfo, nil
	case "warn", "warning":
		return metrics.LevelWarn, nil
	case "error":
		return metrics.LevelError, nil
	case "silent", "off", "none":
		return metrics.LevelSilent, nil
	default:
		return metrics.LevelInfo, fmt.Errorf("invalid log level: %s (use debug, info, warn, error, silent)", level)
	}
}

func parseLogFormat(format string) (metrics.Format, error) {
	switch strings.ToLower(format) {
	case "text":
		return metrics.FormatText, nil
	case "json":
		return metrics.FormatJSON, nil
	default:
		return metrics.FormatText, fmt.Errorf("invalid log format: %s (use text or json)", format)
	}
}
