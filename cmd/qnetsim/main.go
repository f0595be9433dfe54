package main

import (
	"flag"
	"fmt"
	"os"

	pkgversion "github.com/entanglab/qnetsim/pkg/version"
)

// Build-time variables (set via -ldflags)
var (
	version   = ""        // Set via -ldflags "-X main.version=x.y.z"
	buildTime = "unknown" // Set via -ldflags "-X main.buildTime=..."
	gitCommit = "unknown" // Set via -ldflags "-X main.gitCommit=..."
)

func getVersion() string {
	if version != "" {
		return version
	}
	return pkgversion.String()
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "run":
		runCommand()
	case "demo":
		demoCommand()
	case "bench":
		benchCommand()
	case "version":
		fmt.Printf("qnetsim version %s\n", getVersion())
		if buildTime != "unknown" {
			fmt.Printf("Built: %s\n", buildTime)
		}
		if gitCommit != "unknown" {
			fmt.Printf("Commit: %s\n", gitCommit)
		}
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`qnetsim - Quantum Network Protocol Simulator

USAGE:
    qnetsim <command> [options]

COMMANDS:
    run       Run one protocol over a YAML network spec
    demo      Run the full protocol suite on a sample network
    bench     Run protocol throughput benchmarks
    version   Print version information
    help      Show this help message

Run 'qnetsim <command> --help' for more information on a command.

EXAMPLES:
    # BB84 key distribution over a declared network
    qnetsim run --spec network.yaml --protocol bb84 --from alice --to bob

    # Entanglement-based key distribution with a custom abort threshold
    qnetsim run --spec network.yaml --protocol e91 --from alice --to bob --threshold 0.08

    # Full protocol walkthrough on a built-in four-node ring
    qnetsim demo --verbose

    # Benchmark 100 BB84 runs
    qnetsim bench --runs 100 --protocol bb84

PROJECT:
    qnetsim - discrete simulation of quantum key distribution,
    teleportation, and entanglement distribution over noisy networks.

    Protocols: BB84, E91, teleport, entangle (Bell/GHZ), purify, swap`)
}

func runCommand() {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	specPath := fs.String("spec", "", "Path to the YAML network spec (required)")
	protocol := fs.String("protocol", "bb84", "Protocol: bb84, e91, entangle-bell, entangle-ghz")
	from := fs.String("from", "", "Initiating node id (required)")
	to := fs.String("to", "", "Peer node id (required; comma-separated for entangle-ghz)")
	keyLength := fs.Int("key-length", 128, "Requested sifted key length in bits (bb84, e91)")
	threshold := fs.Float64("threshold", 0, "QBER abort threshold, 0 selects the default (bb84, e91)")
	purifyRounds := fs.Int("purify-rounds", 0, "Purification rounds before delivery (entangle-bell)")
	logLevel := fs.String("log-level", "warn", "Log level: debug, info, warn, error, silent")
	logFormat := fs.String("log-format", "text", "Log format: text or json")
	tracing := fs.String("tracing", "none", "Tracing mode: none, simple, otel (requires -tags otel)")

	fs.Usage = func() {
		fmt.Println(`USAGE: qnetsim run [options]

Run one protocol over a network declared in a YAML spec file.

OPTIONS:`)
		fs.PrintDefaults()
		fmt.Println(`
EXAMPLES:
    # BB84 between two endpoints
    qnetsim run --spec network.yaml --protocol bb84 --from alice --to bob

    # Purified Bell pair across a repeater chain
    qnetsim run --spec network.yaml --protocol entangle-bell --from alice --to dave --purify-rounds 2

    # Three-party GHZ state
    qnetsim run --spec network.yaml --protocol entangle-ghz --from alice --to bob,carol`)
	}

	_ = fs.Parse(os.Args[2:])

	if *specPath == "" || *from == "" || *to == "" {
		fmt.Fprintln(os.Stderr, "Error: --spec, --from, and --to are required")
		fs.Usage()
		os.Exit(1)
	}

	runProtocol(*specPath, *protocol, *from, *to, *keyLength, *threshold, *purifyRounds, *logLevel, *logFormat, *tracing)
}

func demoCommand() {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	verbose := fs.Bool("verbose", false, "Verbose output")
	loss := fs.Float64("loss", 0.02, "Link loss rate of the sample network [0,1]")
	logLevel := fs.String("log-level", "warn", "Log level: debug, info, warn, error, silent")
	logFormat := fs.String("log-format", "text", "Log format: text or json")
	tracing := fs.String("tracing", "none", "Tracing mode: none, simple, otel (requires -tags otel)")

	fs.Usage = func() {
		fmt.Println(`USAGE: qnetsim demo [options]

Run the full protocol suite on a built-in four-node ring network.

OPTIONS:`)
		fs.PrintDefaults()
		fmt.Println(`
EXAMPLES:
    # Quiet walkthrough
    qnetsim demo

    # Show per-phase details and the noisy-network abort
    qnetsim demo --verbose --loss 0.3`)
	}

	_ = fs.Parse(os.Args[2:])

	runDemo(*verbose, *loss, *logLevel, *logFormat, *tracing)
}

func benchCommand() {
	fs := flag.NewFlagSet("bench", flag.ExitOnError)
	runs := fs.Int("runs", 50, "Number of protocol runs")
	protocol := fs.String("protocol", "bb84", "Protocol: bb84, e91, entangle-bell, teleport")
	keyLength := fs.Int("key-length", 128, "Requested sifted key length in bits (bb84, e91)")
	loss := fs.Float64("loss", 0, "Link loss rate [0,1]")

	fs.Usage = func() {
		fmt.Println(`USAGE: qnetsim bench [options]

Time repeated protocol runs on a two-node network and report latency
and throughput.

OPTIONS:`)
		fs.PrintDefaults()
		fmt.Println(`
EXAMPLES:
    # 100 BB84 runs
    qnetsim bench --runs 100 --protocol bb84

    # Teleportation latency
    qnetsim bench --runs 1000 --protocol teleport

    # Key distribution under noise
    qnetsim bench --runs 100 --protocol e91 --loss 0.05`)
	}

	_ = fs.Parse(os.Args[2:])

	runBench(*runs, *protocol, *keyLength, *loss)
}
