package main

import (
	"fmt"
	"os"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "partition":
		err = handlePartition(args)
	case "order":
		err = handleOrder(args)
	case "bisect":
		err = handleBisect(args)
	case "batch":
		err = handleBatch(args)
	case "report":
		err = handleReport(args)
	case "convert":
		err = handleConvert(args)
	case "token":
		err = handleToken(args)
	case "hash-key":
		err = handleHashKey(args)
	case "cert":
		err = handleCert(args)
	case "help", "--help", "-h":
		printUsage()
	case "version", "--version", "-v":
		printVersion()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	usage := `graphpart - graph partitioning and fill-reducing ordering for sparse matrices

Usage:
  graphpart <command> [options] <matrix.mtx>

Available Commands:
  partition   Split the matrix graph into k parts (recursive or k-way)
  order       Compute a nested dissection ordering (NodeND or EdgeND)
  bisect      Compute a vertex separator (NodeBisect)
  batch       Run the jobs listed in a YAML file concurrently
  report      Compare a partition against hash and range baselines
  convert     Rewrite a Matrix Market file, compressing with a .sz suffix
  token       Mint a bearer token from the configured secret
  hash-key    Generate an API key and its bcrypt hash
  cert        Write a self-signed certificate for server.tls
  help        Show this help message
  version     Show version information

Matrices are read from Matrix Market coordinate files; names ending in
.sz are snappy-compressed. Partition labels are written 0-based, one per
line; permutations and separators are written 1-based.

Use "graphpart <command> -h" for the options of a command.
`
	fmt.Print(usage)
}

func printVersion() {
	fmt.Printf("graphpart %s\n", version)
}
