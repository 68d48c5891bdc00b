package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "reactor-bench",
		Short: "Benchmark and inspect reactor graphs",
		Long: `reactor-bench drives synthetic dependency graphs through the
reactor propagation engine and reports latency, recompute counts,
and allocation behaviour.

Workloads are described by profiles (built in, or loaded from a
YAML file) naming a graph shape and a write schedule:

  chain    linear pipeline of computeds
  diamond  repeated fan-out/fan-in levels
  fanout   one source read by many computeds`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		runCmd(),
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}
