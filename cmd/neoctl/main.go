// Command neoctl queries a running neo-watch server over gRPC.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	internalgrpc "github.com/mr1hm/go-neo-watch/internal/grpc"
)

var (
	addr    string
	timeout time.Duration
)

// dial is replaced in tests.
var dial = func(addr string) (*internalgrpc.Client, error) {
	return internalgrpc.Dial(addr)
}

var rootCmd = &cobra.Command{
	Use:           "neoctl",
	Short:         "Inspect near-earth objects served by neo-watch",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&addr, "addr", envOr("NEOCTL_ADDR", "localhost:50051"), "neo-watch gRPC address (or set NEOCTL_ADDR)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Per-request timeout")

	listCmd.Flags().Int("page", 0, "Page index (0-based)")
	listCmd.Flags().Int("size", 0, "Page size (server default when 0)")

	watchCmd.Flags().Int("count", 0, "Stop after this many snapshots (0 = until interrupted)")

	riskCmd.Flags().Float64("min", 0, "Minimum estimated diameter in meters")
	riskCmd.Flags().Float64("max", 0, "Maximum estimated diameter in meters")
	riskCmd.Flags().Float64("velocity", 0, "Relative velocity in km/s")
	riskCmd.Flags().Float64("distance", 0, "Miss distance in km")
	riskCmd.Flags().Float64("h", 0, "Absolute magnitude H")
	riskCmd.Flags().Bool("hazardous", false, "Potentially hazardous asteroid")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(selectionCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(riskCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
