package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	internalgrpc "github.com/mr1hm/go-neo-watch/internal/grpc"
	"github.com/mr1hm/go-neo-watch/internal/neo"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List one page of near-earth objects",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one near-earth object",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

var selectionCmd = &cobra.Command{
	Use:   "selection",
	Short: "Show the dashboard's current selection",
	Args:  cobra.NoArgs,
	RunE:  runSelection,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live metrics snapshots",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

var riskCmd = &cobra.Command{
	Use:   "risk",
	Short: "Assess an object locally from its physical parameters",
	Long: `Computes the derived metrics (risk score and category, impact energy,
crater and damage radius, composition) without contacting the server.

Example:
  neoctl risk --min 340 --max 400 --velocity 12.6 --distance 38000 --h 19.7 --hazardous`,
	Args: cobra.NoArgs,
	RunE: runRisk,
}

func withClient(cmd *cobra.Command, fn func(ctx context.Context, c *internalgrpc.Client) error) error {
	c, err := dial(addr)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	return fn(ctx, c)
}

func runList(cmd *cobra.Command, args []string) error {
	pageIndex, _ := cmd.Flags().GetInt("page")
	pageSize, _ := cmd.Flags().GetInt("size")

	return withClient(cmd, func(ctx context.Context, c *internalgrpc.Client) error {
		page, err := c.ListNEOs(ctx, pageIndex, pageSize)
		if err != nil {
			return fmt.Errorf("list failed: %w", err)
		}
		return printPage(cmd.OutOrStdout(), page)
	})
}

func runGet(cmd *cobra.Command, args []string) error {
	return withClient(cmd, func(ctx context.Context, c *internalgrpc.Client) error {
		n, err := c.GetNEO(ctx, args[0])
		if status.Code(err) == codes.NotFound {
			fmt.Fprintf(cmd.OutOrStdout(), "No data for %s\n", args[0])
			return nil
		}
		if err != nil {
			return fmt.Errorf("get failed: %w", err)
		}
		return printNEO(cmd.OutOrStdout(), n)
	})
}

func runSelection(cmd *cobra.Command, args []string) error {
	return withClient(cmd, func(ctx context.Context, c *internalgrpc.Client) error {
		sel, err := c.GetSelection(ctx)
		if err != nil {
			return fmt.Errorf("selection failed: %w", err)
		}
		return printSelection(cmd.OutOrStdout(), sel)
	})
}

// runWatch is not bounded by --timeout.
func runWatch(cmd *cobra.Command, args []string) error {
	count, _ := cmd.Flags().GetInt("count")

	c, err := dial(addr)
	if err != nil {
		return err
	}
	defer c.Close()

	stream, err := c.StreamLiveMetrics(cmd.Context(), &internalgrpc.StreamLiveMetricsRequest{MaxSnapshots: count})
	if err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}

	out := cmd.OutOrStdout()
	printSnapshotHeader(out)
	for {
		snap, err := stream.Recv()
		if errors.Is(err, io.EOF) || status.Code(err) == codes.Canceled {
			return nil
		}
		if err != nil {
			return fmt.Errorf("stream failed: %w", err)
		}
		printSnapshot(out, snap)
	}
}

func runRisk(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	optional := func(name string) *float64 {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetFloat64(name)
		return &v
	}
	hazardous, _ := flags.GetBool("hazardous")

	a := neo.Assess(neo.Physical{
		DiameterMinMeters:  optional("min"),
		DiameterMaxMeters:  optional("max"),
		VelocityKmPerSec:   optional("velocity"),
		MissDistanceKm:     optional("distance"),
		AbsoluteMagnitudeH: optional("h"),
		Hazardous:          hazardous,
	})
	return printAssessment(cmd.OutOrStdout(), a)
}
