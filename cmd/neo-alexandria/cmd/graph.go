package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/graph"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Inspect the multi-signal knowledge graph",
}

var (
	graphHops  int
	graphLimit int
)

var graphNeighborsCmd = &cobra.Command{
	Use:   "neighbors [resource-id]",
	Short: "List a resource's nearest neighbors across the fused graph",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		neighbors := a.graph.Current().Neighbors(graph.NeighborQuery{
			ResourceID: args[0],
			Hops:       graphHops,
			Limit:      graphLimit,
		})
		if len(neighbors) == 0 {
			fmt.Println("no neighbors found")
			return nil
		}
		for i, n := range neighbors {
			hops := make([]string, len(n.Path))
			for j, step := range n.Path {
				hops[j] = string(step.EdgeType)
			}
			fmt.Printf("%2d. %s  rank=%.4f  strength=%.4f  via=[%s]\n",
				i+1, n.ResourceID, n.CompositeRank, n.PathStrength, strings.Join(hops, ","))
		}
		return nil
	},
}

var graphOverviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Print the top edges across the fused graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		edges := a.graph.Current().Overview(graphLimit)
		for i, e := range edges {
			fmt.Printf("%2d. %s -> %s  %s  weight=%.4f  fused=%.4f\n",
				i+1, e.SourceID, e.TargetID, e.Type, e.Weight, e.FusedWeight)
		}
		return nil
	},
}

var graphMinPlausibility float64

var graphDiscoverOpenCmd = &cobra.Command{
	Use:   "discover-open [resource-id]",
	Short: "Generate open literature-based-discovery hypotheses from a resource",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		hyps := a.graph.Current().OpenDiscovery(args[0], graphMinPlausibility, graphLimit)
		if len(hyps) == 0 {
			fmt.Println("no hypotheses found")
			return nil
		}
		for i, h := range hyps {
			fmt.Printf("%2d. %s -> %s  plausibility=%.4f  bridges=[%s]\n",
				i+1, h.AResourceID, h.CResourceID, h.Plausibility, strings.Join(h.Bridges, ","))
		}
		return nil
	},
}

var graphDiscoverClosedCmd = &cobra.Command{
	Use:   "discover-closed [a-resource-id] [c-resource-id]",
	Short: "Enumerate candidate bridging paths between two known resources",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		paths := a.graph.Current().ClosedDiscovery(args[0], args[1], graphLimit)
		if len(paths) == 0 {
			fmt.Println("no paths found")
			return nil
		}
		for i, p := range paths {
			fmt.Printf("%2d. %s  plausibility=%.4f\n", i+1, strings.Join(p.Nodes, " -> "), p.Plausibility)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.AddCommand(graphNeighborsCmd, graphOverviewCmd, graphDiscoverOpenCmd, graphDiscoverClosedCmd)

	graphCmd.PersistentFlags().IntVar(&graphLimit, "limit", 10, "maximum number of results")
	graphNeighborsCmd.Flags().IntVar(&graphHops, "hops", 1, "traversal depth, 1 or 2")
	graphDiscoverOpenCmd.Flags().Float64Var(&graphMinPlausibility, "min-plausibility", 0, "minimum hypothesis plausibility score")
}
