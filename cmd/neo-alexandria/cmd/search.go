package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/search"
)

var (
	searchLimit  int
	searchHybrid float64
	searchRerank bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Run a hybrid lexical+semantic search over the library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		resp, err := a.search.Search(ctx, search.Query{
			Text:         args[0],
			Limit:        searchLimit,
			HybridWeight: searchHybrid,
			Fusion:       search.FusionWeightedLinear,
			Rerank:       searchRerank,
		})
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}

		if len(resp.Results) == 0 {
			fmt.Println("no results")
			return nil
		}
		for i, r := range resp.Results {
			title := r.ResourceID
			if res, err := a.db.Resources().Get(ctx, r.ResourceID); err == nil {
				title = res.Title
			}
			fmt.Printf("%2d. %.4f  %s  (%s)\n", i+1, r.FusedScore, title, r.ResourceID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVar(&searchLimit, "limit", search.DefaultRerankN, "maximum number of results")
	searchCmd.Flags().Float64Var(&searchHybrid, "hybrid-weight", search.DefaultHybridW, "weighted-linear lexical/semantic mix, 0=lexical only, 1=semantic only")
	searchCmd.Flags().BoolVar(&searchRerank, "rerank", false, "apply cross-encoder re-ranking to the top candidates")
}
