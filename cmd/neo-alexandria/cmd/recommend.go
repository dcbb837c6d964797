package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var recommendLimit int

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend external resources based on the current library",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		resp, err := a.recommend.Recommend(ctx, recommendLimit)
		if err != nil {
			return fmt.Errorf("recommend: %w", err)
		}
		if resp.Reason != "" {
			fmt.Println(resp.Reason)
			return nil
		}
		for i, item := range resp.Items {
			fmt.Printf("%2d. %.4f  %s\n     %s\n     %s\n", i+1, item.RelevanceScore, item.Title, item.ExternalURL, item.Reason)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)
	recommendCmd.Flags().IntVar(&recommendLimit, "limit", 10, "maximum number of recommendations")
}
