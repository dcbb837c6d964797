package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [url]",
	Short: "Submit a URL for ingestion",
	Long: `Submit a URL for ingestion. Fetch, text extraction, quality
scoring, and subject tagging run in the background; this command
blocks until the submitted job (and anything else queued) drains, then
exits.

Example:
  neo-alexandria ingest https://example.com/post`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}

		id, err := a.ingestor.Submit(ctx, args[0])
		if err != nil {
			_ = a.Close()
			return fmt.Errorf("submitting %s: %w", args[0], err)
		}
		fmt.Printf("accepted: %s\n", id)

		// Close drains the worker pool before returning, so the
		// background stages for this submission finish before exit.
		return a.Close()
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
