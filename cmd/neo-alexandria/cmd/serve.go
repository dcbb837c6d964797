package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ram-tewari/neo-alexandria-sub001/internal/logger"
	"github.com/ram-tewari/neo-alexandria-sub001/internal/maintenance"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run continuously, processing ingestion jobs and periodic maintenance",
	Long: `Serve keeps the worker pool, event bus, and graph store alive so
submitted ingestion jobs run in the background and the four periodic
maintenance tasks (citation resolution, importance recompute, outlier
detection, degradation scanning) fire on schedule. It runs until
interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}

		maintenance.StartAll(ctx, a.sched, a.db)
		logger.Info("neo-alexandria serving", "database", a.cfg.Database.URL)
		fmt.Println("serving — press Ctrl+C to stop")

		<-ctx.Done()
		logger.Info("shutting down")
		return a.Close()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
