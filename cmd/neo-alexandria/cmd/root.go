package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "neo-alexandria",
	Short: "Neo Alexandria is a personal knowledge-management backend.",
	Long: `Neo Alexandria ingests articles and papers, scores their quality,
classifies and tags them, and exposes hybrid search, a multi-signal
knowledge graph, and personalized recommendations over the resulting
library.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./neo-alexandria.yaml)")
}

// initConfig loads a .env file if present; the remainder of the
// layered load (defaults, YAML file, environment) happens lazily in
// config.Load, called by each subcommand via newApp.
func initConfig() {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "warning: error loading .env file: %v\n", err)
		}
	}
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}
