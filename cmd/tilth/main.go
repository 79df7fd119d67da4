package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tilthlabs/tilth/internal/config"
	"github.com/tilthlabs/tilth/internal/farm"
	"github.com/tilthlabs/tilth/internal/storage"
	"go.uber.org/zap"
)

var (
	cfgPath string
	dbPath  string
	actor   string
	verbose bool

	cfg    *config.Config
	store  storage.Storage
	svc    *farm.Service
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tilth",
	Short: "Farm operations tracker",
	Long: `Tilth tracks crop plantings through their lifecycle (nursery,
planted, harvested, removed), farm activities like irrigation and soil
amendments, and recurring activity schedules.

Records live in SQLite by default; set a Postgres DSN in the config
file or TILTH_POSTGRES_DSN to use PostgreSQL.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if dbPath != "" {
			cfg.Database.Path = dbPath
			cfg.Database.PostgresDSN = ""
		}

		if verbose {
			logger, err = zap.NewDevelopment()
		} else {
			logger = zap.NewNop()
		}
		if err != nil {
			return err
		}

		store, err = storage.NewStorage(cmd.Context(), &cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
		svc = farm.New(store, nil, logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			store.Close()
		}
		if logger != nil {
			logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to config file (default .tilth/config.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to SQLite database (overrides config)")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", "cli", "Who to record as the actor on audit events")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
}

// fatal prints the friendliest form of err and exits
func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", farm.UserMessage(err))
	os.Exit(1)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", farm.UserMessage(err))
		os.Exit(1)
	}
}
