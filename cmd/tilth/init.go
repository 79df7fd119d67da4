package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the farm database",
	Long: `Create the database and schema at the configured path.

Running init on an existing database is safe; the schema is only
created where missing.

Examples:
  tilth init
  tilth init --db /srv/farm/tilth.db`,
	Run: func(cmd *cobra.Command, args []string) {
		// PersistentPreRunE already opened the store, creating the
		// schema on the way. Verify and report.
		if err := store.Ping(cmd.Context()); err != nil {
			fatal(err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		target := cfg.Database.Path
		if cfg.Database.PostgresDSN != "" {
			target = "postgres"
		}
		fmt.Printf("%s Initialized farm database (%s)\n", green("✓"), target)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
