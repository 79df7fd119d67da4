package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Prune old planting events",
	Long: `Delete planting events older than the retention windows. Lifecycle
events (created, transplanted, harvested, removed) are kept for the
longer critical window; notes and field edits for the standard one.

The server runs this automatically when retention cleanup is enabled;
the command exists for one-off runs and for setups without a server.`,
	Run: func(cmd *cobra.Command, args []string) {
		vacuum, _ := cmd.Flags().GetBool("vacuum")

		deleted, err := svc.CleanupEvents(cmd.Context(),
			cfg.Retention.RetentionDays,
			cfg.Retention.RetentionCriticalDays,
			cfg.Retention.CleanupBatchSize,
			vacuum)
		if err != nil {
			fatal(err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		if deleted == 0 {
			fmt.Printf("%s Nothing to prune\n", green("✓"))
			return
		}
		fmt.Printf("%s Pruned %d event(s)\n", green("✓"), deleted)
	},
}

func init() {
	cleanupCmd.Flags().Bool("vacuum", false, "Reclaim disk space after pruning")
	rootCmd.AddCommand(cleanupCmd)
}
