package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a summary of the farm",
	Run: func(cmd *cobra.Command, args []string) {
		stats, err := svc.Statistics(cmd.Context())
		if err != nil {
			fatal(err)
		}

		bold := color.New(color.Bold).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		faint := color.New(color.Faint).SprintFunc()

		fmt.Printf("\n%s\n\n", bold("Farm Status"))
		fmt.Printf("  Plantings: %d total\n", stats.TotalPlantings)
		fmt.Printf("    %s nursery    %d\n", yellow("●"), stats.NurseryPlantings)
		fmt.Printf("    %s planted    %d\n", green("●"), stats.PlantedPlantings)
		fmt.Printf("    %s harvested  %d\n", cyan("●"), stats.HarvestedPlantings)
		fmt.Printf("    %s removed    %d\n", faint("●"), stats.RemovedPlantings)
		fmt.Printf("\n  Beds in use: %d\n", stats.ActiveBeds)

		if len(stats.HarvestTotals) > 0 {
			fmt.Println("\n  Harvest totals:")
			for unit, total := range stats.HarvestTotals {
				fmt.Printf("    %g %s\n", total, unit)
			}
		}
		fmt.Printf("\n  Activities in the last 30 days: %d\n\n", stats.RecentActivities)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
