package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tilthlabs/tilth/internal/health"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostics over the farm records",
	Long: `Check that the database is reachable and look for records that
usually mean something went wrong on the ground: seedlings sitting in
the nursery for months, or enabled schedules that stopped firing.`,
	Run: func(cmd *cobra.Command, args []string) {
		results := health.Run(cmd.Context(), store)

		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()

		for _, r := range results {
			var mark string
			switch r.Status {
			case health.StatusOK:
				mark = green("✓")
			case health.StatusWarn:
				mark = yellow("!")
			case health.StatusFail:
				mark = red("✗")
			}
			fmt.Printf("%s %-10s %s\n", mark, r.Name, r.Detail)
		}

		if !health.Healthy(results) {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
