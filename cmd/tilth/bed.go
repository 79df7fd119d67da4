package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tilthlabs/tilth/internal/types"
)

var locationCmd = &cobra.Command{
	Use:   "location",
	Short: "Manage farm locations (fields, greenhouses, nurseries)",
}

var locationAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register a location",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		kind, _ := cmd.Flags().GetString("kind")
		notes, _ := cmd.Flags().GetString("notes")

		loc := &types.Location{
			Name:  args[0],
			Kind:  types.LocationKind(kind),
			Notes: notes,
		}
		if err := svc.CreateLocation(cmd.Context(), loc); err != nil {
			fatal(err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Added %s %s (%s)\n", green("✓"), loc.Kind, loc.Name, loc.ID)
	},
}

var locationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List locations",
	Run: func(cmd *cobra.Command, args []string) {
		locs, err := svc.ListLocations(cmd.Context())
		if err != nil {
			fatal(err)
		}
		cyan := color.New(color.FgCyan).SprintFunc()
		for _, l := range locs {
			fmt.Printf("%s  %-25s %s\n", cyan(l.ID[:8]), l.Name, l.Kind)
		}
	},
}

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Manage plots within locations",
}

var plotAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register a plot",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		locationID, _ := cmd.Flags().GetString("location")

		plot := &types.Plot{Name: args[0], LocationID: locationID}
		if err := svc.CreatePlot(cmd.Context(), plot); err != nil {
			fatal(err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Added plot %s (%s)\n", green("✓"), plot.Name, plot.ID)
	},
}

var plotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List plots",
	Run: func(cmd *cobra.Command, args []string) {
		locationID, _ := cmd.Flags().GetString("location")
		plots, err := svc.ListPlots(cmd.Context(), locationID)
		if err != nil {
			fatal(err)
		}
		cyan := color.New(color.FgCyan).SprintFunc()
		for _, p := range plots {
			fmt.Printf("%s  %s\n", cyan(p.ID[:8]), p.Name)
		}
	},
}

var bedCmd = &cobra.Command{
	Use:   "bed",
	Short: "Manage beds within plots",
}

var bedAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register a bed",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		plotID, _ := cmd.Flags().GetString("plot")
		capacity, _ := cmd.Flags().GetInt("capacity")
		notes, _ := cmd.Flags().GetString("notes")

		bed := &types.Bed{Name: args[0], PlotID: plotID, Capacity: capacity, Notes: notes}
		if err := svc.CreateBed(cmd.Context(), bed); err != nil {
			fatal(err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Added bed %s with capacity %d (%s)\n", green("✓"), bed.Name, bed.Capacity, bed.ID)
	},
}

var bedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List beds with current usage",
	Run: func(cmd *cobra.Command, args []string) {
		plotID, _ := cmd.Flags().GetString("plot")
		beds, err := svc.ListBeds(cmd.Context(), plotID)
		if err != nil {
			fatal(err)
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		for _, b := range beds {
			used, err := svc.Store().BedUsage(cmd.Context(), b.ID)
			if err != nil {
				fatal(err)
			}
			usage := fmt.Sprintf("%d/%d", used, b.Capacity)
			if used >= b.Capacity {
				usage = yellow(usage + " (full)")
			}
			fmt.Printf("%s  %-20s %s\n", cyan(b.ID[:8]), b.Name, usage)
		}
	},
}

var bedDeleteCmd = &cobra.Command{
	Use:   "delete <bed-id>",
	Short: "Delete an empty bed",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := svc.DeleteBed(cmd.Context(), args[0]); err != nil {
			fatal(err)
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Deleted bed %s\n", green("✓"), args[0])
	},
}

func init() {
	locationAddCmd.Flags().String("kind", "field", "Location kind: field, greenhouse, or nursery")
	locationAddCmd.Flags().String("notes", "", "Free-form notes")
	locationCmd.AddCommand(locationAddCmd, locationListCmd)
	rootCmd.AddCommand(locationCmd)

	plotAddCmd.Flags().String("location", "", "Location ID the plot belongs to (required)")
	plotAddCmd.MarkFlagRequired("location")
	plotListCmd.Flags().String("location", "", "Only show plots in this location")
	plotCmd.AddCommand(plotAddCmd, plotListCmd)
	rootCmd.AddCommand(plotCmd)

	bedAddCmd.Flags().String("plot", "", "Plot ID the bed belongs to (required)")
	bedAddCmd.Flags().Int("capacity", 0, "How many plants the bed holds (required)")
	bedAddCmd.Flags().String("notes", "", "Free-form notes")
	bedAddCmd.MarkFlagRequired("plot")
	bedAddCmd.MarkFlagRequired("capacity")
	bedListCmd.Flags().String("plot", "", "Only show beds in this plot")
	bedCmd.AddCommand(bedAddCmd, bedListCmd, bedDeleteCmd)
	rootCmd.AddCommand(bedCmd)
}
