package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tilthlabs/tilth/internal/types"
)

var cropCmd = &cobra.Command{
	Use:   "crop",
	Short: "Manage crop varieties",
}

var cropAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register a crop variety",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		species, _ := cmd.Flags().GetString("species")
		days, _ := cmd.Flags().GetInt("days-to-maturity")
		spacing, _ := cmd.Flags().GetInt("spacing")
		notes, _ := cmd.Flags().GetString("notes")

		crop := &types.Crop{
			Name:           args[0],
			Species:        species,
			DaysToMaturity: days,
			SpacingCM:      spacing,
			Notes:          notes,
		}
		if err := svc.CreateCrop(cmd.Context(), crop); err != nil {
			fatal(err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Added crop %s (%s)\n", green("✓"), crop.Name, crop.ID)
	},
}

var cropListCmd = &cobra.Command{
	Use:   "list",
	Short: "List crop varieties",
	Run: func(cmd *cobra.Command, args []string) {
		crops, err := svc.ListCrops(cmd.Context())
		if err != nil {
			fatal(err)
		}
		if len(crops) == 0 {
			fmt.Println("No crops registered yet. Add one with: tilth crop add <name> --species <species>")
			return
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		for _, c := range crops {
			fmt.Printf("%s  %-25s %-25s", cyan(c.ID[:8]), c.Name, c.Species)
			if c.DaysToMaturity > 0 {
				fmt.Printf(" %dd to maturity", c.DaysToMaturity)
			}
			fmt.Println()
		}
	},
}

func init() {
	cropAddCmd.Flags().String("species", "", "Botanical species (required)")
	cropAddCmd.Flags().Int("days-to-maturity", 0, "Expected days from sowing to harvest")
	cropAddCmd.Flags().Int("spacing", 0, "Plant spacing in centimeters")
	cropAddCmd.Flags().String("notes", "", "Free-form notes")
	cropAddCmd.MarkFlagRequired("species")

	cropCmd.AddCommand(cropAddCmd)
	cropCmd.AddCommand(cropListCmd)
	rootCmd.AddCommand(cropCmd)
}
