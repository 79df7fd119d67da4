package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tilthlabs/tilth/internal/types"
)

var plantingCmd = &cobra.Command{
	Use:   "planting",
	Short: "Track plantings through their lifecycle",
	Long: `Plantings move through a fixed lifecycle:

  nursery ──> planted ──> harvested ──> removed
     │                        │
     └────────────────────────┴──────> removed

Start one with "sow" (nursery) or "seed" (directly into a bed), move
it with "transplant", record pickings with "harvest", and end it with
"remove". Every transition is written to the planting's audit trail.`,
}

var sowCmd = &cobra.Command{
	Use:   "sow",
	Short: "Start a planting in a nursery",
	Run: func(cmd *cobra.Command, args []string) {
		cropID, _ := cmd.Flags().GetString("crop")
		nurseryID, _ := cmd.Flags().GetString("nursery")
		quantity, _ := cmd.Flags().GetInt("quantity")
		notes, _ := cmd.Flags().GetString("notes")

		p := &types.Planting{
			CropID:            cropID,
			NurseryLocationID: nurseryID,
			Quantity:          quantity,
			Notes:             notes,
		}
		if err := svc.SowNursery(cmd.Context(), p, actor); err != nil {
			fatal(err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Sowed %s: %d plants in the nursery\n", green("✓"), p.ID, p.Quantity)
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Direct seed a planting into a bed",
	Run: func(cmd *cobra.Command, args []string) {
		cropID, _ := cmd.Flags().GetString("crop")
		bedID, _ := cmd.Flags().GetString("bed")
		quantity, _ := cmd.Flags().GetInt("quantity")
		notes, _ := cmd.Flags().GetString("notes")

		p := &types.Planting{
			CropID:   cropID,
			BedID:    bedID,
			Quantity: quantity,
			Notes:    notes,
		}
		if err := svc.DirectSeed(cmd.Context(), p, actor); err != nil {
			fatal(err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Seeded %s: %d plants directly in the bed\n", green("✓"), p.ID, p.Quantity)
	},
}

var transplantCmd = &cobra.Command{
	Use:   "transplant <planting-id>",
	Short: "Move a nursery planting into a bed",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		bedID, _ := cmd.Flags().GetString("bed")

		if err := svc.Transplant(cmd.Context(), args[0], bedID, time.Now(), actor); err != nil {
			fatal(err)
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Transplanted %s\n", green("✓"), args[0])
	},
}

var harvestCmd = &cobra.Command{
	Use:   "harvest <planting-id>",
	Short: "Record a harvest from a planting",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		quantity, _ := cmd.Flags().GetFloat64("quantity")
		unit, _ := cmd.Flags().GetString("unit")
		notes, _ := cmd.Flags().GetString("notes")

		h := &types.HarvestRecord{
			PlantingID: args[0],
			Quantity:   quantity,
			Unit:       types.HarvestUnit(unit),
			Notes:      notes,
		}
		if err := svc.Harvest(cmd.Context(), h, actor); err != nil {
			fatal(err)
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Harvested %g %s from %s\n", green("✓"), h.Quantity, h.Unit, args[0])
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <planting-id>",
	Short: "End a planting, freeing its bed",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reason, _ := cmd.Flags().GetString("reason")

		if err := svc.Remove(cmd.Context(), args[0], reason, time.Now(), actor); err != nil {
			fatal(err)
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Removed %s (%s)\n", green("✓"), args[0], reason)
	},
}

var plantingListCmd = &cobra.Command{
	Use:   "list",
	Short: "List plantings",
	Run: func(cmd *cobra.Command, args []string) {
		filter := types.PlantingFilter{}
		if stageStr, _ := cmd.Flags().GetString("stage"); stageStr != "" {
			stage := types.Stage(stageStr)
			filter.Stage = &stage
		}
		if active, _ := cmd.Flags().GetBool("active"); active {
			filter.ActiveOnly = true
		}
		if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
			filter.Limit = limit
		}

		plantings, err := svc.ListPlantings(cmd.Context(), filter)
		if err != nil {
			fatal(err)
		}
		if len(plantings) == 0 {
			fmt.Println("No plantings found")
			return
		}
		for _, p := range plantings {
			fmt.Printf("%-8s %s  %-10s qty %-4d sown %s\n",
				p.ID, stageColor(p.Stage), p.Stage, p.Quantity,
				p.SownAt.Format("2006-01-02"))
		}
	},
}

var plantingShowCmd = &cobra.Command{
	Use:   "show <planting-id>",
	Short: "Show a planting with its harvests and audit trail",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		p, err := svc.GetPlanting(ctx, args[0])
		if err != nil {
			fatal(err)
		}

		bold := color.New(color.Bold).SprintFunc()
		fmt.Printf("%s %s  stage %s  qty %d\n", bold(p.ID), stageColor(p.Stage), p.Stage, p.Quantity)
		fmt.Printf("  sown       %s\n", p.SownAt.Format("2006-01-02"))
		if p.TransplantedAt != nil {
			fmt.Printf("  transplant %s\n", p.TransplantedAt.Format("2006-01-02"))
		}
		if p.FirstHarvestAt != nil {
			fmt.Printf("  harvest    %s\n", p.FirstHarvestAt.Format("2006-01-02"))
		}
		if p.RemovedAt != nil {
			fmt.Printf("  removed    %s (%s)\n", p.RemovedAt.Format("2006-01-02"), p.RemovalReason)
		}

		harvests, err := svc.GetHarvests(ctx, p.ID)
		if err != nil {
			fatal(err)
		}
		if len(harvests) > 0 {
			fmt.Println("\nHarvests:")
			for _, h := range harvests {
				fmt.Printf("  %s  %g %s\n", h.HarvestedAt.Format("2006-01-02"), h.Quantity, h.Unit)
			}
		}

		events, err := svc.GetPlantingEvents(ctx, p.ID, 0)
		if err != nil {
			fatal(err)
		}
		if len(events) > 0 {
			fmt.Println("\nHistory:")
			for _, e := range events {
				line := fmt.Sprintf("  %s  %-14s %s", e.CreatedAt.Format("2006-01-02 15:04"), e.EventType, e.Actor)
				if e.Comment != nil {
					line += "  " + *e.Comment
				}
				fmt.Println(line)
			}
		}
	},
}

var noteCmd = &cobra.Command{
	Use:   "note <planting-id> <text>",
	Short: "Add a note to a planting's audit trail",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := svc.AddNote(cmd.Context(), args[0], actor, args[1]); err != nil {
			fatal(err)
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Noted on %s\n", green("✓"), args[0])
	},
}

// stageColor renders a colored dot for a lifecycle stage
func stageColor(stage types.Stage) string {
	switch stage {
	case types.StageNursery:
		return color.YellowString("●")
	case types.StagePlanted:
		return color.GreenString("●")
	case types.StageHarvested:
		return color.CyanString("●")
	case types.StageRemoved:
		return color.New(color.Faint).Sprint("●")
	default:
		return "●"
	}
}

func init() {
	sowCmd.Flags().String("crop", "", "Crop ID (required)")
	sowCmd.Flags().String("nursery", "", "Nursery location ID (required)")
	sowCmd.Flags().Int("quantity", 0, "Number of plants (required)")
	sowCmd.Flags().String("notes", "", "Free-form notes")
	sowCmd.MarkFlagRequired("crop")
	sowCmd.MarkFlagRequired("nursery")
	sowCmd.MarkFlagRequired("quantity")

	seedCmd.Flags().String("crop", "", "Crop ID (required)")
	seedCmd.Flags().String("bed", "", "Bed ID (required)")
	seedCmd.Flags().Int("quantity", 0, "Number of plants (required)")
	seedCmd.Flags().String("notes", "", "Free-form notes")
	seedCmd.MarkFlagRequired("crop")
	seedCmd.MarkFlagRequired("bed")
	seedCmd.MarkFlagRequired("quantity")

	transplantCmd.Flags().String("bed", "", "Destination bed ID (required)")
	transplantCmd.MarkFlagRequired("bed")

	harvestCmd.Flags().Float64("quantity", 0, "Harvested quantity (required)")
	harvestCmd.Flags().String("unit", "kg", "Unit: kg, bunch, count, or crate")
	harvestCmd.Flags().String("notes", "", "Free-form notes")
	harvestCmd.MarkFlagRequired("quantity")

	removeCmd.Flags().String("reason", "", "Why the planting ended (required)")
	removeCmd.MarkFlagRequired("reason")

	plantingListCmd.Flags().String("stage", "", "Filter by stage: nursery, planted, harvested, removed")
	plantingListCmd.Flags().Bool("active", false, "Only show plantings still in the ground")
	plantingListCmd.Flags().IntP("limit", "n", 0, "Limit the number of results")

	plantingCmd.AddCommand(sowCmd, seedCmd, transplantCmd, harvestCmd, removeCmd,
		plantingListCmd, plantingShowCmd, noteCmd)
	rootCmd.AddCommand(plantingCmd)
}
