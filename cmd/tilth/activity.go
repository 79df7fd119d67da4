package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tilthlabs/tilth/internal/types"
)

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Log and review farm activities",
	Long: `Activities are the day-to-day operations log: irrigation, soil
amendments, pest management, and asset maintenance. Entries come from
"activity log" or from recurring schedules fired by the server.

Examples:
  tilth activity log --type irrigation --location <id> --amount 200L
  tilth activity log --type soil_amendment --location <id> --material compost
  tilth activity list --type irrigation -n 10`,
}

var activityLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Log an activity",
	Run: func(cmd *cobra.Command, args []string) {
		typeStr, _ := cmd.Flags().GetString("type")
		locationID, _ := cmd.Flags().GetString("location")
		bedID, _ := cmd.Flags().GetString("bed")
		material, _ := cmd.Flags().GetString("material")
		amount, _ := cmd.Flags().GetString("amount")
		notes, _ := cmd.Flags().GetString("notes")

		a := &types.Activity{
			Type:        types.ActivityType(typeStr),
			LocationID:  locationID,
			BedID:       bedID,
			Material:    material,
			Amount:      amount,
			PerformedBy: actor,
			Source:      types.SourceManual,
			Notes:       notes,
		}
		if err := svc.LogActivity(cmd.Context(), a); err != nil {
			fatal(err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Logged %s\n", green("✓"), a.Type)
	},
}

var activityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent activities",
	Run: func(cmd *cobra.Command, args []string) {
		filter := types.ActivityFilter{}
		if typeStr, _ := cmd.Flags().GetString("type"); typeStr != "" {
			at := types.ActivityType(typeStr)
			filter.Type = &at
		}
		if locationID, _ := cmd.Flags().GetString("location"); locationID != "" {
			filter.LocationID = &locationID
		}
		if days, _ := cmd.Flags().GetInt("days"); days > 0 {
			since := time.Now().AddDate(0, 0, -days)
			filter.Since = &since
		}
		if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
			filter.Limit = limit
		}

		activities, err := svc.ListActivities(cmd.Context(), filter)
		if err != nil {
			fatal(err)
		}
		if len(activities) == 0 {
			fmt.Println("No activities found")
			return
		}

		faint := color.New(color.Faint).SprintFunc()
		for _, a := range activities {
			line := fmt.Sprintf("%s  %-17s", a.PerformedAt.Format("2006-01-02 15:04"), a.Type)
			if a.Material != "" {
				line += "  " + a.Material
			}
			if a.Amount != "" {
				line += "  " + a.Amount
			}
			if a.Source == types.SourceSchedule {
				line += "  " + faint("(scheduled)")
			}
			fmt.Println(line)
		}
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage recurring activity schedules",
}

var scheduleAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a recurring activity schedule",
	Long: `Create a schedule that the server fires on a cron cadence,
logging the activity with source "schedule".

The cron expression uses five fields: minute hour day-of-month month
day-of-week.

Examples:
  tilth schedule add "Morning irrigation" --type irrigation --location <id> --cron "0 6 * * *"
  tilth schedule add "Weekly compost" --type soil_amendment --location <id> --material compost --cron "0 7 * * 1"`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		typeStr, _ := cmd.Flags().GetString("type")
		locationID, _ := cmd.Flags().GetString("location")
		bedID, _ := cmd.Flags().GetString("bed")
		material, _ := cmd.Flags().GetString("material")
		amount, _ := cmd.Flags().GetString("amount")
		cronExpr, _ := cmd.Flags().GetString("cron")

		s := &types.ActivitySchedule{
			Name:       args[0],
			Type:       types.ActivityType(typeStr),
			LocationID: locationID,
			BedID:      bedID,
			Material:   material,
			Amount:     amount,
			CronExpr:   cronExpr,
			Enabled:    true,
		}
		if err := svc.CreateSchedule(cmd.Context(), s); err != nil {
			fatal(err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Scheduled %q, next fire %s\n", green("✓"), s.Name,
			s.NextFireAt.Format("2006-01-02 15:04"))
	},
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List activity schedules",
	Run: func(cmd *cobra.Command, args []string) {
		schedules, err := svc.ListSchedules(cmd.Context())
		if err != nil {
			fatal(err)
		}
		if len(schedules) == 0 {
			fmt.Println("No schedules defined")
			return
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		faint := color.New(color.Faint).SprintFunc()
		for _, s := range schedules {
			state := "enabled"
			if !s.Enabled {
				state = faint("disabled")
			}
			fmt.Printf("%s  %-25s %-17s %-12s %s  next %s\n",
				cyan(s.ID[:8]), s.Name, s.Type, state, s.CronExpr,
				s.NextFireAt.Format("2006-01-02 15:04"))
		}
	},
}

var scheduleEnableCmd = &cobra.Command{
	Use:   "enable <schedule-id>",
	Short: "Enable a schedule",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := svc.SetScheduleEnabled(cmd.Context(), args[0], true); err != nil {
			fatal(err)
		}
		fmt.Printf("Enabled %s\n", args[0])
	},
}

var scheduleDisableCmd = &cobra.Command{
	Use:   "disable <schedule-id>",
	Short: "Disable a schedule",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := svc.SetScheduleEnabled(cmd.Context(), args[0], false); err != nil {
			fatal(err)
		}
		fmt.Printf("Disabled %s\n", args[0])
	},
}

func init() {
	activityLogCmd.Flags().String("type", "", "Activity type: irrigation, soil_amendment, pest_management, asset_maintenance (required)")
	activityLogCmd.Flags().String("location", "", "Location ID (required)")
	activityLogCmd.Flags().String("bed", "", "Bed ID, when the activity targets a specific bed")
	activityLogCmd.Flags().String("material", "", "What was applied (required for soil_amendment and pest_management)")
	activityLogCmd.Flags().String("amount", "", "How much, free-form: 200L, 2 wheelbarrows")
	activityLogCmd.Flags().String("notes", "", "Free-form notes")
	activityLogCmd.MarkFlagRequired("type")
	activityLogCmd.MarkFlagRequired("location")

	activityListCmd.Flags().String("type", "", "Filter by activity type")
	activityListCmd.Flags().String("location", "", "Filter by location ID")
	activityListCmd.Flags().Int("days", 0, "Only show activities from the last N days")
	activityListCmd.Flags().IntP("limit", "n", 20, "Limit the number of results")

	activityCmd.AddCommand(activityLogCmd, activityListCmd)
	rootCmd.AddCommand(activityCmd)

	scheduleAddCmd.Flags().String("type", "", "Activity type (required)")
	scheduleAddCmd.Flags().String("location", "", "Location ID (required)")
	scheduleAddCmd.Flags().String("bed", "", "Bed ID, when the activity targets a specific bed")
	scheduleAddCmd.Flags().String("material", "", "What gets applied")
	scheduleAddCmd.Flags().String("amount", "", "How much, free-form")
	scheduleAddCmd.Flags().String("cron", "", "Five-field cron expression (required)")
	scheduleAddCmd.MarkFlagRequired("type")
	scheduleAddCmd.MarkFlagRequired("location")
	scheduleAddCmd.MarkFlagRequired("cron")

	scheduleCmd.AddCommand(scheduleAddCmd, scheduleListCmd, scheduleEnableCmd, scheduleDisableCmd)
	rootCmd.AddCommand(scheduleCmd)
}
