package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sitedesk/punchlist/internal/lifecycle"
	"github.com/sitedesk/punchlist/internal/timeparsing"
)

var updateCmd = &cobra.Command{
	Use:     "update <defect>",
	Aliases: []string{"edit"},
	Short:   "Update defect fields",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := rootCtx
		actor := requireActor(ctx)
		d := resolveDefect(ctx, args[0])

		var changes lifecycle.FieldChanges
		touched := false

		if cmd.Flags().Changed("title") {
			v, _ := cmd.Flags().GetString("title")
			changes.Title = &v
			touched = true
		}
		if cmd.Flags().Changed("description") {
			v, _ := cmd.Flags().GetString("description")
			changes.Description = &v
			touched = true
		}
		if cmd.Flags().Changed("location") {
			v, _ := cmd.Flags().GetString("location")
			changes.Location = &v
			touched = true
		}
		if cmd.Flags().Changed("priority") {
			name, _ := cmd.Flags().GetString("priority")
			p, err := store.GetPriorityByName(ctx, name)
			if err != nil {
				FatalError("unknown priority %q", name)
			}
			changes.PriorityID = &p.ID
			touched = true
		}
		if cmd.Flags().Changed("due") {
			v, _ := cmd.Flags().GetString("due")
			t, err := timeparsing.ParseRelativeTime(v, time.Now())
			if err != nil {
				FatalError("invalid --due value %q: %v", v, err)
			}
			changes.DueDate = &t
			touched = true
		}
		if clear, _ := cmd.Flags().GetBool("clear-due"); clear {
			changes.ClearDueDate = true
			touched = true
		}
		if cmd.Flags().Changed("estimate") {
			v, _ := cmd.Flags().GetFloat64("estimate")
			changes.EstimatedHours = &v
			touched = true
		}
		if cmd.Flags().Changed("actual") {
			v, _ := cmd.Flags().GetFloat64("actual")
			changes.ActualHours = &v
			touched = true
		}

		if !touched {
			FatalError("nothing to update: pass at least one field flag")
		}

		updated, err := svc.UpdateDefect(ctx, actor, d.ID, changes)
		if err != nil {
			FatalError("%v", err)
		}

		if jsonOutput {
			outputJSON(updated)
			return
		}
		fmt.Printf("Updated %s\n", numberStyle.Render(updated.Number))
	},
}

func init() {
	updateCmd.Flags().String("title", "", "New title")
	updateCmd.Flags().StringP("description", "d", "", "New description")
	updateCmd.Flags().StringP("location", "l", "", "New location")
	updateCmd.Flags().String("priority", "", "New priority name")
	updateCmd.Flags().String("due", "", "New due date")
	updateCmd.Flags().Bool("clear-due", false, "Clear the due date")
	updateCmd.Flags().Float64("estimate", 0, "Estimated hours")
	updateCmd.Flags().Float64("actual", 0, "Actual hours spent")
	rootCmd.AddCommand(updateCmd)
}
