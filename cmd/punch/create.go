package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sitedesk/punchlist/internal/service"
	"github.com/sitedesk/punchlist/internal/timeparsing"
)

var createCmd = &cobra.Command{
	Use:     "create [title]",
	Aliases: []string{"new"},
	Short:   "Report a new defect",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := rootCtx
		actor := requireActor(ctx)

		projectFlag, _ := cmd.Flags().GetInt64("project")
		description, _ := cmd.Flags().GetString("description")
		location, _ := cmd.Flags().GetString("location")
		priority, _ := cmd.Flags().GetString("priority")
		assignee, _ := cmd.Flags().GetString("assignee")
		due, _ := cmd.Flags().GetString("due")
		estimate, _ := cmd.Flags().GetFloat64("estimate")

		req := service.CreateDefectRequest{
			ProjectID:    resolveProjectID(projectFlag),
			Title:        args[0],
			Description:  description,
			Location:     location,
			PriorityName: priority,
		}
		if assignee != "" {
			u := resolveUserRef(ctx, assignee)
			req.AssigneeID = &u.ID
		}
		if due != "" {
			t, err := timeparsing.ParseRelativeTime(due, time.Now())
			if err != nil {
				FatalError("invalid --due value %q: %v", due, err)
			}
			req.DueDate = &t
		}
		if estimate > 0 {
			req.EstimatedHours = &estimate
		}

		defect, err := svc.CreateDefect(ctx, actor, req)
		if err != nil {
			FatalError("%v", err)
		}

		if jsonOutput {
			outputJSON(defect)
			return
		}
		fmt.Printf("Created %s: %s\n", numberStyle.Render(defect.Number), defect.Title)
	},
}

func init() {
	createCmd.Flags().Int64P("project", "p", 0, "Project ID (default: config default_project)")
	createCmd.Flags().StringP("description", "d", "", "Defect description")
	createCmd.Flags().StringP("location", "l", "", "Location on site (building, floor, room)")
	createCmd.Flags().String("priority", "", "Priority: low, medium, high, critical (default medium)")
	createCmd.Flags().StringP("assignee", "a", "", "Assignee username or ID")
	createCmd.Flags().String("due", "", "Due date (2026-03-01, '2w', or 'next friday')")
	createCmd.Flags().Float64("estimate", 0, "Estimated hours to fix")
	rootCmd.AddCommand(createCmd)
}
