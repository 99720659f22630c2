package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sitedesk/punchlist/internal/lifecycle"
)

var assignCmd = &cobra.Command{
	Use:   "assign <defect> [user]",
	Short: "Assign a defect to a user (omit user to unassign)",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := rootCtx
		actor := requireActor(ctx)
		d := resolveDefect(ctx, args[0])

		var changes lifecycle.FieldChanges
		if len(args) == 2 {
			u := resolveUserRef(ctx, args[1])
			changes.AssigneeID = &u.ID
		} else {
			changes.ClearAssignee = true
		}

		updated, err := svc.UpdateDefect(ctx, actor, d.ID, changes)
		if err != nil {
			FatalError("%v", err)
		}

		if jsonOutput {
			outputJSON(updated)
			return
		}
		if updated.AssigneeID != nil {
			fmt.Printf("%s assigned to %s\n", numberStyle.Render(updated.Number), userDisplay(ctx, *updated.AssigneeID))
		} else {
			fmt.Printf("%s unassigned\n", numberStyle.Render(updated.Number))
		}
	},
}

func init() {
	rootCmd.AddCommand(assignCmd)
}
