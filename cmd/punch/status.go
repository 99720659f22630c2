package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sitedesk/punchlist/internal/types"
)

var statusCmd = &cobra.Command{
	Use:   "status <defect> <status>",
	Short: "Move a defect to a new lifecycle status",
	Long: `Valid statuses: open, in_progress, review, resolved, closed, rejected.

Leaving review requires the manager role. Closed and rejected are final:
a defect in a final status cannot be reopened.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := rootCtx
		actor := requireActor(ctx)
		d := resolveDefect(ctx, args[0])

		updated, err := svc.ChangeStatus(ctx, actor, d.ID, types.StatusName(args[1]))
		if err != nil {
			FatalError("%v", err)
		}

		if jsonOutput {
			outputJSON(updated)
			return
		}
		catalogs := loadCatalogs(ctx)
		fmt.Printf("%s is now %s\n", numberStyle.Render(updated.Number), catalogs.status(updated.StatusID))
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
