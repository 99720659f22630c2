package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var showCmd = &cobra.Command{
	Use:   "show <defect>",
	Short: "Show a defect with its comments and history",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := rootCtx
		d := resolveDefect(ctx, args[0])
		catalogs := loadCatalogs(ctx)

		if jsonOutput {
			outputJSON(d)
			return
		}

		fmt.Printf("%s %s\n", numberStyle.Render(d.Number), titleStyle.Render(d.Title))
		fmt.Printf("%s %s    %s %s\n",
			labelStyle.Render("Status:"), catalogs.status(d.StatusID),
			labelStyle.Render("Priority:"), catalogs.priority(d.PriorityID))
		if d.Location != "" {
			fmt.Printf("%s %s\n", labelStyle.Render("Location:"), d.Location)
		}
		fmt.Printf("%s %s\n", labelStyle.Render("Reporter:"), userDisplay(ctx, d.ReporterID))
		if d.AssigneeID != nil {
			fmt.Printf("%s %s\n", labelStyle.Render("Assignee:"), userDisplay(ctx, *d.AssigneeID))
		}
		fmt.Printf("%s %s    %s %s\n",
			labelStyle.Render("Due:"), formatDate(d.DueDate),
			labelStyle.Render("Closed:"), formatDate(d.ClosedAt))
		if d.Description != "" {
			fmt.Printf("\n%s\n", d.Description)
		}

		// Comments and history need an acting user for the permission
		// check; skip them when no actor is configured.
		if actorName == "" && viper.GetString("actor") == "" {
			return
		}
		actor := requireActor(ctx)

		if comments, err := svc.GetComments(ctx, actor, d.ID); err == nil && len(comments) > 0 {
			fmt.Printf("\n%s\n", labelStyle.Render("Comments:"))
			for _, c := range comments {
				fmt.Printf("  [%s] %s: %s\n",
					c.CreatedAt.Local().Format("2006-01-02 15:04"),
					userDisplay(ctx, c.AuthorID), c.Content)
			}
		}

		limit, _ := cmd.Flags().GetInt("history")
		if entries, err := svc.History(ctx, actor, d.ID, limit); err == nil && len(entries) > 0 {
			fmt.Printf("\n%s\n", labelStyle.Render("History:"))
			for _, e := range entries {
				fmt.Printf("  [%s] %s\n", e.Entry.CreatedAt.Local().Format("2006-01-02 15:04"), e.Text)
			}
		}
	},
}

func init() {
	showCmd.Flags().Int("history", 10, "Number of history entries to show (0 = all)")
	rootCmd.AddCommand(showCmd)
}
