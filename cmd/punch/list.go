package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sitedesk/punchlist/internal/types"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List defects",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := rootCtx

		projectFlag, _ := cmd.Flags().GetInt64("project")
		status, _ := cmd.Flags().GetString("status")
		priority, _ := cmd.Flags().GetString("priority")
		search, _ := cmd.Flags().GetString("search")
		assignee, _ := cmd.Flags().GetString("assignee")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := types.DefectFilter{
			Status:   status,
			Priority: priority,
			Search:   search,
			Limit:    limit,
		}
		if projectFlag != 0 || (cfg != nil && cfg.DefaultProject != 0) {
			id := resolveProjectID(projectFlag)
			filter.ProjectID = &id
		}
		if assignee != "" {
			u := resolveUserRef(ctx, assignee)
			filter.Assignee = &u.ID
		}

		defects, err := svc.ListDefects(ctx, filter)
		if err != nil {
			FatalError("%v", err)
		}

		if jsonOutput {
			outputJSON(defects)
			return
		}
		if len(defects) == 0 {
			fmt.Println("No defects found.")
			return
		}
		catalogs := loadCatalogs(ctx)
		for _, d := range defects {
			printDefectLine(ctx, catalogs, d)
		}
	},
}

func init() {
	listCmd.Flags().Int64P("project", "p", 0, "Filter by project ID")
	listCmd.Flags().StringP("status", "s", "", "Filter by status name")
	listCmd.Flags().String("priority", "", "Filter by priority name")
	listCmd.Flags().String("search", "", "Substring match on title and description")
	listCmd.Flags().StringP("assignee", "a", "", "Filter by assignee username or ID")
	listCmd.Flags().IntP("limit", "n", 0, "Maximum rows (0 = all)")
	rootCmd.AddCommand(listCmd)
}
