package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the audit trail for a project",
	Long: `Renders audit entries as readable sentences, resolving user, status, and
priority references to display names. Dangling references render as
"unknown" rather than failing.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := rootCtx
		actor := requireActor(ctx)

		projectFlag, _ := cmd.Flags().GetInt64("project")
		filter, _ := cmd.Flags().GetString("filter")
		limit, _ := cmd.Flags().GetInt("limit")

		entries, err := svc.ListAudit(ctx, actor, resolveProjectID(projectFlag), filter, limit)
		if err != nil {
			FatalError("%v", err)
		}

		if jsonOutput {
			type jsonEntry struct {
				ID        int64  `json:"id"`
				DefectID  int64  `json:"defect_id"`
				Text      string `json:"text"`
				CreatedAt string `json:"created_at"`
			}
			out := make([]jsonEntry, len(entries))
			for i, e := range entries {
				out[i] = jsonEntry{
					ID:        e.Entry.ID,
					DefectID:  e.Entry.DefectID,
					Text:      e.Text,
					CreatedAt: e.Entry.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
				}
			}
			outputJSON(out)
			return
		}
		if len(entries) == 0 {
			fmt.Println("No audit entries.")
			return
		}
		for _, e := range entries {
			fmt.Printf("[%s] %s\n", e.Entry.CreatedAt.Local().Format("2006-01-02 15:04"), e.Text)
		}
	},
}

func init() {
	auditCmd.Flags().Int64P("project", "p", 0, "Project ID")
	auditCmd.Flags().StringP("filter", "f", "", "Substring match on user, defect title, or field name")
	auditCmd.Flags().IntP("limit", "n", 50, "Maximum entries (0 = all)")
	rootCmd.AddCommand(auditCmd)
}
