package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sitedesk/punchlist/internal/report"
	"github.com/sitedesk/punchlist/internal/types"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export defects as CSV",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := rootCtx

		projectFlag, _ := cmd.Flags().GetInt64("project")
		status, _ := cmd.Flags().GetString("status")
		out, _ := cmd.Flags().GetString("output")

		filter := types.DefectFilter{Status: status}
		if projectFlag != 0 || (cfg != nil && cfg.DefaultProject != 0) {
			id := resolveProjectID(projectFlag)
			filter.ProjectID = &id
		}

		w := os.Stdout
		if out != "" {
			f, err := os.Create(out) // #nosec G304 - user-chosen output path
			if err != nil {
				FatalError("%v", err)
			}
			defer f.Close()
			w = f
		}

		n, err := report.WriteCSV(ctx, store, filter, w)
		if err != nil {
			FatalError("%v", err)
		}
		if out != "" {
			fmt.Printf("Wrote %d defects to %s\n", n, out)
		}
	},
}

func init() {
	reportCmd.Flags().Int64P("project", "p", 0, "Project ID")
	reportCmd.Flags().StringP("status", "s", "", "Filter by status name")
	reportCmd.Flags().StringP("output", "o", "", "Output file (default stdout)")
	rootCmd.AddCommand(reportCmd)
}
