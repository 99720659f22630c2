package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var escalateCmd = &cobra.Command{
	Use:   "escalate",
	Short: "Escalate overdue defects to critical priority",
	Long: `Sweeps a project for open defects past their due date and raises them
to critical. Requires superuser privileges.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := rootCtx
		actor := requireActor(ctx)
		projectFlag, _ := cmd.Flags().GetInt64("project")

		n, err := svc.EscalateOverdue(ctx, actor, resolveProjectID(projectFlag))
		if err != nil {
			FatalError("%v", err)
		}
		if n == 0 {
			fmt.Println("No overdue defects to escalate.")
			return
		}
		fmt.Printf("Escalated %d defect(s) to critical\n", n)
	},
}

func init() {
	escalateCmd.Flags().Int64P("project", "p", 0, "Project ID")
	rootCmd.AddCommand(escalateCmd)
}
