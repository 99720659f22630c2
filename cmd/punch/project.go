package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sitedesk/punchlist/internal/types"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a project",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := rootCtx
		description, _ := cmd.Flags().GetString("description")
		address, _ := cmd.Flags().GetString("address")

		p := &types.Project{
			Name:        args[0],
			Description: description,
			Address:     address,
			Status:      types.ProjectActive,
			IsActive:    true,
		}
		if err := store.CreateProject(ctx, p); err != nil {
			FatalError("%v", err)
		}
		if jsonOutput {
			outputJSON(p)
			return
		}
		fmt.Printf("Created project %s (id %d)\n", p.Name, p.ID)
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := rootCtx
		projects, err := store.ListProjects(ctx)
		if err != nil {
			FatalError("%v", err)
		}
		if jsonOutput {
			outputJSON(projects)
			return
		}
		for _, p := range projects {
			fmt.Printf("%4d  %-30s %s\n", p.ID, p.Name, p.Status)
		}
	},
}

var projectMetricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show defect metrics for a project",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := rootCtx
		actor := requireActor(ctx)
		projectFlag, _ := cmd.Flags().GetInt64("project")

		m, err := svc.Metrics(ctx, actor, resolveProjectID(projectFlag))
		if err != nil {
			FatalError("%v", err)
		}
		if jsonOutput {
			outputJSON(m)
			return
		}
		fmt.Printf("%s %d\n", labelStyle.Render("Total defects:"), m.TotalDefects)
		fmt.Printf("%s %d\n", labelStyle.Render("In progress:  "), m.InProgress)
		fmt.Printf("%s %d\n", labelStyle.Render("Overdue:      "), m.Overdue)
	},
}

func init() {
	projectAddCmd.Flags().StringP("description", "d", "", "Project description")
	projectAddCmd.Flags().String("address", "", "Site address")
	projectMetricsCmd.Flags().Int64P("project", "p", 0, "Project ID")
	projectCmd.AddCommand(projectAddCmd, projectListCmd, projectMetricsCmd)
	rootCmd.AddCommand(projectCmd)
}
