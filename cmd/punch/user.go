package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sitedesk/punchlist/internal/types"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create a user account",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := rootCtx
		first, _ := cmd.Flags().GetString("first-name")
		last, _ := cmd.Flags().GetString("last-name")
		email, _ := cmd.Flags().GetString("email")
		super, _ := cmd.Flags().GetBool("superuser")

		u := &types.User{
			Username:    args[0],
			FirstName:   first,
			LastName:    last,
			Email:       email,
			IsActive:    true,
			IsSuperuser: super,
		}
		if err := store.CreateUser(ctx, u); err != nil {
			FatalError("%v", err)
		}
		if jsonOutput {
			outputJSON(u)
			return
		}
		fmt.Printf("Created user %s (id %d)\n", u.Username, u.ID)
	},
}

var roleCmd = &cobra.Command{
	Use:   "role",
	Short: "Manage project role grants",
}

var roleGrantCmd = &cobra.Command{
	Use:   "grant <user> <role>",
	Short: "Grant a project role (engineer, manager, supervisor)",
	Long:  `Only superusers and holders of the supervisor or manager role in the project may administer grants.`,
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := rootCtx
		actor := requireActor(ctx)
		projectFlag, _ := cmd.Flags().GetInt64("project")
		projectID := resolveProjectID(projectFlag)
		u := resolveUserRef(ctx, args[0])

		if _, err := svc.GrantRole(ctx, actor, u.ID, projectID, types.Role(args[1])); err != nil {
			FatalError("%v", err)
		}
		fmt.Printf("Granted %s to %s in project %d\n", args[1], u.Username, projectID)
	},
}

var roleRevokeCmd = &cobra.Command{
	Use:   "revoke <user> <role>",
	Short: "Revoke a project role",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := rootCtx
		actor := requireActor(ctx)
		projectFlag, _ := cmd.Flags().GetInt64("project")
		projectID := resolveProjectID(projectFlag)
		u := resolveUserRef(ctx, args[0])

		if err := svc.RevokeRole(ctx, actor, u.ID, projectID, types.Role(args[1])); err != nil {
			FatalError("%v", err)
		}
		fmt.Printf("Revoked %s from %s in project %d\n", args[1], u.Username, projectID)
	},
}

var roleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List role grants in a project",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := rootCtx
		projectFlag, _ := cmd.Flags().GetInt64("project")
		projectID := resolveProjectID(projectFlag)

		grants, err := store.ListGrants(ctx, projectID)
		if err != nil {
			FatalError("%v", err)
		}
		if jsonOutput {
			outputJSON(grants)
			return
		}
		if len(grants) == 0 {
			fmt.Println("No role grants.")
			return
		}
		for _, g := range grants {
			fmt.Printf("%-20s %s\n", userDisplay(ctx, g.UserID), g.Role)
		}
	},
}

func init() {
	userAddCmd.Flags().String("first-name", "", "First name")
	userAddCmd.Flags().String("last-name", "", "Last name")
	userAddCmd.Flags().String("email", "", "Email address")
	userAddCmd.Flags().Bool("superuser", false, "Grant superuser privileges")
	userCmd.AddCommand(userAddCmd)
	rootCmd.AddCommand(userCmd)

	roleGrantCmd.Flags().Int64P("project", "p", 0, "Project ID")
	roleRevokeCmd.Flags().Int64P("project", "p", 0, "Project ID")
	roleListCmd.Flags().Int64P("project", "p", 0, "Project ID")
	roleCmd.AddCommand(roleGrantCmd, roleRevokeCmd, roleListCmd)
	rootCmd.AddCommand(roleCmd)
}
