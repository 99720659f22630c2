package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <defect>",
	Short: "Delete a defect and everything attached to it",
	Long: `Deleting a defect removes its comments and audit entries. Only
supervisors (or superusers) may delete defects.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := rootCtx
		actor := requireActor(ctx)
		d := resolveDefect(ctx, args[0])

		force, _ := cmd.Flags().GetBool("force")
		if !force {
			fmt.Printf("Delete %s %q and all its comments and history? [y/N] ", d.Number, d.Title)
			reader := bufio.NewReader(os.Stdin)
			answer, _ := reader.ReadString('\n')
			if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y") {
				fmt.Println("Aborted.")
				return
			}
		}

		if err := svc.DeleteDefect(ctx, actor, d.ID); err != nil {
			FatalError("%v", err)
		}
		fmt.Printf("Deleted %s\n", numberStyle.Render(d.Number))
	},
}

func init() {
	deleteCmd.Flags().BoolP("force", "f", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(deleteCmd)
}
