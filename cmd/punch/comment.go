package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var commentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Work with defect comments",
}

var commentAddCmd = &cobra.Command{
	Use:   "add <defect> <text>",
	Short: "Add a comment to a defect",
	Long: `Engineers may comment only on defects assigned to them; managers may
comment on any defect in their projects.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := rootCtx
		actor := requireActor(ctx)
		d := resolveDefect(ctx, args[0])

		c, err := svc.AddComment(ctx, actor, d.ID, args[1])
		if err != nil {
			FatalError("%v", err)
		}
		if jsonOutput {
			outputJSON(c)
			return
		}
		fmt.Printf("Added comment %d to %s\n", c.ID, numberStyle.Render(d.Number))
	},
}

var commentListCmd = &cobra.Command{
	Use:   "list <defect>",
	Short: "List comments on a defect",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := rootCtx
		actor := requireActor(ctx)
		d := resolveDefect(ctx, args[0])

		comments, err := svc.GetComments(ctx, actor, d.ID)
		if err != nil {
			FatalError("%v", err)
		}
		if jsonOutput {
			outputJSON(comments)
			return
		}
		if len(comments) == 0 {
			fmt.Println("No comments.")
			return
		}
		for _, c := range comments {
			fmt.Printf("[%d] %s %s: %s\n", c.ID,
				c.CreatedAt.Local().Format("2006-01-02 15:04"),
				userDisplay(ctx, c.AuthorID), c.Content)
		}
	},
}

var commentDeleteCmd = &cobra.Command{
	Use:   "delete <defect> <comment-id>",
	Short: "Delete a comment",
	Long:  `Engineers may delete only their own comments; managers may delete any.`,
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := rootCtx
		actor := requireActor(ctx)
		d := resolveDefect(ctx, args[0])

		commentID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			FatalError("invalid comment id %q", args[1])
		}
		if err := svc.DeleteComment(ctx, actor, d.ID, commentID); err != nil {
			FatalError("%v", err)
		}
		fmt.Printf("Deleted comment %d from %s\n", commentID, numberStyle.Render(d.Number))
	},
}

func init() {
	commentCmd.AddCommand(commentAddCmd, commentListCmd, commentDeleteCmd)
	rootCmd.AddCommand(commentCmd)
}
