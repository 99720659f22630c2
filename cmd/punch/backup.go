package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sitedesk/punchlist/internal/backup"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write a database snapshot",
	Long: `Snapshots use VACUUM INTO, producing a compacted copy without blocking
concurrent readers. Old snapshots beyond --keep are pruned.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := rootCtx

		dir, _ := cmd.Flags().GetString("dir")
		keep, _ := cmd.Flags().GetInt("keep")
		if dir == "" {
			if punchDir == "" || cfg == nil {
				FatalError("no backup directory: pass --dir or run inside an initialized project")
			}
			dir = cfg.BackupPath(punchDir)
		}

		path, err := backup.Snapshot(ctx, rawStore.UnderlyingDB(), dir)
		if err != nil {
			FatalError("%v", err)
		}
		fmt.Printf("Backup written: %s\n", path)

		if keep > 0 {
			removed, err := backup.Prune(dir, keep)
			if err != nil {
				FatalError("prune: %v", err)
			}
			if removed > 0 {
				fmt.Printf("Pruned %d old snapshot(s)\n", removed)
			}
		}
	},
}

func init() {
	backupCmd.Flags().String("dir", "", "Backup directory (default: config backup_dir)")
	backupCmd.Flags().Int("keep", 10, "Snapshots to retain after pruning (0 = keep all)")
	rootCmd.AddCommand(backupCmd)
}
