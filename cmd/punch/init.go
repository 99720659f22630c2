package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sitedesk/punchlist/internal/configfile"
	"github.com/sitedesk/punchlist/internal/storage/sqlite"
	"github.com/sitedesk/punchlist/internal/types"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a punchlist database in the current directory",
	Long: `Creates a .punchlist directory with a config file and a seeded SQLite
database. Optionally creates an initial superuser account.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		dir, err := os.Getwd()
		if err != nil {
			FatalError("%v", err)
		}
		punchDir := filepath.Join(dir, configfile.DirName)

		if _, err := os.Stat(configfile.ConfigPath(punchDir)); err == nil {
			FatalError("already initialized: %s exists", configfile.ConfigPath(punchDir))
		}

		cfg := configfile.DefaultConfig()
		if err := cfg.Save(punchDir); err != nil {
			FatalError("%v", err)
		}

		s, err := sqlite.New(ctx, cfg.DatabasePath(punchDir))
		if err != nil {
			FatalError("failed to create database: %v", err)
		}
		defer s.Close()

		admin, _ := cmd.Flags().GetString("admin")
		if admin != "" {
			u := &types.User{Username: admin, IsActive: true, IsSuperuser: true}
			if err := s.CreateUser(ctx, u); err != nil {
				FatalError("failed to create admin user: %v", err)
			}
			fmt.Printf("Created superuser %s (id %d)\n", admin, u.ID)
		}

		fmt.Printf("Initialized punchlist in %s\n", punchDir)
	},
}

func init() {
	initCmd.Flags().String("admin", "", "Create an initial superuser with this username")
	rootCmd.AddCommand(initCmd)
}
