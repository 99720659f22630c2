package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sitedesk/punchlist/internal/configfile"
	"github.com/sitedesk/punchlist/internal/debug"
	"github.com/sitedesk/punchlist/internal/service"
	"github.com/sitedesk/punchlist/internal/storage"
	"github.com/sitedesk/punchlist/internal/storage/sqlite"
	"github.com/sitedesk/punchlist/internal/telemetry"
	"github.com/sitedesk/punchlist/internal/types"
)

var (
	dbPath      string
	actorName   string
	superuser   bool
	jsonOutput  bool
	verboseFlag bool
	quietFlag   bool

	store storage.Storage
	// rawStore is the unwrapped SQLite store, kept for operations that
	// need the underlying database handle (backup).
	rawStore *sqlite.Store
	svc      *service.DefectService
	cfg      *configfile.Config

	// punchDir is the resolved .punchlist directory, empty when the
	// database path came from a flag or env var.
	punchDir string

	// Signal-aware context for graceful cancellation
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

// noDbCommands run without opening the database.
var noDbCommands = map[string]bool{
	"init":       true,
	"version":    true,
	"help":       true,
	"completion": true,
}

func needsDatabase(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if noDbCommands[c.Name()] {
			return false
		}
	}
	return true
}

func init() {
	viper.SetEnvPrefix("PUNCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: auto-discover .punchlist/)")
	rootCmd.PersistentFlags().StringVar(&actorName, "actor", "", "Acting username for permission checks and the audit trail (default: $PUNCH_ACTOR)")
	rootCmd.PersistentFlags().BoolVar(&superuser, "superuser", false, "Act with superuser privileges (closed defects stay immutable)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output (errors only)")

	_ = viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("actor", rootCmd.PersistentFlags().Lookup("actor"))

	rootCmd.Flags().BoolP("version", "V", false, "Print version information")
}

var rootCmd = &cobra.Command{
	Use:   "punch",
	Short: "punch - Construction defect tracker",
	Long:  `A defect (punch list) tracker for construction projects with role-based permissions, a defect lifecycle, and a full audit trail.`,
	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("punch version %s (%s)\n", Version, Build)
			return
		}
		_ = cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug.SetVerbose(verboseFlag)
		debug.SetQuiet(quietFlag)

		rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

		if !needsDatabase(cmd) {
			return
		}

		path, err := resolveDatabasePath()
		if err != nil {
			FatalError("%v", err)
		}
		debug.Logf("opening database %s\n", path)

		if err := telemetry.Init(rootCtx, "punch", Version); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: telemetry init failed: %v\n", err)
		}

		s, err := sqlite.New(rootCtx, path)
		if err != nil {
			FatalError("failed to open database: %v", err)
		}
		rawStore = s
		store = telemetry.WrapStorage(s)
		svc = service.New(store)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			_ = store.Close()
		}
		telemetry.Shutdown(context.Background())
		if rootCancel != nil {
			rootCancel()
		}
	},
}

// resolveDatabasePath picks the database location.
// Priority: --db flag > $PUNCH_DB > .punchlist/config.yaml (walking up).
func resolveDatabasePath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}
	if env := viper.GetString("db"); env != "" {
		return env, nil
	}
	dir, err := configfile.FindDir()
	if err != nil {
		return "", fmt.Errorf("no database found: %w (run 'punch init' first, or pass --db)", err)
	}
	punchDir = dir
	cfg, err = configfile.Load(dir)
	if err != nil {
		return "", err
	}
	if cfg == nil {
		cfg = configfile.DefaultConfig()
	}
	return cfg.DatabasePath(dir), nil
}

// requireActor resolves the acting user from --actor or $PUNCH_ACTOR.
func requireActor(ctx context.Context) types.Actor {
	name := actorName
	if name == "" {
		name = viper.GetString("actor")
	}
	if name == "" {
		FatalError("no actor: pass --actor or set PUNCH_ACTOR")
	}
	u, err := store.GetUserByUsername(ctx, name)
	if err != nil {
		FatalError("unknown actor %q: %v", name, err)
	}
	return types.Actor{UserID: u.ID, IsSuperuser: superuser || u.IsSuperuser}
}

// resolveDefect accepts either a defect number (DEF-2026-0042) or a
// numeric database ID.
func resolveDefect(ctx context.Context, ref string) *types.Defect {
	if strings.HasPrefix(strings.ToUpper(ref), "DEF-") {
		d, err := store.GetDefectByNumber(ctx, strings.ToUpper(ref))
		if err != nil {
			FatalError("defect %s: %v", ref, err)
		}
		return d
	}
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		FatalError("invalid defect reference %q (use a number like DEF-2026-0042 or an ID)", ref)
	}
	d, err := store.GetDefect(ctx, id)
	if err != nil {
		FatalError("defect %d: %v", id, err)
	}
	return d
}

// resolveProjectID falls back to the configured default project when
// the flag is zero.
func resolveProjectID(flagValue int64) int64 {
	if flagValue != 0 {
		return flagValue
	}
	if cfg != nil && cfg.DefaultProject != 0 {
		return cfg.DefaultProject
	}
	FatalError("no project: pass --project or set default_project in %s", configfile.ConfigFileName)
	return 0
}

// resolveUserRef accepts a username or numeric user ID.
func resolveUserRef(ctx context.Context, ref string) *types.User {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		u, err := store.GetUser(ctx, id)
		if err != nil {
			FatalError("user %d: %v", id, err)
		}
		return u
	}
	u, err := store.GetUserByUsername(ctx, ref)
	if err != nil {
		FatalError("user %q: %v", ref, err)
	}
	return u
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
