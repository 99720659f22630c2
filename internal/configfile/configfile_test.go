package configfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingReturnsNil(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg != nil {
		t.Errorf("expected nil config for missing file, got %+v", cfg)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		Database:           "site.db",
		BackupDir:          "snapshots",
		BackupIntervalMins: 30,
		DefaultProject:     7,
		EscalateOverdue:    true,
	}
	if err := cfg.Save(dir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got == nil {
		t.Fatal("expected config, got nil")
	}
	if got.Database != "site.db" {
		t.Errorf("Database = %q, want site.db", got.Database)
	}
	if got.BackupDir != "snapshots" {
		t.Errorf("BackupDir = %q, want snapshots", got.BackupDir)
	}
	if got.BackupIntervalMins != 30 {
		t.Errorf("BackupIntervalMins = %d, want 30", got.BackupIntervalMins)
	}
	if got.DefaultProject != 7 {
		t.Errorf("DefaultProject = %d, want 7", got.DefaultProject)
	}
	if !got.EscalateOverdue {
		t.Error("EscalateOverdue = false, want true")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(ConfigPath(dir), []byte("database: [unclosed"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("expected parse error for invalid yaml")
	}
}

func TestPaths(t *testing.T) {
	cfg := DefaultConfig()
	dir := filepath.Join("some", "proj", ".punchlist")

	if got := cfg.DatabasePath(dir); got != filepath.Join(dir, "punchlist.db") {
		t.Errorf("DatabasePath = %q", got)
	}
	if got := cfg.BackupPath(dir); got != filepath.Join(dir, "backups") {
		t.Errorf("BackupPath = %q", got)
	}

	abs := string(filepath.Separator) + filepath.Join("var", "lib", "punch.db")
	cfg.Database = abs
	if got := cfg.DatabasePath(dir); got != abs {
		t.Errorf("absolute DatabasePath = %q, want %q", got, abs)
	}
}

func TestGetBackupIntervalMins(t *testing.T) {
	cfg := &Config{}
	if got := cfg.GetBackupIntervalMins(); got != DefaultBackupIntervalMins {
		t.Errorf("default interval = %d, want %d", got, DefaultBackupIntervalMins)
	}
	cfg.BackupIntervalMins = 15
	if got := cfg.GetBackupIntervalMins(); got != 15 {
		t.Errorf("interval = %d, want 15", got)
	}
}

func TestFindDir(t *testing.T) {
	root := t.TempDir()
	punchDir := filepath.Join(root, DirName)
	if err := os.MkdirAll(punchDir, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	old, _ := os.Getwd()
	defer os.Chdir(old)
	if err := os.Chdir(nested); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	got, err := FindDir()
	if err != nil {
		t.Fatalf("FindDir() error = %v", err)
	}
	// Resolve symlinks: on some systems TempDir is behind a symlink
	wantResolved, _ := filepath.EvalSymlinks(punchDir)
	gotResolved, _ := filepath.EvalSymlinks(got)
	if gotResolved != wantResolved {
		t.Errorf("FindDir() = %q, want %q", got, punchDir)
	}
}
