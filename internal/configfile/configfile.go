// Package configfile manages the .punchlist/config.yaml project file.
package configfile

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const ConfigFileName = "config.yaml"

// DirName is the per-project configuration directory.
const DirName = ".punchlist"

type Config struct {
	Database string `yaml:"database"`

	// Backups configuration
	BackupDir          string `yaml:"backup_dir,omitempty"`
	BackupIntervalMins int    `yaml:"backup_interval_mins,omitempty"` // 0 means use default

	// Default project for commands that omit --project
	DefaultProject int64 `yaml:"default_project,omitempty"`

	// Escalation sweep configuration
	EscalateOverdue bool `yaml:"escalate_overdue,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Database:  "punchlist.db",
		BackupDir: "backups",
	}
}

func ConfigPath(punchDir string) string {
	return filepath.Join(punchDir, ConfigFileName)
}

// Load reads the config from punchDir. A missing file returns (nil, nil).
func Load(punchDir string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(punchDir)) // #nosec G304 - controlled path from config
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Save(punchDir string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.MkdirAll(punchDir, 0o750); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(ConfigPath(punchDir), data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func (c *Config) DatabasePath(punchDir string) string {
	if filepath.IsAbs(c.Database) {
		return c.Database
	}
	return filepath.Join(punchDir, c.Database)
}

func (c *Config) BackupPath(punchDir string) string {
	dir := c.BackupDir
	if dir == "" {
		dir = "backups"
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(punchDir, dir)
}

// DefaultBackupIntervalMins is used when the config leaves the interval unset.
const DefaultBackupIntervalMins = 60

// GetBackupIntervalMins returns the configured backup interval, or the default if not set.
func (c *Config) GetBackupIntervalMins() int {
	if c.BackupIntervalMins <= 0 {
		return DefaultBackupIntervalMins
	}
	return c.BackupIntervalMins
}

// FindDir walks up from the working directory looking for a .punchlist
// directory. Returns the directory itself, not the project root.
func FindDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, DirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s directory found", DirName)
		}
		dir = parent
	}
}
