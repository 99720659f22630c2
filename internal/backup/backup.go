// Package backup produces SQLite snapshots via VACUUM INTO and runs an
// optional periodic backup scheduler with an explicit start/stop
// lifecycle.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sitedesk/punchlist/internal/debug"
)

// Snapshot writes a consistent copy of the database to destDir using
// VACUUM INTO and returns the snapshot path. VACUUM INTO produces a
// compacted copy without blocking concurrent readers.
func Snapshot(ctx context.Context, db *sql.DB, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	name := fmt.Sprintf("punchlist-%s.db", time.Now().UTC().Format("20060102-150405"))
	dest := filepath.Join(destDir, name)

	// VACUUM INTO fails if the destination exists.
	if _, err := os.Stat(dest); err == nil {
		return "", fmt.Errorf("backup target already exists: %s", dest)
	}

	if _, err := db.ExecContext(ctx, `VACUUM INTO ?`, dest); err != nil {
		return "", fmt.Errorf("vacuum into %s: %w", dest, err)
	}
	return dest, nil
}

// Prune removes the oldest snapshots in destDir, keeping the newest
// keep files. Returns the number removed.
func Prune(destDir string, keep int) (int, error) {
	if keep < 1 {
		keep = 1
	}
	matches, err := filepath.Glob(filepath.Join(destDir, "punchlist-*.db"))
	if err != nil {
		return 0, err
	}
	if len(matches) <= keep {
		return 0, nil
	}
	// Glob results are sorted; timestamped names sort oldest first.
	var removed int
	for _, path := range matches[:len(matches)-keep] {
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("prune %s: %w", path, err)
		}
		removed++
	}
	return removed, nil
}

// Scheduler runs periodic snapshots until stopped.
type Scheduler struct {
	db       *sql.DB
	destDir  string
	interval time.Duration
	keep     int

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a backup scheduler. keep bounds how many
// snapshots are retained; older ones are pruned after each run.
func NewScheduler(db *sql.DB, destDir string, interval time.Duration, keep int) *Scheduler {
	return &Scheduler{db: db, destDir: destDir, interval: interval, keep: keep}
}

// Start launches the background loop. Calling Start on a running
// scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
}

// Stop halts the loop and waits for an in-flight snapshot to finish.
// Safe to call on a stopped scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			path, err := Snapshot(ctx, s.db, s.destDir)
			if err != nil {
				debug.Logf("scheduled backup failed: %v\n", err)
				continue
			}
			debug.Logf("backup written: %s\n", path)
			if _, err := Prune(s.destDir, s.keep); err != nil {
				debug.Logf("backup prune failed: %v\n", err)
			}
		}
	}
}
