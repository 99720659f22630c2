package punchlist

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpenSeedsDatabase(t *testing.T) {
	ctx := context.Background()
	svc, err := Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer svc.Store().Close()

	statuses, err := svc.Store().ListStatuses(ctx)
	if err != nil {
		t.Fatalf("ListStatuses failed: %v", err)
	}
	if len(statuses) == 0 {
		t.Error("expected seeded status catalog")
	}

	initial, err := svc.Store().InitialStatus(ctx)
	if err != nil {
		t.Fatalf("InitialStatus failed: %v", err)
	}
	if initial.Name != StatusOpen {
		t.Errorf("expected initial status %s, got %s", StatusOpen, initial.Name)
	}
}

func TestNewSQLiteStorage(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStorage(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStorage failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
