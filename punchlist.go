// Package punchlist provides a minimal public API for embedding the
// defect tracker in other Go programs.
//
// Most integrations should go through the punch CLI or the HTTP API.
// This package exports only the types and constructors needed to use
// the storage and service layers programmatically.
package punchlist

import (
	"context"

	"github.com/sitedesk/punchlist/internal/service"
	"github.com/sitedesk/punchlist/internal/storage"
	"github.com/sitedesk/punchlist/internal/storage/sqlite"
	"github.com/sitedesk/punchlist/internal/types"
)

// Core types for working with defects
type (
	Defect       = types.Defect
	Comment      = types.Comment
	Actor        = types.Actor
	Role         = types.Role
	StatusName   = types.StatusName
	DefectFilter = types.DefectFilter
)

// Role constants
const (
	RoleEngineer   = types.RoleEngineer
	RoleManager    = types.RoleManager
	RoleSupervisor = types.RoleSupervisor
)

// Status constants
const (
	StatusOpen       = types.StatusOpen
	StatusInProgress = types.StatusInProgress
	StatusReview     = types.StatusReview
	StatusResolved   = types.StatusResolved
	StatusClosed     = types.StatusClosed
	StatusRejected   = types.StatusRejected
)

// Storage is the persistence interface backing the service layer.
type Storage = storage.Storage

// Service is the permission-checked defect service.
type Service = service.DefectService

// Open opens (creating and seeding if necessary) a punchlist SQLite
// database and returns a service over it.
func Open(ctx context.Context, dbPath string) (*Service, error) {
	store, err := sqlite.New(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	return service.New(store), nil
}

// NewSQLiteStorage opens the database for direct storage-level access.
func NewSQLiteStorage(ctx context.Context, dbPath string) (Storage, error) {
	return sqlite.New(ctx, dbPath)
}
