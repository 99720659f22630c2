// Package storage provides shared types for defect storage.
//
// The concrete storage implementation lives in the sqlite sub-package.
// This package holds interface and value types that are referenced by
// both the sqlite implementation and its consumers (service, cmd/punch).
package storage

import (
	"context"
	"errors"

	"github.com/sitedesk/punchlist/internal/types"
)

// ErrNotInitialized is returned when the database has not been
// initialized (schema or seed catalogs missing).
var ErrNotInitialized = errors.New("database not initialized")

// Storage is the interface satisfied by *sqlite.Store.
// Consumers depend on this interface rather than on the concrete type so
// that alternative implementations (mocks, proxies) can be substituted.
type Storage interface {
	// Users
	CreateUser(ctx context.Context, user *types.User) error
	GetUser(ctx context.Context, id int64) (*types.User, error)
	GetUserByUsername(ctx context.Context, username string) (*types.User, error)

	// Projects
	CreateProject(ctx context.Context, project *types.Project) error
	GetProject(ctx context.Context, id int64) (*types.Project, error)
	ListProjects(ctx context.Context) ([]*types.Project, error)
	DeleteProject(ctx context.Context, id int64) error
	ProjectMetrics(ctx context.Context, projectID int64) (*types.ProjectMetrics, error)

	// Role grants
	GrantRole(ctx context.Context, grant *types.RoleGrant) error
	RevokeRole(ctx context.Context, userID, projectID int64, role types.Role) error
	GetRoles(ctx context.Context, userID, projectID int64) (types.RoleSet, error)
	ListGrants(ctx context.Context, projectID int64) ([]*types.RoleGrant, error)

	// Status and priority catalogs
	ListStatuses(ctx context.Context) ([]*types.StatusDef, error)
	GetStatus(ctx context.Context, id int64) (*types.StatusDef, error)
	GetStatusByName(ctx context.Context, name types.StatusName) (*types.StatusDef, error)
	InitialStatus(ctx context.Context) (*types.StatusDef, error)
	ListPriorities(ctx context.Context) ([]*types.Priority, error)
	GetPriority(ctx context.Context, id int64) (*types.Priority, error)
	GetPriorityByName(ctx context.Context, name string) (*types.Priority, error)

	// Defects (reads; mutations go through Transaction)
	GetDefect(ctx context.Context, id int64) (*types.Defect, error)
	GetDefectByNumber(ctx context.Context, number string) (*types.Defect, error)
	SearchDefects(ctx context.Context, filter types.DefectFilter) ([]*types.Defect, error)

	// Comments (reads)
	GetComment(ctx context.Context, id int64) (*types.Comment, error)
	GetDefectComments(ctx context.Context, defectID int64) ([]*types.Comment, error)

	// Audit trail (reads; appends go through Transaction)
	GetAuditEntries(ctx context.Context, defectID int64, limit int) ([]*types.AuditEntry, error)
	SearchAudit(ctx context.Context, projectID int64, filterText string, limit int) ([]*types.AuditEntry, error)

	// Transactions
	RunInTransaction(ctx context.Context, fn func(tx Transaction) error) error

	// Lifecycle
	Close() error
}

// Transaction exposes the subset of storage operations that execute
// within a single database transaction. Every accepted defect or
// comment mutation and its audit entry must commit through the same
// Transaction; if the callback returns an error the whole unit of work
// is rolled back and no partial state is observable.
type Transaction interface {
	// Defect mutations
	CreateDefect(ctx context.Context, defect *types.Defect) error
	UpdateDefect(ctx context.Context, id, version int64, updates map[string]interface{}) error
	DeleteDefect(ctx context.Context, id int64) error
	GetDefect(ctx context.Context, id int64) (*types.Defect, error) // read-your-writes

	// NextDefectNumber atomically increments and returns the global
	// defect number sequence. Safe under concurrent creators: the
	// counter row is updated under the transaction's write lock.
	NextDefectNumber(ctx context.Context) (int64, error)

	// Comment mutations
	AddComment(ctx context.Context, comment *types.Comment) error
	DeleteComment(ctx context.Context, id int64) error
	GetComment(ctx context.Context, id int64) (*types.Comment, error)

	// Audit trail
	AppendAudit(ctx context.Context, entry *types.AuditEntry) error
}
