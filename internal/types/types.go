// Package types defines core data structures for the punchlist defect tracker.
package types

import (
	"fmt"
	"strings"
	"time"
)

// Role is a project-scoped role name. The same user may hold different
// roles in different projects; grants live in the role_grants table.
type Role string

// Project role constants
const (
	RoleEngineer   Role = "engineer"
	RoleManager    Role = "manager"
	RoleSupervisor Role = "supervisor"
)

// IsValid checks if the role name is one of the known roles
func (r Role) IsValid() bool {
	switch r {
	case RoleEngineer, RoleManager, RoleSupervisor:
		return true
	}
	return false
}

// RoleSet is the set of roles a user holds within one project.
type RoleSet map[Role]bool

// Has returns true if the set contains the given role.
func (s RoleSet) Has(r Role) bool { return s[r] }

// HasAny returns true if the set intersects candidates.
func (s RoleSet) HasAny(candidates ...Role) bool {
	for _, r := range candidates {
		if s[r] {
			return true
		}
	}
	return false
}

// Only returns true if the set is non-empty and contains no role other
// than the given one. Used for the supervisor-only and engineer-only
// policy rules.
func (s RoleSet) Only(r Role) bool {
	if len(s) == 0 || !s[r] {
		return false
	}
	for held := range s {
		if held != r {
			return false
		}
	}
	return true
}

// StatusName identifies a defect lifecycle status by its stable name.
// The full definition (order, initial/final flags) lives in the
// defect_statuses table; these constants cover the seeded workflow.
type StatusName string

// Seeded lifecycle status names
const (
	StatusOpen       StatusName = "open"
	StatusInProgress StatusName = "in_progress"
	StatusReview     StatusName = "review"
	StatusResolved   StatusName = "resolved"
	StatusClosed     StatusName = "closed"
	StatusRejected   StatusName = "rejected"
)

// ProjectStatus represents the state of a construction project
type ProjectStatus string

// Project status constants
const (
	ProjectPlanning  ProjectStatus = "planning"
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectCancelled ProjectStatus = "cancelled"
)

// IsValid checks if the project status value is valid
func (p ProjectStatus) IsValid() bool {
	switch p {
	case ProjectPlanning, ProjectActive, ProjectCompleted, ProjectCancelled:
		return true
	}
	return false
}

// ChangeType categorizes audit trail entries
type ChangeType string

// Change type constants for the audit trail
const (
	ChangeCreate       ChangeType = "create"
	ChangeUpdate       ChangeType = "update"
	ChangeDelete       ChangeType = "delete"
	ChangeStatusChange ChangeType = "status_change"
	ChangeComment      ChangeType = "comment"
)

// IsValid checks if the change type value is valid
func (c ChangeType) IsValid() bool {
	switch c {
	case ChangeCreate, ChangeUpdate, ChangeDelete, ChangeStatusChange, ChangeComment:
		return true
	}
	return false
}

// Actor is the identity context supplied per call by the authentication
// layer. The core never verifies credentials itself.
type Actor struct {
	UserID      int64 `json:"user_id"`
	IsSuperuser bool  `json:"is_superuser"`
}

// User represents an account known to the tracker
type User struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email,omitempty"`
	FirstName   string     `json:"first_name,omitempty"`
	LastName    string     `json:"last_name,omitempty"`
	IsActive    bool       `json:"is_active"`
	IsSuperuser bool       `json:"is_superuser"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
}

// DisplayName returns "First Last" when a first name is set, falling
// back to the username.
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return strings.TrimSpace(u.FirstName + " " + u.LastName)
	}
	return u.Username
}

// Project represents an engineering/construction project
type Project struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Status      ProjectStatus `json:"status"`
	Address     string        `json:"address,omitempty"`
	ManagerID   *int64        `json:"manager_id,omitempty"`
	IsActive    bool          `json:"is_active"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Validate checks if the project has valid field values
func (p *Project) Validate() error {
	if len(p.Name) == 0 {
		return &ValidationError{Field: "name", Reason: "name is required"}
	}
	if len(p.Name) > 200 {
		return &ValidationError{Field: "name", Reason: fmt.Sprintf("name must be 200 characters or less (got %d)", len(p.Name))}
	}
	if !p.Status.IsValid() {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("invalid project status: %s", p.Status)}
	}
	return nil
}

// RoleGrant ties one user to one role within one project. The
// (user, project, role) triple is unique.
type RoleGrant struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ProjectID int64     `json:"project_id"`
	Role      Role      `json:"role"`
	GrantedBy *int64    `json:"granted_by,omitempty"`
	GrantedAt time.Time `json:"granted_at"`
}

// StatusDef is one row of the defect status catalog. Exactly one status
// is marked initial; any number may be final.
type StatusDef struct {
	ID          int64      `json:"id"`
	Name        StatusName `json:"name"`
	DisplayName string     `json:"display_name"`
	OrderIndex  int        `json:"order_index"`
	IsInitial   bool       `json:"is_initial"`
	IsFinal     bool       `json:"is_final"`
}

// Priority is one row of the priority catalog
type Priority struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	DisplayName  string `json:"display_name"`
	UrgencyLevel int    `json:"urgency_level"`
}

// Validate checks the urgency level range
func (p *Priority) Validate() error {
	if p.UrgencyLevel < 1 || p.UrgencyLevel > 10 {
		return &ValidationError{Field: "urgency_level", Reason: fmt.Sprintf("urgency level must be between 1 and 10 (got %d)", p.UrgencyLevel)}
	}
	if p.Name == "" {
		return &ValidationError{Field: "name", Reason: "name is required"}
	}
	return nil
}

// Defect represents a tracked construction defect
type Defect struct {
	ID             int64      `json:"id"`
	Number         string     `json:"number"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Location       string     `json:"location,omitempty"`
	ProjectID      int64      `json:"project_id"`
	StatusID       int64      `json:"status_id"`
	PriorityID     int64      `json:"priority_id"`
	ReporterID     int64      `json:"reporter_id"`
	AssigneeID     *int64     `json:"assignee_id,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	EstimatedHours *float64   `json:"estimated_hours,omitempty"`
	ActualHours    *float64   `json:"actual_hours,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`

	// Version is bumped on every accepted update; concurrent editors of
	// the same defect race on it and the loser gets a Conflict.
	Version int64 `json:"-"`
}

// Validate checks if the defect has valid field values
func (d *Defect) Validate() error {
	if len(d.Title) == 0 {
		return &ValidationError{Field: "title", Reason: "title is required"}
	}
	if len(d.Title) > 255 {
		return &ValidationError{Field: "title", Reason: fmt.Sprintf("title must be 255 characters or less (got %d)", len(d.Title))}
	}
	if len(d.Description) == 0 {
		return &ValidationError{Field: "description", Reason: "description is required"}
	}
	if d.ProjectID == 0 {
		return &ValidationError{Field: "project_id", Reason: "project is required"}
	}
	if d.EstimatedHours != nil && *d.EstimatedHours <= 0 {
		return &ValidationError{Field: "estimated_hours", Reason: "estimated hours must be positive"}
	}
	if d.ActualHours != nil && *d.ActualHours <= 0 {
		return &ValidationError{Field: "actual_hours", Reason: "actual hours must be positive"}
	}
	return nil
}

// Comment represents a comment on a defect
type Comment struct {
	ID        int64     `json:"id"`
	DefectID  int64     `json:"defect_id"`
	AuthorID  int64     `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuditEntry is an immutable record of one field-level change to a
// defect or its comments. Entries are append-only: once written they
// are never updated or deleted, and each accepted mutation commits
// exactly one entry in the same transaction.
type AuditEntry struct {
	ID         int64      `json:"id"`
	DefectID   int64      `json:"defect_id"`
	UserID     int64      `json:"user_id"`
	FieldName  string     `json:"field_name"`
	OldValue   *string    `json:"old_value,omitempty"`
	NewValue   *string    `json:"new_value,omitempty"`
	ChangeType ChangeType `json:"change_type"`
	CreatedAt  time.Time  `json:"created_at"`
}

// DefectFilter is used to filter defect queries
type DefectFilter struct {
	ProjectID *int64
	Status    string // status name, e.g. "open"
	Priority  string // priority name, e.g. "critical"
	Search    string // case-insensitive substring over title/description
	Assignee  *int64
	Limit     int
	Offset    int
}

// ProjectMetrics provides aggregate defect counts for one project
type ProjectMetrics struct {
	TotalDefects int `json:"total_defects"`
	InProgress   int `json:"in_progress"`
	Overdue      int `json:"overdue"`
}
