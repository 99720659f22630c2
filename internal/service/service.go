// Package service composes role resolution, policy checks, the defect
// lifecycle, and the audit trail into the tracker's operations.
//
// Every mutation runs as one unit of work: the guard check result is
// applied, the entity mutated, and the audit entry appended inside a
// single storage transaction. A failure at any step rolls back the
// whole unit.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sitedesk/punchlist/internal/audit"
	"github.com/sitedesk/punchlist/internal/debug"
	"github.com/sitedesk/punchlist/internal/lifecycle"
	"github.com/sitedesk/punchlist/internal/policy"
	"github.com/sitedesk/punchlist/internal/roles"
	"github.com/sitedesk/punchlist/internal/storage"
	"github.com/sitedesk/punchlist/internal/types"
)

// DefectService is the tracker's application core.
type DefectService struct {
	store    storage.Storage
	resolver *roles.Resolver
	trail    *audit.Trail
}

// New creates a DefectService over the given storage.
func New(store storage.Storage) *DefectService {
	return &DefectService{
		store:    store,
		resolver: roles.NewResolver(store),
		trail:    audit.NewTrail(store),
	}
}

// Store exposes the underlying storage for read-only callers (CLI
// listings, reports).
func (s *DefectService) Store() storage.Storage { return s.store }

// Trail exposes the audit read facade.
func (s *DefectService) Trail() *audit.Trail { return s.trail }

// CreateDefectRequest carries the fields for a new defect.
type CreateDefectRequest struct {
	ProjectID      int64
	Title          string
	Description    string
	Location       string
	PriorityName   string // defaults to "medium"
	AssigneeID     *int64
	DueDate        *time.Time
	EstimatedHours *float64
}

// CreateDefect creates a defect in the initial status, allocating its
// number atomically.
func (s *DefectService) CreateDefect(ctx context.Context, actor types.Actor, req CreateDefectRequest) (*types.Defect, error) {
	if _, err := s.store.GetProject(ctx, req.ProjectID); err != nil {
		return nil, err
	}
	roleSet, err := s.resolver.RolesOf(ctx, actor, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if d := policy.Check(policy.CreateDefect, policy.Input{Actor: actor, Roles: roleSet}); !d.Allowed {
		return nil, &types.ForbiddenError{Action: string(policy.CreateDefect), Reason: d.Reason}
	}

	initial, err := s.store.InitialStatus(ctx)
	if err != nil {
		return nil, err
	}
	priorityName := req.PriorityName
	if priorityName == "" {
		priorityName = "medium"
	}
	priority, err := s.store.GetPriorityByName(ctx, priorityName)
	if err != nil {
		if types.IsNotFound(err) {
			return nil, &types.ValidationError{Field: "priority", Reason: "unknown priority: " + priorityName}
		}
		return nil, err
	}
	if req.AssigneeID != nil {
		if _, err := s.store.GetUser(ctx, *req.AssigneeID); err != nil {
			return nil, err
		}
	}

	defect := &types.Defect{
		Title:          req.Title,
		Description:    req.Description,
		Location:       req.Location,
		ProjectID:      req.ProjectID,
		StatusID:       initial.ID,
		PriorityID:     priority.ID,
		ReporterID:     actor.UserID,
		AssigneeID:     req.AssigneeID,
		DueDate:        req.DueDate,
		EstimatedHours: req.EstimatedHours,
	}

	err = s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		number, err := lifecycle.AllocateNumber(ctx, tx, time.Now())
		if err != nil {
			return err
		}
		defect.Number = number
		if err := tx.CreateDefect(ctx, defect); err != nil {
			return err
		}
		title := defect.Title
		return tx.AppendAudit(ctx, &types.AuditEntry{
			DefectID:   defect.ID,
			UserID:     actor.UserID,
			FieldName:  "defect",
			NewValue:   &title,
			ChangeType: types.ChangeCreate,
		})
	})
	if err != nil {
		return nil, err
	}
	debug.Logf("created defect %s in project %d\n", defect.Number, defect.ProjectID)
	return defect, nil
}

// UpdateDefect applies non-status field changes. Guard-checked via the
// edit rule; one audit entry per field that actually changed.
func (s *DefectService) UpdateDefect(ctx context.Context, actor types.Actor, defectID int64, changes lifecycle.FieldChanges) (*types.Defect, error) {
	defect, status, roleSet, err := s.loadDefectContext(ctx, actor, defectID)
	if err != nil {
		return nil, err
	}
	if changes.AssigneeID != nil {
		if _, err := s.store.GetUser(ctx, *changes.AssigneeID); err != nil {
			return nil, err
		}
	}

	var updated *types.Defect
	err = s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		updated, err = lifecycle.UpdateFields(ctx, tx, defect, status, changes, actor, roleSet)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ChangeStatus transitions a defect to the named status.
func (s *DefectService) ChangeStatus(ctx context.Context, actor types.Actor, defectID int64, newStatus types.StatusName) (*types.Defect, error) {
	defect, from, roleSet, err := s.loadDefectContext(ctx, actor, defectID)
	if err != nil {
		return nil, err
	}
	to, err := s.store.GetStatusByName(ctx, newStatus)
	if err != nil {
		if types.IsNotFound(err) {
			return nil, &types.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status: %s", newStatus)}
		}
		return nil, err
	}

	var updated *types.Defect
	err = s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		updated, err = lifecycle.Transition(ctx, tx, defect, from, to, actor, roleSet)
		return err
	})
	if err != nil {
		return nil, err
	}
	debug.Logf("defect %s: %s -> %s\n", defect.Number, from.Name, to.Name)
	return updated, nil
}

// DeleteDefect removes a defect and its comments and audit trail.
// Superuser or supervisor only.
func (s *DefectService) DeleteDefect(ctx context.Context, actor types.Actor, defectID int64) error {
	defect, _, roleSet, err := s.loadDefectContext(ctx, actor, defectID)
	if err != nil {
		return err
	}
	if d := policy.Check(policy.DeleteDefect, policy.Input{Actor: actor, Roles: roleSet}); !d.Allowed {
		return &types.ForbiddenError{Action: string(policy.DeleteDefect), Reason: d.Reason}
	}
	return s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		return tx.DeleteDefect(ctx, defect.ID)
	})
}

// GetDefect returns a defect by ID.
func (s *DefectService) GetDefect(ctx context.Context, id int64) (*types.Defect, error) {
	return s.store.GetDefect(ctx, id)
}

// GetDefectByNumber returns a defect by its human-readable number.
func (s *DefectService) GetDefectByNumber(ctx context.Context, number string) (*types.Defect, error) {
	return s.store.GetDefectByNumber(ctx, number)
}

// ListDefects returns defects matching the filter, newest first.
func (s *DefectService) ListDefects(ctx context.Context, filter types.DefectFilter) ([]*types.Defect, error) {
	return s.store.SearchDefects(ctx, filter)
}

// AddComment adds a comment to a defect, guard-checked against the
// defect's assignment.
func (s *DefectService) AddComment(ctx context.Context, actor types.Actor, defectID int64, content string) (*types.Comment, error) {
	defect, _, roleSet, err := s.loadDefectContext(ctx, actor, defectID)
	if err != nil {
		return nil, err
	}
	d := policy.Check(policy.AddComment, policy.Input{
		Actor:      actor,
		Roles:      roleSet,
		AssigneeID: defect.AssigneeID,
	})
	if !d.Allowed {
		return nil, &types.ForbiddenError{Action: string(policy.AddComment), Reason: d.Reason}
	}

	comment := &types.Comment{DefectID: defect.ID, AuthorID: actor.UserID, Content: content}
	err = s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		if err := tx.AddComment(ctx, comment); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, &types.AuditEntry{
			DefectID:   defect.ID,
			UserID:     actor.UserID,
			FieldName:  "comment",
			NewValue:   &comment.Content,
			ChangeType: types.ChangeComment,
		})
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// GetComments lists a defect's comments, oldest first. View access is
// guard-checked; engineers without the manager role only see comments
// on their own or unassigned defects.
func (s *DefectService) GetComments(ctx context.Context, actor types.Actor, defectID int64) ([]*types.Comment, error) {
	defect, _, roleSet, err := s.loadDefectContext(ctx, actor, defectID)
	if err != nil {
		return nil, err
	}
	d := policy.Check(policy.ViewComment, policy.Input{
		Actor:      actor,
		Roles:      roleSet,
		AssigneeID: defect.AssigneeID,
	})
	if !d.Allowed {
		return nil, &types.ForbiddenError{Action: string(policy.ViewComment), Reason: d.Reason}
	}
	return s.store.GetDefectComments(ctx, defect.ID)
}

// DeleteComment removes a comment from a defect. Engineers may only
// delete their own; managers may delete any in the project.
func (s *DefectService) DeleteComment(ctx context.Context, actor types.Actor, defectID, commentID int64) error {
	defect, _, roleSet, err := s.loadDefectContext(ctx, actor, defectID)
	if err != nil {
		return err
	}
	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.DefectID != defect.ID {
		return &types.NotFoundError{Kind: "comment", ID: commentID}
	}
	d := policy.Check(policy.DeleteComment, policy.Input{
		Actor:           actor,
		Roles:           roleSet,
		AssigneeID:      defect.AssigneeID,
		CommentAuthorID: comment.AuthorID,
	})
	if !d.Allowed {
		return &types.ForbiddenError{Action: string(policy.DeleteComment), Reason: d.Reason}
	}

	return s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		if err := tx.DeleteComment(ctx, comment.ID); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, &types.AuditEntry{
			DefectID:   defect.ID,
			UserID:     actor.UserID,
			FieldName:  "comment",
			OldValue:   &comment.Content,
			ChangeType: types.ChangeDelete,
		})
	})
}

// ListAudit returns rendered audit entries for a project, newest first,
// optionally filtered by a case-insensitive substring over actor name,
// defect title, and field name. Requires some role in the project.
func (s *DefectService) ListAudit(ctx context.Context, actor types.Actor, projectID int64, filterText string, limit int) ([]audit.Rendered, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	ok, err := s.resolver.HasAnyRole(ctx, actor, projectID,
		types.RoleEngineer, types.RoleManager, types.RoleSupervisor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ForbiddenError{Action: "list_audit", Reason: "no role in this project"}
	}
	return s.trail.Search(ctx, projectID, filterText, limit)
}

// History returns rendered audit entries for one defect, newest first.
func (s *DefectService) History(ctx context.Context, actor types.Actor, defectID int64, limit int) ([]audit.Rendered, error) {
	defect, err := s.store.GetDefect(ctx, defectID)
	if err != nil {
		return nil, err
	}
	ok, err := s.resolver.HasAnyRole(ctx, actor, defect.ProjectID,
		types.RoleEngineer, types.RoleManager, types.RoleSupervisor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ForbiddenError{Action: "list_audit", Reason: "no role in this project"}
	}
	return s.trail.History(ctx, defectID, limit)
}

// Metrics returns aggregate defect counts for a project.
func (s *DefectService) Metrics(ctx context.Context, actor types.Actor, projectID int64) (*types.ProjectMetrics, error) {
	ok, err := s.resolver.HasAnyRole(ctx, actor, projectID,
		types.RoleEngineer, types.RoleManager, types.RoleSupervisor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ForbiddenError{Action: "project_metrics", Reason: "no role in this project"}
	}
	return s.store.ProjectMetrics(ctx, projectID)
}

// loadDefectContext fetches a defect, its status definition, and the
// actor's roles in its project.
func (s *DefectService) loadDefectContext(ctx context.Context, actor types.Actor, defectID int64) (*types.Defect, *types.StatusDef, types.RoleSet, error) {
	defect, err := s.store.GetDefect(ctx, defectID)
	if err != nil {
		return nil, nil, nil, err
	}
	status, err := s.store.GetStatus(ctx, defect.StatusID)
	if err != nil {
		return nil, nil, nil, err
	}
	roleSet, err := s.resolver.RolesOf(ctx, actor, defect.ProjectID)
	if err != nil {
		return nil, nil, nil, err
	}
	return defect, status, roleSet, nil
}
