// Package lifecycle owns defect status transitions, closed-at
// bookkeeping, field updates, and defect number allocation.
//
// All mutating functions operate on an open storage.Transaction so the
// guard check, the mutation, and its audit entry commit or roll back as
// one unit.
package lifecycle

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sitedesk/punchlist/internal/policy"
	"github.com/sitedesk/punchlist/internal/storage"
	"github.com/sitedesk/punchlist/internal/types"
)

// FormatNumber renders a defect number. The sequence is global and
// monotonically increasing across the whole system; the year is purely
// cosmetic and numbers do not reset at year boundaries.
func FormatNumber(year int, seq int64) string {
	return fmt.Sprintf("DEF-%d-%04d", year, seq)
}

// AllocateNumber draws the next defect number inside tx. The counter
// increment happens under the transaction's write lock, so concurrent
// creators are serialized and never observe the same sequence value. A
// rolled-back creation also rolls back the increment, leaving no gaps.
func AllocateNumber(ctx context.Context, tx storage.Transaction, now time.Time) (string, error) {
	seq, err := tx.NextDefectNumber(ctx)
	if err != nil {
		return "", fmt.Errorf("allocate defect number: %w", err)
	}
	return FormatNumber(now.UTC().Year(), seq), nil
}

// Transition moves a defect from its current status to a new one.
//
// The guard is evaluated first; on deny nothing is written. Moving into
// a final status stamps closed_at, exactly once: a defect that was
// closed before keeps its original closed_at even if it somehow reaches
// a final status again. Transitions out of a final status are refused
// with a Conflict. A transition to the current status is a no-op and
// writes no audit entry.
func Transition(ctx context.Context, tx storage.Transaction, defect *types.Defect, from, to *types.StatusDef, actor types.Actor, roleSet types.RoleSet) (*types.Defect, error) {
	decision := policy.Check(policy.ChangeStatus, policy.Input{
		Actor:      actor,
		Roles:      roleSet,
		Status:     from.Name,
		AssigneeID: defect.AssigneeID,
	})
	if !decision.Allowed {
		return nil, &types.ForbiddenError{Action: string(policy.ChangeStatus), Reason: decision.Reason}
	}

	if to.ID == from.ID {
		return defect, nil
	}
	if from.IsFinal {
		return nil, &types.ConflictError{
			Reason: fmt.Sprintf("defect is %s; reopening is not supported", from.Name),
		}
	}

	updates := map[string]interface{}{"status_id": to.ID}
	if to.IsFinal && defect.ClosedAt == nil {
		updates["closed_at"] = time.Now().UTC()
	}
	if err := tx.UpdateDefect(ctx, defect.ID, defect.Version, updates); err != nil {
		return nil, err
	}

	oldVal := strconv.FormatInt(from.ID, 10)
	newVal := strconv.FormatInt(to.ID, 10)
	if err := tx.AppendAudit(ctx, &types.AuditEntry{
		DefectID:   defect.ID,
		UserID:     actor.UserID,
		FieldName:  "status",
		OldValue:   &oldVal,
		NewValue:   &newVal,
		ChangeType: types.ChangeStatusChange,
	}); err != nil {
		return nil, err
	}

	return tx.GetDefect(ctx, defect.ID)
}

// FieldChanges carries an update request for a defect's non-status
// fields. Nil pointers mean "leave unchanged"; the Clear flags reset
// nullable fields.
type FieldChanges struct {
	Title          *string
	Description    *string
	Location       *string
	PriorityID     *int64
	AssigneeID     *int64
	ClearAssignee  bool
	DueDate        *time.Time
	ClearDueDate   bool
	EstimatedHours *float64
	ActualHours    *float64
}

// fieldChange is one resolved field delta, ready for audit.
type fieldChange struct {
	column   string
	value    interface{}
	oldValue *string
	newValue *string
}

// UpdateFields applies non-status field changes to a defect.
//
// The guard is evaluated first against the defect's current status.
// Unchanged fields are skipped; every field that actually changes gets
// its own audit entry, all committed with the mutation.
func UpdateFields(ctx context.Context, tx storage.Transaction, defect *types.Defect, status *types.StatusDef, changes FieldChanges, actor types.Actor, roleSet types.RoleSet) (*types.Defect, error) {
	decision := policy.Check(policy.EditDefect, policy.Input{
		Actor:      actor,
		Roles:      roleSet,
		Status:     status.Name,
		AssigneeID: defect.AssigneeID,
	})
	if !decision.Allowed {
		return nil, &types.ForbiddenError{Action: string(policy.EditDefect), Reason: decision.Reason}
	}

	deltas := resolveChanges(defect, changes)
	if len(deltas) == 0 {
		return defect, nil
	}

	updates := make(map[string]interface{}, len(deltas))
	for _, d := range deltas {
		updates[d.column] = d.value
	}
	if err := tx.UpdateDefect(ctx, defect.ID, defect.Version, updates); err != nil {
		return nil, err
	}

	for _, d := range deltas {
		if err := tx.AppendAudit(ctx, &types.AuditEntry{
			DefectID:   defect.ID,
			UserID:     actor.UserID,
			FieldName:  d.column,
			OldValue:   d.oldValue,
			NewValue:   d.newValue,
			ChangeType: types.ChangeUpdate,
		}); err != nil {
			return nil, err
		}
	}

	return tx.GetDefect(ctx, defect.ID)
}

// resolveChanges diffs the requested changes against the defect's
// current values, dropping no-ops.
func resolveChanges(defect *types.Defect, changes FieldChanges) []fieldChange {
	var deltas []fieldChange

	if changes.Title != nil && *changes.Title != defect.Title {
		deltas = append(deltas, fieldChange{"title", *changes.Title, strVal(defect.Title), strVal(*changes.Title)})
	}
	if changes.Description != nil && *changes.Description != defect.Description {
		deltas = append(deltas, fieldChange{"description", *changes.Description, strVal(defect.Description), strVal(*changes.Description)})
	}
	if changes.Location != nil && *changes.Location != defect.Location {
		deltas = append(deltas, fieldChange{"location", *changes.Location, strVal(defect.Location), strVal(*changes.Location)})
	}
	if changes.PriorityID != nil && *changes.PriorityID != defect.PriorityID {
		deltas = append(deltas, fieldChange{"priority_id", *changes.PriorityID,
			int64Val(defect.PriorityID), int64Val(*changes.PriorityID)})
	}

	switch {
	case changes.ClearAssignee:
		if defect.AssigneeID != nil {
			deltas = append(deltas, fieldChange{"assignee_id", nil, int64PtrVal(defect.AssigneeID), nil})
		}
	case changes.AssigneeID != nil:
		if defect.AssigneeID == nil || *defect.AssigneeID != *changes.AssigneeID {
			deltas = append(deltas, fieldChange{"assignee_id", *changes.AssigneeID,
				int64PtrVal(defect.AssigneeID), int64Val(*changes.AssigneeID)})
		}
	}

	switch {
	case changes.ClearDueDate:
		if defect.DueDate != nil {
			deltas = append(deltas, fieldChange{"due_date", nil, timePtrVal(defect.DueDate), nil})
		}
	case changes.DueDate != nil:
		if defect.DueDate == nil || !defect.DueDate.Equal(*changes.DueDate) {
			deltas = append(deltas, fieldChange{"due_date", changes.DueDate.UTC(),
				timePtrVal(defect.DueDate), timePtrVal(changes.DueDate)})
		}
	}

	if changes.EstimatedHours != nil && !floatEqual(defect.EstimatedHours, changes.EstimatedHours) {
		deltas = append(deltas, fieldChange{"estimated_hours", *changes.EstimatedHours,
			floatPtrVal(defect.EstimatedHours), floatPtrVal(changes.EstimatedHours)})
	}
	if changes.ActualHours != nil && !floatEqual(defect.ActualHours, changes.ActualHours) {
		deltas = append(deltas, fieldChange{"actual_hours", *changes.ActualHours,
			floatPtrVal(defect.ActualHours), floatPtrVal(changes.ActualHours)})
	}

	return deltas
}

func strVal(s string) *string { return &s }

func int64Val(v int64) *string {
	s := strconv.FormatInt(v, 10)
	return &s
}

func int64PtrVal(v *int64) *string {
	if v == nil {
		return nil
	}
	return int64Val(*v)
}

func timePtrVal(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func floatPtrVal(v *float64) *string {
	if v == nil {
		return nil
	}
	s := strconv.FormatFloat(*v, 'f', -1, 64)
	return &s
}

func floatEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
