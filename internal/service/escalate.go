package service

import (
	"context"
	"strconv"
	"time"

	"github.com/sitedesk/punchlist/internal/debug"
	"github.com/sitedesk/punchlist/internal/storage"
	"github.com/sitedesk/punchlist/internal/types"
)

// EscalateOverdue raises every overdue, non-final defect in a project
// to critical priority. An operational sweep, not a user action: the
// actor must be a superuser. Each escalated defect gets its own audit
// entry. Returns the number of defects escalated.
func (s *DefectService) EscalateOverdue(ctx context.Context, actor types.Actor, projectID int64) (int, error) {
	if !actor.IsSuperuser {
		return 0, &types.ForbiddenError{Action: "escalate_overdue", Reason: "superuser required"}
	}
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return 0, err
	}
	critical, err := s.store.GetPriorityByName(ctx, "critical")
	if err != nil {
		return 0, err
	}
	statuses, err := s.store.ListStatuses(ctx)
	if err != nil {
		return 0, err
	}
	finals := map[int64]bool{}
	for _, st := range statuses {
		if st.IsFinal {
			finals[st.ID] = true
		}
	}

	defects, err := s.store.SearchDefects(ctx, types.DefectFilter{ProjectID: &projectID})
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()

	var escalated int
	for _, d := range defects {
		if d.DueDate == nil || !d.DueDate.Before(now) {
			continue
		}
		if finals[d.StatusID] || d.PriorityID == critical.ID {
			continue
		}
		d := d
		err := s.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
			if err := tx.UpdateDefect(ctx, d.ID, d.Version, map[string]interface{}{
				"priority_id": critical.ID,
			}); err != nil {
				return err
			}
			oldVal := strconv.FormatInt(d.PriorityID, 10)
			newVal := strconv.FormatInt(critical.ID, 10)
			return tx.AppendAudit(ctx, &types.AuditEntry{
				DefectID:   d.ID,
				UserID:     actor.UserID,
				FieldName:  "priority_id",
				OldValue:   &oldVal,
				NewValue:   &newVal,
				ChangeType: types.ChangeUpdate,
			})
		})
		if err != nil {
			// A concurrent edit bumped the version; skip this defect
			// rather than failing the sweep.
			if types.IsConflict(err) {
				debug.Logf("escalation skipped %s: %v\n", d.Number, err)
				continue
			}
			return escalated, err
		}
		escalated++
	}
	return escalated, nil
}
