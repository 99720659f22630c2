package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sitedesk/punchlist/internal/lifecycle"
	"github.com/sitedesk/punchlist/internal/storage/sqlite"
	"github.com/sitedesk/punchlist/internal/types"
)

type fixture struct {
	store   *sqlite.Store
	svc     *DefectService
	project *types.Project

	superuser  types.Actor
	engineer   types.Actor
	engineer2  types.Actor
	manager    types.Actor
	supervisor types.Actor
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store, err := sqlite.New(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	f := &fixture{store: store, svc: New(store)}

	newUser := func(username string, super bool) types.Actor {
		u := &types.User{Username: username, IsActive: true, IsSuperuser: super}
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatalf("failed to create user %s: %v", username, err)
		}
		return types.Actor{UserID: u.ID, IsSuperuser: super}
	}
	f.superuser = newUser("root", true)
	f.engineer = newUser("eve", false)
	f.engineer2 = newUser("frank", false)
	f.manager = newUser("mallory", false)
	f.supervisor = newUser("sam", false)

	f.project = &types.Project{Name: "Tower A", IsActive: true}
	if err := store.CreateProject(ctx, f.project); err != nil {
		t.Fatalf("failed to create project: %v", err)
	}

	grants := []struct {
		actor types.Actor
		role  types.Role
	}{
		{f.engineer, types.RoleEngineer},
		{f.engineer2, types.RoleEngineer},
		{f.manager, types.RoleManager},
		{f.supervisor, types.RoleSupervisor},
	}
	for _, g := range grants {
		err := store.GrantRole(ctx, &types.RoleGrant{
			UserID: g.actor.UserID, ProjectID: f.project.ID, Role: g.role,
		})
		if err != nil {
			t.Fatalf("failed to grant %s: %v", g.role, err)
		}
	}
	return f
}

func (f *fixture) createDefect(t *testing.T, actor types.Actor, title string) *types.Defect {
	t.Helper()
	d, err := f.svc.CreateDefect(context.Background(), actor, CreateDefectRequest{
		ProjectID:   f.project.ID,
		Title:       title,
		Description: "found during inspection",
	})
	if err != nil {
		t.Fatalf("failed to create defect: %v", err)
	}
	return d
}

func (f *fixture) auditCount(t *testing.T, defectID int64) int {
	t.Helper()
	entries, err := f.store.GetAuditEntries(context.Background(), defectID, 0)
	if err != nil {
		t.Fatalf("failed to get audit entries: %v", err)
	}
	return len(entries)
}

func TestCreateDefectWritesAuditEntry(t *testing.T) {
	f := setup(t)
	d := f.createDefect(t, f.engineer, "crack in wall")

	if d.Number == "" {
		t.Error("expected defect number allocated")
	}
	if n := f.auditCount(t, d.ID); n != 1 {
		t.Errorf("expected 1 audit entry after create, got %d", n)
	}
}

// A supervisor-only actor can never create or edit, in any status.
func TestSupervisorOnlyNeverCreatesOrEdits(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.CreateDefect(ctx, f.supervisor, CreateDefectRequest{
		ProjectID: f.project.ID, Title: "x", Description: "y",
	})
	if !types.IsForbidden(err) {
		t.Fatalf("expected forbidden create, got %v", err)
	}

	d := f.createDefect(t, f.engineer, "crack in wall")
	chain := []types.StatusName{
		types.StatusInProgress, types.StatusReview, types.StatusResolved, types.StatusClosed,
	}
	newTitle := "nope"
	for {
		_, err := f.svc.UpdateDefect(ctx, f.supervisor, d.ID, lifecycle.FieldChanges{Title: &newTitle})
		if !types.IsForbidden(err) {
			t.Fatalf("expected forbidden edit in status, got %v", err)
		}
		if len(chain) == 0 {
			break
		}
		if _, err := f.svc.ChangeStatus(ctx, f.manager, d.ID, chain[0]); err != nil {
			t.Fatalf("setup transition to %s failed: %v", chain[0], err)
		}
		chain = chain[1:]
	}
}

func TestManagerStatusChainAndEngineerReviewDenied(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	d1 := f.createDefect(t, f.engineer, "crack in wall")
	for _, st := range []types.StatusName{
		types.StatusReview, types.StatusResolved, types.StatusClosed,
	} {
		if _, err := f.svc.ChangeStatus(ctx, f.manager, d1.ID, st); err != nil {
			t.Fatalf("manager transition to %s failed: %v", st, err)
		}
	}

	// A different defect still in review: engineer cannot move it
	d2 := f.createDefect(t, f.engineer, "leaking pipe")
	if _, err := f.svc.ChangeStatus(ctx, f.manager, d2.ID, types.StatusReview); err != nil {
		t.Fatalf("setup transition failed: %v", err)
	}
	before := f.auditCount(t, d2.ID)

	_, err := f.svc.ChangeStatus(ctx, f.engineer, d2.ID, types.StatusResolved)
	if !types.IsForbidden(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	got, _ := f.store.GetDefect(ctx, d2.ID)
	st, _ := f.store.GetStatus(ctx, got.StatusID)
	if st.Name != types.StatusReview {
		t.Errorf("defect must remain in review, got %s", st.Name)
	}
	if after := f.auditCount(t, d2.ID); after != before {
		t.Errorf("denied transition must not add audit entries: before=%d after=%d", before, after)
	}
}

func TestClosedDefectIsImmutable(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	d := f.createDefect(t, f.engineer, "crack in wall")
	if _, err := f.svc.ChangeStatus(ctx, f.manager, d.ID, types.StatusClosed); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	newTitle := "edit after close"
	_, err := f.svc.UpdateDefect(ctx, f.manager, d.ID, lifecycle.FieldChanges{Title: &newTitle})
	if !types.IsForbidden(err) {
		t.Errorf("expected forbidden edit on closed defect, got %v", err)
	}

	// Superuser included
	_, err = f.svc.UpdateDefect(ctx, f.superuser, d.ID, lifecycle.FieldChanges{Title: &newTitle})
	if !types.IsForbidden(err) {
		t.Errorf("expected forbidden even for superuser, got %v", err)
	}
}

// Engineer E assigned to D comments; unassigned engineer F is refused
// with no audit trace.
func TestEngineerCommentAssignmentScenario(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	d := f.createDefect(t, f.engineer, "crack in wall")
	if _, err := f.svc.UpdateDefect(ctx, f.manager, d.ID, lifecycle.FieldChanges{
		AssigneeID: &f.engineer.UserID,
	}); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	before := f.auditCount(t, d.ID)

	c, err := f.svc.AddComment(ctx, f.engineer, d.ID, "started repair")
	if err != nil {
		t.Fatalf("assigned engineer comment failed: %v", err)
	}
	if c.ID == 0 {
		t.Error("expected comment persisted")
	}
	if after := f.auditCount(t, d.ID); after != before+1 {
		t.Errorf("expected exactly one new audit entry, got %d", after-before)
	}

	mid := f.auditCount(t, d.ID)
	_, err = f.svc.AddComment(ctx, f.engineer2, d.ID, "me too")
	if !types.IsForbidden(err) {
		t.Fatalf("expected forbidden for unassigned engineer, got %v", err)
	}
	if after := f.auditCount(t, d.ID); after != mid {
		t.Errorf("denied comment must not add audit entries")
	}
}

func TestCommentViewAndDelete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	d := f.createDefect(t, f.engineer, "crack in wall")
	mine, err := f.svc.AddComment(ctx, f.engineer, d.ID, "my note")
	if err != nil {
		t.Fatalf("comment failed: %v", err)
	}
	theirs, err := f.svc.AddComment(ctx, f.manager, d.ID, "manager note")
	if err != nil {
		t.Fatalf("comment failed: %v", err)
	}

	// Supervisor can view but not add
	comments, err := f.svc.GetComments(ctx, f.supervisor, d.ID)
	if err != nil {
		t.Fatalf("supervisor view failed: %v", err)
	}
	if len(comments) != 2 {
		t.Errorf("expected 2 comments, got %d", len(comments))
	}
	if _, err := f.svc.AddComment(ctx, f.supervisor, d.ID, "nope"); !types.IsForbidden(err) {
		t.Errorf("expected forbidden supervisor comment, got %v", err)
	}

	// Engineer deletes own, not manager's
	if err := f.svc.DeleteComment(ctx, f.engineer, d.ID, theirs.ID); !types.IsForbidden(err) {
		t.Errorf("expected forbidden deleting someone else's comment, got %v", err)
	}
	if err := f.svc.DeleteComment(ctx, f.engineer, d.ID, mine.ID); err != nil {
		t.Errorf("engineer deleting own comment failed: %v", err)
	}
	// Manager deletes anyone's
	if err := f.svc.DeleteComment(ctx, f.manager, d.ID, theirs.ID); err != nil {
		t.Errorf("manager delete failed: %v", err)
	}

	comments, _ = f.store.GetDefectComments(ctx, d.ID)
	if len(comments) != 0 {
		t.Errorf("expected all comments deleted, got %d", len(comments))
	}
}

func TestDeleteDefectPermissions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	d := f.createDefect(t, f.engineer, "crack in wall")
	if err := f.svc.DeleteDefect(ctx, f.engineer, d.ID); !types.IsForbidden(err) {
		t.Errorf("expected forbidden for engineer, got %v", err)
	}
	if err := f.svc.DeleteDefect(ctx, f.manager, d.ID); !types.IsForbidden(err) {
		t.Errorf("expected forbidden for manager, got %v", err)
	}
	if err := f.svc.DeleteDefect(ctx, f.supervisor, d.ID); err != nil {
		t.Errorf("supervisor delete failed: %v", err)
	}
	if _, err := f.store.GetDefect(ctx, d.ID); !types.IsNotFound(err) {
		t.Errorf("expected defect gone, got %v", err)
	}

	d2 := f.createDefect(t, f.engineer, "leaking pipe")
	if err := f.svc.DeleteDefect(ctx, f.superuser, d2.ID); err != nil {
		t.Errorf("superuser delete failed: %v", err)
	}
}

// Two concurrent conflicting updates: exactly one wins, the loser gets
// a Conflict.
func TestConcurrentUpdateFieldsConflict(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	d := f.createDefect(t, f.engineer, "crack in wall")

	titles := []string{"east wall crack", "west wall crack"}
	results := make([]error, 2)
	var g errgroup.Group
	for i := 0; i < 2; i++ {
		i := i
		g.Go(func() error {
			_, err := f.svc.UpdateDefect(ctx, f.manager, d.ID, lifecycle.FieldChanges{Title: &titles[i]})
			results[i] = err
			return nil
		})
	}
	_ = g.Wait()

	var wins, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case types.IsConflict(err):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != 1 {
		t.Errorf("expected one winner and one conflict, got wins=%d conflicts=%d", wins, conflicts)
	}
}

func TestListAuditRenders(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	d := f.createDefect(t, f.engineer, "crack in wall")
	if _, err := f.svc.ChangeStatus(ctx, f.manager, d.ID, types.StatusInProgress); err != nil {
		t.Fatalf("transition failed: %v", err)
	}

	entries, err := f.svc.ListAudit(ctx, f.manager, f.project.ID, "", 0)
	if err != nil {
		t.Fatalf("list audit failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries (create + status), got %d", len(entries))
	}
	// Newest first: the status change leads
	if entries[0].Text != "mallory changed status from Open to In Progress" {
		t.Errorf("unexpected rendering: %q", entries[0].Text)
	}

	// Filter by field name
	entries, err = f.svc.ListAudit(ctx, f.manager, f.project.ID, "status", 0)
	if err != nil {
		t.Fatalf("filtered list failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 filtered entry, got %d", len(entries))
	}

	// An actor with no role in the project is refused
	outsider := &types.User{Username: "oscar", IsActive: true}
	if err := f.store.CreateUser(ctx, outsider); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	_, err = f.svc.ListAudit(ctx, types.Actor{UserID: outsider.ID}, f.project.ID, "", 0)
	if !types.IsForbidden(err) {
		t.Errorf("expected forbidden, got %v", err)
	}
}

func TestEscalateOverdue(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	past := time.Now().UTC().Add(-72 * time.Hour)
	future := time.Now().UTC().Add(72 * time.Hour)

	overdue := f.createDefect(t, f.engineer, "overdue defect")
	if _, err := f.svc.UpdateDefect(ctx, f.manager, overdue.ID, lifecycle.FieldChanges{DueDate: &past}); err != nil {
		t.Fatalf("set due date failed: %v", err)
	}
	onTime := f.createDefect(t, f.engineer, "on-time defect")
	if _, err := f.svc.UpdateDefect(ctx, f.manager, onTime.ID, lifecycle.FieldChanges{DueDate: &future}); err != nil {
		t.Fatalf("set due date failed: %v", err)
	}
	closedLate := f.createDefect(t, f.engineer, "closed late defect")
	if _, err := f.svc.UpdateDefect(ctx, f.manager, closedLate.ID, lifecycle.FieldChanges{DueDate: &past}); err != nil {
		t.Fatalf("set due date failed: %v", err)
	}
	if _, err := f.svc.ChangeStatus(ctx, f.manager, closedLate.ID, types.StatusClosed); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if _, err := f.svc.EscalateOverdue(ctx, f.manager, f.project.ID); !types.IsForbidden(err) {
		t.Fatalf("expected forbidden for non-superuser, got %v", err)
	}

	n, err := f.svc.EscalateOverdue(ctx, f.superuser, f.project.ID)
	if err != nil {
		t.Fatalf("escalation failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 escalated defect, got %d", n)
	}

	critical, _ := f.store.GetPriorityByName(ctx, "critical")
	got, _ := f.store.GetDefect(ctx, overdue.ID)
	if got.PriorityID != critical.ID {
		t.Error("expected overdue defect escalated to critical")
	}
	got, _ = f.store.GetDefect(ctx, onTime.ID)
	if got.PriorityID == critical.ID {
		t.Error("on-time defect must not be escalated")
	}

	// Idempotent: second sweep finds nothing to do
	n, err = f.svc.EscalateOverdue(ctx, f.superuser, f.project.ID)
	if err != nil || n != 0 {
		t.Errorf("expected idempotent second sweep, got n=%d err=%v", n, err)
	}
}

func TestMetricsRequiresRole(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.createDefect(t, f.engineer, "crack in wall")

	m, err := f.svc.Metrics(ctx, f.supervisor, f.project.ID)
	if err != nil {
		t.Fatalf("metrics failed: %v", err)
	}
	if m.TotalDefects != 1 {
		t.Errorf("expected 1 defect, got %d", m.TotalDefects)
	}

	outsider := &types.User{Username: "oscar", IsActive: true}
	if err := f.store.CreateUser(ctx, outsider); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	if _, err := f.svc.Metrics(ctx, types.Actor{UserID: outsider.ID}, f.project.ID); !types.IsForbidden(err) {
		t.Errorf("expected forbidden, got %v", err)
	}
}
