package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/sitedesk/punchlist/internal/storage"
	"github.com/sitedesk/punchlist/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustCreateUser(t *testing.T, s *Store, username string) *types.User {
	t.Helper()
	u := &types.User{Username: username, IsActive: true}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return u
}

func mustCreateProject(t *testing.T, s *Store, name string) *types.Project {
	t.Helper()
	p := &types.Project{Name: name, IsActive: true}
	if err := s.CreateProject(context.Background(), p); err != nil {
		t.Fatalf("failed to create project %s: %v", name, err)
	}
	return p
}

func mustCreateDefect(t *testing.T, s *Store, projectID, reporterID int64, title string) *types.Defect {
	t.Helper()
	ctx := context.Background()
	st, err := s.InitialStatus(ctx)
	if err != nil {
		t.Fatalf("failed to get initial status: %v", err)
	}
	pr, err := s.GetPriorityByName(ctx, "medium")
	if err != nil {
		t.Fatalf("failed to get priority: %v", err)
	}
	d := &types.Defect{
		Title:       title,
		Description: "test defect",
		ProjectID:   projectID,
		StatusID:    st.ID,
		PriorityID:  pr.ID,
		ReporterID:  reporterID,
	}
	err = s.RunInTransaction(ctx, func(tx storage.Transaction) error {
		n, err := tx.NextDefectNumber(ctx)
		if err != nil {
			return err
		}
		d.Number = fmt.Sprintf("DEF-%d-%04d", time.Now().UTC().Year(), n)
		return tx.CreateDefect(ctx, d)
	})
	if err != nil {
		t.Fatalf("failed to create defect: %v", err)
	}
	return d
}

func TestSeedCatalogs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	statuses, err := s.ListStatuses(ctx)
	if err != nil {
		t.Fatalf("failed to list statuses: %v", err)
	}
	if len(statuses) != 6 {
		t.Fatalf("expected 6 seeded statuses, got %d", len(statuses))
	}
	if statuses[0].Name != types.StatusOpen || !statuses[0].IsInitial {
		t.Errorf("expected open to be first and initial, got %+v", statuses[0])
	}
	var finals int
	for _, st := range statuses {
		if st.IsFinal {
			finals++
		}
	}
	if finals != 2 {
		t.Errorf("expected 2 final statuses (closed, rejected), got %d", finals)
	}

	initial, err := s.InitialStatus(ctx)
	if err != nil {
		t.Fatalf("failed to get initial status: %v", err)
	}
	if initial.Name != types.StatusOpen {
		t.Errorf("expected initial status open, got %s", initial.Name)
	}

	priorities, err := s.ListPriorities(ctx)
	if err != nil {
		t.Fatalf("failed to list priorities: %v", err)
	}
	if len(priorities) != 4 {
		t.Fatalf("expected 4 seeded priorities, got %d", len(priorities))
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	s := newTestStore(t)
	mustCreateUser(t, s, "alice")
	err := s.CreateUser(context.Background(), &types.User{Username: "alice"})
	if !types.IsConflict(err) {
		t.Errorf("expected conflict on duplicate username, got %v", err)
	}
}

func TestRoleGrants(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustCreateUser(t, s, "alice")
	p := mustCreateProject(t, s, "Tower A")

	if err := s.GrantRole(ctx, &types.RoleGrant{UserID: u.ID, ProjectID: p.ID, Role: types.RoleEngineer}); err != nil {
		t.Fatalf("failed to grant role: %v", err)
	}

	// Duplicate triple conflicts
	err := s.GrantRole(ctx, &types.RoleGrant{UserID: u.ID, ProjectID: p.ID, Role: types.RoleEngineer})
	if !types.IsConflict(err) {
		t.Errorf("expected conflict on duplicate grant, got %v", err)
	}

	// Different role for the same user is fine
	if err := s.GrantRole(ctx, &types.RoleGrant{UserID: u.ID, ProjectID: p.ID, Role: types.RoleManager}); err != nil {
		t.Fatalf("failed to grant second role: %v", err)
	}

	roles, err := s.GetRoles(ctx, u.ID, p.ID)
	if err != nil {
		t.Fatalf("failed to get roles: %v", err)
	}
	if !roles.Has(types.RoleEngineer) || !roles.Has(types.RoleManager) {
		t.Errorf("expected engineer+manager, got %v", roles)
	}

	if err := s.RevokeRole(ctx, u.ID, p.ID, types.RoleManager); err != nil {
		t.Fatalf("failed to revoke role: %v", err)
	}
	roles, _ = s.GetRoles(ctx, u.ID, p.ID)
	if roles.Has(types.RoleManager) {
		t.Error("expected manager role revoked")
	}

	err = s.RevokeRole(ctx, u.ID, p.ID, types.RoleManager)
	if !types.IsNotFound(err) {
		t.Errorf("expected not found revoking absent role, got %v", err)
	}

	err = s.GrantRole(ctx, &types.RoleGrant{UserID: u.ID, ProjectID: p.ID, Role: "architect"})
	if !types.IsValidation(err) {
		t.Errorf("expected validation error for unknown role, got %v", err)
	}
}

func TestDefectNumberSequence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustCreateUser(t, s, "alice")
	p := mustCreateProject(t, s, "Tower A")

	d1 := mustCreateDefect(t, s, p.ID, u.ID, "crack in wall")
	d2 := mustCreateDefect(t, s, p.ID, u.ID, "leaking pipe")

	year := time.Now().UTC().Year()
	if want := fmt.Sprintf("DEF-%d-0001", year); d1.Number != want {
		t.Errorf("expected first number %s, got %s", want, d1.Number)
	}
	if want := fmt.Sprintf("DEF-%d-0002", year); d2.Number != want {
		t.Errorf("expected second number %s, got %s", want, d2.Number)
	}

	got, err := s.GetDefectByNumber(ctx, d1.Number)
	if err != nil {
		t.Fatalf("failed to get defect by number: %v", err)
	}
	if got.ID != d1.ID {
		t.Errorf("expected defect %d, got %d", d1.ID, got.ID)
	}
}

func TestNumberNotBurnedOnRollback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustCreateUser(t, s, "alice")
	p := mustCreateProject(t, s, "Tower A")

	boom := errors.New("boom")
	err := s.RunInTransaction(ctx, func(tx storage.Transaction) error {
		if _, err := tx.NextDefectNumber(ctx); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}

	// The rolled-back increment must not leave a gap.
	d := mustCreateDefect(t, s, p.ID, u.ID, "crack in wall")
	if want := fmt.Sprintf("DEF-%d-0001", time.Now().UTC().Year()); d.Number != want {
		t.Errorf("expected %s after rollback, got %s", want, d.Number)
	}
}

func TestTransactionRollbackLeavesNoPartialState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustCreateUser(t, s, "alice")
	p := mustCreateProject(t, s, "Tower A")
	d := mustCreateDefect(t, s, p.ID, u.ID, "crack in wall")

	boom := errors.New("boom")
	err := s.RunInTransaction(ctx, func(tx storage.Transaction) error {
		if err := tx.AddComment(ctx, &types.Comment{DefectID: d.ID, AuthorID: u.ID, Content: "on it"}); err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, &types.AuditEntry{
			DefectID: d.ID, UserID: u.ID, FieldName: "comment", ChangeType: types.ChangeComment,
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}

	comments, err := s.GetDefectComments(ctx, d.ID)
	if err != nil {
		t.Fatalf("failed to get comments: %v", err)
	}
	if len(comments) != 0 {
		t.Errorf("expected no comments after rollback, got %d", len(comments))
	}
	entries, err := s.GetAuditEntries(ctx, d.ID, 0)
	if err != nil {
		t.Fatalf("failed to get audit entries: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no audit entries after rollback, got %d", len(entries))
	}
}

func TestUpdateDefectVersionConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustCreateUser(t, s, "alice")
	p := mustCreateProject(t, s, "Tower A")
	d := mustCreateDefect(t, s, p.ID, u.ID, "crack in wall")

	err := s.RunInTransaction(ctx, func(tx storage.Transaction) error {
		return tx.UpdateDefect(ctx, d.ID, d.Version, map[string]interface{}{"title": "crack in east wall"})
	})
	if err != nil {
		t.Fatalf("failed to update defect: %v", err)
	}

	got, err := s.GetDefect(ctx, d.ID)
	if err != nil {
		t.Fatalf("failed to get defect: %v", err)
	}
	if got.Title != "crack in east wall" {
		t.Errorf("expected updated title, got %q", got.Title)
	}
	if got.Version != d.Version+1 {
		t.Errorf("expected version %d, got %d", d.Version+1, got.Version)
	}

	// Second writer still holding the old version loses.
	err = s.RunInTransaction(ctx, func(tx storage.Transaction) error {
		return tx.UpdateDefect(ctx, d.ID, d.Version, map[string]interface{}{"title": "stale edit"})
	})
	if !types.IsConflict(err) {
		t.Errorf("expected conflict on stale version, got %v", err)
	}

	got, _ = s.GetDefect(ctx, d.ID)
	if got.Title != "crack in east wall" {
		t.Errorf("stale edit must not apply, got %q", got.Title)
	}
}

func TestUpdateDefectRejectsUnknownField(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustCreateUser(t, s, "alice")
	p := mustCreateProject(t, s, "Tower A")
	d := mustCreateDefect(t, s, p.ID, u.ID, "crack in wall")

	for _, field := range []string{"number", "version", "reporter_id", "created_at", "drop table"} {
		err := s.RunInTransaction(ctx, func(tx storage.Transaction) error {
			return tx.UpdateDefect(ctx, d.ID, d.Version, map[string]interface{}{field: "x"})
		})
		if !types.IsValidation(err) {
			t.Errorf("field %q: expected validation error, got %v", field, err)
		}
	}
}

func TestSearchDefects(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustCreateUser(t, s, "alice")
	p := mustCreateProject(t, s, "Tower A")
	p2 := mustCreateProject(t, s, "Tower B")

	d1 := mustCreateDefect(t, s, p.ID, u.ID, "crack in wall")
	mustCreateDefect(t, s, p.ID, u.ID, "leaking pipe")
	mustCreateDefect(t, s, p2.ID, u.ID, "broken window")

	all, err := s.SearchDefects(ctx, types.DefectFilter{})
	if err != nil {
		t.Fatalf("failed to search: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 defects, got %d", len(all))
	}

	byProject, err := s.SearchDefects(ctx, types.DefectFilter{ProjectID: &p.ID})
	if err != nil {
		t.Fatalf("failed to search by project: %v", err)
	}
	if len(byProject) != 2 {
		t.Errorf("expected 2 defects in project, got %d", len(byProject))
	}

	bySearch, err := s.SearchDefects(ctx, types.DefectFilter{Search: "CRACK"})
	if err != nil {
		t.Fatalf("failed to search by text: %v", err)
	}
	if len(bySearch) != 1 || bySearch[0].ID != d1.ID {
		t.Errorf("expected case-insensitive match on %d, got %v", d1.ID, bySearch)
	}

	byStatus, err := s.SearchDefects(ctx, types.DefectFilter{Status: "open"})
	if err != nil {
		t.Fatalf("failed to search by status: %v", err)
	}
	if len(byStatus) != 3 {
		t.Errorf("expected 3 open defects, got %d", len(byStatus))
	}

	none, err := s.SearchDefects(ctx, types.DefectFilter{Status: "closed"})
	if err != nil {
		t.Fatalf("failed to search closed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no closed defects, got %d", len(none))
	}
}

func TestAuditTrailOrderAndSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustCreateUser(t, s, "alice")
	u.FirstName, u.LastName = "Alice", "Smith"
	p := mustCreateProject(t, s, "Tower A")
	d := mustCreateDefect(t, s, p.ID, u.ID, "crack in wall")

	old, new1, new2 := "open", "in_progress", "review"
	for i, vals := range [][2]*string{{&old, &new1}, {&new1, &new2}} {
		entry := &types.AuditEntry{
			DefectID:   d.ID,
			UserID:     u.ID,
			FieldName:  "status",
			OldValue:   vals[0],
			NewValue:   vals[1],
			ChangeType: types.ChangeStatusChange,
			CreatedAt:  time.Now().UTC().Add(time.Duration(i) * time.Second),
		}
		err := s.RunInTransaction(ctx, func(tx storage.Transaction) error {
			return tx.AppendAudit(ctx, entry)
		})
		if err != nil {
			t.Fatalf("failed to append audit: %v", err)
		}
	}

	entries, err := s.GetAuditEntries(ctx, d.ID, 0)
	if err != nil {
		t.Fatalf("failed to get audit entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if *entries[0].NewValue != "review" {
		t.Errorf("expected newest entry first, got new_value %q", *entries[0].NewValue)
	}

	limited, _ := s.GetAuditEntries(ctx, d.ID, 1)
	if len(limited) != 1 {
		t.Errorf("expected limit honored, got %d entries", len(limited))
	}

	matched, err := s.SearchAudit(ctx, p.ID, "status", 0)
	if err != nil {
		t.Fatalf("failed to search audit: %v", err)
	}
	if len(matched) != 2 {
		t.Errorf("expected 2 matches on field name, got %d", len(matched))
	}

	matched, err = s.SearchAudit(ctx, p.ID, "alice", 0)
	if err != nil {
		t.Fatalf("failed to search audit by user: %v", err)
	}
	if len(matched) != 2 {
		t.Errorf("expected 2 matches on username, got %d", len(matched))
	}

	matched, _ = s.SearchAudit(ctx, p.ID, "no such thing", 0)
	if len(matched) != 0 {
		t.Errorf("expected no matches, got %d", len(matched))
	}
}

func TestDeleteDefectCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustCreateUser(t, s, "alice")
	p := mustCreateProject(t, s, "Tower A")
	d := mustCreateDefect(t, s, p.ID, u.ID, "crack in wall")

	err := s.RunInTransaction(ctx, func(tx storage.Transaction) error {
		return tx.AddComment(ctx, &types.Comment{DefectID: d.ID, AuthorID: u.ID, Content: "on it"})
	})
	if err != nil {
		t.Fatalf("failed to add comment: %v", err)
	}

	err = s.RunInTransaction(ctx, func(tx storage.Transaction) error {
		return tx.DeleteDefect(ctx, d.ID)
	})
	if err != nil {
		t.Fatalf("failed to delete defect: %v", err)
	}

	if _, err := s.GetDefect(ctx, d.ID); !types.IsNotFound(err) {
		t.Errorf("expected defect gone, got %v", err)
	}
	comments, _ := s.GetDefectComments(ctx, d.ID)
	if len(comments) != 0 {
		t.Errorf("expected comments cascaded, got %d", len(comments))
	}
}

func TestProjectMetrics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustCreateUser(t, s, "alice")
	p := mustCreateProject(t, s, "Tower A")

	d1 := mustCreateDefect(t, s, p.ID, u.ID, "crack in wall")
	d2 := mustCreateDefect(t, s, p.ID, u.ID, "leaking pipe")
	mustCreateDefect(t, s, p.ID, u.ID, "broken window")

	inProgress, err := s.GetStatusByName(ctx, types.StatusInProgress)
	if err != nil {
		t.Fatalf("failed to get status: %v", err)
	}
	past := time.Now().UTC().Add(-48 * time.Hour)
	err = s.RunInTransaction(ctx, func(tx storage.Transaction) error {
		if err := tx.UpdateDefect(ctx, d1.ID, d1.Version, map[string]interface{}{"status_id": inProgress.ID}); err != nil {
			return err
		}
		return tx.UpdateDefect(ctx, d2.ID, d2.Version, map[string]interface{}{"due_date": past})
	})
	if err != nil {
		t.Fatalf("failed to update defects: %v", err)
	}

	m, err := s.ProjectMetrics(ctx, p.ID)
	if err != nil {
		t.Fatalf("failed to get metrics: %v", err)
	}
	if m.TotalDefects != 3 {
		t.Errorf("expected 3 total, got %d", m.TotalDefects)
	}
	if m.InProgress != 1 {
		t.Errorf("expected 1 in progress, got %d", m.InProgress)
	}
	if m.Overdue != 1 {
		t.Errorf("expected 1 overdue, got %d", m.Overdue)
	}

	if _, err := s.ProjectMetrics(ctx, 9999); !types.IsNotFound(err) {
		t.Errorf("expected not found for missing project, got %v", err)
	}
}

func TestSearchAuditSurvivesMissingUserRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ghost := mustCreateUser(t, s, "ghost")
	reporter := mustCreateUser(t, s, "alice")
	p := mustCreateProject(t, s, "Tower A")
	d := mustCreateDefect(t, s, p.ID, reporter.ID, "water damage in stairwell")

	entry := &types.AuditEntry{
		DefectID:   d.ID,
		UserID:     ghost.ID,
		FieldName:  "status",
		ChangeType: types.ChangeUpdate,
		CreatedAt:  time.Now().UTC(),
	}
	err := s.RunInTransaction(ctx, func(tx storage.Transaction) error {
		return tx.AppendAudit(ctx, entry)
	})
	if err != nil {
		t.Fatalf("failed to append audit: %v", err)
	}

	// Remove the user row behind the entry, bypassing the foreign key
	// on the same connection. No delete path for users exists in the
	// store, but an entry must not vanish from search if its user ever
	// does; the renderer shows such entries as "unknown".
	conn, err := s.UnderlyingDB().Conn(ctx)
	if err != nil {
		t.Fatalf("failed to get connection: %v", err)
	}
	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		t.Fatalf("failed to disable foreign keys: %v", err)
	}
	if _, err := conn.ExecContext(ctx, "DELETE FROM users WHERE id = ?", ghost.ID); err != nil {
		t.Fatalf("failed to delete user: %v", err)
	}
	conn.Close()

	matched, err := s.SearchAudit(ctx, p.ID, "", 0)
	if err != nil {
		t.Fatalf("failed to search audit: %v", err)
	}
	if len(matched) != 1 {
		t.Fatalf("expected dangling entry in unfiltered search, got %d entries", len(matched))
	}

	matched, err = s.SearchAudit(ctx, p.ID, "water damage", 0)
	if err != nil {
		t.Fatalf("failed to search audit by title: %v", err)
	}
	if len(matched) != 1 {
		t.Errorf("expected dangling entry matched on defect title, got %d entries", len(matched))
	}

	matched, _ = s.SearchAudit(ctx, p.ID, "ghost", 0)
	if len(matched) != 0 {
		t.Errorf("expected no match on the deleted username, got %d entries", len(matched))
	}
}
