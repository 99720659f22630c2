package roles

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sitedesk/punchlist/internal/storage/sqlite"
	"github.com/sitedesk/punchlist/internal/types"
)

func setup(t *testing.T) (*sqlite.Store, *Resolver) {
	t.Helper()
	s, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, NewResolver(s)
}

func TestRolesOfIsProjectScoped(t *testing.T) {
	s, r := setup(t)
	ctx := context.Background()

	u := &types.User{Username: "alice", IsActive: true}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	p1 := &types.Project{Name: "Tower A", IsActive: true}
	p2 := &types.Project{Name: "Tower B", IsActive: true}
	for _, p := range []*types.Project{p1, p2} {
		if err := s.CreateProject(ctx, p); err != nil {
			t.Fatalf("failed to create project: %v", err)
		}
	}
	if err := s.GrantRole(ctx, &types.RoleGrant{UserID: u.ID, ProjectID: p1.ID, Role: types.RoleEngineer}); err != nil {
		t.Fatalf("failed to grant role: %v", err)
	}
	if err := s.GrantRole(ctx, &types.RoleGrant{UserID: u.ID, ProjectID: p2.ID, Role: types.RoleManager}); err != nil {
		t.Fatalf("failed to grant role: %v", err)
	}

	actor := types.Actor{UserID: u.ID}

	set, err := r.RolesOf(ctx, actor, p1.ID)
	if err != nil {
		t.Fatalf("failed to resolve roles: %v", err)
	}
	if !set.Only(types.RoleEngineer) {
		t.Errorf("expected engineer only in project 1, got %v", set)
	}

	set, err = r.RolesOf(ctx, actor, p2.ID)
	if err != nil {
		t.Fatalf("failed to resolve roles: %v", err)
	}
	if !set.Only(types.RoleManager) {
		t.Errorf("expected manager only in project 2, got %v", set)
	}
}

func TestHasAnyRole(t *testing.T) {
	s, r := setup(t)
	ctx := context.Background()

	u := &types.User{Username: "bob", IsActive: true}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	p := &types.Project{Name: "Tower A", IsActive: true}
	if err := s.CreateProject(ctx, p); err != nil {
		t.Fatalf("failed to create project: %v", err)
	}
	if err := s.GrantRole(ctx, &types.RoleGrant{UserID: u.ID, ProjectID: p.ID, Role: types.RoleEngineer}); err != nil {
		t.Fatalf("failed to grant role: %v", err)
	}

	actor := types.Actor{UserID: u.ID}

	ok, err := r.HasAnyRole(ctx, actor, p.ID, types.RoleEngineer, types.RoleManager)
	if err != nil || !ok {
		t.Errorf("expected engineer to match, got ok=%v err=%v", ok, err)
	}

	ok, err = r.HasAnyRole(ctx, actor, p.ID, types.RoleSupervisor)
	if err != nil || ok {
		t.Errorf("expected supervisor not to match, got ok=%v err=%v", ok, err)
	}

	// Superuser passes without any grants
	super := types.Actor{UserID: 9999, IsSuperuser: true}
	ok, err = r.HasAnyRole(ctx, super, p.ID, types.RoleManager)
	if err != nil || !ok {
		t.Errorf("expected superuser bypass, got ok=%v err=%v", ok, err)
	}

	// RolesOf itself never reflects superuser status
	set, err := r.RolesOf(ctx, super, p.ID)
	if err != nil {
		t.Fatalf("failed to resolve roles: %v", err)
	}
	if len(set) != 0 {
		t.Errorf("expected empty role set for superuser without grants, got %v", set)
	}
}
