package service

import (
	"context"
	"fmt"

	"github.com/sitedesk/punchlist/internal/debug"
	"github.com/sitedesk/punchlist/internal/types"
)

// Role administration. Grants and revocations are restricted to
// superusers and holders of the supervisor or manager role in the
// target project.

func (s *DefectService) requireRoleAdmin(ctx context.Context, actor types.Actor, projectID int64) error {
	ok, err := s.resolver.HasAnyRole(ctx, actor, projectID, types.RoleSupervisor, types.RoleManager)
	if err != nil {
		return err
	}
	if !ok {
		return &types.ForbiddenError{
			Action: "manage_roles",
			Reason: fmt.Sprintf("requires one of roles %v", []types.Role{types.RoleSupervisor, types.RoleManager}),
		}
	}
	return nil
}

// GrantRole gives a user a role in a project, recording who granted
// it. A duplicate (user, project, role) triple returns a Conflict.
func (s *DefectService) GrantRole(ctx context.Context, actor types.Actor, userID, projectID int64, role types.Role) (*types.RoleGrant, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	if err := s.requireRoleAdmin(ctx, actor, projectID); err != nil {
		return nil, err
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	grant := &types.RoleGrant{
		UserID:    userID,
		ProjectID: projectID,
		Role:      role,
		GrantedBy: &actor.UserID,
	}
	if err := s.store.GrantRole(ctx, grant); err != nil {
		return nil, err
	}
	debug.Logf("granted %s to user %d in project %d\n", role, userID, projectID)
	return grant, nil
}

// RevokeRole removes a role grant. Revoking a grant the user does not
// hold returns NotFound.
func (s *DefectService) RevokeRole(ctx context.Context, actor types.Actor, userID, projectID int64, role types.Role) error {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return err
	}
	if err := s.requireRoleAdmin(ctx, actor, projectID); err != nil {
		return err
	}
	if err := s.store.RevokeRole(ctx, userID, projectID, role); err != nil {
		return err
	}
	debug.Logf("revoked %s from user %d in project %d\n", role, userID, projectID)
	return nil
}
