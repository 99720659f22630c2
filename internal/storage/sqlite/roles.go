package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sitedesk/punchlist/internal/types"
)

// GrantRole inserts a role grant. A duplicate (user, project, role)
// triple returns a ConflictError.
func (s *Store) GrantRole(ctx context.Context, grant *types.RoleGrant) error {
	if !grant.Role.IsValid() {
		return &types.ValidationError{Field: "role", Reason: fmt.Sprintf("invalid role: %s", grant.Role)}
	}
	if grant.GrantedAt.IsZero() {
		grant.GrantedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO role_grants (user_id, project_id, role, granted_by, granted_at)
		VALUES (?, ?, ?, ?, ?)
	`, grant.UserID, grant.ProjectID, grant.Role, grant.GrantedBy, grant.GrantedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return &types.ConflictError{
				Reason: fmt.Sprintf("user %d already holds role %s in project %d", grant.UserID, grant.Role, grant.ProjectID),
			}
		}
		return wrapDBError("grant role", err)
	}
	grant.ID, err = res.LastInsertId()
	return wrapDBError("grant role", err)
}

// RevokeRole deletes a role grant
func (s *Store) RevokeRole(ctx context.Context, userID, projectID int64, role types.Role) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM role_grants WHERE user_id = ? AND project_id = ? AND role = ?
	`, userID, projectID, role)
	if err != nil {
		return wrapDBError("revoke role", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapDBError("revoke role", err)
	}
	if n == 0 {
		return &types.NotFoundError{Kind: "role grant", ID: userID}
	}
	return nil
}

// GetRoles returns the (possibly empty) set of roles a user holds in a
// project. Superuser status is deliberately ignored here; the policy
// layer handles the bypass.
func (s *Store) GetRoles(ctx context.Context, userID, projectID int64) (types.RoleSet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role FROM role_grants WHERE user_id = ? AND project_id = ?
	`, userID, projectID)
	if err != nil {
		return nil, wrapDBError("get roles", err)
	}
	defer rows.Close()

	set := types.RoleSet{}
	for rows.Next() {
		var role types.Role
		if err := rows.Scan(&role); err != nil {
			return nil, wrapDBError("scan role", err)
		}
		set[role] = true
	}
	return set, rows.Err()
}

// ListGrants returns all role grants for a project
func (s *Store) ListGrants(ctx context.Context, projectID int64) ([]*types.RoleGrant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, project_id, role, granted_by, granted_at
		FROM role_grants
		WHERE project_id = ?
		ORDER BY granted_at
	`, projectID)
	if err != nil {
		return nil, wrapDBError("list grants", err)
	}
	defer rows.Close()

	var grants []*types.RoleGrant
	for rows.Next() {
		var g types.RoleGrant
		var grantedBy sql.NullInt64
		if err := rows.Scan(&g.ID, &g.UserID, &g.ProjectID, &g.Role, &grantedBy, &g.GrantedAt); err != nil {
			return nil, wrapDBError("scan grant", err)
		}
		g.GrantedBy = int64Ptr(grantedBy)
		grants = append(grants, &g)
	}
	return grants, rows.Err()
}
