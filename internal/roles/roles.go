// Package roles resolves which project roles an actor holds.
//
// Role grants are per project: the same user can be an engineer on one
// site and a manager on another. Resolution is a plain storage read;
// callers that need authorization decisions combine the resolved set
// with the policy package.
package roles

import (
	"context"
	"fmt"

	"github.com/sitedesk/punchlist/internal/storage"
	"github.com/sitedesk/punchlist/internal/types"
)

// Resolver answers role membership questions against storage.
type Resolver struct {
	store storage.Storage
}

// NewResolver creates a role resolver backed by the given storage.
func NewResolver(store storage.Storage) *Resolver {
	return &Resolver{store: store}
}

// RolesOf returns the set of roles the actor holds in the project.
// Superuser status does not add roles; it is a policy-level bypass.
func (r *Resolver) RolesOf(ctx context.Context, actor types.Actor, projectID int64) (types.RoleSet, error) {
	set, err := r.store.GetRoles(ctx, actor.UserID, projectID)
	if err != nil {
		return nil, fmt.Errorf("resolve roles for user %d in project %d: %w", actor.UserID, projectID, err)
	}
	return set, nil
}

// HasAnyRole reports whether the actor holds at least one of the given
// roles in the project. Superusers pass unconditionally.
func (r *Resolver) HasAnyRole(ctx context.Context, actor types.Actor, projectID int64, candidates ...types.Role) (bool, error) {
	if actor.IsSuperuser {
		return true, nil
	}
	set, err := r.RolesOf(ctx, actor, projectID)
	if err != nil {
		return false, err
	}
	return set.HasAny(candidates...), nil
}
