// Package policy implements the permission guard for defect operations.
//
// Decisions are pure functions of the input: no storage access, no
// clock, no side effects. The caller resolves the actor's role set and
// the defect's current status first, then asks for a decision. Every
// (action, role set, status) combination yields a decision; anything
// not explicitly allowed by the rules table is denied.
package policy

import (
	"fmt"

	"github.com/sitedesk/punchlist/internal/types"
)

// Action names one guarded operation.
type Action string

// Guarded actions
const (
	CreateDefect  Action = "create_defect"
	EditDefect    Action = "edit_defect"
	ChangeStatus  Action = "change_status"
	DeleteDefect  Action = "delete_defect"
	AddComment    Action = "add_comment"
	ViewComment   Action = "view_comment"
	DeleteComment Action = "delete_comment"
)

// Decision is the outcome of a policy check. Reason is set on deny.
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow is the affirmative decision.
func Allow() Decision { return Decision{Allowed: true} }

// Deny produces a negative decision with a reason.
func Deny(format string, args ...interface{}) Decision {
	return Decision{Reason: fmt.Sprintf(format, args...)}
}

// Input carries everything a decision depends on. Status is the
// defect's current status name (empty for CreateDefect). AssigneeID is
// the defect's assignee, CommentAuthorID the author of the comment
// being acted on (DeleteComment only).
type Input struct {
	Actor           types.Actor
	Roles           types.RoleSet
	Status          types.StatusName
	AssigneeID      *int64
	CommentAuthorID int64
}

// rule is one row of the policy table.
type rule struct {
	// anyOf lists acceptable roles. Empty means any granted role.
	anyOf []types.Role
	// denySoleRole denies actors whose entire role set is this role.
	denySoleRole types.Role
	// denyInStatus denies outright when the defect sits in one of these
	// statuses, superuser included.
	denyInStatus []types.StatusName
	// leavingStatus overrides anyOf when the defect is being moved out
	// of the given status.
	leavingStatus map[types.StatusName][]types.Role
	// assigneeScoped limits engineers who are not also managers to
	// defects assigned to them or unassigned.
	assigneeScoped bool
	// ownCommentOnly limits engineers who are not also managers to
	// comments they authored.
	ownCommentOnly bool
}

// rules is the complete policy, one row per action. Evaluation order:
// status denials first (unconditional), then the superuser bypass,
// then role requirements, then assignment and ownership scoping.
var rules = map[Action]rule{
	CreateDefect: {
		denySoleRole: types.RoleSupervisor,
	},
	EditDefect: {
		denySoleRole: types.RoleSupervisor,
		denyInStatus: []types.StatusName{types.StatusClosed},
	},
	ChangeStatus: {
		denySoleRole: types.RoleSupervisor,
		denyInStatus: []types.StatusName{types.StatusClosed},
		leavingStatus: map[types.StatusName][]types.Role{
			types.StatusReview:     {types.RoleManager},
			types.StatusOpen:       {types.RoleManager, types.RoleEngineer},
			types.StatusInProgress: {types.RoleManager, types.RoleEngineer},
		},
	},
	DeleteDefect: {
		anyOf: []types.Role{types.RoleSupervisor},
	},
	AddComment: {
		anyOf:          []types.Role{types.RoleEngineer, types.RoleManager},
		assigneeScoped: true,
	},
	ViewComment: {
		anyOf:          []types.Role{types.RoleEngineer, types.RoleManager, types.RoleSupervisor},
		assigneeScoped: true,
	},
	DeleteComment: {
		anyOf:          []types.Role{types.RoleEngineer, types.RoleManager},
		ownCommentOnly: true,
	},
}

// Check evaluates the policy for one action. It is total: every input
// yields a decision, and unknown actions are denied.
func Check(action Action, in Input) Decision {
	r, ok := rules[action]
	if !ok {
		return Deny("unknown action: %s", action)
	}

	// Closed defects are immutable for everyone.
	for _, st := range r.denyInStatus {
		if in.Status == st {
			return Deny("defect is %s and cannot be modified", st)
		}
	}

	if in.Actor.IsSuperuser {
		return Allow()
	}

	if r.denySoleRole != "" && in.Roles.Only(r.denySoleRole) {
		return Deny("%ss cannot %s", r.denySoleRole, actionVerb(action))
	}

	required := r.anyOf
	if override, ok := r.leavingStatus[in.Status]; ok {
		required = override
	}
	if len(required) > 0 {
		if !in.Roles.HasAny(required...) {
			return Deny("requires one of roles %v", required)
		}
	} else if len(in.Roles) == 0 {
		return Deny("no role in this project")
	}

	// Engineers without the manager role only act within their own
	// assignments.
	engineerOnly := in.Roles.Has(types.RoleEngineer) && !in.Roles.Has(types.RoleManager)
	if r.assigneeScoped && engineerOnly {
		if in.AssigneeID != nil && *in.AssigneeID != in.Actor.UserID {
			return Deny("engineers may only act on their own or unassigned defects")
		}
	}
	if r.ownCommentOnly && engineerOnly {
		if in.CommentAuthorID != in.Actor.UserID {
			return Deny("engineers may only delete their own comments")
		}
	}

	return Allow()
}

func actionVerb(action Action) string {
	switch action {
	case CreateDefect:
		return "create defects"
	case EditDefect:
		return "edit defects"
	case ChangeStatus:
		return "change defect status"
	case DeleteDefect:
		return "delete defects"
	case AddComment:
		return "add comments"
	case ViewComment:
		return "view comments"
	case DeleteComment:
		return "delete comments"
	}
	return string(action)
}
