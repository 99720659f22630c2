// Package audit renders and searches the defect audit trail.
//
// Entries themselves are written by the lifecycle and service layers
// inside their transactions; this package owns the read side. Rendering
// is a pure function over an entry and a Lookup so it can be tested
// without a live store, and it never fails: references that no longer
// resolve render as "unknown".
package audit

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sitedesk/punchlist/internal/storage"
	"github.com/sitedesk/punchlist/internal/types"
)

// Lookup resolves foreign references to display names at render time.
// The ok result is false when the id no longer resolves.
type Lookup interface {
	UserName(ctx context.Context, id int64) (string, bool)
	StatusName(ctx context.Context, id int64) (string, bool)
	PriorityName(ctx context.Context, id int64) (string, bool)
}

const unknown = "unknown"

// Render produces a human-readable description of one audit entry.
func Render(ctx context.Context, entry *types.AuditEntry, lookup Lookup) string {
	actor, ok := lookup.UserName(ctx, entry.UserID)
	if !ok {
		actor = unknown
	}

	switch entry.ChangeType {
	case types.ChangeCreate:
		return fmt.Sprintf("%s created the defect", actor)
	case types.ChangeDelete:
		return fmt.Sprintf("%s deleted the defect", actor)
	case types.ChangeComment:
		return fmt.Sprintf("%s commented", actor)
	case types.ChangeStatusChange:
		return fmt.Sprintf("%s changed status from %s to %s",
			actor,
			resolveValue(ctx, "status", entry.OldValue, lookup),
			resolveValue(ctx, "status", entry.NewValue, lookup))
	case types.ChangeUpdate:
		return fmt.Sprintf("%s changed %s from %s to %s",
			actor,
			entry.FieldName,
			resolveValue(ctx, entry.FieldName, entry.OldValue, lookup),
			resolveValue(ctx, entry.FieldName, entry.NewValue, lookup))
	}
	return fmt.Sprintf("%s made a %s change", actor, entry.ChangeType)
}

// resolveValue turns a stored audit value into something readable.
// Fields holding foreign keys are resolved to display names; anything
// else is shown verbatim. Nil values render as "(none)".
func resolveValue(ctx context.Context, field string, value *string, lookup Lookup) string {
	if value == nil {
		return "(none)"
	}
	id, err := strconv.ParseInt(*value, 10, 64)
	if err != nil {
		return *value
	}
	var name string
	var ok bool
	switch field {
	case "status", "status_id":
		name, ok = lookup.StatusName(ctx, id)
	case "priority_id":
		name, ok = lookup.PriorityName(ctx, id)
	case "assignee_id":
		name, ok = lookup.UserName(ctx, id)
	default:
		return *value
	}
	if !ok {
		return unknown
	}
	return name
}

// Rendered pairs an audit entry with its description.
type Rendered struct {
	Entry *types.AuditEntry
	Text  string
}

// Trail is the read-side audit facade over storage.
type Trail struct {
	store  storage.Storage
	lookup Lookup
}

// NewTrail creates a Trail using the store itself for name lookups.
func NewTrail(store storage.Storage) *Trail {
	return &Trail{store: store, lookup: &storeLookup{store: store}}
}

// History returns rendered entries for one defect, newest first.
func (t *Trail) History(ctx context.Context, defectID int64, limit int) ([]Rendered, error) {
	entries, err := t.store.GetAuditEntries(ctx, defectID, limit)
	if err != nil {
		return nil, err
	}
	return t.render(ctx, entries), nil
}

// Search returns rendered entries across a project matching filterText
// (case-insensitive substring over actor name, defect title, and field
// name), newest first. Each call re-scans; results are not a cursor.
func (t *Trail) Search(ctx context.Context, projectID int64, filterText string, limit int) ([]Rendered, error) {
	entries, err := t.store.SearchAudit(ctx, projectID, filterText, limit)
	if err != nil {
		return nil, err
	}
	return t.render(ctx, entries), nil
}

func (t *Trail) render(ctx context.Context, entries []*types.AuditEntry) []Rendered {
	out := make([]Rendered, len(entries))
	for i, e := range entries {
		out[i] = Rendered{Entry: e, Text: Render(ctx, e, t.lookup)}
	}
	return out
}

// storeLookup adapts storage reads to the Lookup interface. Lookup
// failures of any kind degrade to "unknown" rather than failing the
// render pass.
type storeLookup struct {
	store storage.Storage
}

func (l *storeLookup) UserName(ctx context.Context, id int64) (string, bool) {
	u, err := l.store.GetUser(ctx, id)
	if err != nil {
		return "", false
	}
	return u.DisplayName(), true
}

func (l *storeLookup) StatusName(ctx context.Context, id int64) (string, bool) {
	st, err := l.store.GetStatus(ctx, id)
	if err != nil {
		return "", false
	}
	return st.DisplayName, true
}

func (l *storeLookup) PriorityName(ctx context.Context, id int64) (string, bool) {
	p, err := l.store.GetPriority(ctx, id)
	if err != nil {
		return "", false
	}
	return p.DisplayName, true
}
