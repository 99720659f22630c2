package sqlite

import (
	"context"
	"database/sql"

	"github.com/sitedesk/punchlist/internal/storage"
	"github.com/sitedesk/punchlist/internal/types"
)

const statusColumns = `id, name, display_name, order_index, is_initial, is_final`

func scanStatus(scan func(dest ...interface{}) error) (*types.StatusDef, error) {
	var st types.StatusDef
	if err := scan(&st.ID, &st.Name, &st.DisplayName, &st.OrderIndex, &st.IsInitial, &st.IsFinal); err != nil {
		return nil, err
	}
	return &st, nil
}

// ListStatuses returns the status catalog ordered by workflow position
func (s *Store) ListStatuses(ctx context.Context) ([]*types.StatusDef, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+statusColumns+` FROM defect_statuses ORDER BY order_index`)
	if err != nil {
		return nil, wrapDBError("list statuses", err)
	}
	defer rows.Close()

	var statuses []*types.StatusDef
	for rows.Next() {
		st, err := scanStatus(rows.Scan)
		if err != nil {
			return nil, wrapDBError("scan status", err)
		}
		statuses = append(statuses, st)
	}
	return statuses, rows.Err()
}

// GetStatus retrieves a status definition by ID
func (s *Store) GetStatus(ctx context.Context, id int64) (*types.StatusDef, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+statusColumns+` FROM defect_statuses WHERE id = ?`, id)
	st, err := scanStatus(row.Scan)
	if err != nil {
		return nil, notFound("status", id, err)
	}
	return st, nil
}

// GetStatusByName retrieves a status definition by its stable name
func (s *Store) GetStatusByName(ctx context.Context, name types.StatusName) (*types.StatusDef, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+statusColumns+` FROM defect_statuses WHERE name = ?`, name)
	st, err := scanStatus(row.Scan)
	if err != nil {
		return nil, notFound("status", 0, err)
	}
	return st, nil
}

// InitialStatus returns the status flagged is_initial. A missing row
// means the catalogs were never seeded.
func (s *Store) InitialStatus(ctx context.Context) (*types.StatusDef, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+statusColumns+` FROM defect_statuses WHERE is_initial = 1`)
	st, err := scanStatus(row.Scan)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotInitialized
	}
	if err != nil {
		return nil, wrapDBError("initial status", err)
	}
	return st, nil
}

// ListPriorities returns the priority catalog ordered by urgency
func (s *Store) ListPriorities(ctx context.Context) ([]*types.Priority, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, display_name, urgency_level FROM priorities ORDER BY urgency_level
	`)
	if err != nil {
		return nil, wrapDBError("list priorities", err)
	}
	defer rows.Close()

	var priorities []*types.Priority
	for rows.Next() {
		var p types.Priority
		if err := rows.Scan(&p.ID, &p.Name, &p.DisplayName, &p.UrgencyLevel); err != nil {
			return nil, wrapDBError("scan priority", err)
		}
		priorities = append(priorities, &p)
	}
	return priorities, rows.Err()
}

// GetPriority retrieves a priority by ID
func (s *Store) GetPriority(ctx context.Context, id int64) (*types.Priority, error) {
	var p types.Priority
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, display_name, urgency_level FROM priorities WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.DisplayName, &p.UrgencyLevel)
	if err != nil {
		return nil, notFound("priority", id, err)
	}
	return &p, nil
}

// GetPriorityByName retrieves a priority by name
func (s *Store) GetPriorityByName(ctx context.Context, name string) (*types.Priority, error) {
	var p types.Priority
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, display_name, urgency_level FROM priorities WHERE name = ?
	`, name).Scan(&p.ID, &p.Name, &p.DisplayName, &p.UrgencyLevel)
	if err != nil {
		return nil, notFound("priority", 0, err)
	}
	return &p, nil
}
