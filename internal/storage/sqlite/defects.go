package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/sitedesk/punchlist/internal/types"
)

const defectColumns = `d.id, d.number, d.title, d.description, d.location, d.project_id,
	d.status_id, d.priority_id, d.reporter_id, d.assignee_id, d.due_date,
	d.estimated_hours, d.actual_hours, d.created_at, d.updated_at, d.closed_at, d.version`

func scanDefect(scan func(dest ...interface{}) error) (*types.Defect, error) {
	var d types.Defect
	var assignee sql.NullInt64
	var dueDate, closedAt sql.NullTime
	var estHours, actHours sql.NullFloat64
	err := scan(&d.ID, &d.Number, &d.Title, &d.Description, &d.Location, &d.ProjectID,
		&d.StatusID, &d.PriorityID, &d.ReporterID, &assignee, &dueDate,
		&estHours, &actHours, &d.CreatedAt, &d.UpdatedAt, &closedAt, &d.Version)
	if err != nil {
		return nil, err
	}
	d.AssigneeID = int64Ptr(assignee)
	d.DueDate = timePtr(dueDate)
	d.EstimatedHours = floatPtr(estHours)
	d.ActualHours = floatPtr(actHours)
	d.ClosedAt = timePtr(closedAt)
	return &d, nil
}

func getDefect(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}, id int64) (*types.Defect, error) {
	row := q.QueryRowContext(ctx, `SELECT `+defectColumns+` FROM defects d WHERE d.id = ?`, id)
	d, err := scanDefect(row.Scan)
	if err != nil {
		return nil, notFound("defect", id, err)
	}
	return d, nil
}

// GetDefect retrieves a defect by ID
func (s *Store) GetDefect(ctx context.Context, id int64) (*types.Defect, error) {
	return getDefect(ctx, s.db, id)
}

// GetDefectByNumber retrieves a defect by its human-readable number
func (s *Store) GetDefectByNumber(ctx context.Context, number string) (*types.Defect, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+defectColumns+` FROM defects d WHERE d.number = ?`, number)
	d, err := scanDefect(row.Scan)
	if err != nil {
		return nil, notFound("defect", 0, err)
	}
	return d, nil
}

// SearchDefects returns defects matching the filter, newest first.
func (s *Store) SearchDefects(ctx context.Context, filter types.DefectFilter) ([]*types.Defect, error) {
	query := `SELECT ` + defectColumns + ` FROM defects d`
	var joins []string
	var conds []string
	var args []interface{}

	if filter.Status != "" {
		joins = append(joins, `JOIN defect_statuses st ON st.id = d.status_id`)
		conds = append(conds, `st.name = ?`)
		args = append(args, filter.Status)
	}
	if filter.Priority != "" {
		joins = append(joins, `JOIN priorities pr ON pr.id = d.priority_id`)
		conds = append(conds, `pr.name = ?`)
		args = append(args, filter.Priority)
	}
	if filter.ProjectID != nil {
		conds = append(conds, `d.project_id = ?`)
		args = append(args, *filter.ProjectID)
	}
	if filter.Assignee != nil {
		conds = append(conds, `d.assignee_id = ?`)
		args = append(args, *filter.Assignee)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		conds = append(conds, `(LOWER(d.title) LIKE ? OR LOWER(d.description) LIKE ?)`)
		args = append(args, pattern, pattern)
	}

	if len(joins) > 0 {
		query += " " + strings.Join(joins, " ")
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY d.created_at DESC, d.id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("search defects", err)
	}
	defer rows.Close()

	var defects []*types.Defect
	for rows.Next() {
		d, err := scanDefect(rows.Scan)
		if err != nil {
			return nil, wrapDBError("scan defect", err)
		}
		defects = append(defects, d)
	}
	return defects, rows.Err()
}
