package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/sitedesk/punchlist/internal/types"
)

// CreateProject inserts a new project
func (s *Store) CreateProject(ctx context.Context, project *types.Project) error {
	if project.Status == "" {
		project.Status = types.ProjectActive
	}
	if err := project.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	project.UpdatedAt = now
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (name, description, status, address, manager_id, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, project.Name, project.Description, project.Status, project.Address,
		project.ManagerID, project.IsActive, project.CreatedAt, project.UpdatedAt)
	if err != nil {
		return wrapDBError("create project", err)
	}
	project.ID, err = res.LastInsertId()
	return wrapDBError("create project", err)
}

const projectColumns = `id, name, description, status, address, manager_id, is_active, created_at, updated_at`

func scanProject(scan func(dest ...interface{}) error) (*types.Project, error) {
	var p types.Project
	var managerID sql.NullInt64
	err := scan(&p.ID, &p.Name, &p.Description, &p.Status, &p.Address,
		&managerID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.ManagerID = int64Ptr(managerID)
	return &p, nil
}

// GetProject retrieves a project by ID
func (s *Store) GetProject(ctx context.Context, id int64) (*types.Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row.Scan)
	if err != nil {
		return nil, notFound("project", id, err)
	}
	return p, nil
}

// ListProjects returns all projects ordered by creation time
func (s *Store) ListProjects(ctx context.Context) ([]*types.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at`)
	if err != nil {
		return nil, wrapDBError("list projects", err)
	}
	defer rows.Close()

	var projects []*types.Project
	for rows.Next() {
		p, err := scanProject(rows.Scan)
		if err != nil {
			return nil, wrapDBError("scan project", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// DeleteProject removes a project. Defects, comments, audit entries and
// role grants cascade via foreign keys.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return wrapDBError("delete project", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapDBError("delete project", err)
	}
	if n == 0 {
		return &types.NotFoundError{Kind: "project", ID: id}
	}
	return nil
}

// ProjectMetrics returns aggregate defect counts for one project:
// total, in progress, and overdue (due date past, status non-final).
func (s *Store) ProjectMetrics(ctx context.Context, projectID int64) (*types.ProjectMetrics, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	var m types.ProjectMetrics
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN st.name = 'in_progress' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN d.due_date IS NOT NULL AND d.due_date < ? AND st.is_final = 0 THEN 1 ELSE 0 END), 0)
		FROM defects d
		JOIN defect_statuses st ON st.id = d.status_id
		WHERE d.project_id = ?
	`, time.Now().UTC(), projectID).Scan(&m.TotalDefects, &m.InProgress, &m.Overdue)
	if err != nil {
		return nil, wrapDBError("project metrics", err)
	}
	return &m, nil
}
