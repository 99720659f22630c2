package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/sitedesk/punchlist/internal/types"
)

const auditColumns = `a.id, a.defect_id, a.user_id, a.field_name, a.old_value, a.new_value, a.change_type, a.created_at`

func scanAuditEntry(scan func(dest ...interface{}) error) (*types.AuditEntry, error) {
	var e types.AuditEntry
	var oldVal, newVal sql.NullString
	err := scan(&e.ID, &e.DefectID, &e.UserID, &e.FieldName, &oldVal, &newVal, &e.ChangeType, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.OldValue = strPtr(oldVal)
	e.NewValue = strPtr(newVal)
	return &e, nil
}

// GetAuditEntries returns the audit trail for one defect, newest first.
// A limit of 0 means no limit.
func (s *Store) GetAuditEntries(ctx context.Context, defectID int64, limit int) ([]*types.AuditEntry, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_log a WHERE a.defect_id = ? ORDER BY a.created_at DESC, a.id DESC`
	args := []interface{}{defectID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("get audit entries", err)
	}
	defer rows.Close()
	return collectAuditEntries(rows)
}

// SearchAudit returns audit entries across a project whose actor name,
// defect title, or field name matches filterText (case-insensitive
// substring). Empty filterText matches everything. Newest first.
func (s *Store) SearchAudit(ctx context.Context, projectID int64, filterText string, limit int) ([]*types.AuditEntry, error) {
	query := `
		SELECT ` + auditColumns + `
		FROM audit_log a
		JOIN defects d ON d.id = a.defect_id
		LEFT JOIN users u ON u.id = a.user_id
		WHERE d.project_id = ?`
	args := []interface{}{projectID}

	if filterText != "" {
		pattern := "%" + strings.ToLower(filterText) + "%"
		query += `
		AND (LOWER(COALESCE(u.username, '')) LIKE ?
			OR LOWER(COALESCE(u.first_name || ' ' || u.last_name, '')) LIKE ?
			OR LOWER(d.title) LIKE ?
			OR LOWER(a.field_name) LIKE ?)`
		args = append(args, pattern, pattern, pattern, pattern)
	}
	query += ` ORDER BY a.created_at DESC, a.id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("search audit", err)
	}
	defer rows.Close()
	return collectAuditEntries(rows)
}

func collectAuditEntries(rows *sql.Rows) ([]*types.AuditEntry, error) {
	var entries []*types.AuditEntry
	for rows.Next() {
		e, err := scanAuditEntry(rows.Scan)
		if err != nil {
			return nil, wrapDBError("scan audit entry", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
