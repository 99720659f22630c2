package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sitedesk/punchlist/internal/storage"
	"github.com/sitedesk/punchlist/internal/types"
)

// transaction implements storage.Transaction on a dedicated connection
// holding an open IMMEDIATE transaction. Reads through it see the
// transaction's own uncommitted writes.
type transaction struct {
	conn *sql.Conn
}

var _ storage.Transaction = (*transaction)(nil)

// RunInTransaction executes fn inside a single IMMEDIATE transaction.
// If fn returns an error or panics, the transaction is rolled back and
// no partial state is observable; otherwise it commits.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx storage.Transaction) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return wrapDBError("acquire connection", err)
	}
	defer conn.Close()

	if err := beginImmediateWithRetry(ctx, conn); err != nil {
		return wrapDBError("begin transaction", err)
	}

	committed := false
	defer func() {
		if !committed {
			// Fresh context: the caller's may already be cancelled, and
			// the rollback must still run to release the write lock.
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	if err := fn(&transaction{conn: conn}); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return wrapDBError("commit transaction", err)
	}
	committed = true
	return nil
}

// CreateDefect inserts a new defect inside the transaction. The defect
// number must already be allocated (NextDefectNumber) and formatted.
func (t *transaction) CreateDefect(ctx context.Context, defect *types.Defect) error {
	if err := defect.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if defect.CreatedAt.IsZero() {
		defect.CreatedAt = now
	}
	defect.UpdatedAt = now
	if defect.Version == 0 {
		defect.Version = 1
	}
	res, err := t.conn.ExecContext(ctx, `
		INSERT INTO defects (number, title, description, location, project_id,
			status_id, priority_id, reporter_id, assignee_id, due_date,
			estimated_hours, actual_hours, created_at, updated_at, closed_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, defect.Number, defect.Title, defect.Description, defect.Location, defect.ProjectID,
		defect.StatusID, defect.PriorityID, defect.ReporterID, defect.AssigneeID, defect.DueDate,
		defect.EstimatedHours, defect.ActualHours, defect.CreatedAt, defect.UpdatedAt,
		defect.ClosedAt, defect.Version)
	if err != nil {
		if isUniqueViolation(err) {
			return &types.ConflictError{Reason: "defect number already exists: " + defect.Number}
		}
		return wrapDBError("create defect", err)
	}
	defect.ID, err = res.LastInsertId()
	return wrapDBError("create defect", err)
}

// allowedDefectFields whitelists the columns UpdateDefect may touch.
// number, version, created_at, and the project binding are managed
// internally and never settable through updates.
var allowedDefectFields = map[string]bool{
	"title":           true,
	"description":     true,
	"location":        true,
	"status_id":       true,
	"priority_id":     true,
	"assignee_id":     true,
	"due_date":        true,
	"estimated_hours": true,
	"actual_hours":    true,
	"closed_at":       true,
}

// UpdateDefect applies a field update to one defect, guarded by the
// caller's expected version. The row's version is bumped on success; a
// stale version returns a ConflictError so concurrent editors of the
// same defect never silently overwrite each other.
func (t *transaction) UpdateDefect(ctx context.Context, id, version int64, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	query := `UPDATE defects SET `
	var args []interface{}
	for field, value := range updates {
		if !allowedDefectFields[field] {
			return &types.ValidationError{Field: field, Reason: "field cannot be updated"}
		}
		query += field + ` = ?, `
		args = append(args, value)
	}
	query += `updated_at = ?, version = version + 1 WHERE id = ? AND version = ?`
	args = append(args, time.Now().UTC(), id, version)

	res, err := t.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return wrapDBError("update defect", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapDBError("update defect", err)
	}
	if n == 0 {
		// Distinguish a missing row from a stale version.
		if _, err := t.GetDefect(ctx, id); err != nil {
			return err
		}
		return &types.ConflictError{
			Reason: fmt.Sprintf("defect %d was modified concurrently (expected version %d)", id, version),
		}
	}
	return nil
}

// DeleteDefect removes a defect. Comments and audit entries cascade.
func (t *transaction) DeleteDefect(ctx context.Context, id int64) error {
	res, err := t.conn.ExecContext(ctx, `DELETE FROM defects WHERE id = ?`, id)
	if err != nil {
		return wrapDBError("delete defect", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapDBError("delete defect", err)
	}
	if n == 0 {
		return &types.NotFoundError{Kind: "defect", ID: id}
	}
	return nil
}

// GetDefect reads a defect through the transaction's connection.
func (t *transaction) GetDefect(ctx context.Context, id int64) (*types.Defect, error) {
	return getDefect(ctx, t.conn, id)
}

// NextDefectNumber increments the global defect counter and returns the
// new value. The IMMEDIATE transaction already holds the write lock, so
// two concurrent creators can never observe the same value.
func (t *transaction) NextDefectNumber(ctx context.Context) (int64, error) {
	var value int64
	err := t.conn.QueryRowContext(ctx, `
		UPDATE counters SET value = value + 1 WHERE name = 'defect_number' RETURNING value
	`).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, storage.ErrNotInitialized
	}
	if err != nil {
		return 0, wrapDBError("next defect number", err)
	}
	return value, nil
}

// AddComment inserts a comment inside the transaction.
func (t *transaction) AddComment(ctx context.Context, comment *types.Comment) error {
	if comment.Content == "" {
		return &types.ValidationError{Field: "content", Reason: "content is required"}
	}
	now := time.Now().UTC()
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = now
	}
	comment.UpdatedAt = now
	res, err := t.conn.ExecContext(ctx, `
		INSERT INTO comments (defect_id, author_id, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, comment.DefectID, comment.AuthorID, comment.Content, comment.CreatedAt, comment.UpdatedAt)
	if err != nil {
		return wrapDBError("add comment", err)
	}
	comment.ID, err = res.LastInsertId()
	return wrapDBError("add comment", err)
}

// DeleteComment removes a comment.
func (t *transaction) DeleteComment(ctx context.Context, id int64) error {
	res, err := t.conn.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return wrapDBError("delete comment", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapDBError("delete comment", err)
	}
	if n == 0 {
		return &types.NotFoundError{Kind: "comment", ID: id}
	}
	return nil
}

// GetComment reads a comment through the transaction's connection.
func (t *transaction) GetComment(ctx context.Context, id int64) (*types.Comment, error) {
	var c types.Comment
	err := t.conn.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = ?`, id).
		Scan(&c.ID, &c.DefectID, &c.AuthorID, &c.Content, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound("comment", id, err)
	}
	return &c, nil
}

// AppendAudit writes one audit trail entry. Entries are append-only;
// there is no update or delete path.
func (t *transaction) AppendAudit(ctx context.Context, entry *types.AuditEntry) error {
	if !entry.ChangeType.IsValid() {
		return &types.ValidationError{Field: "change_type", Reason: fmt.Sprintf("invalid change type: %s", entry.ChangeType)}
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	res, err := t.conn.ExecContext(ctx, `
		INSERT INTO audit_log (defect_id, user_id, field_name, old_value, new_value, change_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.DefectID, entry.UserID, entry.FieldName, entry.OldValue, entry.NewValue, entry.ChangeType, entry.CreatedAt)
	if err != nil {
		return wrapDBError("append audit", err)
	}
	entry.ID, err = res.LastInsertId()
	return wrapDBError("append audit", err)
}
