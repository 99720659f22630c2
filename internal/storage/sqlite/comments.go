package sqlite

import (
	"context"

	"github.com/sitedesk/punchlist/internal/types"
)

const commentColumns = `id, defect_id, author_id, content, created_at, updated_at`

// GetComment retrieves a comment by ID
func (s *Store) GetComment(ctx context.Context, id int64) (*types.Comment, error) {
	var c types.Comment
	err := s.db.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = ?`, id).
		Scan(&c.ID, &c.DefectID, &c.AuthorID, &c.Content, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound("comment", id, err)
	}
	return &c, nil
}

// GetDefectComments returns all comments on a defect, oldest first.
func (s *Store) GetDefectComments(ctx context.Context, defectID int64) ([]*types.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+commentColumns+` FROM comments WHERE defect_id = ? ORDER BY created_at, id
	`, defectID)
	if err != nil {
		return nil, wrapDBError("get defect comments", err)
	}
	defer rows.Close()

	var comments []*types.Comment
	for rows.Next() {
		var c types.Comment
		if err := rows.Scan(&c.ID, &c.DefectID, &c.AuthorID, &c.Content, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, wrapDBError("scan comment", err)
		}
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}
