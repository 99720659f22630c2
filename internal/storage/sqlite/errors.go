package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sitedesk/punchlist/internal/types"
)

// wrapDBError wraps a database error with operation context.
// sql.ErrNoRows is left unwrapped here; callers that know the entity
// kind convert it to a typed NotFoundError via notFound.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// notFound converts sql.ErrNoRows into a typed NotFoundError for the
// given entity kind, passing other errors through with context.
func notFound(kind string, id int64, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &types.NotFoundError{Kind: kind, ID: id}
	}
	return wrapDBError("get "+kind, err)
}

// isUniqueViolation reports whether err is a SQLite unique constraint
// failure. modernc.org/sqlite surfaces these as "constraint failed:
// UNIQUE constraint failed: <table>.<column> (2067)".
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isBusy reports whether err is SQLITE_BUSY / "database is locked",
// the retryable lock contention errors.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "(5)") // SQLITE_BUSY primary result code
}
