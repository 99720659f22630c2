package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// beginImmediateWithRetry starts an IMMEDIATE transaction on the given
// connection, retrying with exponential backoff while the database is
// locked by another writer.
//
// IMMEDIATE acquires a RESERVED lock up front, serializing concurrent
// writers; this is what makes defect-number allocation race-free. We
// use raw Exec instead of BeginTx because database/sql doesn't support
// transaction modes in BeginTx, and modernc.org/sqlite's BeginTx always
// uses DEFERRED mode.
func beginImmediateWithRetry(ctx context.Context, conn *sql.Conn) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 10 * time.Millisecond
	bo.MaxInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = 10 * time.Second

	return backoff.Retry(func() error {
		_, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE")
		if err == nil {
			return nil
		}
		if isBusy(err) {
			return err // retryable
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(bo, ctx))
}

// nullStr converts an empty string to NULL.
func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// strPtr converts a nullable column to *string.
func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

// timePtr converts a nullable column to *time.Time.
func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// int64Ptr converts a nullable column to *int64.
func int64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

// floatPtr converts a nullable column to *float64.
func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	v := nf.Float64
	return &v
}
