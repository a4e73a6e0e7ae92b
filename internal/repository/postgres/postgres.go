// Package postgres implements the service repositories on PostgreSQL via
// database/sql and lib/pq. Queries use $n placeholders; missing rows map to
// each service's sentinel errors.
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Querier is satisfied by *sql.DB and *sql.Tx, so a repository can run
// standalone or inside a caller's transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// isUUID guards UUID columns; Postgres rejects malformed input with an error
// rather than an empty result.
func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func uuidsOnly(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if isUUID(id) {
			out = append(out, id)
		}
	}
	return out
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func rollback(tx *sql.Tx) { _ = tx.Rollback() }
