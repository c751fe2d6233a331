package services

import (
	"context"
	"database/sql"
	"strings"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// execer is satisfied by *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// rollback is deferred after BeginTx; it is a no-op once the tx has committed
func rollback(tx *sql.Tx) {
	_ = tx.Rollback()
}

// prefixed qualifies a column list with a table alias
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
