package dialect

import (
	"context"
)

// Dialect tags for the supported database families.
const (
	// Postgres is the dialect tag for PostgreSQL and compatible engines.
	Postgres = "postgres"
	// MySQL is the dialect tag for MySQL/MariaDB.
	MySQL = "mysql"
	// SQLServer is the dialect tag for Microsoft SQL Server.
	SQLServer = "sqlserver"
	// SQLite is the dialect tag for SQLite.
	SQLite = "sqlite"
)

// All returns the supported dialect tags in a stable order.
func All() []string {
	return []string{Postgres, MySQL, SQLServer, SQLite}
}

// IsValid reports whether s is one of the supported dialect tags.
func IsValid(s string) bool {
	switch s {
	case Postgres, MySQL, SQLServer, SQLite:
		return true
	}
	return false
}

// ExecQuerier wraps the two standard database operations.
//
// The args parameter is expected to be a []any holding the bound
// parameters in placeholder order. The v parameter is the scan target:
// *Rows for Query, nil or *sql.Result for Exec.
type ExecQuerier interface {
	// Exec executes a statement that does not return rows.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a statement that returns rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the minimal interface the execution layer requires from a
// database connection. It is implemented by dialect/sql.Driver and by
// the decorators wrapping it.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	Tx(ctx context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect tag of the driver.
	Dialect() string
}

// Tx wraps transactional execution. It is returned by Driver.Tx and
// must be finished with exactly one of Commit or Rollback.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}
