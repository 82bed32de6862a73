// Package dialect defines the database dialect tags and the driver
// interfaces used by the query layer.
//
// # Supported Dialects
//
// Four dialect families are supported, identified by constant tags:
//
//	dialect.Postgres  = "postgres"
//	dialect.MySQL     = "mysql"
//	dialect.SQLServer = "sqlserver"
//	dialect.SQLite    = "sqlite"
//
// The tag selects identifier quoting, placeholder style, pagination
// syntax and RETURNING support in dialect/sql, and the driver name
// passed to database/sql when opening connections.
//
// # Driver Interface
//
// The Driver interface is the contract between statement execution and
// the underlying database:
//
//	type Driver interface {
//	    ExecQuerier
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// The ExecQuerier interface is the subset shared by drivers and
// transactions:
//
//	type ExecQuerier interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	}
//
// A transaction implements ExecQuerier plus Commit and Rollback.
//
// # Usage
//
// Opening a connection through the sql sub-package:
//
//	import (
//	    "github.com/syssam/verto/dialect"
//	    "github.com/syssam/verto/dialect/sql"
//	)
//
//	drv, err := sql.Open(dialect.Postgres, "postgres://localhost/app")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//
// # Sub-packages
//
//   - dialect/sql: statement builders, condition translation and the
//     database/sql-backed driver
//   - dialect/sql/schema: table listing and column introspection
package dialect
