// Package drivers registers the database/sql drivers for all supported
// dialects. Importing it for side effects is enough to open connections
// through dialect/sql:
//
//	import _ "github.com/syssam/verto/dialect/sql/drivers"
//
// The package also registers a gen_random_uuid SQL function on SQLite so
// that uuid-generating defaults behave the same as on PostgreSQL.
package drivers

import (
	"database/sql/driver"

	"github.com/google/uuid"
	"modernc.org/sqlite"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
)

func init() {
	// SQLite has no built-in gen_random_uuid.
	sqlite.MustRegisterScalarFunction("gen_random_uuid", 0, func(_ *sqlite.FunctionContext, _ []driver.Value) (driver.Value, error) {
		return uuid.NewString(), nil
	})
}
