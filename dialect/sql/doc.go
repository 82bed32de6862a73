// Package sql builds and executes parameterized SQL statements across
// database dialects (PostgreSQL, MySQL, SQL Server, SQLite).
//
// Statements are rendered with dialect-native placeholders ($1, ?,
// @p0) and carry their bound values in a named parameter set; values
// never appear in the SQL text.
//
// # Builder Types
//
// The package provides one builder per statement kind:
//
//   - Builder: low-level rendering context with identifier quoting
//   - Selector: SELECT builder with joins, predicates and pagination
//   - InsertBuilder: INSERT builder with RETURNING support on PostgreSQL
//   - UpdateBuilder: UPDATE builder with SET and WHERE clauses
//   - DeleteBuilder: DELETE builder with WHERE predicates
//
// # Dialect Support
//
// SQL generation adapts to the dialect tag:
//
//	import "github.com/syssam/verto/dialect"
//
//	stmt, err := sql.Dialect(dialect.Postgres).
//	    Select("id", "name").
//	    From("users").
//	    Where(sql.EQ("status", "active")).
//	    Build()
//
//	stmt.SQL()    // SELECT id, name FROM "users" WHERE status = $1
//	stmt.Args()   // [active]
//
// The same builder chain on dialect.MySQL quotes with backticks and
// renders ? placeholders; on dialect.SQLServer it renders brackets and
// @p0 named parameters.
//
// # Predicates
//
// Predicate constructors compose boolean filters:
//
//	sql.EQ("name", "john")                // name = $1
//	sql.GT("age", 18)                     // age > $1
//	sql.Like("email", "%@example.com")    // email LIKE $1
//	sql.IsNull("deleted_at")              // deleted_at IS NULL
//	sql.In("status", "active", "pending") // status IN ($1, $2)
//	sql.And(sql.GT("age", 25), sql.LT("age", 65))
//
// TranslateConditions builds the same predicates from a plain condition
// map, processing columns in sorted order so the output is
// deterministic.
//
// # Execution
//
// Open returns a Driver for a dialect tag and DSN; Pool shares drivers
// keyed by both. The StatsDriver and DebugDriver decorators add
// statistics collection and statement logging, and ScanRows
// materializes query results into a ResultSet of column-keyed maps.
package sql
