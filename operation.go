package verto

import (
	"github.com/syssam/verto/dialect/sql"
)

// Action enumerates the supported operation kinds.
type Action string

// All supported actions.
const (
	ActionSelect     Action = "select"
	ActionInsert     Action = "insert"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionRaw        Action = "raw"
	ActionBulkInsert Action = "bulk_insert"
	ActionBulkUpdate Action = "bulk_update"
	ActionSchema     Action = "schema"
	ActionExplain    Action = "explain"
)

// Conditions describes a boolean filter over columns. A key maps a column
// name to either a scalar (equality), nil (IS NULL), a list (IN), or an
// operator map such as {">": 25, "<": 65}. Columns and operators are
// rendered in a stable sorted order.
type Conditions map[string]any

// Join describes one join clause of a Select.
type Join = sql.Join

// Operation is the closed set of operations a Client can run. The concrete
// types are Select, Insert, Update, Delete, Raw, BulkInsert, BulkUpdate,
// Schema and Explain.
type Operation interface {
	// Action returns the operation kind.
	Action() Action
	// validate reports required-field problems before any SQL is built,
	// along with warnings for suspicious but legal operations.
	validate(dialectTag string) ([]Warning, error)
}

// Select reads rows from a table.
type Select struct {
	Table   string
	Columns []string // projection, defaults to *
	Joins   []Join
	Where   Conditions
	GroupBy []string
	Having  Conditions
	OrderBy []string
	Limit   int
	Offset  int
}

// Action implements Operation.
func (Select) Action() Action { return ActionSelect }

// Insert writes one row. On PostgreSQL the inserted row comes back through
// a RETURNING clause; the other dialects report the affected count and the
// last insert id.
type Insert struct {
	Table  string
	Values map[string]any
	// Returning narrows the RETURNING projection on PostgreSQL. It
	// defaults to every column and is rejected on other dialects.
	Returning []string
}

// Action implements Operation.
func (Insert) Action() Action { return ActionInsert }

// Update modifies the rows matching Where. An empty Where updates every
// row in the table and yields a warning.
type Update struct {
	Table string
	Set   map[string]any
	Where Conditions
}

// Action implements Operation.
func (Update) Action() Action { return ActionUpdate }

// Delete removes the rows matching Where. An empty Where empties the
// table and yields a warning.
type Delete struct {
	Table string
	Where Conditions
}

// Action implements Operation.
func (Delete) Action() Action { return ActionDelete }

// Raw executes caller-provided SQL with positional arguments. The guard
// policy screens the statement unless Unsafe is set.
type Raw struct {
	SQL  string
	Args []any
	// Unsafe disables the default keyword scan for this statement.
	Unsafe bool
}

// Action implements Operation.
func (Raw) Action() Action { return ActionRaw }

// Explain reports the query plan for caller-provided SQL. SQL Server has
// no inline EXPLAIN statement and rejects this action.
type Explain struct {
	SQL  string
	Args []any
}

// Action implements Operation.
func (Explain) Action() Action { return ActionExplain }

// BulkInsert writes many rows in sequential batches. Every row executes
// as its own statement; on the first failure the operation stops and
// reports the rows committed so far.
type BulkInsert struct {
	Table string
	Rows  []map[string]any
	// BatchSize caps how many rows one batch holds. Zero means
	// DefaultBatchSize.
	BatchSize int
}

// Action implements Operation.
func (BulkInsert) Action() Action { return ActionBulkInsert }

// RowUpdate is one row change within a BulkUpdate.
type RowUpdate struct {
	Set   map[string]any
	Where Conditions
}

// BulkUpdate applies many row changes in sequential batches with the same
// failure policy as BulkInsert.
type BulkUpdate struct {
	Table     string
	Updates   []RowUpdate
	BatchSize int
}

// Action implements Operation.
func (BulkUpdate) Action() Action { return ActionBulkUpdate }

// Schema inspects the connected database. With a Table it describes that
// table's columns; without one it lists the user tables.
type Schema struct {
	Table string
}

// Action implements Operation.
func (Schema) Action() Action { return ActionSchema }
