package verto

import (
	"time"

	"github.com/syssam/verto/dialect/sql"
)

// ResultSet holds normalized rows. Each row is a column-name keyed map
// with an explicit nil for SQL NULL.
type ResultSet = sql.ResultSet

// Result is the outcome of one operation.
type Result struct {
	// SQL is the generated statement text, kept for auditing. Bulk
	// operations report the statement of their first row.
	SQL string
	// Params holds the named parameters bound to the statement. Raw
	// statements keep their positional arguments and leave Params nil.
	Params map[string]any
	// Rows holds the normalized rows of a row-returning action.
	Rows *ResultSet
	// Affected is the number of rows changed by a write action.
	Affected int64
	// LastInsertID is the driver-reported last insert id, on backends
	// that support it.
	LastInsertID int64
	// Committed is the number of rows a bulk action committed.
	Committed int
	// Batches is the number of batches a bulk action executed.
	Batches int
	// Warnings carries validation warnings, such as an update without
	// a where clause.
	Warnings []Warning
	// Cached reports whether Rows was served from the result cache.
	Cached bool
	// Duration is the total execution time of the operation.
	Duration time.Duration
}
