package verto

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/syssam/verto/dialect/sql"
)

// DefaultBatchSize is the batch size bulk operations use when none is set.
const DefaultBatchSize = 1000

// Warning codes reported by operation validation.
const (
	// WarnUnboundedUpdate flags an update or bulk update row without a
	// where clause.
	WarnUnboundedUpdate = "unbounded_update"
	// WarnUnboundedDelete flags a delete without a where clause.
	WarnUnboundedDelete = "unbounded_delete"
	// WarnEmptyInList flags a condition whose list value is empty. The
	// generated clause matches no rows.
	WarnEmptyInList = "empty_in_list"
)

// Warning flags a suspicious but legal operation. Warnings never stop
// execution.
type Warning struct {
	Code    string
	Message string
}

var (
	errMissing = errors.New("required field is missing")
	errEmpty   = errors.New("must not be empty")
)

// validTable checks the table name of an operation.
func validTable(action Action, table string) error {
	switch {
	case table == "":
		return NewValidationError(action, "table", errMissing)
	case !sql.ValidIdent(table):
		return NewValidationError(action, "table", fmt.Errorf("invalid identifier %q", table))
	}
	return nil
}

// emptyListWarnings reports a warning per condition column whose value is
// an empty list. Byte slices count as scalars.
func emptyListWarnings(cond Conditions) []Warning {
	if len(cond) == 0 {
		return nil
	}
	columns := make([]string, 0, len(cond))
	for column := range cond {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	var warnings []Warning
	for _, column := range columns {
		v := cond[column]
		if _, ok := v.([]byte); ok {
			continue
		}
		rv := reflect.ValueOf(v)
		if v != nil && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Len() == 0 {
			warnings = append(warnings, Warning{
				Code:    WarnEmptyInList,
				Message: fmt.Sprintf("condition on %q has an empty list and matches no rows", column),
			})
		}
	}
	return warnings
}

// validBatchSize rejects negative batch sizes. Zero means the default.
func validBatchSize(action Action, size int) error {
	if size < 0 {
		return NewValidationError(action, "batch_size", fmt.Errorf("must not be negative, got %d", size))
	}
	return nil
}

func (s Select) validate(string) ([]Warning, error) {
	if err := validTable(ActionSelect, s.Table); err != nil {
		return nil, err
	}
	warnings := emptyListWarnings(s.Where)
	warnings = append(warnings, emptyListWarnings(s.Having)...)
	return warnings, nil
}

func (i Insert) validate(dialectTag string) ([]Warning, error) {
	if err := validTable(ActionInsert, i.Table); err != nil {
		return nil, err
	}
	if len(i.Values) == 0 {
		return nil, NewValidationError(ActionInsert, "values", errEmpty)
	}
	if len(i.Returning) > 0 && !sql.SupportsReturning(dialectTag) {
		return nil, &UnsupportedActionError{
			Action:  ActionInsert,
			Dialect: dialectTag,
			Reason:  "RETURNING requires PostgreSQL",
		}
	}
	return nil, nil
}

func (u Update) validate(string) ([]Warning, error) {
	if err := validTable(ActionUpdate, u.Table); err != nil {
		return nil, err
	}
	if len(u.Set) == 0 {
		return nil, NewValidationError(ActionUpdate, "set", errEmpty)
	}
	var warnings []Warning
	if len(u.Where) == 0 {
		warnings = append(warnings, Warning{
			Code:    WarnUnboundedUpdate,
			Message: fmt.Sprintf("update on %s has no where clause and affects every row", u.Table),
		})
	}
	return append(warnings, emptyListWarnings(u.Where)...), nil
}

func (d Delete) validate(string) ([]Warning, error) {
	if err := validTable(ActionDelete, d.Table); err != nil {
		return nil, err
	}
	var warnings []Warning
	if len(d.Where) == 0 {
		warnings = append(warnings, Warning{
			Code:    WarnUnboundedDelete,
			Message: fmt.Sprintf("delete on %s has no where clause and removes every row", d.Table),
		})
	}
	return append(warnings, emptyListWarnings(d.Where)...), nil
}

func (r Raw) validate(string) ([]Warning, error) {
	if r.SQL == "" {
		return nil, NewValidationError(ActionRaw, "sql", errMissing)
	}
	return nil, nil
}

func (e Explain) validate(dialectTag string) ([]Warning, error) {
	if e.SQL == "" {
		return nil, NewValidationError(ActionExplain, "sql", errMissing)
	}
	if _, ok := sql.ExplainPrefix(dialectTag); !ok {
		return nil, &UnsupportedActionError{
			Action:  ActionExplain,
			Dialect: dialectTag,
			Reason:  "no inline EXPLAIN statement",
		}
	}
	return nil, nil
}

func (b BulkInsert) validate(string) ([]Warning, error) {
	if err := validTable(ActionBulkInsert, b.Table); err != nil {
		return nil, err
	}
	if len(b.Rows) == 0 {
		return nil, NewValidationError(ActionBulkInsert, "rows", errEmpty)
	}
	if err := validBatchSize(ActionBulkInsert, b.BatchSize); err != nil {
		return nil, err
	}
	for n, row := range b.Rows {
		if len(row) == 0 {
			return nil, NewValidationError(ActionBulkInsert, fmt.Sprintf("rows[%d]", n), errEmpty)
		}
	}
	return nil, nil
}

func (b BulkUpdate) validate(string) ([]Warning, error) {
	if err := validTable(ActionBulkUpdate, b.Table); err != nil {
		return nil, err
	}
	if len(b.Updates) == 0 {
		return nil, NewValidationError(ActionBulkUpdate, "updates", errEmpty)
	}
	if err := validBatchSize(ActionBulkUpdate, b.BatchSize); err != nil {
		return nil, err
	}
	var warnings []Warning
	for n, u := range b.Updates {
		if len(u.Set) == 0 {
			return nil, NewValidationError(ActionBulkUpdate, fmt.Sprintf("updates[%d].set", n), errEmpty)
		}
		if len(u.Where) == 0 {
			warnings = append(warnings, Warning{
				Code:    WarnUnboundedUpdate,
				Message: fmt.Sprintf("updates[%d] has no where clause and affects every row", n),
			})
		}
	}
	return warnings, nil
}

func (s Schema) validate(string) ([]Warning, error) {
	if s.Table != "" && !sql.ValidIdent(s.Table) {
		return nil, NewValidationError(ActionSchema, "table", fmt.Errorf("invalid identifier %q", s.Table))
	}
	return nil, nil
}

// batchSize resolves the effective batch size.
func batchSize(size int) int {
	if size <= 0 {
		return DefaultBatchSize
	}
	return size
}

// batchCount reports how many batches a bulk input of n rows needs.
func batchCount(n, size int) int {
	if n == 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Ensure every operation type implements Operation.
var _ = []Operation{
	Select{}, Insert{}, Update{}, Delete{}, Raw{},
	BulkInsert{}, BulkUpdate{}, Schema{}, Explain{},
}
