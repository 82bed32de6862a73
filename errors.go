package verto

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a lookup matches no rows.
	ErrNotFound = errors.New("verto: record not found")
)

// NotFoundError represents a lookup that matched no rows.
type NotFoundError struct {
	table string
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("verto: no rows in %s matched", e.table)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(err, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Table returns the table the lookup ran against.
func (e *NotFoundError) Table() string {
	return e.table
}

// NewNotFoundError returns a new NotFoundError for the given table.
func NewNotFoundError(table string) *NotFoundError {
	return &NotFoundError{table: table}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// ValidationError reports a malformed operation. It is returned before any
// statement is built or sent to the database.
type ValidationError struct {
	Action Action // operation kind being validated
	Name   string // offending field
	Err    error  // underlying reason
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("verto: validate %s: %s: %v", e.Action, e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError returns a new ValidationError for the given field.
func NewValidationError(action Action, name string, err error) *ValidationError {
	return &ValidationError{Action: action, Name: name, Err: err}
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationError
	return errors.As(err, &e)
}

// UnsupportedDialectError is returned when the requested dialect is not one
// of the supported backends.
type UnsupportedDialectError struct {
	Dialect string
}

// Error returns the error string.
func (e *UnsupportedDialectError) Error() string {
	return fmt.Sprintf("verto: unsupported dialect %q", e.Dialect)
}

// IsUnsupportedDialectError returns true if the error is an
// UnsupportedDialectError.
func IsUnsupportedDialectError(err error) bool {
	if err == nil {
		return false
	}
	var e *UnsupportedDialectError
	return errors.As(err, &e)
}

// UnsupportedActionError is returned when an operation cannot be expressed
// on the target dialect, such as EXPLAIN on SQL Server or a RETURNING
// clause outside PostgreSQL.
type UnsupportedActionError struct {
	Action  Action
	Dialect string
	Reason  string
}

// Error returns the error string.
func (e *UnsupportedActionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("verto: %s not supported on %s: %s", e.Action, e.Dialect, e.Reason)
	}
	return fmt.Sprintf("verto: %s not supported on %s", e.Action, e.Dialect)
}

// IsUnsupportedActionError returns true if the error is an
// UnsupportedActionError.
func IsUnsupportedActionError(err error) bool {
	if err == nil {
		return false
	}
	var e *UnsupportedActionError
	return errors.As(err, &e)
}

// SafetyViolationError is returned when the guard policy rejects a
// statement. The rejected SQL is carried on the field for auditing and is
// not included in the error string, since raw statements may embed
// sensitive values.
type SafetyViolationError struct {
	Keyword string // blocked keyword, empty when the denial is not keyword-based
	SQL     string // statement text that was rejected
	Err     error  // guard decision
}

// Error returns the error string.
func (e *SafetyViolationError) Error() string {
	if e.Keyword != "" {
		return fmt.Sprintf("verto: safety violation: statement contains blocked keyword %s", e.Keyword)
	}
	return fmt.Sprintf("verto: safety violation: %v", e.Err)
}

// Unwrap returns the guard decision.
func (e *SafetyViolationError) Unwrap() error {
	return e.Err
}

// IsSafetyViolationError returns true if the error is a
// SafetyViolationError.
func IsSafetyViolationError(err error) bool {
	if err == nil {
		return false
	}
	var e *SafetyViolationError
	return errors.As(err, &e)
}

// ExecutionError wraps a driver failure with the action and the generated
// SQL. The SQL text contains placeholders only; parameter values are never
// part of the error.
type ExecutionError struct {
	Action Action
	SQL    string
	Err    error
}

// Error returns the error string.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("verto: %s failed: %v", e.Action, e.Err)
}

// Unwrap returns the underlying driver error.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// NewExecutionError returns a new ExecutionError.
func NewExecutionError(action Action, sql string, err error) *ExecutionError {
	return &ExecutionError{Action: action, SQL: sql, Err: err}
}

// IsExecutionError returns true if the error is an ExecutionError.
func IsExecutionError(err error) bool {
	if err == nil {
		return false
	}
	var e *ExecutionError
	return errors.As(err, &e)
}

// PartialBulkError reports a bulk operation that stopped before completing.
// Rows committed before the failure stay committed; the failing row is
// identified by its 1-based position in the input.
type PartialBulkError struct {
	Committed int   // rows committed before the failure
	Batch     int   // 1-based batch number of the failing row
	Row       int   // 1-based row number within the whole input
	Err       error // underlying failure, usually an *ExecutionError
}

// Error returns the error string.
func (e *PartialBulkError) Error() string {
	return fmt.Sprintf("verto: bulk stopped at row %d (batch %d) after %d committed rows: %v",
		e.Row, e.Batch, e.Committed, e.Err)
}

// Unwrap returns the underlying error.
func (e *PartialBulkError) Unwrap() error {
	return e.Err
}

// IsPartialBulkError returns true if the error is a PartialBulkError.
func IsPartialBulkError(err error) bool {
	if err == nil {
		return false
	}
	var e *PartialBulkError
	return errors.As(err, &e)
}
