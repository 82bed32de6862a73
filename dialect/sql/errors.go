package sql

import (
	"errors"
	"fmt"
	"strings"
)

// ConstraintError is returned when the database rejects a statement because
// of a constraint violation. The original driver error is available through
// Unwrap.
type ConstraintError struct {
	msg  string
	wrap error
}

// Error returns the error string.
func (e *ConstraintError) Error() string {
	return fmt.Sprintf("dialect/sql: constraint failed: %s", e.msg)
}

// Unwrap returns the underlying driver error.
func (e *ConstraintError) Unwrap() error {
	return e.wrap
}

// Driver errors expose their codes through different interfaces depending on
// the backend. Detection tries each interface in order and falls back to
// message fragments for drivers that return plain errors.
type (
	// sqlStateError is implemented by github.com/lib/pq and pgx errors.
	sqlStateError interface {
		SQLState() string
	}

	// errorCoder is implemented by drivers that report string error codes.
	errorCoder interface {
		Code() string
	}

	// errorNumberer is implemented by drivers that report MySQL-style
	// numeric error codes.
	errorNumberer interface {
		Number() uint16
	}

	// errorSQLNumberer is implemented by github.com/microsoft/go-mssqldb
	// errors.
	errorSQLNumberer interface {
		SQLErrorNumber() int32
	}
)

// PostgreSQL SQLSTATE codes for constraint violations (class 23).
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// constraintClass describes how one constraint family surfaces across the
// supported backends.
type constraintClass struct {
	state     string   // PostgreSQL SQLSTATE
	numbers   []uint16 // MySQL error numbers
	mssql     []int32  // SQL Server error numbers
	fragments []string // message fragments for drivers without typed errors
}

var (
	uniqueViolation = constraintClass{
		state:   pgUniqueViolation,
		numbers: []uint16{1062},
		mssql:   []int32{2601, 2627},
		fragments: []string{
			"Error 1062",                 // MySQL
			"violates unique constraint", // PostgreSQL
			"UNIQUE constraint failed",   // SQLite
			"Violation of UNIQUE KEY",    // SQL Server
			"Violation of PRIMARY KEY",   // SQL Server
		},
	}
	// SQL Server reports both foreign-key and check violations as error 547,
	// so those two classes are told apart by message fragments only.
	foreignKeyViolation = constraintClass{
		state:   pgForeignKeyViolation,
		numbers: []uint16{1451, 1452},
		fragments: []string{
			"Error 1451",                      // MySQL, cannot delete or update a parent row
			"Error 1452",                      // MySQL, cannot add or update a child row
			"violates foreign key constraint", // PostgreSQL
			"FOREIGN KEY constraint failed",   // SQLite
			"FOREIGN KEY constraint",          // SQL Server
		},
	}
	checkViolation = constraintClass{
		state:   pgCheckViolation,
		numbers: []uint16{3819},
		fragments: []string{
			"Error 3819",                // MySQL
			"violates check constraint", // PostgreSQL
			"CHECK constraint failed",   // SQLite
			"CHECK constraint",          // SQL Server
		},
	}
)

// matches reports whether err carries one of the class signals.
func (c constraintClass) matches(err error) bool {
	if e, ok := asError[sqlStateError](err); ok && e.SQLState() == c.state {
		return true
	}
	if e, ok := asError[errorCoder](err); ok && e.Code() == c.state {
		return true
	}
	if e, ok := asError[errorNumberer](err); ok {
		for _, n := range c.numbers {
			if e.Number() == n {
				return true
			}
		}
	}
	if e, ok := asError[errorSQLNumberer](err); ok {
		for _, n := range c.mssql {
			if e.SQLErrorNumber() == n {
				return true
			}
		}
	}
	return containsAny(err.Error(), c.fragments...)
}

// IsConstraintError reports whether err resulted from any database
// constraint violation.
func IsConstraintError(err error) bool {
	var e *ConstraintError
	return errors.As(err, &e) ||
		IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err) ||
		IsCheckConstraintError(err)
}

// IsUniqueConstraintError reports whether err was caused by a uniqueness
// constraint violation, such as a duplicate value in a unique index.
func IsUniqueConstraintError(err error) bool {
	return err != nil && uniqueViolation.matches(err)
}

// IsForeignKeyConstraintError reports whether err was caused by a
// foreign-key constraint violation, such as a missing parent row.
func IsForeignKeyConstraintError(err error) bool {
	return err != nil && foreignKeyViolation.matches(err)
}

// IsCheckConstraintError reports whether err was caused by a check
// constraint violation.
func IsCheckConstraintError(err error) bool {
	return err != nil && checkViolation.matches(err)
}

// WrapConstraint wraps recognized constraint violations in a
// *ConstraintError and returns every other error unchanged.
func WrapConstraint(err error) error {
	switch {
	case err == nil:
		return nil
	case IsUniqueConstraintError(err):
		return &ConstraintError{msg: "unique constraint violation", wrap: err}
	case IsForeignKeyConstraintError(err):
		return &ConstraintError{msg: "foreign key constraint violation", wrap: err}
	case IsCheckConstraintError(err):
		return &ConstraintError{msg: "check constraint violation", wrap: err}
	default:
		return err
	}
}

// asError extracts an error implementing T from the unwrap chain.
func asError[T any](err error) (T, bool) {
	var zero T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return zero, false
}

// containsAny reports whether s contains any of the given substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
