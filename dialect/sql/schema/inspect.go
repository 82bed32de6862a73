// Package schema inspects table and column metadata through the
// dialect-specific catalog queries.
package schema

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"strings"

	"github.com/syssam/verto/dialect"
	"github.com/syssam/verto/dialect/sql"
)

// Column describes a single column of an inspected table.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Default  stdsql.NullString
}

// Table describes an inspected table.
type Table struct {
	Name    string
	Columns []*Column
}

// Inspector reads table and column metadata from a live database using the
// dialect's native catalog queries.
type Inspector struct {
	drv dialect.Driver
}

// NewInspector returns an Inspector backed by drv.
func NewInspector(drv dialect.Driver) *Inspector {
	return &Inspector{drv: drv}
}

// Tables returns the names of all user tables in the connected database.
// Internal tables, such as the sqlite_ catalog on SQLite, are excluded.
func (i *Inspector) Tables(ctx context.Context) ([]string, error) {
	query, args, err := TablesQuery(i.drv.Dialect())
	if err != nil {
		return nil, err
	}
	rows := &sql.Rows{}
	if err := i.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("schema: list tables: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("schema: scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Columns returns the column metadata of the given table in definition
// order.
func (i *Inspector) Columns(ctx context.Context, table string) ([]*Column, error) {
	if !sql.ValidIdent(table) {
		return nil, fmt.Errorf("schema: invalid table name %q", table)
	}
	query, args, err := DescribeQuery(i.drv.Dialect(), table)
	if err != nil {
		return nil, err
	}
	rows := &sql.Rows{}
	if err := i.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("schema: describe %s: %w", table, err)
	}
	defer rows.Close()
	return ScanColumns(i.drv.Dialect(), rows)
}

// Describe runs the dialect's native table description statement and
// returns the raw rows. PostgreSQL and SQL Server read
// information_schema.columns, MySQL runs DESCRIBE and SQLite runs
// PRAGMA table_info.
func (i *Inspector) Describe(ctx context.Context, table string) (*sql.ResultSet, error) {
	if !sql.ValidIdent(table) {
		return nil, fmt.Errorf("schema: invalid table name %q", table)
	}
	query, args, err := DescribeQuery(i.drv.Dialect(), table)
	if err != nil {
		return nil, err
	}
	rows := &sql.Rows{}
	if err := i.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("schema: describe %s: %w", table, err)
	}
	defer rows.Close()
	return sql.ScanRows(rows)
}

// Inspect returns every user table with its columns.
func (i *Inspector) Inspect(ctx context.Context) ([]*Table, error) {
	names, err := i.Tables(ctx)
	if err != nil {
		return nil, err
	}
	tables := make([]*Table, 0, len(names))
	for _, name := range names {
		columns, err := i.Columns(ctx, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, &Table{Name: name, Columns: columns})
	}
	return tables, nil
}

// TablesQuery returns the dialect's statement for listing user tables.
func TablesQuery(dialectTag string) (string, []any, error) {
	switch dialectTag {
	case dialect.Postgres:
		return "SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() AND table_type = 'BASE TABLE' ORDER BY table_name", []any{}, nil
	case dialect.MySQL:
		return "SHOW TABLES", []any{}, nil
	case dialect.SQLServer:
		return "SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME", []any{}, nil
	case dialect.SQLite:
		return "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name", []any{}, nil
	}
	return "", nil, fmt.Errorf("schema: unsupported dialect %q", dialectTag)
}

// DescribeQuery returns the dialect's statement for describing the
// columns of a table. The table name must already be validated.
func DescribeQuery(dialectTag, table string) (string, []any, error) {
	switch dialectTag {
	case dialect.Postgres:
		return "SELECT column_name, data_type, is_nullable, column_default FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1 ORDER BY ordinal_position", []any{table}, nil
	case dialect.MySQL:
		// DESCRIBE does not support bound parameters, so the validated
		// table name is quoted into the statement.
		return "DESCRIBE " + sql.Quote(dialectTag, table), []any{}, nil
	case dialect.SQLServer:
		return "SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE, COLUMN_DEFAULT FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_NAME = @p0 ORDER BY ORDINAL_POSITION", []any{stdsql.Named("p0", table)}, nil
	case dialect.SQLite:
		return `PRAGMA table_info(` + sql.Quote(dialectTag, table) + `)`, []any{}, nil
	}
	return "", nil, fmt.Errorf("schema: unsupported dialect %q", dialectTag)
}

// ScanColumns scans the rows of a DescribeQuery statement into Column
// metadata, normalizing the dialect-specific catalog shapes.
func ScanColumns(dialectTag string, rows *sql.Rows) ([]*Column, error) {
	var columns []*Column
	for rows.Next() {
		c := &Column{}
		switch dialectTag {
		case dialect.Postgres, dialect.SQLServer:
			var nullable string
			if err := rows.Scan(&c.Name, &c.Type, &nullable, &c.Default); err != nil {
				return nil, fmt.Errorf("schema: scan column: %w", err)
			}
			c.Nullable = strings.EqualFold(nullable, "YES")
		case dialect.MySQL:
			var null string
			var key, extra stdsql.NullString
			if err := rows.Scan(&c.Name, &c.Type, &null, &key, &c.Default, &extra); err != nil {
				return nil, fmt.Errorf("schema: scan column: %w", err)
			}
			c.Nullable = strings.EqualFold(null, "YES")
		case dialect.SQLite:
			var cid, notnull, pk int
			if err := rows.Scan(&cid, &c.Name, &c.Type, &notnull, &c.Default, &pk); err != nil {
				return nil, fmt.Errorf("schema: scan column: %w", err)
			}
			c.Nullable = notnull == 0
		default:
			return nil, fmt.Errorf("schema: unsupported dialect %q", dialectTag)
		}
		columns = append(columns, c)
	}
	return columns, rows.Err()
}
