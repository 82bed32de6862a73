package sql

import (
	"strconv"
)

// ResultSet is the normalized shape query results are materialized
// into: ordered column names plus one map per row. Values keep the
// native driver type; NULL becomes an explicit nil entry.
type ResultSet struct {
	Columns []string         `msgpack:"columns"`
	Rows    []map[string]any `msgpack:"rows"`
}

// Len returns the number of rows.
func (rs *ResultSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Rows)
}

// First returns the first row, if any.
func (rs *ResultSet) First() (map[string]any, bool) {
	if rs.Len() == 0 {
		return nil, false
	}
	return rs.Rows[0], true
}

// ScanRows drains the scanner into a ResultSet. The scanner is not
// closed; that stays with the caller. If a statement returns the same
// column name twice, the later value wins in the row map while
// Columns keeps every occurrence.
func ScanRows(rows ColumnScanner) (*ResultSet, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	rs := &ResultSet{Columns: columns, Rows: []map[string]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		dests := make([]any, len(columns))
		for i := range values {
			dests[i] = &values[i]
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		rs.Rows = append(rs.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}

// AsString converts a scanned value to a string. MySQL's text
// protocol hands most values over as []byte.
func AsString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	}
	return "", false
}

// AsInt64 converts a scanned value to an int64.
func AsInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	case uint64:
		return int64(n), true
	case []byte:
		i, err := strconv.ParseInt(string(n), 10, 64)
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}
