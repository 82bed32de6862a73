package schema

import (
	"context"
	stdsql "database/sql"
	"testing"

	"github.com/syssam/verto/dialect"
	"github.com/syssam/verto/dialect/sql"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTablesQuery tests the dialect catalog statements for listing
// user tables.
func TestTablesQuery(t *testing.T) {
	tests := []struct {
		dialect string
		want    string
	}{
		{dialect.Postgres, "SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() AND table_type = 'BASE TABLE' ORDER BY table_name"},
		{dialect.MySQL, "SHOW TABLES"},
		{dialect.SQLServer, "SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME"},
		{dialect.SQLite, "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"},
	}

	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			query, args, err := TablesQuery(tt.dialect)
			require.NoError(t, err)
			assert.Equal(t, tt.want, query)
			assert.Empty(t, args)
		})
	}

	t.Run("unsupported", func(t *testing.T) {
		_, _, err := TablesQuery("oracle")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unsupported dialect "oracle"`)
	})
}

// TestDescribeQuery tests the dialect statements for describing a
// table. The table name is bound as a parameter where the dialect
// allows it and quoted into the statement where it does not.
func TestDescribeQuery(t *testing.T) {
	t.Run("postgres", func(t *testing.T) {
		query, args, err := DescribeQuery(dialect.Postgres, "users")
		require.NoError(t, err)
		assert.Equal(t, "SELECT column_name, data_type, is_nullable, column_default FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1 ORDER BY ordinal_position", query)
		assert.Equal(t, []any{"users"}, args)
	})

	t.Run("mysql", func(t *testing.T) {
		query, args, err := DescribeQuery(dialect.MySQL, "users")
		require.NoError(t, err)
		assert.Equal(t, "DESCRIBE `users`", query)
		assert.Empty(t, args)
	})

	t.Run("sqlserver", func(t *testing.T) {
		query, args, err := DescribeQuery(dialect.SQLServer, "users")
		require.NoError(t, err)
		assert.Equal(t, "SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE, COLUMN_DEFAULT FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_NAME = @p0 ORDER BY ORDINAL_POSITION", query)
		assert.Equal(t, []any{stdsql.Named("p0", "users")}, args)
	})

	t.Run("sqlite", func(t *testing.T) {
		query, args, err := DescribeQuery(dialect.SQLite, "users")
		require.NoError(t, err)
		assert.Equal(t, `PRAGMA table_info("users")`, query)
		assert.Empty(t, args)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, _, err := DescribeQuery("oracle", "users")
		assert.Error(t, err)
	})
}

// TestInspectorTables tests listing tables through a driver.
func TestInspectorTables(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT table_name FROM information_schema.tables").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).
			AddRow("posts").
			AddRow("users"))

	inspector := NewInspector(sql.OpenDB(dialect.Postgres, db))
	tables, err := inspector.Tables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"posts", "users"}, tables)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestInspectorColumns tests normalizing the catalog shapes of each
// dialect into Column metadata.
func TestInspectorColumns(t *testing.T) {
	t.Run("postgres", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT column_name, data_type, is_nullable, column_default").
			WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "column_default"}).
				AddRow("id", "bigint", "NO", nil).
				AddRow("email", "text", "YES", "''::text"))

		inspector := NewInspector(sql.OpenDB(dialect.Postgres, db))
		columns, err := inspector.Columns(context.Background(), "users")
		require.NoError(t, err)
		require.Len(t, columns, 2)

		assert.Equal(t, &Column{Name: "id", Type: "bigint"}, columns[0])
		assert.Equal(t, &Column{
			Name:     "email",
			Type:     "text",
			Nullable: true,
			Default:  stdsql.NullString{String: "''::text", Valid: true},
		}, columns[1])
	})

	t.Run("mysql", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("DESCRIBE").
			WillReturnRows(sqlmock.NewRows([]string{"Field", "Type", "Null", "Key", "Default", "Extra"}).
				AddRow("id", "bigint(20)", "NO", "PRI", nil, "auto_increment").
				AddRow("name", "varchar(255)", "YES", "", nil, ""))

		inspector := NewInspector(sql.OpenDB(dialect.MySQL, db))
		columns, err := inspector.Columns(context.Background(), "users")
		require.NoError(t, err)
		require.Len(t, columns, 2)
		assert.Equal(t, "id", columns[0].Name)
		assert.False(t, columns[0].Nullable)
		assert.True(t, columns[1].Nullable)
	})

	t.Run("sqlite", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("PRAGMA table_info").
			WillReturnRows(sqlmock.NewRows([]string{"cid", "name", "type", "notnull", "dflt_value", "pk"}).
				AddRow(0, "id", "INTEGER", 1, nil, 1).
				AddRow(1, "email", "TEXT", 0, "''", 0))

		inspector := NewInspector(sql.OpenDB(dialect.SQLite, db))
		columns, err := inspector.Columns(context.Background(), "users")
		require.NoError(t, err)
		require.Len(t, columns, 2)
		assert.False(t, columns[0].Nullable)
		assert.True(t, columns[1].Nullable)
		assert.Equal(t, stdsql.NullString{String: "''", Valid: true}, columns[1].Default)
	})

	t.Run("invalid_table_name", func(t *testing.T) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		inspector := NewInspector(sql.OpenDB(dialect.Postgres, db))
		_, err = inspector.Columns(context.Background(), "users; DROP TABLE users")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid table name")
	})
}

// TestInspectorDescribe tests the raw description path.
func TestInspectorDescribe(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT column_name").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "column_default"}).
			AddRow("id", "bigint", "NO", nil))

	inspector := NewInspector(sql.OpenDB(dialect.Postgres, db))
	rs, err := inspector.Describe(context.Background(), "users")
	require.NoError(t, err)
	assert.Equal(t, []string{"column_name", "data_type", "is_nullable", "column_default"}, rs.Columns)
	assert.Equal(t, 1, rs.Len())
}

// TestInspectorInspect tests the combined table and column walk.
func TestInspectorInspect(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT name FROM sqlite_master").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("users"))
	mock.ExpectQuery("PRAGMA table_info").
		WillReturnRows(sqlmock.NewRows([]string{"cid", "name", "type", "notnull", "dflt_value", "pk"}).
			AddRow(0, "id", "INTEGER", 1, nil, 1))

	inspector := NewInspector(sql.OpenDB(dialect.SQLite, db))
	tables, err := inspector.Inspect(context.Background())
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "users", tables[0].Name)
	require.Len(t, tables[0].Columns, 1)
	assert.Equal(t, "id", tables[0].Columns[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}
