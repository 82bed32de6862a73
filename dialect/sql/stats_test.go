package sql

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/syssam/verto/dialect"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStatsDriverCounters tests statement counting and error tracking.
func TestStatsDriverCounters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := NewStatsDriver(OpenDB(dialect.Postgres, db), WithSlowThreshold(time.Hour))
	ctx := context.Background()

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	rows := &Rows{}
	require.NoError(t, drv.Query(ctx, "SELECT id FROM users", []any{}, rows))
	require.NoError(t, rows.Close())

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	rows = &Rows{}
	require.NoError(t, drv.Query(ctx, "SELECT id FROM users", []any{}, rows))
	require.NoError(t, rows.Close())

	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, drv.Exec(ctx, "UPDATE users SET active = $1", []any{true}, nil))

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("boom"))
	rows = &Rows{}
	require.Error(t, drv.Query(ctx, "SELECT id FROM users", []any{}, rows))

	stats := drv.QueryStats().Stats()
	assert.Equal(t, int64(3), stats.TotalQueries)
	assert.Equal(t, int64(1), stats.TotalExecs)
	assert.Equal(t, int64(1), stats.Errors)
	assert.Equal(t, int64(0), stats.SlowQueries)
	assert.GreaterOrEqual(t, stats.TotalDuration, time.Duration(0))

	drv.QueryStats().Reset()
	assert.Equal(t, StatsSnapshot{}, drv.QueryStats().Stats())
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestStatsDriverSlowHook tests that the hook fires for statements over
// the threshold and receives the bound values.
func TestStatsDriverSlowHook(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var (
		hookQuery    string
		hookArgs     []any
		hookDuration time.Duration
	)
	drv := NewStatsDriver(OpenDB(dialect.Postgres, db),
		WithSlowThreshold(0),
		WithSlowQueryHook(func(_ context.Context, query string, args []any, duration time.Duration) {
			hookQuery = query
			hookArgs = args
			hookDuration = duration
		}),
	)

	mock.ExpectQuery("SELECT").
		WillDelayFor(time.Millisecond).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	rows := &Rows{}
	require.NoError(t, drv.Query(context.Background(), "SELECT id FROM users WHERE name = $1", []any{"slow"}, rows))
	require.NoError(t, rows.Close())

	assert.Equal(t, "SELECT id FROM users WHERE name = $1", hookQuery)
	assert.Equal(t, []any{"slow"}, hookArgs)
	assert.Greater(t, hookDuration, time.Duration(0))
	assert.Equal(t, int64(1), drv.QueryStats().Stats().SlowQueries)
}

// TestStatsDriverThreshold tests reading and updating the threshold.
func TestStatsDriverThreshold(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := NewStatsDriver(OpenDB(dialect.Postgres, db))
	assert.Equal(t, 100*time.Millisecond, drv.SlowThreshold())

	drv.SetSlowThreshold(time.Second)
	assert.Equal(t, time.Second, drv.SlowThreshold())
}

// TestStatsTx tests that transaction statements are recorded too.
func TestStatsTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := NewStatsDriver(OpenDB(dialect.Postgres, db), WithSlowThreshold(time.Hour))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := drv.Tx(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Exec(context.Background(), "INSERT INTO users (name) VALUES ($1)", []any{"Alice"}, nil))
	require.NoError(t, tx.Commit())

	assert.Equal(t, int64(1), drv.QueryStats().Stats().TotalExecs)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestStatsSnapshot tests snapshot formatting and averaging.
func TestStatsSnapshot(t *testing.T) {
	s := StatsSnapshot{
		TotalQueries:  2,
		TotalExecs:    1,
		TotalDuration: 300 * time.Millisecond,
		SlowQueries:   1,
	}
	assert.Equal(t, 100*time.Millisecond, s.AvgQueryDuration())
	assert.Equal(t, "queries=2 execs=1 duration=300ms avg=100ms slow=1 errors=0", s.String())
	assert.Equal(t, time.Duration(0), StatsSnapshot{}.AvgQueryDuration())
}

// TestDebugDriver tests that logged lines carry the SQL text and the
// parameter count but never the parameter values.
func TestDebugDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var lines []string
	drv := NewDebugDriver(OpenDB(dialect.Postgres, db), DebugWithLog(func(_ context.Context, v ...any) {
		for _, entry := range v {
			lines = append(lines, entry.(string))
		}
	}))

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	rows := &Rows{}
	require.NoError(t, drv.Query(context.Background(), "SELECT id FROM users WHERE token = $1", []any{"secret-value"}, rows))
	require.NoError(t, rows.Close())

	mock.ExpectExec("DELETE").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, drv.Exec(context.Background(), "DELETE FROM sessions WHERE token = $1", []any{"secret-value"}, nil))

	require.Len(t, lines, 2)
	assert.Equal(t, "query: SELECT id FROM users WHERE token = $1 params: 1", lines[0])
	assert.Equal(t, "exec: DELETE FROM sessions WHERE token = $1 params: 1", lines[1])
	for _, line := range lines {
		assert.NotContains(t, line, "secret-value")
	}
}

// TestDebugTx tests the per-transaction id correlating its log lines.
func TestDebugTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var lines []string
	drv := NewDebugDriver(OpenDB(dialect.Postgres, db), DebugWithLog(func(_ context.Context, v ...any) {
		for _, entry := range v {
			lines = append(lines, entry.(string))
		}
	}))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := drv.Tx(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Exec(context.Background(), "INSERT INTO users (name) VALUES ($1)", []any{"Alice"}, nil))
	require.NoError(t, tx.Commit())

	require.Len(t, lines, 3)
	start := lines[0]
	require.True(t, strings.HasPrefix(start, "driver.Tx("))
	id := start[len("driver.Tx(") : len(start)-len("): started")]
	assert.NotEmpty(t, id)
	assert.Equal(t, "Tx("+id+") exec: INSERT INTO users (name) VALUES ($1) params: 1", lines[1])
	assert.Equal(t, "Tx("+id+"): committed", lines[2])
}

// TestOpenWithStats tests the open helper.
func TestOpenWithStats(t *testing.T) {
	drv, stats, err := OpenWithStats(dialect.SQLite, "file:openstats?mode=memory")
	require.NoError(t, err)
	defer drv.Close()

	require.NotNil(t, stats)
	assert.Same(t, stats, drv.QueryStats())
	assert.Equal(t, dialect.SQLite, drv.Dialect())

	_, _, err = OpenWithStats("bogus", "dsn")
	assert.Error(t, err)
}
