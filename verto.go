package verto

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/syssam/verto/dialect"
	"github.com/syssam/verto/dialect/sql"
	"github.com/syssam/verto/dialect/sql/schema"
	"github.com/syssam/verto/guard"
)

// defaultGuard is the safety scan applied to raw and explain statements
// when no policy is configured.
var defaultGuard = guard.Policy{guard.DenyKeywords(guard.DefaultDenylist...)}

// Client turns dialect-neutral operations into parameterized SQL,
// screens them through the guard policy and executes them on the
// configured driver.
//
// Example:
//
//	client, err := verto.NewClient(
//	    verto.WithConnection(dialect.Postgres, "postgres://localhost/app?sslmode=disable"),
//	    verto.WithCache(verto.NewMemoryCache(), time.Minute),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	res, err := client.Run(ctx, verto.Select{
//	    Table: "users",
//	    Where: verto.Conditions{"status": "active"},
//	    Limit: 10,
//	})
type Client struct {
	driver     dialect.Driver
	ownsDriver bool
	guard      guard.Policy
	hasGuard   bool
	cache      Cache
	cacheTTL   time.Duration
	timeout    time.Duration
	batchSize  int
	stats      *sql.QueryStats
}

type clientConfig struct {
	driver     dialect.Driver
	dialectTag string
	dsn        string
	pool       *sql.Pool
	guard      guard.Policy
	hasGuard   bool
	cache      Cache
	cacheTTL   time.Duration
	timeout    time.Duration
	batchSize  int
	debug      bool
	debugOpts  []sql.DebugOption
	stats      bool
	statsOpts  []sql.StatsOption
}

// Option configures a Client.
type Option func(*clientConfig)

// WithDriver runs the client on an existing driver. The caller stays
// responsible for closing it.
func WithDriver(drv dialect.Driver) Option {
	return func(cfg *clientConfig) {
		cfg.driver = drv
	}
}

// WithConnection opens a new connection for the given dialect tag and
// DSN. The client owns the connection and closes it on Close.
func WithConnection(dialectTag, dsn string) Option {
	return func(cfg *clientConfig) {
		cfg.dialectTag = dialectTag
		cfg.dsn = dsn
	}
}

// WithPool checks the driver out of the given pool. The pool owns the
// driver and Close leaves it open.
func WithPool(pool *sql.Pool, dialectTag, dsn string) Option {
	return func(cfg *clientConfig) {
		cfg.pool = pool
		cfg.dialectTag = dialectTag
		cfg.dsn = dsn
	}
}

// WithGuard sets the guard policy. A configured policy screens every
// statement, built or raw, and replaces the default keyword scan.
func WithGuard(policy guard.Policy) Option {
	return func(cfg *clientConfig) {
		cfg.guard = policy
		cfg.hasGuard = true
	}
}

// WithCache enables result caching for select statements. Cached
// entries expire after ttl; a ttl of 0 keeps them until a write on the
// same table invalidates them.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(cfg *clientConfig) {
		cfg.cache = cache
		cfg.cacheTTL = ttl
	}
}

// WithStatementTimeout bounds the execution time of each statement. A
// caller deadline that expires sooner still wins.
func WithStatementTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) {
		cfg.timeout = d
	}
}

// WithBatchSize sets the batch size bulk operations fall back to when
// they do not set one. The package default is DefaultBatchSize.
func WithBatchSize(n int) Option {
	return func(cfg *clientConfig) {
		cfg.batchSize = n
	}
}

// WithDebug logs every statement with the SQL text and the parameter
// count. Parameter values are never logged.
func WithDebug(opts ...sql.DebugOption) Option {
	return func(cfg *clientConfig) {
		cfg.debug = true
		cfg.debugOpts = opts
	}
}

// WithStats collects execution statistics, readable through
// Client.Stats.
func WithStats(opts ...sql.StatsOption) Option {
	return func(cfg *clientConfig) {
		cfg.stats = true
		cfg.statsOpts = opts
	}
}

// NewClient returns a Client configured by the given options. Exactly
// one driver source is required: WithDriver, WithPool or
// WithConnection, checked in that order.
func NewClient(opts ...Option) (*Client, error) {
	cfg := clientConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	drv, owns, err := cfg.resolveDriver()
	if err != nil {
		return nil, err
	}
	c := &Client{
		driver:     drv,
		ownsDriver: owns,
		guard:      cfg.guard,
		hasGuard:   cfg.hasGuard,
		cache:      cfg.cache,
		cacheTTL:   cfg.cacheTTL,
		timeout:    cfg.timeout,
		batchSize:  cfg.batchSize,
	}
	if cfg.debug || cfg.stats {
		base, ok := drv.(*sql.Driver)
		if !ok {
			return nil, fmt.Errorf("verto: debug and stats wrapping require a dialect/sql driver, got %T", drv)
		}
		switch {
		case cfg.debug && cfg.stats:
			return nil, errors.New("verto: WithDebug and WithStats cannot be combined")
		case cfg.debug:
			c.driver = sql.NewDebugDriver(base, cfg.debugOpts...)
		default:
			sd := sql.NewStatsDriver(base, cfg.statsOpts...)
			c.driver = sd
			c.stats = sd.QueryStats()
		}
	}
	return c, nil
}

func (cfg *clientConfig) resolveDriver() (dialect.Driver, bool, error) {
	switch {
	case cfg.driver != nil:
		return cfg.driver, false, nil
	case cfg.pool != nil:
		if !dialect.IsValid(cfg.dialectTag) {
			return nil, false, &UnsupportedDialectError{Dialect: cfg.dialectTag}
		}
		drv, err := cfg.pool.Get(cfg.dialectTag, cfg.dsn)
		if err != nil {
			return nil, false, err
		}
		return drv, false, nil
	case cfg.dialectTag != "":
		if !dialect.IsValid(cfg.dialectTag) {
			return nil, false, &UnsupportedDialectError{Dialect: cfg.dialectTag}
		}
		drv, err := sql.Open(cfg.dialectTag, cfg.dsn)
		if err != nil {
			return nil, false, fmt.Errorf("verto: open %s: %w", cfg.dialectTag, err)
		}
		return drv, true, nil
	default:
		return nil, false, errors.New("verto: no driver configured")
	}
}

// Dialect returns the dialect tag of the underlying driver.
func (c *Client) Dialect() string {
	return c.driver.Dialect()
}

// Driver returns the underlying driver.
func (c *Client) Driver() dialect.Driver {
	return c.driver
}

// Stats returns the execution statistics collected for this client, or
// nil unless WithStats was used.
func (c *Client) Stats() *sql.QueryStats {
	return c.stats
}

// Ping verifies the connection to the database is still alive. Drivers
// without a ping mechanism report success.
func (c *Client) Ping(ctx context.Context) error {
	if p, ok := c.driver.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close closes the underlying driver if the client owns it. Drivers
// passed in with WithDriver or checked out of a pool are left open.
func (c *Client) Close() error {
	if !c.ownsDriver {
		return nil
	}
	return c.driver.Close()
}

// Run validates op, builds its statement for the client's dialect,
// screens it through the guard policy and executes it. Validation and
// guard failures are returned before any driver I/O. The generated SQL
// is available on the Result and, for failures past the build step, on
// the returned error.
func (c *Client) Run(ctx context.Context, op Operation) (*Result, error) {
	return c.run(ctx, c.driver, op, true)
}

// Count returns the number of rows in table matching where.
func (c *Client) Count(ctx context.Context, table string, where Conditions) (int64, error) {
	res, err := c.Run(ctx, Select{Table: table, Columns: []string{"COUNT(*)"}, Where: where})
	if err != nil {
		return 0, err
	}
	row, ok := res.Rows.First()
	if !ok {
		return 0, nil
	}
	for _, v := range row {
		if n, ok := sql.AsInt64(v); ok {
			return n, nil
		}
	}
	return 0, fmt.Errorf("verto: count %s: non-numeric result", table)
}

// FindOne returns the first row in table matching where, or a
// NotFoundError if no row matches.
func (c *Client) FindOne(ctx context.Context, table string, where Conditions) (map[string]any, error) {
	res, err := c.Run(ctx, Select{Table: table, Where: where, Limit: 1})
	if err != nil {
		return nil, err
	}
	row, ok := res.Rows.First()
	if !ok {
		return nil, NewNotFoundError(table)
	}
	return row, nil
}

func (c *Client) run(ctx context.Context, conn dialect.ExecQuerier, op Operation, useCache bool) (*Result, error) {
	start := time.Now()
	stmt, warnings, err := Build(c.Dialect(), op)
	if err != nil {
		return nil, err
	}
	if err := c.screen(ctx, op, stmt); err != nil {
		return nil, err
	}
	var res *Result
	switch op := op.(type) {
	case Select:
		res, err = c.runSelect(ctx, conn, op, stmt, useCache)
	case Insert:
		res, err = c.runInsert(ctx, conn, op, stmt)
	case Update:
		res, err = c.runWrite(ctx, conn, ActionUpdate, op.Table, stmt)
	case Delete:
		res, err = c.runWrite(ctx, conn, ActionDelete, op.Table, stmt)
	case Raw:
		res, err = c.runRaw(ctx, conn, op, stmt)
	case Explain:
		res, err = c.queryResult(ctx, conn, ActionExplain, stmt)
	case Schema:
		res, err = c.runSchema(ctx, conn, op, stmt)
	case BulkInsert:
		res, err = c.runBulkInsert(ctx, conn, op)
	case BulkUpdate:
		res, err = c.runBulkUpdate(ctx, conn, op)
	default:
		err = &UnsupportedActionError{Action: op.Action(), Dialect: c.Dialect()}
	}
	if err != nil {
		return nil, err
	}
	res.SQL = stmt.SQL()
	if stmt.Params().Len() > 0 {
		res.Params = stmt.Params().Map()
	}
	res.Warnings = warnings
	res.Duration = time.Since(start)
	return res, nil
}

// screen evaluates the guard policy against a built statement. Without
// a configured policy, only raw and explain statements are scanned,
// using the default keyword denylist.
func (c *Client) screen(ctx context.Context, op Operation, stmt *sql.Statement) error {
	policy, ok := c.policyFor(op)
	if !ok {
		return nil
	}
	if err := policy.EvalStatement(ctx, stmt); err != nil {
		return safetyViolation(err, stmt)
	}
	return nil
}

func (c *Client) policyFor(op Operation) (guard.Policy, bool) {
	if c.hasGuard {
		return c.guard, true
	}
	switch op := op.(type) {
	case Raw:
		if op.Unsafe {
			return nil, false
		}
		return defaultGuard, true
	case Explain:
		return defaultGuard, true
	}
	return nil, false
}

// safetyViolation wraps a guard denial, carrying the rejected SQL on
// the error without printing it.
func safetyViolation(err error, stmt *sql.Statement) error {
	v := &SafetyViolationError{SQL: stmt.SQL(), Err: err}
	var kd *guard.KeywordDenial
	if errors.As(err, &kd) {
		v.Keyword = kd.Keyword
	}
	return v
}

// statementCtx applies the per-statement timeout. The timeout never
// extends a deadline the caller already set.
func (c *Client) statementCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) runSelect(ctx context.Context, conn dialect.ExecQuerier, op Select, stmt *sql.Statement, useCache bool) (*Result, error) {
	var key string
	if useCache && c.cache != nil {
		key = CacheKey{Table: op.Table, Dialect: c.Dialect(), SQL: stmt.SQL(), Params: stmt.Args()}.String()
		if data, err := c.cache.Get(ctx, key); err == nil && data != nil {
			if rows, err := decodeRows(data); err == nil {
				return &Result{Rows: rows, Cached: true}, nil
			}
		}
	}
	rows, err := c.queryRows(ctx, conn, ActionSelect, stmt)
	if err != nil {
		return nil, err
	}
	if key != "" {
		if data, err := encodeRows(rows); err == nil {
			_ = c.cache.Set(ctx, key, data, c.cacheTTL)
		}
	}
	return &Result{Rows: rows}, nil
}

func (c *Client) runInsert(ctx context.Context, conn dialect.ExecQuerier, op Insert, stmt *sql.Statement) (*Result, error) {
	// On PostgreSQL the statement carries a RETURNING clause and comes
	// back as rows.
	if sql.SupportsReturning(c.Dialect()) {
		rows, err := c.queryRows(ctx, conn, ActionInsert, stmt)
		if err != nil {
			return nil, err
		}
		c.invalidate(ctx, op.Table)
		return &Result{Rows: rows, Affected: int64(rows.Len())}, nil
	}
	return c.runWrite(ctx, conn, ActionInsert, op.Table, stmt)
}

func (c *Client) runWrite(ctx context.Context, conn dialect.ExecQuerier, action Action, table string, stmt *sql.Statement) (*Result, error) {
	res, err := c.execResult(ctx, conn, action, stmt)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, table)
	return res, nil
}

func (c *Client) runRaw(ctx context.Context, conn dialect.ExecQuerier, op Raw, stmt *sql.Statement) (*Result, error) {
	if rawReturnsRows(op.SQL) {
		return c.queryResult(ctx, conn, ActionRaw, stmt)
	}
	res, err := c.execResult(ctx, conn, ActionRaw, stmt)
	if err != nil {
		return nil, err
	}
	// A raw write can touch any table, so the whole cache goes.
	if c.cache != nil {
		_ = c.cache.Clear(ctx)
	}
	return res, nil
}

func (c *Client) runSchema(ctx context.Context, conn dialect.ExecQuerier, op Schema, stmt *sql.Statement) (*Result, error) {
	qctx, cancel := c.statementCtx(ctx)
	defer cancel()
	rows := &sql.Rows{}
	if err := conn.Query(qctx, stmt.SQL(), stmt.Args(), rows); err != nil {
		return nil, NewExecutionError(ActionSchema, stmt.SQL(), err)
	}
	defer rows.Close()
	if op.Table == "" {
		rs := &ResultSet{Columns: []string{"table_name"}, Rows: []map[string]any{}}
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return nil, NewExecutionError(ActionSchema, stmt.SQL(), err)
			}
			rs.Rows = append(rs.Rows, map[string]any{"table_name": name})
		}
		if err := rows.Err(); err != nil {
			return nil, NewExecutionError(ActionSchema, stmt.SQL(), err)
		}
		return &Result{Rows: rs}, nil
	}
	columns, err := schema.ScanColumns(c.Dialect(), rows)
	if err != nil {
		return nil, NewExecutionError(ActionSchema, stmt.SQL(), err)
	}
	rs := &ResultSet{
		Columns: []string{"name", "type", "nullable", "default"},
		Rows:    make([]map[string]any, 0, len(columns)),
	}
	for _, col := range columns {
		var def any
		if col.Default.Valid {
			def = col.Default.String
		}
		rs.Rows = append(rs.Rows, map[string]any{
			"name":     col.Name,
			"type":     col.Type,
			"nullable": col.Nullable,
			"default":  def,
		})
	}
	return &Result{Rows: rs}, nil
}

func (c *Client) queryResult(ctx context.Context, conn dialect.ExecQuerier, action Action, stmt *sql.Statement) (*Result, error) {
	rows, err := c.queryRows(ctx, conn, action, stmt)
	if err != nil {
		return nil, err
	}
	return &Result{Rows: rows}, nil
}

func (c *Client) queryRows(ctx context.Context, conn dialect.ExecQuerier, action Action, stmt *sql.Statement) (*sql.ResultSet, error) {
	ctx, cancel := c.statementCtx(ctx)
	defer cancel()
	rows := &sql.Rows{}
	if err := conn.Query(ctx, stmt.SQL(), stmt.Args(), rows); err != nil {
		return nil, NewExecutionError(action, stmt.SQL(), sql.WrapConstraint(err))
	}
	defer rows.Close()
	rs, err := sql.ScanRows(rows)
	if err != nil {
		return nil, NewExecutionError(action, stmt.SQL(), err)
	}
	return rs, nil
}

func (c *Client) execResult(ctx context.Context, conn dialect.ExecQuerier, action Action, stmt *sql.Statement) (*Result, error) {
	ctx, cancel := c.statementCtx(ctx)
	defer cancel()
	var res sql.Result
	if err := conn.Exec(ctx, stmt.SQL(), stmt.Args(), &res); err != nil {
		return nil, NewExecutionError(action, stmt.SQL(), sql.WrapConstraint(err))
	}
	out := &Result{}
	if n, err := res.RowsAffected(); err == nil {
		out.Affected = n
	}
	// Not every driver reports a last insert id; lib/pq returns an
	// error here.
	if id, err := res.LastInsertId(); err == nil {
		out.LastInsertID = id
	}
	return out, nil
}

// invalidate drops the cached results of a table after a write.
func (c *Client) invalidate(ctx context.Context, table string) {
	if c.cache == nil || table == "" {
		return
	}
	_ = c.cache.DeletePrefix(ctx, tableCachePrefix(table))
}

// rawReturnsRows decides whether a raw statement runs through Query or
// Exec, based on its first keyword.
func rawReturnsRows(query string) bool {
	fields := strings.Fields(strings.ToUpper(query))
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "SELECT", "WITH", "EXPLAIN", "SHOW", "DESCRIBE", "DESC", "PRAGMA", "VALUES":
		return true
	}
	return false
}
