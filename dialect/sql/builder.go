package sql

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/syssam/verto/dialect"
)

// Params collects the named parameters of a single statement in bind
// order. Names are generated per prefix ("p0", "where_p0", …) or taken
// from the column they bind (insert/update values).
type Params struct {
	names    []string
	values   map[string]any
	counters map[string]int
}

func newParams() *Params {
	return &Params{
		values:   make(map[string]any),
		counters: make(map[string]int),
	}
}

// next reserves the next generated name for the given prefix.
func (p *Params) next(prefix string) string {
	n := p.counters[prefix]
	p.counters[prefix] = n + 1
	return prefix + "p" + strconv.Itoa(n)
}

func (p *Params) bind(name string, v any) {
	p.names = append(p.names, name)
	p.values[name] = v
}

// Len returns the number of bound parameters.
func (p *Params) Len() int { return len(p.names) }

// Names returns the parameter names in bind order.
func (p *Params) Names() []string {
	names := make([]string, len(p.names))
	copy(names, p.names)
	return names
}

// Values returns the parameter values in bind order.
func (p *Params) Values() []any {
	vs := make([]any, len(p.names))
	for i, name := range p.names {
		vs[i] = p.values[name]
	}
	return vs
}

// Value returns the value bound to the given name.
func (p *Params) Value(name string) (any, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Map returns a copy of the name to value mapping.
func (p *Params) Map() map[string]any {
	m := make(map[string]any, len(p.values))
	for k, v := range p.values {
		m[k] = v
	}
	return m
}

// Statement is a built SQL statement together with its bound
// parameters. The SQL text carries dialect-native placeholders and
// never embeds parameter values.
type Statement struct {
	dialect string
	sql     string
	params  *Params
	raw     []any
}

// RawStatement wraps caller-provided SQL and positional arguments in a
// Statement, so raw statements flow through the same guard and execution
// paths as built ones.
func RawStatement(dialectTag, text string, args ...any) *Statement {
	return &Statement{dialect: dialectTag, sql: text, params: newParams(), raw: args}
}

// Dialect returns the dialect the statement was built for.
func (s *Statement) Dialect() string { return s.dialect }

// SQL returns the statement text.
func (s *Statement) SQL() string { return s.sql }

// WithSQL returns a copy of the statement with its text replaced. The
// bound parameters are shared with the original.
func (s *Statement) WithSQL(text string) *Statement {
	return &Statement{dialect: s.dialect, sql: text, params: s.params, raw: s.raw}
}

// Params returns the named parameters of the statement.
func (s *Statement) Params() *Params { return s.params }

// Args returns the driver arguments in placeholder order. Raw statements
// pass their positional arguments through unchanged. For sqlserver the
// named parameters are wrapped with sql.Named, matching the @name
// placeholders in the text.
func (s *Statement) Args() []any {
	if s.raw != nil {
		return s.raw
	}
	if s.dialect != dialect.SQLServer {
		return s.params.Values()
	}
	args := make([]any, 0, s.params.Len())
	for _, name := range s.params.Names() {
		v, _ := s.params.Value(name)
		args = append(args, sql.Named(name, v))
	}
	return args
}

// Builder is the rendering context shared by the statement builders
// and predicates. A fresh Builder is created per Build call, so the
// exported builders stay pure and rebuilding a statement yields
// byte-identical output.
type Builder struct {
	dialect string
	prefix  string
	sb      strings.Builder
	params  *Params
	errs    []error
}

func newBuilder(dialect string) *Builder {
	return &Builder{dialect: dialect, params: newParams()}
}

// Dialect returns the dialect the builder renders for.
func (b *Builder) Dialect() string { return b.dialect }

// WriteString appends raw text to the statement.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// Quote quotes an identifier according to the builder dialect.
func (b *Builder) Quote(ident string) string {
	return Quote(b.dialect, ident)
}

// Ident validates the identifier, quotes it and appends it.
func (b *Builder) Ident(name string) *Builder {
	if !isValidIdentifier(name) {
		b.AddError(fmt.Errorf("dialect/sql: invalid identifier %q", name))
		return b
	}
	b.sb.WriteString(b.Quote(name))
	return b
}

// Arg binds v under the next generated name for the current prefix and
// appends the dialect placeholder.
func (b *Builder) Arg(v any) *Builder {
	return b.NamedArg(b.params.next(b.prefix), v)
}

// NamedArg binds v under the given name and appends the dialect
// placeholder: $N for postgres, @name for sqlserver, ? otherwise.
func (b *Builder) NamedArg(name string, v any) *Builder {
	b.params.bind(name, v)
	switch b.dialect {
	case dialect.Postgres:
		b.sb.WriteByte('$')
		b.sb.WriteString(strconv.Itoa(b.params.Len()))
	case dialect.SQLServer:
		b.sb.WriteByte('@')
		b.sb.WriteString(name)
	default:
		b.sb.WriteByte('?')
	}
	return b
}

// AddError records an error to be reported by Build.
func (b *Builder) AddError(err error) *Builder {
	b.errs = append(b.errs, err)
	return b
}

func (b *Builder) String() string { return b.sb.String() }

func (b *Builder) statement() (*Statement, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	return &Statement{dialect: b.dialect, sql: b.sb.String(), params: b.params}, nil
}

// Quote quotes an identifier for the given dialect: backticks for
// mysql, brackets for sqlserver, double quotes otherwise. Dotted names
// are quoted per segment, and quoting characters inside the identifier
// are escaped by doubling.
func Quote(dialectTag, ident string) string {
	parts := strings.Split(ident, ".")
	for i, part := range parts {
		switch dialectTag {
		case dialect.MySQL:
			parts[i] = "`" + strings.ReplaceAll(part, "`", "``") + "`"
		case dialect.SQLServer:
			parts[i] = "[" + strings.ReplaceAll(part, "]", "]]") + "]"
		default:
			parts[i] = `"` + strings.ReplaceAll(part, `"`, `""`) + `"`
		}
	}
	return strings.Join(parts, ".")
}

// SupportsReturning reports whether the dialect can return the
// affected row from a write in the same round-trip.
func SupportsReturning(dialectTag string) bool {
	return dialectTag == dialect.Postgres
}

// Pagination formats the pagination clause for the given dialect.
// sqlserver uses TOP when there is no offset and OFFSET … FETCH NEXT
// otherwise; the TOP fragment belongs directly after SELECT and is
// placed there by the Selector. All other dialects use LIMIT/OFFSET.
// Values are formatted as literals, never bound as parameters.
func Pagination(dialectTag string, limit, offset int) string {
	switch {
	case limit <= 0 && offset <= 0:
		return ""
	case dialectTag == dialect.SQLServer:
		if offset <= 0 {
			return "TOP " + strconv.Itoa(limit)
		}
		if limit <= 0 {
			return "OFFSET " + strconv.Itoa(offset) + " ROWS"
		}
		return "OFFSET " + strconv.Itoa(offset) + " ROWS FETCH NEXT " + strconv.Itoa(limit) + " ROWS ONLY"
	case limit > 0:
		s := "LIMIT " + strconv.Itoa(limit)
		if offset > 0 {
			s += " OFFSET " + strconv.Itoa(offset)
		}
		return s
	case dialectTag == dialect.MySQL:
		// MySQL has no standalone OFFSET; the documented idiom is an
		// unreachable row count.
		return "LIMIT 18446744073709551615 OFFSET " + strconv.Itoa(offset)
	case dialectTag == dialect.SQLite:
		return "LIMIT -1 OFFSET " + strconv.Itoa(offset)
	default:
		return "OFFSET " + strconv.Itoa(offset)
	}
}

// ExplainPrefix returns the statement prefix that turns a query into
// its plan inspection form. The second result is false for dialects
// without an inline explain statement (sqlserver).
func ExplainPrefix(dialectTag string) (string, bool) {
	switch dialectTag {
	case dialect.Postgres, dialect.MySQL:
		return "EXPLAIN ", true
	case dialect.SQLite:
		return "EXPLAIN QUERY PLAN ", true
	default:
		return "", false
	}
}

// DialectBuilder is the entry point for building statements:
//
//	sql.Dialect(dialect.Postgres).
//	    Select("id", "name").
//	    From("users").
//	    Where(sql.EQ("status", "active")).
//	    Build()
type DialectBuilder struct {
	dialect string
}

// Dialect returns a statement builder for the given dialect tag.
func Dialect(name string) *DialectBuilder {
	return &DialectBuilder{dialect: name}
}

// Select returns a Selector with the given projection.
func (d *DialectBuilder) Select(columns ...string) *Selector {
	return &Selector{dialect: d.dialect, columns: columns}
}

// Insert returns an InsertBuilder for the given table.
func (d *DialectBuilder) Insert(table string) *InsertBuilder {
	return &InsertBuilder{dialect: d.dialect, table: table}
}

// Update returns an UpdateBuilder for the given table.
func (d *DialectBuilder) Update(table string) *UpdateBuilder {
	return &UpdateBuilder{dialect: d.dialect, table: table}
}

// Delete returns a DeleteBuilder for the given table.
func (d *DialectBuilder) Delete(table string) *DeleteBuilder {
	return &DeleteBuilder{dialect: d.dialect, table: table}
}

func checkDialect(b *Builder) {
	if !dialect.IsValid(b.dialect) {
		b.AddError(fmt.Errorf("dialect/sql: unsupported dialect %q", b.dialect))
	}
}

// Join describes one join clause of a Selector. Kind defaults to
// INNER; the On predicate is emitted as written.
type Join struct {
	Kind  string
	Table string
	On    string
}

// Selector builds SELECT statements.
type Selector struct {
	dialect string
	table   string
	columns []string
	joins   []Join
	where   *Predicate
	groupBy string
	having  *Predicate
	orderBy string
	limit   int
	offset  int
}

// From sets the table to select from.
func (s *Selector) From(table string) *Selector {
	s.table = table
	return s
}

// Where appends the given predicate to the selector. Multiple calls
// are joined with AND.
func (s *Selector) Where(p *Predicate) *Selector {
	s.where = And(s.where, p)
	return s
}

// Join appends a join clause.
func (s *Selector) Join(j Join) *Selector {
	s.joins = append(s.joins, j)
	return s
}

// GroupBy sets the GROUP BY fragment. The fragment is emitted as
// written.
func (s *Selector) GroupBy(fragment string) *Selector {
	s.groupBy = fragment
	return s
}

// Having appends the given predicate to the HAVING clause. Its
// parameters are prefixed with "having_" to keep them apart from the
// WHERE parameters.
func (s *Selector) Having(p *Predicate) *Selector {
	s.having = And(s.having, p)
	return s
}

// OrderBy sets the ORDER BY fragment. The fragment is emitted as
// written.
func (s *Selector) OrderBy(fragment string) *Selector {
	s.orderBy = fragment
	return s
}

// Limit sets the maximum number of rows. Zero means no limit.
func (s *Selector) Limit(n int) *Selector {
	s.limit = n
	return s
}

// Offset sets the number of rows to skip. Zero means no offset.
func (s *Selector) Offset(n int) *Selector {
	s.offset = n
	return s
}

// Build renders the statement. The selector itself is not modified,
// so Build can be called any number of times with identical output.
func (s *Selector) Build() (*Statement, error) {
	b := newBuilder(s.dialect)
	checkDialect(b)
	pagination := Pagination(s.dialect, s.limit, s.offset)
	b.WriteString("SELECT ")
	if s.dialect == dialect.SQLServer && s.limit > 0 && s.offset <= 0 {
		b.WriteString(pagination)
		b.WriteString(" ")
		pagination = ""
	}
	if len(s.columns) == 0 {
		b.WriteString("*")
	} else {
		b.WriteString(strings.Join(s.columns, ", "))
	}
	b.WriteString(" FROM ")
	b.Ident(s.table)
	for _, j := range s.joins {
		kind := strings.ToUpper(strings.TrimSpace(j.Kind))
		if kind == "" {
			kind = "INNER"
		}
		b.WriteString(" " + kind + " JOIN ")
		b.Ident(j.Table)
		b.WriteString(" ON " + j.On)
	}
	if s.where != nil {
		b.prefix = ""
		b.WriteString(" WHERE ")
		s.where.build(b)
	}
	if s.groupBy != "" {
		b.WriteString(" GROUP BY " + s.groupBy)
	}
	if s.having != nil {
		b.prefix = "having_"
		b.WriteString(" HAVING ")
		s.having.build(b)
	}
	if s.orderBy != "" {
		b.WriteString(" ORDER BY " + s.orderBy)
	}
	if pagination != "" {
		b.WriteString(" " + pagination)
	}
	return b.statement()
}

type colValue struct {
	column string
	value  any
}

// InsertBuilder builds INSERT statements. Each value is bound to a
// parameter named after its column.
type InsertBuilder struct {
	dialect   string
	table     string
	values    []colValue
	returning []string
}

// Set binds a value for the given column, keeping call order.
func (i *InsertBuilder) Set(column string, v any) *InsertBuilder {
	i.values = append(i.values, colValue{column: column, value: v})
	return i
}

// SetMap binds all values of the map with column names sorted, so the
// generated statement is independent of map iteration order.
func (i *InsertBuilder) SetMap(m map[string]any) *InsertBuilder {
	for _, col := range sortedKeys(m) {
		i.Set(col, m[col])
	}
	return i
}

// Returning makes the statement return the given columns. Only
// dialects with RETURNING support accept this; Build fails otherwise.
func (i *InsertBuilder) Returning(columns ...string) *InsertBuilder {
	i.returning = columns
	return i
}

// Build renders the statement.
func (i *InsertBuilder) Build() (*Statement, error) {
	b := newBuilder(i.dialect)
	checkDialect(b)
	if len(i.values) == 0 {
		b.AddError(fmt.Errorf("dialect/sql: insert %q: no values", i.table))
	}
	if len(i.returning) > 0 && !SupportsReturning(i.dialect) {
		b.AddError(fmt.Errorf("dialect/sql: dialect %q does not support RETURNING", i.dialect))
	}
	seen := make(map[string]struct{}, len(i.values))
	for _, cv := range i.values {
		if _, ok := seen[cv.column]; ok {
			b.AddError(fmt.Errorf("dialect/sql: insert %q: duplicate column %q", i.table, cv.column))
		}
		seen[cv.column] = struct{}{}
	}
	b.WriteString("INSERT INTO ")
	b.Ident(i.table)
	b.WriteString(" (")
	for n, cv := range i.values {
		if n > 0 {
			b.WriteString(", ")
		}
		b.Ident(cv.column)
	}
	b.WriteString(") VALUES (")
	for n, cv := range i.values {
		if n > 0 {
			b.WriteString(", ")
		}
		b.NamedArg(paramName(cv.column), cv.value)
	}
	b.WriteString(")")
	if len(i.returning) > 0 {
		writeReturning(b, i.returning)
	}
	return b.statement()
}

// UpdateBuilder builds UPDATE statements. SET parameters are named
// after their column; WHERE parameters carry a "where_" prefix so the
// two sets can never collide.
type UpdateBuilder struct {
	dialect string
	table   string
	sets    []colValue
	where   *Predicate
}

// Set binds a new value for the given column, keeping call order.
func (u *UpdateBuilder) Set(column string, v any) *UpdateBuilder {
	u.sets = append(u.sets, colValue{column: column, value: v})
	return u
}

// SetMap binds all values of the map with column names sorted.
func (u *UpdateBuilder) SetMap(m map[string]any) *UpdateBuilder {
	for _, col := range sortedKeys(m) {
		u.Set(col, m[col])
	}
	return u
}

// Where appends the given predicate. Multiple calls are joined with
// AND. An update without a Where updates every row; the validation
// layer attaches a warning for that, the builder does not reject it.
func (u *UpdateBuilder) Where(p *Predicate) *UpdateBuilder {
	u.where = And(u.where, p)
	return u
}

// Build renders the statement.
func (u *UpdateBuilder) Build() (*Statement, error) {
	b := newBuilder(u.dialect)
	checkDialect(b)
	if len(u.sets) == 0 {
		b.AddError(fmt.Errorf("dialect/sql: update %q: no values", u.table))
	}
	b.WriteString("UPDATE ")
	b.Ident(u.table)
	b.WriteString(" SET ")
	for n, cv := range u.sets {
		if n > 0 {
			b.WriteString(", ")
		}
		if !isValidIdentifier(cv.column) {
			b.AddError(fmt.Errorf("dialect/sql: invalid identifier %q", cv.column))
			continue
		}
		b.WriteString(cv.column + " = ")
		b.NamedArg(paramName(cv.column), cv.value)
	}
	if u.where != nil {
		b.prefix = "where_"
		b.WriteString(" WHERE ")
		u.where.build(b)
	}
	return b.statement()
}

// DeleteBuilder builds DELETE statements.
type DeleteBuilder struct {
	dialect string
	table   string
	where   *Predicate
}

// Where appends the given predicate. Multiple calls are joined with
// AND. A delete without a Where deletes every row; the validation
// layer attaches a warning for that.
func (d *DeleteBuilder) Where(p *Predicate) *DeleteBuilder {
	d.where = And(d.where, p)
	return d
}

// Build renders the statement.
func (d *DeleteBuilder) Build() (*Statement, error) {
	b := newBuilder(d.dialect)
	checkDialect(b)
	b.WriteString("DELETE FROM ")
	b.Ident(d.table)
	if d.where != nil {
		b.prefix = ""
		b.WriteString(" WHERE ")
		d.where.build(b)
	}
	return b.statement()
}

func writeReturning(b *Builder, columns []string) {
	b.WriteString(" RETURNING ")
	for n, c := range columns {
		if n > 0 {
			b.WriteString(", ")
		}
		if c == "*" {
			b.WriteString(c)
			continue
		}
		b.Ident(c)
	}
}

// paramName derives a parameter name from a column name. Dots are not
// legal in named placeholders, so qualified columns are flattened.
func paramName(column string) string {
	return strings.ReplaceAll(column, ".", "_")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
