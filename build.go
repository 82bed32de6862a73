package verto

import (
	"fmt"

	"github.com/syssam/verto/dialect"
	"github.com/syssam/verto/dialect/sql"
	"github.com/syssam/verto/dialect/sql/schema"
)

// Build compiles an operation into a parameterized statement for the given
// dialect without executing it. The returned warnings mirror what Run
// would report. For bulk operations the statement of the first row is
// returned as a representative.
func Build(dialectTag string, op Operation) (*sql.Statement, []Warning, error) {
	if !dialect.IsValid(dialectTag) {
		return nil, nil, &UnsupportedDialectError{Dialect: dialectTag}
	}
	warnings, err := op.validate(dialectTag)
	if err != nil {
		return nil, nil, err
	}
	stmt, err := buildStatement(dialectTag, op)
	if err != nil {
		return nil, nil, err
	}
	return stmt, warnings, nil
}

// buildStatement compiles a validated operation into a statement.
func buildStatement(dialectTag string, op Operation) (*sql.Statement, error) {
	switch op := op.(type) {
	case Select:
		return buildSelect(dialectTag, op)
	case Insert:
		return buildInsert(dialectTag, op, true)
	case Update:
		return buildUpdate(dialectTag, op)
	case Delete:
		return buildDelete(dialectTag, op)
	case Raw:
		return sql.RawStatement(dialectTag, op.SQL, op.Args...), nil
	case Explain:
		prefix, _ := sql.ExplainPrefix(dialectTag)
		return sql.RawStatement(dialectTag, prefix+op.SQL, op.Args...), nil
	case BulkInsert:
		return buildInsert(dialectTag, Insert{Table: op.Table, Values: op.Rows[0]}, false)
	case BulkUpdate:
		u := op.Updates[0]
		return buildUpdate(dialectTag, Update{Table: op.Table, Set: u.Set, Where: u.Where})
	case Schema:
		return buildSchema(dialectTag, op)
	}
	return nil, fmt.Errorf("verto: unknown operation %T", op)
}

func buildSelect(dialectTag string, op Select) (*sql.Statement, error) {
	s := sql.Dialect(dialectTag).Select(op.Columns...).From(op.Table)
	for _, j := range op.Joins {
		s.Join(j)
	}
	where, err := sql.TranslateConditions(op.Where)
	if err != nil {
		return nil, NewValidationError(ActionSelect, "where", err)
	}
	if where != nil {
		s.Where(where)
	}
	for _, fragment := range op.GroupBy {
		s.GroupBy(fragment)
	}
	having, err := sql.TranslateConditions(op.Having)
	if err != nil {
		return nil, NewValidationError(ActionSelect, "having", err)
	}
	if having != nil {
		s.Having(having)
	}
	for _, fragment := range op.OrderBy {
		s.OrderBy(fragment)
	}
	stmt, err := s.Limit(op.Limit).Offset(op.Offset).Build()
	if err != nil {
		return nil, NewValidationError(ActionSelect, "query", err)
	}
	return stmt, nil
}

// buildInsert compiles an insert. On PostgreSQL a RETURNING clause is
// added so the inserted row comes back in the same round-trip; bulk
// callers pass returning=false to skip it.
func buildInsert(dialectTag string, op Insert, returning bool) (*sql.Statement, error) {
	b := sql.Dialect(dialectTag).Insert(op.Table).SetMap(op.Values)
	if returning && sql.SupportsReturning(dialectTag) {
		columns := op.Returning
		if len(columns) == 0 {
			columns = []string{"*"}
		}
		b.Returning(columns...)
	}
	stmt, err := b.Build()
	if err != nil {
		return nil, NewValidationError(ActionInsert, "values", err)
	}
	return stmt, nil
}

func buildUpdate(dialectTag string, op Update) (*sql.Statement, error) {
	where, err := sql.TranslateConditions(op.Where)
	if err != nil {
		return nil, NewValidationError(ActionUpdate, "where", err)
	}
	b := sql.Dialect(dialectTag).Update(op.Table).SetMap(op.Set)
	if where != nil {
		b.Where(where)
	}
	stmt, err := b.Build()
	if err != nil {
		return nil, NewValidationError(ActionUpdate, "set", err)
	}
	return stmt, nil
}

func buildDelete(dialectTag string, op Delete) (*sql.Statement, error) {
	where, err := sql.TranslateConditions(op.Where)
	if err != nil {
		return nil, NewValidationError(ActionDelete, "where", err)
	}
	b := sql.Dialect(dialectTag).Delete(op.Table)
	if where != nil {
		b.Where(where)
	}
	stmt, err := b.Build()
	if err != nil {
		return nil, NewValidationError(ActionDelete, "where", err)
	}
	return stmt, nil
}

func buildSchema(dialectTag string, op Schema) (*sql.Statement, error) {
	if op.Table == "" {
		query, args, err := schema.TablesQuery(dialectTag)
		if err != nil {
			return nil, &UnsupportedDialectError{Dialect: dialectTag}
		}
		return sql.RawStatement(dialectTag, query, args...), nil
	}
	query, args, err := schema.DescribeQuery(dialectTag, op.Table)
	if err != nil {
		return nil, NewValidationError(ActionSchema, "table", err)
	}
	return sql.RawStatement(dialectTag, query, args...), nil
}
