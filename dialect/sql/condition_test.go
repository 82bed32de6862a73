package sql

import (
	"testing"

	"github.com/syssam/verto/dialect"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// render translates the condition map and builds a postgres statement
// around it, returning the WHERE clause text and the bound values.
func render(t *testing.T, cond map[string]any) (string, []any) {
	t.Helper()
	p, err := TranslateConditions(cond)
	require.NoError(t, err)
	stmt, err := Dialect(dialect.Postgres).Select().From("t").Where(p).Build()
	require.NoError(t, err)
	return stmt.SQL(), stmt.Args()
}

// TestTranslateConditions tests the three condition value shapes and
// their deterministic rendering.
func TestTranslateConditions(t *testing.T) {
	t.Run("scalar_equality", func(t *testing.T) {
		sql, args := render(t, map[string]any{"status": "active"})
		assert.Equal(t, `SELECT * FROM "t" WHERE status = $1`, sql)
		assert.Equal(t, []any{"active"}, args)
	})

	t.Run("nil_is_null", func(t *testing.T) {
		sql, args := render(t, map[string]any{"deleted_at": nil})
		assert.Equal(t, `SELECT * FROM "t" WHERE deleted_at IS NULL`, sql)
		assert.Empty(t, args)
	})

	t.Run("bytes_are_scalar", func(t *testing.T) {
		sql, args := render(t, map[string]any{"token": []byte{0x01, 0x02}})
		assert.Equal(t, `SELECT * FROM "t" WHERE token = $1`, sql)
		assert.Equal(t, []any{[]byte{0x01, 0x02}}, args)
	})

	t.Run("list_membership", func(t *testing.T) {
		sql, args := render(t, map[string]any{"status": []any{"active", "pending"}})
		assert.Equal(t, `SELECT * FROM "t" WHERE status IN ($1, $2)`, sql)
		assert.Equal(t, []any{"active", "pending"}, args)
	})

	t.Run("typed_list", func(t *testing.T) {
		sql, args := render(t, map[string]any{"id": []int{1, 2, 3}})
		assert.Equal(t, `SELECT * FROM "t" WHERE id IN ($1, $2, $3)`, sql)
		assert.Equal(t, []any{1, 2, 3}, args)
	})

	t.Run("empty_list_matches_nothing", func(t *testing.T) {
		sql, args := render(t, map[string]any{"status": []any{}})
		assert.Equal(t, `SELECT * FROM "t" WHERE 1 = 0`, sql)
		assert.Empty(t, args)
	})

	t.Run("operator_map", func(t *testing.T) {
		sql, args := render(t, map[string]any{
			"age": map[string]any{">": 25, "<": 65},
		})
		assert.Equal(t, `SELECT * FROM "t" WHERE age > $1 AND age < $2`, sql)
		assert.Equal(t, []any{25, 65}, args)
	})

	t.Run("operator_order_is_fixed", func(t *testing.T) {
		// Emission follows the operator vocabulary order, not the map
		// iteration order.
		sql, args := render(t, map[string]any{
			"age": map[string]any{"<=": 65, ">=": 25},
		})
		assert.Equal(t, `SELECT * FROM "t" WHERE age >= $1 AND age <= $2`, sql)
		assert.Equal(t, []any{25, 65}, args)
	})

	t.Run("null_operators", func(t *testing.T) {
		sql, args := render(t, map[string]any{
			"email": map[string]any{"is_not_null": true},
		})
		assert.Equal(t, `SELECT * FROM "t" WHERE email IS NOT NULL`, sql)
		assert.Empty(t, args)
	})

	t.Run("ilike_operator", func(t *testing.T) {
		sql, args := render(t, map[string]any{
			"name": map[string]any{"ilike": "a%"},
		})
		assert.Equal(t, `SELECT * FROM "t" WHERE name ILIKE $1`, sql)
		assert.Equal(t, []any{"a%"}, args)
	})

	t.Run("unknown_operator_falls_back_to_equality", func(t *testing.T) {
		sql, args := render(t, map[string]any{
			"age": map[string]any{"~": 10},
		})
		assert.Equal(t, `SELECT * FROM "t" WHERE age = $1`, sql)
		assert.Equal(t, []any{10}, args)
	})

	t.Run("unknown_operators_sorted_after_known", func(t *testing.T) {
		sql, args := render(t, map[string]any{
			"age": map[string]any{"zz": 7, ">": 5, "aa": 6},
		})
		assert.Equal(t, `SELECT * FROM "t" WHERE age > $1 AND age = $2 AND age = $3`, sql)
		assert.Equal(t, []any{5, 6, 7}, args)
	})

	t.Run("columns_sorted", func(t *testing.T) {
		sql, args := render(t, map[string]any{"b": 1, "a": 2})
		assert.Equal(t, `SELECT * FROM "t" WHERE a = $1 AND b = $2`, sql)
		assert.Equal(t, []any{2, 1}, args)
	})

	t.Run("defined_map_type", func(t *testing.T) {
		type opMap map[string]any
		sql, args := render(t, map[string]any{"age": opMap{">": 30}})
		assert.Equal(t, `SELECT * FROM "t" WHERE age > $1`, sql)
		assert.Equal(t, []any{30}, args)
	})

	t.Run("empty_condition", func(t *testing.T) {
		p, err := TranslateConditions(nil)
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("empty_operator_map", func(t *testing.T) {
		p, err := TranslateConditions(map[string]any{"age": map[string]any{}})
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("non_string_keys", func(t *testing.T) {
		_, err := TranslateConditions(map[string]any{"age": map[int]any{1: 2}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "operator map needs string keys")
	})
}

// TestTranslateConditionsDeterminism tests that repeated translation of
// one condition map yields identical statements.
func TestTranslateConditionsDeterminism(t *testing.T) {
	cond := map[string]any{
		"age":    map[string]any{">": 18, "<=": 99},
		"status": []any{"active", "pending"},
		"name":   map[string]any{"like": "a%"},
		"team":   "core",
	}
	first, firstArgs := render(t, cond)
	for i := 0; i < 10; i++ {
		sql, args := render(t, cond)
		assert.Equal(t, first, sql)
		assert.Equal(t, firstArgs, args)
	}
}
