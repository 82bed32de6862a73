package sql

import (
	"fmt"
	"reflect"
	"sort"
)

// conditionOps is the full operator vocabulary in emission order. The
// order is fixed so that translating the same condition map twice
// yields byte-identical SQL regardless of map iteration order.
var conditionOps = []struct {
	sym  string
	make func(col string, v any) *Predicate
}{
	{">", func(col string, v any) *Predicate { return Compare(col, ">", v) }},
	{">=", func(col string, v any) *Predicate { return Compare(col, ">=", v) }},
	{"<", func(col string, v any) *Predicate { return Compare(col, "<", v) }},
	{"<=", func(col string, v any) *Predicate { return Compare(col, "<=", v) }},
	{"!=", func(col string, v any) *Predicate { return Compare(col, "!=", v) }},
	{"<>", func(col string, v any) *Predicate { return Compare(col, "<>", v) }},
	{"like", Like},
	{"ilike", ILike},
	{"not_like", NotLike},
	{"is_null", func(col string, _ any) *Predicate { return IsNull(col) }},
	{"is_not_null", func(col string, _ any) *Predicate { return NotNull(col) }},
}

func knownConditionOp(sym string) bool {
	for _, e := range conditionOps {
		if e.sym == sym {
			return true
		}
	}
	return false
}

// TranslateConditions converts a condition map into a predicate.
//
// Each entry maps a column to one of three value shapes: a scalar
// (equality; nil means IS NULL), a list (membership), or an operator
// map with one comparison per entry. Everything is joined with AND.
// Columns are processed in sorted order and operator maps in the
// conditionOps order, making the output deterministic. Operator
// symbols outside the vocabulary fall back to equality.
func TranslateConditions(cond map[string]any) (*Predicate, error) {
	if len(cond) == 0 {
		return nil, nil
	}
	preds := make([]*Predicate, 0, len(cond))
	for _, col := range sortedKeys(cond) {
		p, err := columnPredicate(col, cond[col])
		if err != nil {
			return nil, err
		}
		if p != nil {
			preds = append(preds, p)
		}
	}
	return And(preds...), nil
}

func columnPredicate(col string, v any) (*Predicate, error) {
	if v == nil {
		return IsNull(col), nil
	}
	if _, ok := v.([]byte); ok {
		return EQ(col, v), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		ops, err := operatorEntries(col, v, rv)
		if err != nil {
			return nil, err
		}
		return operatorPredicate(col, ops), nil
	case reflect.Slice, reflect.Array:
		vs := make([]any, rv.Len())
		for i := range vs {
			vs[i] = rv.Index(i).Interface()
		}
		return In(col, vs...), nil
	default:
		return EQ(col, v), nil
	}
}

func operatorEntries(col string, v any, rv reflect.Value) (map[string]any, error) {
	if m, ok := v.(map[string]any); ok {
		return m, nil
	}
	if rv.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("dialect/sql: condition %q: operator map needs string keys, got %T", col, v)
	}
	m := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		m[iter.Key().String()] = iter.Value().Interface()
	}
	return m, nil
}

func operatorPredicate(col string, ops map[string]any) *Predicate {
	preds := make([]*Predicate, 0, len(ops))
	for _, entry := range conditionOps {
		if v, ok := ops[entry.sym]; ok {
			preds = append(preds, entry.make(col, v))
		}
	}
	var unknown []string
	for sym := range ops {
		if !knownConditionOp(sym) {
			unknown = append(unknown, sym)
		}
	}
	sort.Strings(unknown)
	for _, sym := range unknown {
		preds = append(preds, EQ(col, ops[sym]))
	}
	return And(preds...)
}
