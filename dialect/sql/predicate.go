package sql

import (
	"fmt"

	"github.com/syssam/verto/dialect"
)

// Predicate is a deferred boolean expression. It renders itself into a
// Builder at statement build time, which is when placeholder numbering
// and dialect-specific rendering are decided. Predicates are immutable
// once constructed and safe to share between statements.
type Predicate struct {
	fn func(*Builder)
}

// P wraps a raw build function as a predicate.
func P(fn func(*Builder)) *Predicate {
	return &Predicate{fn: fn}
}

func (p *Predicate) build(b *Builder) { p.fn(b) }

// column validates the column name and writes it. Condition columns
// are emitted as written, so anything but a plain identifier is
// rejected rather than quoted.
func column(b *Builder, name string) bool {
	if !isValidIdentifier(name) {
		b.AddError(fmt.Errorf("dialect/sql: invalid condition column %q", name))
		return false
	}
	b.WriteString(name)
	return true
}

// Compare returns a `column op value` predicate with op emitted as
// given. It backs the comparison constructors below.
func Compare(col, op string, v any) *Predicate {
	return P(func(b *Builder) {
		if !column(b, col) {
			return
		}
		b.WriteString(" " + op + " ")
		b.Arg(v)
	})
}

// EQ returns a `column = value` predicate.
func EQ(col string, v any) *Predicate { return Compare(col, "=", v) }

// NEQ returns a `column <> value` predicate.
func NEQ(col string, v any) *Predicate { return Compare(col, "<>", v) }

// GT returns a `column > value` predicate.
func GT(col string, v any) *Predicate { return Compare(col, ">", v) }

// GTE returns a `column >= value` predicate.
func GTE(col string, v any) *Predicate { return Compare(col, ">=", v) }

// LT returns a `column < value` predicate.
func LT(col string, v any) *Predicate { return Compare(col, "<", v) }

// LTE returns a `column <= value` predicate.
func LTE(col string, v any) *Predicate { return Compare(col, "<=", v) }

// Like returns a `column LIKE value` predicate.
func Like(col string, v any) *Predicate { return Compare(col, "LIKE", v) }

// NotLike returns a `column NOT LIKE value` predicate.
func NotLike(col string, v any) *Predicate { return Compare(col, "NOT LIKE", v) }

// ILike returns a case-insensitive LIKE predicate. Postgres renders
// its native ILIKE; the other dialects lower both sides.
func ILike(col string, v any) *Predicate {
	return P(func(b *Builder) {
		if b.dialect == dialect.Postgres {
			if !column(b, col) {
				return
			}
			b.WriteString(" ILIKE ")
			b.Arg(v)
			return
		}
		if !isValidIdentifier(col) {
			b.AddError(fmt.Errorf("dialect/sql: invalid condition column %q", col))
			return
		}
		b.WriteString("LOWER(" + col + ") LIKE LOWER(")
		b.Arg(v)
		b.WriteString(")")
	})
}

// IsNull returns a `column IS NULL` predicate.
func IsNull(col string) *Predicate {
	return P(func(b *Builder) {
		if column(b, col) {
			b.WriteString(" IS NULL")
		}
	})
}

// NotNull returns a `column IS NOT NULL` predicate.
func NotNull(col string) *Predicate {
	return P(func(b *Builder) {
		if column(b, col) {
			b.WriteString(" IS NOT NULL")
		}
	})
}

// In returns a membership predicate with one bound parameter per
// element. An empty list renders the always-false clause `1 = 0`,
// which is valid in every supported dialect.
func In(col string, vs ...any) *Predicate {
	return P(func(b *Builder) {
		if len(vs) == 0 {
			b.WriteString("1 = 0")
			return
		}
		if !column(b, col) {
			return
		}
		b.WriteString(" IN (")
		for n, v := range vs {
			if n > 0 {
				b.WriteString(", ")
			}
			b.Arg(v)
		}
		b.WriteString(")")
	})
}

// NotIn returns a negated membership predicate. An empty list renders
// the always-true clause `1 = 1`.
func NotIn(col string, vs ...any) *Predicate {
	return P(func(b *Builder) {
		if len(vs) == 0 {
			b.WriteString("1 = 1")
			return
		}
		if !column(b, col) {
			return
		}
		b.WriteString(" NOT IN (")
		for n, v := range vs {
			if n > 0 {
				b.WriteString(", ")
			}
			b.Arg(v)
		}
		b.WriteString(")")
	})
}

// And joins the predicates with AND, without grouping: conditions are
// flat conjunctions. Nil predicates are skipped, so it can be used to
// accumulate an optional clause.
func And(ps ...*Predicate) *Predicate {
	live := make([]*Predicate, 0, len(ps))
	for _, p := range ps {
		if p != nil {
			live = append(live, p)
		}
	}
	switch len(live) {
	case 0:
		return nil
	case 1:
		return live[0]
	}
	return P(func(b *Builder) {
		for n, p := range live {
			if n > 0 {
				b.WriteString(" AND ")
			}
			p.build(b)
		}
	})
}

// Or joins the predicates with OR, parenthesized as a group.
func Or(ps ...*Predicate) *Predicate {
	live := make([]*Predicate, 0, len(ps))
	for _, p := range ps {
		if p != nil {
			live = append(live, p)
		}
	}
	switch len(live) {
	case 0:
		return nil
	case 1:
		return live[0]
	}
	return P(func(b *Builder) {
		b.WriteString("(")
		for n, p := range live {
			if n > 0 {
				b.WriteString(" OR ")
			}
			p.build(b)
		}
		b.WriteString(")")
	})
}

// Not negates a predicate.
func Not(p *Predicate) *Predicate {
	return P(func(b *Builder) {
		b.WriteString("NOT (")
		p.build(b)
		b.WriteString(")")
	})
}
