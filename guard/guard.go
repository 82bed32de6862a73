package guard

import (
	"context"
	"errors"
	"fmt"

	"github.com/syssam/verto/dialect/sql"
)

// Policy decision sentinel errors.
//
// These errors are used as return values from guard rules to indicate
// how the policy evaluation should proceed. Use errors.Is() to check
// for these values:
//
//	if errors.Is(err, guard.Allow) { ... }
//	if errors.Is(err, guard.Deny) { ... }
//	if errors.Is(err, guard.Skip) { ... }
var (
	// Allow may be returned by rules to indicate that the policy
	// evaluation should terminate with an allow decision.
	// When returned from a policy, the statement is executed.
	Allow = errors.New("verto/guard: allow rule")

	// Deny may be returned by rules to indicate that the policy
	// evaluation should terminate with a deny decision.
	// When returned from a policy, the statement is rejected.
	Deny = errors.New("verto/guard: deny rule")

	// Skip may be returned by rules to indicate that the policy
	// evaluation should continue to the next rule in the chain.
	// This allows rules to abstain from making a decision.
	Skip = errors.New("verto/guard: skip rule")
)

// Allowf returns a formatted wrapped Allow decision.
// The returned error wraps Allow and can be checked with errors.Is(err, Allow).
func Allowf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Allow)...)
}

// Denyf returns a formatted wrapped Deny decision.
// The returned error wraps Deny and can be checked with errors.Is(err, Deny).
func Denyf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Deny)...)
}

// Skipf returns a formatted wrapped Skip decision.
// The returned error wraps Skip and can be checked with errors.Is(err, Skip).
func Skipf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Skip)...)
}

// Rule defines the interface deciding whether a built statement may be
// sent to the database.
type Rule interface {
	EvalStatement(context.Context, *sql.Statement) error
}

// RuleFunc type is an adapter which allows the use of ordinary
// functions as guard rules.
type RuleFunc func(context.Context, *sql.Statement) error

// EvalStatement returns f(ctx, stmt).
func (f RuleFunc) EvalStatement(ctx context.Context, stmt *sql.Statement) error {
	return f(ctx, stmt)
}

// Policy combines multiple rules into a single policy. Rules are
// evaluated in order until one returns a final decision. A policy that
// is exhausted without a decision allows the statement.
type Policy []Rule

// EvalStatement evaluates the statement against every rule in the policy.
// If the Allow error is returned from one of the rules, it stops the
// evaluation with a nil error.
func (p Policy) EvalStatement(ctx context.Context, stmt *sql.Statement) error {
	if decision, ok := DecisionFromContext(ctx); ok {
		return decision
	}
	for _, rule := range p {
		switch decision := rule.EvalStatement(ctx, stmt); {
		case decision == nil || errors.Is(decision, Skip):
		case errors.Is(decision, Allow):
			return nil
		default:
			return decision
		}
	}
	return nil
}

// AlwaysAllowRule returns a rule that always returns an Allow decision.
func AlwaysAllowRule() Rule {
	return fixedDecision{Allow}
}

// AlwaysDenyRule returns a rule that always returns a Deny decision.
func AlwaysDenyRule() Rule {
	return fixedDecision{Deny}
}

// ContextRule creates a rule from a context evaluation function. The
// provided function receives the context and should return Allow, Deny,
// Skip, or nil. Returning nil is equivalent to returning Skip.
func ContextRule(eval func(context.Context) error) Rule {
	return contextDecision{eval}
}

type decisionCtxKey struct{}

// DecisionContext creates a new context from the given parent context with
// a policy decision attached to it. Policies consult the decision before
// evaluating their rules, so it can be used to force or bypass a decision
// for one request.
func DecisionContext(parent context.Context, decision error) context.Context {
	if decision == nil || errors.Is(decision, Skip) {
		return parent
	}
	return context.WithValue(parent, decisionCtxKey{}, decision)
}

// DecisionFromContext retrieves the policy decision from the context.
func DecisionFromContext(ctx context.Context) (error, bool) {
	decision, ok := ctx.Value(decisionCtxKey{}).(error)
	if ok && errors.Is(decision, Allow) {
		decision = nil
	}
	return decision, ok
}

type fixedDecision struct {
	decision error
}

func (f fixedDecision) EvalStatement(context.Context, *sql.Statement) error {
	return f.decision
}

type contextDecision struct {
	eval func(context.Context) error
}

func (c contextDecision) EvalStatement(ctx context.Context, _ *sql.Statement) error {
	return c.eval(ctx)
}
