// Package guard provides rule types and helpers for screening built SQL
// statements before they reach the database.
//
// A guard policy evaluates every statement the client is about to execute.
// This allows rejecting dangerous statements, enforcing read-only access,
// or gating writes on the identity attached to the context.
//
// # Core Concepts
//
// The guard layer is built around three main concepts:
//
//   - Policy: An ordered collection of rules evaluated per statement
//   - Rule: A function that returns Allow, Deny, or Skip decisions
//   - Viewer: An interface representing the current principal
//
// # Rule Evaluation
//
// Rules are evaluated in order until one returns a final decision:
//
//   - Allow: Permits the statement and stops evaluation
//   - Deny: Rejects the statement and stops evaluation
//   - Skip: Continues to the next rule
//
// If all rules return Skip, the statement is permitted.
//
// # Built-in Rules
//
// The package provides several built-in rules:
//
//   - DenyKeywords: Denies statements containing denylisted keywords
//   - DenyKeywordTokens: Like DenyKeywords, but matches whole words only
//   - StripLiterals: Wraps a rule so literals and comments are ignored
//   - ReadOnly: Denies everything but read statements
//   - DenyIfNoViewer: Denies if no viewer is present in context
//   - HasRole, HasAnyRole: Allows based on the viewer's roles
//   - AlwaysAllowRule, AlwaysDenyRule: Fixed decisions
//
// # Example
//
//	policy := guard.Policy{
//	    guard.DenyIfNoViewer(),
//	    guard.HasRole("admin"),
//	    guard.StripLiterals(guard.DenyKeywords(guard.DefaultDenylist...)),
//	}
//	if err := policy.EvalStatement(ctx, stmt); err != nil {
//	    return err
//	}
//
// # Context Integration
//
// The viewer is stored in context and retrieved during policy evaluation:
//
//	ctx := guard.WithViewer(ctx, &guard.SimpleViewer{
//	    UserID: "user-123",
//	    Roles:  []string{"user"},
//	})
//
// A decision can also be forced for one request with DecisionContext:
//
//	ctx := guard.DecisionContext(ctx, guard.Allow)
package guard
