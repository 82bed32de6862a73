package guard

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/syssam/verto/dialect/sql"
)

// DefaultDenylist holds the statement keywords rejected by the default
// safety policy.
var DefaultDenylist = []string{"DROP", "TRUNCATE", "ALTER", "CREATE", "EXEC", "EXECUTE"}

// KeywordDenial is the decision returned when a denylisted keyword is
// found in a statement.
type KeywordDenial struct {
	Keyword string
}

// Error returns the error string. The statement text is not included
// because raw statements may embed sensitive values.
func (e *KeywordDenial) Error() string {
	return fmt.Sprintf("verto/guard: statement contains blocked keyword %s", e.Keyword)
}

// Unwrap returns Deny, so errors.Is(err, Deny) holds for keyword denials.
func (e *KeywordDenial) Unwrap() error {
	return Deny
}

// DenyKeywords returns a rule that rejects any statement whose text
// contains one of the given keywords, case-insensitively. The match is a
// plain substring scan: it also fires when the keyword appears inside a
// string literal or an identifier. Wrap it with StripLiterals or use
// DenyKeywordTokens for finer matching.
func DenyKeywords(keywords ...string) Rule {
	upper := make([]string, len(keywords))
	for i, kw := range keywords {
		upper[i] = strings.ToUpper(kw)
	}
	return RuleFunc(func(_ context.Context, stmt *sql.Statement) error {
		text := strings.ToUpper(stmt.SQL())
		for _, kw := range upper {
			if strings.Contains(text, kw) {
				return &KeywordDenial{Keyword: kw}
			}
		}
		return Skip
	})
}

// DenyKeywordTokens returns a rule like DenyKeywords that only matches
// whole words, so a column named created_at does not trip CREATE.
func DenyKeywordTokens(keywords ...string) Rule {
	set := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		set[strings.ToUpper(kw)] = struct{}{}
	}
	return RuleFunc(func(_ context.Context, stmt *sql.Statement) error {
		for _, tok := range tokens(stmt.SQL()) {
			if _, ok := set[tok]; ok {
				return &KeywordDenial{Keyword: tok}
			}
		}
		return Skip
	})
}

// StripLiterals returns a rule that evaluates the wrapped rule against a
// copy of the statement whose string literals, quoted identifiers and
// comments are blanked out. Keyword rules wrapped this way do not fire on
// values such as 'drop me a line'.
func StripLiterals(rule Rule) Rule {
	return RuleFunc(func(ctx context.Context, stmt *sql.Statement) error {
		return rule.EvalStatement(ctx, stmt.WithSQL(stripSQL(stmt.SQL())))
	})
}

// ReadOnly returns a rule that only lets read statements through. A
// statement is considered read-only when its first keyword is SELECT,
// EXPLAIN, SHOW, DESCRIBE or PRAGMA.
func ReadOnly() Rule {
	return RuleFunc(func(_ context.Context, stmt *sql.Statement) error {
		switch firstKeyword(stmt.SQL()) {
		case "SELECT", "EXPLAIN", "SHOW", "DESCRIBE", "DESC", "PRAGMA":
			return Skip
		}
		return Denyf("verto/guard: write statement in read-only mode")
	})
}

// Viewer represents the authenticated principal issuing statements.
// This interface should be implemented by application-specific user types.
type Viewer interface {
	// GetID returns the viewer's unique identifier.
	GetID() string
	// GetRoles returns the viewer's roles.
	GetRoles() []string
}

// viewerCtxKey is the context key for storing the viewer.
type viewerCtxKey struct{}

// WithViewer returns a new context with the viewer attached.
func WithViewer(ctx context.Context, viewer Viewer) context.Context {
	return context.WithValue(ctx, viewerCtxKey{}, viewer)
}

// ViewerFromContext retrieves the viewer from the context.
// Returns nil if no viewer is present.
func ViewerFromContext(ctx context.Context) Viewer {
	v, _ := ctx.Value(viewerCtxKey{}).(Viewer)
	return v
}

// SimpleViewer is a basic implementation of the Viewer interface.
// Use this for testing or simple use cases.
type SimpleViewer struct {
	UserID string
	Roles  []string
}

// GetID returns the user ID.
func (v *SimpleViewer) GetID() string {
	return v.UserID
}

// GetRoles returns the user's roles.
func (v *SimpleViewer) GetRoles() []string {
	return v.Roles
}

// DenyIfNoViewer returns a rule that denies the statement if no viewer is
// present in the context. This is typically used as the first rule in a
// policy to require authentication.
//
// Example:
//
//	guard.Policy{
//	    guard.DenyIfNoViewer(),
//	    guard.HasRole("admin"),
//	    guard.DenyKeywords(guard.DefaultDenylist...),
//	}
func DenyIfNoViewer() Rule {
	return ContextRule(func(ctx context.Context) error {
		if ViewerFromContext(ctx) == nil {
			return Denyf("verto/guard: viewer required")
		}
		return Skip
	})
}

// HasRole returns a rule that allows the statement if the viewer has the
// specified role. Skips if the viewer doesn't have the role, so the next
// rule can evaluate.
func HasRole(role string) Rule {
	return ContextRule(func(ctx context.Context) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		if slices.Contains(viewer.GetRoles(), role) {
			return Allow
		}
		return Skip
	})
}

// HasAnyRole returns a rule that allows the statement if the viewer has
// any of the specified roles. Skips otherwise.
func HasAnyRole(roles ...string) Rule {
	return ContextRule(func(ctx context.Context) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		viewerRoles := viewer.GetRoles()
		for _, role := range roles {
			if slices.Contains(viewerRoles, role) {
				return Allow
			}
		}
		return Skip
	})
}

// tokens splits SQL text into uppercase word tokens.
func tokens(s string) []string {
	return strings.FieldsFunc(strings.ToUpper(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

// firstKeyword returns the first word token of the statement, uppercased,
// with comments stripped.
func firstKeyword(s string) string {
	toks := tokens(stripSQL(s))
	if len(toks) == 0 {
		return ""
	}
	return toks[0]
}

const (
	scanCode = iota
	scanSingle
	scanDouble
	scanBacktick
	scanBracket
	scanLineComment
	scanBlockComment
)

// stripSQL blanks out string literals, quoted identifiers and comments.
// The result has the same length as the input, so token positions are
// preserved. Doubled quotes inside literals and backslash escapes are
// handled.
func stripSQL(s string) string {
	out := []rune(s)
	state := scanCode
	for i := 0; i < len(out); i++ {
		r := out[i]
		switch state {
		case scanCode:
			switch {
			case r == '\'':
				state = scanSingle
			case r == '"':
				state = scanDouble
			case r == '`':
				state = scanBacktick
			case r == '[':
				state = scanBracket
			case r == '-' && i+1 < len(out) && out[i+1] == '-':
				out[i] = ' '
				state = scanLineComment
			case r == '/' && i+1 < len(out) && out[i+1] == '*':
				out[i] = ' '
				state = scanBlockComment
			}
		case scanSingle:
			state = scanQuoted(out, &i, '\'', scanSingle, true)
		case scanDouble:
			state = scanQuoted(out, &i, '"', scanDouble, false)
		case scanBacktick:
			state = scanQuoted(out, &i, '`', scanBacktick, false)
		case scanBracket:
			if r == ']' {
				if i+1 < len(out) && out[i+1] == ']' {
					out[i], out[i+1] = ' ', ' '
					i++
				} else {
					state = scanCode
				}
			} else {
				out[i] = ' '
			}
		case scanLineComment:
			if r == '\n' {
				state = scanCode
			} else {
				out[i] = ' '
			}
		case scanBlockComment:
			if r == '*' && i+1 < len(out) && out[i+1] == '/' {
				out[i], out[i+1] = ' ', ' '
				i++
				state = scanCode
			} else {
				out[i] = ' '
			}
		}
	}
	return string(out)
}

// scanQuoted advances through one rune of a quoted region delimited by
// quote, blanking content runes. Backslash escapes are honored only in
// single-quoted strings, where MySQL allows them. It returns the next
// scanner state.
func scanQuoted(out []rune, i *int, quote rune, current int, backslash bool) int {
	r := out[*i]
	switch {
	case backslash && r == '\\' && *i+1 < len(out):
		out[*i] = ' '
		out[*i+1] = ' '
		*i++
	case r == quote:
		if *i+1 < len(out) && out[*i+1] == quote {
			out[*i], out[*i+1] = ' ', ' '
			*i++
		} else {
			return scanCode
		}
	default:
		out[*i] = ' '
	}
	return current
}
