package guard_test

import (
	"context"
	"errors"
	"testing"

	"github.com/syssam/verto/guard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDenyKeywords tests the plain substring keyword scan.
func TestDenyKeywords(t *testing.T) {
	policy := guard.Policy{guard.DenyKeywords(guard.DefaultDenylist...)}
	ctx := context.Background()

	t.Run("blocks_keyword", func(t *testing.T) {
		err := policy.EvalStatement(ctx, stmt("DROP TABLE users"))
		require.Error(t, err)
		assert.ErrorIs(t, err, guard.Deny)

		var denial *guard.KeywordDenial
		require.ErrorAs(t, err, &denial)
		assert.Equal(t, "DROP", denial.Keyword)
		assert.Equal(t, "verto/guard: statement contains blocked keyword DROP", err.Error())
		assert.NotContains(t, err.Error(), "TABLE users")
	})

	t.Run("case_insensitive", func(t *testing.T) {
		err := policy.EvalStatement(ctx, stmt("drop table users"))
		assert.ErrorIs(t, err, guard.Deny)
	})

	t.Run("fires_inside_literals", func(t *testing.T) {
		err := policy.EvalStatement(ctx, stmt("SELECT 'please drop me a line'"))
		assert.ErrorIs(t, err, guard.Deny)
	})

	t.Run("clean_statement_allowed", func(t *testing.T) {
		assert.NoError(t, policy.EvalStatement(ctx, stmt("SELECT id FROM users WHERE status = $1")))
	})

	t.Run("default_denylist", func(t *testing.T) {
		for _, kw := range []string{"DROP", "TRUNCATE", "ALTER", "CREATE", "EXEC", "EXECUTE"} {
			assert.Contains(t, guard.DefaultDenylist, kw)
		}
	})
}

// TestDenyKeywordTokens tests whole-word matching, which does not trip
// on column names containing a keyword.
func TestDenyKeywordTokens(t *testing.T) {
	policy := guard.Policy{guard.DenyKeywordTokens(guard.DefaultDenylist...)}
	ctx := context.Background()

	assert.NoError(t, policy.EvalStatement(ctx, stmt("SELECT created_at FROM users")))
	assert.NoError(t, policy.EvalStatement(ctx, stmt("SELECT id FROM attribute_alterations")))

	err := policy.EvalStatement(ctx, stmt("CREATE TABLE users (id int)"))
	require.Error(t, err)
	var denial *guard.KeywordDenial
	require.ErrorAs(t, err, &denial)
	assert.Equal(t, "CREATE", denial.Keyword)
}

// TestStripLiterals tests that wrapped rules see the statement with
// literals, quoted identifiers and comments blanked out.
func TestStripLiterals(t *testing.T) {
	policy := guard.Policy{guard.StripLiterals(guard.DenyKeywords("DROP"))}
	ctx := context.Background()

	allowed := []string{
		"SELECT 'drop me a line' FROM messages",
		"SELECT 'it''s a drop' FROM messages",
		`SELECT 'don\'t drop' FROM messages`,
		"SELECT 1 -- drop everything",
		"SELECT 1 /* drop */ FROM t",
		`SELECT "drop" FROM t`,
		"SELECT [drop] FROM t",
		"SELECT `drop` FROM t",
	}
	for _, text := range allowed {
		assert.NoError(t, policy.EvalStatement(ctx, stmt(text)), text)
	}

	denied := []string{
		"DROP TABLE users",
		"DROP TABLE users WHERE name = 'safe value'",
		"SELECT 1; DROP TABLE users -- sneaky",
	}
	for _, text := range denied {
		assert.ErrorIs(t, policy.EvalStatement(ctx, stmt(text)), guard.Deny, text)
	}
}

// TestReadOnly tests the read-only rule.
func TestReadOnly(t *testing.T) {
	policy := guard.Policy{guard.ReadOnly()}
	ctx := context.Background()

	allowed := []string{
		"SELECT id FROM users",
		"select id from users",
		"EXPLAIN SELECT id FROM users",
		"SHOW TABLES",
		"DESCRIBE users",
		"PRAGMA table_info(users)",
		"/* hint */ SELECT 1",
		"-- comment\nSELECT 1",
	}
	for _, text := range allowed {
		assert.NoError(t, policy.EvalStatement(ctx, stmt(text)), text)
	}

	denied := []string{
		"INSERT INTO users (name) VALUES ($1)",
		"UPDATE users SET name = $1",
		"DELETE FROM users",
		"DROP TABLE users",
	}
	for _, text := range denied {
		assert.ErrorIs(t, policy.EvalStatement(ctx, stmt(text)), guard.Deny, text)
	}
}

// TestViewerRules tests the authentication and role rules.
func TestViewerRules(t *testing.T) {
	admin := &guard.SimpleViewer{UserID: "user-1", Roles: []string{"admin", "user"}}
	reader := &guard.SimpleViewer{UserID: "user-2", Roles: []string{"user"}}

	t.Run("simple_viewer", func(t *testing.T) {
		assert.Equal(t, "user-1", admin.GetID())
		assert.Equal(t, []string{"admin", "user"}, admin.GetRoles())
	})

	t.Run("viewer_context", func(t *testing.T) {
		assert.Nil(t, guard.ViewerFromContext(context.Background()))
		ctx := guard.WithViewer(context.Background(), admin)
		assert.Equal(t, admin, guard.ViewerFromContext(ctx))
	})

	t.Run("deny_if_no_viewer", func(t *testing.T) {
		policy := guard.Policy{guard.DenyIfNoViewer()}
		err := policy.EvalStatement(context.Background(), stmt("SELECT 1"))
		assert.ErrorIs(t, err, guard.Deny)

		ctx := guard.WithViewer(context.Background(), reader)
		assert.NoError(t, policy.EvalStatement(ctx, stmt("SELECT 1")))
	})

	t.Run("has_role", func(t *testing.T) {
		policy := guard.Policy{guard.HasRole("admin"), guard.AlwaysDenyRule()}

		ctx := guard.WithViewer(context.Background(), admin)
		assert.NoError(t, policy.EvalStatement(ctx, stmt("SELECT 1")))

		ctx = guard.WithViewer(context.Background(), reader)
		err := policy.EvalStatement(ctx, stmt("SELECT 1"))
		assert.ErrorIs(t, err, guard.Deny)
	})

	t.Run("has_any_role", func(t *testing.T) {
		policy := guard.Policy{guard.HasAnyRole("admin", "operator"), guard.AlwaysDenyRule()}

		ctx := guard.WithViewer(context.Background(), admin)
		assert.NoError(t, policy.EvalStatement(ctx, stmt("SELECT 1")))

		ctx = guard.WithViewer(context.Background(), reader)
		assert.ErrorIs(t, policy.EvalStatement(ctx, stmt("SELECT 1")), guard.Deny)
	})
}

// TestPolicyComposition tests a realistic layered policy: require a
// viewer, let admins through, and keyword-scan everyone else.
func TestPolicyComposition(t *testing.T) {
	policy := guard.Policy{
		guard.DenyIfNoViewer(),
		guard.HasRole("admin"),
		guard.StripLiterals(guard.DenyKeywords(guard.DefaultDenylist...)),
	}
	admin := guard.WithViewer(context.Background(), &guard.SimpleViewer{UserID: "a", Roles: []string{"admin"}})
	user := guard.WithViewer(context.Background(), &guard.SimpleViewer{UserID: "u", Roles: []string{"user"}})

	t.Run("anonymous_denied", func(t *testing.T) {
		err := policy.EvalStatement(context.Background(), stmt("SELECT 1"))
		require.ErrorIs(t, err, guard.Deny)
		assert.Contains(t, err.Error(), "viewer required")
	})

	t.Run("admin_bypasses_keyword_scan", func(t *testing.T) {
		assert.NoError(t, policy.EvalStatement(admin, stmt("DROP TABLE audit_tmp")))
	})

	t.Run("user_keyword_scanned", func(t *testing.T) {
		var denial *guard.KeywordDenial
		err := policy.EvalStatement(user, stmt("DROP TABLE audit_tmp"))
		require.ErrorAs(t, err, &denial)
		assert.Equal(t, "DROP", denial.Keyword)
	})

	t.Run("user_select_allowed", func(t *testing.T) {
		assert.NoError(t, policy.EvalStatement(user, stmt("SELECT id FROM users WHERE note = 'do not drop'")))
	})
}

// TestKeywordDenialUnwrap tests the denial error chain.
func TestKeywordDenialUnwrap(t *testing.T) {
	denial := &guard.KeywordDenial{Keyword: "TRUNCATE"}
	assert.True(t, errors.Is(denial, guard.Deny))
	assert.Equal(t, "verto/guard: statement contains blocked keyword TRUNCATE", denial.Error())
}
