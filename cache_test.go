package verto

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/verto/dialect"
	"github.com/syssam/verto/dialect/sql"
)

func TestCacheKey(t *testing.T) {
	key := CacheKey{
		Table:   "users",
		Dialect: dialect.Postgres,
		SQL:     `SELECT * FROM "users" WHERE id = $1`,
		Params:  []any{1},
	}
	t.Run("format", func(t *testing.T) {
		s := key.String()
		require.True(t, strings.HasPrefix(s, "verto:users:postgres:"), s)
		digest := strings.TrimPrefix(s, "verto:users:postgres:")
		assert.Len(t, digest, 32)
		assert.True(t, strings.HasPrefix(s, tableCachePrefix("users")))
	})
	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, key.String(), key.String())
		same := CacheKey{Table: "users", Dialect: dialect.Postgres, SQL: key.SQL, Params: []any{1}}
		assert.Equal(t, key.String(), same.String())
	})
	t.Run("params_change_digest", func(t *testing.T) {
		other := key
		other.Params = []any{2}
		assert.NotEqual(t, key.String(), other.String())
	})
	t.Run("sql_changes_digest", func(t *testing.T) {
		other := key
		other.SQL = `SELECT * FROM "users" WHERE id = $1 LIMIT 1`
		assert.NotEqual(t, key.String(), other.String())
	})
	t.Run("table_changes_prefix", func(t *testing.T) {
		other := key
		other.Table = "posts"
		assert.True(t, strings.HasPrefix(other.String(), "verto:posts:"))
	})
}

func TestTableCachePrefix(t *testing.T) {
	assert.Equal(t, "verto:users:", tableCachePrefix("users"))
	key := CacheKey{Table: "users", Dialect: dialect.SQLite, SQL: "SELECT 1"}
	assert.True(t, strings.HasPrefix(key.String(), tableCachePrefix("users")))
}

func TestRowsRoundTrip(t *testing.T) {
	rows := &sql.ResultSet{
		Columns: []string{"id", "name", "active", "note", "score", "data"},
		Rows: []map[string]any{
			{
				"id":     int64(42),
				"name":   "a8m",
				"active": true,
				"note":   nil,
				"score":  3.14,
				"data":   []byte{0x1, 0x2},
			},
			{
				"id":     int64(-7),
				"name":   "nati",
				"active": false,
				"note":   "ok",
				"score":  0.5,
				"data":   []byte(nil),
			},
		},
	}
	data, err := encodeRows(rows)
	require.NoError(t, err)
	decoded, err := decodeRows(data)
	require.NoError(t, err)
	assert.Equal(t, rows.Columns, decoded.Columns)
	require.Len(t, decoded.Rows, 2)
	// NULL survives as an explicit nil entry.
	v, ok := decoded.Rows[0]["note"]
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.Equal(t, int64(42), decoded.Rows[0]["id"])
	assert.Equal(t, "a8m", decoded.Rows[0]["name"])
	assert.Equal(t, true, decoded.Rows[0]["active"])
	assert.Equal(t, 3.14, decoded.Rows[0]["score"])
	assert.Equal(t, []byte{0x1, 0x2}, decoded.Rows[0]["data"])
	assert.Equal(t, int64(-7), decoded.Rows[1]["id"])

	t.Run("empty", func(t *testing.T) {
		data, err := encodeRows(&sql.ResultSet{Columns: []string{"id"}, Rows: []map[string]any{}})
		require.NoError(t, err)
		decoded, err := decodeRows(data)
		require.NoError(t, err)
		assert.Equal(t, []string{"id"}, decoded.Columns)
		assert.Len(t, decoded.Rows, 0)
	})
	t.Run("garbage", func(t *testing.T) {
		_, err := decodeRows([]byte{0xc1, 0xff})
		assert.Error(t, err)
	})
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	t.Run("get_missing", func(t *testing.T) {
		c := NewMemoryCache()
		v, err := c.Get(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, v)
	})
	t.Run("set_get", func(t *testing.T) {
		c := NewMemoryCache()
		require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
		v, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), v)
		assert.Equal(t, 1, c.Len())
	})
	t.Run("ttl_expiry", func(t *testing.T) {
		c := NewMemoryCache()
		require.NoError(t, c.Set(ctx, "k", []byte("v"), 5*time.Millisecond))
		time.Sleep(25 * time.Millisecond)
		// Expired entries linger until accessed.
		assert.Equal(t, 1, c.Len())
		v, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.Nil(t, v)
		assert.Equal(t, 0, c.Len())
	})
	t.Run("zero_ttl_never_expires", func(t *testing.T) {
		c := NewMemoryCache()
		require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
		time.Sleep(10 * time.Millisecond)
		v, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), v)
	})
	t.Run("delete", func(t *testing.T) {
		c := NewMemoryCache()
		require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
		require.NoError(t, c.Delete(ctx, "k"))
		v, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.Nil(t, v)
		require.NoError(t, c.Delete(ctx, "k"))
	})
	t.Run("delete_prefix", func(t *testing.T) {
		c := NewMemoryCache()
		require.NoError(t, c.Set(ctx, "verto:users:a", []byte("1"), 0))
		require.NoError(t, c.Set(ctx, "verto:users:b", []byte("2"), 0))
		require.NoError(t, c.Set(ctx, "verto:posts:a", []byte("3"), 0))
		require.NoError(t, c.DeletePrefix(ctx, "verto:users:"))
		assert.Equal(t, 1, c.Len())
		v, err := c.Get(ctx, "verto:posts:a")
		require.NoError(t, err)
		assert.Equal(t, []byte("3"), v)
	})
	t.Run("clear", func(t *testing.T) {
		c := NewMemoryCache()
		require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
		require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
		require.NoError(t, c.Clear(ctx))
		assert.Equal(t, 0, c.Len())
		v, err := c.Get(ctx, "a")
		require.NoError(t, err)
		assert.Nil(t, v)
	})
}
