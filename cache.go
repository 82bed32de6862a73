package verto

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/verto/dialect/sql"
)

// cacheNamespace prefixes every cache key so a shared store can hold
// unrelated entries next to query results.
const cacheNamespace = "verto"

// Cache is the interface for caching query results.
// Users should implement this interface with their preferred caching solution
// (e.g., Redis, Memcached, in-memory).
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with an optional TTL.
	// If ttl is 0, the value should not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes all values with the given prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// Clear removes all values from the cache.
	Clear(ctx context.Context) error
}

// CacheKey identifies a query result. The table stays in clear text so
// writes can invalidate by prefix, while the statement and its bound
// values are folded into a digest.
type CacheKey struct {
	Table   string
	Dialect string
	SQL     string
	Params  []any
}

// String returns the string representation of the cache key.
func (k CacheKey) String() string {
	h := sha256.New()
	h.Write([]byte(k.SQL))
	if b, err := msgpack.Marshal(k.Params); err == nil {
		h.Write(b)
	}
	digest := hex.EncodeToString(h.Sum(nil)[:16])
	return strings.Join([]string{cacheNamespace, k.Table, k.Dialect, digest}, ":")
}

// tableCachePrefix returns the key prefix shared by all cached results
// of a table, used to invalidate them after a write.
func tableCachePrefix(table string) string {
	return cacheNamespace + ":" + table + ":"
}

// encodeRows serializes a result set for cache storage.
func encodeRows(rows *sql.ResultSet) ([]byte, error) {
	return msgpack.Marshal(rows)
}

// decodeRows deserializes a cached result set. Loose interface
// decoding keeps integers int64, the shape the live drivers report.
func decodeRows(data []byte) (*sql.ResultSet, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	rows := &sql.ResultSet{}
	if err := dec.Decode(rows); err != nil {
		return nil, err
	}
	return rows, nil
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryCache is an in-process Cache backed by a map. Expired entries
// are dropped lazily on access. It is safe for concurrent use.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryCache returns an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

// Get implements Cache.Get.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	if e.expired(time.Now()) {
		delete(c.entries, key)
		return nil, nil
	}
	return e.value, nil
}

// Set implements Cache.Set.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = e
	return nil
}

// Delete implements Cache.Delete.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// DeletePrefix implements Cache.DeletePrefix.
func (c *MemoryCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

// Clear implements Cache.Clear.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]memoryEntry)
	return nil
}

// Len reports the number of entries, counting expired ones that were
// not accessed yet.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

var _ Cache = (*MemoryCache)(nil)
