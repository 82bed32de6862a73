package sql

import (
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/verto/dialect"
)

// poolKey identifies one shared driver per dialect and DSN pair.
type poolKey struct {
	dialect string
	dsn     string
}

// poolConfig holds the connection knobs applied to every driver a Pool
// opens. Negative values mean the database/sql default is kept.
type poolConfig struct {
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
	maxIdleTime time.Duration
}

// PoolOption configures drivers opened through a Pool.
type PoolOption func(*poolConfig)

// WithMaxOpenConns sets the maximum number of open connections per driver.
func WithMaxOpenConns(n int) PoolOption {
	return func(c *poolConfig) { c.maxOpen = n }
}

// WithMaxIdleConns sets the maximum number of idle connections per driver.
func WithMaxIdleConns(n int) PoolOption {
	return func(c *poolConfig) { c.maxIdle = n }
}

// WithConnMaxLifetime sets the maximum amount of time a connection may be
// reused.
func WithConnMaxLifetime(d time.Duration) PoolOption {
	return func(c *poolConfig) { c.maxLifetime = d }
}

// WithConnMaxIdleTime sets the maximum amount of time a connection may sit
// idle before being closed.
func WithConnMaxIdleTime(d time.Duration) PoolOption {
	return func(c *poolConfig) { c.maxIdleTime = d }
}

// Pool shares one Driver per dialect and DSN pair. Concurrent Get calls for
// the same pair receive the same Driver, backed by a single sql.DB whose
// connections are reused across operations.
type Pool struct {
	config  poolConfig
	mu      sync.RWMutex
	drivers map[poolKey]*Driver
}

// NewPool returns an empty pool. Drivers are opened lazily on first Get.
func NewPool(opts ...PoolOption) *Pool {
	config := poolConfig{maxOpen: -1, maxIdle: -1, maxLifetime: -1, maxIdleTime: -1}
	for _, opt := range opts {
		opt(&config)
	}
	return &Pool{
		config:  config,
		drivers: make(map[poolKey]*Driver),
	}
}

// Get returns the shared driver for the given dialect and DSN, opening it on
// first use. The returned driver must not be closed by the caller; use
// Pool.Close instead.
func (p *Pool) Get(dialectTag, dsn string) (*Driver, error) {
	if !dialect.IsValid(dialectTag) {
		return nil, fmt.Errorf("dialect/sql: unsupported dialect %q", dialectTag)
	}
	key := poolKey{dialect: dialectTag, dsn: dsn}
	p.mu.RLock()
	drv, ok := p.drivers[key]
	p.mu.RUnlock()
	if ok {
		return drv, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if drv, ok := p.drivers[key]; ok {
		return drv, nil
	}
	drv, err := Open(dialectTag, dsn)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: open %s driver: %w", dialectTag, err)
	}
	p.config.apply(drv.DB())
	p.drivers[key] = drv
	return drv, nil
}

// apply pushes the configured knobs onto the underlying sql.DB.
func (c poolConfig) apply(db *sql.DB) {
	if c.maxOpen >= 0 {
		db.SetMaxOpenConns(c.maxOpen)
	}
	if c.maxIdle >= 0 {
		db.SetMaxIdleConns(c.maxIdle)
	}
	if c.maxLifetime >= 0 {
		db.SetConnMaxLifetime(c.maxLifetime)
	}
	if c.maxIdleTime >= 0 {
		db.SetConnMaxIdleTime(c.maxIdleTime)
	}
}

// Len returns the number of open drivers in the pool.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.drivers)
}

// PoolStats describes one open driver. The DSN is not included since it
// may embed credentials.
type PoolStats struct {
	Dialect         string
	OpenConnections int
	InUse           int
	Idle            int
	WaitCount       int64
}

// Stats returns a snapshot of every open driver, ordered by dialect.
func (p *Pool) Stats() []PoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	stats := make([]PoolStats, 0, len(p.drivers))
	for key, drv := range p.drivers {
		s := drv.DB().Stats()
		stats = append(stats, PoolStats{
			Dialect:         key.dialect,
			OpenConnections: s.OpenConnections,
			InUse:           s.InUse,
			Idle:            s.Idle,
			WaitCount:       s.WaitCount,
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Dialect < stats[j].Dialect })
	return stats
}

// Close closes every driver in the pool. The pool is emptied and can be
// reused afterwards.
func (p *Pool) Close() error {
	p.mu.Lock()
	drivers := p.drivers
	p.drivers = make(map[poolKey]*Driver)
	p.mu.Unlock()
	var errg errgroup.Group
	for _, drv := range drivers {
		errg.Go(drv.Close)
	}
	return errg.Wait()
}
