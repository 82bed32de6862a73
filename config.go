package verto

import (
	stdsql "database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/syssam/verto/dialect"
	"github.com/syssam/verto/dialect/sql"
	"github.com/syssam/verto/guard"
)

// Config is the file-based client configuration.
//
// Example:
//
//	dialect: postgres
//	dsn: postgres://localhost/app?sslmode=disable
//	pool:
//	  max_open_conns: 20
//	  max_idle_conns: 5
//	  conn_max_lifetime: 30m
//	statement_timeout: 5s
//	cache_ttl: 1m
//	slow_query_threshold: 250ms
type Config struct {
	// Dialect is the dialect tag of the target database.
	Dialect string `yaml:"dialect"`

	// DSN is the driver-specific connection string.
	DSN string `yaml:"dsn"`

	// Pool bounds the connection pool of the opened driver.
	Pool PoolSettings `yaml:"pool,omitempty"`

	// StatementTimeout bounds each statement. Zero means no timeout.
	StatementTimeout Duration `yaml:"statement_timeout,omitempty"`

	// CacheTTL enables an in-process result cache with the given
	// expiry when set.
	CacheTTL Duration `yaml:"cache_ttl,omitempty"`

	// SlowQueryThreshold enables statistics collection with slow
	// statement logging when set.
	SlowQueryThreshold Duration `yaml:"slow_query_threshold,omitempty"`

	// SafeMode controls the keyword scan on raw statements. Defaults
	// to true.
	SafeMode *bool `yaml:"safe_mode,omitempty"`

	// BatchSize is the default batch size of bulk operations.
	// Defaults to DefaultBatchSize.
	BatchSize int `yaml:"batch_size,omitempty"`

	// Debug logs every statement. Cannot be combined with
	// SlowQueryThreshold.
	Debug bool `yaml:"debug,omitempty"`
}

// PoolSettings bounds the connection pool of an opened driver. Zero
// values leave the driver defaults in place.
type PoolSettings struct {
	MaxOpenConns    int      `yaml:"max_open_conns,omitempty"`
	MaxIdleConns    int      `yaml:"max_idle_conns,omitempty"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime,omitempty"`
	ConnMaxIdleTime Duration `yaml:"conn_max_idle_time,omitempty"`
}

// Duration is a time.Duration that unmarshals from YAML strings such as
// "250ms" or "2m30s". A bare integer is taken as seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("expected duration scalar, got %v", node.Kind)
	}
	if n, err := strconv.Atoi(node.Value); err == nil {
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}
	v, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", node.Value, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// LoadConfig reads and parses a configuration file, applying defaults
// and validating the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("verto: read config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("verto: parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.SafeMode == nil {
		on := true
		cfg.SafeMode = &on
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
}

// Validate reports whether the configuration can open a client.
func (cfg *Config) Validate() error {
	if !dialect.IsValid(cfg.Dialect) {
		return &UnsupportedDialectError{Dialect: cfg.Dialect}
	}
	if cfg.DSN == "" {
		return fmt.Errorf("verto: config: dsn is required")
	}
	return nil
}

// Options translates the configuration into client options.
func (cfg *Config) Options() []Option {
	opts := []Option{WithConnection(cfg.Dialect, cfg.DSN)}
	if cfg.StatementTimeout > 0 {
		opts = append(opts, WithStatementTimeout(cfg.StatementTimeout.Std()))
	}
	if cfg.CacheTTL > 0 {
		opts = append(opts, WithCache(NewMemoryCache(), cfg.CacheTTL.Std()))
	}
	if cfg.BatchSize > 0 {
		opts = append(opts, WithBatchSize(cfg.BatchSize))
	}
	if cfg.SafeMode != nil && !*cfg.SafeMode {
		// An empty policy permits everything, turning the default
		// keyword scan off.
		opts = append(opts, WithGuard(guard.Policy{}))
	}
	if cfg.Debug {
		opts = append(opts, WithDebug())
	}
	if cfg.SlowQueryThreshold > 0 {
		opts = append(opts, WithStats(
			sql.WithSlowThreshold(cfg.SlowQueryThreshold.Std()),
			sql.WithSlowQueryLog(),
		))
	}
	return opts
}

// NewClient opens a client for the configuration. Extra options are
// applied after the configuration's own and may override it.
func (cfg *Config) NewClient(extra ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := NewClient(append(cfg.Options(), extra...)...)
	if err != nil {
		return nil, err
	}
	cfg.applyPool(client)
	return client, nil
}

// applyPool pushes the pool bounds down to the opened database handle.
// The stats and debug decorators promote DB from the wrapped driver.
func (cfg *Config) applyPool(client *Client) {
	drv, ok := client.Driver().(interface{ DB() *stdsql.DB })
	if !ok {
		return
	}
	db := drv.DB()
	if cfg.Pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Pool.MaxOpenConns)
	}
	if cfg.Pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.Pool.MaxIdleConns)
	}
	if cfg.Pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.Pool.ConnMaxLifetime.Std())
	}
	if cfg.Pool.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.Pool.ConnMaxIdleTime.Std())
	}
}
