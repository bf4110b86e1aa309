package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Параметры пула по умолчанию: хранилище сессий делает короткие точечные запросы по ключу.
const (
	DefaultMaxConns        = 10
	DefaultConnMaxLifetime = 30 * time.Minute

	defaultConnTimeout     = 5 * time.Second
	defaultConnMaxIdleTime = 5 * time.Minute
)

var errStoreNotInitialized = errors.New("postgres store is not initialized")

// PoolConfig — настройки пула соединений хранилища сессий.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ConnTimeout     time.Duration
}

// Option меняет PoolConfig.
type Option func(*PoolConfig)

// WithMaxConns ограничивает число соединений; простаивающих держим не больше половины.
func WithMaxConns(n int) Option {
	return func(c *PoolConfig) {
		if n > 0 {
			c.MaxOpenConns = n
			c.MaxIdleConns = max(1, n/2)
		}
	}
}

// WithConnMaxLifetime задает время жизни соединения.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(c *PoolConfig) {
		if d > 0 {
			c.ConnMaxLifetime = d
		}
	}
}

// WithConnTimeout задает таймаут проверки доступности базы.
func WithConnTimeout(d time.Duration) Option {
	return func(c *PoolConfig) {
		if d > 0 {
			c.ConnTimeout = d
		}
	}
}

func newPoolConfig(opts ...Option) PoolConfig {
	cfg := PoolConfig{
		MaxOpenConns:    DefaultMaxConns,
		MaxIdleConns:    DefaultMaxConns / 2,
		ConnMaxLifetime: DefaultConnMaxLifetime,
		ConnMaxIdleTime: defaultConnMaxIdleTime,
		ConnTimeout:     defaultConnTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Store держит пул соединений с базой, в которой живут данные сессий витрины.
type Store struct {
	db   *sql.DB
	pool PoolConfig
}

// Open открывает пул через драйвер pgx и проверяет, что база отвечает.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	pool := newPoolConfig(opts...)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	s := &Store{db: db, pool: pool}
	if err := s.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return s, nil
}

// DB возвращает raw SQL DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Pool возвращает настройки, с которыми открыт пул.
func (s *Store) Pool() PoolConfig {
	if s == nil {
		return PoolConfig{}
	}
	return s.pool
}

// Ping проверяет доступность базы; используется health-check'ом хранилища.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errStoreNotInitialized
	}

	pingCtx, cancel := context.WithTimeout(ctx, s.pool.ConnTimeout)
	defer cancel()
	return s.db.PingContext(pingCtx)
}

// EnsureSchema применяет недостающие миграции kv_entries.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errStoreNotInitialized
	}
	return s.MigrateUp(ctx, 0)
}

// Close закрывает пул.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
