// Package store reads and replaces the contents of the dados table.
//
// Every operation opens its own connection, uses it, and closes it before
// returning, on success and failure alike. Nothing is pooled between
// operations.
package store

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "github.com/lib/pq"              // registers the "postgres" driver

	"github.com/JonMunkholm/dados/internal/config"
	"github.com/JonMunkholm/dados/internal/core"
)

// Opener opens a database handle. It matches sql.Open.
type Opener func(driverName, dataSourceName string) (*sql.DB, error)

// Store is the relational store accessor.
type Store struct {
	driver         string
	dsn            string
	connectTimeout time.Duration
	batchSize      int
	open           Opener
}

// New creates a store for the configured database. batchSize is the number
// of rows per INSERT statement during a replace-load.
func New(cfg config.DatabaseConfig, batchSize int) *Store {
	return &Store{
		driver:         cfg.Driver,
		dsn:            cfg.DSN(),
		connectTimeout: cfg.ConnectTimeout,
		batchSize:      clampBatch(batchSize),
		open:           sql.Open,
	}
}

// Ping opens and closes a connection. It backs the readiness probe and the
// CLI's connectivity check.
func (s *Store) Ping(ctx context.Context) error {
	return s.withConn(ctx, "ping", func(*sql.DB) error { return nil })
}

// withConn opens a connection, runs fn, and closes the connection on every
// exit path including a panic inside fn.
func (s *Store) withConn(ctx context.Context, op string, fn func(db *sql.DB) error) error {
	db, err := s.connect(ctx, op)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			slog.Warn("closing database connection", "op", op, "error", cerr)
		}
	}()

	return fn(db)
}

func (s *Store) connect(ctx context.Context, op string) (*sql.DB, error) {
	db, err := s.open(s.driver, s.dsn)
	if err != nil {
		return nil, &core.ConnectionError{Op: op, Err: err}
	}
	db.SetMaxOpenConns(1)

	pingCtx := ctx
	if s.connectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, s.connectTimeout)
		defer cancel()
	}

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, &core.ConnectionError{Op: op, Err: err}
	}
	return db, nil
}
