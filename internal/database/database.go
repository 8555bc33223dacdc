// Package database owns the relational connection pool and the query
// primitives every store operation goes through.
//
// Two backends are supported through database/sql drivers: an embedded
// SQLite file (modernc.org/sqlite, pure Go — no CGo, cross-compiles
// anywhere) for single-node deployments and tests, and PostgreSQL
// (lib/pq) when a DSN is configured. Dialect differences — placeholder
// style, insert-id retrieval, autoincrement DDL — are handled here so
// the repositories can write one set of queries.
//
// The pool is bounded and acquisition is retried a fixed number of times
// with linearly increasing delay; cold-start databases behind the cloud
// gateway are slow to hand out the first connections, and failing fast
// after the bound beats queueing requests indefinitely.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/sakif/sr-companion/internal/apperror"
)

const (
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"
)

// Config holds pool and retry settings.
type Config struct {
	// URL is a PostgreSQL DSN. When empty, Path selects an SQLite file.
	URL  string
	Path string

	MaxOpenConns    int
	AcquireAttempts int
	AcquireDelay    time.Duration // attempt n waits AcquireDelay*n
	AcquireTimeout  time.Duration // per-attempt wait for a free connection
}

// DefaultConfig returns the settings used in production deployments.
func DefaultConfig() Config {
	return Config{
		Path:            "data/companion.db",
		MaxOpenConns:    10,
		AcquireAttempts: 3,
		AcquireDelay:    time.Second,
		AcquireTimeout:  5 * time.Second,
	}
}

// DB wraps a bounded sql.DB pool with retrying acquisition and
// dialect-aware helpers.
type DB struct {
	pool   *sql.DB
	driver string
	cfg    Config
	logger *slog.Logger
}

// New opens the pool for the configured backend and verifies it with a ping.
func New(cfg Config, logger *slog.Logger) (*DB, error) {
	driver, dsn := driverSQLite, cfg.Path
	if cfg.URL != "" {
		driver, dsn = driverPostgres, cfg.URL
	}

	pool, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("database: opening %s pool: %w", driver, err)
	}
	pool.SetMaxOpenConns(cfg.MaxOpenConns)

	if err := pool.Ping(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database: pinging %s: %w", driver, err)
	}

	if driver == driverSQLite {
		// WAL allows concurrent readers while a sync is writing.
		if _, err := pool.Exec("PRAGMA journal_mode=WAL"); err != nil {
			pool.Close()
			return nil, fmt.Errorf("database: setting WAL mode: %w", err)
		}
		if _, err := pool.Exec("PRAGMA foreign_keys=ON"); err != nil {
			pool.Close()
			return nil, fmt.Errorf("database: enabling foreign keys: %w", err)
		}
	}

	logger.Info("database pool opened",
		slog.String("driver", driver),
		slog.Int("maxOpenConns", cfg.MaxOpenConns),
	)

	return &DB{pool: pool, driver: driver, cfg: cfg, logger: logger}, nil
}

// Close closes the underlying pool.
func (db *DB) Close() error {
	return db.pool.Close()
}

// acquire checks a dedicated connection out of the pool, retrying up to
// the configured bound. Each attempt waits at most AcquireTimeout; between
// attempts the delay grows linearly. After the bound it fails with
// apperror.ErrConnExhausted rather than waiting forever.
func (db *DB) acquire(ctx context.Context) (*sql.Conn, error) {
	var lastErr error
	for attempt := 1; attempt <= db.cfg.AcquireAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, db.cfg.AcquireTimeout)
		conn, err := db.pool.Conn(attemptCtx)
		cancel()
		if err == nil {
			return conn, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		db.logger.Warn("connection acquisition failed",
			slog.Int("attempt", attempt),
			slog.Int("maxAttempts", db.cfg.AcquireAttempts),
			slog.String("error", err.Error()),
		)
		if attempt < db.cfg.AcquireAttempts {
			select {
			case <-time.After(db.cfg.AcquireDelay * time.Duration(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, apperror.ConnExhausted(db.cfg.AcquireAttempts, lastErr)
}

// rebind converts ?-style placeholders to the $n form PostgreSQL expects.
// Queries are written with ? throughout the repositories; SQLite takes
// them as-is.
func (db *DB) rebind(query string) string {
	if db.driver != driverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// AutoIncrementPK returns the column definition for an auto-incrementing
// integer primary key in the active dialect.
func (db *DB) AutoIncrementPK() string {
	if db.driver == driverPostgres {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

// Query runs a SELECT expected to yield zero or more rows. scan receives
// the open iterator and is responsible for the rows.Next loop; iteration
// errors are checked here after it returns. The connection is released on
// every exit path.
func (db *DB) Query(ctx context.Context, query string, args []any, scan func(*sql.Rows) error) error {
	conn, err := db.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, db.rebind(query), args...)
	if err != nil {
		return fmt.Errorf("database: query: %w", err)
	}
	defer rows.Close()

	if err := scan(rows); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("database: iterating rows: %w", err)
	}
	return nil
}

// QueryRow runs a SELECT expected to yield at most one row. When no row
// matches, scan sees sql.ErrNoRows; callers decide whether that is an
// empty result or a NotFound condition.
func (db *DB) QueryRow(ctx context.Context, query string, args []any, scan func(*sql.Row) error) error {
	conn, err := db.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	return scan(conn.QueryRowContext(ctx, db.rebind(query), args...))
}

// Exec runs an INSERT/UPDATE/DELETE and returns the affected row count.
func (db *DB) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	conn, err := db.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	res, err := conn.ExecContext(ctx, db.rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("database: exec: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("database: rows affected: %w", err)
	}
	return affected, nil
}

// Insert runs an INSERT and returns the generated numeric identifier.
// lib/pq has no LastInsertId support, so on PostgreSQL the statement is
// extended with RETURNING id and run as a query instead.
func (db *DB) Insert(ctx context.Context, query string, args ...any) (int64, error) {
	conn, err := db.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	if db.driver == driverPostgres {
		var id int64
		err := conn.QueryRowContext(ctx, db.rebind(query)+" RETURNING id", args...).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("database: insert: %w", err)
		}
		return id, nil
	}

	res, err := conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("database: insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("database: last insert id: %w", err)
	}
	return id, nil
}

// Tx exposes dialect-aware statement execution inside a transaction.
type Tx struct {
	tx *sql.Tx
	db *DB
}

// Exec runs a statement on the transaction and returns the affected count.
func (t *Tx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := t.tx.ExecContext(ctx, t.db.rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("database: tx exec: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("database: tx rows affected: %w", err)
	}
	return affected, nil
}

// QueryRow runs a single-row SELECT on the transaction.
func (t *Tx) QueryRow(ctx context.Context, query string, args []any, scan func(*sql.Row) error) error {
	return scan(t.tx.QueryRowContext(ctx, t.db.rebind(query), args...))
}

// Transaction acquires one connection, begins a transaction, and runs fn
// with it. It commits when fn returns nil; on any failure it rolls back
// unconditionally and returns fn's error. The connection is released on
// every exit path.
func (db *DB) Transaction(ctx context.Context, fn func(tx *Tx) error) error {
	conn, err := db.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	sqlTx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("database: begin transaction: %w", err)
	}

	if err := fn(&Tx{tx: sqlTx, db: db}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			db.logger.Error("transaction rollback failed", slog.String("error", rbErr.Error()))
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("database: commit: %w", err)
	}
	return nil
}
