package database

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sakif/sr-companion/internal/apperror"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestDB(t *testing.T, cfg Config) *DB {
	t.Helper()
	cfg.Path = filepath.Join(t.TempDir(), "test.db")
	db, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(context.Background(),
		`CREATE TABLE items (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL)`); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	return db
}

func TestInsertAndQueryRow(t *testing.T) {
	db := newTestDB(t, DefaultConfig())
	ctx := context.Background()

	id, err := db.Insert(ctx, `INSERT INTO items (name) VALUES (?)`, "alpha")
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if id == 0 {
		t.Error("expected a generated id")
	}

	var name string
	err = db.QueryRow(ctx, `SELECT name FROM items WHERE id = ?`, []any{id}, func(row *sql.Row) error {
		return row.Scan(&name)
	})
	if err != nil {
		t.Fatalf("QueryRow() error = %v", err)
	}
	if name != "alpha" {
		t.Errorf("name = %q, want %q", name, "alpha")
	}
}

func TestQueryRowNoRows(t *testing.T) {
	db := newTestDB(t, DefaultConfig())

	err := db.QueryRow(context.Background(),
		`SELECT name FROM items WHERE id = ?`, []any{999},
		func(row *sql.Row) error {
			var name string
			return row.Scan(&name)
		})
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestQueryMultipleRows(t *testing.T) {
	db := newTestDB(t, DefaultConfig())
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		if _, err := db.Insert(ctx, `INSERT INTO items (name) VALUES (?)`, name); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	var names []string
	err := db.Query(ctx, `SELECT name FROM items ORDER BY id`, nil, func(rows *sql.Rows) error {
		for rows.Next() {
			var n string
			if err := rows.Scan(&n); err != nil {
				return err
			}
			names = append(names, n)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(names) != 3 || names[0] != "a" || names[2] != "c" {
		t.Errorf("names = %v, want [a b c]", names)
	}
}

func TestTransactionCommit(t *testing.T) {
	db := newTestDB(t, DefaultConfig())
	ctx := context.Background()

	err := db.Transaction(ctx, func(tx *Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO items (name) VALUES (?)`, "committed"); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `INSERT INTO items (name) VALUES (?)`, "also committed")
		return err
	})
	if err != nil {
		t.Fatalf("Transaction() error = %v", err)
	}

	count := countItems(t, db)
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestTransactionRollsBackOnError(t *testing.T) {
	db := newTestDB(t, DefaultConfig())
	ctx := context.Background()

	boom := errors.New("boom")
	err := db.Transaction(ctx, func(tx *Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO items (name) VALUES (?)`, "doomed"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Transaction() error = %v, want boom to propagate", err)
	}

	if count := countItems(t, db); count != 0 {
		t.Errorf("count = %d after rollback, want 0", count)
	}
}

func TestAcquireExhaustion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxOpenConns = 1
	cfg.AcquireAttempts = 2
	cfg.AcquireDelay = 5 * time.Millisecond
	cfg.AcquireTimeout = 25 * time.Millisecond
	db := newTestDB(t, cfg)

	// Hold the only connection so every further acquisition times out.
	held, err := db.acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire() error = %v", err)
	}
	defer held.Close()

	_, err = db.Exec(context.Background(), `INSERT INTO items (name) VALUES (?)`, "starved")
	if !errors.Is(err, apperror.ErrConnExhausted) {
		t.Errorf("expected ErrConnExhausted, got %v", err)
	}
}

func TestRebind(t *testing.T) {
	sqliteDB := &DB{driver: driverSQLite}
	pgDB := &DB{driver: driverPostgres}

	query := `INSERT INTO t (a, b) VALUES (?, ?) ON CONFLICT(a) DO UPDATE SET b = ?`

	if got := sqliteDB.rebind(query); got != query {
		t.Errorf("sqlite rebind changed the query: %q", got)
	}
	want := `INSERT INTO t (a, b) VALUES ($1, $2) ON CONFLICT(a) DO UPDATE SET b = $3`
	if got := pgDB.rebind(query); got != want {
		t.Errorf("postgres rebind = %q, want %q", got, want)
	}
}

func countItems(t *testing.T, db *DB) int {
	t.Helper()
	var count int
	err := db.QueryRow(context.Background(), `SELECT COUNT(*) FROM items`, nil, func(row *sql.Row) error {
		return row.Scan(&count)
	})
	if err != nil {
		t.Fatalf("counting items: %v", err)
	}
	return count
}
