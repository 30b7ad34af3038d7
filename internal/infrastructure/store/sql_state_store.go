package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect holds the statements that differ between SQL engines.
type Dialect struct {
	Name   string
	Schema string
	Select string
	Upsert string
}

var (
	PostgresDialect = Dialect{
		Name: "postgres",
		Schema: `CREATE TABLE IF NOT EXISTS boutique_state (
			state_key  TEXT PRIMARY KEY,
			data       JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		Select: `SELECT data FROM boutique_state WHERE state_key = $1`,
		Upsert: `INSERT INTO boutique_state (state_key, data, updated_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (state_key) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
	}

	SQLiteDialect = Dialect{
		Name: "sqlite3",
		Schema: `CREATE TABLE IF NOT EXISTS boutique_state (
			state_key  TEXT PRIMARY KEY,
			data       TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		Select: `SELECT data FROM boutique_state WHERE state_key = ?`,
		Upsert: `INSERT INTO boutique_state (state_key, data, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT (state_key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
	}
)

// SQLStateStore keeps the state blob in a single-row-per-key table.
type SQLStateStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLStateStore(db *sql.DB, dialect Dialect) *SQLStateStore {
	return &SQLStateStore{db: db, dialect: dialect}
}

// Migrate creates the state table if it does not exist.
func (s *SQLStateStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.Schema); err != nil {
		return fmt.Errorf("create boutique_state (%s): %w", s.dialect.Name, err)
	}
	return nil
}

func (s *SQLStateStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}
	var data []byte
	err := s.db.QueryRowContext(ctx, s.dialect.Select, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load state: %w", err)
	}
	return data, true, nil
}

func (s *SQLStateStore) Save(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	// Sent as text: lib/pq would encode []byte as bytea, which jsonb rejects.
	if _, err := s.db.ExecContext(ctx, s.dialect.Upsert, key, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// ConnectPostgres establishes a connection to PostgreSQL
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// ConnectSQLite opens a SQLite database file and applies the pragmas used
// for a single-writer service.
func ConnectSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer; also keeps ":memory:" databases on a single connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA busy_timeout = 30000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set %q: %w", pragma, err)
		}
	}

	return db, nil
}
