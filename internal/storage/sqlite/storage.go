package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nikolayk812/cartstore/internal/port"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS local_storage (
	profile    TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (profile, key)
);`

const (
	getValueSQL = `SELECT value FROM local_storage WHERE profile = ? AND key = ?`

	setValueSQL = `INSERT INTO local_storage (profile, key, value, updated_at)
VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (profile, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	removeValueSQL = `DELETE FROM local_storage WHERE profile = ? AND key = ?`
)

// Storage keeps one profile's values in an on-disk SQLite file.
type Storage struct {
	db      *sql.DB
	profile string
}

// Open creates or opens the database file at path.
func Open(path, profile string) (*Storage, error) {
	if profile == "" {
		return nil, fmt.Errorf("profile is empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("os.MkdirAll: %w", err)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("db.Exec schema: %w", err)
	}

	return &Storage{db: db, profile: profile}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, fmt.Errorf("key is empty")
	}

	return getValue(ctx, s.db, s.profile, key)
}

func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("key is empty")
	}

	if _, err := s.db.ExecContext(ctx, setValueSQL, s.profile, key, string(value)); err != nil {
		return fmt.Errorf("db.ExecContext: %w", err)
	}

	return nil
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("key is empty")
	}

	if _, err := s.db.ExecContext(ctx, removeValueSQL, s.profile, key); err != nil {
		return fmt.Errorf("db.ExecContext: %w", err)
	}

	return nil
}

func (s *Storage) Update(ctx context.Context, key string, fn func(value []byte, found bool) ([]byte, error)) (txErr error) {
	if key == "" {
		return fmt.Errorf("key is empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db.BeginTx: %w", err)
	}

	defer func() {
		if txErr != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				txErr = errors.Join(txErr, fmt.Errorf("tx.Rollback: %w", rollbackErr))
			}
		}
	}()

	current, err := getValue(ctx, tx, s.profile, key)
	found := true
	if errors.Is(err, port.ErrNotFound) {
		found = false
	} else if err != nil {
		return err
	}

	updated, err := fn(current, found)
	if err != nil {
		return fmt.Errorf("fn: %w", err)
	}

	if _, err := tx.ExecContext(ctx, setValueSQL, s.profile, key, string(updated)); err != nil {
		return fmt.Errorf("tx.ExecContext: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tx.Commit: %w", err)
	}

	return nil
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getValue(ctx context.Context, q rowQuerier, profile, key string) ([]byte, error) {
	var value string

	err := q.QueryRowContext(ctx, getValueSQL, profile, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("q.QueryRowContext: %w", err)
	}

	return []byte(value), nil
}
