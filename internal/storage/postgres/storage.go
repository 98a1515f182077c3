package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/cartstore/internal/port"
)

const (
	getValueSQL = `SELECT value FROM local_storage WHERE profile = $1 AND key = $2`

	lockValueSQL = `SELECT value FROM local_storage WHERE profile = $1 AND key = $2 FOR UPDATE`

	setValueSQL = `INSERT INTO local_storage (profile, key, value, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (profile, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

	removeValueSQL = `DELETE FROM local_storage WHERE profile = $1 AND key = $2`
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type storage struct {
	q       querier
	pool    *pgxpool.Pool
	profile string
}

func New(pool *pgxpool.Pool, profile string) (port.Storage, error) {
	if profile == "" {
		return nil, fmt.Errorf("profile is empty")
	}

	return &storage{
		q:       pool,
		pool:    pool,
		profile: profile,
	}, nil
}

func NewWithTx(tx pgx.Tx, profile string) (port.Storage, error) {
	if profile == "" {
		return nil, fmt.Errorf("profile is empty")
	}

	return &storage{
		q:       tx,
		pool:    nil, // use provided transaction instead
		profile: profile,
	}, nil
}

func (s *storage) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, fmt.Errorf("key is empty")
	}

	value, err := getValue(ctx, s.q, getValueSQL, s.profile, key)
	if err != nil {
		return nil, err
	}

	return value, nil
}

func (s *storage) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("key is empty")
	}

	if _, err := s.q.Exec(ctx, setValueSQL, s.profile, key, string(value)); err != nil {
		return fmt.Errorf("q.Exec: %w", err)
	}

	return nil
}

func (s *storage) Remove(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("key is empty")
	}

	if _, err := s.q.Exec(ctx, removeValueSQL, s.profile, key); err != nil {
		return fmt.Errorf("q.Exec: %w", err)
	}

	return nil
}

func (s *storage) Update(ctx context.Context, key string, fn func(value []byte, found bool) ([]byte, error)) error {
	if key == "" {
		return fmt.Errorf("key is empty")
	}

	_, err := withTx(ctx, s.pool, s.q, func(q querier) (struct{}, error) {
		current, err := getValue(ctx, q, lockValueSQL, s.profile, key)
		found := true
		if errors.Is(err, port.ErrNotFound) {
			found = false
		} else if err != nil {
			return struct{}{}, err
		}

		updated, err := fn(current, found)
		if err != nil {
			return struct{}{}, fmt.Errorf("fn: %w", err)
		}

		if _, err := q.Exec(ctx, setValueSQL, s.profile, key, string(updated)); err != nil {
			return struct{}{}, fmt.Errorf("q.Exec: %w", err)
		}

		return struct{}{}, nil
	})

	return err
}

func getValue(ctx context.Context, q querier, query, profile, key string) ([]byte, error) {
	var value string

	err := q.QueryRow(ctx, query, profile, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("q.QueryRow: %w", err)
	}

	return []byte(value), nil
}
