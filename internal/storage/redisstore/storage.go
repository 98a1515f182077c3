package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/nikolayk812/cartstore/internal/port"
	"github.com/redis/go-redis/v9"
)

const maxUpdateRetries = 5

type storage struct {
	client  *redis.Client
	profile string
}

func New(client *redis.Client, profile string) (port.Storage, error) {
	if client == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if profile == "" {
		return nil, fmt.Errorf("profile is empty")
	}

	return &storage{client: client, profile: profile}, nil
}

func (s *storage) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, fmt.Errorf("key is empty")
	}

	data, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	return data, nil
}

// Set stores the value without expiry.
func (s *storage) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("key is empty")
	}

	if err := s.client.Set(ctx, s.redisKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

func (s *storage) Remove(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("key is empty")
	}

	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}

	return nil
}

// Update uses optimistic locking (WATCH/MULTI) and retries when the key
// changed underneath.
func (s *storage) Update(ctx context.Context, key string, fn func(value []byte, found bool) ([]byte, error)) error {
	if key == "" {
		return fmt.Errorf("key is empty")
	}

	rkey := s.redisKey(key)

	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, rkey).Bytes()
		found := true
		if errors.Is(err, redis.Nil) {
			found = false
		} else if err != nil {
			return fmt.Errorf("redis get failed: %w", err)
		}

		updated, err := fn(current, found)
		if err != nil {
			return fmt.Errorf("fn: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, rkey, updated, 0)
			return nil
		})
		return err
	}

	for range maxUpdateRetries {
		err := s.client.Watch(ctx, txf, rkey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return err
		}
		return nil
	}

	return fmt.Errorf("redis update of %s: retries exhausted", rkey)
}

func (s *storage) redisKey(key string) string {
	return fmt.Sprintf("localstorage:%s:%s", s.profile, key)
}
