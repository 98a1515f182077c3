package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/nikolayk812/cartstore/internal/port"
)

type storage struct {
	mu     sync.Mutex
	values map[string][]byte
}

func New() port.Storage {
	return &storage{values: make(map[string][]byte)}
}

func (s *storage) Get(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, fmt.Errorf("key is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.values[key]
	if !ok {
		return nil, port.ErrNotFound
	}

	return slices.Clone(value), nil
}

func (s *storage) Set(_ context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("key is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = slices.Clone(value)
	return nil
}

func (s *storage) Remove(_ context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("key is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

func (s *storage) Update(_ context.Context, key string, fn func(value []byte, found bool) ([]byte, error)) error {
	if key == "" {
		return fmt.Errorf("key is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, found := s.values[key]

	updated, err := fn(slices.Clone(current), found)
	if err != nil {
		return fmt.Errorf("fn: %w", err)
	}

	s.values[key] = slices.Clone(updated)
	return nil
}
