package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nikolayk812/cartstore/internal/port"
)

// LastSearchKey is the storage key of the most recent search query.
const LastSearchKey = "lastSearch"

type History struct {
	storage port.Storage
}

func NewHistory(storage port.Storage) *History {
	return &History{storage: storage}
}

// Remember stores query as the last search; blank queries are ignored.
func (h *History) Remember(ctx context.Context, query string) error {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	if err := h.storage.Set(ctx, LastSearchKey, []byte(query)); err != nil {
		return fmt.Errorf("storage.Set: %w", err)
	}

	return nil
}

func (h *History) Last(ctx context.Context) (string, error) {
	data, err := h.storage.Get(ctx, LastSearchKey)
	if errors.Is(err, port.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("storage.Get: %w", err)
	}

	return string(data), nil
}
