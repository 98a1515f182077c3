package wishlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/nikolayk812/cartstore/internal/domain"
	"github.com/nikolayk812/cartstore/internal/port"
	"go.uber.org/zap"
)

// Key is the storage key holding the JSON list of product ids.
const Key = "wishlist"

type Wishlist struct {
	storage  port.Storage
	notifier port.Notifier
	logger   *zap.Logger
}

func New(storage port.Storage, notifier port.Notifier, logger *zap.Logger) (*Wishlist, error) {
	if storage == nil {
		return nil, fmt.Errorf("storage is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Wishlist{storage: storage, notifier: notifier, logger: logger}, nil
}

// Add appends productID unless it is already present and reports whether it did.
func (w *Wishlist) Add(ctx context.Context, productID string) (bool, error) {
	if productID == "" {
		return false, fmt.Errorf("productID is empty")
	}

	ids, err := w.List(ctx)
	if err != nil {
		return false, err
	}

	if slices.Contains(ids, productID) {
		w.notify(ctx, "Product already in wishlist", domain.SeverityInfo)
		return false, nil
	}

	if err := w.save(ctx, append(ids, productID)); err != nil {
		return false, err
	}

	w.notify(ctx, "Product added to wishlist", domain.SeveritySuccess)
	return true, nil
}

func (w *Wishlist) Remove(ctx context.Context, productID string) (bool, error) {
	ids, err := w.List(ctx)
	if err != nil {
		return false, err
	}

	i := slices.Index(ids, productID)
	if i < 0 {
		return false, nil
	}

	if err := w.save(ctx, slices.Delete(ids, i, i+1)); err != nil {
		return false, err
	}

	w.notify(ctx, "Product removed from wishlist", domain.SeveritySuccess)
	return true, nil
}

func (w *Wishlist) Contains(ctx context.Context, productID string) (bool, error) {
	ids, err := w.List(ctx)
	if err != nil {
		return false, err
	}

	return slices.Contains(ids, productID), nil
}

// List returns product ids in insertion order; absent or malformed state is empty.
func (w *Wishlist) List(ctx context.Context) ([]string, error) {
	data, err := w.storage.Get(ctx, Key)
	if errors.Is(err, port.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage.Get: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		w.logger.Warn("stored wishlist is malformed, treating as empty", zap.Error(err))
		return nil, nil
	}

	return ids, nil
}

func (w *Wishlist) save(ctx context.Context, ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	if err := w.storage.Set(ctx, Key, data); err != nil {
		return fmt.Errorf("storage.Set: %w", err)
	}

	return nil
}

func (w *Wishlist) notify(ctx context.Context, message string, severity domain.Severity) {
	if w.notifier != nil {
		w.notifier.Notify(ctx, message, severity)
	}
}
