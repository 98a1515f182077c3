package redisstore_test

import (
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/nikolayk812/cartstore/internal/cart"
	"github.com/nikolayk812/cartstore/internal/port"
	"github.com/nikolayk812/cartstore/internal/storage/redisstore"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupStorage creates a miniredis server and a storage bound to profile
func setupStorage(t *testing.T, profile string) (port.Storage, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	s, err := redisstore.New(client, profile)
	require.NoError(t, err)

	return s, mr
}

func TestNew_Validation(t *testing.T) {
	_, err := redisstore.New(nil, "default")
	require.EqualError(t, err, "client is nil")

	_, err = redisstore.New(redis.NewClient(&redis.Options{}), "")
	require.EqualError(t, err, "profile is empty")
}

func TestGet_Missing(t *testing.T) {
	s, _ := setupStorage(t, "default")

	_, err := s.Get(t.Context(), "nonexistent")
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestSet_KeyFormatAndNoTTL(t *testing.T) {
	s, mr := setupStorage(t, "alice")

	require.NoError(t, s.Set(t.Context(), cart.ItemsKey, []byte(`[]`)))

	stored, err := mr.Get("localstorage:alice:cartItems")
	require.NoError(t, err)
	assert.Equal(t, `[]`, stored)
	assert.Zero(t, mr.TTL("localstorage:alice:cartItems"))
}

func TestRemove(t *testing.T) {
	s, mr := setupStorage(t, "default")
	ctx := t.Context()

	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	require.NoError(t, s.Remove(ctx, "k"))
	assert.False(t, mr.Exists("localstorage:default:k"))

	// Deleting non-existent key should not error
	require.NoError(t, s.Remove(ctx, "k"))
}

func TestUpdate(t *testing.T) {
	s, _ := setupStorage(t, "default")
	ctx := t.Context()

	updater, ok := s.(port.Updater)
	require.True(t, ok)

	require.NoError(t, updater.Update(ctx, "k", func(value []byte, found bool) ([]byte, error) {
		assert.False(t, found)
		return []byte("v1"), nil
	}))

	errBoom := errors.New("boom")
	err := updater.Update(ctx, "k", func(value []byte, found bool) ([]byte, error) {
		assert.Equal(t, "v1", string(value))
		return nil, errBoom
	})
	require.ErrorIs(t, err, errBoom)

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got))
}

func TestCart_OverRedis(t *testing.T) {
	s, _ := setupStorage(t, "default")
	ctx := t.Context()

	store, err := cart.New(s)
	require.NoError(t, err)

	require.NoError(t, store.Add(ctx, "p1", "Abaya", decimal.NewFromInt(10), "a.jpg", 2))
	require.NoError(t, store.Add(ctx, "p2", "Scarf", decimal.NewFromInt(5), "s.jpg", 3))

	total, err := store.Total(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(35).Equal(total.Amount))
}
