//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoodskool/hoodskool-backend/internal/config"
	"github.com/hoodskool/hoodskool-backend/internal/domain/cart"
	"github.com/hoodskool/hoodskool-backend/internal/testinfra"
)

func newIntegrationClient(t *testing.T) *redis.Client {
	t.Helper()

	endpoint := testinfra.StartRedis(t)
	logger, _ := test.NewNullLogger()

	conn, err := NewConnection(&config.Config{
		Redis: config.RedisConfig{Host: endpoint.Host, Port: endpoint.Port, PoolSize: 4, MinIdleConns: 1},
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.Health(context.Background()))
	return conn.GetClient()
}

func TestGuestCartStorage_Integration(t *testing.T) {
	client := newIntegrationClient(t)
	ctx := context.Background()
	storage := NewGuestCartStorage(client, "s1", time.Hour)

	items, err := storage.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	saved := []cart.CartItem{
		{ID: "temp_1_abcd1234", ProductID: "tee", Name: "Boxy Tee", Price: 45, Quantity: 2, MaxQuantity: 5, Size: "M"},
		{ID: "temp_2_abcd1234", ProductID: "hoodie", Name: "Heavyweight Hoodie", Price: 89, Quantity: 1, InStock: true,
			Color: &cart.Color{Name: "Grey", Hex: "#888888"}},
	}
	require.NoError(t, storage.Save(ctx, saved))

	items, err = storage.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, items)

	ttl, err := client.TTL(ctx, GuestCartKey("s1")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)

	other, err := NewGuestCartStorage(client, "s2", time.Hour).Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, storage.Clear(ctx))
	exists, err := client.Exists(ctx, GuestCartKey("s1")).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}

func TestSyncGuard_Integration(t *testing.T) {
	client := newIntegrationClient(t)
	ctx := context.Background()
	guard := NewSyncGuard(client, 10*time.Minute)

	acquired, err := guard.Acquire(ctx, "s1", "u1")
	require.NoError(t, err)
	assert.True(t, acquired)

	acquired, err = guard.Acquire(ctx, "s1", "u1")
	require.NoError(t, err)
	assert.False(t, acquired)

	acquired, err = guard.Acquire(ctx, "s1", "u2")
	require.NoError(t, err)
	assert.True(t, acquired, "guards are per user")

	ttl, err := client.TTL(ctx, SyncedKey("s1", "u1")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 9*time.Minute)

	require.NoError(t, guard.Release(ctx, "s1", "u1"))
	acquired, err = guard.Acquire(ctx, "s1", "u1")
	require.NoError(t, err)
	assert.True(t, acquired)
}
