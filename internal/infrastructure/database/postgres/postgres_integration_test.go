//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoodskool/hoodskool-backend/internal/config"
	"github.com/hoodskool/hoodskool-backend/internal/domain/cart"
	"github.com/hoodskool/hoodskool-backend/internal/testinfra"
)

type integrationDB struct {
	conn      *Connection
	migration *Migration
	repo      *CartRepository
}

func newIntegrationDB(t *testing.T) *integrationDB {
	t.Helper()

	endpoint := testinfra.StartPostgres(t)
	logger, _ := test.NewNullLogger()

	cfg := &config.Config{
		App: config.AppConfig{Environment: "test"},
		Postgres: config.PostgresConfig{
			Host:           endpoint.Host,
			Port:           endpoint.Port,
			Name:           testinfra.PostgresDB,
			User:           testinfra.PostgresUser,
			Password:       testinfra.PostgresPassword,
			SSLMode:        "disable",
			MaxOpenConns:   4,
			MaxIdleConns:   1,
			MaxLifetime:    time.Minute,
			ConnectTimeout: 10 * time.Second,
		},
	}

	conn, err := NewConnection(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	migration := NewMigration(conn.GetDB(), logger)
	require.NoError(t, migration.RunAutoMigrations())
	require.NoError(t, migration.CreateIndexes())

	return &integrationDB{conn: conn, migration: migration, repo: NewCartRepository(conn.GetDB())}
}

func TestCartRepository_Integration(t *testing.T) {
	db := newIntegrationDB(t)
	ctx := context.Background()
	require.NoError(t, db.conn.Health(ctx))

	soldOut, err := db.repo.CreateItem(ctx, "u1", cart.CartItem{
		ProductID: "tee", Name: "Boxy Tee", Price: 45, Quantity: 1, MaxQuantity: 3, Size: "M", InStock: false,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, soldOut.ID)

	hoodie, err := db.repo.CreateItem(ctx, "u1", cart.CartItem{
		ProductID: "hoodie", Name: "Heavyweight Hoodie", Price: 89, Quantity: 2, InStock: true,
		Color: &cart.Color{Name: "Grey", Hex: "#888888"},
	})
	require.NoError(t, err)

	_, err = db.repo.CreateItem(ctx, "u2", cart.CartItem{ProductID: "cap", Name: "Cap", Price: 20, Quantity: 1, InStock: true})
	require.NoError(t, err)

	t.Run("out of stock survives a round trip", func(t *testing.T) {
		got, err := db.repo.GetItem(ctx, "u1", soldOut.ID)
		require.NoError(t, err)
		assert.False(t, got.InStock)
		assert.Equal(t, 3, got.MaxQuantity)
	})

	t.Run("list is ordered by creation and scoped to the user", func(t *testing.T) {
		items, err := db.repo.ListItems(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, soldOut.ID, items[0].ID)
		assert.Equal(t, hoodie.ID, items[1].ID)
		assert.Equal(t, &cart.Color{Name: "Grey", Hex: "#888888"}, items[1].Color)
	})

	t.Run("unknown ids", func(t *testing.T) {
		_, err := db.repo.GetItem(ctx, "u1", "missing")
		assert.ErrorIs(t, err, cart.ErrItemNotFound)

		err = db.repo.UpdateQuantity(ctx, "u1", "missing", 2)
		assert.ErrorIs(t, err, cart.ErrItemNotFound)

		err = db.repo.UpdateQuantity(ctx, "u2", hoodie.ID, 2)
		assert.ErrorIs(t, err, cart.ErrItemNotFound, "other users' lines are not visible")

		assert.NoError(t, db.repo.DeleteItem(ctx, "u1", "missing"))
	})

	t.Run("update quantity", func(t *testing.T) {
		require.NoError(t, db.repo.UpdateQuantity(ctx, "u1", hoodie.ID, 4))
		got, err := db.repo.GetItem(ctx, "u1", hoodie.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, got.Quantity)
	})

	t.Run("delete all only clears the user", func(t *testing.T) {
		require.NoError(t, db.repo.DeleteAll(ctx, "u1"))

		items, err := db.repo.ListItems(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, items)

		others, err := db.repo.ListItems(ctx, "u2")
		require.NoError(t, err)
		assert.Len(t, others, 1)
	})
}

func TestMigration_PruneStaleCarts_Integration(t *testing.T) {
	db := newIntegrationDB(t)
	ctx := context.Background()

	stale, err := db.repo.CreateItem(ctx, "u1", cart.CartItem{ProductID: "tee", Name: "Boxy Tee", Quantity: 1, InStock: true})
	require.NoError(t, err)
	fresh, err := db.repo.CreateItem(ctx, "u1", cart.CartItem{ProductID: "cap", Name: "Cap", Quantity: 1, InStock: true})
	require.NoError(t, err)

	require.NoError(t, db.conn.GetDB().
		Model(&CartItemRecord{}).
		Where("id = ?", stale.ID).
		Update("updated_at", time.Now().UTC().AddDate(0, 0, -40)).Error)

	removed, err := db.migration.PruneStaleCarts(0)
	require.NoError(t, err)
	assert.Zero(t, removed)

	removed, err = db.migration.PruneStaleCarts(30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	items, err := db.repo.ListItems(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, fresh.ID, items[0].ID)
}
