//go:build integration

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/yowlens/lens/models"
	"github.com/yowlens/lens/ranking"
)

func setupStore(t *testing.T) *PostgresStore {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"pgvector/pgvector:pg17",
		postgres.WithDatabase("lens_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := NewPostgresStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	require.NoError(t, store.Migrate(ctx, 3))
	return store
}

func TestPostgresStore_Catalog(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	products := []models.CatalogProduct{
		{ID: "1", Name: "Olive Breton Striped Top", Category: "Top", Color: "olive", Price: 35, Embedding: []float32{1, 0, 0}},
		{ID: "2", Name: "Navy Pinstripe Shirt", Category: "top", Color: "navy", Embedding: []float32{0.8, 0.6, 0}},
		{ID: "3", Name: "Black Woven Tote", Category: "bag", Embedding: []float32{0, 0, 1}},
		{ID: "4", Name: "Mystery Item", Embedding: []float32{0, 1, 0}},
	}
	n, err := store.UpsertProducts(ctx, products, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	// re-running the load updates in place
	products[0].Price = 30
	_, err = store.UpsertProducts(ctx, products[:1], 0)
	require.NoError(t, err)

	count, err := store.CountByCategory(ctx, "TOP")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	counts, err := store.CategoryCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"top": 2, "bag": 1, "unknown": 1}, counts)

	t.Run("visual only", func(t *testing.T) {
		got, err := store.NearestNeighbors(ctx, ranking.NeighborQuery{Image: []float32{1, 0, 0}, Limit: 2})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "1", got[0].Product.ID)
		assert.Equal(t, 30.0, got[0].Product.Price)
		assert.InDelta(t, 1.0, got[0].VisualSim, 1e-6)
		assert.Zero(t, got[0].TextSim)
		assert.Equal(t, "2", got[1].Product.ID)
		assert.InDelta(t, 0.8, got[1].VisualSim, 1e-6)
	})

	t.Run("blended with category", func(t *testing.T) {
		got, err := store.NearestNeighbors(ctx, ranking.NeighborQuery{
			Image:    []float32{1, 0, 0},
			Text:     []float32{0, 1, 0},
			Category: "top",
			Limit:    10,
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
		// product 2 blends 0.8 visual and 0.6 text, beating product 1's 1.0 and 0.0
		assert.Equal(t, "2", got[0].Product.ID)
		assert.InDelta(t, 0.6, got[0].TextSim, 1e-6)
		assert.Equal(t, "", got[1].Product.Brand)
	})
}
