package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yvetteluxe63/yvetteluxe/database"
	"github.com/yvetteluxe63/yvetteluxe/models"
)

func TestWishlistStore_AddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewWishlistStore(database.NewMemoryKV(), testLogger(t))

	summary := models.ProductSummary{ID: "A", Name: "Dress", Price: decimal.NewFromInt(40)}
	_, err := store.AddProduct(ctx, summary)
	require.NoError(t, err)
	items, err := store.AddProduct(ctx, summary)
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.Equal(t, models.DefaultWishlistCategory, items[0].Category)
	assert.Equal(t, "", items[0].Image)
	assert.True(t, store.Contains("A"))
}

func TestWishlistStore_RemoveAndClear(t *testing.T) {
	ctx := context.Background()
	store := NewWishlistStore(database.NewMemoryKV(), testLogger(t))

	_, err := store.Add(ctx, models.WishlistItem{ProductID: "A"})
	require.NoError(t, err)
	_, err = store.Add(ctx, models.WishlistItem{ProductID: "B"})
	require.NoError(t, err)

	items, err := store.Remove(ctx, "A")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "B", items[0].ProductID)

	items, err = store.Clear(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestWishlistStore_Hydrate(t *testing.T) {
	ctx := context.Background()
	kv := database.NewMemoryKV()

	first := NewWishlistStore(kv, testLogger(t))
	_, err := first.Add(ctx, models.WishlistItem{ProductID: "A", Category: "shoes"})
	require.NoError(t, err)

	second := NewWishlistStore(kv, testLogger(t))
	require.NoError(t, second.Hydrate(ctx))
	items := second.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "shoes", items[0].Category)

	t.Run("unreadable snapshot is ignored", func(t *testing.T) {
		require.NoError(t, kv.Set(ctx, WishlistStorageKey, "nope"))
		third := NewWishlistStore(kv, testLogger(t))
		require.NoError(t, third.Hydrate(ctx))
		assert.Empty(t, third.Items())
	})
}
