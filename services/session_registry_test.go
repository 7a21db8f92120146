package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yvetteluxe63/yvetteluxe/database"
	"github.com/yvetteluxe63/yvetteluxe/models"
)

func TestSessionRegistry_Get(t *testing.T) {
	ctx := context.Background()
	kv := database.NewMemoryKV()
	registry := NewSessionRegistry(kv, nil, nil, "admin", zapNop())

	_, err := registry.Get(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrInvalidSessionID)

	id := uuid.NewString()
	first, err := registry.Get(ctx, id)
	require.NoError(t, err)
	second, err := registry.Get(ctx, id)
	require.NoError(t, err)
	assert.Same(t, first, second)

	other, err := registry.Get(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.NotSame(t, first, other)
	assert.Equal(t, 2, registry.Len())
}

func TestSessionRegistry_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	kv := database.NewMemoryKV()
	registry := NewSessionRegistry(kv, nil, nil, "admin", zapNop())

	a, err := registry.Get(ctx, uuid.NewString())
	require.NoError(t, err)
	b, err := registry.Get(ctx, uuid.NewString())
	require.NoError(t, err)

	_, err = a.Cart.Add(ctx, item("A", 10, "", ""), 1)
	require.NoError(t, err)
	require.NoError(t, a.Admin.Login(ctx, "admin"))

	assert.Empty(t, b.Cart.Snapshot().Items)
	assert.False(t, b.Admin.IsAuthenticated())
}

func TestSessionRegistry_SweepAndRehydrate(t *testing.T) {
	ctx := context.Background()
	kv := database.NewMemoryKV()
	registry := NewSessionRegistry(kv, nil, nil, "admin", zapNop())
	clock := time.Now()
	registry.now = func() time.Time { return clock }

	id := uuid.NewString()
	sess, err := registry.Get(ctx, id)
	require.NoError(t, err)
	_, err = sess.Cart.Add(ctx, item("A", 10, "", ""), 2)
	require.NoError(t, err)
	_, err = sess.Wishlist.Add(ctx, models.WishlistItem{ProductID: "W"})
	require.NoError(t, err)

	clock = clock.Add(time.Minute)
	assert.Equal(t, 0, registry.Sweep(time.Hour))

	busy, err := registry.Get(ctx, uuid.NewString())
	require.NoError(t, err)
	require.True(t, busy.beginCheckout())

	clock = clock.Add(2 * time.Hour)
	assert.Equal(t, 1, registry.Sweep(time.Hour))
	assert.Equal(t, 1, registry.Len())

	restored, err := registry.Get(ctx, id)
	require.NoError(t, err)
	assert.NotSame(t, sess, restored)
	assert.Equal(t, 2, restored.Cart.ItemCount())
	assert.True(t, restored.Wishlist.Contains("W"))
}

func TestSessionRegistry_ConcurrentGetReturnsOneSession(t *testing.T) {
	ctx := context.Background()
	registry := NewSessionRegistry(database.NewMemoryKV(), nil, nil, "admin", zapNop())
	id := uuid.NewString()

	var wg sync.WaitGroup
	results := make([]*ShopperSession, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := registry.Get(ctx, id)
			if err == nil {
				results[i] = s
			}
		}(i)
	}
	wg.Wait()

	for _, s := range results {
		assert.Same(t, results[0], s)
	}
	registry.Close()
	assert.Equal(t, 0, registry.Len())
}

func TestSessionRegistry_SweepNeverEvictsReturnedSession(t *testing.T) {
	ctx := context.Background()
	registry := NewSessionRegistry(database.NewMemoryKV(), nil, nil, "admin", zapNop())
	clock := time.Now()
	registry.now = func() time.Time { return clock }
	id := uuid.NewString()

	for i := 0; i < 200; i++ {
		sess, err := registry.Get(ctx, id)
		require.NoError(t, err)
		sess.lastSeen.Store(clock.Add(-2 * time.Hour).UnixNano())

		var got *ShopperSession
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			got, _ = registry.Get(ctx, id)
		}()
		go func() {
			defer wg.Done()
			registry.Sweep(time.Hour)
		}()
		wg.Wait()

		registry.mu.Lock()
		resident := registry.sessions[id]
		registry.mu.Unlock()
		require.NotNil(t, got)
		require.Same(t, resident, got, "iteration %d", i)
	}
}
