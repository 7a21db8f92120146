package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yvetteluxe63/yvetteluxe/database"
)

func TestAdminGate(t *testing.T) {
	ctx := context.Background()
	kv := database.NewMemoryKV()
	gate := NewAdminGate("secret", kv, testLogger(t))

	assert.ErrorIs(t, gate.Login(ctx, "wrong"), ErrWrongAdminPassword)
	assert.False(t, gate.IsAuthenticated())

	require.NoError(t, gate.Login(ctx, "secret"))
	assert.True(t, gate.IsAuthenticated())

	restored := NewAdminGate("secret", kv, testLogger(t))
	require.NoError(t, restored.Hydrate(ctx))
	assert.True(t, restored.IsAuthenticated())

	require.NoError(t, restored.Logout(ctx))
	assert.False(t, restored.IsAuthenticated())

	again := NewAdminGate("secret", kv, testLogger(t))
	require.NoError(t, again.Hydrate(ctx))
	assert.False(t, again.IsAuthenticated())
}
