package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EcoFlowOps/internal/models"
)

func TestMemoryTokensLifecycle(t *testing.T) {
	repo := NewMemoryStateRepository()
	ctx := context.Background()

	_, err := repo.LoadTokens(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.SaveTokens(ctx, &models.TokenPair{Access: "a", Refresh: "r"}))

	pair, err := repo.LoadTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", pair.Access)

	require.NoError(t, repo.ClearTokens(ctx))
	_, err = repo.LoadTokens(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemorySettingsLifecycle(t *testing.T) {
	repo := NewMemoryStateRepository()
	ctx := context.Background()

	_, err := repo.LoadSettings(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	form := &models.SetupForm{OrganizationName: "Convention Center", TotalCapacity: 500}
	require.NoError(t, repo.SaveSettings(ctx, form))

	loaded, err := repo.LoadSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Convention Center", loaded.OrganizationName)
}

func TestMemoryReturnsCopies(t *testing.T) {
	repo := NewMemoryStateRepository()
	ctx := context.Background()

	require.NoError(t, repo.SaveTokens(ctx, &models.TokenPair{Access: "a"}))

	first, err := repo.LoadTokens(ctx)
	require.NoError(t, err)
	first.Access = "mutated"

	second, err := repo.LoadTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", second.Access)
}
