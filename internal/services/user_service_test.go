package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncIdentity_MirrorsVerifiedIdentity(t *testing.T) {
	repo := newFakeRepository()
	svc := NewUserService(repo, quietLogger())
	ctx := context.Background()

	user, err := svc.SyncIdentity(ctx, "admin-9", "Admin@Example.com", "Admin Nine")
	require.NoError(t, err)
	assert.Equal(t, "admin-9", user.ID)
	assert.Equal(t, "admin@example.com", user.Email)
	assert.Equal(t, "Admin Nine", user.FullName)
	assert.True(t, user.IsActive)
	require.NotNil(t, user.LastLoginAt)

	stored, err := svc.GetByID(ctx, "admin-9")
	require.NoError(t, err)
	assert.Equal(t, user.Email, stored.Email)
}

func TestSyncIdentity_UpdatesExistingUser(t *testing.T) {
	repo := newFakeRepository()
	svc := NewUserService(repo, quietLogger())
	ctx := context.Background()

	first, err := svc.SyncIdentity(ctx, "admin-9", "old@example.com", "Old Name")
	require.NoError(t, err)

	second, err := svc.SyncIdentity(ctx, "admin-9", "new@example.com", "New Name")
	require.NoError(t, err)

	stored, err := svc.GetByID(ctx, "admin-9")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", stored.Email)
	assert.Equal(t, "New Name", stored.FullName)
	require.NotNil(t, stored.LastLoginAt)
	assert.False(t, stored.LastLoginAt.Before(*first.LastLoginAt))
	assert.Equal(t, second.LastLoginAt, stored.LastLoginAt)
}

func TestGetUserByID_NotFound(t *testing.T) {
	svc := NewUserService(newFakeRepository(), quietLogger())

	_, err := svc.GetByID(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}
