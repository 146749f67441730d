package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	user := &User{Email: " Reader@Example.com ", Name: "Reader", PasswordHash: "hash"}
	require.NoError(t, repo.CreateUser(ctx, user))
	assert.Equal(t, "reader@example.com", user.Email)

	err := repo.CreateUser(ctx, &User{Email: "reader@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrDuplicate)

	byEmail, err := repo.GetUserByEmail(ctx, "READER@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, user.ID, byEmail.ID)

	missing, err := repo.GetUser(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	ids, err := repo.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{user.ID}, ids)
}

func TestUserRepositorySessions(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	user := &User{Email: "a@example.com", PasswordHash: "hash"}
	require.NoError(t, repo.CreateUser(ctx, user))

	now := time.Now()
	require.NoError(t, repo.CreateSession(ctx, "live", user.ID, now.Add(time.Hour)))
	require.NoError(t, repo.CreateSession(ctx, "stale", user.ID, now.Add(-time.Hour)))

	userID, err := repo.GetSessionUserID(ctx, "live", now)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	userID, err = repo.GetSessionUserID(ctx, "stale", now)
	require.NoError(t, err)
	assert.Empty(t, userID)

	require.NoError(t, repo.DeleteSession(ctx, "live"))
	userID, err = repo.GetSessionUserID(ctx, "live", now)
	require.NoError(t, err)
	assert.Empty(t, userID)
}
