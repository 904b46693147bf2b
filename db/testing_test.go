package db

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"posts-api/models"
)

func newTestStore(t *testing.T) *SQLPostStore {
	t.Helper()
	ctx := context.Background()

	conn, err := InitDB(ctx, DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, Migrate(ctx, conn, DriverSQLite))
	return NewSQLPostStore(conn, DriverSQLite)
}

func newPost(expireIn time.Duration) models.Post {
	now := time.Now().UTC().Truncate(time.Second)
	return models.Post{
		ID:        uuid.NewString(),
		RouteID:   uuid.NewString(),
		UserID:    uuid.NewString(),
		ExpireAt:  now.Add(expireIn),
		CreatedAt: now.Add(-time.Hour),
	}
}
