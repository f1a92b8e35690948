package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futstats/dailypost/internal/models"
)

func newFileWriter(t *testing.T, maxPosts int) (*Writer, *FileStore) {
	t.Helper()
	store := NewFileStore(filepath.Join(t.TempDir(), "posts.json"))
	return NewWriter(store, maxPosts), store
}

func post(id, title string) *models.Post {
	return &models.Post{ID: id, Title: title, Content: "body", Date: "2026-08-29", Category: "Daily"}
}

func TestPublishWritesNewPost(t *testing.T) {
	w, store := newFileWriter(t, 60)
	ctx := context.Background()

	res, err := w.Publish(ctx, post("daily-2026-08-29", "Today"))
	require.NoError(t, err)
	assert.True(t, res.Written)
	assert.Equal(t, 1, res.Total)

	posts, err := store.LoadPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "daily-2026-08-29", posts[0].ID)
}

func TestPublishIsIdempotent(t *testing.T) {
	w, store := newFileWriter(t, 60)
	ctx := context.Background()

	_, err := w.Publish(ctx, post("daily-2026-08-29", "Today"))
	require.NoError(t, err)

	// Second run on the same day changes nothing
	res, err := w.Publish(ctx, post("daily-2026-08-29", "A different title"))
	require.NoError(t, err)
	assert.False(t, res.Written)
	assert.Equal(t, 1, res.Total)

	posts, err := store.LoadPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "Today", posts[0].Title)
}

func TestPublishPrependsNewestFirst(t *testing.T) {
	w, store := newFileWriter(t, 60)
	ctx := context.Background()

	_, err := w.Publish(ctx, post("daily-2026-08-28", "Yesterday"))
	require.NoError(t, err)
	_, err = w.Publish(ctx, post("daily-2026-08-29", "Today"))
	require.NoError(t, err)

	posts, err := store.LoadPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "daily-2026-08-29", posts[0].ID)
	assert.Equal(t, "daily-2026-08-28", posts[1].ID)
}

func TestPublishEnforcesRetentionCap(t *testing.T) {
	w, store := newFileWriter(t, 60)
	ctx := context.Background()

	existing := make([]models.Post, 65)
	for i := range existing {
		existing[i] = *post(fmt.Sprintf("daily-old-%02d", i), fmt.Sprintf("Old %d", i))
	}
	require.NoError(t, store.ReplaceAll(ctx, existing))

	res, err := w.Publish(ctx, post("daily-2026-08-29", "Today"))
	require.NoError(t, err)
	assert.True(t, res.Written)
	assert.Equal(t, 60, res.Total)

	posts, err := store.LoadPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 60)

	// Newest first; today's insertion is exempt from its own eviction
	assert.Equal(t, "daily-2026-08-29", posts[0].ID)
	assert.Equal(t, "daily-old-00", posts[1].ID)
	assert.Equal(t, "daily-old-58", posts[59].ID)
}

func TestWriterEnforcesRetentionFloor(t *testing.T) {
	w, store := newFileWriter(t, 3)
	ctx := context.Background()

	existing := make([]models.Post, 12)
	for i := range existing {
		existing[i] = *post(fmt.Sprintf("daily-old-%02d", i), fmt.Sprintf("Old %d", i))
	}
	require.NoError(t, store.ReplaceAll(ctx, existing))

	res, err := w.Publish(ctx, post("daily-2026-08-29", "Today"))
	require.NoError(t, err)

	// Configured cap of 3 is below the floor of 10
	assert.Equal(t, 10, res.Total)
}

func TestPublishKeepsPriorDays(t *testing.T) {
	w, store := newFileWriter(t, 60)
	ctx := context.Background()

	prior := []models.Post{
		*post("daily-2026-08-28", "Yesterday"),
	}
	require.NoError(t, store.ReplaceAll(ctx, prior))

	res, err := w.Publish(ctx, post("daily-2026-08-29", "Today"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
}
