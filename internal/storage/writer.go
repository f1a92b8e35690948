package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/futstats/dailypost/internal/models"
)

// minRetained is the retention floor: the store never truncates below this
// count, whatever the configured maximum says.
const minRetained = 10

// Result reports what a publish attempt did.
type Result struct {
	// Written is false when the post already existed (the idempotent no-op).
	Written bool

	// Total is the collection size after the run.
	Total int
}

// Writer merges a new daily post into the store. It exclusively owns the
// collection while Publish runs.
type Writer struct {
	store    Store
	maxPosts int
}

// NewWriter creates a post writer with the given retention cap.
func NewWriter(store Store, maxPosts int) *Writer {
	if maxPosts < minRetained {
		maxPosts = minRetained
	}
	return &Writer{store: store, maxPosts: maxPosts}
}

// Publish loads the collection, no-ops when the post's identifier already
// exists, and otherwise prepends the post, drops any stale entry sharing
// its identifier, truncates to the retention cap and rewrites the store
// newest-first. The new post itself is never a truncation victim.
func (w *Writer) Publish(ctx context.Context, post *models.Post) (Result, error) {
	existing, err := w.store.LoadPosts(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load existing posts: %w", err)
	}

	for _, p := range existing {
		if p.ID == post.ID {
			log.Info().Str("post_id", post.ID).Msg("Post for today already exists, nothing to do")
			return Result{Written: false, Total: len(existing)}, nil
		}
	}

	merged := make([]models.Post, 0, len(existing)+1)
	merged = append(merged, *post)
	for _, p := range existing {
		if p.ID == post.ID {
			continue
		}
		merged = append(merged, p)
	}

	if len(merged) > w.maxPosts {
		merged = merged[:w.maxPosts]
	}

	if err := w.store.ReplaceAll(ctx, merged); err != nil {
		return Result{}, fmt.Errorf("failed to write posts: %w", err)
	}

	log.Info().
		Str("post_id", post.ID).
		Int("total_posts", len(merged)).
		Msg("Daily post written")

	return Result{Written: true, Total: len(merged)}, nil
}
