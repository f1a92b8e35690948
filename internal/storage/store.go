// Package storage persists the daily post collection. Two backends are
// provided: an atomic JSON file (the default, consumed directly by the
// presentation layer) and MongoDB. Both expose the same full-collection
// read/rewrite contract the writer relies on.
package storage

import (
	"context"

	"github.com/futstats/dailypost/internal/models"
)

// Store is the post collection backend. LoadPosts returns the collection
// newest-first; ReplaceAll rewrites it completely in the given order.
type Store interface {
	LoadPosts(ctx context.Context) ([]models.Post, error)
	ReplaceAll(ctx context.Context, posts []models.Post) error
	Close(ctx context.Context) error
}
