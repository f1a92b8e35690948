package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/futstats/dailypost/internal/models"
)

// FileStore keeps the post collection in a single JSON file, rewritten
// atomically (temp file + rename) so readers never observe a partial write.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// LoadPosts reads the full collection. A missing file is an empty store.
// Records without an id or title are dropped on read.
func (s *FileStore) LoadPosts(_ context.Context) ([]models.Post, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read posts file: %w", err)
	}

	var posts []models.Post
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil, fmt.Errorf("failed to parse posts file %s: %w", s.path, err)
	}

	valid := posts[:0]
	for _, p := range posts {
		p.ID = strings.TrimSpace(p.ID)
		p.Title = strings.TrimSpace(p.Title)
		if p.ID == "" || p.Title == "" {
			continue
		}
		valid = append(valid, p)
	}
	return valid, nil
}

// ReplaceAll rewrites the whole collection in the given order.
func (s *FileStore) ReplaceAll(_ context.Context, posts []models.Post) error {
	if posts == nil {
		posts = []models.Post{}
	}

	data, err := json.MarshalIndent(posts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize posts: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create posts dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".posts-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp posts file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write posts file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close posts file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace posts file: %w", err)
	}

	log.Debug().Str("path", s.path).Int("posts", len(posts)).Msg("Posts file rewritten")
	return nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close(_ context.Context) error { return nil }
