package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/futstats/dailypost/internal/render"
	"github.com/futstats/dailypost/internal/storage"
)

// Handlers holds the read-only posts API handlers.
type Handlers struct {
	store storage.Store
}

// NewHandlers creates new API handlers.
func NewHandlers(store storage.Store) *Handlers {
	return &Handlers{store: store}
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func getLimit(r *http.Request, defaultLimit int) int {
	limit := defaultLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	return limit
}

// HealthCheck reports service liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetPosts returns the persisted posts, newest-first.
func (h *Handlers) GetPosts(w http.ResponseWriter, r *http.Request) {
	limit := getLimit(r, 20)

	posts, err := h.store.LoadPosts(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch posts")
		return
	}
	if len(posts) > limit {
		posts = posts[:limit]
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"posts": posts,
		"count": len(posts),
	})
}

// GetPostByID returns a single post with its derived content blocks.
func (h *Handlers) GetPostByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "Post id is required")
		return
	}

	posts, err := h.store.LoadPosts(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch posts")
		return
	}

	for _, p := range posts {
		if p.ID == id {
			respondJSON(w, http.StatusOK, map[string]interface{}{
				"post":   p,
				"blocks": render.Blocks(p.Content),
			})
			return
		}
	}

	respondError(w, http.StatusNotFound, "Post not found")
}
