package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futstats/dailypost/internal/aggregate"
	"github.com/futstats/dailypost/internal/config"
	"github.com/futstats/dailypost/internal/content"
	"github.com/futstats/dailypost/internal/fetch"
	"github.com/futstats/dailypost/internal/futstats"
	"github.com/futstats/dailypost/internal/groq"
	"github.com/futstats/dailypost/internal/render"
	"github.com/futstats/dailypost/internal/storage"
)

// fakeBackend simulates a cold FutStats backend: pings fail for the first
// cycle, then everything responds. Enrichment for match 42 always fails.
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()

	var pings int32
	mux := http.NewServeMux()

	mux.HandleFunc("/estatisticas/", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&pings, 1) <= 2 {
			http.Error(w, "waking", http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/matches/today/", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&pings, 1) <= 2 {
			http.Error(w, "waking", http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[
			{"id": 1, "league": "Serie A", "date": "29/08", "time": "16:00",
			 "homeTeam": {"name": "Gremio"}, "awayTeam": {"name": "Cruzeiro"}},
			{"id": 42, "league": "Serie B", "date": "29/08", "time": "19:00",
			 "homeTeam": {"name": "Avai"}, "awayTeam": {"name": "Goias"}}
		]`))
	})
	mux.HandleFunc("/probabilities/today/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"match_id": 1, "over_25": 40, "btts_yes": 70},
			{"match_id": 42, "over_25": 90, "btts_yes": 10}
		]`))
	})
	mux.HandleFunc("/value-bets/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"match_id": 1, "bet_name": "Over 2.5", "odd": 1.9, "calculated_probability": 61.0}]`))
	})
	mux.HandleFunc("/matches/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/matches/42/" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{
			"id": 1,
			"team_rates": {"home": {"sample_size": 5}, "away": {"sample_size": 5}, "sample_limit": 5, "quality": "ok"}
		}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// fakeModel serves an OpenAI-compatible chat completion with a wrapped
// JSON draft, exercising the brace-slice extraction path.
func fakeModel(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)

		draft := map[string]string{
			"id":       "whatever",
			"title":    "Today's matches in numbers",
			"excerpt":  "Over 2.5 and BTTS highlights",
			"content":  "# Daily picks\n\nGood morning! Here is the data.\n\n- Avai x Goias: Over 2.5 at 90 (small sample, lower confidence)\n- Gremio x Cruzeiro: BTTS at 70\n\nBetting involves risk. Good luck!",
			"date":     "1999-01-01",
			"category": "Daily",
		}
		raw, err := json.Marshal(draft)
		require.NoError(t, err)

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "Sure! " + string(raw) + " done"},
					"finish_reason": "stop"},
			},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestPipeline(t *testing.T, backendURL, modelURL, postsFile string) (*Pipeline, *storage.FileStore) {
	t.Helper()

	cfg := &config.Config{
		BackendBaseURL: backendURL + "/",
		GroqAPIKey:     "test-key",
		GroqEndpoint:   modelURL,
		GroqModel:      "llama-3.1-8b-instant",
		PostsFile:      postsFile,
		MaxPosts:       60,
		Timezone:       "America/Sao_Paulo",
		TopMatches:     6,
		ValueBets:      8,
		SampleLimit:    5,
	}

	httpc := fetch.NewClient()
	httpc.Backoff = func(int) time.Duration { return time.Millisecond }

	backend := futstats.NewClient(cfg.BackendBaseURL, httpc)
	agg := aggregate.New(backend, aggregate.Config{
		TopMatches:  cfg.TopMatches,
		ValueBets:   cfg.ValueBets,
		SampleLimit: cfg.SampleLimit,
		APIBase:     cfg.BackendBaseURL,
		Timezone:    cfg.Timezone,
	})
	gen := content.NewGenerator(groq.NewClient(groq.Config{
		APIKey:   cfg.GroqAPIKey,
		Endpoint: cfg.GroqEndpoint,
		Model:    cfg.GroqModel,
	}))
	store := storage.NewFileStore(cfg.PostsFile)
	writer := storage.NewWriter(store, cfg.MaxPosts)

	p := New(cfg, backend, agg, gen, writer)
	p.Wake = futstats.WakeConfig{
		PingBudget:   500 * time.Millisecond,
		PingTimeout:  100 * time.Millisecond,
		PingWaits:    [3]time.Duration{5 * time.Millisecond, 10 * time.Millisecond, 15 * time.Millisecond},
		WarmTimeouts: []time.Duration{100 * time.Millisecond, 200 * time.Millisecond},
	}
	return p, store
}

func TestRunEndToEnd(t *testing.T) {
	backend := fakeBackend(t)
	model := fakeModel(t)
	postsFile := filepath.Join(t.TempDir(), "posts.json")

	p, store := newTestPipeline(t, backend.URL, model.URL, postsFile)
	ctx := context.Background()

	res, err := p.Run(ctx)
	require.NoError(t, err)
	assert.True(t, res.Written)
	assert.Equal(t, 1, res.Total)

	posts, err := store.LoadPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)

	today := TodayISO(p.cfg.Location())
	assert.Equal(t, "daily-"+today, posts[0].ID)
	assert.Equal(t, today, posts[0].Date)
	assert.Equal(t, "Today's matches in numbers", posts[0].Title)

	// The stored body renders to at least one paragraph block
	blocks := render.Blocks(posts[0].Content)
	var paragraphs int
	for _, b := range blocks {
		if b.Type == render.BlockParagraph {
			paragraphs++
		}
	}
	assert.Greater(t, paragraphs, 0)
}

func TestRunSecondRunSameDayIsNoop(t *testing.T) {
	backend := fakeBackend(t)
	model := fakeModel(t)
	postsFile := filepath.Join(t.TempDir(), "posts.json")

	p, store := newTestPipeline(t, backend.URL, model.URL, postsFile)
	ctx := context.Background()

	res, err := p.Run(ctx)
	require.NoError(t, err)
	require.True(t, res.Written)

	before, err := store.LoadPosts(ctx)
	require.NoError(t, err)

	// Same day again: successful no-op, store unchanged
	res, err = p.Run(ctx)
	require.NoError(t, err)
	assert.False(t, res.Written)

	after, err := store.LoadPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRunWakeupExhaustionLeavesStoreUntouched(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "dead", http.StatusBadGateway)
	}))
	defer dead.Close()
	model := fakeModel(t)
	postsFile := filepath.Join(t.TempDir(), "posts.json")

	p, store := newTestPipeline(t, dead.URL, model.URL, postsFile)
	_, err := p.Run(context.Background())
	require.Error(t, err)

	posts, err := store.LoadPosts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestTodayISOUsesLocation(t *testing.T) {
	utc := TodayISO(time.UTC)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, utc)

	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	sp := TodayISO(loc)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, sp)

	// The two dates differ by at most one calendar day
	tu, _ := time.Parse("2006-01-02", utc)
	ts, _ := time.Parse("2006-01-02", sp)
	diff := tu.Sub(ts)
	if diff < 0 {
		diff = -diff
	}
	assert.LessOrEqual(t, diff, 24*time.Hour)
}
