// Package pipeline runs the daily post generation sequence: wake the
// backend, aggregate the day's data, generate the post, persist it.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/futstats/dailypost/internal/aggregate"
	"github.com/futstats/dailypost/internal/config"
	"github.com/futstats/dailypost/internal/content"
	"github.com/futstats/dailypost/internal/futstats"
	"github.com/futstats/dailypost/internal/models"
	"github.com/futstats/dailypost/internal/storage"
)

// Pipeline wires the run stages together. All state flows forward through
// explicit return values; stages never mutate each other's inputs.
type Pipeline struct {
	cfg        *config.Config
	backend    *futstats.Client
	aggregator *aggregate.Aggregator
	generator  *content.Generator
	writer     *storage.Writer

	// Wake holds the wake-up budgets; replaceable in tests.
	Wake futstats.WakeConfig
}

// New creates a pipeline from its already-constructed stages.
func New(cfg *config.Config, backend *futstats.Client, agg *aggregate.Aggregator, gen *content.Generator, writer *storage.Writer) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		backend:    backend,
		aggregator: agg,
		generator:  gen,
		writer:     writer,
		Wake:       futstats.DefaultWakeConfig(),
	}
}

// TodayISO returns the current calendar date (YYYY-MM-DD) in loc.
func TodayISO(loc *time.Location) string {
	return time.Now().In(loc).Format("2006-01-02")
}

// Run executes one full pipeline pass. Any error is fatal for the run and
// leaves the store untouched; a post that already exists for today is a
// successful no-op.
func (p *Pipeline) Run(ctx context.Context) (storage.Result, error) {
	date := TodayISO(p.cfg.Location())
	postID := models.DailyPostID(date)

	log.Info().
		Str("post_id", postID).
		Str("date", date).
		Str("timezone", p.cfg.Timezone).
		Int("max_posts", p.cfg.MaxPosts).
		Msg("Starting daily post run")

	if err := p.backend.WakeUp(ctx, p.Wake); err != nil {
		return storage.Result{}, err
	}

	payload, err := p.aggregator.Build(ctx, date)
	if err != nil {
		return storage.Result{}, err
	}

	post, err := p.generator.Generate(ctx, payload)
	if err != nil {
		return storage.Result{}, err
	}

	res, err := p.writer.Publish(ctx, post)
	if err != nil {
		return storage.Result{}, err
	}

	if res.Written {
		log.Info().Str("post_id", post.ID).Int("total_posts", res.Total).Msg("Daily post run finished")
	}
	return res, nil
}
