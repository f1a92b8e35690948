// dailypost generates and persists one football statistics blog post per
// day from FutStats API data. It is a one-shot binary meant to run from a
// scheduler: exit 0 on success or no-op, exit 1 on any fatal error.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/futstats/dailypost/internal/aggregate"
	"github.com/futstats/dailypost/internal/config"
	"github.com/futstats/dailypost/internal/content"
	"github.com/futstats/dailypost/internal/fetch"
	"github.com/futstats/dailypost/internal/futstats"
	"github.com/futstats/dailypost/internal/groq"
	"github.com/futstats/dailypost/internal/pipeline"
	"github.com/futstats/dailypost/internal/storage"
)

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize storage
	var store storage.Store
	if cfg.MongoURI != "" {
		mongoStore, err := storage.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		store = mongoStore
		log.Info().Str("db", cfg.MongoDB).Msg("MongoDB store initialized")
	} else {
		store = storage.NewFileStore(cfg.PostsFile)
		log.Info().Str("path", cfg.PostsFile).Msg("File store initialized")
	}
	defer store.Close(context.Background())

	// Initialize FutStats backend client
	backend := futstats.NewClient(cfg.BackendBaseURL, fetch.NewClient())

	// Initialize Groq LLM client
	llm := groq.NewClient(groq.Config{
		APIKey:   cfg.GroqAPIKey,
		Endpoint: cfg.GroqEndpoint,
		Model:    cfg.GroqModel,
	})
	log.Info().Str("model", cfg.GroqModel).Msg("Groq client initialized")

	// Initialize pipeline stages
	aggregator := aggregate.New(backend, aggregate.Config{
		TopMatches:  cfg.TopMatches,
		ValueBets:   cfg.ValueBets,
		SampleLimit: cfg.SampleLimit,
		APIBase:     cfg.BackendBaseURL,
		Timezone:    cfg.Timezone,
	})
	generator := content.NewGenerator(llm)
	writer := storage.NewWriter(store, cfg.MaxPosts)

	p := pipeline.New(cfg, backend, aggregator, generator, writer)

	if _, err := p.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Daily post run failed")
		store.Close(context.Background())
		os.Exit(1)
	}
}
