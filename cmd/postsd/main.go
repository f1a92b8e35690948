// postsd serves the persisted daily posts over a read-only HTTP API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/futstats/dailypost/internal/api"
	"github.com/futstats/dailypost/internal/config"
	"github.com/futstats/dailypost/internal/storage"
)

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx := context.Background()

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
	defer store.Close(ctx)

	server := api.NewServer(store, cfg.HTTPAddr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("API server error")
		}
	}()

	<-sigChan
	log.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)

	log.Info().Msg("Posts server stopped")
}
