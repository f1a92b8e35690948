// Package config provides configuration management for the FutStats daily post engine.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Default limits for the daily pipeline.
const (
	DefaultMaxPosts     = 60
	MinRetainedPosts    = 10
	DefaultTopMatches   = 6
	DefaultValueBets    = 8
	DefaultSampleLimit  = 5
	DefaultGroqModel    = "llama-3.1-8b-instant"
	DefaultGroqEndpoint = "https://api.groq.com/openai/v1"
	DefaultTimezone     = "America/Sao_Paulo"
	DefaultPostsFile    = "data/posts.json"
)

// Config holds all application configuration. It is built once at process
// start and passed through the pipeline; no component reads the environment
// after Load returns.
type Config struct {
	// FutStats backend API
	BackendBaseURL string

	// Groq settings
	GroqAPIKey   string
	GroqEndpoint string
	GroqModel    string

	// Post store settings
	PostsFile string
	MongoURI  string
	MongoDB   string
	MaxPosts  int

	// Pipeline settings
	Timezone    string
	TopMatches  int
	ValueBets   int
	SampleLimit int

	// Server settings (postsd)
	HTTPAddr string
	Debug    bool
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Try to load .env file
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	cfg := &Config{
		BackendBaseURL: getEnv("BACKEND_API_URL", ""),

		GroqAPIKey:   getEnv("GROQ_API_KEY", ""),
		GroqEndpoint: getEnv("GROQ_ENDPOINT", DefaultGroqEndpoint),
		GroqModel:    getEnv("GROQ_MODEL", DefaultGroqModel),

		PostsFile: getEnv("POSTS_FILE", DefaultPostsFile),
		MongoURI:  getEnv("MONGO_URI", ""),
		MongoDB:   getEnv("MONGO_DB", "futstats"),
		MaxPosts:  getEnvInt("BLOG_MAX_POSTS", DefaultMaxPosts),

		Timezone:    getEnv("POSTS_TIMEZONE", DefaultTimezone),
		TopMatches:  getEnvInt("TOP_MATCHES", DefaultTopMatches),
		ValueBets:   getEnvInt("VALUE_BETS_LIMIT", DefaultValueBets),
		SampleLimit: getEnvInt("SAMPLE_LIMIT", DefaultSampleLimit),

		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		Debug:    getEnvBool("DEBUG", false),
	}

	// The base URL is always used with a trailing slash
	if cfg.BackendBaseURL != "" {
		cfg.BackendBaseURL = strings.TrimRight(cfg.BackendBaseURL, "/") + "/"
	}

	// Retention never drops below the floor, whatever the env says
	if cfg.MaxPosts < MinRetainedPosts {
		cfg.MaxPosts = MinRetainedPosts
	}

	return cfg, nil
}

// Validate checks if required configuration is present.
func (c *Config) Validate() error {
	if c.BackendBaseURL == "" {
		return fmt.Errorf("BACKEND_API_URL is required")
	}
	if c.GroqAPIKey == "" {
		return fmt.Errorf("GROQ_API_KEY is required")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid POSTS_TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the configured IANA timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
