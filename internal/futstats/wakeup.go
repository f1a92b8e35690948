package futstats

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/futstats/dailypost/internal/fetch"
)

// WakeConfig controls the two-phase backend wake-up.
//
// The ping phase distinguishes "service process not yet started" from
// "service started but first request is slow", which the warm-up phase
// then absorbs with progressively longer timeouts. One long timeout would
// either abort too early or wait forever on a dead service.
type WakeConfig struct {
	// Ping phase: single-attempt probes against lightweight endpoints
	// until the budget is spent.
	PingBudget  time.Duration
	PingTimeout time.Duration

	// Waits between full ping cycles: the first applies while elapsed
	// time is under a quarter of the budget, the second under half,
	// the third after that.
	PingWaits [3]time.Duration

	// Warm-up phase: staged single-attempt timeouts against the primary
	// data endpoint.
	WarmTimeouts []time.Duration
}

// DefaultWakeConfig returns the production wake-up settings.
func DefaultWakeConfig() WakeConfig {
	return WakeConfig{
		PingBudget:   2 * time.Minute,
		PingTimeout:  8 * time.Second,
		PingWaits:    [3]time.Duration{2 * time.Second, 4 * time.Second, 6 * time.Second},
		WarmTimeouts: []time.Duration{10 * time.Second, 20 * time.Second, 30 * time.Second},
	}
}

// WakeUp runs the ping phase followed by the warm-up phase. A failure in
// either phase is fatal for the run.
func (c *Client) WakeUp(ctx context.Context, cfg WakeConfig) error {
	if err := c.ping(ctx, cfg); err != nil {
		return err
	}
	return c.warmUp(ctx, cfg)
}

// pingEndpoints are lightweight routes cycled during the ping phase.
func (c *Client) pingEndpoints() []string {
	return []string{
		c.base + "estatisticas/",
		c.base + "matches/today/",
	}
}

// ping cycles through the lightweight endpoints until one responds or the
// total budget is exhausted.
func (c *Client) ping(ctx context.Context, cfg WakeConfig) error {
	endpoints := c.pingEndpoints()
	start := time.Now()
	var lastErr error

	log.Info().
		Str("base_url", c.base).
		Dur("budget", cfg.PingBudget).
		Msg("Pinging backend")

	for time.Since(start) < cfg.PingBudget {
		for _, url := range endpoints {
			err := c.http.JSON(ctx, url, fetch.Options{Tries: 1, Timeout: cfg.PingTimeout}, nil)
			if err == nil {
				log.Info().Str("url", url).Msg("Ping OK")
				return nil
			}
			lastErr = err
			log.Debug().Str("url", url).Err(err).Msg("Ping failed")
		}

		elapsed := time.Since(start)
		wait := cfg.PingWaits[2]
		switch {
		case elapsed < cfg.PingBudget/4:
			wait = cfg.PingWaits[0]
		case elapsed < cfg.PingBudget/2:
			wait = cfg.PingWaits[1]
		}

		log.Debug().
			Dur("elapsed", elapsed).
			Dur("wait", wait).
			Msg("Backend still unavailable")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("ping exhausted, backend still sleeping: %w", lastErr)
}

// warmUp issues single-attempt calls to the primary data endpoint with
// progressively longer timeouts. First success ends the phase.
func (c *Client) warmUp(ctx context.Context, cfg WakeConfig) error {
	warmURL := c.base + "matches/today/"
	var lastErr error

	log.Info().Str("url", warmURL).Msg("Warming up backend")

	for _, timeout := range cfg.WarmTimeouts {
		err := c.http.JSON(ctx, warmURL, fetch.Options{Tries: 1, Timeout: timeout}, nil)
		if err == nil {
			log.Info().Msg("Warm-up OK")
			return nil
		}
		lastErr = err
		log.Warn().Dur("timeout", timeout).Err(err).Msg("Warm-up step failed")
	}

	return fmt.Errorf("backend did not wake up in time: %w", lastErr)
}
