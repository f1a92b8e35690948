// Package fetch provides the resilient HTTP layer used by the daily pipeline.
// Every outbound call is bounded by an explicit timeout, and all retry/backoff
// policy lives here so that no caller reimplements it.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultTimeout bounds a single request when the caller does not set one.
	DefaultTimeout = 15 * time.Second

	// MaxBackoff caps the wait between retry attempts.
	MaxBackoff = 30 * time.Second

	// maxBodyDiagnostic limits how much of an error response body is kept.
	maxBodyDiagnostic = 200
)

// Options controls a single logical fetch.
type Options struct {
	// Tries is the maximum attempt count. Zero means one attempt.
	Tries int

	// Timeout bounds each individual attempt. Zero means DefaultTimeout.
	Timeout time.Duration

	// Method defaults to GET.
	Method string

	// Body, when non-nil, is serialized as the request body.
	Body any

	// Headers are added to every attempt.
	Headers map[string]string
}

// Client issues bounded, retryable HTTP requests.
type Client struct {
	http *resty.Client

	// Backoff returns the wait before the given retry (attempt starts at 1).
	// Overridable in tests; defaults to DefaultBackoff.
	Backoff func(attempt int) time.Duration
}

// NewClient creates a new fetch client.
func NewClient() *Client {
	return &Client{
		http:    resty.New(),
		Backoff: DefaultBackoff,
	}
}

// DefaultBackoff is exponential with a 30s ceiling: min(30s, 1s * 2^(attempt-1)).
func DefaultBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Second << uint(attempt-1)
	if d > MaxBackoff || d <= 0 {
		return MaxBackoff
	}
	return d
}

// Do performs exactly one network call bounded by opts.Timeout. A non-2xx
// status is returned as an error carrying a truncated body for diagnostics.
func (c *Client) Do(ctx context.Context, url string, opts Options) ([]byte, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := c.http.R().SetContext(ctx)
	if len(opts.Headers) > 0 {
		req.SetHeaders(opts.Headers)
	}
	if opts.Body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(opts.Body)
	}

	resp, err := req.Execute(method, url)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%s %s timed out after %s: %w", method, url, timeout, err)
		}
		return nil, fmt.Errorf("%s %s failed: %w", method, url, err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return nil, fmt.Errorf("%s %s returned %d: %s", method, url, resp.StatusCode(), truncate(resp.String(), maxBodyDiagnostic))
	}

	return resp.Body(), nil
}

// JSON performs the call with up to opts.Tries attempts, sleeping the backoff
// between failures, and decodes the successful response into out. On
// exhaustion the last failure is returned verbatim.
func (c *Client) JSON(ctx context.Context, url string, opts Options, out any) error {
	tries := opts.Tries
	if tries < 1 {
		tries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= tries; attempt++ {
		log.Debug().
			Str("url", url).
			Int("attempt", attempt).
			Int("tries", tries).
			Msg("Fetching")

		body, err := c.Do(ctx, url, opts)
		if err == nil {
			if out == nil {
				return nil
			}
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("failed to parse response from %s: %w", url, err)
			}
			return nil
		}

		lastErr = err
		log.Warn().
			Str("url", url).
			Int("attempt", attempt).
			Int("tries", tries).
			Err(err).
			Msg("Fetch attempt failed")

		if attempt == tries {
			break
		}
		if err := sleep(ctx, c.backoff(attempt)); err != nil {
			return err
		}
	}

	return lastErr
}

func (c *Client) backoff(attempt int) time.Duration {
	if c.Backoff != nil {
		return c.Backoff(attempt)
	}
	return DefaultBackoff(attempt)
}

// sleep waits for d or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
