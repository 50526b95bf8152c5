package httputil

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryConfig controls the retry behavior.
type RetryConfig struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	JitterFactor float64 // fraction of delay to randomize (0..1)
}

// DefaultRetryConfig returns sensible defaults for API calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  4,
		BaseDelay:    1 * time.Second,
		MaxDelay:     30 * time.Second,
		JitterFactor: 0.25,
	}
}

// Retryable reports whether an HTTP status is a transient failure worth
// retrying. It is the single place retry policy lives; callers never branch
// on error strings.
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// Do executes an HTTP request against client with retry/backoff. buildReq is
// called per attempt because request bodies are consumed on read and must be
// recreated.
//
// Retries on network errors and any status Retryable reports true for.
// Other statuses return immediately with the body intact; classifying them
// is the caller's job.
func Do(ctx context.Context, client *http.Client, buildReq func() (*http.Request, error), cfg RetryConfig) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		req, err := buildReq()
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			if attempt < cfg.MaxAttempts-1 {
				slog.Warn("httputil: retrying after network error",
					"attempt", attempt+1,
					"max", cfg.MaxAttempts,
					"err", err,
				)
				if sleepErr := SleepWithContext(ctx, backoff(cfg, attempt, nil)); sleepErr != nil {
					return nil, sleepErr
				}
			}
			continue
		}

		if !Retryable(resp.StatusCode) {
			return resp, nil
		}

		lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
		// Must drain body before retrying.
		resp.Body.Close()
		if attempt < cfg.MaxAttempts-1 {
			delay := backoff(cfg, attempt, resp)
			slog.Warn("httputil: retrying after transient status",
				"attempt", attempt+1,
				"max", cfg.MaxAttempts,
				"status", resp.StatusCode,
				"delay", delay,
			)
			if sleepErr := SleepWithContext(ctx, delay); sleepErr != nil {
				return nil, sleepErr
			}
		}
	}

	return nil, fmt.Errorf("all %d attempts exhausted: %w", cfg.MaxAttempts, lastErr)
}

// backoff computes the sleep duration for the given attempt. If the response
// contains a Retry-After header, that value takes precedence.
func backoff(cfg RetryConfig, attempt int, resp *http.Response) time.Duration {
	if resp != nil {
		if ra := parseRetryAfter(resp.Header.Get("Retry-After")); ra > 0 {
			return ra
		}
	}

	delay := float64(cfg.BaseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}

	jitter := delay * cfg.JitterFactor * (rand.Float64()*2 - 1) // ±jitter
	delay += jitter
	if delay < 0 {
		delay = float64(cfg.BaseDelay)
	}

	return time.Duration(delay)
}

// parseRetryAfter parses the Retry-After header value. It supports:
//   - seconds (e.g. "120")
//   - HTTP-date (e.g. "Thu, 01 Dec 2024 16:00:00 GMT")
//
// Returns 0 if the header is empty or unparseable.
func parseRetryAfter(val string) time.Duration {
	val = strings.TrimSpace(val)
	if val == "" {
		return 0
	}

	if secs, err := strconv.Atoi(val); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}

	if t, err := time.Parse(time.RFC1123, val); err == nil {
		d := time.Until(t)
		if d > 0 {
			return d
		}
	}

	return 0
}

// SleepWithContext sleeps for d but returns immediately if ctx is cancelled.
// Also used by the query poll loop, which has its own attempt ceiling.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
