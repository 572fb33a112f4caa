// Package fetcher performs single catalog API calls with retry on rate limiting
// and transient network failures.
package fetcher

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
	defaultMaxDelay    = 10 * time.Second
	defaultTimeout     = 10 * time.Second

	// defaultRetryAfter applies when a 429 response carries no usable Retry-After header.
	defaultRetryAfter = time.Second
)

// HTTPDoer is an interface for making HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Sleeper suspends the calling flow for d, returning early with an error if ctx ends.
type Sleeper func(ctx context.Context, d time.Duration) error

// Fetcher wraps one HTTP call with the retry policy shared by all catalog adapters.
type Fetcher struct {
	httpClient  HTTPDoer
	sleep       Sleeper
	logger      *slog.Logger
	userAgent   string
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// New creates a Fetcher with the baseline policy: 3 attempts, 1s base backoff.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		httpClient:  &http.Client{Timeout: defaultTimeout},
		sleep:       sleepContext,
		logger:      slog.Default(),
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		maxDelay:    defaultMaxDelay,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Option is a functional option for configuring the Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c HTTPDoer) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.httpClient = c
		}
	}
}

// WithMaxAttempts bounds the number of calls made for one request.
func WithMaxAttempts(attempts int) Option {
	return func(f *Fetcher) {
		if attempts > 0 {
			f.maxAttempts = attempts
		}
	}
}

// WithBaseDelay sets the first transient-error backoff; it doubles per retry.
func WithBaseDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.baseDelay = d
		}
	}
}

// WithSleeper replaces the function used to wait between attempts.
func WithSleeper(s Sleeper) Option {
	return func(f *Fetcher) {
		if s != nil {
			f.sleep = s
		}
	}
}

// WithLogger sets the logger used for retry decisions.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithUserAgent sets the User-Agent header sent when a request does not set one.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = strings.TrimSpace(ua)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
