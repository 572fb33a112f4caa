// Package spotify adapts the Spotify Web API search endpoints into song records.
package spotify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/lepinkainen/tunetrackr/internal/auth"
	"github.com/lepinkainen/tunetrackr/internal/cache"
	tterrors "github.com/lepinkainen/tunetrackr/internal/errors"
	"github.com/lepinkainen/tunetrackr/internal/fetcher"
	"github.com/lepinkainen/tunetrackr/internal/model"
	"github.com/lepinkainen/tunetrackr/internal/ratelimit"
)

const (
	defaultAPIURL = "https://api.spotify.com/v1"
	pageSize      = 50
	pagePause     = 200 * time.Millisecond
)

// Client is the Spotify catalog adapter. It needs an authenticated session.
type Client struct {
	apiURL  string
	fetcher *fetcher.Fetcher
	tokens  auth.TokenSource
	genres  *cache.Memo[string]
	albums  *cache.Memo[model.TrackCount]
	pacer   *ratelimit.Limiter
	logger  *slog.Logger
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithAPIURL sets a custom base URL for the Web API.
func WithAPIURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.apiURL = strings.TrimSuffix(base, "/")
		}
	}
}

// WithGenreCache shares an artist→genre cache across adapters or windows.
func WithGenreCache(m *cache.Memo[string]) Option {
	return func(c *Client) {
		if m != nil {
			c.genres = m
		}
	}
}

// WithAlbumCache shares an album→track count cache.
func WithAlbumCache(m *cache.Memo[model.TrackCount]) Option {
	return func(c *Client) {
		if m != nil {
			c.albums = m
		}
	}
}

// WithPacer replaces the inter-page limiter. A nil limiter disables pacing.
func WithPacer(l *ratelimit.Limiter) Option {
	return func(c *Client) {
		c.pacer = l
	}
}

// WithLogger sets the adapter logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Spotify adapter using f for every call and tokens for authorization.
func New(f *fetcher.Fetcher, tokens auth.TokenSource, opts ...Option) *Client {
	c := &Client{
		apiURL:  defaultAPIURL,
		fetcher: f,
		tokens:  tokens,
		genres:  cache.New[string]("spotify_artist_genre"),
		albums:  cache.New[model.TrackCount]("spotify_album_tracks"),
		pacer:   ratelimit.Every("spotify", pagePause),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("source", model.SourceSpotify)
	return c
}

// Name returns the source tag.
func (c *Client) Name() model.Source {
	return model.SourceSpotify
}

// get performs req with the session token. An unauthorized response triggers
// one token renewal and one repeat of the call.
func (c *Client) get(ctx context.Context, req fetcher.Request) (*fetcher.Result, error) {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	res, err := c.fetcher.Fetch(ctx, req.WithBearer(tok))
	if err != nil {
		return nil, err
	}

	var rejected *tterrors.RejectedError
	if res.Outcome == fetcher.Rejected && errors.As(res.Err, &rejected) && rejected.Unauthorized() {
		c.logger.Warn("Token rejected, re-authenticating", "url", rejected.URL)
		tok, err = c.tokens.Renew(ctx)
		if err != nil {
			return nil, err
		}
		return c.fetcher.Fetch(ctx, req.WithBearer(tok))
	}

	return res, nil
}
