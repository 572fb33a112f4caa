// Package auth holds catalog credentials exchanged for bearer tokens.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	tterrors "github.com/lepinkainen/tunetrackr/internal/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// SpotifyTokenURL is the client-credentials endpoint for the Spotify Web API.
const SpotifyTokenURL = "https://accounts.spotify.com/api/token"

// TokenSource hands out bearer tokens and can be told to re-acquire one
// after the catalog reports the current token as unauthorized.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Renew(ctx context.Context) (string, error)
}

// Session is a client-credentials token with an explicit expiry. It is obtained
// once per run and renewed when it expires or when Renew is called.
type Session struct {
	provider   string
	cfg        *clientcredentials.Config
	httpClient *http.Client
	logger     *slog.Logger

	mu    sync.Mutex
	token *oauth2.Token
}

// Option configures a Session.
type Option func(*Session)

// WithHTTPClient sets the client used for the token exchange.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Session) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSession creates a client-credentials session for provider against tokenURL.
func NewSession(provider, clientID, clientSecret, tokenURL string, opts ...Option) *Session {
	s := &Session{
		provider: provider,
		cfg: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Token returns the current access token, exchanging credentials first if there
// is none yet or the current one has expired.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token.Valid() {
		return s.token.AccessToken, nil
	}
	return s.exchange(ctx)
}

// Renew discards the current token and exchanges credentials again.
func (s *Session) Renew(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("Renewing access token", "provider", s.provider)
	s.token = nil
	return s.exchange(ctx)
}

func (s *Session) exchange(ctx context.Context) (string, error) {
	if s.cfg.ClientID == "" || s.cfg.ClientSecret == "" {
		return "", tterrors.NewAuthError(s.provider, errors.New("client id and secret are required"))
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	tok, err := s.cfg.Token(ctx)
	if err != nil {
		return "", tterrors.NewAuthError(s.provider, err)
	}

	s.token = tok
	s.logger.Info("Authentication successful", "provider", s.provider, "expires", tok.Expiry)
	return tok.AccessToken, nil
}
