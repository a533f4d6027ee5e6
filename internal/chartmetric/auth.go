package chartmetric

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/vietddude/fanstats/internal/infra/api"
)

// ErrNoToken is returned when the token endpoint answered without a token.
var ErrNoToken = errors.New("token endpoint returned no token")

// TokenCache shares access tokens between processes using the same refresh token.
type TokenCache interface {
	// Load returns the cached token, or an empty token when none is stored.
	Load(ctx context.Context) (token string, expiresAt time.Time, err error)
	Store(ctx context.Context, token string, expiresAt time.Time) error
}

// TokenSource exchanges a refresh token for short-lived access tokens and
// supplies them as bearer headers.
type TokenSource struct {
	client       *api.Client
	refreshToken string
	clock        func() time.Time
	cache        TokenCache

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewTokenSource creates a token source that refreshes through client.
func NewTokenSource(client *api.Client, refreshToken string, clock func() time.Time) *TokenSource {
	if clock == nil {
		clock = time.Now
	}
	return &TokenSource{
		client:       client,
		refreshToken: refreshToken,
		clock:        clock,
	}
}

// SetCache makes the source consult cache before refreshing.
func (s *TokenSource) SetCache(cache TokenCache) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = cache
}

// Headers returns the Authorization header, refreshing the token when expired.
func (s *TokenSource) Headers(ctx context.Context) (http.Header, error) {
	token, err := s.Token(ctx)
	if err != nil {
		return nil, err
	}
	return http.Header{"Authorization": []string{"Bearer " + token}}, nil
}

// Token returns a valid access token.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.clock().Before(s.expiresAt) {
		return s.token, nil
	}
	if s.loadCached(ctx) {
		return s.token, nil
	}
	if err := s.refresh(ctx); err != nil {
		return "", err
	}
	return s.token, nil
}

func (s *TokenSource) refresh(ctx context.Context) error {
	call := api.Post("token", "token", map[string]string{"refreshtoken": s.refreshToken}).WithoutAuth()

	var resp tokenResponse
	found, err := s.client.DoJSON(ctx, call, &resp)
	if err != nil {
		return fmt.Errorf("refresh token: %w", err)
	}
	if !found || resp.Token == "" {
		return ErrNoToken
	}

	s.token = resp.Token
	s.expiresAt = s.clock().Add(time.Duration(resp.ExpiresIn) * time.Second)
	slog.Debug("Refreshed access token", "expires_at", s.expiresAt.Format(time.RFC3339))

	if s.cache != nil {
		if err := s.cache.Store(ctx, s.token, s.expiresAt); err != nil {
			slog.Warn("Failed to cache access token", "error", err)
		}
	}
	return nil
}

func (s *TokenSource) loadCached(ctx context.Context) bool {
	if s.cache == nil {
		return false
	}
	token, expiresAt, err := s.cache.Load(ctx)
	if err != nil {
		slog.Warn("Failed to load cached access token", "error", err)
		return false
	}
	if token == "" || !s.clock().Before(expiresAt) {
		return false
	}
	s.token, s.expiresAt = token, expiresAt
	return true
}
