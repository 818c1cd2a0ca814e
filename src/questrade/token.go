package questrade

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/patrickmn/go-cache"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/logger"
)

// Credentials is one resolved access credential for a person.
type Credentials struct {
	AccessToken string
	APIServer   string
	ExpiresAt   time.Time
}

// TokenProvider resolves and refreshes access credentials per person.
type TokenProvider interface {
	Credentials(ctx context.Context, person string) (Credentials, error)
	Refresh(ctx context.Context, person string) error
}

// RefreshTokenStore persists the rotated per-person refresh tokens. The login
// server invalidates the old refresh token on every exchange, so losing the
// rotated one means re-enrolling the person by hand.
type RefreshTokenStore interface {
	RefreshToken(person string) (string, error)
	SaveRefreshToken(person, token string) error
}

type tokenProvider struct {
	loginURL string
	http     *resty.Client
	store    RefreshTokenStore
	creds    *cache.Cache
	mu       sync.Mutex // serializes exchanges so concurrent callers cannot burn the same refresh token twice
}

// NewTokenProvider creates a provider that exchanges refresh tokens against
// the brokerage login server and caches access tokens until shortly before
// expiry.
func NewTokenProvider(loginURL string, store RefreshTokenStore) TokenProvider {
	return &tokenProvider{
		loginURL: strings.TrimSuffix(loginURL, "/"),
		http:     resty.New().SetTimeout(15 * time.Second),
		store:    store,
		creds:    cache.New(cache.NoExpiration, 10*time.Minute),
	}
}

func (p *tokenProvider) Credentials(ctx context.Context, person string) (Credentials, error) {
	if v, ok := p.creds.Get(person); ok {
		c := v.(Credentials)
		if time.Now().Before(c.ExpiresAt) {
			return c, nil
		}
	}
	return p.exchange(ctx, person)
}

func (p *tokenProvider) Refresh(ctx context.Context, person string) error {
	p.creds.Delete(person)
	_, err := p.exchange(ctx, person)
	return err
}

func (p *tokenProvider) exchange(ctx context.Context, person string) (Credentials, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Another caller may have finished an exchange while we waited on the lock.
	if v, ok := p.creds.Get(person); ok {
		c := v.(Credentials)
		if time.Now().Before(c.ExpiresAt) {
			return c, nil
		}
	}

	refreshToken, err := p.store.RefreshToken(person)
	if err != nil {
		return Credentials{}, fmt.Errorf("no refresh token for person %q: %w", person, err)
	}

	var tok tokenResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"grant_type":    "refresh_token",
			"refresh_token": refreshToken,
		}).
		SetResult(&tok).
		Post(p.loginURL + "/oauth2/token")
	if err != nil {
		return Credentials{}, fmt.Errorf("token exchange for %q: %w", person, err)
	}
	if resp.IsError() {
		return Credentials{}, fmt.Errorf("token exchange for %q returned status %d", person, resp.StatusCode())
	}
	if tok.AccessToken == "" || tok.APIServer == "" {
		return Credentials{}, fmt.Errorf("token exchange for %q returned incomplete credentials", person)
	}

	// Persist the rotated refresh token before anything else can fail.
	if tok.RefreshToken != "" {
		if err := p.store.SaveRefreshToken(person, tok.RefreshToken); err != nil {
			return Credentials{}, fmt.Errorf("persisting rotated refresh token for %q: %w", person, err)
		}
	}

	// Expire the cached access token a minute early to avoid racing the server.
	ttl := time.Duration(tok.ExpiresIn)*time.Second - time.Minute
	if ttl < time.Minute {
		ttl = time.Minute
	}
	creds := Credentials{
		AccessToken: tok.AccessToken,
		APIServer:   strings.TrimSuffix(tok.APIServer, "/"),
		ExpiresAt:   time.Now().Add(ttl),
	}
	p.creds.Set(person, creds, ttl)

	logger.L.Info("Access credential refreshed", "person", person, "apiServer", creds.APIServer, "expiresIn", tok.ExpiresIn)
	return creds, nil
}
