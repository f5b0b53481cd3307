package twitch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/igdb-proxy/internal/domain"
)

// TokenSource hands out bearer tokens for IGDB requests
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// TokenStore shares a token between proxy instances
type TokenStore interface {
	LoadToken(ctx context.Context) (*domain.AccessToken, error)
	SaveToken(ctx context.Context, token domain.AccessToken) error
}

// TokenCache caches the app access token and refreshes it on demand
type TokenCache struct {
	clientID     string
	clientSecret string
	tokenURL     string
	httpClient   *http.Client
	store        TokenStore
	margin       time.Duration
	now          func() time.Time
	logger       *slog.Logger

	// refresh admits one exchange at a time; mu guards token
	refresh chan struct{}
	mu      sync.Mutex
	token   domain.AccessToken
}

var _ TokenSource = (*TokenCache)(nil)

// Option configures a TokenCache
type Option func(*TokenCache)

// WithHTTPClient overrides the default HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *TokenCache) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTokenURL overrides the identity provider endpoint
func WithTokenURL(tokenURL string) Option {
	return func(c *TokenCache) {
		if tokenURL = strings.TrimSpace(tokenURL); tokenURL != "" {
			c.tokenURL = tokenURL
		}
	}
}

// WithStore shares tokens through the given store
func WithStore(store TokenStore) Option {
	return func(c *TokenCache) {
		c.store = store
	}
}

// WithExpiryMargin treats tokens as expired this long before their expiry
func WithExpiryMargin(margin time.Duration) Option {
	return func(c *TokenCache) {
		if margin > 0 {
			c.margin = margin
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(c *TokenCache) {
		if now != nil {
			c.now = now
		}
	}
}

// DefaultTokenURL is the Twitch OAuth token endpoint
const DefaultTokenURL = "https://id.twitch.tv/oauth2/token"

// NewTokenCache creates a token cache for the given app credentials
func NewTokenCache(clientID, clientSecret string, logger *slog.Logger, opts ...Option) (*TokenCache, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, errors.New("twitch client id required")
	}
	clientSecret = strings.TrimSpace(clientSecret)
	if clientSecret == "" {
		return nil, errors.New("twitch client secret required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &TokenCache{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     DefaultTokenURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		now:          time.Now,
		logger:       logger,
		refresh:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ClientID returns the app client id sent alongside the bearer token
func (c *TokenCache) ClientID() string {
	return c.clientID
}

// AccessToken returns a cached token, exchanging credentials when it expired
func (c *TokenCache) AccessToken(ctx context.Context) (string, error) {
	if value, ok := c.cached(); ok {
		return value, nil
	}

	select {
	case c.refresh <- struct{}{}:
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for token refresh: %w", ctx.Err())
	}
	defer func() { <-c.refresh }()

	// A refresh may have completed while we waited
	if value, ok := c.cached(); ok {
		return value, nil
	}

	if c.store != nil {
		shared, err := c.store.LoadToken(ctx)
		if err != nil {
			c.logger.Warn("failed to load shared token", "error", err)
		} else if shared != nil && c.usable(*shared) {
			c.setToken(*shared)
			return shared.Value, nil
		}
	}

	token, err := c.exchange(ctx)
	if err != nil {
		return "", err
	}
	c.setToken(token)

	if c.store != nil && c.usable(token) {
		if err := c.store.SaveToken(ctx, token); err != nil {
			c.logger.Warn("failed to save shared token", "error", err)
		}
	}
	return token.Value, nil
}

// Invalidate drops the cached token so the next call refreshes it
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.token = domain.AccessToken{}
	c.mu.Unlock()
}

func (c *TokenCache) cached() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.usable(c.token) {
		return c.token.Value, true
	}
	return "", false
}

func (c *TokenCache) setToken(token domain.AccessToken) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *TokenCache) usable(token domain.AccessToken) bool {
	return token.Valid(c.now().Add(c.margin))
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// exchange performs the client-credentials grant
func (c *TokenCache) exchange(ctx context.Context) (domain.AccessToken, error) {
	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.AccessToken{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	issuedAt := c.now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(issuedAt)
	if err != nil {
		return domain.AccessToken{}, fmt.Errorf("execute token request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.AccessToken{}, fmt.Errorf("twitch token endpoint returned %d (latency=%v)", resp.StatusCode, latency)
	}

	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.AccessToken{}, fmt.Errorf("decode token response: %w", err)
	}

	// A response without a token or lifetime is kept already expired, so the
	// next call retries the exchange.
	if payload.AccessToken == "" || payload.ExpiresIn <= 0 {
		c.logger.Warn("token response missing fields",
			"has_token", payload.AccessToken != "",
			"expires_in", payload.ExpiresIn,
		)
		return domain.AccessToken{Value: payload.AccessToken, ExpiresAt: issuedAt}, nil
	}

	c.logger.Debug("refreshed twitch access token", "expires_in", payload.ExpiresIn, "latency", latency)
	return domain.AccessToken{
		Value:     payload.AccessToken,
		ExpiresAt: issuedAt.Add(time.Duration(payload.ExpiresIn) * time.Second),
	}, nil
}
