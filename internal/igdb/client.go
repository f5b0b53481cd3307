package igdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/igdb-proxy/internal/domain"
	"github.com/igdb-proxy/internal/twitch"
)

// DefaultBaseURL is the IGDB v4 API root
const DefaultBaseURL = "https://api.igdb.com/v4"

// invalidator is implemented by token sources that can drop a rejected token
type invalidator interface {
	Invalidate()
}

// Client queries IGDB on behalf of the proxy
type Client struct {
	clientID   string
	baseURL    string
	tokens     twitch.TokenSource
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the API root
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// New creates an IGDB client
func New(clientID string, tokens twitch.TokenSource, opts ...Option) (*Client, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, errors.New("igdb client id required")
	}
	if tokens == nil {
		return nil, errors.New("igdb token source required")
	}
	c := &Client{
		clientID:   clientID,
		baseURL:    DefaultBaseURL,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Games runs a query against the games endpoint
func (c *Client) Games(ctx context.Context, query Query) ([]domain.GameRecord, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire access token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/games", strings.NewReader(string(query)))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Client-ID", c.clientID)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		if inv, ok := c.tokens.(invalidator); ok {
			inv.Invalidate()
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("igdb games returned %d (latency=%v)", resp.StatusCode, latency)
	}

	var records []domain.GameRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode igdb response: %w", err)
	}
	return records, nil
}
