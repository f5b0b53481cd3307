package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/igdb-proxy/internal/domain"
	"github.com/redis/go-redis/v9"
)

// tokenKey holds the shared access token hash
const tokenKey = keyPrefix + "token"

// TokenStore shares the Twitch access token between proxy replicas
type TokenStore struct {
	*Client
	now func() time.Time
}

// NewTokenStore creates a token store on top of the client
func NewTokenStore(client *Client) *TokenStore {
	return &TokenStore{Client: client, now: time.Now}
}

// LoadToken returns the shared token, or nil when none is stored
func (s *TokenStore) LoadToken(ctx context.Context) (*domain.AccessToken, error) {
	fields, err := s.client.HGetAll(ctx, tokenKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting shared token: %w", err)
	}
	return decodeToken(fields)
}

// SaveToken stores the token until it expires
func (s *TokenStore) SaveToken(ctx context.Context, token domain.AccessToken) error {
	ttl := tokenTTL(token, s.now())
	if ttl <= 0 {
		return nil
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, tokenKey, encodeToken(token))
	pipe.Expire(ctx, tokenKey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving shared token: %w", err)
	}
	return nil
}

func tokenTTL(token domain.AccessToken, now time.Time) time.Duration {
	if token.Value == "" {
		return 0
	}
	return token.ExpiresAt.Sub(now)
}

func encodeToken(token domain.AccessToken) map[string]interface{} {
	return map[string]interface{}{
		"value":      token.Value,
		"expires_at": token.ExpiresAt.UnixMilli(),
	}
}

func decodeToken(fields map[string]string) (*domain.AccessToken, error) {
	value := fields["value"]
	if value == "" {
		return nil, nil
	}
	expiresAt, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing shared token expiry: %w", err)
	}
	return &domain.AccessToken{
		Value:     value,
		ExpiresAt: time.UnixMilli(expiresAt),
	}, nil
}
