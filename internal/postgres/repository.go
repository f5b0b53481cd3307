package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/igdb-proxy/internal/config"
	"github.com/igdb-proxy/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL-based lookup history
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// Ping checks the connection pool
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	for _, migration := range migrations {
		if _, err := r.pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS lookups (
		id UUID PRIMARY KEY,
		endpoint VARCHAR(16) NOT NULL,
		param VARCHAR(255) NOT NULL DEFAULT '',
		status VARCHAR(16) NOT NULL,
		cached BOOLEAN NOT NULL DEFAULT FALSE,
		duration_ms BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_lookups_created ON lookups(created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_lookups_game ON lookups(endpoint, status, param)`,
}

const insertLookup = `
	INSERT INTO lookups (id, endpoint, param, status, cached, duration_ms, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO NOTHING
`

func lookupArgs(event domain.LookupEvent) []any {
	return []any{
		event.ID,
		string(event.Endpoint),
		event.Param,
		string(event.Status),
		event.Cached,
		event.DurationMS,
		event.Timestamp,
	}
}

// RecordLookup stores a single lookup event
func (r *Repository) RecordLookup(ctx context.Context, event domain.LookupEvent) error {
	if _, err := r.pool.Exec(ctx, insertLookup, lookupArgs(event)...); err != nil {
		return fmt.Errorf("recording lookup: %w", err)
	}
	return nil
}

// RecentLookups returns the latest lookups, newest first
func (r *Repository) RecentLookups(ctx context.Context, limit int) ([]domain.LookupEvent, error) {
	query := `
		SELECT id, endpoint, param, status, cached, duration_ms, created_at
		FROM lookups
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent lookups: %w", err)
	}
	defer rows.Close()

	events := make([]domain.LookupEvent, 0, limit)
	for rows.Next() {
		var event domain.LookupEvent
		var endpoint, status string
		err := rows.Scan(
			&event.ID,
			&endpoint,
			&event.Param,
			&status,
			&event.Cached,
			&event.DurationMS,
			&event.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning lookup: %w", err)
		}
		event.Endpoint = domain.Endpoint(endpoint)
		event.Status = domain.LookupStatus(status)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating lookups: %w", err)
	}
	return events, nil
}

// TopGames returns the most requested games among successful lookups
func (r *Repository) TopGames(ctx context.Context, limit int) ([]domain.GameLookupCount, error) {
	query := `
		SELECT param, COUNT(*) AS lookups
		FROM lookups
		WHERE endpoint = $1 AND status = $2
		GROUP BY param
		ORDER BY lookups DESC, param
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, string(domain.EndpointGame), string(domain.LookupOK), limit)
	if err != nil {
		return nil, fmt.Errorf("querying top games: %w", err)
	}
	defer rows.Close()

	counts := make([]domain.GameLookupCount, 0, limit)
	for rows.Next() {
		var count domain.GameLookupCount
		if err := rows.Scan(&count.GameID, &count.Count); err != nil {
			return nil, fmt.Errorf("scanning top game: %w", err)
		}
		counts = append(counts, count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating top games: %w", err)
	}
	return counts, nil
}
