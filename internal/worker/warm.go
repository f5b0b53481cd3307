package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/igdb-proxy/internal/config"
	"github.com/igdb-proxy/internal/domain"
	"github.com/igdb-proxy/internal/twitch"
)

// Warmer refreshes cached listings and summaries
type Warmer interface {
	WarmPopular(ctx context.Context) error
	PrefetchGames(ctx context.Context, ids []string) error
}

// TopGamesSource reports the most requested games
type TopGamesSource interface {
	TopGames(ctx context.Context, limit int) ([]domain.GameLookupCount, error)
}

// topGamesLimit bounds how many recorded games are prefetched per cycle
const topGamesLimit = 20

// WarmWorker periodically refreshes the access token and the response cache
type WarmWorker struct {
	tokens  twitch.TokenSource
	warmer  Warmer
	top     TopGamesSource
	config  *config.WarmConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewWarmWorker creates a new warm worker. top may be nil.
func NewWarmWorker(
	tokens twitch.TokenSource,
	warmer Warmer,
	top TopGamesSource,
	cfg *config.WarmConfig,
	logger *slog.Logger,
) *WarmWorker {
	return &WarmWorker{
		tokens: tokens,
		warmer: warmer,
		top:    top,
		config: cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start runs a first cycle and then warms on every interval
func (w *WarmWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("warm worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background warm process
func (w *WarmWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("warm worker stopped")
	return nil
}

// run is the main worker loop
func (w *WarmWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	w.RunOnce(ctx)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single warm cycle. Failures are logged, not returned.
func (w *WarmWorker) RunOnce(ctx context.Context) {
	startTime := time.Now()

	if _, err := w.tokens.AccessToken(ctx); err != nil {
		// Upstream calls would fail the same way
		w.logger.Error("failed to refresh access token", "error", err)
		return
	}

	if err := w.warmer.WarmPopular(ctx); err != nil {
		w.logger.Error("failed to warm popular games", "error", err)
	}

	prefetched := 0
	if w.top != nil {
		counts, err := w.top.TopGames(ctx, topGamesLimit)
		if err != nil {
			w.logger.Error("failed to list top games", "error", err)
		} else if len(counts) > 0 {
			ids := make([]string, len(counts))
			for i, c := range counts {
				ids[i] = c.GameID
			}
			if err := w.warmer.PrefetchGames(ctx, ids); err != nil {
				w.logger.Error("failed to prefetch top games", "error", err)
			}
			prefetched = len(ids)
		}
	}

	w.logger.Info("warm cycle completed",
		"prefetched", prefetched,
		"duration_ms", time.Since(startTime).Milliseconds(),
	)
}
