package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"
	"github.com/igdb-proxy/internal/config"
	"github.com/igdb-proxy/internal/domain"
	"github.com/igdb-proxy/internal/igdb"
	"github.com/igdb-proxy/internal/transform"
)

// GameQuerier runs apicalypse queries against the games endpoint
type GameQuerier interface {
	Games(ctx context.Context, query igdb.Query) ([]domain.GameRecord, error)
}

// ResponseCache stores transformed payloads
type ResponseCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

// LookupRecorder persists lookup events
type LookupRecorder interface {
	RecordLookup(ctx context.Context, event domain.LookupEvent) error
}

// LookupPublisher forwards lookup events to a message bus
type LookupPublisher interface {
	PublishLookup(ctx context.Context, event domain.LookupEvent) error
}

// LookupBroadcaster pushes lookup events to live subscribers
type LookupBroadcaster interface {
	BroadcastLookup(event domain.LookupEvent)
}

// GameService orchestrates token acquisition, upstream queries and transforms
type GameService struct {
	upstream    GameQuerier
	transform   *transform.Transformer
	config      *config.IGDBConfig
	logger      *slog.Logger
	cache       ResponseCache
	recorder    LookupRecorder
	publisher   LookupPublisher
	broadcaster LookupBroadcaster

	events chan domain.LookupEvent
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// Lookup events waiting for the sinks; further events are dropped
const lookupQueueSize = 256

// Deadline for delivering one event to one sink
const sinkTimeout = 2 * time.Second

// Option configures a GameService
type Option func(*GameService)

// WithCache enables response caching
func WithCache(cache ResponseCache) Option {
	return func(s *GameService) { s.cache = cache }
}

// WithRecorder persists every lookup
func WithRecorder(recorder LookupRecorder) Option {
	return func(s *GameService) { s.recorder = recorder }
}

// WithPublisher publishes every lookup
func WithPublisher(publisher LookupPublisher) Option {
	return func(s *GameService) { s.publisher = publisher }
}

// WithBroadcaster broadcasts every lookup
func WithBroadcaster(broadcaster LookupBroadcaster) Option {
	return func(s *GameService) { s.broadcaster = broadcaster }
}

// NewGameService creates a new game service
func NewGameService(
	upstream GameQuerier,
	tr *transform.Transformer,
	cfg *config.IGDBConfig,
	logger *slog.Logger,
	opts ...Option,
) *GameService {
	if tr == nil {
		tr = transform.New(nil)
	}
	s := &GameService{
		upstream:  upstream,
		transform: tr,
		config:    cfg,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.recorder != nil || s.publisher != nil || s.broadcaster != nil {
		s.events = make(chan domain.LookupEvent, lookupQueueSize)
		s.wg.Add(1)
		go s.dispatchLookups()
	}
	return s
}

// Close stops accepting lookup events and waits for queued ones to be delivered
func (s *GameService) Close() {
	s.mu.Lock()
	if s.closed || s.events == nil {
		s.closed = true
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.events)
	s.mu.Unlock()

	s.wg.Wait()
}

// GetGame returns the summary of a single game
func (s *GameService) GetGame(ctx context.Context, id string) (summary *domain.GameSummary, err error) {
	start := time.Now()
	cached := false
	defer func() { s.observe(domain.EndpointGame, id, start, cached, err) }()

	gameID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var hit domain.GameSummary
	if s.cacheGet(ctx, gameKey(gameID), &hit) {
		cached = true
		return &hit, nil
	}
	return s.fetchGame(ctx, gameID)
}

// Popular returns the most rated games with media
func (s *GameService) Popular(ctx context.Context) (games []domain.PopularGame, err error) {
	start := time.Now()
	cached := false
	defer func() { s.observe(domain.EndpointPopular, "", start, cached, err) }()

	if s.cacheGet(ctx, popularKey, &games) {
		cached = true
		return games, nil
	}
	return s.fetchPopular(ctx)
}

// ByGenre returns the most rated games with a cover in the given genres.
// Genre ids may be a comma-separated list.
func (s *GameService) ByGenre(ctx context.Context, ids string) (games []domain.GenreGame, err error) {
	start := time.Now()
	cached := false
	defer func() { s.observe(domain.EndpointGenre, ids, start, cached, err) }()

	genreIDs, err := parseIDList(ids)
	if err != nil {
		return nil, err
	}

	key := genreKey(genreIDs)
	if s.cacheGet(ctx, key, &games) {
		cached = true
		return games, nil
	}

	records, err := s.upstream.Games(ctx, igdb.ByGenre(genreIDs, s.config.PageSize))
	if err != nil {
		return nil, fmt.Errorf("querying genre %s: %w", strings.Join(genreIDs, ","), err)
	}
	games = s.transform.GenreGames(records)
	s.cacheSet(ctx, key, games)
	return games, nil
}

// PrefetchGames refreshes the cached summaries of the given games
func (s *GameService) PrefetchGames(ctx context.Context, ids []string) error {
	if s.cache == nil {
		s.logger.Debug("prefetch skipped, response cache disabled", "count", len(ids))
		return nil
	}
	for _, id := range ids {
		gameID, err := parseID(id)
		if err != nil {
			s.logger.Warn("skipping invalid prefetch id", "game_id", id)
			continue
		}
		if _, err := s.fetchGame(ctx, gameID); err != nil {
			if errors.Is(err, domain.ErrGameNotFound) {
				s.logger.Debug("prefetch game not found", "game_id", gameID)
				continue
			}
			s.logger.Error("failed to prefetch game", "game_id", gameID, "error", err)
			// Continue with the remaining games
		}
	}
	return nil
}

// WarmPopular refreshes the cached popular listing
func (s *GameService) WarmPopular(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	_, err := s.fetchPopular(ctx)
	return err
}

func (s *GameService) fetchGame(ctx context.Context, gameID string) (*domain.GameSummary, error) {
	records, err := s.upstream.Games(ctx, igdb.GameByID(gameID))
	if err != nil {
		return nil, fmt.Errorf("querying game %s: %w", gameID, err)
	}
	if len(records) == 0 {
		return nil, domain.ErrGameNotFound
	}

	summary := s.transform.GameSummary(records[0])
	s.cacheSet(ctx, gameKey(gameID), summary)
	return &summary, nil
}

func (s *GameService) fetchPopular(ctx context.Context) ([]domain.PopularGame, error) {
	records, err := s.upstream.Games(ctx, igdb.Popular(s.config.MinRatingCount, s.config.PageSize))
	if err != nil {
		return nil, fmt.Errorf("querying popular games: %w", err)
	}
	games := s.transform.PopularGames(records)
	s.cacheSet(ctx, popularKey, games)
	return games, nil
}

func (s *GameService) cacheGet(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	found, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		s.logger.Warn("failed to read response cache", "key", key, "error", err)
		return false
	}
	return found
}

func (s *GameService) cacheSet(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value); err != nil {
		s.logger.Warn("failed to write response cache", "key", key, "error", err)
	}
}

// observe queues a lookup event for the configured sinks
func (s *GameService) observe(endpoint domain.Endpoint, param string, start time.Time, cached bool, err error) {
	if s.events == nil {
		return
	}

	event := domain.LookupEvent{
		ID:         uuid.NewString(),
		Endpoint:   endpoint,
		Param:      param,
		Status:     lookupStatus(err),
		Cached:     cached,
		DurationMS: time.Since(start).Milliseconds(),
		Timestamp:  start,
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.events <- event:
	default:
		s.logger.Warn("lookup queue full, dropping event", "endpoint", endpoint, "param", param)
	}
}

func (s *GameService) dispatchLookups() {
	defer s.wg.Done()
	for event := range s.events {
		s.deliver(event)
	}
}

func (s *GameService) deliver(event domain.LookupEvent) {
	if s.recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		if err := s.recorder.RecordLookup(ctx, event); err != nil {
			s.logger.Warn("failed to record lookup", "endpoint", event.Endpoint, "error", err)
		}
		cancel()
	}
	if s.publisher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		if err := s.publisher.PublishLookup(ctx, event); err != nil {
			s.logger.Warn("failed to publish lookup", "endpoint", event.Endpoint, "error", err)
		}
		cancel()
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastLookup(event)
	}
}

func lookupStatus(err error) domain.LookupStatus {
	switch {
	case err == nil:
		return domain.LookupOK
	case errors.Is(err, domain.ErrInvalidID):
		return domain.LookupInvalid
	case domain.IsNotFoundError(err):
		return domain.LookupNotFound
	default:
		return domain.LookupError
	}
}

const popularKey = "popular"

func gameKey(id string) string { return "game:" + id }

func genreKey(ids []string) string { return "genre:" + strings.Join(ids, ",") }

// parseID accepts a positive decimal id and returns its canonical form
func parseID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !govalidator.IsNumeric(raw) {
		return "", domain.ErrInvalidID
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return "", domain.ErrInvalidID
	}
	return strconv.FormatInt(n, 10), nil
}

func parseIDList(raw string) ([]string, error) {
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		id, err := parseID(part)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
