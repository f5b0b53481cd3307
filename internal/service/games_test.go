package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/igdb-proxy/internal/config"
	"github.com/igdb-proxy/internal/domain"
	"github.com/igdb-proxy/internal/igdb"
	"github.com/igdb-proxy/internal/service"
	"github.com/igdb-proxy/internal/transform"
)

type fakeQuerier struct {
	mu      sync.Mutex
	queries []igdb.Query
	records []domain.GameRecord
	err     error
}

func (f *fakeQuerier) Games(ctx context.Context, query igdb.Query) ([]domain.GameRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	return f.records, f.err
}

func (f *fakeQuerier) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

type memoryCache struct {
	mu     sync.Mutex
	values map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string][]byte)}
}

func (c *memoryCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *memoryCache) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = raw
	return nil
}

type eventSink struct {
	mu     sync.Mutex
	events []domain.LookupEvent
}

func (s *eventSink) RecordLookup(ctx context.Context, event domain.LookupEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *eventSink) BroadcastLookup(event domain.LookupEvent) {
	_ = s.RecordLookup(context.Background(), event)
}

type failingPublisher struct{}

func (failingPublisher) PublishLookup(ctx context.Context, event domain.LookupEvent) error {
	return errors.New("broker unavailable")
}

func testConfig() *config.IGDBConfig {
	return &config.IGDBConfig{PageSize: 50, MinRatingCount: 50}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGetGameNotFound(t *testing.T) {
	upstream := &fakeQuerier{records: []domain.GameRecord{}}
	svc := service.NewGameService(upstream, transform.New(nil), testConfig(), discardLogger())

	_, err := svc.GetGame(context.Background(), "999999")
	if !errors.Is(err, domain.ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
	if !strings.Contains(string(upstream.queries[0]), "where id = 999999;") {
		t.Fatalf("unexpected query %q", upstream.queries[0])
	}
}

func TestGetGameTransformsFirstRecord(t *testing.T) {
	upstream := &fakeQuerier{records: []domain.GameRecord{{ID: 1942, Name: "The Witcher 3"}, {ID: 2, Name: "Ignored"}}}
	svc := service.NewGameService(upstream, nil, testConfig(), discardLogger())

	summary, err := svc.GetGame(context.Background(), "1942")
	if err != nil {
		t.Fatalf("GetGame returned error: %v", err)
	}
	if summary.ID != 1942 || summary.ReleaseDate != transform.Unknown {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestGetGameInvalidID(t *testing.T) {
	upstream := &fakeQuerier{}
	svc := service.NewGameService(upstream, nil, testConfig(), discardLogger())

	for _, id := range []string{"", "abc", "0", "-3", "1; fields *", "1.5"} {
		if _, err := svc.GetGame(context.Background(), id); !errors.Is(err, domain.ErrInvalidID) {
			t.Errorf("id %q: expected ErrInvalidID, got %v", id, err)
		}
	}
	if upstream.calls() != 0 {
		t.Fatalf("expected no upstream calls for invalid ids, got %d", upstream.calls())
	}
}

func TestGetGameAcceptsLeadingZeros(t *testing.T) {
	upstream := &fakeQuerier{records: []domain.GameRecord{{ID: 7, Name: "Seven"}}}
	svc := service.NewGameService(upstream, nil, testConfig(), discardLogger())

	summary, err := svc.GetGame(context.Background(), "007")
	if err != nil {
		t.Fatalf("GetGame returned error: %v", err)
	}
	if summary.ID != 7 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if !strings.Contains(string(upstream.queries[0]), "where id = 7;") {
		t.Fatalf("unexpected query %q", upstream.queries[0])
	}
}

func TestGetGameUpstreamFailure(t *testing.T) {
	upstreamErr := errors.New("connection reset")
	svc := service.NewGameService(&fakeQuerier{err: upstreamErr}, nil, testConfig(), discardLogger())

	_, err := svc.GetGame(context.Background(), "1")
	if !errors.Is(err, upstreamErr) {
		t.Fatalf("expected wrapped upstream error, got %v", err)
	}
}

func TestGetGameUsesCache(t *testing.T) {
	upstream := &fakeQuerier{records: []domain.GameRecord{{ID: 5, Name: "Cached"}}}
	cache := newMemoryCache()
	sink := &eventSink{}
	svc := service.NewGameService(upstream, nil, testConfig(), discardLogger(),
		service.WithCache(cache),
		service.WithRecorder(sink),
	)

	for i := 0; i < 3; i++ {
		summary, err := svc.GetGame(context.Background(), "5")
		if err != nil {
			t.Fatalf("GetGame returned error: %v", err)
		}
		if summary.Name != "Cached" {
			t.Fatalf("unexpected summary: %+v", summary)
		}
	}
	if upstream.calls() != 1 {
		t.Fatalf("expected a single upstream call, got %d", upstream.calls())
	}
	svc.Close()
	if len(sink.events) != 3 || sink.events[0].Cached || !sink.events[2].Cached {
		t.Fatalf("unexpected lookup events: %+v", sink.events)
	}
}

func TestPopularQueryAndShape(t *testing.T) {
	upstream := &fakeQuerier{records: []domain.GameRecord{
		{ID: 1, Name: "A", Cover: &domain.Image{URL: "//a.jpg"}},
		{ID: 2, Name: "B", Screenshots: []domain.Image{{URL: "//b.jpg"}}},
	}}
	svc := service.NewGameService(upstream, nil, testConfig(), discardLogger())

	games, err := svc.Popular(context.Background())
	if err != nil {
		t.Fatalf("Popular returned error: %v", err)
	}
	if len(games) != 2 || games[0].Cover == nil || games[1].Cover != nil || len(games[1].Screenshots) != 1 {
		t.Fatalf("unexpected popular games: %#v", games)
	}
	if upstream.queries[0] != igdb.Popular(50, 50) {
		t.Fatalf("unexpected query %q", upstream.queries[0])
	}
}

func TestByGenreAcceptsList(t *testing.T) {
	upstream := &fakeQuerier{records: []domain.GameRecord{{ID: 3, Name: "C"}}}
	svc := service.NewGameService(upstream, nil, testConfig(), discardLogger())

	games, err := svc.ByGenre(context.Background(), "4, 12")
	if err != nil {
		t.Fatalf("ByGenre returned error: %v", err)
	}
	if len(games) != 1 || games[0].ID != 3 {
		t.Fatalf("unexpected genre games: %#v", games)
	}
	if upstream.queries[0] != igdb.ByGenre([]string{"4", "12"}, 50) {
		t.Fatalf("unexpected query %q", upstream.queries[0])
	}

	if _, err := svc.ByGenre(context.Background(), "4,,5"); !errors.Is(err, domain.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID for malformed list, got %v", err)
	}
}

func TestLookupEventsStatusAndSinkFailures(t *testing.T) {
	sink := &eventSink{}
	svc := service.NewGameService(&fakeQuerier{records: nil}, nil, testConfig(), discardLogger(),
		service.WithBroadcaster(sink),
		service.WithPublisher(failingPublisher{}),
	)

	if _, err := svc.GetGame(context.Background(), "x"); !errors.Is(err, domain.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := svc.GetGame(context.Background(), "10"); !errors.Is(err, domain.ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
	if _, err := svc.Popular(context.Background()); err != nil {
		t.Fatalf("publisher failure must not surface, got %v", err)
	}
	svc.Close()

	want := []domain.LookupStatus{domain.LookupInvalid, domain.LookupNotFound, domain.LookupOK}
	if len(sink.events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(sink.events))
	}
	for i, status := range want {
		if sink.events[i].Status != status {
			t.Errorf("event %d: status %q, want %q", i, sink.events[i].Status, status)
		}
		if sink.events[i].ID == "" {
			t.Errorf("event %d: missing id", i)
		}
	}
	if sink.events[2].Endpoint != domain.EndpointPopular {
		t.Fatalf("unexpected endpoint %q", sink.events[2].Endpoint)
	}
}

func TestPrefetchAndWarm(t *testing.T) {
	upstream := &fakeQuerier{records: []domain.GameRecord{{ID: 8, Name: "Warm"}}}
	cache := newMemoryCache()
	svc := service.NewGameService(upstream, nil, testConfig(), discardLogger(), service.WithCache(cache))

	if err := svc.PrefetchGames(context.Background(), []string{"8", "bogus", "9"}); err != nil {
		t.Fatalf("PrefetchGames returned error: %v", err)
	}
	if upstream.calls() != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", upstream.calls())
	}
	if _, ok := cache.values["game:8"]; !ok {
		t.Fatal("expected game:8 to be cached")
	}

	if err := svc.WarmPopular(context.Background()); err != nil {
		t.Fatalf("WarmPopular returned error: %v", err)
	}
	if _, ok := cache.values["popular"]; !ok {
		t.Fatal("expected popular listing to be cached")
	}
}

func TestPrefetchWithoutCacheIsNoop(t *testing.T) {
	upstream := &fakeQuerier{}
	svc := service.NewGameService(upstream, nil, testConfig(), discardLogger())
	if err := svc.PrefetchGames(context.Background(), []string{"1"}); err != nil {
		t.Fatalf("PrefetchGames returned error: %v", err)
	}
	if upstream.calls() != 0 {
		t.Fatalf("expected no upstream calls without cache, got %d", upstream.calls())
	}
}

type blockingRecorder struct {
	release chan struct{}
	sink    eventSink
}

func (r *blockingRecorder) RecordLookup(ctx context.Context, event domain.LookupEvent) error {
	<-r.release
	return r.sink.RecordLookup(ctx, event)
}

func TestSlowSinkDoesNotDelayLookups(t *testing.T) {
	upstream := &fakeQuerier{records: []domain.GameRecord{{ID: 1, Name: "Fast"}}}
	recorder := &blockingRecorder{release: make(chan struct{})}
	svc := service.NewGameService(upstream, nil, testConfig(), discardLogger(), service.WithRecorder(recorder))

	done := make(chan error, 1)
	go func() {
		_, err := svc.GetGame(context.Background(), "1")
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("GetGame returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("GetGame waited for the lookup recorder")
	}

	close(recorder.release)
	svc.Close()
	if len(recorder.sink.events) != 1 || recorder.sink.events[0].Param != "1" {
		t.Fatalf("unexpected recorded events: %+v", recorder.sink.events)
	}

	// Events after Close are dropped
	if _, err := svc.GetGame(context.Background(), "1"); err != nil {
		t.Fatalf("GetGame after Close returned error: %v", err)
	}
	svc.Close()
	if len(recorder.sink.events) != 1 {
		t.Fatalf("expected no events after Close, got %d", len(recorder.sink.events))
	}
}
