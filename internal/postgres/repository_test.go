package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/igdb-proxy/internal/domain"
)

func TestLookupArgsOrder(t *testing.T) {
	ts := time.Unix(1_700_000_000, 0)
	args := lookupArgs(domain.LookupEvent{
		ID:         "5b1c",
		Endpoint:   domain.EndpointGenre,
		Param:      "4,12",
		Status:     domain.LookupOK,
		Cached:     true,
		DurationMS: 42,
		Timestamp:  ts,
	})

	want := []any{"5b1c", "genre", "4,12", "ok", true, int64(42), ts}
	if len(args) != len(want) {
		t.Fatalf("expected %d args, got %d", len(want), len(args))
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("arg %d = %v, want %v", i, args[i], want[i])
		}
	}
	if strings.Count(insertLookup, "$") != len(want) {
		t.Fatalf("insert placeholders do not match args: %s", insertLookup)
	}
}

func TestMigrationsCreateLookupsTable(t *testing.T) {
	if !strings.Contains(migrations[0], "CREATE TABLE IF NOT EXISTS lookups") {
		t.Fatalf("first migration must create the lookups table: %s", migrations[0])
	}
	for _, m := range migrations {
		if !strings.Contains(m, "IF NOT EXISTS") {
			t.Errorf("migration is not idempotent: %s", m)
		}
	}
}
