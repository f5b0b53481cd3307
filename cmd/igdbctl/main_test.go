package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/igdb-proxy/internal/domain"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--env", filepath.Join(t.TempDir(), ".env")))
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommandListsSubcommands(t *testing.T) {
	out, err := executeCommand(t)
	if err != nil {
		t.Fatalf("root command returned error: %v", err)
	}
	for _, name := range []string{"game", "prefetch", "lookups"} {
		if !strings.Contains(out, name) {
			t.Errorf("help output missing %q:\n%s", name, out)
		}
	}
}

func TestPrefetchRejectsInvalidIDs(t *testing.T) {
	_, err := executeCommand(t, "prefetch", "1942", "abc")
	if err == nil || !strings.Contains(err.Error(), `invalid game id "abc"`) {
		t.Fatalf("expected invalid id error, got %v", err)
	}
}

func TestLookupsRejectsNonPositiveLimit(t *testing.T) {
	_, err := executeCommand(t, "lookups", "--limit", "0")
	if err == nil || !strings.Contains(err.Error(), "limit must be positive") {
		t.Fatalf("expected limit error, got %v", err)
	}
}

func TestExplicitConfigMustExist(t *testing.T) {
	_, err := executeCommand(t, "lookups", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestValidateGameIDs(t *testing.T) {
	ids, err := validateGameIDs([]string{"1942", "007"})
	if err != nil {
		t.Fatalf("validateGameIDs returned error: %v", err)
	}
	if strings.Join(ids, ",") != "1942,7" {
		t.Fatalf("unexpected ids %v", ids)
	}
	for _, bad := range []string{"0", "-1", "+42", "1;", ""} {
		if _, err := validateGameIDs([]string{bad}); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"Game", "Lookups"}, [][]string{{"1942", "7"}, {"7346"}}, []columnAlignment{alignLeft, alignRight})
	// The rounded style upper-cases header cells
	for _, want := range []string{"GAME", "LOOKUPS", "1942", "7346"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty output without headers")
	}
}

func TestRenderLookups(t *testing.T) {
	if got := renderLookups(nil); got != "No lookups recorded" {
		t.Fatalf("unexpected empty output %q", got)
	}
	out := renderLookups([]domain.LookupEvent{{
		Endpoint:   domain.EndpointGame,
		Param:      "1942",
		Status:     domain.LookupOK,
		Cached:     true,
		DurationMS: 12,
		Timestamp:  time.Unix(1_700_000_000, 0),
	}})
	for _, want := range []string{"game", "1942", "ok", "yes", "12ms"} {
		if !strings.Contains(out, want) {
			t.Errorf("lookups table missing %q:\n%s", want, out)
		}
	}

	top := renderTopGames([]domain.GameLookupCount{{GameID: "1942", Count: 9}})
	if !strings.Contains(top, "1942") || !strings.Contains(top, "9") {
		t.Fatalf("unexpected top games table:\n%s", top)
	}
}
