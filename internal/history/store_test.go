package history

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/dungle-scrubs/hisohiso-sub001/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openStore(t *testing.T, cfg config.HistoryConfig) *Store {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = filepath.Join(t.TempDir(), "history.db")
	}
	if cfg.RetentionMode == "" {
		cfg.RetentionMode = "session"
	}
	s, err := Open(context.Background(), cfg, testLogger())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func entry(id string, startedAt time.Time, transcript string) Entry {
	return Entry{
		SessionID:  id,
		StartedAt:  startedAt,
		FinishedAt: startedAt.Add(2 * time.Second),
		Outcome:    "delivered",
		Transcript: transcript,
	}
}

func TestEphemeralStoreIsNoop(t *testing.T) {
	s := openStore(t, config.HistoryConfig{RetentionMode: "ephemeral", Path: "unused"})
	ctx := context.Background()
	if err := s.RecordSession(ctx, entry("a", time.Now(), "hello")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entries, err := s.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("ephemeral store must not retain anything, got %d entries", len(entries))
	}
}

func TestRecordAndListRecent(t *testing.T) {
	s := openStore(t, config.HistoryConfig{})
	ctx := context.Background()
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		e := entry(id, base.Add(time.Duration(i)*time.Minute), "transcript "+id)
		if err := s.RecordSession(ctx, e); err != nil {
			t.Fatalf("failed to record %s: %v", id, err)
		}
	}

	entries, err := s.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].SessionID != "c" || entries[2].SessionID != "a" {
		t.Fatalf("expected newest first, got %s..%s", entries[0].SessionID, entries[2].SessionID)
	}
	if entries[0].Transcript != "transcript c" {
		t.Fatalf("unexpected transcript %q", entries[0].Transcript)
	}
	if entries[0].Outcome != "delivered" {
		t.Fatalf("unexpected outcome %q", entries[0].Outcome)
	}
}

func TestRecordWithoutTranscript(t *testing.T) {
	s := openStore(t, config.HistoryConfig{})
	ctx := context.Background()
	e := entry("a", time.Now().UTC(), "")
	e.Outcome = "rejected"
	e.Error = "speaker mismatch"
	if err := s.RecordSession(ctx, e); err != nil {
		t.Fatalf("failed to record: %v", err)
	}
	entries, err := s.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Transcript != "" || entries[0].Error != "speaker mismatch" {
		t.Fatalf("unexpected entry %+v", entries[0])
	}
}

func TestPruneMaxSessions(t *testing.T) {
	s := openStore(t, config.HistoryConfig{MaxSessions: 2})
	ctx := context.Background()
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		if err := s.RecordSession(ctx, entry(id, base.Add(time.Duration(i)*time.Minute), "")); err != nil {
			t.Fatalf("failed to record %s: %v", id, err)
		}
	}
	if err := s.Prune(ctx); err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	entries, err := s.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after prune, got %d", len(entries))
	}
	for _, e := range entries {
		if e.SessionID == "a" {
			t.Fatal("expected the oldest session to be pruned")
		}
	}
}

func TestPruneRetentionDays(t *testing.T) {
	s := openStore(t, config.HistoryConfig{RetentionDays: 30})
	ctx := context.Background()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	s.clock = func() time.Time { return now }

	if err := s.RecordSession(ctx, entry("old", now.Add(-40*24*time.Hour), "")); err != nil {
		t.Fatalf("failed to record: %v", err)
	}
	if err := s.RecordSession(ctx, entry("fresh", now.Add(-time.Hour), "")); err != nil {
		t.Fatalf("failed to record: %v", err)
	}
	if err := s.Prune(ctx); err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	entries, err := s.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].SessionID != "fresh" {
		t.Fatalf("expected only the fresh session, got %+v", entries)
	}
}
