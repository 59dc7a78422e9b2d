package store

import (
	"context"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenClose(t *testing.T) {
	s := openTestStore(t)
	if s.DB() == nil {
		t.Fatal("expected non-nil db handle")
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases,
		// so journal_mode is not asserted here.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestAppendAndQueryLLMRequests(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	events := []LLMRequestEventData{
		{Provider: "mock", Model: "mock", Purpose: "solve", InputTokens: 100, OutputTokens: 50, Success: true},
		{Provider: "mock", Model: "mock", Purpose: "solve", InputTokens: 120, OutputTokens: 60, Success: true},
		{Provider: "mock", Model: "mock", Purpose: "diagnose", Success: false, ErrorMessage: "rate limited"},
	}
	for _, ev := range events {
		if err := repo.AppendLLMRequest(ctx, ev); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	recent, err := repo.RecentLLMRequests(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 recent events, got %d", len(recent))
	}
	// Newest first.
	if recent[0].Purpose != "diagnose" {
		t.Errorf("expected newest event first, got purpose %q", recent[0].Purpose)
	}
	if recent[0].Success {
		t.Error("expected failed event to round-trip success=false")
	}

	usage, err := repo.UsageByPurpose(ctx)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if len(usage) != 2 {
		t.Fatalf("expected 2 purpose groups, got %d", len(usage))
	}

	byPurpose := map[string]UsageSummary{}
	for _, u := range usage {
		byPurpose[u.Purpose] = u
	}
	if got := byPurpose["solve"]; got.Requests != 2 || got.InputTokens != 220 || got.OutputTokens != 110 {
		t.Errorf("solve summary = %+v", got)
	}
	if got := byPurpose["diagnose"]; got.Requests != 1 || got.Failures != 1 {
		t.Errorf("diagnose summary = %+v", got)
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := openTestStore(t)
	repo := s.SessionRepo()
	ctx := context.Background()

	rec := SessionRecord{
		ID:           "sess-1",
		StartedAt:    time.Now(),
		QuestionFile: "questions.json",
		Mode:         "B",
		Total:        10,
		OutputDir:    "/tmp/out",
	}
	if err := repo.Begin(ctx, rec); err != nil {
		t.Fatalf("begin: %v", err)
	}

	rec.FinishedAt = time.Now()
	rec.Answered = 8
	rec.Correct = 6
	rec.FirstAttemptWrong = 2
	if err := repo.Finish(ctx, rec); err != nil {
		t.Fatalf("finish: %v", err)
	}

	recent, err := repo.Recent(ctx, 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected 1 session, got %d", len(recent))
	}
	got := recent[0]
	if got.ID != "sess-1" || got.Correct != 6 || got.FirstAttemptWrong != 2 {
		t.Errorf("unexpected session record: %+v", got)
	}
	if got.FinishedAt.IsZero() {
		t.Error("expected finished_at to be set")
	}
}

func TestFinishUnknownSession(t *testing.T) {
	s := openTestStore(t)
	repo := s.SessionRepo()

	err := repo.Finish(context.Background(), SessionRecord{ID: "missing", FinishedAt: time.Now()})
	if err == nil {
		t.Fatal("expected error finishing unknown session")
	}
}
