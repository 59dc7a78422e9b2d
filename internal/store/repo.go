package store

import (
	"context"
	"time"
)

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a recorded LLM API call.
type LLMRequestEvent struct {
	ID        int64
	Timestamp time.Time
	LLMRequestEventData
}

// UsageSummary aggregates the LLM request log per purpose.
type UsageSummary struct {
	Purpose      string
	Requests     int
	Failures     int
	InputTokens  int
	OutputTokens int
}

// EventRepo provides append and query access to the LLM request log.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// RecentLLMRequests returns the most recent events, newest first.
	RecentLLMRequests(ctx context.Context, limit int) ([]LLMRequestEvent, error)

	// UsageByPurpose aggregates token usage grouped by purpose label.
	UsageByPurpose(ctx context.Context) ([]UsageSummary, error)
}

// SessionRecord is the persisted summary of a tutoring session.
type SessionRecord struct {
	ID                string
	StartedAt         time.Time
	FinishedAt        time.Time
	QuestionFile      string
	Mode              string
	Total             int
	Answered          int
	Correct           int
	FirstAttemptWrong int
	OutputDir         string
}

// SessionRepo persists session summaries across runs.
type SessionRepo interface {
	// Begin records a new session at its start.
	Begin(ctx context.Context, rec SessionRecord) error

	// Finish fills in the end-of-session stats.
	Finish(ctx context.Context, rec SessionRecord) error

	// Recent returns the most recent sessions, newest first.
	Recent(ctx context.Context, limit int) ([]SessionRecord, error)
}
