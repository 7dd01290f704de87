// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/crispdesk/supportbot/internal/domain"
)

// AnalyticsFilter restricts analytics aggregation. Dates are YYYY-MM-DD.
type AnalyticsFilter struct {
	Intent   string
	DateFrom string
	DateTo   string
}

// Statistics are the headline aggregates over the filtered turns.
type Statistics struct {
	TotalConversations int64   `json:"total_conversations"`
	UniqueSessions     int64   `json:"unique_sessions"`
	AvgSatisfaction    float64 `json:"avg_satisfaction"`
	AvgConfidence      float64 `json:"avg_confidence"`
	SatisfactionRate   float64 `json:"satisfaction_rate"`
	EscalationRate     float64 `json:"escalation_rate"`
}

// IntentCount is one row of the intent distribution.
type IntentCount struct {
	Intent        string  `json:"intent"`
	Count         int64   `json:"count"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// DailyCount is one row of the per-day conversation counts.
type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// SentimentCount is one row of the sentiment distribution.
type SentimentCount struct {
	Sentiment string `json:"sentiment"`
	Count     int64  `json:"count"`
}

// AnalyticsReport is the full on-demand analytics aggregation. Nothing here
// is maintained incrementally; every read re-scans the turn table under the
// caller's filters.
type AnalyticsReport struct {
	Statistics            Statistics       `json:"statistics"`
	IntentDistribution    []IntentCount    `json:"intent_distribution"`
	DailyCounts           []DailyCount     `json:"daily_counts"`
	SentimentDistribution []SentimentCount `json:"sentiment_distribution"`
}

// Repository defines the interface for persisting turns and reading
// analytics.
type Repository interface {
	// InsertTurn appends a turn and returns its assigned identifier. The
	// per-session rollup row is bumped in the same call.
	InsertTurn(ctx context.Context, turn *domain.Turn) (int64, error)

	// UpdateFeedback sets the feedback fields of an existing turn and
	// returns the number of rows affected. An unknown id affects zero rows
	// and is not an error.
	UpdateFeedback(ctx context.Context, turnID int64, feedback int, feedbackText string) (int64, error)

	// Analytics computes the aggregate report under the given filter.
	Analytics(ctx context.Context, filter AnalyticsFilter) (*AnalyticsReport, error)

	// ExportConversations returns a session's turns oldest-first, or the
	// latest 1000 turns overall when sessionID is empty.
	ExportConversations(ctx context.Context, sessionID string) ([]*domain.Turn, error)

	// SessionSummary aggregates the stored turns of one session. Returns
	// nil when the session has no turns.
	SessionSummary(ctx context.Context, sessionID string) (*domain.SessionSummary, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
