package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/crispdesk/supportbot/internal/domain"
	_ "modernc.org/sqlite"
)

const timestampLayout = "2006-01-02 15:04:05"

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	// The analytics and intent_performance tables exist for external
	// reporting jobs; the interactive path never writes them. Aggregates
	// are computed on demand from conversations.
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS conversations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		user_message TEXT NOT NULL,
		bot_response TEXT NOT NULL,
		intent TEXT NOT NULL,
		sentiment TEXT,
		confidence REAL,
		timestamp DATETIME NOT NULL,
		feedback INTEGER DEFAULT 0,
		feedback_text TEXT,
		response_time REAL,
		escalated BOOLEAN DEFAULT 0,
		resolved BOOLEAN DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_session ON conversations(session_id);

	CREATE TABLE IF NOT EXISTS user_sessions (
		session_id TEXT PRIMARY KEY,
		start_time DATETIME NOT NULL,
		end_time DATETIME,
		total_messages INTEGER DEFAULT 0,
		satisfaction_score REAL,
		issues_resolved INTEGER DEFAULT 0,
		escalated BOOLEAN DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS analytics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date DATE NOT NULL,
		total_conversations INTEGER DEFAULT 0,
		unique_users INTEGER DEFAULT 0,
		avg_satisfaction REAL DEFAULT 0,
		most_common_intent TEXT,
		resolution_rate REAL DEFAULT 0,
		avg_response_time REAL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS intent_performance (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		intent TEXT NOT NULL,
		date DATE NOT NULL,
		count INTEGER DEFAULT 0,
		avg_confidence REAL DEFAULT 0,
		avg_satisfaction REAL DEFAULT 0,
		success_rate REAL DEFAULT 0
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InsertTurn appends a turn and bumps the per-session rollup.
func (s *SQLiteStore) InsertTurn(ctx context.Context, turn *domain.Turn) (int64, error) {
	ts := turn.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	stamp := ts.Format(timestampLayout)

	var responseTime interface{}
	if turn.ResponseTime > 0 {
		responseTime = turn.ResponseTime
	}

	var result sql.Result
	err := withBusyRetry(ctx, "insert turn", func() error {
		var execErr error
		result, execErr = s.db.ExecContext(ctx, `
			INSERT INTO conversations (session_id, user_message, bot_response, intent,
			                           sentiment, confidence, timestamp, response_time, escalated, resolved)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			turn.SessionID, turn.UserMessage, turn.BotResponse, turn.Intent,
			string(turn.Sentiment), turn.Confidence, stamp, responseTime,
			boolToInt(turn.Escalated), boolToInt(turn.Resolved),
		)
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("insert turn: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get turn id: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO user_sessions (session_id, start_time, total_messages)
		VALUES (?, ?, COALESCE((SELECT total_messages FROM user_sessions WHERE session_id = ?), 0) + 1)`,
		turn.SessionID, stamp, turn.SessionID,
	)
	if err != nil {
		return 0, fmt.Errorf("update session rollup: %w", err)
	}

	return id, nil
}

// UpdateFeedback sets feedback fields on a turn. Zero rows affected is not
// an error: the caller decides how permissive to be with unknown ids.
func (s *SQLiteStore) UpdateFeedback(ctx context.Context, turnID int64, feedback int, feedbackText string) (int64, error) {
	var result sql.Result
	err := withBusyRetry(ctx, "update feedback", func() error {
		var execErr error
		result, execErr = s.db.ExecContext(ctx, `
			UPDATE conversations SET feedback = ?, feedback_text = ? WHERE id = ?`,
			feedback, feedbackText, turnID,
		)
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("update feedback: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("Feedback update matched no turn", "turn_id", turnID)
	}
	return rows, nil
}

// Analytics computes the aggregate report by re-scanning the turn table.
func (s *SQLiteStore) Analytics(ctx context.Context, filter AnalyticsFilter) (*AnalyticsReport, error) {
	var conditions []string
	var params []interface{}

	if filter.Intent != "" {
		conditions = append(conditions, "intent = ?")
		params = append(params, filter.Intent)
	}
	if filter.DateFrom != "" {
		conditions = append(conditions, "date(timestamp) >= ?")
		params = append(params, filter.DateFrom)
	}
	if filter.DateTo != "" {
		conditions = append(conditions, "date(timestamp) <= ?")
		params = append(params, filter.DateTo)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	report := &AnalyticsReport{}

	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(DISTINCT session_id),
			AVG(CASE WHEN feedback > 0 THEN feedback END),
			AVG(confidence),
			COUNT(CASE WHEN feedback >= 4 THEN 1 END) * 100.0 / COUNT(*),
			COUNT(CASE WHEN escalated = 1 THEN 1 END) * 100.0 / COUNT(*)
		FROM conversations`+where, params...)

	var avgSatisfaction, avgConfidence, satisfactionRate, escalationRate sql.NullFloat64
	if err := row.Scan(
		&report.Statistics.TotalConversations,
		&report.Statistics.UniqueSessions,
		&avgSatisfaction, &avgConfidence, &satisfactionRate, &escalationRate,
	); err != nil {
		return nil, fmt.Errorf("scan statistics: %w", err)
	}
	report.Statistics.AvgSatisfaction = round2(avgSatisfaction.Float64)
	report.Statistics.AvgConfidence = round2(avgConfidence.Float64)
	report.Statistics.SatisfactionRate = round2(satisfactionRate.Float64)
	report.Statistics.EscalationRate = round2(escalationRate.Float64)

	intents, err := s.queryIntentDistribution(ctx, where, params)
	if err != nil {
		return nil, err
	}
	report.IntentDistribution = intents

	daily, err := s.queryDailyCounts(ctx, where, params)
	if err != nil {
		return nil, err
	}
	report.DailyCounts = daily

	sentimentWhere := " WHERE sentiment IS NOT NULL"
	if len(conditions) > 0 {
		sentimentWhere += " AND " + strings.Join(conditions, " AND ")
	}
	sentiments, err := s.querySentimentDistribution(ctx, sentimentWhere, params)
	if err != nil {
		return nil, err
	}
	report.SentimentDistribution = sentiments

	return report, nil
}

func (s *SQLiteStore) queryIntentDistribution(ctx context.Context, where string, params []interface{}) ([]IntentCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT intent, COUNT(*), AVG(confidence)
		FROM conversations`+where+`
		GROUP BY intent
		ORDER BY COUNT(*) DESC
		LIMIT 10`, params...)
	if err != nil {
		return nil, fmt.Errorf("query intent distribution: %w", err)
	}
	defer closeRows(rows, "intent distribution")

	var out []IntentCount
	for rows.Next() {
		var ic IntentCount
		var avg sql.NullFloat64
		if err := rows.Scan(&ic.Intent, &ic.Count, &avg); err != nil {
			return nil, fmt.Errorf("scan intent distribution: %w", err)
		}
		ic.AvgConfidence = round2(avg.Float64)
		out = append(out, ic)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) queryDailyCounts(ctx context.Context, where string, params []interface{}) ([]DailyCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date(timestamp), COUNT(*)
		FROM conversations`+where+`
		GROUP BY date(timestamp)
		ORDER BY date(timestamp) DESC
		LIMIT 30`, params...)
	if err != nil {
		return nil, fmt.Errorf("query daily counts: %w", err)
	}
	defer closeRows(rows, "daily counts")

	var out []DailyCount
	for rows.Next() {
		var dc DailyCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, fmt.Errorf("scan daily counts: %w", err)
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) querySentimentDistribution(ctx context.Context, where string, params []interface{}) ([]SentimentCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sentiment, COUNT(*)
		FROM conversations`+where+`
		GROUP BY sentiment`, params...)
	if err != nil {
		return nil, fmt.Errorf("query sentiment distribution: %w", err)
	}
	defer closeRows(rows, "sentiment distribution")

	var out []SentimentCount
	for rows.Next() {
		var sc SentimentCount
		if err := rows.Scan(&sc.Sentiment, &sc.Count); err != nil {
			return nil, fmt.Errorf("scan sentiment distribution: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// ExportConversations returns a session's turns oldest-first, or the latest
// 1000 turns overall when sessionID is empty.
func (s *SQLiteStore) ExportConversations(ctx context.Context, sessionID string) ([]*domain.Turn, error) {
	query := `
		SELECT id, session_id, user_message, bot_response, intent, sentiment,
		       confidence, timestamp, feedback, feedback_text, response_time, escalated, resolved
		FROM conversations`
	var params []interface{}
	if sessionID != "" {
		query += ` WHERE session_id = ? ORDER BY timestamp`
		params = append(params, sessionID)
	} else {
		query += ` ORDER BY timestamp DESC LIMIT 1000`
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer closeRows(rows, "export conversations")

	var turns []*domain.Turn
	for rows.Next() {
		turn, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

// SessionSummary aggregates the stored turns of one session.
func (s *SQLiteStore) SessionSummary(ctx context.Context, sessionID string) (*domain.SessionSummary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			MIN(timestamp),
			MAX(timestamp),
			AVG(CASE WHEN feedback > 0 THEN feedback END),
			GROUP_CONCAT(DISTINCT intent)
		FROM conversations
		WHERE session_id = ?`, sessionID)

	var summary domain.SessionSummary
	var start, end, intents sql.NullString
	var avg sql.NullFloat64
	if err := row.Scan(&summary.MessageCount, &start, &end, &avg, &intents); err != nil {
		return nil, fmt.Errorf("scan session summary: %w", err)
	}
	if summary.MessageCount == 0 {
		return nil, nil
	}

	summary.StartTime = start.String
	summary.EndTime = end.String
	summary.AvgSatisfaction = avg.Float64
	if intents.String != "" {
		summary.IntentsUsed = strings.Split(intents.String, ",")
	}
	return &summary, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTurn(row rowScanner) (*domain.Turn, error) {
	var turn domain.Turn
	var sentiment, feedbackText, stamp sql.NullString
	var confidence, responseTime sql.NullFloat64
	var escalated, resolved int

	if err := row.Scan(
		&turn.ID, &turn.SessionID, &turn.UserMessage, &turn.BotResponse,
		&turn.Intent, &sentiment, &confidence, &stamp,
		&turn.Feedback, &feedbackText, &responseTime, &escalated, &resolved,
	); err != nil {
		return nil, fmt.Errorf("scan turn row: %w", err)
	}

	turn.Sentiment = domain.Sentiment(sentiment.String)
	turn.Confidence = confidence.Float64
	turn.FeedbackText = feedbackText.String
	turn.ResponseTime = responseTime.Float64
	turn.Escalated = escalated != 0
	turn.Resolved = resolved != 0
	if stamp.Valid {
		if ts, err := time.ParseInLocation(timestampLayout, stamp.String, time.Local); err == nil {
			turn.Timestamp = ts
		}
	}
	return &turn, nil
}

func closeRows(rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		slog.Warn("failed to close rows", "query", what, "error", err)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
