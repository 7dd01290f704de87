// Package domain contains core domain types for the support chatbot.
package domain

import (
	"time"
)

// Sentiment is the coarse emotional classification of a message.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentUrgent   Sentiment = "urgent"
)

// Intent labels produced outside the classifier's taxonomy.
const (
	IntentEscalation          = "escalation"
	IntentEmpathy             = "empathy"
	IntentOrderStatusProvided = "order_status_provided"
	IntentOrderStatus         = "order_status"
	IntentReturnPolicy        = "return_policy"
	IntentUnknown             = "unknown"
	IntentError               = "error"
)

// Turn is one recorded exchange: the user message and the bot's reply.
// Turns are append-only; feedback is the only field mutated after insert.
type Turn struct {
	ID           int64     `json:"id"`
	SessionID    string    `json:"session_id"`
	UserMessage  string    `json:"user_message"`
	BotResponse  string    `json:"bot_response"`
	Intent       string    `json:"intent"`
	Sentiment    Sentiment `json:"sentiment"`
	Confidence   float64   `json:"confidence"`
	Timestamp    time.Time `json:"timestamp"`
	Feedback     int       `json:"feedback"`
	FeedbackText string    `json:"feedback_text,omitempty"`
	ResponseTime float64   `json:"response_time,omitempty"`
	Escalated    bool      `json:"escalated"`
	Resolved     bool      `json:"resolved"`
}

// SessionSummary aggregates the stored turns of one session.
type SessionSummary struct {
	MessageCount    int      `json:"message_count"`
	StartTime       string   `json:"start_time"`
	EndTime         string   `json:"end_time"`
	AvgSatisfaction float64  `json:"avg_satisfaction"`
	IntentsUsed     []string `json:"intents_used"`
}
