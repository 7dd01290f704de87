package domain

import (
	"time"
)

// WaitState marks a dialogue that is mid-way through collecting a specific
// piece of information from the user.
type WaitState string

const (
	WaitNone        WaitState = ""
	WaitOrderNumber WaitState = "order_number"
	WaitOrderInfo   WaitState = "order_info"
)

// TurnEntry is a single exchange in the short-term conversation history.
type TurnEntry struct {
	UserMessage string    `json:"user_message"`
	BotResponse string    `json:"bot_response"`
	Intent      string    `json:"intent"`
	Timestamp   time.Time `json:"timestamp"`
}

// Attributes holds user details extracted from messages. Each field is
// last-write-wins across the session.
type Attributes struct {
	OrderNumber string `json:"order_number,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Name        string `json:"name,omitempty"`
}

// ResolvedIssue records an issue the bot considers closed within a session.
type ResolvedIssue struct {
	Issue     string    `json:"issue"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionContext is the per-session short-term memory consulted by the
// dialogue policy. It lives only in memory and is lost on restart.
type SessionContext struct {
	History         []TurnEntry
	Attributes      Attributes
	CurrentIntent   string
	Waiting         WaitState
	LastActivity    time.Time
	SessionStart    time.Time
	Preferences     map[string]string
	ResolvedIssues  []ResolvedIssue
	EscalationCount int
}

// AppendTurn adds an exchange to the history, dropping the oldest entry
// once capacity is reached.
func (c *SessionContext) AppendTurn(e TurnEntry, capacity int) {
	c.History = append(c.History, e)
	if capacity > 0 && len(c.History) > capacity {
		c.History = c.History[len(c.History)-capacity:]
	}
}

// ContextSummary condenses a session's in-memory context for reporting.
type ContextSummary struct {
	MessageCount     int        `json:"message_count"`
	DurationMinutes  float64    `json:"session_duration"`
	MostCommonIntent string     `json:"most_common_intent"`
	Attributes       Attributes `json:"user_info"`
	IssuesDiscussed  []string   `json:"issues_discussed"`
	EscalationCount  int        `json:"escalation_count"`
}
