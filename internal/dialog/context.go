// Package dialog holds the conversation-context store and the dialogue
// policy that decides between special-case responses and catalog lookup.
package dialog

import (
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/crispdesk/supportbot/internal/domain"
)

var (
	orderNumberPattern = regexp.MustCompile(`\b[A-Z0-9]{6,}\b`)
	emailPattern       = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePattern       = regexp.MustCompile(`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`)
	namePattern        = regexp.MustCompile(`my name is ([a-z\s]+)`)
)

// ContextStore keeps per-session short-term memory. Contexts expire lazily
// on read after the idle TTL; a separate sweeper evicts sessions idle for a
// longer period. State is process-local and lost on restart.
type ContextStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.SessionContext
	ttl      time.Duration
	capacity int
	now      func() time.Time
}

// NewContextStore creates a context store with the given idle TTL and
// per-session history capacity.
func NewContextStore(ttl time.Duration, capacity int) *ContextStore {
	return &ContextStore{
		sessions: make(map[string]*domain.SessionContext),
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
	}
}

// Get returns a copy of the session's context. A session idle beyond the
// TTL is deleted and an empty context returned.
func (s *ContextStore) Get(sessionID string) domain.SessionContext {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, ok := s.sessions[sessionID]
	if !ok {
		return domain.SessionContext{}
	}

	if !ctx.LastActivity.IsZero() && s.now().Sub(ctx.LastActivity) > s.ttl {
		delete(s.sessions, sessionID)
		slog.Debug("Session context expired", "session_id", sessionID)
		return domain.SessionContext{}
	}

	return copyContext(ctx)
}

// Update records an exchange: it appends to the bounded history, refreshes
// activity and current intent, extracts user attributes from the message,
// and finally runs the waiting-state transition. Extraction runs before the
// transition, so an order number carried in the very message that would
// trigger a wait satisfies the request immediately and no wait is entered.
func (s *ContextStore) Update(sessionID, userMessage, botResponse, intent string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := s.getOrCreate(sessionID)

	ctx.AppendTurn(domain.TurnEntry{
		UserMessage: userMessage,
		BotResponse: botResponse,
		Intent:      intent,
		Timestamp:   s.now(),
	}, s.capacity)

	ctx.CurrentIntent = intent
	ctx.LastActivity = s.now()

	extractAttributes(userMessage, &ctx.Attributes)
	transitionWaiting(ctx, intent)
}

// MarkEscalation bumps the session's escalation counter, creating the
// session if this is its first exchange.
func (s *ContextStore) MarkEscalation(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreate(sessionID).EscalationCount++
}

// AddResolvedIssue records an issue as resolved within the session.
func (s *ContextStore) AddResolvedIssue(sessionID, issue string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx, ok := s.sessions[sessionID]; ok {
		ctx.ResolvedIssues = append(ctx.ResolvedIssues, domain.ResolvedIssue{
			Issue:     issue,
			Timestamp: s.now(),
		})
	}
}

// IsReturningUser reports whether the session already has prior exchanges.
func (s *ContextStore) IsReturningUser(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, ok := s.sessions[sessionID]
	return ok && len(ctx.History) > 1
}

// Preference returns a stored user preference.
func (s *ContextStore) Preference(sessionID, key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, ok := s.sessions[sessionID]
	if !ok || ctx.Preferences == nil {
		return "", false
	}
	v, ok := ctx.Preferences[key]
	return v, ok
}

// SetPreference stores a user preference for an existing session.
func (s *ContextStore) SetPreference(sessionID, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	if ctx.Preferences == nil {
		ctx.Preferences = make(map[string]string)
	}
	ctx.Preferences[key] = value
}

// Summary condenses the session's in-memory context, or returns false when
// the session has no recorded exchanges.
func (s *ContextStore) Summary(sessionID string) (domain.ContextSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, ok := s.sessions[sessionID]
	if !ok || len(ctx.History) == 0 {
		return domain.ContextSummary{}, false
	}

	intentCounts := make(map[string]int)
	for _, e := range ctx.History {
		intentCounts[e.Intent]++
	}
	var mostCommon string
	var issues []string
	for intent, count := range intentCounts {
		issues = append(issues, intent)
		if mostCommon == "" || count > intentCounts[mostCommon] {
			mostCommon = intent
		}
	}

	return domain.ContextSummary{
		MessageCount:     len(ctx.History),
		DurationMinutes:  s.now().Sub(ctx.SessionStart).Minutes(),
		MostCommonIntent: mostCommon,
		Attributes:       ctx.Attributes,
		IssuesDiscussed:  issues,
		EscalationCount:  ctx.EscalationCount,
	}, true
}

// Sweep eagerly deletes sessions idle beyond olderThan and returns the
// number removed. Called by the background sweeper, never on the request
// path.
func (s *ContextStore) Sweep(olderThan time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-olderThan)
	removed := 0
	for id, ctx := range s.sessions {
		if !ctx.LastActivity.IsZero() && ctx.LastActivity.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (s *ContextStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *ContextStore) getOrCreate(sessionID string) *domain.SessionContext {
	if ctx, ok := s.sessions[sessionID]; ok {
		return ctx
	}
	ctx := &domain.SessionContext{SessionStart: s.now()}
	s.sessions[sessionID] = ctx
	return ctx
}

// extractAttributes scans the message for user details. Every field is
// last-write-wins.
func extractAttributes(message string, attrs *domain.Attributes) {
	if m := orderNumberPattern.FindString(strings.ToUpper(message)); m != "" {
		attrs.OrderNumber = m
	}
	if m := emailPattern.FindString(message); m != "" {
		attrs.Email = m
	}
	if m := phonePattern.FindString(message); m != "" {
		attrs.Phone = m
	}
	lower := strings.ToLower(message)
	if strings.Contains(lower, "my name is") {
		if m := namePattern.FindStringSubmatch(lower); m != nil {
			attrs.Name = titleCase(strings.TrimSpace(m[1]))
		}
	}
}

// transitionWaiting recomputes the waiting state. Rule order is fixed:
// entering a wait takes precedence over clearing one, so a new order_status
// request re-enters the wait even while an order_info wait could be
// satisfied.
func transitionWaiting(ctx *domain.SessionContext, intent string) {
	switch {
	case intent == domain.IntentOrderStatus && ctx.Attributes.OrderNumber == "":
		ctx.Waiting = domain.WaitOrderNumber
	case intent == domain.IntentReturnPolicy && ctx.Attributes.OrderNumber == "" && ctx.Attributes.Email == "":
		ctx.Waiting = domain.WaitOrderInfo
	case ctx.Waiting == domain.WaitOrderNumber && ctx.Attributes.OrderNumber != "":
		ctx.Waiting = domain.WaitNone
	case ctx.Waiting == domain.WaitOrderInfo && (ctx.Attributes.OrderNumber != "" || ctx.Attributes.Email != ""):
		ctx.Waiting = domain.WaitNone
	}
}

func copyContext(ctx *domain.SessionContext) domain.SessionContext {
	cp := *ctx
	cp.History = append([]domain.TurnEntry(nil), ctx.History...)
	cp.ResolvedIssues = append([]domain.ResolvedIssue(nil), ctx.ResolvedIssues...)
	if ctx.Preferences != nil {
		cp.Preferences = make(map[string]string, len(ctx.Preferences))
		for k, v := range ctx.Preferences {
			cp.Preferences[k] = v
		}
	}
	return cp
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
