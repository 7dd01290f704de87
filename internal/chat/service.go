// Package chat orchestrates one conversational turn: sentiment estimation,
// intent classification, dialogue policy, response selection, context update
// and persistence.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/crispdesk/supportbot/internal/catalog"
	"github.com/crispdesk/supportbot/internal/dialog"
	"github.com/crispdesk/supportbot/internal/domain"
	"github.com/crispdesk/supportbot/internal/intent"
	"github.com/crispdesk/supportbot/internal/sentiment"
	"github.com/crispdesk/supportbot/internal/store"
)

// Reply is the full answer for one user message.
type Reply struct {
	Response        string           `json:"response"`
	Intent          string           `json:"intent"`
	Sentiment       domain.Sentiment `json:"sentiment"`
	Confidence      float64          `json:"confidence,omitempty"`
	Suggestions     []string         `json:"suggestions,omitempty"`
	QuickReplies    []string         `json:"quick_replies,omitempty"`
	ConversationID  int64            `json:"conversation_id"`
	Escalation      bool             `json:"escalation,omitempty"`
	EmpathyResponse bool             `json:"empathy_response,omitempty"`
	OrderNumber     string           `json:"order_number,omitempty"`
}

// Service wires the chatbot components together.
type Service struct {
	analyzer   *sentiment.Analyzer
	classifier *intent.Classifier
	contexts   *dialog.ContextStore
	catalog    *catalog.Catalog
	repo       store.Repository
	transcript *Transcript
}

// NewService creates the chat service. transcript may be nil.
func NewService(
	analyzer *sentiment.Analyzer,
	classifier *intent.Classifier,
	contexts *dialog.ContextStore,
	cat *catalog.Catalog,
	repo store.Repository,
	transcript *Transcript,
) *Service {
	return &Service{
		analyzer:   analyzer,
		classifier: classifier,
		contexts:   contexts,
		catalog:    cat,
		repo:       repo,
		transcript: transcript,
	}
}

// Process handles one user message end to end and returns the reply.
func (s *Service) Process(ctx context.Context, sessionID, message string) (*Reply, error) {
	started := time.Now()

	msgSentiment := s.analyzer.Analyze(message)
	sessionCtx := s.contexts.Get(sessionID)

	classified, err := s.classifier.Predict(message)
	if err != nil {
		return nil, fmt.Errorf("classify message: %w", err)
	}
	confidence := s.classifier.Confidence()

	var reply *Reply
	if outcome := dialog.Evaluate(message, msgSentiment, sessionCtx); outcome != nil {
		reply = &Reply{
			Response:        outcome.Response,
			Intent:          outcome.Intent,
			Sentiment:       msgSentiment,
			QuickReplies:    outcome.QuickReplies,
			Escalation:      outcome.Escalation,
			EmpathyResponse: outcome.Empathy,
			OrderNumber:     outcome.OrderNumber,
		}
		if outcome.Escalation {
			s.contexts.MarkEscalation(sessionID)
		}
	} else {
		reply = &Reply{
			Response:     s.catalog.ResponseFor(classified, msgSentiment),
			Intent:       classified,
			Sentiment:    msgSentiment,
			Confidence:   confidence,
			Suggestions:  catalog.Suggestions(classified),
			QuickReplies: catalog.QuickReplies(classified),
		}
	}

	s.contexts.Update(sessionID, message, reply.Response, reply.Intent)

	turn := &domain.Turn{
		SessionID:    sessionID,
		UserMessage:  message,
		BotResponse:  reply.Response,
		Intent:       reply.Intent,
		Sentiment:    msgSentiment,
		Confidence:   reply.Confidence,
		Timestamp:    time.Now(),
		ResponseTime: time.Since(started).Seconds(),
		Escalated:    reply.Escalation,
	}
	id, err := s.repo.InsertTurn(ctx, turn)
	if err != nil {
		return nil, fmt.Errorf("store turn: %w", err)
	}
	reply.ConversationID = id

	if s.transcript != nil {
		s.transcript.Log(TranscriptEvent{
			SessionID:   sessionID,
			TurnID:      id,
			UserMessage: message,
			BotResponse: reply.Response,
			Intent:      reply.Intent,
			Sentiment:   string(msgSentiment),
			Confidence:  reply.Confidence,
		})
	}

	slog.Info("Processed chat turn",
		"session_id", sessionID,
		"intent", reply.Intent,
		"sentiment", msgSentiment,
		"confidence", reply.Confidence,
		"turn_id", id,
	)
	return reply, nil
}

// ContextSummary exposes the in-memory context summary for a session.
func (s *Service) ContextSummary(sessionID string) (domain.ContextSummary, bool) {
	return s.contexts.Summary(sessionID)
}
