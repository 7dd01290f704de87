package api

import (
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/crispdesk/supportbot/internal/catalog"
	"github.com/crispdesk/supportbot/internal/domain"
	"github.com/crispdesk/supportbot/internal/session"
	"github.com/crispdesk/supportbot/internal/store"
)

const fallbackErrorResponse = "I'm experiencing some technical difficulties. Please try again."

// ChatHandler handles the chat, feedback and reporting endpoints.
type ChatHandler struct {
	*Handler
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(base *Handler) *ChatHandler {
	return &ChatHandler{Handler: base}
}

// RegisterRoutes registers chat API routes.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", h.Chat)
		r.Post("/feedback", h.Feedback)
		r.Post("/typing", h.Typing)
		r.Get("/suggestions", h.Suggestions)
		r.Get("/analytics", h.Analytics)
		r.Get("/export", h.Export)
		r.Get("/session/summary", h.SessionSummary)
	})
}

type chatRequest struct {
	Message string `json:"message"`
}

// Chat processes one user message and returns the bot reply. Any processing
// failure is answered with the generic apology and intent "error".
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		Error(w, http.StatusBadRequest, "No message provided")
		return
	}

	sessionID := session.IDFromContext(r.Context())

	reply, err := h.svc.Process(r.Context(), sessionID, req.Message)
	if err != nil {
		slog.Error("Error in chat endpoint", "error", err, "session_id", sessionID)
		JSON(w, http.StatusInternalServerError, map[string]interface{}{
			"response":  fallbackErrorResponse,
			"intent":    domain.IntentError,
			"sentiment": domain.SentimentNeutral,
		})
		return
	}

	JSON(w, http.StatusOK, reply)
}

type feedbackRequest struct {
	ConversationID int64  `json:"conversation_id"`
	Feedback       *int   `json:"feedback"`
	FeedbackText   string `json:"feedback_text"`
}

// Feedback records user feedback for a stored turn. An id referencing no
// turn is accepted and affects zero rows.
func (h *ChatHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ConversationID == 0 || req.Feedback == nil {
		Error(w, http.StatusBadRequest, "Missing conversation_id or feedback")
		return
	}

	if _, err := h.repo.UpdateFeedback(r.Context(), req.ConversationID, *req.Feedback, req.FeedbackText); err != nil {
		slog.Error("Failed to store feedback", "error", err, "conversation_id", req.ConversationID)
		Error(w, http.StatusInternalServerError, "failed to store feedback")
		return
	}

	JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Typing acknowledges a typing indicator from the widget.
func (h *ChatHandler) Typing(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"status": "typing"})
}

// Suggestions returns the static suggestion list for the widget.
func (h *ChatHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string][]string{"suggestions": catalog.DefaultSuggestions})
}

// Analytics computes aggregate statistics under the query filters.
func (h *ChatHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	filter := store.AnalyticsFilter{
		Intent:   r.URL.Query().Get("intent"),
		DateFrom: r.URL.Query().Get("date_from"),
		DateTo:   r.URL.Query().Get("date_to"),
	}

	report, err := h.repo.Analytics(r.Context(), filter)
	if err != nil {
		slog.Error("Failed to compute analytics", "error", err)
		Error(w, http.StatusInternalServerError, "failed to compute analytics")
		return
	}

	JSON(w, http.StatusOK, report)
}

// Export returns stored conversations as JSON or CSV.
func (h *ChatHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	sessionID := r.URL.Query().Get("session_id")

	turns, err := h.repo.ExportConversations(r.Context(), sessionID)
	if err != nil {
		slog.Error("Failed to export conversations", "error", err)
		Error(w, http.StatusInternalServerError, "failed to export conversations")
		return
	}
	if turns == nil {
		turns = []*domain.Turn{}
	}

	if format == "csv" {
		writeCSV(w, turns)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"data": turns})
}

// SessionSummary reports both the stored and the in-memory view of the
// caller's session.
func (h *ChatHandler) SessionSummary(w http.ResponseWriter, r *http.Request) {
	sessionID := session.IDFromContext(r.Context())

	stored, err := h.repo.SessionSummary(r.Context(), sessionID)
	if err != nil {
		slog.Error("Failed to summarize session", "error", err, "session_id", sessionID)
		Error(w, http.StatusInternalServerError, "failed to summarize session")
		return
	}

	payload := map[string]interface{}{
		"session_id": sessionID,
		"stored":     stored,
	}
	if summary, ok := h.svc.ContextSummary(sessionID); ok {
		payload["context"] = summary
	}

	JSON(w, http.StatusOK, payload)
}

func writeCSV(w http.ResponseWriter, turns []*domain.Turn) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="conversations.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{
		"id", "session_id", "user_message", "bot_response", "intent",
		"sentiment", "confidence", "timestamp", "feedback", "feedback_text",
	})
	for _, t := range turns {
		_ = cw.Write([]string{
			strconv.FormatInt(t.ID, 10),
			t.SessionID,
			t.UserMessage,
			t.BotResponse,
			t.Intent,
			string(t.Sentiment),
			strconv.FormatFloat(t.Confidence, 'f', -1, 64),
			t.Timestamp.Format("2006-01-02 15:04:05"),
			strconv.Itoa(t.Feedback),
			t.FeedbackText,
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		slog.Error("Failed to write CSV export", "error", err)
	}
}
