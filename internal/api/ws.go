package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/crispdesk/supportbot/internal/chat"
	"github.com/crispdesk/supportbot/internal/domain"
	"github.com/crispdesk/supportbot/internal/session"
)

// WSHandler serves the live chat stream used by the embedded widget.
type WSHandler struct {
	svc           *chat.Service
	allowedOrigin string
	isDev         bool
}

// NewWSHandler creates a new WebSocket chat handler.
func NewWSHandler(svc *chat.Service, allowedOrigin string, isDev bool) *WSHandler {
	return &WSHandler{svc: svc, allowedOrigin: allowedOrigin, isDev: isDev}
}

type wsChatMessage struct {
	Message string `json:"message"`
}

// ServeHTTP upgrades the connection and answers each inbound message with a
// full reply frame, running the same pipeline as the HTTP chat endpoint.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := session.IDFromContext(r.Context())
	slog.Info("WebSocket chat connection", "session_id", sessionID, "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "session_id", sessionID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "chat ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	ctx = session.WithID(ctx, sessionID)

	for {
		var msg wsChatMessage
		if err := wsjson.Read(ctx, ws, &msg); err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return
			}
			slog.Debug("WebSocket read failed", "error", err, "session_id", sessionID)
			return
		}
		if msg.Message == "" {
			if err := wsjson.Write(ctx, ws, map[string]string{"error": "No message provided"}); err != nil {
				return
			}
			continue
		}

		processCtx, processCancel := context.WithTimeout(ctx, 30*time.Second)
		reply, err := h.svc.Process(processCtx, sessionID, msg.Message)
		processCancel()
		if err != nil {
			slog.Error("Error processing WebSocket message", "error", err, "session_id", sessionID)
			if writeErr := wsjson.Write(ctx, ws, map[string]interface{}{
				"response":  fallbackErrorResponse,
				"intent":    domain.IntentError,
				"sentiment": domain.SentimentNeutral,
			}); writeErr != nil {
				return
			}
			continue
		}

		if err := wsjson.Write(ctx, ws, reply); err != nil {
			slog.Debug("WebSocket write failed", "error", err, "session_id", sessionID)
			return
		}
	}
}

func (h *WSHandler) checkOrigin(r *http.Request) bool {
	if h.isDev || h.allowedOrigin == "" {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	allowed, err := url.Parse(h.allowedOrigin)
	if err != nil {
		return false
	}
	got, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return got.Host == allowed.Host
}
