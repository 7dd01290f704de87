// Package session provides the anonymous per-browser session identity used
// to key conversation context.
package session

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// CookieName carries the session identifier between requests.
const CookieName = "support_session_id"

const cookieMaxAge = 30 * 24 * time.Hour

type contextKey int

const sessionIDKey contextKey = iota

// IDFromContext extracts the session ID from the request context.
func IDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

// WithID returns a context carrying the session ID. Used by transports that
// bypass the HTTP middleware, such as the WebSocket handler's read loop.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

func isValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func setCookie(w http.ResponseWriter, id string, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		Expires:  time.Now().Add(cookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

// Middleware assigns a UUID session cookie when the request lacks a valid
// one and stores the session ID in the request context.
func Middleware(isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(CookieName); err == nil && isValidID(c.Value) {
				id = c.Value
			} else {
				id = uuid.NewString()
			}
			setCookie(w, id, isDev)

			next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
		})
	}
}
