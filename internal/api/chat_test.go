package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/crispdesk/supportbot/internal/catalog"
	"github.com/crispdesk/supportbot/internal/chat"
	"github.com/crispdesk/supportbot/internal/dialog"
	"github.com/crispdesk/supportbot/internal/intent"
	"github.com/crispdesk/supportbot/internal/sentiment"
	"github.com/crispdesk/supportbot/internal/session"
)

const apiTestCatalog = `{
	"intents": [
		{
			"tag": "greeting",
			"patterns": ["hi", "hello", "hey there", "good morning"],
			"responses": ["Hello! How can I help you today?"]
		},
		{
			"tag": "order_status",
			"patterns": ["where is my order", "track my order", "order status", "has my order shipped"],
			"responses": ["Could I have your order number?"]
		}
	]
}`

func newTestRouter(t *testing.T) (http.Handler, *fakeRepo) {
	t.Helper()

	catalogPath := filepath.Join(t.TempDir(), "intents.json")
	if err := os.WriteFile(catalogPath, []byte(apiTestCatalog), 0644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	cat, err := catalog.Load(catalogPath)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	opts := intent.DefaultTrainOptions()
	opts.Hidden1 = 16
	opts.Hidden2 = 8
	opts.Epochs = 300
	opts.LearningRate = 0.05
	net, vocab, classes, err := intent.Train(cat, opts)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	modelDir := t.TempDir()
	if err := intent.SaveArtifacts(modelDir, net, vocab, classes); err != nil {
		t.Fatalf("save artifacts: %v", err)
	}
	classifier, err := intent.Load(modelDir, 0.5)
	if err != nil {
		t.Fatalf("load classifier: %v", err)
	}

	repo := &fakeRepo{}
	svc := chat.NewService(
		sentiment.NewAnalyzer(),
		classifier,
		dialog.NewContextStore(time.Hour, 10),
		cat,
		repo,
		nil,
	)

	r := chi.NewRouter()
	r.Use(session.Middleware(true))
	NewChatHandler(NewHandler(svc, repo)).RegisterRoutes(r)
	NewHealthHandler(repo).RegisterHealth(r)
	return r, repo
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestChatEndpoint(t *testing.T) {
	router, repo := newTestRouter(t)

	rec := postJSON(t, router, "/api/chat", `{"message": "hello"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var reply chat.Reply
	if err := json.NewDecoder(rec.Body).Decode(&reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if reply.Intent != "greeting" {
		t.Errorf("intent = %q, want greeting", reply.Intent)
	}
	if reply.Response == "" {
		t.Error("empty response")
	}
	if reply.ConversationID != 1 {
		t.Errorf("conversation_id = %d, want 1", reply.ConversationID)
	}

	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			sessionCookie = c
		}
	}
	if sessionCookie == nil || sessionCookie.Value == "" {
		t.Error("session cookie not set")
	}

	if len(repo.turns) != 1 {
		t.Errorf("stored %d turns, want 1", len(repo.turns))
	}
}

func TestChatNoMessage(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, body := range []string{`{}`, `{"message": ""}`, `not json`} {
		rec := postJSON(t, router, "/api/chat", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "No message provided") {
			t.Errorf("body %q: response = %s", body, rec.Body.String())
		}
	}
}

func TestFeedbackEndpoint(t *testing.T) {
	router, repo := newTestRouter(t)

	if rec := postJSON(t, router, "/api/chat", `{"message": "hello"}`); rec.Code != http.StatusOK {
		t.Fatalf("chat status = %d", rec.Code)
	}

	rec := postJSON(t, router, "/api/feedback", `{"conversation_id": 1, "feedback": 5, "feedback_text": "great"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"success":true`) {
		t.Errorf("body = %s", rec.Body.String())
	}
	if repo.turns[0].Feedback != 5 || repo.turns[0].FeedbackText != "great" {
		t.Errorf("stored feedback = %+v", repo.turns[0])
	}

	// An id referencing no turn is still accepted.
	rec = postJSON(t, router, "/api/feedback", `{"conversation_id": 999, "feedback": 1}`)
	if rec.Code != http.StatusOK {
		t.Errorf("unknown id status = %d, want 200", rec.Code)
	}
}

func TestFeedbackValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, body := range []string{`{}`, `{"conversation_id": 1}`, `{"feedback": 5}`} {
		rec := postJSON(t, router, "/api/feedback", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestTypingEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(t, router, "/api/typing", `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"typing"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestSuggestionsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := get(t, router, "/api/suggestions")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body map[string][]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body["suggestions"]) != 5 {
		t.Errorf("suggestions = %v, want 5 entries", body["suggestions"])
	}
}

func TestExportEndpointJSON(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := get(t, router, "/api/export")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if string(body["data"]) != "[]" {
		t.Errorf("data = %s, want empty array", body["data"])
	}
}

func TestExportEndpointCSV(t *testing.T) {
	router, _ := newTestRouter(t)

	if rec := postJSON(t, router, "/api/chat", `{"message": "hello"}`); rec.Code != http.StatusOK {
		t.Fatalf("chat status = %d", rec.Code)
	}

	rec := get(t, router, "/api/export?format=csv")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q", ct)
	}

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("csv has %d lines, want header plus one row", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id,session_id,user_message") {
		t.Errorf("csv header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "hello") {
		t.Errorf("csv row = %q", lines[1])
	}
}

func TestAnalyticsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := get(t, router, "/api/analytics?intent=greeting&date_from=2025-01-01")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "statistics") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestSessionSummaryEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	first := postJSON(t, router, "/api/chat", `{"message": "hello"}`)
	if first.Code != http.StatusOK {
		t.Fatalf("chat status = %d", first.Code)
	}
	cookies := first.Result().Cookies()

	req := httptest.NewRequest(http.MethodGet, "/api/session/summary", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if string(body["session_id"]) == `""` {
		t.Error("session_id missing from summary")
	}
	if _, ok := body["context"]; !ok {
		t.Error("in-memory context summary missing")
	}
}
