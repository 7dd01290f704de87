package chat

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/crispdesk/supportbot/internal/config"
)

// TranscriptEvent is one NDJSON line in a conversation transcript.
type TranscriptEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	SessionID   string    `json:"session_id"`
	TurnID      int64     `json:"turn_id,omitempty"`
	UserMessage string    `json:"user_message"`
	BotResponse string    `json:"bot_response"`
	Intent      string    `json:"intent"`
	Sentiment   string    `json:"sentiment"`
	Confidence  float64   `json:"confidence,omitempty"`
}

// Transcript writes conversation events as NDJSON, one file per session,
// optionally mirrored into a single global file. Writes happen on a
// dedicated goroutine; when the queue is full events are dropped rather
// than blocking the request path.
type Transcript struct {
	cfg     config.TranscriptConfig
	logger  *slog.Logger
	queue   chan TranscriptEvent
	done    chan struct{}
	once    sync.Once
	dropped int64
	mu      sync.Mutex
}

// NewTranscript creates the transcript writer and starts its goroutine.
// A disabled config returns a writer whose Log is a no-op.
func NewTranscript(cfg config.TranscriptConfig, logger *slog.Logger) (*Transcript, error) {
	t := &Transcript{cfg: cfg, logger: logger, done: make(chan struct{})}
	if !cfg.Enabled {
		close(t.done)
		return t, nil
	}

	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create transcript directory: %w", err)
	}
	if cfg.GlobalEnabled {
		if err := os.MkdirAll(filepath.Dir(cfg.GlobalPath), 0755); err != nil {
			return nil, fmt.Errorf("create global transcript directory: %w", err)
		}
	}

	t.queue = make(chan TranscriptEvent, cfg.QueueSize)
	go t.run()
	return t, nil
}

// Log enqueues an event. Never blocks; a full queue drops the event.
func (t *Transcript) Log(event TranscriptEvent) {
	if !t.cfg.Enabled {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case t.queue <- event:
	default:
		t.mu.Lock()
		t.dropped++
		dropped := t.dropped
		t.mu.Unlock()
		if dropped%100 == 1 {
			t.logger.Warn("Transcript queue full, dropping events", "dropped_total", dropped)
		}
	}
}

// Dropped returns the number of events lost to a full queue.
func (t *Transcript) Dropped() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

// Close drains the queue and stops the writer goroutine.
func (t *Transcript) Close() error {
	if !t.cfg.Enabled {
		return nil
	}
	t.once.Do(func() { close(t.queue) })
	<-t.done
	return nil
}

func (t *Transcript) run() {
	defer close(t.done)
	for event := range t.queue {
		line, err := json.Marshal(event)
		if err != nil {
			t.logger.Error("Failed to encode transcript event", "error", err)
			continue
		}
		line = append(line, '\n')

		path := filepath.Join(t.cfg.Dir, sanitizeFilename(event.SessionID)+".ndjson")
		if err := appendFile(path, line); err != nil {
			t.logger.Error("Failed to write transcript", "path", path, "error", err)
		}
		if t.cfg.GlobalEnabled {
			if err := appendFile(t.cfg.GlobalPath, line); err != nil {
				t.logger.Error("Failed to write global transcript", "path", t.cfg.GlobalPath, "error", err)
			}
		}
	}
}

func appendFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func sanitizeFilename(name string) string {
	if name == "" {
		return "unknown"
	}
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
