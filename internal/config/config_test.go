package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.ContextTTL != time.Hour {
		t.Errorf("ContextTTL = %v, want 1h", cfg.ContextTTL)
	}
	if cfg.SweepTTL != 24*time.Hour {
		t.Errorf("SweepTTL = %v, want 24h", cfg.SweepTTL)
	}
	if cfg.HistoryCapacity != 10 {
		t.Errorf("HistoryCapacity = %d, want 10", cfg.HistoryCapacity)
	}
	if cfg.ConfidenceThreshold != 0.6 {
		t.Errorf("ConfidenceThreshold = %v, want 0.6", cfg.ConfidenceThreshold)
	}
	if !cfg.Transcript.Enabled {
		t.Error("transcript should be enabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CONTEXT_TTL", "30m")
	t.Setenv("HISTORY_CAPACITY", "5")
	t.Setenv("CONFIDENCE_THRESHOLD", "0.75")
	t.Setenv("TRANSCRIPT_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.ContextTTL != 30*time.Minute {
		t.Errorf("ContextTTL = %v, want 30m", cfg.ContextTTL)
	}
	if cfg.HistoryCapacity != 5 {
		t.Errorf("HistoryCapacity = %d, want 5", cfg.HistoryCapacity)
	}
	if cfg.ConfidenceThreshold != 0.75 {
		t.Errorf("ConfidenceThreshold = %v, want 0.75", cfg.ConfidenceThreshold)
	}
	if cfg.Transcript.Enabled {
		t.Error("transcript should be disabled")
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("CONTEXT_TTL", "yesterday")
	t.Setenv("HISTORY_CAPACITY", "lots")
	t.Setenv("TRANSCRIPT_ENABLED", "maybe")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ContextTTL != time.Hour {
		t.Errorf("ContextTTL = %v, want default 1h", cfg.ContextTTL)
	}
	if cfg.HistoryCapacity != 10 {
		t.Errorf("HistoryCapacity = %d, want default 10", cfg.HistoryCapacity)
	}
	if !cfg.Transcript.Enabled {
		t.Error("malformed bool should keep the default")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:                "8080",
			DBPath:              "./data/support.db",
			CatalogPath:         "./data/intents.json",
			ModelDir:            "./data/model",
			ContextTTL:          time.Hour,
			SweepTTL:            24 * time.Hour,
			HistoryCapacity:     10,
			ConfidenceThreshold: 0.6,
			Transcript: TranscriptConfig{
				Dir:        "./data/logs/transcripts",
				GlobalPath: "./data/logs/transcripts/all.ndjson",
				QueueSize:  1000,
			},
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.Port = "" }},
		{"empty db path", func(c *Config) { c.DBPath = "" }},
		{"empty catalog path", func(c *Config) { c.CatalogPath = "" }},
		{"empty model dir", func(c *Config) { c.ModelDir = "" }},
		{"zero context ttl", func(c *Config) { c.ContextTTL = 0 }},
		{"zero sweep ttl", func(c *Config) { c.SweepTTL = 0 }},
		{"zero history capacity", func(c *Config) { c.HistoryCapacity = 0 }},
		{"threshold too low", func(c *Config) { c.ConfidenceThreshold = 0 }},
		{"threshold too high", func(c *Config) { c.ConfidenceThreshold = 1 }},
		{"empty transcript dir", func(c *Config) { c.Transcript.Dir = "" }},
		{"zero queue size", func(c *Config) { c.Transcript.QueueSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestIsDevelopment(t *testing.T) {
	tests := []struct {
		frontendURL string
		want        bool
	}{
		{"", true},
		{"http://localhost:3000", true},
		{"http://127.0.0.1:3000", true},
		{"https://support.example.com", false},
	}

	for _, tt := range tests {
		cfg := &Config{FrontendURL: tt.frontendURL}
		if got := cfg.IsDevelopment(); got != tt.want {
			t.Errorf("IsDevelopment(%q) = %v, want %v", tt.frontendURL, got, tt.want)
		}
	}
}
