package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.DaemonName != "hisohisod" {
		t.Fatalf("unexpected daemon name %q", cfg.DaemonName)
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Fatalf("unexpected sample rate %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.OverlapMS >= cfg.Audio.ChunkMS {
		t.Fatalf("default overlap %d must be below chunk %d", cfg.Audio.OverlapMS, cfg.Audio.ChunkMS)
	}
	if cfg.Engine.Mode != "mock" {
		t.Fatalf("unexpected default engine mode %q", cfg.Engine.Mode)
	}
	if err := validate(cfg); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hisohiso.yaml")
	contents := `
daemon_name: test-daemon
audio:
  chunk_ms: 2000
  overlap_ms: 250
verify:
  enabled: true
  mode: mock
  threshold: 0.8
  window_ms: 1000
format:
  filler_words: ["um", "er"]
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DaemonName != "test-daemon" {
		t.Fatalf("expected daemon name override, got %q", cfg.DaemonName)
	}
	if cfg.Audio.ChunkMS != 2000 || cfg.Audio.OverlapMS != 250 {
		t.Fatalf("expected audio overrides, got chunk=%d overlap=%d", cfg.Audio.ChunkMS, cfg.Audio.OverlapMS)
	}
	if !cfg.Verify.Enabled || cfg.Verify.Threshold != 0.8 {
		t.Fatalf("expected verify overrides, got %+v", cfg.Verify)
	}
	if len(cfg.Format.FillerWords) != 2 || cfg.Format.FillerWords[1] != "er" {
		t.Fatalf("expected filler override, got %v", cfg.Format.FillerWords)
	}
	// Untouched sections keep their defaults.
	if cfg.Session.TimeoutMS != 60000 {
		t.Fatalf("expected default session timeout, got %d", cfg.Session.TimeoutMS)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HISOHISO_DAEMON_NAME", "env-daemon")
	t.Setenv("HISOHISO_AUDIO_CHUNK_MS", "1000")
	t.Setenv("HISOHISO_VERIFY_THRESHOLD", "0.9")
	t.Setenv("HISOHISO_STATUS_ENABLED", "false")
	t.Setenv("HISOHISO_FORMAT_FILLER_WORDS", "um, like ,uh")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DaemonName != "env-daemon" {
		t.Fatalf("expected env daemon name, got %q", cfg.DaemonName)
	}
	if cfg.Audio.ChunkMS != 1000 {
		t.Fatalf("expected env chunk override, got %d", cfg.Audio.ChunkMS)
	}
	if cfg.Verify.Threshold != 0.9 {
		t.Fatalf("expected env threshold override, got %v", cfg.Verify.Threshold)
	}
	if cfg.Status.Enabled {
		t.Fatal("expected status disabled via env")
	}
	if got := strings.Join(cfg.Format.FillerWords, "|"); got != "um|like|uh" {
		t.Fatalf("expected trimmed filler list, got %q", got)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"overlap >= chunk", func(c *Config) { c.Audio.OverlapMS = c.Audio.ChunkMS }},
		{"bad engine mode", func(c *Config) { c.Engine.Mode = "telepathy" }},
		{"exec engine without command", func(c *Config) { c.Engine.Mode = "exec" }},
		{"cloud engine without endpoint", func(c *Config) { c.Engine.Mode = "cloud" }},
		{"whisper without model", func(c *Config) { c.Engine.Mode = "whisper" }},
		{"verify threshold out of range", func(c *Config) {
			c.Verify.Enabled = true
			c.Verify.Threshold = 1.5
		}},
		{"zero poll interval", func(c *Config) { c.Session.PollMS = 0 }},
		{"bad retention mode", func(c *Config) { c.History.RetentionMode = "forever" }},
		{"exec sink without command", func(c *Config) { c.Sink.Mode = "exec" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := validate(cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
