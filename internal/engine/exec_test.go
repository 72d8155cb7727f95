package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dungle-scrubs/hisohiso-sub001/internal/config"
)

func writeScript(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.sh")
	if err := os.WriteFile(path, []byte(contents), 0o755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func execConfig(command string) config.EngineConfig {
	return config.EngineConfig{
		Mode:          "exec",
		Command:       command,
		Language:      "en",
		CallTimeoutMS: 2000,
	}
}

func TestExecBatcherTranscribe(t *testing.T) {
	script := writeScript(t, "#!/bin/sh\necho '{\"text\":\"from script\"}'\n")
	b, err := NewExecBatcher(execConfig(script), 16000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seg, err := b.Transcribe(context.Background(), []float32{0, 0.1, -0.1})
	if err != nil {
		t.Fatalf("transcribe failed: %v", err)
	}
	if seg.Text != "from script" || !seg.Final {
		t.Fatalf("unexpected segment %+v", seg)
	}
}

func TestExecBatcherCommandNotFound(t *testing.T) {
	b, err := NewExecBatcher(execConfig("hisohiso-no-such-binary"), 16000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = b.Transcribe(context.Background(), []float32{0})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestExecBatcherTimeout(t *testing.T) {
	script := writeScript(t, "#!/bin/sh\nsleep 5\n")
	cfg := execConfig(script)
	cfg.CallTimeoutMS = 50
	b, err := NewExecBatcher(cfg, 16000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = b.Transcribe(context.Background(), []float32{0})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestExecBatcherBadOutput(t *testing.T) {
	script := writeScript(t, "#!/bin/sh\necho 'not json'\n")
	b, err := NewExecBatcher(execConfig(script), 16000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := b.Transcribe(context.Background(), []float32{0}); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestExecBatcherEmptyCommand(t *testing.T) {
	if _, err := NewExecBatcher(execConfig(""), 16000); err == nil {
		t.Fatal("expected error for empty command")
	}
}
