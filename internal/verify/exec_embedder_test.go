package verify

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dungle-scrubs/hisohiso-sub001/internal/config"
)

func writeScript(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "embed.sh")
	if err := os.WriteFile(path, []byte(contents), 0o755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func TestExecEmbedder(t *testing.T) {
	script := writeScript(t, "#!/bin/sh\necho '{\"vector\":[0.5,0.25]}'\n")
	e, err := NewExecEmbedder(config.VerifyConfig{Command: script})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vec, err := e.Embed(context.Background(), []float32{0, 0.1}, 16000)
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if len(vec) != 2 || vec[0] != 0.5 || vec[1] != 0.25 {
		t.Fatalf("unexpected vector %v", vec)
	}
}

func TestExecEmbedderEmptyVector(t *testing.T) {
	script := writeScript(t, "#!/bin/sh\necho '{\"vector\":[]}'\n")
	e, err := NewExecEmbedder(config.VerifyConfig{Command: script})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := e.Embed(context.Background(), []float32{0}, 16000); err == nil {
		t.Fatal("expected error for empty vector")
	}
}

func TestExecEmbedderEmptyCommand(t *testing.T) {
	if _, err := NewExecEmbedder(config.VerifyConfig{}); err == nil {
		t.Fatal("expected error for empty command")
	}
}
