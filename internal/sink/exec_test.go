package sink

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeScript(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.sh")
	if err := os.WriteFile(path, []byte(contents), 0o755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func TestExecInserterPipesText(t *testing.T) {
	out := filepath.Join(t.TempDir(), "inserted.txt")
	script := writeScript(t, "#!/bin/sh\ncat > \""+out+"\"\n")

	ins, err := NewExecInserter(script)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ins.Insert(context.Background(), "Hello world."); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if string(got) != "Hello world." {
		t.Fatalf("inserted %q, want %q", got, "Hello world.")
	}
}

func TestExecInserterEmptyCommand(t *testing.T) {
	if _, err := NewExecInserter(""); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestExecInserterFailure(t *testing.T) {
	script := writeScript(t, "#!/bin/sh\necho boom >&2\nexit 1\n")
	ins, err := NewExecInserter(script)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ins.Insert(context.Background(), "text"); err == nil {
		t.Fatal("expected error from failing command")
	}
}
