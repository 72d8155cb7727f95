package sink

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-shellwords"
)

type execInserter struct {
	cmd []string
	mu  sync.Mutex
}

// NewExecInserter runs the configured paste command (wtype, xdotool,
// osascript, ...) with the text on stdin.
func NewExecInserter(command string) (Inserter, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse sink command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("sink command is empty")
	}
	return &execInserter{cmd: args}, nil
}

func (e *execInserter) Insert(ctx context.Context, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	base := e.cmd[0]
	args := append([]string{}, e.cmd[1:]...)
	cmd := exec.CommandContext(callCtx, base, args...)
	cmd.Stdin = strings.NewReader(text)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("sink command failed: %w: %s", err, output)
	}
	return nil
}
