package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/mattn/go-shellwords"

	"github.com/dungle-scrubs/hisohiso-sub001/internal/audio"
	"github.com/dungle-scrubs/hisohiso-sub001/internal/config"
)

type execEmbedder struct {
	cmd []string
	cfg config.VerifyConfig
	mu  sync.Mutex
}

type execEmbedResult struct {
	Vector []float32 `json:"vector"`
}

// NewExecEmbedder wraps an external embedding model invoked as a
// subprocess. The command receives --audio <wav> (plus --model when
// configured) and must print {"vector":[...]} on stdout.
func NewExecEmbedder(cfg config.VerifyConfig) (Embedder, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse verify command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("verify command is empty")
	}
	return &execEmbedder{cmd: args, cfg: cfg}, nil
}

func (e *execEmbedder) Embed(ctx context.Context, samples []float32, sampleRate int) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	file, err := os.CreateTemp(os.TempDir(), "hisohiso_verify_*.wav")
	if err != nil {
		return nil, fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(file.Name())
	defer file.Close()

	if err := audio.WriteWAV(file, samples, sampleRate); err != nil {
		return nil, err
	}

	base := e.cmd[0]
	cmdArgs := append([]string{}, e.cmd[1:]...)
	cmdArgs = append(cmdArgs, "--audio", file.Name())
	if e.cfg.ModelPath != "" {
		cmdArgs = append(cmdArgs, "--model", e.cfg.ModelPath)
	}

	command := exec.CommandContext(ctx, base, cmdArgs...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return nil, fmt.Errorf("verify command failed: %w: %s", err, stderr.String())
	}

	var resp execEmbedResult
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("decode verify response: %w", err)
	}
	if len(resp.Vector) == 0 {
		return nil, fmt.Errorf("verify command returned empty vector")
	}
	return resp.Vector, nil
}
