package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/mattn/go-shellwords"

	"github.com/dungle-scrubs/hisohiso-sub001/internal/audio"
	"github.com/dungle-scrubs/hisohiso-sub001/internal/config"
)

type execBatcher struct {
	cmd        []string
	cfg        config.EngineConfig
	sampleRate int
	mu         sync.Mutex
}

type execTranscript struct {
	Text string `json:"text"`
}

// NewExecBatcher wraps a local batch transcriber invoked as a subprocess
// (whisper-cli style). The command receives --audio <wav> plus optional
// --model/--language flags and must print {"text":"..."} on stdout.
func NewExecBatcher(cfg config.EngineConfig, sampleRate int) (Batcher, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse engine command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("engine command is empty")
	}
	return &execBatcher{cmd: args, cfg: cfg, sampleRate: sampleRate}, nil
}

func (b *execBatcher) Transcribe(ctx context.Context, samples []float32) (Segment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, time.Duration(b.cfg.CallTimeoutMS)*time.Millisecond)
	defer cancel()

	file, err := os.CreateTemp(os.TempDir(), "hisohiso_stt_*.wav")
	if err != nil {
		return Segment{}, fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(file.Name())
	defer file.Close()

	if err := audio.WriteWAV(file, samples, b.sampleRate); err != nil {
		return Segment{}, err
	}

	base := b.cmd[0]
	cmdArgs := append([]string{}, b.cmd[1:]...)
	cmdArgs = append(cmdArgs, "--audio", file.Name())
	if b.cfg.ModelPath != "" {
		cmdArgs = append(cmdArgs, "--model", b.cfg.ModelPath)
	}
	if b.cfg.Language != "" {
		cmdArgs = append(cmdArgs, "--language", b.cfg.Language)
	}

	command := exec.CommandContext(callCtx, base, cmdArgs...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return Segment{}, fmt.Errorf("%w: %s", ErrTimeout, b.cmd[0])
		}
		if errors.Is(err, exec.ErrNotFound) {
			return Segment{}, fmt.Errorf("%w: command %q not found", ErrUnavailable, base)
		}
		return Segment{}, fmt.Errorf("engine command failed: %w: %s", err, stderr.String())
	}

	var resp execTranscript
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return Segment{}, fmt.Errorf("decode engine response: %w", err)
	}
	return Segment{Text: resp.Text, Final: true}, nil
}
