//go:build whisper_cpp

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	whisperpkg "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/dungle-scrubs/hisohiso-sub001/internal/config"
)

// whisperModel owns the loaded whisper.cpp model; one per process,
// streamers share it behind a mutex because concurrent contexts crash the
// native library.
type whisperModel struct {
	model      whisperpkg.Model
	language   string
	threads    uint
	sampleRate int
	maxSamples int
	mu         sync.Mutex
	log        *slog.Logger
}

func loadWhisperModel(cfg config.EngineConfig, sampleRate int, log *slog.Logger) (*whisperModel, error) {
	m, err := whisperpkg.New(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: load model: %v", ErrUnavailable, err)
	}
	log.Info("whisper model loaded", slog.String("model", cfg.ModelPath))
	return &whisperModel{
		model:      m,
		language:   cfg.Language,
		threads:    uint(runtime.NumCPU()),
		sampleRate: sampleRate,
		maxSamples: 30 * sampleRate,
		log:        log,
	}, nil
}

func (m *whisperModel) newStreamer() (Streamer, error) {
	return &whisperStreamer{model: m}, nil
}

// whisperStreamer re-decodes the accumulated session audio on every Feed
// and emits the whole transcript as a revised partial at index 0; Finalize
// supersedes it with the final decode at the same index.
type whisperStreamer struct {
	model   *whisperModel
	samples []float32
	done    bool
}

func (s *whisperStreamer) Feed(ctx context.Context, samples []float32) ([]Segment, error) {
	if s.done {
		return nil, fmt.Errorf("streamer already finalized")
	}
	s.samples = append(s.samples, samples...)
	text, err := s.model.decode(ctx, s.samples)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}
	return []Segment{{Text: text, Final: false, Index: 0}}, nil
}

func (s *whisperStreamer) Finalize(ctx context.Context) (Segment, error) {
	if s.done {
		return Segment{}, fmt.Errorf("streamer already finalized")
	}
	s.done = true
	text, err := s.model.decode(ctx, s.samples)
	if err != nil {
		return Segment{}, err
	}
	return Segment{Text: text, Final: true, Index: 0}, nil
}

func (m *whisperModel) decode(ctx context.Context, samples []float32) (string, error) {
	if len(samples) < m.sampleRate/10 {
		return "", nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Sliding window: the native decoder degrades past ~30s of context.
	if len(samples) > m.maxSamples {
		samples = samples[len(samples)-m.maxSamples:]
	}

	wctx, err := m.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("create whisper context: %w", err)
	}
	wctx.SetThreads(m.threads)
	if m.language != "" {
		_ = wctx.SetLanguage(m.language)
	}
	wctx.SetSplitOnWord(true)

	var parts []string
	segCB := func(seg whisperpkg.Segment) {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	if err := wctx.Process(samples, nil, segCB, nil); err != nil {
		return "", fmt.Errorf("whisper process: %w", err)
	}
	return strings.Join(parts, " "), nil
}
