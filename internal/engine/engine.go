package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dungle-scrubs/hisohiso-sub001/internal/config"
)

var (
	// ErrUnavailable means the underlying model is not loaded or the
	// backend cannot be reached. Sessions surface it as a setup problem,
	// not a transcription failure.
	ErrUnavailable = errors.New("transcription engine unavailable")
	// ErrTimeout means a single engine call exceeded its allotted time.
	ErrTimeout = errors.New("transcription engine timed out")
)

// Segment is one piece of transcript output. Non-final segments may be
// superseded by a later segment with the same or a higher index; exactly
// one final segment closes a session's stream.
type Segment struct {
	Text  string
	Final bool
	Index int
}

// Streamer consumes audio incrementally and may revise earlier partial
// output. Finalize drains any buffered audio and closes the stream.
type Streamer interface {
	Feed(ctx context.Context, samples []float32) ([]Segment, error)
	Finalize(ctx context.Context) (Segment, error)
}

// Batcher transcribes a full recording in one call.
type Batcher interface {
	Transcribe(ctx context.Context, samples []float32) (Segment, error)
}

// Factory produces the engine for one session; exactly one of the returned
// handles is non-nil. The variant is chosen once at activation time and
// held for the session's lifetime; streaming engines carry per-session
// decode state, so each call returns a fresh streamer.
type Factory func() (Streamer, Batcher, error)

func NewFactory(cfg config.EngineConfig, sampleRate int, log *slog.Logger) (Factory, error) {
	log = log.With(slog.String("component", "engine"))
	switch cfg.Mode {
	case "mock":
		return func() (Streamer, Batcher, error) {
			return nil, NewMockBatcher("", nil), nil
		}, nil
	case "exec":
		batcher, err := NewExecBatcher(cfg, sampleRate)
		if err != nil {
			return nil, err
		}
		return func() (Streamer, Batcher, error) {
			return nil, batcher, nil
		}, nil
	case "cloud":
		batcher := NewCloudBatcher(cfg, sampleRate, log)
		return func() (Streamer, Batcher, error) {
			return nil, batcher, nil
		}, nil
	case "whisper":
		model, err := loadWhisperModel(cfg, sampleRate, log)
		if err != nil {
			return nil, err
		}
		return func() (Streamer, Batcher, error) {
			s, err := model.newStreamer()
			if err != nil {
				return nil, nil, err
			}
			return s, nil, nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown engine mode %q", cfg.Mode)
	}
}
